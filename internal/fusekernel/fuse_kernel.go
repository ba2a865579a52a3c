// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fusekernel contains the structures exchanged with the kernel over
// /dev/fuse, as defined by include/uapi/linux/fuse.h.
//
// All structures are laid out exactly as the kernel expects them on 64-bit
// Linux and may be read and written through unsafe pointers.
package fusekernel

import "fmt"

// The protocol version spoken by this package, and the oldest kernel version
// it will accept. 7.12 is where umask appeared in mknod, mkdir and create.
const (
	ProtoVersionMinMajor = 7
	ProtoVersionMinMinor = 12
	ProtoVersionMaxMajor = 7
	ProtoVersionMaxMinor = 31
)

// The largest offset the kernel represents in a lock, standing in for "to
// the end of the file".
const OffsetMax = 0x7fffffffffffffff

// The root of every file system.
const RootID = 1

////////////////////////////////////////////////////////////////////////
// Opcodes
////////////////////////////////////////////////////////////////////////

type Opcode uint32

const (
	OpLookup        Opcode = 1
	OpForget        Opcode = 2
	OpGetattr       Opcode = 3
	OpSetattr       Opcode = 4
	OpReadlink      Opcode = 5
	OpSymlink       Opcode = 6
	OpMknod         Opcode = 8
	OpMkdir         Opcode = 9
	OpUnlink        Opcode = 10
	OpRmdir         Opcode = 11
	OpRename        Opcode = 12
	OpLink          Opcode = 13
	OpOpen          Opcode = 14
	OpRead          Opcode = 15
	OpWrite         Opcode = 16
	OpStatfs        Opcode = 17
	OpRelease       Opcode = 18
	OpFsync         Opcode = 20
	OpSetxattr      Opcode = 21
	OpGetxattr      Opcode = 22
	OpListxattr     Opcode = 23
	OpRemovexattr   Opcode = 24
	OpFlush         Opcode = 25
	OpInit          Opcode = 26
	OpOpendir       Opcode = 27
	OpReaddir       Opcode = 28
	OpReleasedir    Opcode = 29
	OpFsyncdir      Opcode = 30
	OpGetlk         Opcode = 31
	OpSetlk         Opcode = 32
	OpSetlkw        Opcode = 33
	OpAccess        Opcode = 34
	OpCreate        Opcode = 35
	OpInterrupt     Opcode = 36
	OpBmap          Opcode = 37
	OpDestroy       Opcode = 38
	OpIoctl         Opcode = 39
	OpPoll          Opcode = 40
	OpNotifyReply   Opcode = 41
	OpBatchForget   Opcode = 42
	OpFallocate     Opcode = 43
	OpReaddirplus   Opcode = 44
	OpRename2       Opcode = 45
	OpLseek         Opcode = 46
	OpCopyFileRange Opcode = 47
)

var opcodeNames = map[Opcode]string{
	OpLookup:        "LOOKUP",
	OpForget:        "FORGET",
	OpGetattr:       "GETATTR",
	OpSetattr:       "SETATTR",
	OpReadlink:      "READLINK",
	OpSymlink:       "SYMLINK",
	OpMknod:         "MKNOD",
	OpMkdir:         "MKDIR",
	OpUnlink:        "UNLINK",
	OpRmdir:         "RMDIR",
	OpRename:        "RENAME",
	OpLink:          "LINK",
	OpOpen:          "OPEN",
	OpRead:          "READ",
	OpWrite:         "WRITE",
	OpStatfs:        "STATFS",
	OpRelease:       "RELEASE",
	OpFsync:         "FSYNC",
	OpSetxattr:      "SETXATTR",
	OpGetxattr:      "GETXATTR",
	OpListxattr:     "LISTXATTR",
	OpRemovexattr:   "REMOVEXATTR",
	OpFlush:         "FLUSH",
	OpInit:          "INIT",
	OpOpendir:       "OPENDIR",
	OpReaddir:       "READDIR",
	OpReleasedir:    "RELEASEDIR",
	OpFsyncdir:      "FSYNCDIR",
	OpGetlk:         "GETLK",
	OpSetlk:         "SETLK",
	OpSetlkw:        "SETLKW",
	OpAccess:        "ACCESS",
	OpCreate:        "CREATE",
	OpInterrupt:     "INTERRUPT",
	OpBmap:          "BMAP",
	OpDestroy:       "DESTROY",
	OpIoctl:         "IOCTL",
	OpPoll:          "POLL",
	OpNotifyReply:   "NOTIFY_REPLY",
	OpBatchForget:   "BATCH_FORGET",
	OpFallocate:     "FALLOCATE",
	OpReaddirplus:   "READDIRPLUS",
	OpRename2:       "RENAME2",
	OpLseek:         "LSEEK",
	OpCopyFileRange: "COPY_FILE_RANGE",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}

	return fmt.Sprintf("OPCODE_%d", uint32(op))
}

// Notification codes, carried in OutHeader.Error of a message with a zero
// Unique field.
const (
	NotifyCodePoll       = 1
	NotifyCodeInvalInode = 2
	NotifyCodeInvalEntry = 3
	NotifyCodeStore      = 4
	NotifyCodeRetrieve   = 5
	NotifyCodeDelete     = 6
)

////////////////////////////////////////////////////////////////////////
// Flags
////////////////////////////////////////////////////////////////////////

// SetattrIn.Valid
const (
	SetattrMode      = 1 << 0
	SetattrUid       = 1 << 1
	SetattrGid       = 1 << 2
	SetattrSize      = 1 << 3
	SetattrAtime     = 1 << 4
	SetattrMtime     = 1 << 5
	SetattrHandle    = 1 << 6
	SetattrAtimeNow  = 1 << 7
	SetattrMtimeNow  = 1 << 8
	SetattrLockOwner = 1 << 9
	SetattrCtime     = 1 << 10
)

// OpenOut.OpenFlags
const (
	OpenDirectIO    = 1 << 0
	OpenKeepCache   = 1 << 1
	OpenNonSeekable = 1 << 2
	OpenCacheDir    = 1 << 3
)

// InitIn.Flags and InitOut.Flags
const (
	InitAsyncRead       = 1 << 0
	InitPosixLocks      = 1 << 1
	InitFileOps         = 1 << 2
	InitAtomicTrunc     = 1 << 3
	InitExportSupport   = 1 << 4
	InitBigWrites       = 1 << 5
	InitDontMask        = 1 << 6
	InitSpliceWrite     = 1 << 7
	InitSpliceMove      = 1 << 8
	InitSpliceRead      = 1 << 9
	InitFlockLocks      = 1 << 10
	InitHasIoctlDir     = 1 << 11
	InitAutoInvalData   = 1 << 12
	InitDoReaddirplus   = 1 << 13
	InitReaddirplusAuto = 1 << 14
	InitAsyncDIO        = 1 << 15
	InitWritebackCache  = 1 << 16
	InitNoOpenSupport   = 1 << 17
	InitParallelDirOps  = 1 << 18
	InitHandleKillpriv  = 1 << 19
	InitPosixACL        = 1 << 20
	InitAbortError      = 1 << 21
	InitMaxPages        = 1 << 22
	InitCacheSymlinks   = 1 << 23
)

const (
	// GetattrIn.GetattrFlags
	GetattrFh = 1 << 0

	// ReleaseIn.ReleaseFlags
	ReleaseFlush       = 1 << 0
	ReleaseFlockUnlock = 1 << 1

	// WriteIn.WriteFlags
	WriteCache     = 1 << 0
	WriteLockOwner = 1 << 1

	// ReadIn.ReadFlags
	ReadLockOwner = 1 << 1

	// LkIn.LkFlags
	LkFlock = 1 << 0

	// FsyncIn.FsyncFlags
	FsyncFdatasync = 1 << 0

	// PollIn.Flags
	PollScheduleNotify = 1 << 0
)

////////////////////////////////////////////////////////////////////////
// Headers
////////////////////////////////////////////////////////////////////////

type InHeader struct {
	Len     uint32
	Opcode  Opcode
	Unique  uint64
	Nodeid  uint64
	Uid     uint32
	Gid     uint32
	Pid     uint32
	Padding uint32
}

type OutHeader struct {
	Len    uint32
	Error  int32
	Unique uint64
}

////////////////////////////////////////////////////////////////////////
// Attributes and entries
////////////////////////////////////////////////////////////////////////

type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	AtimeNsec uint32
	MtimeNsec uint32
	CtimeNsec uint32
	Mode      uint32
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Blksize   uint32
	Padding   uint32
}

type EntryOut struct {
	Nodeid         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           Attr
}

type AttrOut struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Dummy         uint32
	Attr          Attr
}

type GetattrIn struct {
	GetattrFlags uint32
	Dummy        uint32
	Fh           uint64
}

type SetattrIn struct {
	Valid     uint32
	Padding   uint32
	Fh        uint64
	Size      uint64
	LockOwner uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	AtimeNsec uint32
	MtimeNsec uint32
	CtimeNsec uint32
	Mode      uint32
	Unused4   uint32
	Uid       uint32
	Gid       uint32
	Unused5   uint32
}

////////////////////////////////////////////////////////////////////////
// Namespace operations
////////////////////////////////////////////////////////////////////////

type ForgetIn struct {
	Nlookup uint64
}

type ForgetOne struct {
	Nodeid  uint64
	Nlookup uint64
}

type BatchForgetIn struct {
	Count uint32
	Dummy uint32
}

type MknodIn struct {
	Mode    uint32
	Rdev    uint32
	Umask   uint32
	Padding uint32
}

type MkdirIn struct {
	Mode  uint32
	Umask uint32
}

type RenameIn struct {
	Newdir uint64
}

type Rename2In struct {
	Newdir  uint64
	Flags   uint32
	Padding uint32
}

type LinkIn struct {
	Oldnodeid uint64
}

////////////////////////////////////////////////////////////////////////
// Handles and I/O
////////////////////////////////////////////////////////////////////////

type OpenIn struct {
	Flags  uint32
	Unused uint32
}

type OpenOut struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

type CreateIn struct {
	Flags   uint32
	Mode    uint32
	Umask   uint32
	Padding uint32
}

type ReleaseIn struct {
	Fh           uint64
	Flags        uint32
	ReleaseFlags uint32
	LockOwner    uint64
}

type FlushIn struct {
	Fh        uint64
	Unused    uint32
	Padding   uint32
	LockOwner uint64
}

type ReadIn struct {
	Fh        uint64
	Offset    uint64
	Size      uint32
	ReadFlags uint32
	LockOwner uint64
	Flags     uint32
	Padding   uint32
}

type WriteIn struct {
	Fh         uint64
	Offset     uint64
	Size       uint32
	WriteFlags uint32
	LockOwner  uint64
	Flags      uint32
	Padding    uint32
}

type WriteOut struct {
	Size    uint32
	Padding uint32
}

type FsyncIn struct {
	Fh         uint64
	FsyncFlags uint32
	Padding    uint32
}

type FallocateIn struct {
	Fh      uint64
	Offset  uint64
	Length  uint64
	Mode    uint32
	Padding uint32
}

type LseekIn struct {
	Fh      uint64
	Offset  uint64
	Whence  uint32
	Padding uint32
}

type LseekOut struct {
	Offset uint64
}

type CopyFileRangeIn struct {
	FhIn      uint64
	OffIn     uint64
	NodeidOut uint64
	FhOut     uint64
	OffOut    uint64
	Len       uint64
	Flags     uint64
}

type BmapIn struct {
	Block     uint64
	Blocksize uint32
	Padding   uint32
}

type BmapOut struct {
	Block uint64
}

type PollIn struct {
	Fh     uint64
	Kh     uint64
	Flags  uint32
	Events uint32
}

type PollOut struct {
	Revents uint32
	Padding uint32
}

////////////////////////////////////////////////////////////////////////
// File systems, xattrs, locks
////////////////////////////////////////////////////////////////////////

type Kstatfs struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	Namelen uint32
	Frsize  uint32
	Padding uint32
	Spare   [6]uint32
}

type StatfsOut struct {
	St Kstatfs
}

type SetxattrIn struct {
	Size  uint32
	Flags uint32
}

type GetxattrIn struct {
	Size    uint32
	Padding uint32
}

type GetxattrOut struct {
	Size    uint32
	Padding uint32
}

type FileLock struct {
	Start uint64
	End   uint64
	Type  uint32
	Pid   uint32
}

type LkIn struct {
	Fh      uint64
	Owner   uint64
	Lk      FileLock
	LkFlags uint32
	Padding uint32
}

type LkOut struct {
	Lk FileLock
}

type AccessIn struct {
	Mask    uint32
	Padding uint32
}

////////////////////////////////////////////////////////////////////////
// Session
////////////////////////////////////////////////////////////////////////

type InitIn struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

// The size of InitOut understood by kernels older than 7.23.
const CompatInitOutSize = 24

type InitOut struct {
	Major               uint32
	Minor               uint32
	MaxReadahead        uint32
	Flags               uint32
	MaxBackground       uint16
	CongestionThreshold uint16
	MaxWrite            uint32
	TimeGran            uint32
	MaxPages            uint16
	Padding             uint16
	Unused              [8]uint32
}

type InterruptIn struct {
	Unique uint64
}

////////////////////////////////////////////////////////////////////////
// Notifications
////////////////////////////////////////////////////////////////////////

type NotifyPollWakeupOut struct {
	Kh uint64
}

type NotifyInvalInodeOut struct {
	Ino uint64
	Off int64
	Len int64
}

type NotifyInvalEntryOut struct {
	Parent  uint64
	Namelen uint32
	Padding uint32
}

type NotifyRetrieveOut struct {
	NotifyUnique uint64
	Nodeid       uint64
	Offset       uint64
	Size         uint32
	Padding      uint32
}

type NotifyRetrieveIn struct {
	Dummy1 uint64
	Offset uint64
	Size   uint32
	Dummy2 uint32
	Dummy3 uint64
	Dummy4 uint64
}

////////////////////////////////////////////////////////////////////////
// Directory entries
////////////////////////////////////////////////////////////////////////

// A single entry in a READDIR reply, followed by Namelen bytes of name and
// zero padding up to an eight byte boundary.
type Dirent struct {
	Ino     uint64
	Off     uint64
	Namelen uint32
	Type    uint32
}

// The READDIRPLUS counterpart of Dirent.
type Direntplus struct {
	EntryOut EntryOut
	Dirent   Dirent
}

// The offset of the name within a Dirent record.
const DirentNameOffset = 24

// The offset of the name within a Direntplus record.
const DirentplusNameOffset = 128 + DirentNameOffset

// Round n up to the alignment required between directory entries.
func DirentAlign(n int) int {
	return (n + 7) &^ 7
}
