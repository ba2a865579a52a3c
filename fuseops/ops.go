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

// Package fuseops contains the portable records exchanged between a
// fuseutil.FileSystem and the lowfuse dispatch layer, along with the codec
// that converts them to and from the native structures of package lowlevel.
//
// File systems never see native types: every argument and result of a
// fuseutil.FileSystem method is built from the types in this package and
// plain integers.
package fuseops

import (
	"fmt"
	"time"
)

////////////////////////////////////////////////////////////////////////
// Identifiers
////////////////////////////////////////////////////////////////////////

// A 64-bit number used to uniquely identify a file or directory in the file
// system. File systems may mint inode IDs with any value except for
// RootInodeID.
//
// This corresponds to struct inode::i_no in the VFS layer.
// (Cf. http://goo.gl/tvYyQt)
type InodeID uint64

// A distinguished inode ID that identifies the root of the file system, e.g.
// in an OpenDir call or as the parent in a LookUp call. Unlike all other
// inode IDs, which are minted by the file system, the FUSE VFS layer may send
// a request for this ID without the file system ever having referenced it in
// a previous response.
const RootInodeID = 1

// An opaque 64-bit number used to identify a particular open handle to a file
// or directory.
//
// This corresponds to fuse_file_info::fh.
type HandleID uint64

////////////////////////////////////////////////////////////////////////
// Attributes
////////////////////////////////////////////////////////////////////////

// A point in time as seconds and nanoseconds since the epoch.
type Timespec struct {
	Sec  int64
	Nsec uint32
}

// TimespecOf converts a time.Time. The zero time.Time maps to the epoch.
func TimespecOf(t time.Time) Timespec {
	if t.IsZero() {
		return Timespec{}
	}

	return Timespec{
		Sec:  t.Unix(),
		Nsec: uint32(t.Nanosecond()),
	}
}

// Time returns ts as a time.Time.
func (ts Timespec) Time() time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

// Attributes for a file or directory inode. Corresponds to struct inode (cf.
// http://goo.gl/tvYyQt).
type Attr struct {
	Dev    uint64
	Ino    uint64
	Size   uint64
	Blocks uint64

	// Time information. See `man 2 stat` for full details.
	Atime Timespec // Time of last access
	Mtime Timespec // Time of last modification
	Ctime Timespec // Time of last modification to inode

	// The file type and permission bits, as in struct stat's st_mode. The
	// type bits must agree with the FileType under which the inode is listed.
	Mode uint32

	// The number of incoming hard links to this inode.
	Nlink uint32

	// Ownership information
	Uid uint32
	Gid uint32

	// The preferred block size for I/O.
	Blksize uint32

	// The device number, for block and character devices.
	Rdev uint64
}

// FileType returns the type encoded in a.Mode. ok is false if the type bits
// don't name a known type.
func (a *Attr) FileType() (t FileType, ok bool) {
	return FileTypeFromMode(a.Mode)
}

// The information the kernel caches about a name it has looked up.
type EntryParam struct {
	// The ID of the child inode. The file system must ensure that the returned
	// inode ID remains valid until a later Forget call.
	Ino InodeID

	// A generation number for this incarnation of the inode with the given ID.
	// See comments on fuse_entry_param in fuse_lowlevel.h.
	Generation uint64

	// Current attributes for the child inode.
	//
	// When creating a new inode, the file system is responsible for
	// initializing and recording (where supported) attributes like time
	// information, ownership information, etc.
	Attr Attr

	// How long the kernel may cache Attr. Zero disables caching; negative
	// values are treated as zero.
	AttrTimeout time.Duration

	// How long the kernel may cache the mapping from name to Ino. Zero
	// disables caching.
	//
	// The kernel caches the mapping until the timeout passes or a
	// notification from the file system drops it, so file systems whose
	// names may change behind the kernel's back should use short timeouts.
	EntryTimeout time.Duration
}

// A single entry in a directory listing.
type DirEntry struct {
	// The name of the entry. No particular encoding is assumed.
	Name []byte

	// The type of the child.
	Type FileType

	// The ID of the child inode.
	Ino InodeID
}

// A POSIX byte-range lock, as in struct flock.
type Lock struct {
	Type   int16 // F_RDLCK, F_WRLCK or F_UNLCK
	Whence int16

	Start int64

	// Zero means "until the end of the file".
	Len int64

	Pid int32
}

// File system statistics, as in struct statvfs.
type StatFS struct {
	// The size of blocks reported by statfs(2), and the fragment size, which
	// is the unit of Blocks and friends.
	Bsize  uint64
	Frsize uint64

	// Total, free and available-to-unprivileged-users counts of fragments.
	Blocks uint64
	Bfree  uint64
	Bavail uint64

	// Total, free and available inode counts.
	Files  uint64
	Ffree  uint64
	Favail uint64

	Fsid    uint64
	Flag    uint64
	Namemax uint64
}

////////////////////////////////////////////////////////////////////////
// Requests
////////////////////////////////////////////////////////////////////////

// A common header that is passed to all methods of fuseutil.FileSystem,
// identifying the process on whose behalf the request was made.
type OpHeader struct {
	Uid uint32
	Gid uint32
	Pid uint32

	// Only set for MkNod, MkDir and Create.
	Umask uint32
}

func (h OpHeader) String() string {
	return fmt.Sprintf("uid=%d gid=%d pid=%d", h.Uid, h.Gid, h.Pid)
}

// Per-open state, as in struct fuse_file_info.
type FileInfo struct {
	// Flags given to open(2), for Open, OpenDir and Create.
	Flags int32

	// The handle chosen by the file system when opening the file. It is
	// handed back in every later request on the same open file.
	Handle HandleID

	// Identifies the owner of POSIX locks held through this handle.
	LockOwner uint64

	// Events requested by Poll.
	PollEvents uint32

	// Set by Open to bypass the page cache.
	DirectIO bool

	// Set by Open to keep data already cached for the inode.
	KeepCache bool

	// Set by Open if the file does not support seeking.
	NonSeekable bool

	// Set by OpenDir to let the kernel cache the listing.
	CacheReaddir bool

	// Set on writes that come from the page cache.
	Writepage bool

	// Set on Release when the handle should be flushed.
	Flush bool

	// Set on Release when flock locks held through the handle should be
	// released.
	FlockRelease bool
}

// One entry of a batched forget.
type ForgetData struct {
	Ino     InodeID
	Nlookup uint64
}

// The attributes to change in a SetAttr call.
type SetAttrMask uint32

const (
	SetAttrMode     SetAttrMask = 1 << 0
	SetAttrUid      SetAttrMask = 1 << 1
	SetAttrGid      SetAttrMask = 1 << 2
	SetAttrSize     SetAttrMask = 1 << 3
	SetAttrAtime    SetAttrMask = 1 << 4
	SetAttrMtime    SetAttrMask = 1 << 5
	SetAttrAtimeNow SetAttrMask = 1 << 7
	SetAttrMtimeNow SetAttrMask = 1 << 8
	SetAttrCtime    SetAttrMask = 1 << 10
)

// Has reports whether all bits of other are set in m.
func (m SetAttrMask) Has(other SetAttrMask) bool {
	return m&other == other
}

// The connection parameters negotiated with the kernel, handed to Init. Init
// may lower MaxWrite and MaxReadahead, and clear bits of Want.
type ConnInfo struct {
	ProtoMajor uint32
	ProtoMinor uint32

	MaxWrite     uint32
	MaxRead      uint32
	MaxReadahead uint32

	// Capability bits offered by the kernel, and those to be used. See the
	// Cap* constants in package lowlevel.
	Capable uint32
	Want    uint32

	MaxBackground       uint16
	CongestionThreshold uint16
	TimeGran            uint32
}

// A PollHandle lets a file system wake up a pending poll(2) once a handle
// becomes ready.
type PollHandle interface {
	Notify() error
}
