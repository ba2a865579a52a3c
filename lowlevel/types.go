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

package lowlevel

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Stat is the native struct stat.
type Stat = unix.Stat_t

// Flock is the native struct flock.
type Flock = unix.Flock_t

// Statvfs is the native struct statvfs, in glibc's layout for 64-bit Linux.
type Statvfs struct {
	Bsize   uint64
	Frsize  uint64
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Favail  uint64
	Fsid    uint64
	Flag    uint64
	Namemax uint64
	Spare   [6]int32
}

// Native is the set of fixed-layout structures that may be viewed as bytes.
type Native interface {
	Stat | Statvfs | Flock
}

// Bytes returns the memory of v as a byte slice. The slice aliases v.
func Bytes[T Native](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// FromBytes copies a native structure out of b, which must be exactly the
// size of T.
func FromBytes[T Native](b []byte) (v T, err error) {
	if uintptr(len(b)) != unsafe.Sizeof(v) {
		err = fmt.Errorf("have %d bytes, want %d", len(b), unsafe.Sizeof(v))
		return
	}

	copy(Bytes(&v), b)
	return
}

// Ctx identifies the process on whose behalf a request was made.
type Ctx struct {
	Uid uint32
	Gid uint32
	Pid uint32

	// Only set for mknod, mkdir and create.
	Umask uint32
}

// EntryParam is the answer to a request that resolves or creates a name.
type EntryParam struct {
	Ino        uint64
	Generation uint64
	Attr       Stat

	// Validity of the attributes and of the name, in seconds.
	AttrTimeout  float64
	EntryTimeout float64
}

// FileInfo carries per-open state between the kernel and the file system.
type FileInfo struct {
	// Open flags, as given to open(2). Only valid for open, opendir and
	// create.
	Flags int32

	// In write requests: set if the write comes from the page cache.
	Writepage bool

	// Set by open to bypass the page cache.
	DirectIO bool

	// Set by open to keep previously cached data.
	KeepCache bool

	// In flush and release requests: set if the release should flush.
	Flush bool

	// Set by open if the file is not seekable.
	NonSeekable bool

	// In release requests: set if flock locks should be released.
	FlockRelease bool

	// Set by opendir to let the kernel cache directory contents.
	CacheReaddir bool

	// The handle chosen by the file system in open, opendir or create.
	Fh uint64

	LockOwner uint64

	// In poll requests: the requested events.
	PollEvents uint32
}

// ForgetData is one entry of a batched forget.
type ForgetData struct {
	Ino     uint64
	Nlookup uint64
}

// Bufvec is a vector of data buffers.
type Bufvec struct {
	Bufs [][]byte
}

// Size returns the total number of bytes in the vector.
func (bv *Bufvec) Size() (n int) {
	for _, b := range bv.Bufs {
		n += len(b)
	}

	return
}

// Capability bits for ConnInfo.Capable and ConnInfo.Want.
const (
	CapAsyncRead       = 1 << 0
	CapPosixLocks      = 1 << 1
	CapAtomicTrunc     = 1 << 3
	CapExportSupport   = 1 << 4
	CapBigWrites       = 1 << 5
	CapDontMask        = 1 << 6
	CapFlockLocks      = 1 << 10
	CapAutoInvalData   = 1 << 12
	CapReaddirplus     = 1 << 13
	CapReaddirplusAuto = 1 << 14
	CapAsyncDIO        = 1 << 15
	CapWritebackCache  = 1 << 16
	CapParallelDirOps  = 1 << 18
	CapMaxPages        = 1 << 22
	CapCacheSymlinks   = 1 << 23
)

// ConnInfo describes the connection negotiated with the kernel. Init
// callbacks may lower MaxWrite or MaxReadahead and change Want.
type ConnInfo struct {
	ProtoMajor uint32
	ProtoMinor uint32

	MaxWrite     uint32
	MaxRead      uint32
	MaxReadahead uint32

	// Capabilities supported by the kernel, and those requested.
	Capable uint32
	Want    uint32

	MaxBackground       uint16
	CongestionThreshold uint16

	// Timestamp granularity in nanoseconds.
	TimeGran uint32
}
