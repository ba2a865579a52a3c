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

package fuseutil

import (
	"context"
	"time"

	"github.com/jacobsa/lowfuse/fuseops"
)

// An interface with a method for each operation the kernel may send. Pass a
// type implementing it to lowfuse.NewOps along with a mask naming the
// methods to expose; methods outside the mask are never called and the
// kernel is told they are not supported.
//
// Every method receives the identity of the calling process in hdr.
// Methods report failure by returning an error; a syscall.Errno is passed
// to the kernel as is, and anything else becomes EIO.
//
// Byte slices passed in are only valid until the method returns. Names and
// xattr values carry no particular encoding.
//
// See NotImplementedFileSystem for a convenient way to embed default
// implementations for methods you don't care about.
type FileSystem interface {
	// Called once before any other method, with the connection parameters
	// offered by the kernel. Changes to conn are sent back in the INIT reply.
	// An error is logged and otherwise ignored.
	Init(ctx context.Context, conn *fuseops.ConnInfo) error

	// Called once when the file system is unmounted.
	Destroy(ctx context.Context)

	// Look up a child by name within a parent directory. Each successful
	// lookup, and each entry created by MkNod, MkDir, Symlink, Link or
	// Create, increments the kernel's reference count on the inode until a
	// matching Forget.
	Lookup(ctx context.Context, hdr fuseops.OpHeader, parent fuseops.InodeID, name []byte) (fuseops.EntryParam, error)

	// Drop nlookup references to an inode. Once the count reaches zero the
	// kernel won't mention the inode again until it is looked up afresh.
	Forget(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, nlookup uint64)

	// Return the current attributes for an inode and how long the kernel may
	// cache them. fi is nil unless the call concerns an open handle.
	GetAttr(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo) (fuseops.Attr, time.Duration, error)

	// Change the attributes of an inode named by toSet, taking their new
	// values from attr, and return the resulting attributes.
	SetAttr(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, attr *fuseops.Attr, toSet fuseops.SetAttrMask, fi *fuseops.FileInfo) (fuseops.Attr, time.Duration, error)

	// Return the target of a symlink.
	ReadLink(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID) ([]byte, error)

	// Create inodes. The kernel has already checked that the name doesn't
	// exist, but file systems that can change behind its back should check
	// again and return EEXIST.
	MkNod(ctx context.Context, hdr fuseops.OpHeader, parent fuseops.InodeID, name []byte, mode uint32, rdev uint64) (fuseops.EntryParam, error)
	MkDir(ctx context.Context, hdr fuseops.OpHeader, parent fuseops.InodeID, name []byte, mode uint32) (fuseops.EntryParam, error)

	// Remove names. RmDir must fail with ENOTEMPTY for directories with
	// children.
	Unlink(ctx context.Context, hdr fuseops.OpHeader, parent fuseops.InodeID, name []byte) error
	RmDir(ctx context.Context, hdr fuseops.OpHeader, parent fuseops.InodeID, name []byte) error

	// Create a symlink named name in parent, pointing at link.
	Symlink(ctx context.Context, hdr fuseops.OpHeader, link []byte, parent fuseops.InodeID, name []byte) (fuseops.EntryParam, error)

	// Move a name, replacing any existing target. flags may hold
	// RENAME_NOREPLACE or RENAME_EXCHANGE.
	Rename(ctx context.Context, hdr fuseops.OpHeader, parent fuseops.InodeID, name []byte, newParent fuseops.InodeID, newName []byte, flags uint32) error

	// Create a hard link to ino.
	Link(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, newParent fuseops.InodeID, newName []byte) (fuseops.EntryParam, error)

	// Open a file. fi carries the open flags; the result carries the handle
	// and caching hints for the kernel.
	Open(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi fuseops.FileInfo) (fuseops.FileInfo, error)

	// Read up to size bytes at off. A short read means end of file, unless
	// the handle was opened with DirectIO.
	Read(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, size int, off int64, fi *fuseops.FileInfo) ([]byte, error)

	// Write data at off, returning the number of bytes written.
	Write(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, data []byte, off int64, fi *fuseops.FileInfo) (int, error)

	// Called on each close(2) of a file descriptor for the handle. It may be
	// called several times per handle, or not at all.
	Flush(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo) error

	// Called once per handle after its last descriptor is closed. The error
	// is not reported to anyone.
	Release(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo) error

	// Flush data to stable storage, excluding metadata if datasync is set.
	Fsync(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, datasync bool, fi *fuseops.FileInfo) error

	// Open a directory.
	OpenDir(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi fuseops.FileInfo) (fuseops.FileInfo, error)

	// Return the complete listing of a directory, including "." and ".." if
	// they are to be shown. The listing is paged out to the kernel
	// according to size and off, which are informational.
	//
	// The listing must be stable across calls for a given handle, or entries
	// may be skipped or repeated.
	ReadDir(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, size int, off int64, fi *fuseops.FileInfo) ([]fuseops.DirEntry, error)

	// Release a directory handle.
	ReleaseDir(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo) error

	// Sync a directory.
	FsyncDir(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, datasync bool, fi *fuseops.FileInfo) error

	// Return statistics for the file system containing ino.
	StatFS(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID) (fuseops.StatFS, error)

	// Extended attributes. With size zero, GetXattr and ListXattr return a
	// value of the required length whose contents are ignored. Otherwise a
	// value longer than size must fail with ERANGE.
	SetXattr(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, name []byte, value []byte, flags int) error
	GetXattr(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, name []byte, size int) ([]byte, error)
	ListXattr(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, size int) ([]byte, error)
	RemoveXattr(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, name []byte) error

	// Check access permissions as access(2) does. Not called when the mount
	// uses default_permissions.
	Access(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, mask int) error

	// Create and open a file. fi carries the open flags in and the handle
	// out.
	Create(ctx context.Context, hdr fuseops.OpHeader, parent fuseops.InodeID, name []byte, mode uint32, fi *fuseops.FileInfo) (fuseops.EntryParam, error)

	// POSIX record locks. GetLk returns the first lock conflicting with lock,
	// or lock with Type F_UNLCK if there is none.
	GetLk(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo, lock fuseops.Lock) (fuseops.Lock, error)
	SetLk(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo, lock fuseops.Lock, sleep bool) error

	// Map a block index within the file to a device block index. Only
	// meaningful for block-device backed file systems.
	Bmap(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, blocksize int, idx uint64) (uint64, error)

	// Return the ready events for a handle. If ph is non-nil the kernel
	// wants a wakeup through it once the handle becomes ready.
	Poll(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo, ph fuseops.PollHandle) (uint32, error)

	// Like Write, with the data split over several buffers.
	WriteBuf(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, bufs [][]byte, off int64, fi *fuseops.FileInfo) (int, error)

	// Receive data asked for with a retrieve notification.
	RetrieveReply(ctx context.Context, hdr fuseops.OpHeader, cookie any, ino fuseops.InodeID, off int64, bufs [][]byte)

	// Like Forget, for several inodes at once.
	ForgetMulti(ctx context.Context, hdr fuseops.OpHeader, forgets []fuseops.ForgetData)

	// BSD locks. op is LOCK_SH, LOCK_EX or LOCK_UN, possibly with LOCK_NB.
	Flock(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, fi *fuseops.FileInfo, op int) error

	// Allocate or punch space as fallocate(2) does.
	Fallocate(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, mode int, offset int64, length int64, fi *fuseops.FileInfo) error

	// Like ReadDir, but the kernel also caches an entry for each name.
	// Entries other than "." and ".." with a non-zero inode count as a
	// lookup of that inode, but only those within the page returned for off
	// and size; see PageEntries.
	ReadDirPlus(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, size int, off int64, fi *fuseops.FileInfo) ([]fuseops.DirEntry, error)

	// Copy length bytes between two open files, returning the number of
	// bytes copied.
	CopyFileRange(ctx context.Context, hdr fuseops.OpHeader, inoIn fuseops.InodeID, offIn int64, fiIn *fuseops.FileInfo, inoOut fuseops.InodeID, offOut int64, fiOut *fuseops.FileInfo, length int, flags int) (int, error)

	// Find the next data or hole at or after off, for SEEK_DATA and
	// SEEK_HOLE.
	Lseek(ctx context.Context, hdr fuseops.OpHeader, ino fuseops.InodeID, off int64, whence int, fi *fuseops.FileInfo) (int64, error)
}
