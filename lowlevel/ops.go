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

// Ops is the table of callbacks a Session invokes. Every field may be nil; a
// nil callback is never invoked and the session answers for it instead,
// with ENOSYS unless otherwise noted.
//
// Except for Init and Destroy, each callback is handed a Req and must
// answer it exactly once, possibly after the callback has returned. Inode
// numbers are the kernel's node IDs; the root is 1.
type Ops struct {
	// Called once the connection is negotiated, before any other request.
	// The callback may adjust conn.Want and conn.MaxWrite.
	Init func(userdata any, conn *ConnInfo)

	// Called when the session is torn down.
	Destroy func(userdata any)

	// Look up a directory entry by name. Answer with ReplyEntry.
	Lookup func(req Req, parent uint64, name []byte)

	// Drop nlookup references to an inode. Answer with ReplyNone.
	// The session drops forgets on the floor if this is nil.
	Forget func(req Req, ino uint64, nlookup uint64)

	// Answer with ReplyAttr. fi is nil unless the kernel names a handle.
	Getattr func(req Req, ino uint64, fi *FileInfo)

	// Change the attributes named by toSet, a mask of Setattr* bits, to the
	// values in attr. Answer with ReplyAttr.
	Setattr func(req Req, ino uint64, attr *Stat, toSet int, fi *FileInfo)

	// Answer with ReplyReadlink.
	Readlink func(req Req, ino uint64)

	// Answer with ReplyEntry.
	Mknod func(req Req, parent uint64, name []byte, mode uint32, rdev uint64)
	Mkdir func(req Req, parent uint64, name []byte, mode uint32)

	// Answer with ReplyErr.
	Unlink func(req Req, parent uint64, name []byte)
	Rmdir  func(req Req, parent uint64, name []byte)

	// Answer with ReplyEntry.
	Symlink func(req Req, link []byte, parent uint64, name []byte)

	// flags carries RENAME_NOREPLACE and friends. Answer with ReplyErr.
	Rename func(req Req, parent uint64, name []byte, newparent uint64, newname []byte, flags uint32)

	// Answer with ReplyEntry.
	Link func(req Req, ino uint64, newparent uint64, newname []byte)

	// Answer with ReplyOpen. When nil, every open succeeds with handle zero.
	Open func(req Req, ino uint64, fi *FileInfo)

	// Answer with ReplyBuf.
	Read func(req Req, ino uint64, size int, off int64, fi *FileInfo)

	// Answer with ReplyWrite. Ignored when WriteBuf is set.
	Write func(req Req, ino uint64, buf []byte, off int64, fi *FileInfo)

	// Answer with ReplyErr.
	Flush func(req Req, ino uint64, fi *FileInfo)

	// Answer with ReplyErr. The reply value is ignored by the kernel.
	Release func(req Req, ino uint64, fi *FileInfo)

	// datasync is non-zero if only user data should be flushed. Answer
	// with ReplyErr.
	Fsync func(req Req, ino uint64, datasync int, fi *FileInfo)

	// Answer with ReplyOpen. When nil, every opendir succeeds with handle
	// zero.
	Opendir func(req Req, ino uint64, fi *FileInfo)

	// Answer with ReplyBuf, filled using AddDirentry.
	Readdir func(req Req, ino uint64, size int, off int64, fi *FileInfo)

	// Answer with ReplyErr.
	Releasedir func(req Req, ino uint64, fi *FileInfo)
	Fsyncdir   func(req Req, ino uint64, datasync int, fi *FileInfo)

	// Answer with ReplyStatfs.
	Statfs func(req Req, ino uint64)

	// Answer with ReplyErr.
	Setxattr func(req Req, ino uint64, name []byte, value []byte, flags int)

	// With size zero, answer with ReplyXattr giving the size required.
	// Otherwise answer with ReplyBuf, or ReplyErr(ERANGE) if the value
	// doesn't fit.
	Getxattr  func(req Req, ino uint64, name []byte, size int)
	Listxattr func(req Req, ino uint64, size int)

	// Answer with ReplyErr.
	Removexattr func(req Req, ino uint64, name []byte)
	Access      func(req Req, ino uint64, mask int)

	// Answer with ReplyCreate.
	Create func(req Req, parent uint64, name []byte, mode uint32, fi *FileInfo)

	// Answer with ReplyLock.
	Getlk func(req Req, ino uint64, fi *FileInfo, lock *Flock)

	// Answer with ReplyErr.
	Setlk func(req Req, ino uint64, fi *FileInfo, lock *Flock, sleep bool)

	// Answer with ReplyBmap.
	Bmap func(req Req, ino uint64, blocksize int, idx uint64)

	// ph is nil unless the kernel wants a wakeup when the handle becomes
	// ready. Answer with ReplyPoll.
	Poll func(req Req, ino uint64, fi *FileInfo, ph *PollHandle)

	// Answer with ReplyWrite.
	WriteBuf func(req Req, ino uint64, bufv *Bufvec, off int64, fi *FileInfo)

	// Receives data requested by Session.NotifyRetrieve. Answer with
	// ReplyNone.
	RetrieveReply func(req Req, cookie any, ino uint64, offset int64, bufv *Bufvec)

	// Answer with ReplyNone. When nil, Forget is called for each entry.
	ForgetMulti func(req Req, forgets []ForgetData)

	// op is LOCK_SH, LOCK_EX or LOCK_UN, possibly with LOCK_NB. Answer
	// with ReplyErr.
	Flock func(req Req, ino uint64, fi *FileInfo, op int)

	// Answer with ReplyErr.
	Fallocate func(req Req, ino uint64, mode int, offset int64, length int64, fi *FileInfo)

	// Answer with ReplyBuf, filled using AddDirentryPlus.
	Readdirplus func(req Req, ino uint64, size int, off int64, fi *FileInfo)

	// Answer with ReplyWrite.
	CopyFileRange func(req Req, inoIn uint64, offIn int64, fiIn *FileInfo, inoOut uint64, offOut int64, fiOut *FileInfo, length int, flags int)

	// Answer with ReplyLseek.
	Lseek func(req Req, ino uint64, off int64, whence int, fi *FileInfo)
}
