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

package lowfuse

import (
	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/lowfuse/lowlevel"
)

// Build the callback table for a session serving file systems of type T.
// Each operation in mask gets a callback that recovers the T from the
// session's userdata and calls the matching method; every other slot is left
// nil, so that the session answers those requests itself (usually with
// ENOSYS) without involving the file system.
//
// The session must be created with a value of type T as its userdata.
func NewOps[T fuseutil.FileSystem](mask OpFlag) *lowlevel.Ops {
	ops := &lowlevel.Ops{}

	if mask.Has(OpInit) {
		ops.Init = initOp[T]
	}
	if mask.Has(OpDestroy) {
		ops.Destroy = destroyOp[T]
	}
	if mask.Has(OpLookup) {
		ops.Lookup = lookupOp[T]
	}
	if mask.Has(OpForget) {
		ops.Forget = forgetOp[T]
	}
	if mask.Has(OpGetattr) {
		ops.Getattr = getattrOp[T]
	}
	if mask.Has(OpSetattr) {
		ops.Setattr = setattrOp[T]
	}
	if mask.Has(OpReadlink) {
		ops.Readlink = readlinkOp[T]
	}
	if mask.Has(OpMknod) {
		ops.Mknod = mknodOp[T]
	}
	if mask.Has(OpMkdir) {
		ops.Mkdir = mkdirOp[T]
	}
	if mask.Has(OpUnlink) {
		ops.Unlink = unlinkOp[T]
	}
	if mask.Has(OpRmdir) {
		ops.Rmdir = rmdirOp[T]
	}
	if mask.Has(OpSymlink) {
		ops.Symlink = symlinkOp[T]
	}
	if mask.Has(OpRename) {
		ops.Rename = renameOp[T]
	}
	if mask.Has(OpLink) {
		ops.Link = linkOp[T]
	}
	if mask.Has(OpOpen) {
		ops.Open = openOp[T]
	}
	if mask.Has(OpRead) {
		ops.Read = readOp[T]
	}
	if mask.Has(OpWrite) {
		ops.Write = writeOp[T]
	}
	if mask.Has(OpFlush) {
		ops.Flush = flushOp[T]
	}
	if mask.Has(OpRelease) {
		ops.Release = releaseOp[T]
	}
	if mask.Has(OpFsync) {
		ops.Fsync = fsyncOp[T]
	}
	if mask.Has(OpOpendir) {
		ops.Opendir = opendirOp[T]
	}
	if mask.Has(OpReaddir) {
		ops.Readdir = readdirOp[T]
	}
	if mask.Has(OpReleasedir) {
		ops.Releasedir = releasedirOp[T]
	}
	if mask.Has(OpFsyncdir) {
		ops.Fsyncdir = fsyncdirOp[T]
	}
	if mask.Has(OpStatfs) {
		ops.Statfs = statfsOp[T]
	}
	if mask.Has(OpSetxattr) {
		ops.Setxattr = setxattrOp[T]
	}
	if mask.Has(OpGetxattr) {
		ops.Getxattr = getxattrOp[T]
	}
	if mask.Has(OpListxattr) {
		ops.Listxattr = listxattrOp[T]
	}
	if mask.Has(OpRemovexattr) {
		ops.Removexattr = removexattrOp[T]
	}
	if mask.Has(OpAccess) {
		ops.Access = accessOp[T]
	}
	if mask.Has(OpCreate) {
		ops.Create = createOp[T]
	}
	if mask.Has(OpGetlk) {
		ops.Getlk = getlkOp[T]
	}
	if mask.Has(OpSetlk) {
		ops.Setlk = setlkOp[T]
	}
	if mask.Has(OpBmap) {
		ops.Bmap = bmapOp[T]
	}
	if mask.Has(OpPoll) {
		ops.Poll = pollOp[T]
	}
	if mask.Has(OpWriteBuf) {
		ops.WriteBuf = writeBufOp[T]
	}
	if mask.Has(OpRetrieveReply) {
		ops.RetrieveReply = retrieveReplyOp[T]
	}
	if mask.Has(OpForgetMulti) {
		ops.ForgetMulti = forgetMultiOp[T]
	}
	if mask.Has(OpFlock) {
		ops.Flock = flockOp[T]
	}
	if mask.Has(OpFallocate) {
		ops.Fallocate = fallocateOp[T]
	}
	if mask.Has(OpReaddirplus) {
		ops.Readdirplus = readdirplusOp[T]
	}
	if mask.Has(OpCopyFileRange) {
		ops.CopyFileRange = copyFileRangeOp[T]
	}
	if mask.Has(OpLseek) {
		ops.Lseek = lseekOp[T]
	}

	return ops
}

// Return the set of operations with a callback in ops.
func EnabledOps(ops *lowlevel.Ops) (mask OpFlag) {
	slots := []struct {
		flag OpFlag
		set  bool
	}{
		{OpInit, ops.Init != nil},
		{OpDestroy, ops.Destroy != nil},
		{OpLookup, ops.Lookup != nil},
		{OpForget, ops.Forget != nil},
		{OpGetattr, ops.Getattr != nil},
		{OpSetattr, ops.Setattr != nil},
		{OpReadlink, ops.Readlink != nil},
		{OpMknod, ops.Mknod != nil},
		{OpMkdir, ops.Mkdir != nil},
		{OpUnlink, ops.Unlink != nil},
		{OpRmdir, ops.Rmdir != nil},
		{OpSymlink, ops.Symlink != nil},
		{OpRename, ops.Rename != nil},
		{OpLink, ops.Link != nil},
		{OpOpen, ops.Open != nil},
		{OpRead, ops.Read != nil},
		{OpWrite, ops.Write != nil},
		{OpFlush, ops.Flush != nil},
		{OpRelease, ops.Release != nil},
		{OpFsync, ops.Fsync != nil},
		{OpOpendir, ops.Opendir != nil},
		{OpReaddir, ops.Readdir != nil},
		{OpReleasedir, ops.Releasedir != nil},
		{OpFsyncdir, ops.Fsyncdir != nil},
		{OpStatfs, ops.Statfs != nil},
		{OpSetxattr, ops.Setxattr != nil},
		{OpGetxattr, ops.Getxattr != nil},
		{OpListxattr, ops.Listxattr != nil},
		{OpRemovexattr, ops.Removexattr != nil},
		{OpAccess, ops.Access != nil},
		{OpCreate, ops.Create != nil},
		{OpGetlk, ops.Getlk != nil},
		{OpSetlk, ops.Setlk != nil},
		{OpBmap, ops.Bmap != nil},
		{OpPoll, ops.Poll != nil},
		{OpWriteBuf, ops.WriteBuf != nil},
		{OpRetrieveReply, ops.RetrieveReply != nil},
		{OpForgetMulti, ops.ForgetMulti != nil},
		{OpFlock, ops.Flock != nil},
		{OpFallocate, ops.Fallocate != nil},
		{OpReaddirplus, ops.Readdirplus != nil},
		{OpCopyFileRange, ops.CopyFileRange != nil},
		{OpLseek, ops.Lseek != nil},
	}

	for _, s := range slots {
		if s.set {
			mask |= s.flag
		}
	}

	return
}
