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
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/lowfuse/lowlevel"
	"github.com/jacobsa/reqtrace"
)

// The callbacks installed by NewOps. Each decodes the native arguments,
// calls the FileSystem method under a trace span, and answers the request
// exactly once: with the operation's reply on success, and with an errno
// otherwise.

// Recover the file system from the userdata of a session set up by NewOps.
func fileSystemOf[T fuseutil.FileSystem](userdata any) T {
	fs, ok := userdata.(T)
	if !ok {
		panic(fmt.Sprintf("session userdata is %T, want %T", userdata, fs))
	}

	return fs
}

// Call f with the file system behind req. A panic in f is turned into an
// error.
func invoke[T fuseutil.FileSystem](
	req lowlevel.Req,
	desc string,
	f func(ctx context.Context, fs T, hdr fuseops.OpHeader) error) (err error) {
	ctx, report := reqtrace.StartSpan(req.Context(), desc)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", desc, r)
		}

		report(err)
	}()

	err = f(ctx, fileSystemOf[T](req.Userdata()), fuseops.OpHeaderFromNative(req.Ctx()))
	return
}

// Like invoke, for the session-level callbacks that have no request.
func invokeSession[T fuseutil.FileSystem](
	userdata any,
	desc string,
	f func(ctx context.Context, fs T) error) (err error) {
	ctx, report := reqtrace.StartSpan(context.Background(), desc)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", desc, r)
		}

		report(err)
	}()

	err = f(ctx, fileSystemOf[T](userdata))
	return
}

// Return the errno to send for err, and whether err carried one. Errors
// that don't wrap a non-zero syscall.Errno become EIO.
func errnoOf(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return errno, true
	}

	return syscall.EIO, false
}

// Answer req with the errno for err, logging errors that carry none.
func replyErr(req lowlevel.Req, err error) {
	errno, ok := errnoOf(err)
	if !ok {
		req.Errorf("%v", err)
	}

	req.ReplyErr(errno)
}

// Answer req for a method whose success carries no data.
func replyStatus(req lowlevel.Req, err error) {
	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyErr(0)
}

func replyEntry(req lowlevel.Req, e *fuseops.EntryParam, err error) {
	if err != nil {
		replyErr(req, err)
		return
	}

	out := fuseops.EntryToNative(e)
	req.ReplyEntry(&out)
}

func replyAttr(
	req lowlevel.Req,
	attr *fuseops.Attr,
	timeout float64,
	err error) {
	if err != nil {
		replyErr(req, err)
		return
	}

	st := fuseops.AttrToNative(attr)
	req.ReplyAttr(&st, timeout)
}

// Answer an xattr request: with the length alone when the caller asked for
// it, and with ERANGE when the value doesn't fit.
func replyXattr(req lowlevel.Req, size int, value []byte, err error) {
	switch {
	case err != nil:
		replyErr(req, err)
	case size == 0:
		req.ReplyXattr(len(value))
	case len(value) > size:
		req.ReplyErr(syscall.ERANGE)
	default:
		req.ReplyBuf(value)
	}
}

func pollHandle(ph *lowlevel.PollHandle) fuseops.PollHandle {
	if ph == nil {
		return nil
	}

	return ph
}

////////////////////////////////////////////////////////////////////////
// Session
////////////////////////////////////////////////////////////////////////

func initOp[T fuseutil.FileSystem](userdata any, conn *lowlevel.ConnInfo) {
	c := fuseops.ConnInfoFromNative(conn)
	err := invokeSession(userdata, "Init", func(ctx context.Context, fs T) error {
		return fs.Init(ctx, &c)
	})

	if err != nil {
		getLogger().Printf("Init: %v", err)
		return
	}

	fuseops.ConnInfoToNative(&c, conn)
}

func destroyOp[T fuseutil.FileSystem](userdata any) {
	err := invokeSession(userdata, "Destroy", func(ctx context.Context, fs T) error {
		fs.Destroy(ctx)
		return nil
	})

	if err != nil {
		getLogger().Printf("Destroy: %v", err)
	}
}

////////////////////////////////////////////////////////////////////////
// Inodes
////////////////////////////////////////////////////////////////////////

func lookupOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	parent uint64,
	name []byte) {
	var e fuseops.EntryParam
	err := invoke(req, "Lookup", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		e, err = fs.Lookup(ctx, hdr, fuseops.InodeID(parent), name)
		return
	})

	replyEntry(req, &e, err)
}

func forgetOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	nlookup uint64) {
	err := invoke(req, "Forget", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		fs.Forget(ctx, hdr, fuseops.InodeID(ino), nlookup)
		return nil
	})

	if err != nil {
		req.Errorf("%v", err)
	}

	req.ReplyNone()
}

func forgetMultiOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	forgets []lowlevel.ForgetData) {
	err := invoke(req, "ForgetMulti", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		fs.ForgetMulti(ctx, hdr, fuseops.ForgetsFromNative(forgets))
		return nil
	})

	if err != nil {
		req.Errorf("%v", err)
	}

	req.ReplyNone()
}

func getattrOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo) {
	var attr fuseops.Attr
	var timeout float64
	err := invoke(req, "GetAttr", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		a, d, err := fs.GetAttr(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi))
		attr, timeout = a, fuseops.TimeoutToNative(d)
		return err
	})

	replyAttr(req, &attr, timeout, err)
}

func setattrOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	in *lowlevel.Stat,
	toSet int,
	fi *lowlevel.FileInfo) {
	var attr fuseops.Attr
	var timeout float64
	err := invoke(req, "SetAttr", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		want := fuseops.AttrFromNative(in)
		a, d, err := fs.SetAttr(
			ctx,
			hdr,
			fuseops.InodeID(ino),
			&want,
			fuseops.SetAttrMask(toSet),
			fuseops.FileInfoFromNative(fi))

		attr, timeout = a, fuseops.TimeoutToNative(d)
		return err
	})

	replyAttr(req, &attr, timeout, err)
}

func readlinkOp[T fuseutil.FileSystem](req lowlevel.Req, ino uint64) {
	var link []byte
	err := invoke(req, "ReadLink", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		link, err = fs.ReadLink(ctx, hdr, fuseops.InodeID(ino))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyReadlink(link)
}

////////////////////////////////////////////////////////////////////////
// Names
////////////////////////////////////////////////////////////////////////

func mknodOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	parent uint64,
	name []byte,
	mode uint32,
	rdev uint64) {
	var e fuseops.EntryParam
	err := invoke(req, "MkNod", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		e, err = fs.MkNod(ctx, hdr, fuseops.InodeID(parent), name, mode, rdev)
		return
	})

	replyEntry(req, &e, err)
}

func mkdirOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	parent uint64,
	name []byte,
	mode uint32) {
	var e fuseops.EntryParam
	err := invoke(req, "MkDir", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		e, err = fs.MkDir(ctx, hdr, fuseops.InodeID(parent), name, mode)
		return
	})

	replyEntry(req, &e, err)
}

func unlinkOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	parent uint64,
	name []byte) {
	err := invoke(req, "Unlink", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Unlink(ctx, hdr, fuseops.InodeID(parent), name)
	})

	replyStatus(req, err)
}

func rmdirOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	parent uint64,
	name []byte) {
	err := invoke(req, "RmDir", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.RmDir(ctx, hdr, fuseops.InodeID(parent), name)
	})

	replyStatus(req, err)
}

func symlinkOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	link []byte,
	parent uint64,
	name []byte) {
	var e fuseops.EntryParam
	err := invoke(req, "Symlink", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		e, err = fs.Symlink(ctx, hdr, link, fuseops.InodeID(parent), name)
		return
	})

	replyEntry(req, &e, err)
}

func renameOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	parent uint64,
	name []byte,
	newParent uint64,
	newName []byte,
	flags uint32) {
	err := invoke(req, "Rename", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Rename(
			ctx,
			hdr,
			fuseops.InodeID(parent),
			name,
			fuseops.InodeID(newParent),
			newName,
			flags)
	})

	replyStatus(req, err)
}

func linkOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	newParent uint64,
	newName []byte) {
	var e fuseops.EntryParam
	err := invoke(req, "Link", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		e, err = fs.Link(ctx, hdr, fuseops.InodeID(ino), fuseops.InodeID(newParent), newName)
		return
	})

	replyEntry(req, &e, err)
}

func createOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	parent uint64,
	name []byte,
	mode uint32,
	fi *lowlevel.FileInfo) {
	fi = ensureFileInfo(fi)
	var e fuseops.EntryParam
	info := fuseops.FileInfoFromNative(fi)
	err := invoke(req, "Create", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		e, err = fs.Create(ctx, hdr, fuseops.InodeID(parent), name, mode, info)
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	out := fuseops.EntryToNative(&e)
	fuseops.FileInfoToNative(info, fi)
	req.ReplyCreate(&out, fi)
}

////////////////////////////////////////////////////////////////////////
// Files
////////////////////////////////////////////////////////////////////////

// The replies to create, open and opendir carry the file info back to the
// kernel, so those need somewhere to write it.
func ensureFileInfo(fi *lowlevel.FileInfo) *lowlevel.FileInfo {
	if fi == nil {
		return &lowlevel.FileInfo{}
	}

	return fi
}

// Shared by open and opendir.
func replyOpen(
	req lowlevel.Req,
	fi *lowlevel.FileInfo,
	out *fuseops.FileInfo,
	err error) {
	if err != nil {
		replyErr(req, err)
		return
	}

	fuseops.FileInfoToNative(out, fi)
	req.ReplyOpen(fi)
}

func openOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo) {
	fi = ensureFileInfo(fi)
	var out fuseops.FileInfo
	err := invoke(req, "Open", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		out, err = fs.Open(ctx, hdr, fuseops.InodeID(ino), *fuseops.FileInfoFromNative(fi))
		return
	})

	replyOpen(req, fi, &out, err)
}

func readOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	size int,
	off int64,
	fi *lowlevel.FileInfo) {
	var data []byte
	err := invoke(req, "Read", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		data, err = fs.Read(ctx, hdr, fuseops.InodeID(ino), size, off, fuseops.FileInfoFromNative(fi))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	if len(data) > size {
		data = data[:size]
	}

	req.ReplyBuf(data)
}

func writeOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	buf []byte,
	off int64,
	fi *lowlevel.FileInfo) {
	var n int
	err := invoke(req, "Write", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		n, err = fs.Write(ctx, hdr, fuseops.InodeID(ino), buf, off, fuseops.FileInfoFromNative(fi))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyWrite(n)
}

func writeBufOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	bufv *lowlevel.Bufvec,
	off int64,
	fi *lowlevel.FileInfo) {
	var n int
	err := invoke(req, "WriteBuf", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		n, err = fs.WriteBuf(ctx, hdr, fuseops.InodeID(ino), bufv.Bufs, off, fuseops.FileInfoFromNative(fi))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyWrite(n)
}

func flushOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo) {
	err := invoke(req, "Flush", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Flush(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi))
	})

	replyStatus(req, err)
}

func releaseOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo) {
	err := invoke(req, "Release", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Release(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi))
	})

	replyStatus(req, err)
}

func fsyncOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	datasync int,
	fi *lowlevel.FileInfo) {
	err := invoke(req, "Fsync", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Fsync(ctx, hdr, fuseops.InodeID(ino), datasync != 0, fuseops.FileInfoFromNative(fi))
	})

	replyStatus(req, err)
}

func fallocateOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	mode int,
	offset int64,
	length int64,
	fi *lowlevel.FileInfo) {
	err := invoke(req, "Fallocate", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Fallocate(ctx, hdr, fuseops.InodeID(ino), mode, offset, length, fuseops.FileInfoFromNative(fi))
	})

	replyStatus(req, err)
}

func copyFileRangeOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	inoIn uint64,
	offIn int64,
	fiIn *lowlevel.FileInfo,
	inoOut uint64,
	offOut int64,
	fiOut *lowlevel.FileInfo,
	length int,
	flags int) {
	var n int
	err := invoke(req, "CopyFileRange", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		n, err = fs.CopyFileRange(
			ctx,
			hdr,
			fuseops.InodeID(inoIn),
			offIn,
			fuseops.FileInfoFromNative(fiIn),
			fuseops.InodeID(inoOut),
			offOut,
			fuseops.FileInfoFromNative(fiOut),
			length,
			flags)
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyWrite(n)
}

func lseekOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	off int64,
	whence int,
	fi *lowlevel.FileInfo) {
	var result int64
	err := invoke(req, "Lseek", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		result, err = fs.Lseek(ctx, hdr, fuseops.InodeID(ino), off, whence, fuseops.FileInfoFromNative(fi))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyLseek(result)
}

func retrieveReplyOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	cookie any,
	ino uint64,
	offset int64,
	bufv *lowlevel.Bufvec) {
	err := invoke(req, "RetrieveReply", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		fs.RetrieveReply(ctx, hdr, cookie, fuseops.InodeID(ino), offset, bufv.Bufs)
		return nil
	})

	if err != nil {
		req.Errorf("%v", err)
	}

	req.ReplyNone()
}

////////////////////////////////////////////////////////////////////////
// Directories
////////////////////////////////////////////////////////////////////////

func opendirOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo) {
	fi = ensureFileInfo(fi)
	var out fuseops.FileInfo
	err := invoke(req, "OpenDir", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		out, err = fs.OpenDir(ctx, hdr, fuseops.InodeID(ino), *fuseops.FileInfoFromNative(fi))
		return
	})

	replyOpen(req, fi, &out, err)
}

func readdirOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	size int,
	off int64,
	fi *lowlevel.FileInfo) {
	var entries []fuseops.DirEntry
	err := invoke(req, "ReadDir", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		entries, err = fs.ReadDir(ctx, hdr, fuseops.InodeID(ino), size, off, fuseops.FileInfoFromNative(fi))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyBuf(fuseutil.ListingPage(entries, off, size, false))
}

func readdirplusOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	size int,
	off int64,
	fi *lowlevel.FileInfo) {
	var entries []fuseops.DirEntry
	err := invoke(req, "ReadDirPlus", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		entries, err = fs.ReadDirPlus(ctx, hdr, fuseops.InodeID(ino), size, off, fuseops.FileInfoFromNative(fi))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyBuf(fuseutil.ListingPage(entries, off, size, true))
}

func releasedirOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo) {
	err := invoke(req, "ReleaseDir", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.ReleaseDir(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi))
	})

	replyStatus(req, err)
}

func fsyncdirOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	datasync int,
	fi *lowlevel.FileInfo) {
	err := invoke(req, "FsyncDir", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.FsyncDir(ctx, hdr, fuseops.InodeID(ino), datasync != 0, fuseops.FileInfoFromNative(fi))
	})

	replyStatus(req, err)
}

////////////////////////////////////////////////////////////////////////
// Miscellaneous
////////////////////////////////////////////////////////////////////////

func statfsOp[T fuseutil.FileSystem](req lowlevel.Req, ino uint64) {
	var st fuseops.StatFS
	err := invoke(req, "StatFS", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		st, err = fs.StatFS(ctx, hdr, fuseops.InodeID(ino))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	out := fuseops.StatFSToNative(&st)
	req.ReplyStatfs(&out)
}

func setxattrOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	name []byte,
	value []byte,
	flags int) {
	err := invoke(req, "SetXattr", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.SetXattr(ctx, hdr, fuseops.InodeID(ino), name, value, flags)
	})

	replyStatus(req, err)
}

func getxattrOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	name []byte,
	size int) {
	var value []byte
	err := invoke(req, "GetXattr", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		value, err = fs.GetXattr(ctx, hdr, fuseops.InodeID(ino), name, size)
		return
	})

	replyXattr(req, size, value, err)
}

func listxattrOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	size int) {
	var value []byte
	err := invoke(req, "ListXattr", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		value, err = fs.ListXattr(ctx, hdr, fuseops.InodeID(ino), size)
		return
	})

	replyXattr(req, size, value, err)
}

func removexattrOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	name []byte) {
	err := invoke(req, "RemoveXattr", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.RemoveXattr(ctx, hdr, fuseops.InodeID(ino), name)
	})

	replyStatus(req, err)
}

func accessOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	mask int) {
	err := invoke(req, "Access", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Access(ctx, hdr, fuseops.InodeID(ino), mask)
	})

	replyStatus(req, err)
}

func getlkOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo,
	lock *lowlevel.Flock) {
	var out fuseops.Lock
	err := invoke(req, "GetLk", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		out, err = fs.GetLk(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi), fuseops.LockFromNative(lock))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	fl := fuseops.LockToNative(&out)
	req.ReplyLock(&fl)
}

func setlkOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo,
	lock *lowlevel.Flock,
	sleep bool) {
	err := invoke(req, "SetLk", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.SetLk(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi), fuseops.LockFromNative(lock), sleep)
	})

	replyStatus(req, err)
}

func flockOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo,
	op int) {
	err := invoke(req, "Flock", func(ctx context.Context, fs T, hdr fuseops.OpHeader) error {
		return fs.Flock(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi), op)
	})

	replyStatus(req, err)
}

func bmapOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	blocksize int,
	idx uint64) {
	var out uint64
	err := invoke(req, "Bmap", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		out, err = fs.Bmap(ctx, hdr, fuseops.InodeID(ino), blocksize, idx)
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyBmap(out)
}

func pollOp[T fuseutil.FileSystem](
	req lowlevel.Req,
	ino uint64,
	fi *lowlevel.FileInfo,
	ph *lowlevel.PollHandle) {
	var revents uint32
	err := invoke(req, "Poll", func(ctx context.Context, fs T, hdr fuseops.OpHeader) (err error) {
		revents, err = fs.Poll(ctx, hdr, fuseops.InodeID(ino), fuseops.FileInfoFromNative(fi), pollHandle(ph))
		return
	})

	if err != nil {
		replyErr(req, err)
		return
	}

	req.ReplyPoll(revents)
}
