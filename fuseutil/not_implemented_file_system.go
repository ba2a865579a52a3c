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
	"syscall"
	"time"

	"github.com/jacobsa/lowfuse/fuseops"
)

// A FileSystem that responds to every operation with ENOSYS, and does
// nothing for operations with no reply. Embed this in your struct to inherit
// default implementations for the methods you don't care about, ensuring
// your struct will continue to implement FileSystem even as new methods are
// added.
//
// Methods inherited this way should be left out of the mask given to
// lowfuse.NewOps, so that the kernel stops asking.
type NotImplementedFileSystem struct {
}

var _ FileSystem = &NotImplementedFileSystem{}

func (fs *NotImplementedFileSystem) Init(
	ctx context.Context,
	conn *fuseops.ConnInfo) error {
	return nil
}

func (fs *NotImplementedFileSystem) Destroy(ctx context.Context) {
}

func (fs *NotImplementedFileSystem) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (fuseops.EntryParam, error) {
	return fuseops.EntryParam{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Forget(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	nlookup uint64) {
}

func (fs *NotImplementedFileSystem) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo) (fuseops.Attr, time.Duration, error) {
	return fuseops.Attr{}, 0, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) SetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	attr *fuseops.Attr,
	toSet fuseops.SetAttrMask,
	fi *fuseops.FileInfo) (fuseops.Attr, time.Duration, error) {
	return fuseops.Attr{}, 0, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReadLink(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID) ([]byte, error) {
	return nil, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) MkNod(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	mode uint32,
	rdev uint64) (fuseops.EntryParam, error) {
	return fuseops.EntryParam{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) MkDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	mode uint32) (fuseops.EntryParam, error) {
	return fuseops.EntryParam{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Unlink(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) RmDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Symlink(
	ctx context.Context,
	hdr fuseops.OpHeader,
	link []byte,
	parent fuseops.InodeID,
	name []byte) (fuseops.EntryParam, error) {
	return fuseops.EntryParam{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Rename(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	newParent fuseops.InodeID,
	newName []byte,
	flags uint32) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Link(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	newParent fuseops.InodeID,
	newName []byte) (fuseops.EntryParam, error) {
	return fuseops.EntryParam{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	return fi, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Read(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]byte, error) {
	return nil, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Write(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	data []byte,
	off int64,
	fi *fuseops.FileInfo) (int, error) {
	return 0, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Flush(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Release(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Fsync(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	datasync bool,
	fi *fuseops.FileInfo) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) OpenDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	return fi, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReadDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]fuseops.DirEntry, error) {
	return nil, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReleaseDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) FsyncDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	datasync bool,
	fi *fuseops.FileInfo) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) StatFS(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID) (fuseops.StatFS, error) {
	return fuseops.StatFS{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) SetXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	name []byte,
	value []byte,
	flags int) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) GetXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	name []byte,
	size int) ([]byte, error) {
	return nil, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ListXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int) ([]byte, error) {
	return nil, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) RemoveXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	name []byte) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Access(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	mask int) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Create(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	mode uint32,
	fi *fuseops.FileInfo) (fuseops.EntryParam, error) {
	return fuseops.EntryParam{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) GetLk(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo,
	lock fuseops.Lock) (fuseops.Lock, error) {
	return fuseops.Lock{}, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) SetLk(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo,
	lock fuseops.Lock,
	sleep bool) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Bmap(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	blocksize int,
	idx uint64) (uint64, error) {
	return 0, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Poll(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo,
	ph fuseops.PollHandle) (uint32, error) {
	return 0, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) WriteBuf(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	bufs [][]byte,
	off int64,
	fi *fuseops.FileInfo) (int, error) {
	return 0, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) RetrieveReply(
	ctx context.Context,
	hdr fuseops.OpHeader,
	cookie any,
	ino fuseops.InodeID,
	off int64,
	bufs [][]byte) {
}

func (fs *NotImplementedFileSystem) ForgetMulti(
	ctx context.Context,
	hdr fuseops.OpHeader,
	forgets []fuseops.ForgetData) {
}

func (fs *NotImplementedFileSystem) Flock(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo,
	op int) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Fallocate(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	mode int,
	offset int64,
	length int64,
	fi *fuseops.FileInfo) error {
	return syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) ReadDirPlus(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]fuseops.DirEntry, error) {
	return nil, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) CopyFileRange(
	ctx context.Context,
	hdr fuseops.OpHeader,
	inoIn fuseops.InodeID,
	offIn int64,
	fiIn *fuseops.FileInfo,
	inoOut fuseops.InodeID,
	offOut int64,
	fiOut *fuseops.FileInfo,
	length int,
	flags int) (int, error) {
	return 0, syscall.ENOSYS
}

func (fs *NotImplementedFileSystem) Lseek(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	off int64,
	whence int,
	fi *fuseops.FileInfo) (int64, error) {
	return 0, syscall.ENOSYS
}
