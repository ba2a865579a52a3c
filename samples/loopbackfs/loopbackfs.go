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

// Package loopbackfs contains a file system that mirrors a directory on the
// host.
package loopbackfs

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	fallocate "github.com/detailyang/go-fallocate"
	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"golang.org/x/sys/unix"
)

// The operations served by the file system.
const Mask = lowfuse.OpInit |
	lowfuse.OpLookup |
	lowfuse.OpGetattr |
	lowfuse.OpReadlink |
	lowfuse.OpOpen |
	lowfuse.OpRead |
	lowfuse.OpWrite |
	lowfuse.OpRelease |
	lowfuse.OpReaddir |
	lowfuse.OpStatfs |
	lowfuse.OpFallocate

// Attributes and entries may change on the host at any time.
const ttl = time.Second

type loopbackFS struct {
	fuseutil.NotImplementedFileSystem
	loopbackPath string
	readOnly     bool
	inodes       *sync.Map
	logger       *log.Logger

	// Open files, keyed by fuseops.HandleID.
	handles    sync.Map
	nextHandle atomic.Uint64
}

var _ fuseutil.FileSystem = &loopbackFS{}

// NewFileSystem creates a file system that mirrors an existing physical
// path. If readOnly is set, opening a file for writing fails with EROFS.
func NewFileSystem(
	loopbackPath string,
	readOnly bool,
	logger *log.Logger) (fuseutil.FileSystem, error) {
	if _, err := os.Stat(loopbackPath); err != nil {
		return nil, err
	}

	inodes := &sync.Map{}
	root := &inodeEntry{
		id:   fuseops.RootInodeID,
		path: loopbackPath,
	}
	inodes.Store(root.Id(), root)

	return &loopbackFS{
		loopbackPath: loopbackPath,
		readOnly:     readOnly,
		inodes:       inodes,
		logger:       logger,
	}, nil
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

// Pass errnos from the host through, logging and replacing anything else
// with EIO.
func (fs *loopbackFS) hostError(op string, in Inode, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	fs.logger.Printf("fs.%s for '%v': %v", op, in, err)
	return syscall.EIO
}

func (fs *loopbackFS) findInode(id fuseops.InodeID) (Inode, error) {
	entry, found := fs.inodes.Load(id)
	if !found {
		return nil, syscall.ENOENT
	}

	return entry.(Inode), nil
}

func (fs *loopbackFS) findHandle(fi *fuseops.FileInfo) (*os.File, error) {
	if fi == nil {
		return nil, syscall.EBADF
	}

	f, found := fs.handles.Load(fi.Handle)
	if !found {
		return nil, syscall.EBADF
	}

	return f.(*os.File), nil
}

////////////////////////////////////////////////////////////////////////
// FileSystem methods
////////////////////////////////////////////////////////////////////////

func (fs *loopbackFS) Init(ctx context.Context, conn *fuseops.ConnInfo) error {
	return nil
}

func (fs *loopbackFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	entry, attr, err := getOrCreateInode(fs.inodes, parent, string(name))
	if err != nil {
		err = fs.hostError("Lookup", entry, err)
		return
	}

	e.Ino = entry.Id()
	e.Attr = attr
	e.AttrTimeout = ttl
	e.EntryTimeout = ttl
	return
}

func (fs *loopbackFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (attr fuseops.Attr, timeout time.Duration, err error) {
	entry, err := fs.findInode(id)
	if err != nil {
		return
	}

	attr, err = entry.Attributes()
	if err != nil {
		err = fs.hostError("GetAttr", entry, err)
		return
	}

	timeout = ttl
	return
}

func (fs *loopbackFS) ReadLink(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID) ([]byte, error) {
	entry, err := fs.findInode(id)
	if err != nil {
		return nil, err
	}

	target, err := os.Readlink(entry.Path())
	if err != nil {
		return nil, fs.hostError("ReadLink", entry, err)
	}

	return []byte(target), nil
}

func (fs *loopbackFS) ReadDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]fuseops.DirEntry, error) {
	entry, err := fs.findInode(id)
	if err != nil {
		return nil, err
	}

	children, err := entry.ListChildren(fs.inodes)
	if err != nil {
		return nil, fs.hostError("ReadDir", entry, err)
	}

	return children, nil
}

func (fs *loopbackFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	entry, err := fs.findInode(id)
	if err != nil {
		return fi, err
	}

	flags := int(fi.Flags) &^ (unix.O_CREAT | unix.O_EXCL | unix.O_NOCTTY)
	if fs.readOnly && (flags&unix.O_ACCMODE != unix.O_RDONLY || flags&unix.O_TRUNC != 0) {
		return fi, syscall.EROFS
	}

	f, err := os.OpenFile(entry.Path(), flags, 0)
	if err != nil {
		return fi, fs.hostError("Open", entry, err)
	}

	fi.Handle = fuseops.HandleID(fs.nextHandle.Add(1))
	fs.handles.Store(fi.Handle, f)
	return fi, nil
}

func (fs *loopbackFS) Read(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]byte, error) {
	f, err := fs.findHandle(fi)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	n, err := f.ReadAt(buf, off)
	if err == io.EOF {
		err = nil
	}

	if err != nil {
		return nil, fs.hostError("Read", nil, err)
	}

	return buf[:n], nil
}

func (fs *loopbackFS) Write(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	data []byte,
	off int64,
	fi *fuseops.FileInfo) (int, error) {
	f, err := fs.findHandle(fi)
	if err != nil {
		return 0, err
	}

	n, err := f.WriteAt(data, off)
	if err != nil {
		return 0, fs.hostError("Write", nil, err)
	}

	return n, nil
}

func (fs *loopbackFS) Release(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) error {
	f, err := fs.findHandle(fi)
	if err != nil {
		return err
	}

	fs.handles.Delete(fi.Handle)
	if err := f.Close(); err != nil {
		fs.logger.Printf("fs.Release for handle %d: %v", fi.Handle, err)
	}

	return nil
}

func (fs *loopbackFS) StatFS(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID) (s fuseops.StatFS, err error) {
	var st unix.Statfs_t
	if err = unix.Statfs(fs.loopbackPath, &st); err != nil {
		err = fs.hostError("StatFS", nil, err)
		return
	}

	s = fuseops.StatFS{
		Bsize:   uint64(st.Bsize),
		Frsize:  uint64(st.Frsize),
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Favail:  st.Ffree,
		Fsid:    uint64(uint32(st.Fsid.Val[0])) | uint64(uint32(st.Fsid.Val[1]))<<32,
		Flag:    uint64(st.Flags),
		Namemax: uint64(st.Namelen),
	}

	if fs.readOnly {
		s.Flag |= unix.ST_RDONLY
	}

	return
}

func (fs *loopbackFS) Fallocate(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	mode int,
	offset int64,
	length int64,
	fi *fuseops.FileInfo) error {
	f, err := fs.findHandle(fi)
	if err != nil {
		return err
	}

	if mode == 0 {
		err = fallocate.Fallocate(f, offset, length)
	} else {
		err = unix.Fallocate(int(f.Fd()), uint32(mode), offset, length)
	}

	if err != nil {
		return fs.hostError("Fallocate", nil, err)
	}

	return nil
}
