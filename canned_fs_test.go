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

package lowfuse_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"golang.org/x/sys/unix"
)

// A file system with canned answers that records the methods called on it.
//
// Lookup knows "hello" (inode 2) and panics for "panic". The names "opaque"
// and "wrapped" produce an error without an errno and one wrapping ENOENT.
type cannedFS struct {
	fuseutil.NotImplementedFileSystem

	// Returned by ReadDir and ReadDirPlus.
	entries []fuseops.DirEntry

	// Returned by GetXattr.
	xattr []byte

	// Returned by Read.
	contents []byte

	// Returned by Init, which also sets MaxWrite to initMaxWrite.
	initErr      error
	initMaxWrite uint32

	mu sync.Mutex

	// GUARDED_BY(mu)
	calls   []string
	lastHdr fuseops.OpHeader
}

var _ fuseutil.FileSystem = &cannedFS{}

var helloEntry = fuseops.EntryParam{
	Ino:        2,
	Generation: 1,
	Attr: fuseops.Attr{
		Ino:   2,
		Mode:  unix.S_IFREG | 0644,
		Nlink: 1,
		Size:  13,
	},
	AttrTimeout:  time.Second,
	EntryTimeout: 1500 * time.Millisecond,
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *cannedFS) record(name string, hdr fuseops.OpHeader) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.calls = append(fs.calls, name)
	fs.lastHdr = hdr
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *cannedFS) Calls() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return append([]string(nil), fs.calls...)
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *cannedFS) LastHeader() fuseops.OpHeader {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lastHdr
}

func (fs *cannedFS) Init(
	ctx context.Context,
	conn *fuseops.ConnInfo) error {
	fs.record("Init", fuseops.OpHeader{})
	if fs.initErr != nil {
		return fs.initErr
	}

	if fs.initMaxWrite != 0 {
		conn.MaxWrite = fs.initMaxWrite
	}

	return nil
}

func (fs *cannedFS) Destroy(ctx context.Context) {
	fs.record("Destroy", fuseops.OpHeader{})
}

func (fs *cannedFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (fuseops.EntryParam, error) {
	fs.record("Lookup", hdr)

	switch string(name) {
	case "hello":
		return helloEntry, nil
	case "panic":
		panic("taking a dive")
	case "opaque":
		return fuseops.EntryParam{}, errors.New("something broke")
	case "wrapped":
		return fuseops.EntryParam{}, fmt.Errorf("looking up: %w", syscall.ENOENT)
	}

	return fuseops.EntryParam{}, syscall.ENOENT
}

func (fs *cannedFS) Forget(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	nlookup uint64) {
	fs.record("Forget", hdr)
	if ino == 13 {
		panic("unlucky")
	}
}

func (fs *cannedFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo) (fuseops.Attr, time.Duration, error) {
	fs.record("GetAttr", hdr)
	if ino != 2 {
		return fuseops.Attr{}, 0, syscall.ENOENT
	}

	return helloEntry.Attr, 2500 * time.Millisecond, nil
}

func (fs *cannedFS) MkDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	mode uint32) (fuseops.EntryParam, error) {
	fs.record("MkDir", hdr)
	return fuseops.EntryParam{}, syscall.EEXIST
}

func (fs *cannedFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	fs.record("Open", hdr)
	fi.Handle = 17
	fi.KeepCache = true
	return fi, nil
}

func (fs *cannedFS) Read(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]byte, error) {
	fs.record("Read", hdr)
	if off >= int64(len(fs.contents)) {
		return nil, nil
	}

	return fs.contents[off:], nil
}

func (fs *cannedFS) Create(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	mode uint32,
	fi *fuseops.FileInfo) (fuseops.EntryParam, error) {
	fs.record("Create", hdr)
	fi.Handle = 99
	fi.DirectIO = true

	e := helloEntry
	e.Ino = 3
	e.Attr.Ino = 3
	e.Attr.Mode = mode
	return e, nil
}

func (fs *cannedFS) ReadDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]fuseops.DirEntry, error) {
	fs.record("ReadDir", hdr)
	return fs.entries, nil
}

func (fs *cannedFS) ReadDirPlus(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]fuseops.DirEntry, error) {
	fs.record("ReadDirPlus", hdr)
	return fs.entries, nil
}

func (fs *cannedFS) StatFS(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID) (fuseops.StatFS, error) {
	fs.record("StatFS", hdr)
	return fuseops.StatFS{
		Bsize:   4096,
		Blocks:  100,
		Bfree:   50,
		Namemax: 255,
	}, nil
}

func (fs *cannedFS) GetXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	name []byte,
	size int) ([]byte, error) {
	fs.record("GetXattr", hdr)
	if fs.xattr == nil {
		return nil, syscall.ENODATA
	}

	return fs.xattr, nil
}

func (fs *cannedFS) GetLk(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo,
	lock fuseops.Lock) (fuseops.Lock, error) {
	fs.record("GetLk", hdr)
	lock.Type = unix.F_WRLCK
	lock.Pid = 77
	return lock, nil
}

func (fs *cannedFS) SetLk(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo,
	lock fuseops.Lock,
	sleep bool) error {
	fs.record("SetLk", hdr)
	return nil
}
