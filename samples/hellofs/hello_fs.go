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

package hellofs

import (
	"context"
	"syscall"
	"time"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/timeutil"
	"golang.org/x/sys/unix"
)

// The operations HelloFS serves. Everything else gets the session's default
// reply.
const Mask = lowfuse.OpInit |
	lowfuse.OpLookup |
	lowfuse.OpGetattr |
	lowfuse.OpReaddir |
	lowfuse.OpOpen |
	lowfuse.OpRead

// The contents of the single file.
const Contents = "Hello World!\n"

// How long the kernel may cache entries and attributes.
const ttl = time.Second

// A file system with a fixed structure that looks like this:
//
//	hello
//
// The file contains Contents and can only be opened for reading.
type HelloFS struct {
	fuseutil.NotImplementedFileSystem
	Clock timeutil.Clock
}

var _ fuseutil.FileSystem = &HelloFS{}

const (
	rootInode fuseops.InodeID = fuseops.RootInodeID + iota
	helloInode
)

type inodeInfo struct {
	attributes fuseops.Attr

	// File or directory?
	dir bool

	// For directories, children.
	children []fuseops.DirEntry
}

// We have a fixed directory structure.
var gInodeInfo = map[fuseops.InodeID]inodeInfo{
	// root
	rootInode: {
		attributes: fuseops.Attr{
			Nlink: 2,
			Mode:  unix.S_IFDIR | 0755,
		},
		dir: true,
		children: []fuseops.DirEntry{
			{Name: []byte("."), Type: fuseops.Directory, Ino: rootInode},
			{Name: []byte(".."), Type: fuseops.Directory, Ino: rootInode},
			{Name: []byte("hello"), Type: fuseops.RegularFile, Ino: helloInode},
		},
	},

	// hello
	helloInode: {
		attributes: fuseops.Attr{
			Nlink: 1,
			Mode:  unix.S_IFREG | 0644,
			Size:  uint64(len(Contents)),
		},
	},
}

func findChildInode(
	name string,
	children []fuseops.DirEntry) (inode fuseops.InodeID, err error) {
	for _, e := range children {
		if string(e.Name) == name && name != "." && name != ".." {
			inode = e.Ino
			return
		}
	}

	err = lowfuse.ENOENT
	return
}

func (fs *HelloFS) patchAttributes(
	ino fuseops.InodeID,
	attr *fuseops.Attr) {
	now := fuseops.TimespecOf(fs.Clock.Now())
	attr.Ino = uint64(ino)
	attr.Uid = 1000
	attr.Gid = 1000
	attr.Blksize = 4032
	attr.Atime = now
	attr.Mtime = now
	attr.Ctime = now
}

func (fs *HelloFS) Init(
	ctx context.Context,
	conn *fuseops.ConnInfo) (err error) {
	return
}

func (fs *HelloFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	// Find the info for the parent.
	parentInfo, ok := gInodeInfo[parent]
	if !ok || !parentInfo.dir {
		err = lowfuse.ENOENT
		return
	}

	// Find the child within the parent.
	childInode, err := findChildInode(string(name), parentInfo.children)
	if err != nil {
		return
	}

	// Copy over information.
	e.Ino = childInode
	e.Attr = gInodeInfo[childInode].attributes
	e.AttrTimeout = ttl
	e.EntryTimeout = ttl

	// Patch attributes.
	fs.patchAttributes(childInode, &e.Attr)

	return
}

func (fs *HelloFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo) (attr fuseops.Attr, timeout time.Duration, err error) {
	// Find the info for this inode.
	info, ok := gInodeInfo[ino]
	if !ok {
		err = lowfuse.ENOENT
		return
	}

	// Copy over its attributes.
	attr = info.attributes
	timeout = ttl

	// Patch attributes.
	fs.patchAttributes(ino, &attr)

	return
}

func (fs *HelloFS) ReadDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (entries []fuseops.DirEntry, err error) {
	// Find the info for this inode.
	info, ok := gInodeInfo[ino]
	if !ok {
		err = lowfuse.ENOENT
		return
	}

	if !info.dir {
		err = lowfuse.ENOTDIR
		return
	}

	entries = info.children
	return
}

func (fs *HelloFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	info, ok := gInodeInfo[ino]
	if !ok {
		return fi, lowfuse.ENOENT
	}

	if info.dir {
		return fi, syscall.EISDIR
	}

	// The file is read-only.
	if fi.Flags&syscall.O_ACCMODE != syscall.O_RDONLY {
		return fi, syscall.EACCES
	}

	return fi, nil
}

func (fs *HelloFS) Read(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (data []byte, err error) {
	if ino != helloInode {
		err = syscall.EISDIR
		return
	}

	if off >= int64(len(Contents)) {
		return
	}

	data = []byte(Contents[off:])
	if len(data) > size {
		data = data[:size]
	}

	return
}
