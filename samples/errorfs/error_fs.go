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

package errorfs

import (
	"context"
	"sync"
	"syscall"
	"time"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"golang.org/x/sys/unix"
)

const FooContents = "xxxx"

// The operations the file system serves.
const Mask = lowfuse.OpInit |
	lowfuse.OpLookup |
	lowfuse.OpGetattr |
	lowfuse.OpOpen |
	lowfuse.OpRead |
	lowfuse.OpFlush |
	lowfuse.OpRelease |
	lowfuse.OpReaddir

const (
	rootInode fuseops.InodeID = fuseops.RootInodeID + iota
	fooInode
)

// A file system whose sole contents are a file named "foo" containing the
// string defined by FooContents.
//
// The file system can be configured to returned canned errors for particular
// operations using the method SetError.
type FS interface {
	fuseutil.FileSystem

	// Cause the file system to return the supplied error for all future
	// operations named by op. An errno of zero clears any canned error.
	SetError(op lowfuse.OpFlag, err syscall.Errno)
}

func New() (fs FS) {
	fs = &errorFS{
		errors: make(map[lowfuse.OpFlag]syscall.Errno),
	}

	return
}

type errorFS struct {
	fuseutil.NotImplementedFileSystem

	mu sync.Mutex

	// Canned errors, keyed by single operation bits.
	//
	// INVARIANT: For each k, k.Len() == 1
	// INVARIANT: For each v, v != 0
	errors map[lowfuse.OpFlag]syscall.Errno // GUARDED_BY(mu)
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *errorFS) SetError(op lowfuse.OpFlag, err syscall.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for bit := lowfuse.OpFlag(1); bit != 0 && bit <= op; bit <<= 1 {
		if !op.Has(bit) {
			continue
		}

		if err == 0 {
			delete(fs.errors, bit)
		} else {
			fs.errors[bit] = err
		}
	}
}

// Return the canned error for op, if any.
//
// LOCKS_EXCLUDED(fs.mu)
func (fs *errorFS) transformError(op lowfuse.OpFlag) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if errno, ok := fs.errors[op]; ok {
		return errno
	}

	return nil
}

func (fs *errorFS) attributes(id fuseops.InodeID) (attr fuseops.Attr, ok bool) {
	switch id {
	case rootInode:
		attr = fuseops.Attr{Mode: unix.S_IFDIR | 0777, Nlink: 2}
	case fooInode:
		attr = fuseops.Attr{Mode: unix.S_IFREG | 0444, Nlink: 1, Size: uint64(len(FooContents))}
	default:
		return
	}

	attr.Ino = uint64(id)
	ok = true
	return
}

////////////////////////////////////////////////////////////////////////
// File system methods
////////////////////////////////////////////////////////////////////////

func (fs *errorFS) Init(
	ctx context.Context,
	conn *fuseops.ConnInfo) error {
	return fs.transformError(lowfuse.OpInit)
}

func (fs *errorFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	if err = fs.transformError(lowfuse.OpLookup); err != nil {
		return
	}

	if parent != rootInode || string(name) != "foo" {
		err = lowfuse.ENOENT
		return
	}

	e.Ino = fooInode
	e.Attr, _ = fs.attributes(fooInode)
	e.AttrTimeout = time.Second
	e.EntryTimeout = time.Second

	return
}

func (fs *errorFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (attr fuseops.Attr, timeout time.Duration, err error) {
	if err = fs.transformError(lowfuse.OpGetattr); err != nil {
		return
	}

	attr, ok := fs.attributes(id)
	if !ok {
		err = lowfuse.ENOENT
		return
	}

	timeout = time.Second
	return
}

func (fs *errorFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	if err := fs.transformError(lowfuse.OpOpen); err != nil {
		return fi, err
	}

	if id != fooInode {
		return fi, syscall.EISDIR
	}

	return fi, nil
}

func (fs *errorFS) Read(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (data []byte, err error) {
	if err = fs.transformError(lowfuse.OpRead); err != nil {
		return
	}

	if id != fooInode {
		err = syscall.EISDIR
		return
	}

	if off < int64(len(FooContents)) {
		data = []byte(FooContents[off:])
	}

	return
}

func (fs *errorFS) Flush(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) error {
	return fs.transformError(lowfuse.OpFlush)
}

func (fs *errorFS) Release(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) error {
	return fs.transformError(lowfuse.OpRelease)
}

func (fs *errorFS) ReadDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (entries []fuseops.DirEntry, err error) {
	if err = fs.transformError(lowfuse.OpReaddir); err != nil {
		return
	}

	if id != rootInode {
		err = lowfuse.ENOTDIR
		return
	}

	entries = []fuseops.DirEntry{
		{Name: []byte("."), Type: fuseops.Directory, Ino: rootInode},
		{Name: []byte(".."), Type: fuseops.Directory, Ino: rootInode},
		{Name: []byte("foo"), Type: fuseops.RegularFile, Ino: fooInode},
	}

	return
}
