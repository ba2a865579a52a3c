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

package flushfs

import (
	"context"
	"sync"
	"time"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"golang.org/x/sys/unix"
)

// The operations the file system serves.
const Mask = lowfuse.OpInit |
	lowfuse.OpLookup |
	lowfuse.OpGetattr |
	lowfuse.OpOpen |
	lowfuse.OpRead |
	lowfuse.OpWrite |
	lowfuse.OpFlush |
	lowfuse.OpRelease |
	lowfuse.OpFsync

// Create a file system containing a single file named "foo".
//
// The file may be opened for reading and/or writing. Its initial contents are
// empty. Whenever a flush or fsync is received, the supplied function will be
// called with the current contents of the file and its return value will be
// returned as the error for the operation.
func NewFileSystem(
	reportFlush func(string) error,
	reportFsync func(string) error) (fs fuseutil.FileSystem) {
	fs = &flushFS{
		reportFlush: reportFlush,
		reportFsync: reportFsync,
	}

	return
}

const fooID = fuseops.RootInodeID + 1

type flushFS struct {
	fuseutil.NotImplementedFileSystem

	reportFlush func(string) error
	reportFsync func(string) error

	mu  sync.Mutex
	foo []byte // GUARDED_BY(mu)
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

// LOCKS_REQUIRED(fs.mu)
func (fs *flushFS) rootAttributes() fuseops.Attr {
	return fuseops.Attr{
		Ino:   fuseops.RootInodeID,
		Nlink: 1,
		Mode:  unix.S_IFDIR | 0777,
	}
}

// LOCKS_REQUIRED(fs.mu)
func (fs *flushFS) fooAttributes() fuseops.Attr {
	return fuseops.Attr{
		Ino:   fooID,
		Nlink: 1,
		Mode:  unix.S_IFREG | 0777,
		Size:  uint64(len(fs.foo)),
	}
}

////////////////////////////////////////////////////////////////////////
// File system methods
////////////////////////////////////////////////////////////////////////

func (fs *flushFS) Init(
	ctx context.Context,
	conn *fuseops.ConnInfo) (err error) {
	return
}

func (fs *flushFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Sanity check.
	if parent != fuseops.RootInodeID || string(name) != "foo" {
		err = lowfuse.ENOENT
		return
	}

	e = fuseops.EntryParam{
		Ino:  fooID,
		Attr: fs.fooAttributes(),
	}

	return
}

func (fs *flushFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (attr fuseops.Attr, timeout time.Duration, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	switch id {
	case fuseops.RootInodeID:
		attr = fs.rootAttributes()
		return

	case fooID:
		attr = fs.fooAttributes()
		return

	default:
		err = lowfuse.ENOENT
		return
	}
}

func (fs *flushFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	// Sanity check.
	if id != fooID {
		return fi, lowfuse.EINVAL
	}

	return fi, nil
}

func (fs *flushFS) Read(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (data []byte, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Ensure the offset is in range.
	if off >= int64(len(fs.foo)) {
		return
	}

	// Read what we can.
	data = append([]byte(nil), fs.foo[off:]...)
	return
}

func (fs *flushFS) Write(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	data []byte,
	off int64,
	fi *fuseops.FileInfo) (n int, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Ensure that the contents slice is long enough.
	newLen := int(off) + len(data)
	if len(fs.foo) < newLen {
		padding := make([]byte, newLen-len(fs.foo))
		fs.foo = append(fs.foo, padding...)
	}

	// Copy in the data.
	n = copy(fs.foo[off:], data)

	return
}

func (fs *flushFS) Flush(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err = fs.reportFlush(string(fs.foo))
	return
}

func (fs *flushFS) Fsync(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	datasync bool,
	fi *fuseops.FileInfo) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err = fs.reportFsync(string(fs.foo))
	return
}

func (fs *flushFS) Release(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (err error) {
	return
}
