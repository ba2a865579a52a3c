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

package statfs

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
	lowfuse.OpSetattr |
	lowfuse.OpOpen |
	lowfuse.OpWrite |
	lowfuse.OpStatfs

// A file system that allows orchestrating canned responses to statfs ops, for
// testng out OS-specific statfs behavior.
//
// The file system allows opening and writing to any name that is a child of
// the root inode, and keeps track of the most recent write size delivered by
// the kernel (in order to test statfs response block size effects on write
// size, if any).
//
// Safe for concurrent access.
type FS interface {
	fuseutil.FileSystem

	// Set the canned response to be used for future statfs ops.
	SetStatFSResponse(r fuseops.StatFS)

	// Set the canned response to be used for future stat ops.
	SetStatResponse(r fuseops.Attr)

	// Return the size of the most recent write delivered by the kernel, or -1 if
	// none.
	MostRecentWriteSize() int
}

func New() FS {
	return &statFS{
		cannedStatResponse: fuseops.Attr{
			Mode: unix.S_IFREG | 0666,
		},
		mostRecentWriteSize: -1,
	}
}

const childInodeID = fuseops.RootInodeID + 1

type statFS struct {
	fuseutil.NotImplementedFileSystem

	mu                  sync.Mutex
	cannedResponse      fuseops.StatFS // GUARDED_BY(mu)
	cannedStatResponse  fuseops.Attr   // GUARDED_BY(mu)
	mostRecentWriteSize int            // GUARDED_BY(mu)
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func dirAttrs() fuseops.Attr {
	return fuseops.Attr{
		Ino:  fuseops.RootInodeID,
		Mode: unix.S_IFDIR | 0777,
	}
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *statFS) fileAttrs() fuseops.Attr {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	attr := fs.cannedStatResponse
	attr.Ino = childInodeID
	return attr
}

////////////////////////////////////////////////////////////////////////
// Public interface
////////////////////////////////////////////////////////////////////////

// LOCKS_EXCLUDED(fs.mu)
func (fs *statFS) SetStatFSResponse(r fuseops.StatFS) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.cannedResponse = r
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *statFS) SetStatResponse(r fuseops.Attr) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.cannedStatResponse = r
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *statFS) MostRecentWriteSize() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.mostRecentWriteSize
}

////////////////////////////////////////////////////////////////////////
// FileSystem methods
////////////////////////////////////////////////////////////////////////

func (fs *statFS) Init(
	ctx context.Context,
	conn *fuseops.ConnInfo) error {
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *statFS) StatFS(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID) (fuseops.StatFS, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.cannedResponse, nil
}

func (fs *statFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	// Only the root has children.
	if parent != fuseops.RootInodeID {
		err = lowfuse.ENOENT
		return
	}

	e.Ino = childInodeID
	e.Attr = fs.fileAttrs()

	return
}

func (fs *statFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (attr fuseops.Attr, timeout time.Duration, err error) {
	switch id {
	case fuseops.RootInodeID:
		attr = dirAttrs()

	case childInodeID:
		attr = fs.fileAttrs()

	default:
		err = lowfuse.ENOENT
	}

	return
}

func (fs *statFS) SetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	attr *fuseops.Attr,
	toSet fuseops.SetAttrMask,
	fi *fuseops.FileInfo) (fuseops.Attr, time.Duration, error) {
	// Ignore calls to truncate existing files when opening.
	return fs.GetAttr(ctx, hdr, id, fi)
}

func (fs *statFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	return fi, nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *statFS) Write(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	data []byte,
	off int64,
	fi *fuseops.FileInfo) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.mostRecentWriteSize = len(data)
	return len(data), nil
}
