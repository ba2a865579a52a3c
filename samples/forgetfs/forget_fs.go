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

package forgetfs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/syncutil"
	"golang.org/x/sys/unix"
)

// The operations ForgetFS serves.
const Mask = lowfuse.OpInit |
	lowfuse.OpLookup |
	lowfuse.OpForget |
	lowfuse.OpGetattr |
	lowfuse.OpMkdir |
	lowfuse.OpOpen |
	lowfuse.OpRelease |
	lowfuse.OpReaddir |
	lowfuse.OpCreate |
	lowfuse.OpForgetMulti |
	lowfuse.OpReaddirplus

const (
	rootID fuseops.InodeID = fuseops.RootInodeID + iota
	fooID
	barID
	firstDynamicID
)

// Create a file system whose sole contents are a file named "foo" and a
// directory named "bar".
//
// The file "foo" may be opened for reading and/or writing, but reads and
// writes aren't supported. Additionally, files and directories may be
// created anew an arbitrary number of times in any directory, but they will
// never exist in lookups by name.
//
// The file system maintains reference counts for the inodes involved. It will
// panic if a reference count becomes negative or if an inode ID is re-used
// after we expect it to be dead. Its Check method may be used to check that
// there are no inodes with non-zero reference counts remaining, after
// unmounting.
func NewFileSystem() (fs *ForgetFS) {
	fs = &ForgetFS{
		inodes: map[fuseops.InodeID]*inode{
			rootID: {attrs: fuseops.Attr{Mode: unix.S_IFDIR | 0777, Nlink: 2}, static: true},
			fooID:  {attrs: fuseops.Attr{Mode: unix.S_IFREG | 0777, Nlink: 1}, static: true},
			barID:  {attrs: fuseops.Attr{Mode: unix.S_IFDIR | 0777, Nlink: 2}, static: true},
		},
		nextID: firstDynamicID,
	}

	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)
	return
}

type inode struct {
	attrs fuseops.Attr

	// The kernel's reference count.
	lookupCount uint64

	// Static inodes live forever. Others die when their count reaches zero.
	static bool
}

type ForgetFS struct {
	fuseutil.NotImplementedFileSystem

	mu syncutil.InvariantMutex

	// INVARIANT: inodes[rootID], inodes[fooID] and inodes[barID] are static
	// INVARIANT: For each non-static inode, lookupCount > 0
	// INVARIANT: For each key k, k < nextID
	inodes map[fuseops.InodeID]*inode // GUARDED_BY(mu)

	// INVARIANT: nextID >= firstDynamicID
	nextID fuseops.InodeID // GUARDED_BY(mu)
}

var _ fuseutil.FileSystem = &ForgetFS{}

// Panic if there are any inodes that have a non-zero reference count. For use
// after unmounting.
func (fs *ForgetFS) Check() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var leaked []string
	for id, in := range fs.inodes {
		if in.lookupCount != 0 {
			leaked = append(leaked, fmt.Sprintf("%d: %d", id, in.lookupCount))
		}
	}

	if len(leaked) != 0 {
		sort.Strings(leaked)
		panic(fmt.Sprintf("Inodes with non-zero lookup counts: %v", leaked))
	}
}

// Return the kernel's reference count for the inode, for tests.
func (fs *ForgetFS) LookupCount(id fuseops.InodeID) uint64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if in, ok := fs.inodes[id]; ok {
		return in.lookupCount
	}

	return 0
}

func (fs *ForgetFS) checkInvariants() {
	// INVARIANT: inodes[rootID], inodes[fooID] and inodes[barID] are static
	for _, id := range []fuseops.InodeID{rootID, fooID, barID} {
		if in, ok := fs.inodes[id]; !ok || !in.static {
			panic(fmt.Sprintf("Missing static inode %d", id))
		}
	}

	// INVARIANT: nextID >= firstDynamicID
	if fs.nextID < firstDynamicID {
		panic(fmt.Sprintf("Unexpected next ID: %d", fs.nextID))
	}

	for id, in := range fs.inodes {
		// INVARIANT: For each non-static inode, lookupCount > 0
		if !in.static && in.lookupCount == 0 {
			panic(fmt.Sprintf("Dead inode %d still present", id))
		}

		// INVARIANT: For each key k, k < nextID
		if id >= fs.nextID {
			panic(fmt.Sprintf("Unexpected inode ID %d", id))
		}
	}
}

// Panic if the inode is dead.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *ForgetFS) findInodeOrDie(id fuseops.InodeID) (in *inode) {
	in, ok := fs.inodes[id]
	if !ok {
		panic(fmt.Sprintf("Inode %d used after it was forgotten", id))
	}

	return
}

// LOCKS_REQUIRED(fs.mu)
func (fs *ForgetFS) entry(id fuseops.InodeID) (e fuseops.EntryParam) {
	in := fs.findInodeOrDie(id)
	in.lookupCount++

	e.Ino = id
	e.Attr = in.attrs
	e.Attr.Ino = uint64(id)
	e.AttrTimeout = time.Hour
	e.EntryTimeout = time.Hour

	return
}

// LOCKS_REQUIRED(fs.mu)
func (fs *ForgetFS) forget(id fuseops.InodeID, n uint64) {
	in := fs.findInodeOrDie(id)
	if n > in.lookupCount {
		panic(fmt.Sprintf(
			"Reference count for inode %d would become negative: %d - %d",
			id,
			in.lookupCount,
			n))
	}

	in.lookupCount -= n
	if in.lookupCount == 0 && !in.static {
		delete(fs.inodes, id)
	}
}

// LOCKS_REQUIRED(fs.mu)
func (fs *ForgetFS) newInode(
	parent fuseops.InodeID,
	mode uint32) (e fuseops.EntryParam, err error) {
	p := fs.findInodeOrDie(parent)
	if t, _ := p.attrs.FileType(); t != fuseops.Directory {
		err = lowfuse.ENOTDIR
		return
	}

	id := fs.nextID
	fs.nextID++

	fs.inodes[id] = &inode{attrs: fuseops.Attr{Mode: mode, Nlink: 1}}
	e = fs.entry(id)

	return
}

func (fs *ForgetFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.findInodeOrDie(parent)

	var child fuseops.InodeID
	switch {
	case parent == rootID && string(name) == "foo":
		child = fooID
	case parent == rootID && string(name) == "bar":
		child = barID
	default:
		err = lowfuse.ENOENT
		return
	}

	e = fs.entry(child)
	return
}

func (fs *ForgetFS) Forget(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	nlookup uint64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.forget(id, nlookup)
}

func (fs *ForgetFS) ForgetMulti(
	ctx context.Context,
	hdr fuseops.OpHeader,
	forgets []fuseops.ForgetData) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, f := range forgets {
		fs.forget(f.Ino, f.Nlookup)
	}
}

func (fs *ForgetFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (attr fuseops.Attr, timeout time.Duration, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	attr = fs.findInodeOrDie(id).attrs
	attr.Ino = uint64(id)
	timeout = time.Hour

	return
}

func (fs *ForgetFS) MkDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	mode uint32) (fuseops.EntryParam, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.newInode(parent, unix.S_IFDIR|mode&^unix.S_IFMT)
}

func (fs *ForgetFS) Create(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parent fuseops.InodeID,
	name []byte,
	mode uint32,
	fi *fuseops.FileInfo) (fuseops.EntryParam, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.newInode(parent, unix.S_IFREG|mode&^unix.S_IFMT)
}

func (fs *ForgetFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi fuseops.FileInfo) (fuseops.FileInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.findInodeOrDie(id)
	if t, _ := in.attrs.FileType(); t != fuseops.RegularFile {
		return fi, lowfuse.EINVAL
	}

	return fi, nil
}

func (fs *ForgetFS) Release(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) error {
	return nil
}

// LOCKS_REQUIRED(fs.mu)
func (fs *ForgetFS) listing(id fuseops.InodeID) (entries []fuseops.DirEntry, err error) {
	in := fs.findInodeOrDie(id)
	if t, _ := in.attrs.FileType(); t != fuseops.Directory {
		err = lowfuse.ENOTDIR
		return
	}

	entries = []fuseops.DirEntry{
		{Name: []byte("."), Type: fuseops.Directory, Ino: id},
		{Name: []byte(".."), Type: fuseops.Directory, Ino: rootID},
	}

	if id == rootID {
		entries = append(entries,
			fuseops.DirEntry{Name: []byte("foo"), Type: fuseops.RegularFile, Ino: fooID},
			fuseops.DirEntry{Name: []byte("bar"), Type: fuseops.Directory, Ino: barID})
	}

	return
}

func (fs *ForgetFS) ReadDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) ([]fuseops.DirEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.listing(id)
}

func (fs *ForgetFS) ReadDirPlus(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (entries []fuseops.DirEntry, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err = fs.listing(id)
	if err != nil {
		return
	}

	for _, e := range fuseutil.PageEntries(entries, off, size, true) {
		if name := string(e.Name); name == "." || name == ".." {
			continue
		}

		fs.findInodeOrDie(e.Ino).lookupCount++
	}

	return
}
