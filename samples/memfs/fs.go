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

package memfs

import (
	"context"
	"fmt"
	"time"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
	"golang.org/x/sys/unix"
)

// The operations memFS serves.
const Mask = lowfuse.OpInit |
	lowfuse.OpLookup |
	lowfuse.OpForget |
	lowfuse.OpGetattr |
	lowfuse.OpSetattr |
	lowfuse.OpReadlink |
	lowfuse.OpMknod |
	lowfuse.OpMkdir |
	lowfuse.OpUnlink |
	lowfuse.OpRmdir |
	lowfuse.OpSymlink |
	lowfuse.OpRename |
	lowfuse.OpLink |
	lowfuse.OpOpen |
	lowfuse.OpRead |
	lowfuse.OpWrite |
	lowfuse.OpFlush |
	lowfuse.OpRelease |
	lowfuse.OpFsync |
	lowfuse.OpReaddir |
	lowfuse.OpStatfs |
	lowfuse.OpSetxattr |
	lowfuse.OpGetxattr |
	lowfuse.OpListxattr |
	lowfuse.OpRemovexattr |
	lowfuse.OpCreate |
	lowfuse.OpForgetMulti |
	lowfuse.OpFallocate |
	lowfuse.OpReaddirplus |
	lowfuse.OpLseek

// We don't spontaneously mutate, so the kernel can cache as long as it wants
// (since it also handles invalidation).
const cacheTimeout = 365 * 24 * time.Hour

// The block size reported by StatFS.
const blockSize = 4096

type memFS struct {
	fuseutil.NotImplementedFileSystem

	/////////////////////////
	// Dependencies
	/////////////////////////

	clock timeutil.Clock

	/////////////////////////
	// Constant data
	/////////////////////////

	// The owner of the root directory.
	uid uint32
	gid uint32

	/////////////////////////
	// Mutable state
	/////////////////////////

	// Held for the duration of each operation. Inode locks are acquired
	// while holding it.
	mu syncutil.InvariantMutex

	// The collection of all inodes that have ever been created, indexed by
	// inode ID. Some inodes are not in use if they have been unlinked and
	// forgotten, and no inode with ID less than fuseops.RootInodeID is ever
	// used.
	//
	// INVARIANT: len(inodes) > fuseops.RootInodeID
	// INVARIANT: For all i < fuseops.RootInodeID, inodes[i] == nil
	// INVARIANT: inodes[fuseops.RootInodeID] != nil
	inodes []*inode // GUARDED_BY(mu)

	// A list of inode IDs within inodes available for reuse, not including
	// the reserved IDs less than fuseops.RootInodeID.
	//
	// INVARIANT: This is all and only indices i of inodes such that
	// i > fuseops.RootInodeID and inodes[i] == nil
	freeInodes []fuseops.InodeID // GUARDED_BY(mu)
}

// Create a file system that stores data and metadata in memory. The root
// directory is owned by the supplied uid and gid.
func NewMemFS(
	uid uint32,
	gid uint32,
	clock timeutil.Clock) fuseutil.FileSystem {
	// Set up the basic struct.
	fs := &memFS{
		clock:  clock,
		uid:    uid,
		gid:    gid,
		inodes: make([]*inode, fuseops.RootInodeID+1),
	}

	// Set up the root inode.
	root := newInode(clock, fuseops.RootInodeID, fuseops.Attr{
		Mode:  unix.S_IFDIR | 0700,
		Nlink: 2,
		Uid:   uid,
		Gid:   gid,
	})
	root.parent = fuseops.RootInodeID
	fs.inodes[fuseops.RootInodeID] = root

	// Set up invariant checking.
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	return fs
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func (fs *memFS) checkInvariants() {
	// Check reserved inodes.
	for i := 0; i < fuseops.RootInodeID; i++ {
		if fs.inodes[i] != nil {
			panic(fmt.Sprintf("Non-nil inode for ID: %v", i))
		}
	}

	// Check the root inode.
	if fs.inodes[fuseops.RootInodeID] == nil {
		panic("Missing root inode.")
	}

	// Check inodes, building our own set of free IDs.
	freeIDsEncountered := make(map[fuseops.InodeID]struct{})
	for i := fuseops.RootInodeID + 1; i < len(fs.inodes); i++ {
		in := fs.inodes[i]
		if in == nil {
			freeIDsEncountered[fuseops.InodeID(i)] = struct{}{}
			continue
		}

		if in.id != fuseops.InodeID(i) {
			panic(fmt.Sprintf("Inode %d stored at index %d", in.id, i))
		}
	}

	// Check fs.freeInodes.
	if len(fs.freeInodes) != len(freeIDsEncountered) {
		panic(
			fmt.Sprintf(
				"Length mismatch: %v vs. %v",
				len(fs.freeInodes),
				len(freeIDsEncountered)))
	}

	for _, id := range fs.freeInodes {
		if _, ok := freeIDsEncountered[id]; !ok {
			panic(fmt.Sprintf("Unexected free inode ID: %v", id))
		}
	}
}

// Panic if not a live inode.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *memFS) getInodeOrDie(id fuseops.InodeID) (in *inode) {
	if id >= fuseops.InodeID(len(fs.inodes)) {
		panic(fmt.Sprintf("Inode out of range: %v vs. %v", id, len(fs.inodes)))
	}

	in = fs.inodes[id]
	if in == nil {
		panic(fmt.Sprintf("Dead inode requested: %v", id))
	}

	return
}

// Return the directory with the given ID, failing with ENOTDIR if the inode
// is something else.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *memFS) getDir(id fuseops.InodeID) (in *inode, err error) {
	in = fs.getInodeOrDie(id)

	in.mu.Lock()
	isDir := in.isDir()
	in.mu.Unlock()

	if !isDir {
		err = lowfuse.ENOTDIR
	}

	return
}

// Allocate a new inode, assigning it an ID that is not in use.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *memFS) allocateInode(
	hdr fuseops.OpHeader,
	attrs fuseops.Attr) (in *inode) {
	attrs.Uid = hdr.Uid
	attrs.Gid = hdr.Gid

	// Re-use a free ID if possible. Otherwise mint a new one.
	var id fuseops.InodeID
	if numFree := len(fs.freeInodes); numFree != 0 {
		id = fs.freeInodes[numFree-1]
		fs.freeInodes = fs.freeInodes[:numFree-1]
	} else {
		id = fuseops.InodeID(len(fs.inodes))
		fs.inodes = append(fs.inodes, nil)
	}

	in = newInode(fs.clock, id, attrs)
	fs.inodes[id] = in

	return
}

// Release the inode if it has neither names nor kernel references left.
//
// LOCKS_REQUIRED(fs.mu)
// LOCKS_REQUIRED(in.mu)
func (fs *memFS) maybeDeallocate(in *inode) {
	if in.id == fuseops.RootInodeID || in.attrs.Nlink != 0 || in.lookupCount != 0 {
		return
	}

	fs.inodes[in.id] = nil
	fs.freeInodes = append(fs.freeInodes, in.id)
}

// Return an entry for the inode, counting it as a lookup.
//
// LOCKS_REQUIRED(in.mu)
func (fs *memFS) lookedUp(in *inode) (e fuseops.EntryParam) {
	in.lookupCount++

	e.Ino = in.id
	e.Attr = in.attrs
	e.AttrTimeout = cacheTimeout
	e.EntryTimeout = cacheTimeout

	return
}

// Create a child of the directory with the given attributes, failing with
// EEXIST if the name is taken. target is the target for symlinks, and nil
// otherwise.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *memFS) createChild(
	hdr fuseops.OpHeader,
	parentID fuseops.InodeID,
	name []byte,
	attrs fuseops.Attr,
	target []byte) (e fuseops.EntryParam, err error) {
	parent, err := fs.getDir(parentID)
	if err != nil {
		return
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	// Ensure that the name doesn't already exist, so we don't wind up with a
	// duplicate.
	if _, exists := parent.LookUpChild(name); exists {
		err = lowfuse.EEXIST
		return
	}

	// Set up the child.
	child := fs.allocateInode(hdr, attrs)
	child.target = append([]byte(nil), target...)
	if child.isDir() {
		child.parent = parentID
		parent.attrs.Nlink++
	}

	// Add an entry in the parent.
	parent.AddChild(child.id, name, child.fileType())

	child.mu.Lock()
	e = fs.lookedUp(child)
	child.mu.Unlock()

	return
}

// Drop nlookup kernel references to the inode.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *memFS) forget(id fuseops.InodeID, nlookup uint64) {
	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	if nlookup > in.lookupCount {
		panic(fmt.Sprintf(
			"Forgetting %d references to inode %d with only %d",
			nlookup,
			id,
			in.lookupCount))
	}

	in.lookupCount -= nlookup
	fs.maybeDeallocate(in)
}

// Return the regular file with the given ID.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *memFS) getFile(id fuseops.InodeID) (in *inode, err error) {
	in = fs.getInodeOrDie(id)

	in.mu.Lock()
	t := in.fileType()
	in.mu.Unlock()

	switch t {
	case fuseops.RegularFile:
	case fuseops.Directory:
		err = unix.EISDIR
	default:
		err = lowfuse.EINVAL
	}

	return
}

////////////////////////////////////////////////////////////////////////
// FileSystem methods
////////////////////////////////////////////////////////////////////////

func (fs *memFS) Init(
	ctx context.Context,
	conn *fuseops.ConnInfo) (err error) {
	return
}

func (fs *memFS) Lookup(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parentID fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Grab the parent directory.
	parent, err := fs.getDir(parentID)
	if err != nil {
		return
	}

	// Does the directory have an entry with the given name?
	parent.mu.Lock()
	childID, ok := parent.LookUpChild(name)
	parent.mu.Unlock()

	if !ok {
		err = lowfuse.ENOENT
		return
	}

	// Look up the child.
	child := fs.getInodeOrDie(childID)

	child.mu.Lock()
	defer child.mu.Unlock()

	e = fs.lookedUp(child)
	return
}

func (fs *memFS) Forget(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	nlookup uint64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.forget(id, nlookup)
}

func (fs *memFS) ForgetMulti(
	ctx context.Context,
	hdr fuseops.OpHeader,
	forgets []fuseops.ForgetData) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, f := range forgets {
		fs.forget(f.Ino, f.Nlookup)
	}
}

func (fs *memFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (attr fuseops.Attr, timeout time.Duration, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	attr = in.attrs
	timeout = cacheTimeout

	return
}

func (fs *memFS) SetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	attr *fuseops.Attr,
	toSet fuseops.SetAttrMask,
	fi *fuseops.FileInfo) (out fuseops.Attr, timeout time.Duration, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	// Only regular files can be truncated.
	if toSet.Has(fuseops.SetAttrSize) {
		switch {
		case in.isDir():
			err = unix.EISDIR
			return

		case !in.isFile():
			err = lowfuse.EINVAL
			return
		}
	}

	in.SetAttributes(attr, toSet)

	out = in.attrs
	timeout = cacheTimeout

	return
}

func (fs *memFS) MkDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parentID fuseops.InodeID,
	name []byte,
	mode uint32) (e fuseops.EntryParam, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err = fs.createChild(hdr, parentID, name, fuseops.Attr{
		Mode:  unix.S_IFDIR | mode&^unix.S_IFMT,
		Nlink: 2,
	}, nil)

	return
}

func (fs *memFS) MkNod(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parentID fuseops.InodeID,
	name []byte,
	mode uint32,
	rdev uint64) (e fuseops.EntryParam, err error) {
	// Directories and symlinks have their own operations.
	t, ok := fuseops.FileTypeFromMode(mode)
	if !ok || t == fuseops.Directory || t == fuseops.SymbolicLink {
		err = lowfuse.EINVAL
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	attrs := fuseops.Attr{
		Mode:  mode,
		Nlink: 1,
	}

	if t == fuseops.BlockDevice || t == fuseops.CharacterDevice {
		attrs.Rdev = rdev
	}

	e, err = fs.createChild(hdr, parentID, name, attrs, nil)
	return
}

func (fs *memFS) Create(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parentID fuseops.InodeID,
	name []byte,
	mode uint32,
	fi *fuseops.FileInfo) (e fuseops.EntryParam, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err = fs.createChild(hdr, parentID, name, fuseops.Attr{
		Mode:  unix.S_IFREG | mode&^unix.S_IFMT,
		Nlink: 1,
	}, nil)

	return
}

func (fs *memFS) Symlink(
	ctx context.Context,
	hdr fuseops.OpHeader,
	target []byte,
	parentID fuseops.InodeID,
	name []byte) (e fuseops.EntryParam, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, err = fs.createChild(hdr, parentID, name, fuseops.Attr{
		Mode:  unix.S_IFLNK | 0777,
		Nlink: 1,
		Size:  uint64(len(target)),
	}, target)

	return
}

func (fs *memFS) ReadLink(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID) (target []byte, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.isSymlink() {
		err = lowfuse.EINVAL
		return
	}

	target = append([]byte(nil), in.target...)
	return
}

func (fs *memFS) Link(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	newParentID fuseops.InodeID,
	newName []byte) (e fuseops.EntryParam, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := fs.getDir(newParentID)
	if err != nil {
		return
	}

	target := fs.getInodeOrDie(id)

	target.mu.Lock()
	defer target.mu.Unlock()

	// Directories can't be hard linked.
	if target.isDir() {
		err = lowfuse.EPERM
		return
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	if _, exists := parent.LookUpChild(newName); exists {
		err = lowfuse.EEXIST
		return
	}

	parent.AddChild(target.id, newName, target.fileType())

	target.attrs.Nlink++
	target.touchCtime()

	e = fs.lookedUp(target)
	return
}

func (fs *memFS) Unlink(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parentID fuseops.InodeID,
	name []byte) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := fs.getDir(parentID)
	if err != nil {
		return
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	childID, ok := parent.LookUpChild(name)
	if !ok {
		err = lowfuse.ENOENT
		return
	}

	child := fs.getInodeOrDie(childID)

	child.mu.Lock()
	defer child.mu.Unlock()

	if child.isDir() {
		err = unix.EISDIR
		return
	}

	parent.RemoveChild(name)

	child.attrs.Nlink--
	child.touchCtime()
	fs.maybeDeallocate(child)

	return
}

func (fs *memFS) RmDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	parentID fuseops.InodeID,
	name []byte) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := fs.getDir(parentID)
	if err != nil {
		return
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	childID, ok := parent.LookUpChild(name)
	if !ok {
		err = lowfuse.ENOENT
		return
	}

	child := fs.getInodeOrDie(childID)

	child.mu.Lock()
	defer child.mu.Unlock()

	if !child.isDir() {
		err = lowfuse.ENOTDIR
		return
	}

	// Make sure the child is empty.
	if child.Len() != 0 {
		err = lowfuse.ENOTEMPTY
		return
	}

	parent.RemoveChild(name)
	parent.attrs.Nlink--

	child.attrs.Nlink = 0
	child.touchCtime()
	fs.maybeDeallocate(child)

	return
}

func (fs *memFS) Rename(
	ctx context.Context,
	hdr fuseops.OpHeader,
	oldParentID fuseops.InodeID,
	oldName []byte,
	newParentID fuseops.InodeID,
	newName []byte,
	flags uint32) (err error) {
	if flags&^unix.RENAME_NOREPLACE != 0 {
		err = lowfuse.EINVAL
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	oldParent, err := fs.getDir(oldParentID)
	if err != nil {
		return
	}

	newParent, err := fs.getDir(newParentID)
	if err != nil {
		return
	}

	// Lock both parents, taking care not to lock the same one twice.
	oldParent.mu.Lock()
	defer oldParent.mu.Unlock()

	if newParent != oldParent {
		newParent.mu.Lock()
		defer newParent.mu.Unlock()
	}

	// Find the child.
	childID, ok := oldParent.LookUpChild(oldName)
	if !ok {
		err = lowfuse.ENOENT
		return
	}

	child := fs.getInodeOrDie(childID)

	child.mu.Lock()
	defer child.mu.Unlock()

	// Deal with an existing entry at the destination.
	if existingID, ok := newParent.LookUpChild(newName); ok {
		if flags&unix.RENAME_NOREPLACE != 0 {
			err = lowfuse.EEXIST
			return
		}

		// Renaming a name onto another name for the same inode does nothing.
		if existingID == childID {
			return
		}

		existing := fs.getInodeOrDie(existingID)

		existing.mu.Lock()
		defer existing.mu.Unlock()

		switch {
		case existing.isDir() && !child.isDir():
			err = unix.EISDIR
			return

		case !existing.isDir() && child.isDir():
			err = lowfuse.ENOTDIR
			return

		case existing.isDir() && existing.Len() != 0:
			err = lowfuse.ENOTEMPTY
			return
		}

		newParent.RemoveChild(newName)
		if existing.isDir() {
			newParent.attrs.Nlink--
			existing.attrs.Nlink = 0
		} else {
			existing.attrs.Nlink--
		}

		existing.touchCtime()
		fs.maybeDeallocate(existing)
	}

	// Move the entry.
	oldParent.RemoveChild(oldName)
	newParent.AddChild(childID, newName, child.fileType())
	child.touchCtime()

	if child.isDir() && newParent != oldParent {
		oldParent.attrs.Nlink--
		newParent.attrs.Nlink++
		child.parent = newParentID
	}

	return
}

func (fs *memFS) Open(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi fuseops.FileInfo) (out fuseops.FileInfo, err error) {
	out = fi

	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := fs.getFile(id)
	if err != nil {
		return
	}

	if fi.Flags&unix.O_TRUNC != 0 {
		in.mu.Lock()
		in.resize(0)
		in.touchMtime()
		in.mu.Unlock()
	}

	return
}

func (fs *memFS) Read(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (data []byte, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := fs.getFile(id)
	if err != nil {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	data = in.ReadAt(size, off)
	return
}

func (fs *memFS) Write(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	data []byte,
	off int64,
	fi *fuseops.FileInfo) (n int, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := fs.getFile(id)
	if err != nil {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	n = in.WriteAt(data, off)
	return
}

func (fs *memFS) Flush(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (err error) {
	return
}

func (fs *memFS) Release(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	fi *fuseops.FileInfo) (err error) {
	return
}

func (fs *memFS) Fsync(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	datasync bool,
	fi *fuseops.FileInfo) (err error) {
	return
}

func (fs *memFS) ReadDir(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (entries []fuseops.DirEntry, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	d, err := fs.getDir(id)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entries = d.Listing()
	return
}

func (fs *memFS) ReadDirPlus(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int,
	off int64,
	fi *fuseops.FileInfo) (entries []fuseops.DirEntry, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	d, err := fs.getDir(id)
	if err != nil {
		return
	}

	d.mu.Lock()
	entries = d.Listing()
	d.mu.Unlock()

	// The kernel counts each child it receives as looked up.
	for _, e := range fuseutil.PageEntries(entries, off, size, true) {
		name := string(e.Name)
		if name == "." || name == ".." || e.Ino == 0 {
			continue
		}

		child := fs.getInodeOrDie(e.Ino)
		child.mu.Lock()
		child.lookupCount++
		child.mu.Unlock()
	}

	return
}

func (fs *memFS) StatFS(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID) (s fuseops.StatFS, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var used uint64
	for _, in := range fs.inodes {
		if in == nil {
			continue
		}

		in.mu.Lock()
		used += (uint64(len(in.contents)) + blockSize - 1) / blockSize
		in.mu.Unlock()
	}

	const totalBlocks = 1 << 20
	const totalFiles = 1 << 20
	files := uint64(len(fs.inodes) - len(fs.freeInodes) - fuseops.RootInodeID)

	s = fuseops.StatFS{
		Bsize:   blockSize,
		Frsize:  blockSize,
		Blocks:  totalBlocks,
		Bfree:   totalBlocks - min(used, totalBlocks),
		Bavail:  totalBlocks - min(used, totalBlocks),
		Files:   totalFiles,
		Ffree:   totalFiles - files,
		Favail:  totalFiles - files,
		Namemax: 255,
	}

	return
}

func (fs *memFS) SetXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	name []byte,
	value []byte,
	flags int) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	_, exists := in.xattrs[string(name)]
	switch {
	case flags&unix.XATTR_CREATE != 0 && exists:
		err = lowfuse.EEXIST
		return

	case flags&unix.XATTR_REPLACE != 0 && !exists:
		err = lowfuse.ENOATTR
		return
	}

	in.xattrs[string(name)] = append([]byte(nil), value...)
	in.touchCtime()

	return
}

func (fs *memFS) GetXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	name []byte,
	size int) (value []byte, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	value, ok := in.xattrs[string(name)]
	if !ok {
		err = lowfuse.ENOATTR
		return
	}

	value = append([]byte(nil), value...)
	return
}

func (fs *memFS) ListXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	size int) (names []byte, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	names = in.XattrNames()
	return
}

func (fs *memFS) RemoveXattr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	name []byte) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.getInodeOrDie(id)

	in.mu.Lock()
	defer in.mu.Unlock()

	if _, ok := in.xattrs[string(name)]; !ok {
		err = lowfuse.ENOATTR
		return
	}

	delete(in.xattrs, string(name))
	in.touchCtime()

	return
}

func (fs *memFS) Fallocate(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	mode int,
	offset int64,
	length int64,
	fi *fuseops.FileInfo) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := fs.getFile(id)
	if err != nil {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	err = in.Fallocate(mode, offset, length)
	return
}

func (fs *memFS) Lseek(
	ctx context.Context,
	hdr fuseops.OpHeader,
	id fuseops.InodeID,
	off int64,
	whence int,
	fi *fuseops.FileInfo) (pos int64, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := fs.getFile(id)
	if err != nil {
		return
	}

	in.mu.Lock()
	size := int64(len(in.contents))
	in.mu.Unlock()

	// The file has no holes: all of it is data, followed by the implicit hole
	// at the end.
	switch {
	case whence != unix.SEEK_DATA && whence != unix.SEEK_HOLE:
		err = lowfuse.EINVAL

	case off < 0 || off >= size:
		err = unix.ENXIO

	case whence == unix.SEEK_DATA:
		pos = off

	default:
		pos = size
	}

	return
}
