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
	"bytes"
	"fmt"
	"sort"

	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
	"golang.org/x/sys/unix"
)

// Common attributes for files and directories.
type inode struct {
	/////////////////////////
	// Dependencies
	/////////////////////////

	clock timeutil.Clock

	/////////////////////////
	// Constant data
	/////////////////////////

	id fuseops.InodeID

	/////////////////////////
	// Mutable state
	/////////////////////////

	mu syncutil.InvariantMutex

	// The current attributes of this inode.
	//
	// INVARIANT: attrs.Ino == id
	// INVARIANT: attrs.Mode has exactly one valid file type
	// INVARIANT: If isFile(), attrs.Size == len(contents)
	// INVARIANT: If isSymlink(), attrs.Size == len(target)
	attrs fuseops.Attr // GUARDED_BY(mu)

	// For directories, the inode of the parent. The root is its own parent.
	//
	// GUARDED_BY(mu)
	parent fuseops.InodeID

	// For directories, entries describing the children of the directory.
	// Unused entries are of type NoFileType.
	//
	// Elements are never moved, so that a listing stays in the same order
	// while a caller is paging through it. Unused entries can be reused.
	//
	// INVARIANT: If !isDir(), len(entries) == 0
	// INVARIANT: Contains no duplicate names in used entries.
	entries []fuseops.DirEntry // GUARDED_BY(mu)

	// For files, the current contents of the file.
	//
	// INVARIANT: If !isFile(), len(contents) == 0
	contents []byte // GUARDED_BY(mu)

	// For symlinks, the target of the symlink.
	//
	// INVARIANT: If !isSymlink(), len(target) == 0
	//
	// GUARDED_BY(mu)
	target []byte

	// Extended attributes.
	//
	// GUARDED_BY(mu)
	xattrs map[string][]byte

	// The number of outstanding kernel references, as counted by lookups and
	// forgets.
	//
	// GUARDED_BY(mu)
	lookupCount uint64
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

// Create a new inode with the supplied attributes, which need not contain
// time-related information (the inode object will take care of that).
func newInode(
	clock timeutil.Clock,
	id fuseops.InodeID,
	attrs fuseops.Attr) (in *inode) {
	// Update time info.
	now := fuseops.TimespecOf(clock.Now())
	attrs.Ino = uint64(id)
	attrs.Atime = now
	attrs.Mtime = now
	attrs.Ctime = now

	// Create the object.
	in = &inode{
		clock:  clock,
		id:     id,
		attrs:  attrs,
		xattrs: make(map[string][]byte),
	}

	in.mu = syncutil.NewInvariantMutex(in.checkInvariants)
	return
}

func (in *inode) checkInvariants() {
	// INVARIANT: attrs.Ino == id
	if in.attrs.Ino != uint64(in.id) {
		panic(fmt.Sprintf("Inode number mismatch: %d vs. %d", in.attrs.Ino, in.id))
	}

	// INVARIANT: attrs.Mode has exactly one valid file type
	if _, ok := in.attrs.FileType(); !ok {
		panic(fmt.Sprintf("Unexpected mode: %o", in.attrs.Mode))
	}

	// INVARIANT: If isFile(), attrs.Size == len(contents)
	if in.isFile() && in.attrs.Size != uint64(len(in.contents)) {
		panic(fmt.Sprintf(
			"Size mismatch: %d vs. %d",
			in.attrs.Size,
			len(in.contents)))
	}

	// INVARIANT: If isSymlink(), attrs.Size == len(target)
	if in.isSymlink() && in.attrs.Size != uint64(len(in.target)) {
		panic(fmt.Sprintf(
			"Size mismatch: %d vs. %d",
			in.attrs.Size,
			len(in.target)))
	}

	// INVARIANT: If !isDir(), len(entries) == 0
	if !in.isDir() && len(in.entries) != 0 {
		panic(fmt.Sprintf("Unexpected entries length: %d", len(in.entries)))
	}

	// INVARIANT: Contains no duplicate names in used entries.
	childNames := make(map[string]struct{})
	for _, e := range in.entries {
		if e.Type != fuseops.NoFileType {
			if _, ok := childNames[string(e.Name)]; ok {
				panic(fmt.Sprintf("Duplicate name: %s", e.Name))
			}

			childNames[string(e.Name)] = struct{}{}
		}
	}

	// INVARIANT: If !isFile(), len(contents) == 0
	if !in.isFile() && len(in.contents) != 0 {
		panic(fmt.Sprintf("Unexpected length: %d", len(in.contents)))
	}

	// INVARIANT: If !isSymlink(), len(target) == 0
	if !in.isSymlink() && len(in.target) != 0 {
		panic(fmt.Sprintf("Unexpected target length: %d", len(in.target)))
	}
}

// LOCKS_REQUIRED(in.mu)
func (in *inode) fileType() fuseops.FileType {
	t, _ := in.attrs.FileType()
	return t
}

// LOCKS_REQUIRED(in.mu)
func (in *inode) isDir() bool {
	return in.fileType() == fuseops.Directory
}

// LOCKS_REQUIRED(in.mu)
func (in *inode) isSymlink() bool {
	return in.fileType() == fuseops.SymbolicLink
}

// LOCKS_REQUIRED(in.mu)
func (in *inode) isFile() bool {
	return in.fileType() == fuseops.RegularFile
}

// Find the index of the entry for the given child name.
//
// LOCKS_REQUIRED(in.mu)
func (in *inode) findChild(name []byte) (i int, ok bool) {
	if !in.isDir() {
		panic("findChild called on non-directory.")
	}

	var e fuseops.DirEntry
	for i, e = range in.entries {
		if e.Type != fuseops.NoFileType && bytes.Equal(e.Name, name) {
			ok = true
			return
		}
	}

	return
}

// Record a change to the inode's metadata.
//
// LOCKS_REQUIRED(in.mu)
func (in *inode) touchCtime() {
	in.attrs.Ctime = fuseops.TimespecOf(in.clock.Now())
}

// Record a change to the inode's contents.
//
// LOCKS_REQUIRED(in.mu)
func (in *inode) touchMtime() {
	now := fuseops.TimespecOf(in.clock.Now())
	in.attrs.Mtime = now
	in.attrs.Ctime = now
}

// Resize the file's contents, zero filling any new space.
//
// LOCKS_REQUIRED(in.mu)
func (in *inode) resize(n int) {
	if n <= len(in.contents) {
		in.contents = in.contents[:n]
	} else {
		padding := make([]byte, n-len(in.contents))
		in.contents = append(in.contents, padding...)
	}

	in.attrs.Size = uint64(n)
}

////////////////////////////////////////////////////////////////////////
// Public methods
////////////////////////////////////////////////////////////////////////

// Return the number of children of the directory.
//
// REQUIRES: in.isDir()
// LOCKS_REQUIRED(in.mu)
func (in *inode) Len() (n int) {
	for _, e := range in.entries {
		if e.Type != fuseops.NoFileType {
			n++
		}
	}

	return
}

// Find an entry for the given child name and return its inode ID.
//
// REQUIRES: in.isDir()
// LOCKS_REQUIRED(in.mu)
func (in *inode) LookUpChild(name []byte) (id fuseops.InodeID, ok bool) {
	index, ok := in.findChild(name)
	if ok {
		id = in.entries[index].Ino
	}

	return
}

// Add an entry for a child.
//
// REQUIRES: in.isDir()
// REQUIRES: t != fuseops.NoFileType
// LOCKS_REQUIRED(in.mu)
func (in *inode) AddChild(
	id fuseops.InodeID,
	name []byte,
	t fuseops.FileType) {
	// Update the modification time.
	in.touchMtime()

	// Set up the entry.
	e := fuseops.DirEntry{
		Name: append([]byte(nil), name...),
		Type: t,
		Ino:  id,
	}

	// Look for a gap in which we can insert it.
	for i := range in.entries {
		if in.entries[i].Type == fuseops.NoFileType {
			in.entries[i] = e
			return
		}
	}

	// Append it to the end.
	in.entries = append(in.entries, e)
}

// Remove an entry for a child.
//
// REQUIRES: in.isDir()
// REQUIRES: An entry for the given name exists.
// LOCKS_REQUIRED(in.mu)
func (in *inode) RemoveChild(name []byte) {
	// Update the modification time.
	in.touchMtime()

	// Find the entry.
	i, ok := in.findChild(name)
	if !ok {
		panic(fmt.Sprintf("Unknown child: %s", name))
	}

	// Mark it as unused.
	in.entries[i] = fuseops.DirEntry{Type: fuseops.NoFileType}
}

// Return the listing of the directory: "." and "..", then the children in
// slot order.
//
// REQUIRES: in.isDir()
// LOCKS_REQUIRED(in.mu)
func (in *inode) Listing() (entries []fuseops.DirEntry) {
	if !in.isDir() {
		panic("Listing called on non-directory.")
	}

	entries = append(entries,
		fuseops.DirEntry{Name: []byte("."), Type: fuseops.Directory, Ino: in.id},
		fuseops.DirEntry{Name: []byte(".."), Type: fuseops.Directory, Ino: in.parent})

	for _, e := range in.entries {
		// Skip unused entries.
		if e.Type == fuseops.NoFileType {
			continue
		}

		entries = append(entries, e)
	}

	return
}

// Read up to size bytes of the file's contents at off. A read at or past the
// end of the file returns nothing.
//
// REQUIRES: in.isFile()
// LOCKS_REQUIRED(in.mu)
func (in *inode) ReadAt(size int, off int64) (data []byte) {
	if !in.isFile() {
		panic("ReadAt called on non-file.")
	}

	// Ensure the offset is in range.
	if off >= int64(len(in.contents)) {
		return
	}

	// Read what we can.
	data = in.contents[off:]
	if len(data) > size {
		data = data[:size]
	}

	return append([]byte(nil), data...)
}

// Write to the file's contents, extending it if necessary.
//
// REQUIRES: in.isFile()
// LOCKS_REQUIRED(in.mu)
func (in *inode) WriteAt(p []byte, off int64) (n int) {
	if !in.isFile() {
		panic("WriteAt called on non-file.")
	}

	// Update the modification time.
	in.touchMtime()

	// Ensure that the contents slice is long enough.
	newLen := int(off) + len(p)
	if len(in.contents) < newLen {
		in.resize(newLen)
	}

	// Copy in the data.
	n = copy(in.contents[off:], p)

	// Sanity check.
	if n != len(p) {
		panic(fmt.Sprintf("Unexpected short copy: %v", n))
	}

	return
}

// Update the attributes named by toSet from attr.
//
// REQUIRES: If toSet includes SetAttrSize, in.isFile()
// LOCKS_REQUIRED(in.mu)
func (in *inode) SetAttributes(
	attr *fuseops.Attr,
	toSet fuseops.SetAttrMask) {
	now := fuseops.TimespecOf(in.clock.Now())

	// Truncate?
	if toSet.Has(fuseops.SetAttrSize) {
		in.resize(int(attr.Size))
		in.attrs.Mtime = now
	}

	// Change mode? The file type is fixed.
	if toSet.Has(fuseops.SetAttrMode) {
		in.attrs.Mode = in.attrs.Mode&unix.S_IFMT | attr.Mode&^unix.S_IFMT
	}

	if toSet.Has(fuseops.SetAttrUid) {
		in.attrs.Uid = attr.Uid
	}

	if toSet.Has(fuseops.SetAttrGid) {
		in.attrs.Gid = attr.Gid
	}

	// Change times?
	switch {
	case toSet.Has(fuseops.SetAttrAtimeNow):
		in.attrs.Atime = now
	case toSet.Has(fuseops.SetAttrAtime):
		in.attrs.Atime = attr.Atime
	}

	switch {
	case toSet.Has(fuseops.SetAttrMtimeNow):
		in.attrs.Mtime = now
	case toSet.Has(fuseops.SetAttrMtime):
		in.attrs.Mtime = attr.Mtime
	}

	in.attrs.Ctime = now
	if toSet.Has(fuseops.SetAttrCtime) {
		in.attrs.Ctime = attr.Ctime
	}
}

// Allocate or deallocate space as fallocate(2) does.
//
// REQUIRES: in.isFile()
// LOCKS_REQUIRED(in.mu)
func (in *inode) Fallocate(
	mode int,
	offset int64,
	length int64) (err error) {
	end := offset + length
	switch mode {
	case 0:
		if end > int64(len(in.contents)) {
			in.resize(int(end))
			in.touchMtime()
		}

	case unix.FALLOC_FL_KEEP_SIZE:

	case unix.FALLOC_FL_PUNCH_HOLE | unix.FALLOC_FL_KEEP_SIZE:
		end = min(end, int64(len(in.contents)))
		if offset < end {
			clear(in.contents[offset:end])
			in.touchMtime()
		}

	default:
		err = unix.EOPNOTSUPP
	}

	return
}

// Return the names of the extended attributes, each followed by a NUL, in
// sorted order.
//
// LOCKS_REQUIRED(in.mu)
func (in *inode) XattrNames() []byte {
	names := make([]string, 0, len(in.xattrs))
	for name := range in.xattrs {
		names = append(names, name)
	}

	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte(0)
	}

	return buf.Bytes()
}
