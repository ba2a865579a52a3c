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

package loopbackfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/jacobsa/lowfuse/fuseops"
	"golang.org/x/sys/unix"
)

type Inode interface {
	Id() fuseops.InodeID
	Path() string
	String() string
	Attributes() (fuseops.Attr, error)
	ListChildren(inodes *sync.Map) ([]fuseops.DirEntry, error)
}

// Look up the named child of the parent, registering it under its host inode
// number if this is the first time it has been seen. Returns ENOENT if the
// parent is unknown or the child does not exist.
func getOrCreateInode(
	inodes *sync.Map,
	parentId fuseops.InodeID,
	name string) (Inode, fuseops.Attr, error) {
	parent, found := inodes.Load(parentId)
	if !found {
		return nil, fuseops.Attr{}, syscall.ENOENT
	}

	path := filepath.Join(parent.(Inode).Path(), name)

	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, fuseops.Attr{}, err
	}

	entry := &inodeEntry{
		id:   fuseops.InodeID(st.Ino),
		path: path,
	}

	stored, _ := inodes.LoadOrStore(entry.id, entry)
	in := stored.(*inodeEntry)

	// The host may have moved the file; follow it.
	if in.path != path {
		in = &inodeEntry{id: in.id, path: path}
		inodes.Store(in.id, in)
	}

	attr := fuseops.AttrFromNative(&st)
	attr.Ino = uint64(in.id)

	return in, attr, nil
}

type inodeEntry struct {
	id   fuseops.InodeID
	path string
}

var _ Inode = &inodeEntry{}

func (in *inodeEntry) Id() fuseops.InodeID {
	return in.id
}

func (in *inodeEntry) Path() string {
	return in.path
}

func (in *inodeEntry) String() string {
	return fmt.Sprintf("%v::%v", in.id, in.path)
}

func (in *inodeEntry) Attributes() (attr fuseops.Attr, err error) {
	var st unix.Stat_t
	if err = unix.Lstat(in.path, &st); err != nil {
		return
	}

	attr = fuseops.AttrFromNative(&st)
	attr.Ino = uint64(in.id)
	return
}

// ListChildren returns ".", ".." and then the children in name order.
func (in *inodeEntry) ListChildren(inodes *sync.Map) ([]fuseops.DirEntry, error) {
	children, err := os.ReadDir(in.path)
	if err != nil {
		return nil, err
	}

	entries := []fuseops.DirEntry{
		{Name: []byte("."), Type: fuseops.Directory, Ino: in.id},
		{Name: []byte(".."), Type: fuseops.Directory, Ino: in.id},
	}

	for _, child := range children {
		childInode, attr, err := getOrCreateInode(inodes, in.id, child.Name())

		// Gone since the directory was read.
		if errors.Is(err, syscall.ENOENT) {
			continue
		}

		if err != nil {
			return nil, err
		}

		t, ok := attr.FileType()
		if !ok {
			continue
		}

		entries = append(entries, fuseops.DirEntry{
			Name: []byte(child.Name()),
			Type: t,
			Ino:  childInode.Id(),
		})
	}

	return entries, nil
}
