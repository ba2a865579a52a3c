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

package memfs_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fusetesting"
	"github.com/jacobsa/lowfuse/lowlevel"
	"github.com/jacobsa/lowfuse/samples"
	"github.com/jacobsa/lowfuse/samples/memfs"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"golang.org/x/sys/unix"
)

func TestMemFS(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

const rootID = fuseops.RootInodeID

type MemFSTest struct {
	samples.SampleTest
}

var _ SetUpInterface = &MemFSTest{}
var _ TearDownInterface = &MemFSTest{}

func init() { RegisterTestSuite(&MemFSTest{}) }

func (t *MemFSTest) SetUp(ti *TestInfo) {
	// Set up a fixed, non-zero time.
	t.Clock.SetTime(time.Date(2015, 3, 1, 14, 0, 0, 0, time.Local))

	fs := memfs.NewMemFS(samples.TestUid, samples.TestGid, &t.Clock)
	t.FileSystem = fs
	t.Mask = memfs.Mask
	t.SampleTest.SetUp(ti)
}

func (t *MemFSTest) TearDown() {
	t.SampleTest.TearDown()
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

// Create a file with the given contents, returning its inode.
func (t *MemFSTest) createWithContents(
	parent uint64,
	name string,
	contents string) uint64 {
	e, _, errno := t.Kernel.Create(parent, name, 0644)
	AssertEq(0, errno)

	n, errno := t.Kernel.Write(e.Ino, []byte(contents), 0)
	AssertEq(0, errno)
	AssertEq(len(contents), n)

	return e.Ino
}

func (t *MemFSTest) readAll(ino uint64) string {
	data, errno := t.Kernel.Read(ino, 1<<20, 0)
	AssertEq(0, errno)
	return string(data)
}

func (t *MemFSTest) rename(
	parent uint64,
	name string,
	newParent uint64,
	newName string,
	flags uint32) syscall.Errno {
	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Rename(req, parent, []byte(name), newParent, []byte(newName), flags)
	})

	return r.Errno
}

func (t *MemFSTest) setXattr(ino uint64, name string, value string, flags int) syscall.Errno {
	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Setxattr(req, ino, []byte(name), []byte(value), flags)
	})

	return r.Errno
}

func (t *MemFSTest) getXattr(ino uint64, name string, size int) fusetesting.Reply {
	return t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Getxattr(req, ino, []byte(name), size) })
}

func (t *MemFSTest) fallocate(ino uint64, mode int, off int64, length int64) syscall.Errno {
	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Fallocate(req, ino, mode, off, length, &lowlevel.FileInfo{})
	})

	return r.Errno
}

func (t *MemFSTest) lseek(ino uint64, off int64, whence int) fusetesting.Reply {
	return t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Lseek(req, ino, off, whence, &lowlevel.FileInfo{})
	})
}

////////////////////////////////////////////////////////////////////////
// Directories
////////////////////////////////////////////////////////////////////////

func (t *MemFSTest) ContentsOfEmptyFileSystem() {
	names, err := t.Kernel.ReadDirNames(rootID)

	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", ".."))
}

func (t *MemFSTest) RootAttributes() {
	st, errno := t.Kernel.GetAttr(rootID)
	AssertEq(0, errno)

	ExpectThat(st, fusetesting.ModeIs(unix.S_IFDIR|0700))
	ExpectEq(2, st.Nlink)
	ExpectEq(samples.TestUid, st.Uid)
	ExpectEq(samples.TestGid, st.Gid)
}

func (t *MemFSTest) Mkdir_OneLevel() {
	// Simulate time advancing.
	t.Clock.AdvanceTime(time.Second)

	// Create a directory within the root.
	createTime := t.Clock.Now()
	e, errno := t.Kernel.Mkdir(rootID, "dir", 0754)
	AssertEq(0, errno)

	ExpectNe(0, e.Ino)
	ExpectEq(e.Ino, e.Attr.Ino)
	ExpectThat(e.Attr, fusetesting.ModeIs(unix.S_IFDIR|0754))
	ExpectEq(2, e.Attr.Nlink)
	ExpectEq(samples.TestUid, e.Attr.Uid)
	ExpectEq(samples.TestGid, e.Attr.Gid)

	// Simulate time advancing.
	t.Clock.AdvanceTime(time.Second)

	// Stat the directory.
	st, errno := t.Kernel.GetAttr(e.Ino)
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.MtimeIs(createTime))
	ExpectThat(st, fusetesting.SizeIs(0))

	// Check the root's mtime and link count.
	st, errno = t.Kernel.GetAttr(rootID)
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.MtimeIs(createTime))
	ExpectEq(3, st.Nlink)

	// Read the directory.
	names, err := t.Kernel.ReadDirNames(e.Ino)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", ".."))

	// Read the root.
	names, err = t.Kernel.ReadDirNames(rootID)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", "..", "dir"))
}

func (t *MemFSTest) Mkdir_TwoLevels() {
	parent, errno := t.Kernel.Mkdir(rootID, "parent", 0700)
	AssertEq(0, errno)

	child, errno := t.Kernel.Mkdir(parent.Ino, "dir", 0700)
	AssertEq(0, errno)

	entries, err := t.Kernel.ReadDir(child.Ino, 4096, false)
	AssertEq(nil, err)
	AssertEq(2, len(entries))
	ExpectEq(child.Ino, entries[0].Ino)
	ExpectEq(parent.Ino, entries[1].Ino)

	e, errno := t.Kernel.Lookup(parent.Ino, "dir")
	AssertEq(0, errno)
	ExpectEq(child.Ino, e.Ino)
}

func (t *MemFSTest) Mkdir_AlreadyExists() {
	_, errno := t.Kernel.Mkdir(rootID, "dir", 0700)
	AssertEq(0, errno)

	_, errno = t.Kernel.Mkdir(rootID, "dir", 0700)
	ExpectEq(syscall.EEXIST, errno)
}

func (t *MemFSTest) Mkdir_IntermediateIsFile() {
	ino := t.createWithContents(rootID, "foo", "")

	_, errno := t.Kernel.Mkdir(ino, "dir", 0700)
	ExpectEq(syscall.ENOTDIR, errno)
}

func (t *MemFSTest) Rmdir_NonEmpty() {
	parent, errno := t.Kernel.Mkdir(rootID, "foo", 0700)
	AssertEq(0, errno)

	_, errno = t.Kernel.Mkdir(parent.Ino, "bar", 0700)
	AssertEq(0, errno)

	ExpectEq(syscall.ENOTEMPTY, t.Kernel.Rmdir(rootID, "foo"))
}

func (t *MemFSTest) Rmdir_Empty() {
	_, errno := t.Kernel.Mkdir(rootID, "dir", 0700)
	AssertEq(0, errno)

	AssertEq(0, t.Kernel.Rmdir(rootID, "dir"))

	_, errno = t.Kernel.Lookup(rootID, "dir")
	ExpectEq(syscall.ENOENT, errno)

	st, errno := t.Kernel.GetAttr(rootID)
	AssertEq(0, errno)
	ExpectEq(2, st.Nlink)

	names, err := t.Kernel.ReadDirNames(rootID)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", ".."))
}

func (t *MemFSTest) Rmdir_NotADirectory() {
	t.createWithContents(rootID, "foo", "")
	ExpectEq(syscall.ENOTDIR, t.Kernel.Rmdir(rootID, "foo"))
}

func (t *MemFSTest) Rmdir_Missing() {
	ExpectEq(syscall.ENOENT, t.Kernel.Rmdir(rootID, "foo"))
}

func (t *MemFSTest) ReadDir_SlotsAreReused() {
	t.createWithContents(rootID, "foo", "")
	t.createWithContents(rootID, "bar", "")
	t.createWithContents(rootID, "baz", "")

	AssertEq(0, t.Kernel.Unlink(rootID, "bar"))
	t.createWithContents(rootID, "qux", "")

	names, err := t.Kernel.ReadDirNames(rootID)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", "..", "foo", "qux", "baz"))
}

func (t *MemFSTest) ReadDir_SmallPages() {
	for _, name := range []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"} {
		t.createWithContents(rootID, name, "")
	}

	entries, err := t.Kernel.ReadDir(rootID, 64, false)
	AssertEq(nil, err)
	AssertEq(8, len(entries))
	ExpectEq("ffffff", entries[7].Name)
	ExpectEq(unix.DT_REG, entries[7].Type)
}

func (t *MemFSTest) ReadDir_NotADirectory() {
	ino := t.createWithContents(rootID, "foo", "")

	_, err := t.Kernel.ReadDir(ino, 4096, false)
	ExpectEq(syscall.ENOTDIR, err)
}

func (t *MemFSTest) ReadDirPlus_Entries() {
	ino := t.createWithContents(rootID, "foo", "taco")

	entries, err := t.Kernel.ReadDir(rootID, 4096, true)
	AssertEq(nil, err)
	AssertEq(3, len(entries))

	e := entries[2]
	ExpectEq("foo", e.Name)
	ExpectEq(ino, e.Ino)
	AssertTrue(e.Entry != nil)
	ExpectEq(ino, e.Entry.Ino)
	ExpectEq(ino, e.Entry.Attr.Ino)
	ExpectEq(unix.S_IFREG, e.Entry.Attr.Mode)
}

////////////////////////////////////////////////////////////////////////
// Files
////////////////////////////////////////////////////////////////////////

func (t *MemFSTest) CreateNewFile_InRoot() {
	t.Clock.AdvanceTime(time.Second)
	createTime := t.Clock.Now()

	e, fi, errno := t.Kernel.Create(rootID, "foo", 0400)
	AssertEq(0, errno)

	ExpectEq(0, fi.Fh)
	ExpectThat(e.Attr, fusetesting.ModeIs(unix.S_IFREG|0400))
	ExpectThat(e.Attr, fusetesting.SizeIs(0))
	ExpectThat(e.Attr, fusetesting.MtimeIs(createTime))
	ExpectEq(1, e.Attr.Nlink)

	// Look it up again.
	found, errno := t.Kernel.Lookup(rootID, "foo")
	AssertEq(0, errno)
	ExpectEq(e.Ino, found.Ino)
}

func (t *MemFSTest) Create_AlreadyExists() {
	t.createWithContents(rootID, "foo", "")

	_, _, errno := t.Kernel.Create(rootID, "foo", 0644)
	ExpectEq(syscall.EEXIST, errno)
}

func (t *MemFSTest) WriteThenRead() {
	ino := t.createWithContents(rootID, "foo", "taco")

	ExpectEq("taco", t.readAll(ino))

	st, errno := t.Kernel.GetAttr(ino)
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.SizeIs(4))
}

func (t *MemFSTest) WriteAtOffset_ExtendsWithZeroes() {
	ino := t.createWithContents(rootID, "foo", "taco")

	_, errno := t.Kernel.Write(ino, []byte("burrito"), 8)
	AssertEq(0, errno)

	ExpectEq("taco\x00\x00\x00\x00burrito", t.readAll(ino))
}

func (t *MemFSTest) WriteOverwritesInPlace() {
	ino := t.createWithContents(rootID, "foo", "taco burrito")

	_, errno := t.Kernel.Write(ino, []byte("enchilada"), 2)
	AssertEq(0, errno)

	ExpectEq("taenchiladato", t.readAll(ino))
}

func (t *MemFSTest) Write_UpdatesMtime() {
	ino := t.createWithContents(rootID, "foo", "")

	t.Clock.AdvanceTime(time.Minute)
	writeTime := t.Clock.Now()
	_, errno := t.Kernel.Write(ino, []byte("x"), 0)
	AssertEq(0, errno)

	st, errno := t.Kernel.GetAttr(ino)
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.MtimeIs(writeTime))
}

func (t *MemFSTest) ReadRanges() {
	ino := t.createWithContents(rootID, "foo", "taco burrito")

	data, errno := t.Kernel.Read(ino, 4, 5)
	AssertEq(0, errno)
	ExpectEq("burr", string(data))

	data, errno = t.Kernel.Read(ino, 100, 5)
	AssertEq(0, errno)
	ExpectEq("burrito", string(data))

	data, errno = t.Kernel.Read(ino, 100, 12)
	AssertEq(0, errno)
	ExpectEq("", string(data))

	data, errno = t.Kernel.Read(ino, 100, 1000)
	AssertEq(0, errno)
	ExpectEq("", string(data))
}

func (t *MemFSTest) Read_Directory() {
	_, errno := t.Kernel.Read(rootID, 100, 0)
	ExpectEq(syscall.EISDIR, errno)
}

func (t *MemFSTest) Open_Truncates() {
	ino := t.createWithContents(rootID, "foo", "taco")

	_, errno := t.Kernel.Open(ino, syscall.O_RDWR|syscall.O_TRUNC)
	AssertEq(0, errno)

	ExpectEq("", t.readAll(ino))
}

func (t *MemFSTest) Open_Directory() {
	_, errno := t.Kernel.Open(rootID, syscall.O_RDONLY)
	ExpectEq(syscall.EISDIR, errno)
}

func (t *MemFSTest) FlushReleaseAndFsync() {
	ino := t.createWithContents(rootID, "foo", "taco")

	r := t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Flush(req, ino, &lowlevel.FileInfo{}) })
	ExpectEq(0, r.Errno)

	r = t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Fsync(req, ino, 1, &lowlevel.FileInfo{}) })
	ExpectEq(0, r.Errno)

	r = t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Release(req, ino, &lowlevel.FileInfo{}) })
	ExpectEq(0, r.Errno)

	ExpectEq("taco", t.readAll(ino))
}

////////////////////////////////////////////////////////////////////////
// Attributes
////////////////////////////////////////////////////////////////////////

func (t *MemFSTest) Truncate_Smaller() {
	ino := t.createWithContents(rootID, "foo", "taco")

	st, errno := t.Kernel.SetAttr(ino, lowlevel.Stat{Size: 2}, int(fuseops.SetAttrSize))
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.SizeIs(2))

	ExpectEq("ta", t.readAll(ino))
}

func (t *MemFSTest) Truncate_Larger() {
	ino := t.createWithContents(rootID, "foo", "taco")

	st, errno := t.Kernel.SetAttr(ino, lowlevel.Stat{Size: 6}, int(fuseops.SetAttrSize))
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.SizeIs(6))

	ExpectEq("taco\x00\x00", t.readAll(ino))
}

func (t *MemFSTest) Truncate_Directory() {
	_, errno := t.Kernel.SetAttr(rootID, lowlevel.Stat{Size: 6}, int(fuseops.SetAttrSize))
	ExpectEq(syscall.EISDIR, errno)
}

func (t *MemFSTest) Chmod_KeepsFileType() {
	ino := t.createWithContents(rootID, "foo", "")

	st, errno := t.Kernel.SetAttr(ino, lowlevel.Stat{Mode: 0754}, int(fuseops.SetAttrMode))
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.ModeIs(unix.S_IFREG|0754))
}

func (t *MemFSTest) Chown() {
	ino := t.createWithContents(rootID, "foo", "")

	st, errno := t.Kernel.SetAttr(
		ino,
		lowlevel.Stat{Uid: 17, Gid: 19},
		int(fuseops.SetAttrUid|fuseops.SetAttrGid))

	AssertEq(0, errno)
	ExpectEq(17, st.Uid)
	ExpectEq(19, st.Gid)
}

func (t *MemFSTest) Chtimes() {
	ino := t.createWithContents(rootID, "foo", "")
	mtime := time.Date(2012, 8, 15, 22, 56, 0, 0, time.Local)

	st, errno := t.Kernel.SetAttr(
		ino,
		lowlevel.Stat{Mtim: unix.NsecToTimespec(mtime.UnixNano())},
		int(fuseops.SetAttrMtime))

	AssertEq(0, errno)
	ExpectThat(st, fusetesting.MtimeIs(mtime))

	// The change sticks.
	st, errno = t.Kernel.GetAttr(ino)
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.MtimeIs(mtime))
}

func (t *MemFSTest) Chtimes_Now() {
	ino := t.createWithContents(rootID, "foo", "")

	t.Clock.AdvanceTime(time.Hour)
	st, errno := t.Kernel.SetAttr(ino, lowlevel.Stat{}, int(fuseops.SetAttrMtimeNow))

	AssertEq(0, errno)
	ExpectThat(st, fusetesting.MtimeIs(t.Clock.Now()))
}

////////////////////////////////////////////////////////////////////////
// Names
////////////////////////////////////////////////////////////////////////

func (t *MemFSTest) Unlink_File() {
	ino := t.createWithContents(rootID, "foo", "taco")

	AssertEq(0, t.Kernel.Unlink(rootID, "foo"))

	_, errno := t.Kernel.Lookup(rootID, "foo")
	ExpectEq(syscall.ENOENT, errno)

	names, err := t.Kernel.ReadDirNames(rootID)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", ".."))

	// The kernel still holds a reference, so the inode lives on.
	st, errno := t.Kernel.GetAttr(ino)
	AssertEq(0, errno)
	ExpectEq(0, st.Nlink)
	ExpectEq("taco", t.readAll(ino))
}

func (t *MemFSTest) Unlink_Missing() {
	ExpectEq(syscall.ENOENT, t.Kernel.Unlink(rootID, "foo"))
}

func (t *MemFSTest) Unlink_Directory() {
	_, errno := t.Kernel.Mkdir(rootID, "dir", 0700)
	AssertEq(0, errno)

	ExpectEq(syscall.EISDIR, t.Kernel.Unlink(rootID, "dir"))
}

func (t *MemFSTest) Symlink() {
	e, errno := func() (lowlevel.EntryParam, syscall.Errno) {
		r := t.Kernel.Call(func(req lowlevel.Req) {
			t.Kernel.Ops.Symlink(req, []byte("bar/baz"), rootID, []byte("foo"))
		})

		return r.Entry, r.Errno
	}()

	AssertEq(0, errno)
	ExpectThat(e.Attr, fusetesting.ModeIs(unix.S_IFLNK|0777))
	ExpectThat(e.Attr, fusetesting.SizeIs(7))

	r := t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Readlink(req, e.Ino) })
	AssertEq(fusetesting.ReadlinkReply, r.Kind)
	ExpectEq("bar/baz", string(r.Buf))

	entries, err := t.Kernel.ReadDir(rootID, 4096, false)
	AssertEq(nil, err)
	AssertEq(3, len(entries))
	ExpectEq(unix.DT_LNK, entries[2].Type)
}

func (t *MemFSTest) Readlink_NotASymlink() {
	ino := t.createWithContents(rootID, "foo", "")

	r := t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Readlink(req, ino) })
	ExpectEq(syscall.EINVAL, r.Errno)
}

func (t *MemFSTest) Mknod() {
	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Mknod(req, rootID, []byte("fifo"), unix.S_IFIFO|0644, 0)
	})

	AssertEq(fusetesting.EntryReply, r.Kind)
	ExpectThat(r.Entry.Attr, fusetesting.ModeIs(unix.S_IFIFO|0644))

	r = t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Mknod(req, rootID, []byte("tty"), unix.S_IFCHR|0600, 0x0405)
	})

	AssertEq(fusetesting.EntryReply, r.Kind)
	ExpectEq(0x0405, r.Entry.Attr.Rdev)
}

func (t *MemFSTest) Mknod_Directory() {
	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Mknod(req, rootID, []byte("dir"), unix.S_IFDIR|0700, 0)
	})

	ExpectEq(syscall.EINVAL, r.Errno)
}

func (t *MemFSTest) HardLink() {
	ino := t.createWithContents(rootID, "foo", "taco")

	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Link(req, ino, rootID, []byte("bar"))
	})

	AssertEq(fusetesting.EntryReply, r.Kind)
	ExpectEq(ino, r.Entry.Ino)
	ExpectEq(2, r.Entry.Attr.Nlink)

	e, errno := t.Kernel.Lookup(rootID, "bar")
	AssertEq(0, errno)
	ExpectEq(ino, e.Ino)

	// Removing one name leaves the other.
	AssertEq(0, t.Kernel.Unlink(rootID, "foo"))

	st, errno := t.Kernel.GetAttr(ino)
	AssertEq(0, errno)
	ExpectEq(1, st.Nlink)
	ExpectEq("taco", t.readAll(ino))
}

func (t *MemFSTest) HardLink_Directory() {
	dir, errno := t.Kernel.Mkdir(rootID, "dir", 0700)
	AssertEq(0, errno)

	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.Link(req, dir.Ino, rootID, []byte("bar"))
	})

	ExpectEq(syscall.EPERM, r.Errno)
}

func (t *MemFSTest) Rename_WithinDir() {
	ino := t.createWithContents(rootID, "foo", "taco")

	AssertEq(0, t.rename(rootID, "foo", rootID, "bar", 0))

	_, errno := t.Kernel.Lookup(rootID, "foo")
	ExpectEq(syscall.ENOENT, errno)

	e, errno := t.Kernel.Lookup(rootID, "bar")
	AssertEq(0, errno)
	ExpectEq(ino, e.Ino)
}

func (t *MemFSTest) Rename_AcrossDirs() {
	src, errno := t.Kernel.Mkdir(rootID, "src", 0700)
	AssertEq(0, errno)

	dst, errno := t.Kernel.Mkdir(rootID, "dst", 0700)
	AssertEq(0, errno)

	moved, errno := t.Kernel.Mkdir(src.Ino, "moved", 0700)
	AssertEq(0, errno)

	AssertEq(0, t.rename(src.Ino, "moved", dst.Ino, "here", 0))

	st, errno := t.Kernel.GetAttr(src.Ino)
	AssertEq(0, errno)
	ExpectEq(2, st.Nlink)

	st, errno = t.Kernel.GetAttr(dst.Ino)
	AssertEq(0, errno)
	ExpectEq(3, st.Nlink)

	// The moved directory's ".." follows it.
	entries, err := t.Kernel.ReadDir(moved.Ino, 4096, false)
	AssertEq(nil, err)
	AssertEq(2, len(entries))
	ExpectEq(dst.Ino, entries[1].Ino)
}

func (t *MemFSTest) Rename_OverwritesFile() {
	foo := t.createWithContents(rootID, "foo", "taco")
	t.createWithContents(rootID, "bar", "burrito")

	AssertEq(0, t.rename(rootID, "foo", rootID, "bar", 0))

	e, errno := t.Kernel.Lookup(rootID, "bar")
	AssertEq(0, errno)
	ExpectEq(foo, e.Ino)
	ExpectEq("taco", t.readAll(e.Ino))

	names, err := t.Kernel.ReadDirNames(rootID)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", "..", "bar"))
}

func (t *MemFSTest) Rename_NoReplace() {
	t.createWithContents(rootID, "foo", "taco")
	t.createWithContents(rootID, "bar", "burrito")

	ExpectEq(syscall.EEXIST, t.rename(rootID, "foo", rootID, "bar", unix.RENAME_NOREPLACE))
	ExpectEq(0, t.rename(rootID, "foo", rootID, "baz", unix.RENAME_NOREPLACE))
}

func (t *MemFSTest) Rename_Exchange() {
	t.createWithContents(rootID, "foo", "taco")
	t.createWithContents(rootID, "bar", "burrito")

	ExpectEq(syscall.EINVAL, t.rename(rootID, "foo", rootID, "bar", unix.RENAME_EXCHANGE))
}

func (t *MemFSTest) Rename_OntoNonEmptyDir() {
	_, errno := t.Kernel.Mkdir(rootID, "foo", 0700)
	AssertEq(0, errno)

	bar, errno := t.Kernel.Mkdir(rootID, "bar", 0700)
	AssertEq(0, errno)

	t.createWithContents(bar.Ino, "baz", "")

	ExpectEq(syscall.ENOTEMPTY, t.rename(rootID, "foo", rootID, "bar", 0))
}

func (t *MemFSTest) Rename_FileOntoDir() {
	t.createWithContents(rootID, "foo", "")

	_, errno := t.Kernel.Mkdir(rootID, "bar", 0700)
	AssertEq(0, errno)

	ExpectEq(syscall.EISDIR, t.rename(rootID, "foo", rootID, "bar", 0))
}

func (t *MemFSTest) Rename_Missing() {
	ExpectEq(syscall.ENOENT, t.rename(rootID, "foo", rootID, "bar", 0))
}

////////////////////////////////////////////////////////////////////////
// Extended attributes
////////////////////////////////////////////////////////////////////////

func (t *MemFSTest) Xattrs() {
	ino := t.createWithContents(rootID, "foo", "")

	AssertEq(0, t.setXattr(ino, "user.b", "burrito", 0))
	AssertEq(0, t.setXattr(ino, "user.a", "taco", 0))

	// Size query.
	r := t.getXattr(ino, "user.b", 0)
	AssertEq(fusetesting.XattrReply, r.Kind)
	ExpectEq(7, r.Count)

	// Value.
	r = t.getXattr(ino, "user.b", 100)
	AssertEq(fusetesting.BufReply, r.Kind)
	ExpectEq("burrito", string(r.Buf))

	// Too small a buffer.
	r = t.getXattr(ino, "user.b", 3)
	ExpectEq(syscall.ERANGE, r.Errno)

	// Listing.
	r = t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Listxattr(req, ino, 100) })
	AssertEq(fusetesting.BufReply, r.Kind)
	ExpectEq("user.a\x00user.b\x00", string(r.Buf))

	// Removal.
	r = t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Removexattr(req, ino, []byte("user.a")) })
	AssertEq(0, r.Errno)

	r = t.getXattr(ino, "user.a", 100)
	ExpectEq(syscall.ENODATA, r.Errno)
}

func (t *MemFSTest) Xattr_CreateAndReplaceFlags() {
	ino := t.createWithContents(rootID, "foo", "")

	ExpectEq(syscall.ENODATA, t.setXattr(ino, "user.a", "taco", unix.XATTR_REPLACE))
	ExpectEq(0, t.setXattr(ino, "user.a", "taco", unix.XATTR_CREATE))
	ExpectEq(syscall.EEXIST, t.setXattr(ino, "user.a", "taco", unix.XATTR_CREATE))
	ExpectEq(0, t.setXattr(ino, "user.a", "burrito", unix.XATTR_REPLACE))

	r := t.getXattr(ino, "user.a", 100)
	ExpectEq("burrito", string(r.Buf))
}

func (t *MemFSTest) Xattr_RemoveMissing() {
	r := t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Removexattr(req, rootID, []byte("user.a")) })
	ExpectEq(syscall.ENODATA, r.Errno)
}

////////////////////////////////////////////////////////////////////////
// Space and seeking
////////////////////////////////////////////////////////////////////////

func (t *MemFSTest) Fallocate_Extends() {
	ino := t.createWithContents(rootID, "foo", "taco")

	AssertEq(0, t.fallocate(ino, 0, 2, 8))

	st, errno := t.Kernel.GetAttr(ino)
	AssertEq(0, errno)
	ExpectThat(st, fusetesting.SizeIs(10))
	ExpectEq("taco\x00\x00\x00\x00\x00\x00", t.readAll(ino))
}

func (t *MemFSTest) Fallocate_KeepSize() {
	ino := t.createWithContents(rootID, "foo", "taco")

	AssertEq(0, t.fallocate(ino, unix.FALLOC_FL_KEEP_SIZE, 0, 100))
	ExpectEq("taco", t.readAll(ino))
}

func (t *MemFSTest) Fallocate_PunchHole() {
	ino := t.createWithContents(rootID, "foo", "taco burrito")

	AssertEq(0, t.fallocate(ino, unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, 2, 100))
	ExpectEq("ta\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00", t.readAll(ino))
}

func (t *MemFSTest) Fallocate_Unsupported() {
	ino := t.createWithContents(rootID, "foo", "taco")
	ExpectEq(syscall.EOPNOTSUPP, t.fallocate(ino, unix.FALLOC_FL_COLLAPSE_RANGE, 0, 2))
}

func (t *MemFSTest) Lseek() {
	ino := t.createWithContents(rootID, "foo", "taco burrito")

	r := t.lseek(ino, 3, unix.SEEK_DATA)
	AssertEq(fusetesting.LseekReply, r.Kind)
	ExpectEq(3, r.Off)

	r = t.lseek(ino, 3, unix.SEEK_HOLE)
	AssertEq(fusetesting.LseekReply, r.Kind)
	ExpectEq(12, r.Off)

	r = t.lseek(ino, 12, unix.SEEK_DATA)
	ExpectEq(syscall.ENXIO, r.Errno)

	r = t.lseek(ino, 0, unix.SEEK_END)
	ExpectEq(syscall.EINVAL, r.Errno)
}

func (t *MemFSTest) StatFS() {
	before, errno := t.Kernel.StatFS(rootID)
	AssertEq(0, errno)

	ExpectEq(4096, before.Bsize)
	ExpectEq(255, before.Namemax)

	t.createWithContents(rootID, "foo", "taco")

	after, errno := t.Kernel.StatFS(rootID)
	AssertEq(0, errno)
	ExpectEq(before.Ffree-1, after.Ffree)
	ExpectEq(before.Bfree-1, after.Bfree)
}

////////////////////////////////////////////////////////////////////////
// Lookup counts
////////////////////////////////////////////////////////////////////////

func (t *MemFSTest) ForgottenUnlinkedInodeIsReused() {
	ino := t.createWithContents(rootID, "foo", "")
	AssertEq(0, t.Kernel.Unlink(rootID, "foo"))

	// Still referenced by the kernel.
	other := t.createWithContents(rootID, "bar", "")
	ExpectNe(ino, other)

	// Once forgotten, the ID is free again.
	t.Kernel.Forget(ino, 1)

	reused := t.createWithContents(rootID, "baz", "")
	ExpectEq(ino, reused)
}

func (t *MemFSTest) ForgetMulti() {
	foo := t.createWithContents(rootID, "foo", "")
	bar := t.createWithContents(rootID, "bar", "")

	AssertEq(0, t.Kernel.Unlink(rootID, "foo"))
	AssertEq(0, t.Kernel.Unlink(rootID, "bar"))

	r := t.Kernel.Call(func(req lowlevel.Req) {
		t.Kernel.Ops.ForgetMulti(req, []lowlevel.ForgetData{
			{Ino: foo, Nlookup: 1},
			{Ino: bar, Nlookup: 1},
		})
	})

	AssertEq(fusetesting.NoneReply, r.Kind)

	a := t.createWithContents(rootID, "a", "")
	b := t.createWithContents(rootID, "b", "")
	ExpectThat([]uint64{a, b}, ElementsAre(bar, foo))
}

func (t *MemFSTest) ReadDirPlusCountsAsLookup() {
	ino := t.createWithContents(rootID, "foo", "")

	_, err := t.Kernel.ReadDir(rootID, 4096, true)
	AssertEq(nil, err)

	AssertEq(0, t.Kernel.Unlink(rootID, "foo"))

	// One reference remains after forgetting the one from Create.
	t.Kernel.Forget(ino, 1)
	other := t.createWithContents(rootID, "bar", "")
	ExpectNe(ino, other)

	// And now none.
	t.Kernel.Forget(ino, 1)
	reused := t.createWithContents(rootID, "baz", "")
	ExpectEq(ino, reused)
}

func (t *MemFSTest) PlainReadDirIsNotALookup() {
	ino := t.createWithContents(rootID, "foo", "")

	_, err := t.Kernel.ReadDir(rootID, 4096, false)
	AssertEq(nil, err)

	AssertEq(0, t.Kernel.Unlink(rootID, "foo"))
	t.Kernel.Forget(ino, 1)

	reused := t.createWithContents(rootID, "bar", "")
	ExpectEq(ino, reused)
}

func (t *MemFSTest) ForgettingTooMuchIsReportedNotFatal() {
	ino := t.createWithContents(rootID, "foo", "")

	r := t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Forget(req, ino, 17) })
	ExpectEq(fusetesting.NoneReply, r.Kind)

	// The file system is still usable.
	ExpectEq("", t.readAll(ino))
}
