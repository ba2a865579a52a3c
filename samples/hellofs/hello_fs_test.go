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

package hellofs_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/jacobsa/lowfuse/samples"
	"github.com/jacobsa/lowfuse/samples/hellofs"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"golang.org/x/sys/unix"
)

func TestHelloFS(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type HelloFSTest struct {
	samples.SampleTest
}

func init() { RegisterTestSuite(&HelloFSTest{}) }

func (t *HelloFSTest) SetUp(ti *TestInfo) {
	t.Clock.SetTime(time.Date(2015, 4, 5, 2, 15, 0, 0, time.Local))
	t.FileSystem = &hellofs.HelloFS{Clock: &t.Clock}
	t.Mask = hellofs.Mask
	t.SampleTest.SetUp(ti)
}

func (t *HelloFSTest) TearDown() {
	t.SampleTest.TearDown()
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *HelloFSTest) OnlyMaskedOpsAreFilled() {
	ExpectTrue(t.Kernel.Ops.Lookup != nil)
	ExpectTrue(t.Kernel.Ops.Read != nil)
	ExpectTrue(t.Kernel.Ops.Write == nil)
	ExpectTrue(t.Kernel.Ops.Opendir == nil)
	ExpectTrue(t.Kernel.Ops.Readdirplus == nil)
}

func (t *HelloFSTest) RootAttributes() {
	st, errno := t.Kernel.GetAttr(1)
	AssertEq(0, errno)

	ExpectEq(1, st.Ino)
	ExpectEq(0o040755, st.Mode)
	ExpectEq(1000, st.Uid)
	ExpectEq(1000, st.Gid)
	ExpectEq(4032, st.Blksize)
	ExpectEq(t.Clock.Now().Unix(), st.Mtim.Sec)
}

func (t *HelloFSTest) ReadDir_Root() {
	names, err := t.Kernel.ReadDirNames(1)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", "..", "hello"))
}

func (t *HelloFSTest) ReadDir_SmallPages() {
	entries, err := t.Kernel.ReadDir(1, 40, false)
	AssertEq(nil, err)
	AssertEq(3, len(entries))
	ExpectEq("hello", entries[2].Name)
	ExpectEq(2, entries[2].Ino)
	ExpectEq(unix.DT_REG, entries[2].Type)
}

func (t *HelloFSTest) ReadDir_File() {
	_, err := t.Kernel.ReadDir(2, 4096, false)
	ExpectEq(syscall.ENOTDIR, err)
}

func (t *HelloFSTest) Lookup_Hello() {
	e, errno := t.Kernel.Lookup(1, "hello")
	AssertEq(0, errno)

	ExpectEq(2, e.Ino)
	ExpectEq(2, e.Attr.Ino)
	ExpectEq(0o100644, e.Attr.Mode)
	ExpectEq(13, e.Attr.Size)
	ExpectEq(1, e.Attr.Nlink)
	ExpectEq(1.0, e.AttrTimeout)
	ExpectEq(1.0, e.EntryTimeout)
}

func (t *HelloFSTest) Lookup_Missing() {
	_, errno := t.Kernel.Lookup(1, "goodbye")
	ExpectEq(syscall.ENOENT, errno)
}

func (t *HelloFSTest) Lookup_Dot() {
	_, errno := t.Kernel.Lookup(1, ".")
	ExpectEq(syscall.ENOENT, errno)
}

func (t *HelloFSTest) Lookup_NonDirectoryParent() {
	_, errno := t.Kernel.Lookup(2, "hello")
	ExpectEq(syscall.ENOENT, errno)
}

func (t *HelloFSTest) GetAttr_Missing() {
	_, errno := t.Kernel.GetAttr(17)
	ExpectEq(syscall.ENOENT, errno)
}

func (t *HelloFSTest) Open_ReadOnly() {
	_, errno := t.Kernel.Open(2, syscall.O_RDONLY)
	ExpectEq(0, errno)
}

func (t *HelloFSTest) Open_ForWriting() {
	_, errno := t.Kernel.Open(2, syscall.O_WRONLY)
	ExpectEq(syscall.EACCES, errno)

	_, errno = t.Kernel.Open(2, syscall.O_RDWR)
	ExpectEq(syscall.EACCES, errno)
}

func (t *HelloFSTest) Open_Directory() {
	_, errno := t.Kernel.Open(1, syscall.O_RDONLY)
	ExpectEq(syscall.EISDIR, errno)
}

func (t *HelloFSTest) Read_Whole() {
	data, errno := t.Kernel.Read(2, 4096, 0)
	AssertEq(0, errno)
	ExpectEq(hellofs.Contents, string(data))
}

func (t *HelloFSTest) Read_Ranges() {
	data, errno := t.Kernel.Read(2, 5, 0)
	AssertEq(0, errno)
	ExpectEq("Hello", string(data))

	data, errno = t.Kernel.Read(2, 4096, 6)
	AssertEq(0, errno)
	ExpectEq("World!\n", string(data))

	data, errno = t.Kernel.Read(2, 4096, 13)
	AssertEq(0, errno)
	ExpectEq("", string(data))

	data, errno = t.Kernel.Read(2, 4096, 1000)
	AssertEq(0, errno)
	ExpectEq("", string(data))
}

func (t *HelloFSTest) AttributesFollowClock() {
	t.Clock.AdvanceTime(time.Hour)

	st, errno := t.Kernel.GetAttr(2)
	AssertEq(0, errno)
	ExpectEq(t.Clock.Now().Unix(), st.Mtim.Sec)
	ExpectEq(t.Clock.Now().Unix(), st.Atim.Sec)
}
