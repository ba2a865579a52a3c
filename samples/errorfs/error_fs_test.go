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

package errorfs_test

import (
	"syscall"
	"testing"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/lowlevel"
	"github.com/jacobsa/lowfuse/samples"
	"github.com/jacobsa/lowfuse/samples/errorfs"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
)

func TestErrorFS(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type ErrorFSTest struct {
	samples.SampleTest
	fs errorfs.FS
}

func init() { RegisterTestSuite(&ErrorFSTest{}) }

func (t *ErrorFSTest) SetUp(ti *TestInfo) {
	t.fs = errorfs.New()
	t.FileSystem = t.fs
	t.Mask = errorfs.Mask
	t.SampleTest.SetUp(ti)
}

func (t *ErrorFSTest) TearDown() {
	t.SampleTest.TearDown()
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *ErrorFSTest) NoErrorsByDefault() {
	e, errno := t.Kernel.Lookup(1, "foo")
	AssertEq(0, errno)

	_, errno = t.Kernel.Open(e.Ino, syscall.O_RDONLY)
	AssertEq(0, errno)

	data, errno := t.Kernel.Read(e.Ino, 100, 0)
	AssertEq(0, errno)
	ExpectEq(errorfs.FooContents, string(data))

	names, err := t.Kernel.ReadDirNames(1)
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre(".", "..", "foo"))
}

func (t *ErrorFSTest) OpenFile() {
	t.fs.SetError(lowfuse.OpOpen, syscall.EOWNERDEAD)

	_, errno := t.Kernel.Open(2, syscall.O_RDONLY)
	ExpectEq(syscall.EOWNERDEAD, errno)

	// Other operations are unaffected.
	_, errno = t.Kernel.Lookup(1, "foo")
	ExpectEq(0, errno)
}

func (t *ErrorFSTest) ReadFile() {
	t.fs.SetError(lowfuse.OpRead, syscall.EOWNERDEAD)

	_, errno := t.Kernel.Read(2, 100, 0)
	ExpectEq(syscall.EOWNERDEAD, errno)
}

func (t *ErrorFSTest) ReadDir() {
	t.fs.SetError(lowfuse.OpReaddir, syscall.EOWNERDEAD)

	_, err := t.Kernel.ReadDir(1, 4096, false)
	ExpectEq(syscall.EOWNERDEAD, err)
}

func (t *ErrorFSTest) SeveralOperationsAtOnce() {
	t.fs.SetError(lowfuse.OpLookup|lowfuse.OpGetattr, syscall.EACCES)

	_, errno := t.Kernel.Lookup(1, "foo")
	ExpectEq(syscall.EACCES, errno)

	_, errno = t.Kernel.GetAttr(1)
	ExpectEq(syscall.EACCES, errno)

	_, errno = t.Kernel.Read(2, 100, 0)
	ExpectEq(0, errno)
}

func (t *ErrorFSTest) ClearingAnError() {
	t.fs.SetError(lowfuse.OpGetattr, syscall.EACCES)
	t.fs.SetError(lowfuse.OpGetattr, 0)

	_, errno := t.Kernel.GetAttr(1)
	ExpectEq(0, errno)
}

func (t *ErrorFSTest) FlushAndRelease() {
	t.fs.SetError(lowfuse.OpFlush, syscall.ENOSPC)

	r := t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Flush(req, 2, &lowlevel.FileInfo{}) })
	ExpectEq(syscall.ENOSPC, r.Errno)

	r = t.Kernel.Call(func(req lowlevel.Req) { t.Kernel.Ops.Release(req, 2, &lowlevel.FileInfo{}) })
	ExpectEq(0, r.Errno)
}

func (t *ErrorFSTest) InitErrorIsIgnored() {
	t.fs.SetError(lowfuse.OpInit, syscall.EIO)

	conn := t.Kernel.Conn
	t.Kernel.Ops.Init(t.fs, &conn)
	ExpectTrue(t.Kernel.Conn == conn)

	_, errno := t.Kernel.Lookup(1, "foo")
	ExpectEq(0, errno)
}
