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

package statfs_test

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/samples"
	"github.com/jacobsa/lowfuse/samples/statfs"
	. "github.com/jacobsa/ogletest"
	"golang.org/x/sys/unix"
)

func TestStatFS(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type StatFSTest struct {
	samples.SampleTest
	fs statfs.FS
}

var _ SetUpInterface = &StatFSTest{}
var _ TearDownInterface = &StatFSTest{}

func init() { RegisterTestSuite(&StatFSTest{}) }

func (t *StatFSTest) SetUp(ti *TestInfo) {
	// Create the file system.
	t.fs = statfs.New()
	t.FileSystem = t.fs
	t.Mask = statfs.Mask
	t.SampleTest.SetUp(ti)
}

func (t *StatFSTest) TearDown() {
	t.SampleTest.TearDown()
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *StatFSTest) ZeroValues() {
	// Call without configuring a canned response, meaning the kernel will see
	// the zero value for each field.
	stat, errno := t.Kernel.StatFS(1)
	AssertEq(0, errno)

	ExpectEq(0, stat.Bsize)
	ExpectEq(0, stat.Frsize)
	ExpectEq(0, stat.Blocks)
	ExpectEq(0, stat.Bfree)
	ExpectEq(0, stat.Bavail)
	ExpectEq(0, stat.Files)
	ExpectEq(0, stat.Ffree)
	ExpectEq(0, stat.Namemax)
}

func (t *StatFSTest) NonZeroValues() {
	// Set up the canned response.
	canned := fuseops.StatFS{
		Bsize:  1 << 15,
		Frsize: 1 << 12,

		Blocks: 1<<51 + 3,
		Bfree:  1<<43 + 5,
		Bavail: 1<<41 + 7,

		Files:  1<<59 + 11,
		Ffree:  1<<58 + 13,
		Favail: 1<<57 + 17,

		Namemax: 255,
	}

	t.fs.SetStatFSResponse(canned)

	// Stat.
	stat, errno := t.Kernel.StatFS(1)
	AssertEq(0, errno)

	ExpectEq(canned.Bsize, stat.Bsize)
	ExpectEq(canned.Frsize, stat.Frsize)
	ExpectEq(canned.Blocks, stat.Blocks)
	ExpectEq(canned.Bfree, stat.Bfree)
	ExpectEq(canned.Bavail, stat.Bavail)
	ExpectEq(canned.Files, stat.Files)
	ExpectEq(canned.Ffree, stat.Ffree)
	ExpectEq(canned.Favail, stat.Favail)
	ExpectEq(canned.Namemax, stat.Namemax)
}

func (t *StatFSTest) BlockSizesPassThroughUnchanged() {
	// Rounding block sizes is up to the kernel.
	for i, bsize := range []uint64{0, 1, 511, 513, 4095, 1<<17 + 1, 1 << 30} {
		desc := fmt.Sprintf("Case %d: block size %d", i, bsize)

		t.fs.SetStatFSResponse(fuseops.StatFS{Bsize: bsize, Blocks: 10})

		stat, errno := t.Kernel.StatFS(1)
		AssertEq(0, errno, "%s", desc)
		ExpectEq(bsize, stat.Bsize, "%s", desc)
		ExpectEq(10, stat.Blocks, "%s", desc)
	}
}

func (t *StatFSTest) CannedStat() {
	t.fs.SetStatResponse(fuseops.Attr{
		Mode:    unix.S_IFREG | 0600,
		Size:    17,
		Blksize: 1 << 16,
	})

	e, errno := t.Kernel.Lookup(1, "foo")
	AssertEq(0, errno)
	ExpectEq(2, e.Ino)
	ExpectEq(17, e.Attr.Size)
	ExpectEq(1<<16, e.Attr.Blksize)

	st, errno := t.Kernel.GetAttr(2)
	AssertEq(0, errno)
	ExpectEq(unix.S_IFREG|0600, st.Mode)
	ExpectEq(2, st.Ino)
}

func (t *StatFSTest) OnlyTheRootHasChildren() {
	_, errno := t.Kernel.Lookup(2, "foo")
	ExpectEq(syscall.ENOENT, errno)
}

func (t *StatFSTest) WriteSize() {
	ExpectEq(-1, t.fs.MostRecentWriteSize())

	n, errno := t.Kernel.Write(2, make([]byte, 1<<12), 0)
	AssertEq(0, errno)
	ExpectEq(1<<12, n)
	ExpectEq(1<<12, t.fs.MostRecentWriteSize())

	_, errno = t.Kernel.Write(2, make([]byte, 17), 1<<12)
	AssertEq(0, errno)
	ExpectEq(17, t.fs.MostRecentWriteSize())
}
