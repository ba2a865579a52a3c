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

package lowfuse_test

import (
	"syscall"
	"testing"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fusetesting"
	"github.com/jacobsa/lowfuse/internal/fakekernel"
	"github.com/jacobsa/lowfuse/internal/fusekernel"
	"github.com/jacobsa/lowfuse/lowlevel"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"golang.org/x/sys/unix"
)

func TestServe(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

// Serves a cannedFS through a real session reading from a fake kernel.
type ServeTest struct {
	fs  *cannedFS
	dev *fakekernel.Device
}

func init() { RegisterTestSuite(&ServeTest{}) }

func (t *ServeTest) SetUp(ti *TestInfo) {
	t.fs = &cannedFS{}
	t.dev = fakekernel.NewDevice()
	t.dev.QueueInit(fusekernel.ProtoVersionMaxMinor, 0xffffffff)
}

// Serve everything queued with the operations in mask.
func (t *ServeTest) serve(mask lowfuse.OpFlag) {
	s := lowlevel.NewSession(lowfuse.NewOps[*cannedFS](mask), t.fs, nil)
	s.Attach(t.dev)

	AssertEq(nil, s.Loop())
	AssertEq(nil, s.Destroy())
}

func (t *ServeTest) reply(unique uint64) fakekernel.Reply {
	r, err := t.dev.Reply(unique)
	AssertEq(nil, err)

	return r
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *ServeTest) DisabledOperationsNeverReachTheFileSystem() {
	getattr := t.dev.Queue(
		fusekernel.OpGetattr,
		2,
		fakekernel.Bytes(&fusekernel.GetattrIn{}))

	mkdir := t.dev.Queue(
		fusekernel.OpMkdir,
		1,
		fakekernel.Bytes(&fusekernel.MkdirIn{Mode: 0755}),
		fakekernel.Name("dir"))

	lookup := t.dev.Queue(fusekernel.OpLookup, 1, fakekernel.Name("hello"))

	t.serve(lowfuse.OpLookup)

	ExpectEq(syscall.ENOSYS, t.reply(getattr).Errno())
	ExpectEq(syscall.ENOSYS, t.reply(mkdir).Errno())
	ExpectEq(0, t.reply(lookup).Errno())

	// Not even Init or Destroy, which weren't asked for.
	ExpectThat(t.fs.Calls(), ElementsAre("Lookup"))
}

func (t *ServeTest) LookupMissing() {
	unique := t.dev.Queue(fusekernel.OpLookup, 1, fakekernel.Name("nope"))
	t.serve(lowfuse.OpLookup)

	ExpectEq(syscall.ENOENT, t.reply(unique).Errno())
}

func (t *ServeTest) LookupEntry() {
	unique := t.dev.Queue(fusekernel.OpLookup, 1, fakekernel.Name("hello"))
	t.serve(lowfuse.OpLookup)

	r := t.reply(unique)
	AssertEq(0, r.Errno())

	out := fakekernel.Decode[fusekernel.EntryOut](r.Body)
	ExpectEq(2, out.Nodeid)
	ExpectEq(1, out.EntryValid)
	ExpectEq(500_000_000, out.EntryValidNsec)
	ExpectEq(1, out.AttrValid)
	ExpectEq(0, out.AttrValidNsec)
	ExpectEq(13, out.Attr.Size)
	ExpectEq(unix.S_IFREG|0644, out.Attr.Mode)
}

func (t *ServeTest) HelloListing() {
	t.fs.entries = []fuseops.DirEntry{
		{Name: []byte("."), Type: fuseops.Directory, Ino: 1},
		{Name: []byte(".."), Type: fuseops.Directory, Ino: 1},
		{Name: []byte("hello"), Type: fuseops.RegularFile, Ino: 2},
	}

	opendir := t.dev.Queue(fusekernel.OpOpendir, 1, fakekernel.Bytes(&fusekernel.OpenIn{}))
	readdir := t.dev.Queue(
		fusekernel.OpReaddir,
		1,
		fakekernel.Bytes(&fusekernel.ReadIn{Size: 4096}))

	t.serve(lowfuse.OpInit | lowfuse.OpReaddir)

	// No OpenDir method, so the session opens with handle zero itself.
	ExpectEq(0, t.reply(opendir).Errno())

	r := t.reply(readdir)
	AssertEq(0, r.Errno())

	entries, err := fusetesting.ParseDirents(r.Body, false)
	AssertEq(nil, err)
	AssertEq(3, len(entries))
	ExpectEq(".", entries[0].Name)
	ExpectEq("..", entries[1].Name)
	ExpectEq("hello", entries[2].Name)

	ExpectThat(t.fs.Calls(), ElementsAre("Init", "ReadDir"))
}

func (t *ServeTest) InitMaxWrite() {
	t.fs.initMaxWrite = 64 << 10
	t.serve(lowfuse.OpInit)

	r := t.reply(1)
	AssertEq(0, r.Errno())

	out := fakekernel.Decode[fusekernel.InitOut](r.Body)
	ExpectEq(64<<10, out.MaxWrite)
	ExpectEq(16, out.MaxPages)
}

func (t *ServeTest) DestroyAtTeardown() {
	t.serve(lowfuse.OpInit | lowfuse.OpDestroy)
	ExpectThat(t.fs.Calls(), ElementsAre("Init", "Destroy"))
}
