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

package samples

import (
	"fmt"
	"syscall"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fusetesting"
	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/lowfuse/lowlevel"
	"github.com/jacobsa/ogletest"
	"github.com/jacobsa/timeutil"
)

// The uid and gid presented as the caller of every operation issued through
// a Kernel.
const (
	TestUid = 1000
	TestGid = 1000
)

// A struct that implements common behavior needed by tests in the samples/
// directory. Use it as an anonymous member of your test fixture, setting
// FileSystem and Mask and then calling its SetUp method from your SetUp
// method. If you define TearDown, call its TearDown method from there.
//
// Operations are driven in-process through the callback table built by
// lowfuse.NewOps, so no mount is needed.
type SampleTest struct {
	// The file system to serve and the operations to expose from it, set by
	// the embedding fixture before calling SetUp.
	FileSystem fuseutil.FileSystem
	Mask       lowfuse.OpFlag

	// A clock with a fixed initial time. The test's set up method may use this
	// to wire the file system with a clock, if desired.
	Clock timeutil.SimulatedClock

	// Issues operations to FileSystem, set up by SetUp.
	Kernel Kernel
}

// Initialize Kernel for t.FileSystem, running the file system's Init method.
func (t *SampleTest) SetUp(ti *ogletest.TestInfo) {
	t.Kernel.Init(t.FileSystem, t.Mask)
}

// Run the file system's Destroy method, if it has one.
func (t *SampleTest) TearDown() {
	t.Kernel.Destroy()
}

// A Kernel sends requests to a file system the way the kernel would, recording
// the replies. Its zero value is ready for Init.
type Kernel struct {
	// The identity presented to the file system. Init sets it to TestUid and
	// TestGid.
	Caller lowlevel.Ctx

	// The callback table, set up by Init.
	Ops *lowlevel.Ops

	// The connection parameters as left by the file system's Init method.
	Conn lowlevel.ConnInfo

	fs fuseutil.FileSystem
}

// Build the callback table for the supplied file system and run its Init
// method.
func (k *Kernel) Init(fs fuseutil.FileSystem, mask lowfuse.OpFlag) {
	k.fs = fs
	k.Caller = lowlevel.Ctx{Uid: TestUid, Gid: TestGid, Pid: 1}
	k.Ops = lowfuse.NewOps[fuseutil.FileSystem](mask)
	k.Conn = lowlevel.ConnInfo{
		ProtoMajor:   7,
		ProtoMinor:   31,
		MaxWrite:     1 << 20,
		MaxReadahead: 128 << 10,
	}

	if k.Ops.Init != nil {
		k.Ops.Init(fs, &k.Conn)
	}
}

// Run the file system's Destroy method, if it has one.
func (k *Kernel) Destroy() {
	if k.Ops != nil && k.Ops.Destroy != nil {
		k.Ops.Destroy(k.fs)
	}
}

// Call runs f against a fresh request and returns the single reply it
// produced. Panics if f did not reply exactly once.
func (k *Kernel) Call(f func(req lowlevel.Req)) fusetesting.Reply {
	req := fusetesting.NewRequest(k.fs)
	req.Caller = k.Caller

	f(req)

	r, err := req.Reply()
	if err != nil {
		panic(err)
	}

	return r
}

func errnoOf(r fusetesting.Reply) syscall.Errno {
	if r.Kind == fusetesting.ErrReply {
		return r.Errno
	}

	return 0
}

////////////////////////////////////////////////////////////////////////
// Operation helpers
////////////////////////////////////////////////////////////////////////

func (k *Kernel) Lookup(
	parent uint64,
	name string) (lowlevel.EntryParam, syscall.Errno) {
	r := k.Call(func(req lowlevel.Req) { k.Ops.Lookup(req, parent, []byte(name)) })
	return r.Entry, errnoOf(r)
}

func (k *Kernel) Forget(ino uint64, nlookup uint64) {
	k.Call(func(req lowlevel.Req) { k.Ops.Forget(req, ino, nlookup) })
}

func (k *Kernel) GetAttr(ino uint64) (lowlevel.Stat, syscall.Errno) {
	r := k.Call(func(req lowlevel.Req) { k.Ops.Getattr(req, ino, nil) })
	return r.Attr, errnoOf(r)
}

func (k *Kernel) SetAttr(
	ino uint64,
	attr lowlevel.Stat,
	toSet int) (lowlevel.Stat, syscall.Errno) {
	r := k.Call(func(req lowlevel.Req) { k.Ops.Setattr(req, ino, &attr, toSet, nil) })
	return r.Attr, errnoOf(r)
}

func (k *Kernel) Mkdir(
	parent uint64,
	name string,
	mode uint32) (lowlevel.EntryParam, syscall.Errno) {
	r := k.Call(func(req lowlevel.Req) { k.Ops.Mkdir(req, parent, []byte(name), mode) })
	return r.Entry, errnoOf(r)
}

func (k *Kernel) Create(
	parent uint64,
	name string,
	mode uint32) (lowlevel.EntryParam, lowlevel.FileInfo, syscall.Errno) {
	fi := lowlevel.FileInfo{Flags: syscall.O_RDWR | syscall.O_CREAT}
	r := k.Call(func(req lowlevel.Req) { k.Ops.Create(req, parent, []byte(name), mode, &fi) })
	return r.Entry, r.FileInfo, errnoOf(r)
}

func (k *Kernel) Open(ino uint64, flags int32) (lowlevel.FileInfo, syscall.Errno) {
	fi := lowlevel.FileInfo{Flags: flags}
	r := k.Call(func(req lowlevel.Req) { k.Ops.Open(req, ino, &fi) })
	return r.FileInfo, errnoOf(r)
}

func (k *Kernel) Read(
	ino uint64,
	size int,
	off int64) ([]byte, syscall.Errno) {
	r := k.Call(func(req lowlevel.Req) { k.Ops.Read(req, ino, size, off, &lowlevel.FileInfo{}) })
	return r.Buf, errnoOf(r)
}

func (k *Kernel) Write(
	ino uint64,
	data []byte,
	off int64) (int, syscall.Errno) {
	r := k.Call(func(req lowlevel.Req) { k.Ops.Write(req, ino, data, off, &lowlevel.FileInfo{}) })
	return r.Count, errnoOf(r)
}

func (k *Kernel) Unlink(parent uint64, name string) syscall.Errno {
	return errnoOf(k.Call(func(req lowlevel.Req) { k.Ops.Unlink(req, parent, []byte(name)) }))
}

func (k *Kernel) Rmdir(parent uint64, name string) syscall.Errno {
	return errnoOf(k.Call(func(req lowlevel.Req) { k.Ops.Rmdir(req, parent, []byte(name)) }))
}

func (k *Kernel) StatFS(ino uint64) (lowlevel.Statvfs, syscall.Errno) {
	r := k.Call(func(req lowlevel.Req) { k.Ops.Statfs(req, ino) })
	return r.Statfs, errnoOf(r)
}

// ReadDir fetches the complete listing of the directory, one page of the
// supplied size at a time, using readdirplus if plus is set.
func (k *Kernel) ReadDir(
	ino uint64,
	size int,
	plus bool) ([]fusetesting.Dirent, error) {
	op := k.Ops.Readdir
	if plus {
		op = k.Ops.Readdirplus
	}

	fetch := func(off int64, size int) ([]byte, error) {
		r := k.Call(func(req lowlevel.Req) { op(req, ino, size, off, &lowlevel.FileInfo{}) })
		if errno := errnoOf(r); errno != 0 {
			return nil, errno
		}

		if r.Kind != fusetesting.BufReply {
			return nil, fmt.Errorf("unexpected reply: %v", r.Kind)
		}

		return r.Buf, nil
	}

	return fusetesting.ReadListing(fetch, size, plus)
}

// ReadDirNames returns the names in the directory, in listing order.
func (k *Kernel) ReadDirNames(ino uint64) ([]string, error) {
	entries, err := k.ReadDir(ino, 4096, false)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}

	return names, nil
}
