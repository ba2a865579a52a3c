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

package fusetesting

import (
	"context"
	"fmt"
	"sync"
	"syscall"

	"github.com/jacobsa/lowfuse/lowlevel"
)

// The kind of answer recorded by a Request.
type ReplyKind int

const (
	ErrReply ReplyKind = iota
	NoneReply
	EntryReply
	CreateReply
	AttrReply
	ReadlinkReply
	OpenReply
	WriteReply
	BufReply
	StatfsReply
	XattrReply
	LockReply
	BmapReply
	PollReply
	LseekReply
)

var replyKindNames = []string{
	"err",
	"none",
	"entry",
	"create",
	"attr",
	"readlink",
	"open",
	"write",
	"buf",
	"statfs",
	"xattr",
	"lock",
	"bmap",
	"poll",
	"lseek",
}

func (k ReplyKind) String() string {
	if k < 0 || int(k) >= len(replyKindNames) {
		return fmt.Sprintf("ReplyKind(%d)", int(k))
	}

	return replyKindNames[k]
}

// A single answer recorded by a Request. Only the fields relevant to Kind
// are filled in.
type Reply struct {
	Kind ReplyKind

	// ErrReply. Zero for a successful reply without data.
	Errno syscall.Errno

	// EntryReply, CreateReply.
	Entry lowlevel.EntryParam

	// CreateReply, OpenReply.
	FileInfo lowlevel.FileInfo

	// AttrReply.
	Attr    lowlevel.Stat
	Timeout float64

	// ReadlinkReply, BufReply. A copy of the slice given.
	Buf []byte

	// WriteReply, XattrReply.
	Count int

	// StatfsReply.
	Statfs lowlevel.Statvfs

	// LockReply.
	Lock lowlevel.Flock

	// BmapReply.
	Idx uint64

	// PollReply.
	Revents uint32

	// LseekReply.
	Off int64
}

// A lowlevel.Req that records the replies it receives instead of sending
// them anywhere, for driving callbacks directly in tests.
//
// Like the real thing, a Request accepts one reply; later ones return
// lowlevel.ErrAlreadyReplied. Unlike the real thing, they are recorded
// anyway so that tests can detect them.
type Request struct {
	// The caller identity and userdata handed to callbacks.
	Caller lowlevel.Ctx
	Data   any

	// Returned by Context. Defaults to context.Background().
	OpContext context.Context

	mu sync.Mutex

	// GUARDED_BY(mu)
	replies []Reply
	errors  []string
}

var _ lowlevel.Req = &Request{}

// Create a request carrying the supplied userdata.
func NewRequest(userdata any) *Request {
	return &Request{Data: userdata}
}

// Return every reply recorded so far, in order.
//
// LOCKS_EXCLUDED(r.mu)
func (r *Request) Replies() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Reply(nil), r.replies...)
}

// Return the lines written through Errorf.
//
// LOCKS_EXCLUDED(r.mu)
func (r *Request) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.errors...)
}

// LOCKS_EXCLUDED(r.mu)
func (r *Request) Errorf(format string, v ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, fmt.Sprintf(format, v...))
}

// Return the only reply recorded. Fail if there have been zero or several.
//
// LOCKS_EXCLUDED(r.mu)
func (r *Request) Reply() (Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.replies) != 1 {
		return Reply{}, fmt.Errorf("have %d replies, want exactly one", len(r.replies))
	}

	return r.replies[0], nil
}

// Return the errno of the only reply, which must be an ErrReply. Panics
// otherwise.
func (r *Request) Errno() syscall.Errno {
	rep, err := r.Reply()
	if err != nil {
		panic(err)
	}

	if rep.Kind != ErrReply {
		panic(fmt.Sprintf("reply is %v, not err", rep.Kind))
	}

	return rep.Errno
}

// LOCKS_EXCLUDED(r.mu)
func (r *Request) record(rep Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.replies = append(r.replies, rep)
	if len(r.replies) > 1 {
		return lowlevel.ErrAlreadyReplied
	}

	return nil
}

func (r *Request) Ctx() *lowlevel.Ctx {
	return &r.Caller
}

func (r *Request) Context() context.Context {
	if r.OpContext == nil {
		return context.Background()
	}

	return r.OpContext
}

func (r *Request) Userdata() any {
	return r.Data
}

func (r *Request) ReplyErr(errno syscall.Errno) error {
	return r.record(Reply{Kind: ErrReply, Errno: errno})
}

func (r *Request) ReplyNone() {
	r.record(Reply{Kind: NoneReply})
}

func (r *Request) ReplyEntry(e *lowlevel.EntryParam) error {
	return r.record(Reply{Kind: EntryReply, Entry: *e})
}

func (r *Request) ReplyCreate(
	e *lowlevel.EntryParam,
	fi *lowlevel.FileInfo) error {
	return r.record(Reply{Kind: CreateReply, Entry: *e, FileInfo: *fi})
}

func (r *Request) ReplyAttr(attr *lowlevel.Stat, timeout float64) error {
	return r.record(Reply{Kind: AttrReply, Attr: *attr, Timeout: timeout})
}

func (r *Request) ReplyReadlink(link []byte) error {
	return r.record(Reply{Kind: ReadlinkReply, Buf: append([]byte{}, link...)})
}

func (r *Request) ReplyOpen(fi *lowlevel.FileInfo) error {
	return r.record(Reply{Kind: OpenReply, FileInfo: *fi})
}

func (r *Request) ReplyWrite(count int) error {
	return r.record(Reply{Kind: WriteReply, Count: count})
}

func (r *Request) ReplyBuf(buf []byte) error {
	return r.record(Reply{Kind: BufReply, Buf: append([]byte{}, buf...)})
}

func (r *Request) ReplyStatfs(st *lowlevel.Statvfs) error {
	return r.record(Reply{Kind: StatfsReply, Statfs: *st})
}

func (r *Request) ReplyXattr(count int) error {
	return r.record(Reply{Kind: XattrReply, Count: count})
}

func (r *Request) ReplyLock(lock *lowlevel.Flock) error {
	return r.record(Reply{Kind: LockReply, Lock: *lock})
}

func (r *Request) ReplyBmap(idx uint64) error {
	return r.record(Reply{Kind: BmapReply, Idx: idx})
}

func (r *Request) ReplyPoll(revents uint32) error {
	return r.record(Reply{Kind: PollReply, Revents: revents})
}

func (r *Request) ReplyLseek(off int64) error {
	return r.record(Reply{Kind: LseekReply, Off: off})
}
