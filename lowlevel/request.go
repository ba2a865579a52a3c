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

package lowlevel

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/buffer"
	"github.com/jacobsa/lowfuse/internal/fusekernel"
	"golang.org/x/sys/unix"
)

// Req is the handle through which a callback answers a request. Exactly one
// of the Reply methods may be called; later calls return ErrAlreadyReplied
// and send nothing.
type Req interface {
	// The identity of the calling process.
	Ctx() *Ctx

	// The context to serve the request under.
	Context() context.Context

	// The value given to NewSession.
	Userdata() any

	// Write a line about the request to the session's error logger.
	Errorf(format string, v ...any)

	// Answer with an error, or with success if errno is zero.
	ReplyErr(errno syscall.Errno) error

	// Answer nothing. Only for forget and retrieve replies.
	ReplyNone()

	ReplyEntry(e *EntryParam) error
	ReplyCreate(e *EntryParam, fi *FileInfo) error
	ReplyAttr(attr *Stat, timeout float64) error
	ReplyReadlink(link []byte) error
	ReplyOpen(fi *FileInfo) error
	ReplyWrite(count int) error
	ReplyBuf(buf []byte) error
	ReplyStatfs(st *Statvfs) error
	ReplyXattr(count int) error
	ReplyLock(lock *Flock) error
	ReplyBmap(idx uint64) error
	ReplyPoll(revents uint32) error
	ReplyLseek(off int64) error
}

// request is the Req handed out by a Session.
type request struct {
	s      *Session
	opcode fusekernel.Opcode
	unique uint64
	ctx    Ctx
	start  time.Time

	replied atomic.Bool
}

var _ Req = &request{}

func (s *Session) newRequest(h *fusekernel.InHeader) *request {
	return &request{
		s:      s,
		opcode: h.Opcode,
		unique: h.Unique,
		ctx: Ctx{
			Uid: h.Uid,
			Gid: h.Gid,
			Pid: h.Pid,
		},
		start: time.Now(),
	}
}

func (r *request) Ctx() *Ctx {
	return &r.ctx
}

func (r *request) Context() context.Context {
	return r.s.cfg.OpContext
}

func (r *request) Errorf(format string, v ...any) {
	r.s.errorf("%d: %v: %s", r.unique, r.opcode, fmt.Sprintf(format, v...))
}

func (r *request) Userdata() any {
	return r.s.userdata
}

// Claim the right to reply, failing if somebody else already has.
func (r *request) claim() error {
	if !r.replied.CompareAndSwap(false, true) {
		r.s.errorf("%v (unique %d): %v", r.opcode, r.unique, ErrAlreadyReplied)
		return ErrAlreadyReplied
	}

	return nil
}

// Send a reply whose body, if errno is zero, is written by fill.
func (r *request) send(errno syscall.Errno, fill func(m *buffer.OutMessage)) error {
	if err := r.claim(); err != nil {
		return err
	}

	m := r.s.msgs.GetOutMessage()
	defer r.s.msgs.PutOutMessage(m)

	if errno == 0 && fill != nil {
		fill(m)
	}

	h := m.OutHeader()
	h.Unique = r.unique
	h.Error = -int32(errno)
	h.Len = uint32(m.Len())

	observeRequest(r.opcode, errno, time.Since(r.start))
	if errno == 0 {
		r.s.debugf("%d: %v OK (%d bytes)", r.unique, r.opcode, m.Len())
	} else {
		r.s.debugf("%d: %v error: %v", r.unique, r.opcode, errno)
	}

	return r.s.writeMessage(m.Bytes())
}

func (r *request) ReplyErr(errno syscall.Errno) error {
	if errno >= 1000 {
		r.s.errorf("%v: bad error value %d", r.opcode, uint32(errno))
		errno = syscall.ERANGE
	}

	return r.send(errno, nil)
}

func (r *request) ReplyNone() {
	if r.claim() != nil {
		return
	}

	observeRequest(r.opcode, 0, time.Since(r.start))
}

func (r *request) ReplyEntry(e *EntryParam) error {
	return r.send(0, func(m *buffer.OutMessage) {
		fillEntry(buffer.Grow[fusekernel.EntryOut](m), e)
	})
}

func (r *request) ReplyCreate(e *EntryParam, fi *FileInfo) error {
	return r.send(0, func(m *buffer.OutMessage) {
		fillEntry(buffer.Grow[fusekernel.EntryOut](m), e)
		fillOpen(buffer.Grow[fusekernel.OpenOut](m), fi)
	})
}

func (r *request) ReplyAttr(attr *Stat, timeout float64) error {
	return r.send(0, func(m *buffer.OutMessage) {
		out := buffer.Grow[fusekernel.AttrOut](m)
		out.AttrValid, out.AttrValidNsec = calcTimeout(timeout)
		convertStat(attr, &out.Attr)
	})
}

func (r *request) ReplyReadlink(link []byte) error {
	return r.ReplyBuf(link)
}

func (r *request) ReplyOpen(fi *FileInfo) error {
	return r.send(0, func(m *buffer.OutMessage) {
		fillOpen(buffer.Grow[fusekernel.OpenOut](m), fi)
	})
}

func (r *request) ReplyWrite(count int) error {
	return r.send(0, func(m *buffer.OutMessage) {
		buffer.Grow[fusekernel.WriteOut](m).Size = uint32(count)
	})
}

func (r *request) ReplyBuf(buf []byte) error {
	if len(buf) > buffer.MaxReadSize {
		r.s.errorf("%v: reply of %d bytes is too large", r.opcode, len(buf))
		return r.send(syscall.EIO, nil)
	}

	return r.send(0, func(m *buffer.OutMessage) {
		m.Append(buf)
	})
}

func (r *request) ReplyStatfs(st *Statvfs) error {
	return r.send(0, func(m *buffer.OutMessage) {
		convertStatfs(st, &buffer.Grow[fusekernel.StatfsOut](m).St)
	})
}

func (r *request) ReplyXattr(count int) error {
	return r.send(0, func(m *buffer.OutMessage) {
		buffer.Grow[fusekernel.GetxattrOut](m).Size = uint32(count)
	})
}

func (r *request) ReplyLock(lock *Flock) error {
	return r.send(0, func(m *buffer.OutMessage) {
		out := buffer.Grow[fusekernel.LkOut](m)
		out.Lk.Type = uint32(lock.Type)
		if lock.Type != unix.F_UNLCK {
			out.Lk.Start = uint64(lock.Start)
			if lock.Len == 0 {
				out.Lk.End = fusekernel.OffsetMax
			} else {
				out.Lk.End = uint64(lock.Start + lock.Len - 1)
			}
		}
		out.Lk.Pid = uint32(lock.Pid)
	})
}

func (r *request) ReplyBmap(idx uint64) error {
	return r.send(0, func(m *buffer.OutMessage) {
		buffer.Grow[fusekernel.BmapOut](m).Block = idx
	})
}

func (r *request) ReplyPoll(revents uint32) error {
	return r.send(0, func(m *buffer.OutMessage) {
		buffer.Grow[fusekernel.PollOut](m).Revents = revents
	})
}

func (r *request) ReplyLseek(off int64) error {
	return r.send(0, func(m *buffer.OutMessage) {
		buffer.Grow[fusekernel.LseekOut](m).Offset = uint64(off)
	})
}

// Send the INIT reply, truncated to size bytes for older kernels.
func (r *request) replyInit(out *fusekernel.InitOut, size int) error {
	return r.send(0, func(m *buffer.OutMessage) {
		src := unsafe.Slice((*byte)(unsafe.Pointer(out)), unsafe.Sizeof(*out))
		m.Append(src[:size])
	})
}

////////////////////////////////////////////////////////////////////////
// Conversions
////////////////////////////////////////////////////////////////////////

// Split a timeout in seconds into the kernel's representation. Negative
// timeouts become zero.
func calcTimeout(t float64) (sec uint64, nsec uint32) {
	switch {
	case t < 0 || math.IsNaN(t):
		return 0, 0
	case t >= math.MaxUint64:
		return math.MaxUint64, 0
	}

	sec = uint64(t)
	f := t - float64(sec)
	switch {
	case f < 0:
		nsec = 0
	case f >= 0.999999999:
		nsec = 999999999
	default:
		nsec = uint32(f * 1e9)
	}

	return
}

func convertStat(st *Stat, a *fusekernel.Attr) {
	a.Ino = st.Ino
	a.Mode = st.Mode
	a.Nlink = uint32(st.Nlink)
	a.Uid = st.Uid
	a.Gid = st.Gid
	a.Rdev = uint32(st.Rdev)
	a.Size = uint64(st.Size)
	a.Blksize = uint32(st.Blksize)
	a.Blocks = uint64(st.Blocks)
	a.Atime = uint64(st.Atim.Sec)
	a.Mtime = uint64(st.Mtim.Sec)
	a.Ctime = uint64(st.Ctim.Sec)
	a.AtimeNsec = uint32(st.Atim.Nsec)
	a.MtimeNsec = uint32(st.Mtim.Nsec)
	a.CtimeNsec = uint32(st.Ctim.Nsec)
}

func fillEntry(out *fusekernel.EntryOut, e *EntryParam) {
	out.Nodeid = e.Ino
	out.Generation = e.Generation
	out.EntryValid, out.EntryValidNsec = calcTimeout(e.EntryTimeout)
	out.AttrValid, out.AttrValidNsec = calcTimeout(e.AttrTimeout)
	convertStat(&e.Attr, &out.Attr)
}

func fillOpen(out *fusekernel.OpenOut, fi *FileInfo) {
	out.Fh = fi.Fh
	if fi.DirectIO {
		out.OpenFlags |= fusekernel.OpenDirectIO
	}
	if fi.KeepCache {
		out.OpenFlags |= fusekernel.OpenKeepCache
	}
	if fi.NonSeekable {
		out.OpenFlags |= fusekernel.OpenNonSeekable
	}
	if fi.CacheReaddir {
		out.OpenFlags |= fusekernel.OpenCacheDir
	}
}

func convertStatfs(st *Statvfs, k *fusekernel.Kstatfs) {
	k.Bsize = uint32(st.Bsize)
	k.Frsize = uint32(st.Frsize)
	k.Blocks = st.Blocks
	k.Bfree = st.Bfree
	k.Bavail = st.Bavail
	k.Files = st.Files
	k.Ffree = st.Ffree
	k.Namelen = uint32(st.Namemax)
}

// Convert a lock as sent by the kernel, whose end is inclusive.
func convertFileLock(fl *fusekernel.FileLock) (lock Flock) {
	lock.Type = int16(fl.Type)
	lock.Whence = unix.SEEK_SET
	lock.Start = int64(fl.Start)
	if fl.End == fusekernel.OffsetMax {
		lock.Len = 0
	} else {
		lock.Len = int64(fl.End - fl.Start + 1)
	}
	lock.Pid = int32(fl.Pid)

	return
}
