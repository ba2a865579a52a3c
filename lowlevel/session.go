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
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/jacobsa/lowfuse/internal/buffer"
	"github.com/jacobsa/lowfuse/internal/fusekernel"
	"github.com/jacobsa/syncutil"
)

// Messages beyond this many idle ones are left to the garbage collector.
const maxIdleMessages = 64

// Config holds the options of a session and of its mount.
type Config struct {
	// The name shown in the first column of /proc/mounts. Defaults to
	// "lowfuse".
	FSName string

	// Shown as the type suffix "fuse.<Subtype>" in /proc/mounts.
	Subtype string

	// Mount read-only.
	ReadOnly bool

	// Let users other than the mounting one access the file system.
	AllowOther bool

	// Have the kernel enforce permissions based on the modes returned by
	// the file system.
	DefaultPermissions bool

	// Further mount options passed through to fusermount. A key with an
	// empty value is passed without "=".
	Options map[string]string

	// Leave out the asynchronous read capability, serializing reads to a
	// given file.
	DisableAsyncRead bool

	// Limits on background requests announced to the kernel. Zero leaves
	// the kernel's defaults in place.
	MaxBackground       uint16
	CongestionThreshold uint16

	// Receives a line for each request and reply, if non-nil.
	DebugLogger *log.Logger

	// Receives protocol errors, if non-nil.
	ErrorLogger *log.Logger

	// Supplies message buffers. Defaults to a shared pool.
	MessageProvider buffer.MessageProvider

	// The context returned by Req.Context for every request. Defaults to
	// context.Background().
	OpContext context.Context
}

// Session is a connection to the kernel that dispatches requests to an Ops
// table.
type Session struct {
	ops      *Ops
	userdata any
	cfg      Config
	msgs     buffer.MessageProvider

	// Set by Mount or Attach.
	dev        io.ReadWriteCloser
	mountpoint string

	initialized atomic.Bool
	exited      atomic.Bool
	destroyOnce sync.Once

	opsInFlight sync.WaitGroup

	mu syncutil.InvariantMutex

	// The connection parameters agreed at INIT.
	//
	// GUARDED_BY(mu)
	conn ConnInfo

	// Unique IDs for retrieve notifications, and the cookies of those still
	// awaiting a reply.
	//
	// INVARIANT: For each k in retrieves, 0 < k < nextNotifyUnique
	//
	// GUARDED_BY(mu)
	nextNotifyUnique uint64
	retrieves        map[uint64]any
}

// NewSession creates a session that will invoke ops with the given
// userdata. cfg may be nil. The session does nothing until it is mounted
// and a loop function is called.
func NewSession(ops *Ops, userdata any, cfg *Config) *Session {
	s := &Session{
		ops:              ops,
		userdata:         userdata,
		nextNotifyUnique: 1,
		retrieves:        make(map[uint64]any),
	}

	if cfg != nil {
		s.cfg = *cfg
	}

	if s.cfg.OpContext == nil {
		s.cfg.OpContext = context.Background()
	}

	if s.cfg.FSName == "" {
		s.cfg.FSName = "lowfuse"
	}

	s.msgs = s.cfg.MessageProvider
	if s.msgs == nil {
		s.msgs = &buffer.DefaultMessageProvider{MaxIdle: maxIdleMessages}
	}

	s.mu = syncutil.NewInvariantMutex(s.checkInvariants)
	registerMetrics()

	return s
}

// LOCKS_REQUIRED(s.mu)
func (s *Session) checkInvariants() {
	for k := range s.retrieves {
		if k == 0 || k >= s.nextNotifyUnique {
			panic(fmt.Sprintf("Unexpected retrieve unique %d (next %d)", k, s.nextNotifyUnique))
		}
	}
}

// Attach makes the session serve requests read from dev, which is usually an
// already-mounted /dev/fuse descriptor. The session takes ownership of dev.
func (s *Session) Attach(dev io.ReadWriteCloser) {
	s.dev = dev
}

// Mountpoint returns the directory given to Mount, or the empty string.
func (s *Session) Mountpoint() string {
	return s.mountpoint
}

// Conn returns the connection parameters negotiated at INIT.
func (s *Session) Conn() ConnInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn
}

// Loop serves requests one at a time until the kernel closes the
// connection or Exit is called. It returns nil on a clean shutdown.
func (s *Session) Loop() error {
	return s.loop(false)
}

// LoopMT is like Loop, but serves each request on its own goroutine. It
// waits for outstanding requests before returning.
func (s *Session) LoopMT() error {
	return s.loop(true)
}

// Exit asks the loop to stop after the request it is reading. The loop
// notices once the next read returns, which for a mounted file system
// happens at unmount.
func (s *Session) Exit() {
	s.exited.Store(true)
}

// Exited reports whether Exit has been called.
func (s *Session) Exited() bool {
	return s.exited.Load()
}

// Destroy calls the Destroy callback if the session was initialized and it
// hasn't run yet, then closes the device. It is safe to call more than
// once.
func (s *Session) Destroy() (err error) {
	s.destroyOnce.Do(func() {
		s.callDestroy()
		if s.dev != nil {
			err = s.dev.Close()
		}
	})

	return
}

// Run the Destroy callback at most once per initialized session.
func (s *Session) callDestroy() {
	if !s.initialized.CompareAndSwap(true, false) {
		return
	}

	if s.ops.Destroy != nil {
		s.ops.Destroy(s.userdata)
	}
}

func (s *Session) loop(concurrent bool) error {
	if s.dev == nil {
		return ErrNotMounted
	}

	defer s.opsInFlight.Wait()

	for !s.exited.Load() {
		m := s.msgs.GetInMessage()
		if err := m.Init(s.dev); err != nil {
			s.msgs.PutInMessage(m)

			switch {
			// The kernel hangs up with ENODEV on unmount.
			case errors.Is(err, io.EOF), errors.Is(err, syscall.ENODEV):
				return nil

			// Interrupted reads, or requests the kernel abandoned before we got
			// to them.
			case errors.Is(err, syscall.EINTR),
				errors.Is(err, syscall.EAGAIN),
				errors.Is(err, syscall.ENOENT):
				continue
			}

			return fmt.Errorf("reading request: %w", err)
		}

		s.opsInFlight.Add(1)
		if concurrent {
			go s.process(m)
		} else {
			s.process(m)
		}
	}

	return nil
}

// Dispatch a single request. m is returned to the pool afterward.
func (s *Session) process(m *buffer.InMessage) {
	defer s.opsInFlight.Done()
	defer s.msgs.PutInMessage(m)

	h := m.Header()
	r := s.newRequest(h)
	s.debugf("%d: %v (node %d, %d bytes, pid %d)", h.Unique, h.Opcode, h.Nodeid, h.Len, h.Pid)

	handle, ok := handlers[h.Opcode]
	switch {
	case !ok:
		r.ReplyErr(syscall.ENOSYS)
		return

	case !s.initialized.Load() && h.Opcode != fusekernel.OpInit:
		s.errorf("%v before INIT", h.Opcode)
		r.ReplyErr(syscall.EIO)
		return
	}

	if err := handle(s, r, h.Nodeid, m); err != nil {
		s.errorf("%d: %v: %v", h.Unique, h.Opcode, err)
		if !r.replied.Load() {
			r.ReplyErr(syscall.EIO)
		}
	}
}

func (s *Session) writeMessage(b []byte) error {
	_, err := s.dev.Write(b)

	// The kernel says ENOENT for replies to interrupted requests.
	if err != nil && !errors.Is(err, syscall.ENOENT) {
		s.errorf("writing reply: %v", err)
		return err
	}

	return nil
}

func (s *Session) debugf(format string, v ...any) {
	if s.cfg.DebugLogger != nil {
		s.cfg.DebugLogger.Printf(format, v...)
	}
}

func (s *Session) errorf(format string, v ...any) {
	if s.cfg.ErrorLogger != nil {
		s.cfg.ErrorLogger.Printf(format, v...)
	}
}
