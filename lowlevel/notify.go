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
	"fmt"
	"syscall"

	"github.com/jacobsa/lowfuse/internal/buffer"
	"github.com/jacobsa/lowfuse/internal/fusekernel"
)

// PollHandle lets a file system wake up a poll(2) the kernel is waiting
// on.
type PollHandle struct {
	kh uint64
	s  *Session
}

// Notify tells the kernel the handle may be ready. It may be called more
// than once.
func (ph *PollHandle) Notify() error {
	return ph.s.notify(fusekernel.NotifyCodePoll, func(m *buffer.OutMessage) {
		buffer.Grow[fusekernel.NotifyPollWakeupOut](m).Kh = ph.kh
	})
}

// Send an unsolicited message to the kernel.
func (s *Session) notify(code int32, fill func(m *buffer.OutMessage)) error {
	if s.dev == nil {
		return ErrNotMounted
	}

	m := s.msgs.GetOutMessage()
	defer s.msgs.PutOutMessage(m)

	fill(m)

	h := m.OutHeader()
	h.Error = code
	h.Len = uint32(m.Len())

	observeNotification(code)
	s.debugf("notify %d (%d bytes)", code, m.Len())

	_, err := s.dev.Write(m.Bytes())
	return err
}

// Fail with ENOSYS if the kernel is too old for a notification.
func (s *Session) requireMinor(minor uint32) error {
	if !s.initialized.Load() {
		return fmt.Errorf("session not initialized: %w", syscall.ENOTCONN)
	}

	if c := s.Conn(); c.ProtoMinor < minor {
		return fmt.Errorf("kernel protocol 7.%d: %w", c.ProtoMinor, syscall.ENOSYS)
	}

	return nil
}

// NotifyInvalInode drops cached data for the range [off, off+length) of an
// inode, along with its attributes. A negative off invalidates only the
// attributes; a zero length extends to the end of the file.
func (s *Session) NotifyInvalInode(ino uint64, off int64, length int64) error {
	if err := s.requireMinor(12); err != nil {
		return err
	}

	return s.notify(fusekernel.NotifyCodeInvalInode, func(m *buffer.OutMessage) {
		out := buffer.Grow[fusekernel.NotifyInvalInodeOut](m)
		out.Ino = ino
		out.Off = off
		out.Len = length
	})
}

// NotifyInvalEntry drops the kernel's cached lookup of name in parent.
func (s *Session) NotifyInvalEntry(parent uint64, name []byte) error {
	if err := s.requireMinor(12); err != nil {
		return err
	}

	return s.notify(fusekernel.NotifyCodeInvalEntry, func(m *buffer.OutMessage) {
		out := buffer.Grow[fusekernel.NotifyInvalEntryOut](m)
		out.Parent = parent
		out.Namelen = uint32(len(name))
		m.Append(name)
		m.Append([]byte{0})
	})
}

// NotifyRetrieve asks the kernel for up to size bytes of cached data of an
// inode starting at offset. The data arrives later through the
// RetrieveReply callback along with cookie.
func (s *Session) NotifyRetrieve(ino uint64, size uint32, offset uint64, cookie any) error {
	if err := s.requireMinor(15); err != nil {
		return err
	}

	s.mu.Lock()
	unique := s.nextNotifyUnique
	s.nextNotifyUnique++
	s.retrieves[unique] = cookie
	s.mu.Unlock()

	err := s.notify(fusekernel.NotifyCodeRetrieve, func(m *buffer.OutMessage) {
		out := buffer.Grow[fusekernel.NotifyRetrieveOut](m)
		out.NotifyUnique = unique
		out.Nodeid = ino
		out.Offset = offset
		out.Size = size
	})

	if err != nil {
		s.mu.Lock()
		delete(s.retrieves, unique)
		s.mu.Unlock()
	}

	return err
}
