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

// Package fakekernel plays the kernel's side of /dev/fuse in memory, so that
// sessions can be driven without mounting anything.
package fakekernel

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/fusekernel"
)

// A Reply is a message written by the file system side.
type Reply struct {
	Header fusekernel.OutHeader
	Body   []byte
}

// Errno returns the error carried by the reply, or zero.
func (r Reply) Errno() syscall.Errno {
	return syscall.Errno(-r.Header.Error)
}

// Device is an io.ReadWriteCloser standing in for /dev/fuse. Reads return
// queued requests in order, then fail with ENODEV as the kernel does after
// unmounting.
type Device struct {
	// Identity stamped on queued requests.
	Uid uint32
	Gid uint32
	Pid uint32

	mu            sync.Mutex
	nextUnique    uint64
	requests      [][]byte
	replies       map[uint64][]Reply
	notifications []Reply
	closed        bool
}

// NewDevice returns an empty device.
func NewDevice() *Device {
	return &Device{
		nextUnique: 1,
		replies:    make(map[uint64][]Reply),
	}
}

// Queue appends a request for nodeid whose arguments are the concatenation
// of args, and returns its unique ID.
func (d *Device) Queue(op fusekernel.Opcode, nodeid uint64, args ...[]byte) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	unique := d.nextUnique
	d.nextUnique++

	d.queueLocked(op, unique, nodeid, args)
	return unique
}

// QueueUnique is like Queue, but with a caller-chosen unique ID. Used to
// answer notifications, whose replies carry the notification's ID.
func (d *Device) QueueUnique(op fusekernel.Opcode, unique uint64, nodeid uint64, args ...[]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queueLocked(op, unique, nodeid, args)
}

// QueueInit queues an INIT request offering the given protocol minor
// version and capability flags.
func (d *Device) QueueInit(minor uint32, flags uint32) uint64 {
	return d.Queue(fusekernel.OpInit, 0, Bytes(&fusekernel.InitIn{
		Major:        7,
		Minor:        minor,
		MaxReadahead: 128 << 10,
		Flags:        flags,
	}))
}

// LOCKS_REQUIRED(d.mu)
func (d *Device) queueLocked(op fusekernel.Opcode, unique, nodeid uint64, args [][]byte) {
	h := fusekernel.InHeader{
		Opcode: op,
		Unique: unique,
		Nodeid: nodeid,
		Uid:    d.Uid,
		Gid:    d.Gid,
		Pid:    d.Pid,
	}

	h.Len = uint32(unsafe.Sizeof(h))
	for _, a := range args {
		h.Len += uint32(len(a))
	}

	msg := Bytes(&h)
	for _, a := range args {
		msg = append(msg, a...)
	}

	d.requests = append(d.requests, msg)
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, syscall.EBADF
	}

	if len(d.requests) == 0 {
		return 0, syscall.ENODEV
	}

	msg := d.requests[0]
	if len(p) < len(msg) {
		return 0, syscall.EINVAL
	}

	d.requests = d.requests[1:]
	return copy(p, msg), nil
}

func (d *Device) Write(p []byte) (int, error) {
	const headerSize = int(unsafe.Sizeof(fusekernel.OutHeader{}))
	if len(p) < headerSize {
		return 0, syscall.EINVAL
	}

	r := Reply{
		Header: Decode[fusekernel.OutHeader](p),
		Body:   append([]byte(nil), p[headerSize:]...),
	}

	if int(r.Header.Len) != len(p) {
		return 0, fmt.Errorf("header says %d bytes, wrote %d: %w", r.Header.Len, len(p), syscall.EINVAL)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if r.Header.Unique == 0 {
		d.notifications = append(d.notifications, r)
	} else {
		d.replies[r.Header.Unique] = append(d.replies[r.Header.Unique], r)
	}

	return len(p), nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}

// Replies returns every reply written for the request with the given unique
// ID, in order.
func (d *Device) Replies(unique uint64) []Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Reply(nil), d.replies[unique]...)
}

// Reply returns the sole reply to a request, failing if there were none or
// several.
func (d *Device) Reply(unique uint64) (r Reply, err error) {
	rs := d.Replies(unique)
	if len(rs) != 1 {
		err = fmt.Errorf("request %d has %d replies", unique, len(rs))
		return
	}

	r = rs[0]
	return
}

// Notifications returns the notifications written so far.
func (d *Device) Notifications() []Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Reply(nil), d.notifications...)
}

// Bytes returns a copy of the memory of v.
func Bytes[T any](v *T) []byte {
	return append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))...)
}

// Name returns s as a NUL-terminated argument.
func Name(s string) []byte {
	return append([]byte(s), 0)
}

// Decode copies a T out of the front of b. It panics if b is too short.
func Decode[T any](b []byte) (v T) {
	n := int(unsafe.Sizeof(v))
	if len(b) < n {
		panic(fmt.Sprintf("Decode: have %d bytes, want %d", len(b), n))
	}

	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), n), b)
	return
}
