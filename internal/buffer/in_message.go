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

package buffer

import (
	"bytes"
	"fmt"
	"io"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/fusekernel"
)

// The largest write payload we negotiate with the kernel.
const MaxWriteSize = 1 << 20

// The size of a page, which bounds the header and fixed-size arguments that
// precede a write payload.
const pageSize = 4096

// The size of the storage backing an InMessage.
const inMessageSize = MaxWriteSize + pageSize

const inHeaderSize = unsafe.Sizeof(fusekernel.InHeader{})

// An incoming message from the kernel, including leading fusekernel.InHeader
// struct. Provides storage for messages and convenient access to their
// contents.
type InMessage struct {
	remaining []byte
	storage   []byte
}

// Create a new InMessage with storage for the largest message the kernel
// will send.
func NewInMessage() *InMessage {
	return &InMessage{
		storage: make([]byte, inMessageSize),
	}
}

// Initialize with the data read by a single call to r.Read. The first call to
// Consume will consume the bytes directly after the fusekernel.InHeader
// struct.
func (m *InMessage) Init(r io.Reader) (err error) {
	n, err := r.Read(m.storage)
	if err != nil {
		return
	}

	// Make sure the message is long enough.
	if uintptr(n) < inHeaderSize {
		err = fmt.Errorf("Unexpectedly read only %d bytes.", n)
		return
	}

	m.remaining = m.storage[inHeaderSize:n]

	// Check the header's length.
	if int(m.Header().Len) != n {
		err = fmt.Errorf(
			"Header says %d bytes, but we read %d",
			m.Header().Len,
			n)

		return
	}

	return
}

// Return a reference to the header read in the most recent call to Init.
func (m *InMessage) Header() (h *fusekernel.InHeader) {
	h = (*fusekernel.InHeader)(unsafe.Pointer(&m.storage[0]))
	return
}

// Return the number of bytes left to consume.
func (m *InMessage) Len() uintptr {
	return uintptr(len(m.remaining))
}

// Consume the next n bytes from the message, returning a nil pointer if there
// are fewer than n bytes available.
func (m *InMessage) Consume(n uintptr) (p unsafe.Pointer) {
	if m.Len() == 0 || n > m.Len() {
		return
	}

	p = unsafe.Pointer(&m.remaining[0])
	m.remaining = m.remaining[n:]

	return
}

// Equivalent to Consume, except returns a slice of bytes. The result will be
// nil if Consume fails.
func (m *InMessage) ConsumeBytes(n uintptr) (b []byte) {
	if n > m.Len() {
		return
	}

	b = m.remaining[:n:n]
	m.remaining = m.remaining[n:]

	return
}

// Consume a NUL-terminated string, returning its bytes without the
// terminator. The result is nil if no terminator remains.
func (m *InMessage) ConsumeName() (name []byte) {
	i := bytes.IndexByte(m.remaining, 0)
	if i < 0 {
		return
	}

	name = m.remaining[:i:i]
	m.remaining = m.remaining[i+1:]

	return
}

// Consume a fixed-size kernel struct of type T, returning nil if the message
// is too short.
func Consume[T any](m *InMessage) *T {
	var zero T
	return (*T)(m.Consume(unsafe.Sizeof(zero)))
}
