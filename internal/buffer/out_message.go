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
	"fmt"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/fusekernel"
)

// The largest read or readdir payload we will send back to the kernel.
const MaxReadSize = 1 << 20

const outHeaderSize = unsafe.Sizeof(fusekernel.OutHeader{})

// OutHeaderSize is the size of the header at the start of each OutMessage.
const OutHeaderSize = int(outHeaderSize)

// We size out messages to be large enough to hold a header for the response
// plus the largest read that may come in.
const outMessageSize = outHeaderSize + MaxReadSize

// OutMessage provides a mechanism for constructing a single contiguous fuse
// message from multiple segments, where the first segment is always a
// fusekernel.OutHeader message.
//
// Must be initialized with Reset.
type OutMessage struct {
	offset  uintptr
	storage [outMessageSize]byte
}

// Reset the message so that it is ready to be used again. Afterward, the
// contents are solely a zeroed header.
func (m *OutMessage) Reset() {
	m.offset = outHeaderSize
	*m.OutHeader() = fusekernel.OutHeader{}
}

// Return a pointer to the header at the start of the message.
func (m *OutMessage) OutHeader() (h *fusekernel.OutHeader) {
	h = (*fusekernel.OutHeader)(unsafe.Pointer(&m.storage[0]))
	return
}

// Grow the buffer by the supplied number of bytes, returning a pointer to the
// start of the new segment, which is zeroed. If there is no space left, return
// the nil pointer.
func (m *OutMessage) Grow(size uintptr) (p unsafe.Pointer) {
	p = m.GrowNoZero(size)
	if p != nil {
		clear(m.storage[m.offset-size : m.offset])
	}

	return
}

// Equivalent to Grow, except the new segment is not zeroed. Use with caution!
func (m *OutMessage) GrowNoZero(size uintptr) (p unsafe.Pointer) {
	if size == 0 || outMessageSize-m.offset < size {
		return
	}

	p = unsafe.Pointer(&m.storage[m.offset])
	m.offset += size

	return
}

// Equivalent to growing by the length of p, then copying p over the new
// segment. Panics if there is not enough room available.
func (m *OutMessage) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	if outMessageSize-m.offset < uintptr(len(p)) {
		panic(fmt.Sprintf("Can't grow %d bytes", len(p)))
	}

	copy(m.storage[m.offset:], p)
	m.offset += uintptr(len(p))
}

// Equivalent to growing by the length of s, then copying s over the new
// segment. Panics if there is not enough room available.
func (m *OutMessage) AppendString(s string) {
	if len(s) == 0 {
		return
	}

	if outMessageSize-m.offset < uintptr(len(s)) {
		panic(fmt.Sprintf("Can't grow %d bytes", len(s)))
	}

	copy(m.storage[m.offset:], s)
	m.offset += uintptr(len(s))
}

// Shrink the message to n bytes, which must be at least the header size.
func (m *OutMessage) ShrinkTo(n int) {
	if n < OutHeaderSize || uintptr(n) > m.offset {
		panic(fmt.Sprintf("ShrinkTo(%d) out of range [%d, %d]", n, OutHeaderSize, m.offset))
	}

	m.offset = uintptr(n)
}

// Return the current size of the buffer.
func (m *OutMessage) Len() int {
	return int(m.offset)
}

// Return a reference to the current contents of the buffer.
func (m *OutMessage) Bytes() []byte {
	return m.storage[:m.offset]
}

// Grow the message by the size of a kernel struct of type T, returning a
// pointer to the zeroed struct or nil if there is no room.
func Grow[T any](m *OutMessage) *T {
	var zero T
	return (*T)(m.Grow(unsafe.Sizeof(zero)))
}
