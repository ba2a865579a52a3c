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
	"sync"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/freelist"
)

// A source of the messages a session reads requests into and builds
// replies and notifications in. Must be safe for concurrent use.
type MessageProvider interface {
	// Before each read from the device. An InMessage is large enough for a
	// full WRITE payload, which makes recycling it worthwhile.
	GetInMessage() *InMessage

	// Before each reply or notification. The message is returned reset.
	GetOutMessage() *OutMessage

	// Once the request has been dispatched, or the reply written.
	PutInMessage(*InMessage)
	PutOutMessage(*OutMessage)
}

// DefaultMessageProvider recycles messages through a pair of freelists,
// holding at most MaxIdle of each kind. The zero value keeps everything it
// is given.
type DefaultMessageProvider struct {
	MaxIdle int

	in  pool[InMessage]
	out pool[OutMessage]
}

func (p *DefaultMessageProvider) GetInMessage() *InMessage {
	if m := p.in.get(); m != nil {
		return m
	}

	return NewInMessage()
}

func (p *DefaultMessageProvider) GetOutMessage() *OutMessage {
	m := p.out.get()
	if m == nil {
		m = new(OutMessage)
	}

	m.Reset()
	return m
}

func (p *DefaultMessageProvider) PutInMessage(m *InMessage) {
	p.in.put(m, p.MaxIdle)
}

func (p *DefaultMessageProvider) PutOutMessage(m *OutMessage) {
	p.out.put(m, p.MaxIdle)
}

// Return the number of idle in and out messages held.
func (p *DefaultMessageProvider) Idle() (in, out int) {
	return p.in.idle(), p.out.idle()
}

type pool[T any] struct {
	mu sync.Mutex
	fl freelist.Freelist // GUARDED_BY(mu)
}

func (p *pool[T]) get() *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	return (*T)(p.fl.Get())
}

// Drop m on the floor if limit (when positive) messages are already idle.
func (p *pool[T]) put(m *T, limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limit > 0 && p.fl.Len() >= limit {
		return
	}

	p.fl.Put(unsafe.Pointer(m))
}

func (p *pool[T]) idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.fl.Len()
}
