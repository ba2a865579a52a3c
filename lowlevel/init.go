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
	"syscall"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/buffer"
	"github.com/jacobsa/lowfuse/internal/fusekernel"
)

// The largest number of pages the kernel accepts in a single request.
const maxPages = 256

const pageSize = 4096

// Capabilities requested whenever the kernel offers them.
const defaultWant = fusekernel.InitAsyncRead |
	fusekernel.InitAtomicTrunc |
	fusekernel.InitBigWrites |
	fusekernel.InitAutoInvalData |
	fusekernel.InitAsyncDIO |
	fusekernel.InitParallelDirOps |
	fusekernel.InitMaxPages

// Capabilities that only make sense if the relevant callbacks exist.
func (s *Session) callbackWant() (want uint32) {
	if s.ops.Getlk != nil && s.ops.Setlk != nil {
		want |= fusekernel.InitPosixLocks
	}

	if s.ops.Flock != nil {
		want |= fusekernel.InitFlockLocks
	}

	// Never READDIRPLUS_AUTO: the kernel would then resume a plus listing
	// with plain READDIR, and the two listings have different offsets.
	if s.ops.Readdirplus != nil {
		want |= fusekernel.InitDoReaddirplus
	}

	return
}

func (s *Session) doInit(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.InitIn](m)
	if in == nil {
		return errShortMessage
	}

	s.debugf("INIT: kernel %d.%d, flags %#x, max readahead %d", in.Major, in.Minor, in.Flags, in.MaxReadahead)

	out := fusekernel.InitOut{
		Major: fusekernel.ProtoVersionMaxMajor,
		Minor: fusekernel.ProtoVersionMaxMinor,
	}

	// A newer major version: tell the kernel ours and wait for it to try
	// again.
	if in.Major > fusekernel.ProtoVersionMaxMajor {
		r.replyInit(&out, fusekernel.CompatInitOutSize)
		return nil
	}

	if in.Major < fusekernel.ProtoVersionMinMajor ||
		(in.Major == fusekernel.ProtoVersionMinMajor && in.Minor < fusekernel.ProtoVersionMinMinor) {
		s.errorf("INIT: unsupported kernel protocol %d.%d", in.Major, in.Minor)
		r.ReplyErr(syscall.EPROTO)
		return nil
	}

	want := uint32(defaultWant) | s.callbackWant()
	if s.cfg.DisableAsyncRead {
		want &^= fusekernel.InitAsyncRead
	}

	conn := ConnInfo{
		ProtoMajor:          in.Major,
		ProtoMinor:          in.Minor,
		MaxWrite:            buffer.MaxWriteSize,
		MaxRead:             buffer.MaxReadSize,
		MaxReadahead:        in.MaxReadahead,
		Capable:             in.Flags,
		Want:                want & in.Flags,
		MaxBackground:       s.cfg.MaxBackground,
		CongestionThreshold: s.cfg.CongestionThreshold,
		TimeGran:            1,
	}

	if s.ops.Init != nil {
		s.ops.Init(s.userdata, &conn)
	}

	// The file system may not ask for more than the kernel offers, nor
	// raise the limits our buffers are sized for.
	conn.Want &= conn.Capable
	conn.MaxWrite = min(conn.MaxWrite, buffer.MaxWriteSize)
	conn.MaxReadahead = min(conn.MaxReadahead, in.MaxReadahead)

	out.Flags = conn.Want
	out.MaxReadahead = conn.MaxReadahead
	out.MaxWrite = conn.MaxWrite
	out.MaxBackground = conn.MaxBackground
	out.CongestionThreshold = conn.CongestionThreshold
	out.TimeGran = conn.TimeGran
	if conn.Want&fusekernel.InitMaxPages != 0 {
		out.MaxPages = uint16(min(maxPages, (conn.MaxWrite+pageSize-1)/pageSize))
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.initialized.Store(true)

	size := fusekernel.CompatInitOutSize
	if in.Minor >= 23 {
		size = int(unsafe.Sizeof(out))
	}

	s.debugf("INIT: replying %d.%d, flags %#x, max write %d", out.Major, out.Minor, out.Flags, out.MaxWrite)
	r.replyInit(&out, size)
	return nil
}
