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
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/fusekernel"
	"golang.org/x/sys/unix"
)

// DirentSize returns the space taken by a READDIR record whose name is
// namelen bytes long, padding included.
func DirentSize(namelen int) int {
	return fusekernel.DirentAlign(fusekernel.DirentNameOffset + namelen)
}

// DirentPlusSize is the READDIRPLUS counterpart of DirentSize.
func DirentPlusSize(namelen int) int {
	return fusekernel.DirentAlign(fusekernel.DirentplusNameOffset + namelen)
}

// AddDirentry writes a READDIR record for name at the start of buf and
// returns its size. Only st.Ino and the file type bits of st.Mode are used.
// off is the offset at which the listing resumes after this entry.
//
// If buf is nil or too small, nothing is written and the size that would
// have been needed is returned.
func AddDirentry(buf []byte, name []byte, st *Stat, off int64) int {
	size := DirentSize(len(name))
	if len(buf) < size {
		return size
	}

	de := fusekernel.Dirent{
		Ino:     st.Ino,
		Off:     uint64(off),
		Namelen: uint32(len(name)),
		Type:    direntType(st.Mode),
	}

	putRecord(buf[:size], &de, name)
	return size
}

// AddDirentryPlus writes a READDIRPLUS record, which carries a full entry
// for name along with its position. Sizing works as for AddDirentry.
//
// The kernel takes a lookup reference on e.Ino for each record it consumes
// unless e.Ino is zero.
func AddDirentryPlus(buf []byte, name []byte, e *EntryParam, off int64) int {
	size := DirentPlusSize(len(name))
	if len(buf) < size {
		return size
	}

	var dp fusekernel.Direntplus
	fillEntry(&dp.EntryOut, e)
	dp.Dirent = fusekernel.Dirent{
		Ino:     e.Attr.Ino,
		Off:     uint64(off),
		Namelen: uint32(len(name)),
		Type:    direntType(e.Attr.Mode),
	}

	putRecord(buf[:size], &dp, name)
	return size
}

func direntType(mode uint32) uint32 {
	return (mode & unix.S_IFMT) >> 12
}

// Write the fixed part of a record, then the name, then zero padding to the
// end of rec.
func putRecord[T any](rec []byte, fixed *T, name []byte) {
	n := copy(rec, unsafe.Slice((*byte)(unsafe.Pointer(fixed)), unsafe.Sizeof(*fixed)))
	n += copy(rec[n:], name)
	clear(rec[n:])
}
