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

package fuseutil

import (
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/lowlevel"
)

// A directory listing framed in the format the kernel expects in a READDIR
// or READDIRPLUS reply: a sequence of fuse_dirent (or fuse_direntplus)
// records, each padded to an 8-byte boundary.
//
// The offset recorded in each entry is the byte offset within the listing of
// the entry following it. The kernel hands that offset back to resume a
// listing that didn't fit in one reply, so Slice can serve every page from
// the same buffer.
type DirentBuffer struct {
	buf []byte
}

// Frame the supplied entries. If plus is set, each record also carries an
// entry for the child whose attributes hold just the inode number and the
// file type, with zero cache timeouts.
func NewDirentBuffer(
	entries []fuseops.DirEntry,
	plus bool) *DirentBuffer {
	sizeOf := lowlevel.DirentSize
	if plus {
		sizeOf = lowlevel.DirentPlusSize
	}

	var total int
	for i := range entries {
		total += sizeOf(len(entries[i].Name))
	}

	buf := make([]byte, total)
	var off int
	for i := range entries {
		e := &entries[i]
		attr := fuseops.DirEntryAttr(e)
		next := off + sizeOf(len(e.Name))

		if plus {
			ep := fuseops.EntryToNative(&fuseops.EntryParam{
				Ino:  e.Ino,
				Attr: attr,
			})
			lowlevel.AddDirentryPlus(buf[off:next], e.Name, &ep, int64(next))
		} else {
			st := fuseops.AttrToNative(&attr)
			lowlevel.AddDirentry(buf[off:next], e.Name, &st, int64(next))
		}

		off = next
	}

	return &DirentBuffer{buf: buf}
}

// Return the length of the framed listing in bytes.
func (b *DirentBuffer) Len() int {
	return len(b.buf)
}

// Return the whole framed listing.
func (b *DirentBuffer) Bytes() []byte {
	return b.buf
}

// Return the part of the listing the kernel asked for with the given offset
// and maximum size. The result may end with a partial record, which the
// kernel ignores; it resumes from the offset of the last complete record.
//
// An offset at or beyond the end of the listing yields an empty page, which
// the kernel takes as the end of the directory.
func (b *DirentBuffer) Slice(off int64, size int) []byte {
	if size <= 0 || off < 0 || off >= int64(len(b.buf)) {
		return nil
	}

	page := b.buf[off:]
	if len(page) > size {
		page = page[:size]
	}

	return page
}

// Frame entries and return the page at off, at most size bytes long.
func ListingPage(
	entries []fuseops.DirEntry,
	off int64,
	size int,
	plus bool) []byte {
	if size <= 0 {
		return nil
	}

	return NewDirentBuffer(entries, plus).Slice(off, size)
}

// Return the entries whose records lie wholly within the page at off, at most
// size bytes long. These are the entries the kernel will see; for
// READDIRPLUS, each of them other than "." and ".." with a non-zero inode
// counts as a lookup.
func PageEntries(
	entries []fuseops.DirEntry,
	off int64,
	size int,
	plus bool) []fuseops.DirEntry {
	sizeOf := lowlevel.DirentSize
	if plus {
		sizeOf = lowlevel.DirentPlusSize
	}

	var start int
	var pos int64
	for start < len(entries) && pos < off {
		pos += int64(sizeOf(len(entries[start].Name)))
		start++
	}

	if pos != off || size <= 0 {
		return nil
	}

	end := start
	remaining := size
	for end < len(entries) {
		n := sizeOf(len(entries[end].Name))
		if n > remaining {
			break
		}

		remaining -= n
		end++
	}

	return entries[start:end]
}
