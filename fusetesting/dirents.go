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

package fusetesting

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/fusekernel"
	"github.com/jacobsa/lowfuse/lowlevel"
)

// A directory entry decoded from a READDIR or READDIRPLUS reply.
type Dirent struct {
	Ino  uint64
	Off  int64
	Type uint32
	Name string

	// The entry carried by a READDIRPLUS record. Nil for READDIR.
	Entry *lowlevel.EntryParam
}

// Decode the complete records in a READDIR (or, if plus is set,
// READDIRPLUS) reply the way the kernel does, ignoring a partial record at
// the end.
func ParseDirents(buf []byte, plus bool) (entries []Dirent, err error) {
	nameOff := fusekernel.DirentNameOffset
	if plus {
		nameOff = fusekernel.DirentplusNameOffset
	}

	for len(buf) >= nameOff {
		var de fusekernel.Dirent
		var eo *fusekernel.EntryOut
		if plus {
			rec := (*fusekernel.Direntplus)(unsafe.Pointer(&buf[0]))
			de = rec.Dirent
			eo = &rec.EntryOut
		} else {
			de = *(*fusekernel.Dirent)(unsafe.Pointer(&buf[0]))
		}

		if de.Namelen == 0 || de.Namelen > 255 {
			err = fmt.Errorf("bad name length %d", de.Namelen)
			return
		}

		reclen := fusekernel.DirentAlign(nameOff + int(de.Namelen))
		if reclen > len(buf) {
			break
		}

		d := Dirent{
			Ino:  de.Ino,
			Off:  int64(de.Off),
			Type: de.Type,
			Name: string(buf[nameOff : nameOff+int(de.Namelen)]),
		}

		if eo != nil {
			d.Entry = &lowlevel.EntryParam{
				Ino:        eo.Nodeid,
				Generation: eo.Generation,
			}
			d.Entry.Attr.Ino = eo.Attr.Ino
			d.Entry.Attr.Mode = eo.Attr.Mode
		}

		entries = append(entries, d)
		buf = buf[reclen:]
	}

	return
}

// Read a whole directory through fetch, which is called with the offset to
// resume from and the buffer size, as the kernel would: starting at zero,
// then from the offset of the last entry decoded, until an empty page.
func ReadListing(
	fetch func(off int64, size int) ([]byte, error),
	size int,
	plus bool) (entries []Dirent, err error) {
	var off int64
	for {
		var page []byte
		page, err = fetch(off, size)
		if err != nil {
			return
		}

		if len(page) == 0 {
			return
		}

		var batch []Dirent
		batch, err = ParseDirents(page, plus)
		if err != nil {
			return
		}

		if len(batch) == 0 {
			err = errors.New("page holds no complete entry")
			return
		}

		entries = append(entries, batch...)
		off = batch[len(batch)-1].Off
	}
}
