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

package fuseops

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// The type of an inode.
type FileType int

const (
	// Not a valid type. Mode and DirentType return zero for it.
	NoFileType FileType = iota

	Socket
	SymbolicLink
	RegularFile
	BlockDevice
	Directory
	CharacterDevice
	FIFO
)

// The type bits of each FileType. These are not ordinal, so they are looked
// up rather than computed.
var fileTypeModes = [...]uint32{
	Socket:          unix.S_IFSOCK,
	SymbolicLink:    unix.S_IFLNK,
	RegularFile:     unix.S_IFREG,
	BlockDevice:     unix.S_IFBLK,
	Directory:       unix.S_IFDIR,
	CharacterDevice: unix.S_IFCHR,
	FIFO:            unix.S_IFIFO,
}

// The d_type of each FileType.
var fileTypeDirents = [...]uint32{
	Socket:          unix.DT_SOCK,
	SymbolicLink:    unix.DT_LNK,
	RegularFile:     unix.DT_REG,
	BlockDevice:     unix.DT_BLK,
	Directory:       unix.DT_DIR,
	CharacterDevice: unix.DT_CHR,
	FIFO:            unix.DT_FIFO,
}

var fileTypeNames = [...]string{
	NoFileType:      "none",
	Socket:          "socket",
	SymbolicLink:    "symlink",
	RegularFile:     "file",
	BlockDevice:     "block",
	Directory:       "directory",
	CharacterDevice: "char",
	FIFO:            "fifo",
}

func (t FileType) valid() bool {
	return t > NoFileType && t <= FIFO
}

// Mode returns the S_IF* bits for t.
func (t FileType) Mode() uint32 {
	if !t.valid() {
		return 0
	}

	return fileTypeModes[t]
}

// DirentType returns the DT_* value for t.
func (t FileType) DirentType() uint32 {
	if !t.valid() {
		return 0
	}

	return fileTypeDirents[t]
}

// FileTypeFromMode returns the type whose bits are set in mode.
func FileTypeFromMode(mode uint32) (FileType, bool) {
	bits := mode & unix.S_IFMT
	for t := Socket; t <= FIFO; t++ {
		if fileTypeModes[t] == bits {
			return t, true
		}
	}

	return NoFileType, false
}

// ParseFileType is the inverse of FileType.String.
func ParseFileType(value string) (FileType, error) {
	for t, name := range fileTypeNames {
		if name == value {
			return FileType(t), nil
		}
	}

	return NoFileType, fmt.Errorf("Failed to parse file type %s", value)
}

func (t FileType) String() string {
	if t < NoFileType || t > FIFO {
		return fmt.Sprintf("FileType(%d)", int(t))
	}

	return fileTypeNames[t]
}
