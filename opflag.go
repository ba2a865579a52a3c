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

package lowfuse

import (
	"fmt"
	"math/bits"
	"strings"
)

// A set of operations, one bit per method of fuseutil.FileSystem. Passed to
// NewOps to say which methods the kernel may call.
type OpFlag uint64

const (
	OpInit OpFlag = 1 << iota
	OpDestroy
	OpLookup
	OpForget
	OpGetattr
	OpSetattr
	OpReadlink
	OpMknod
	OpMkdir
	OpUnlink
	OpRmdir
	OpSymlink
	OpRename
	OpLink
	OpOpen
	OpRead
	OpWrite
	OpFlush
	OpRelease
	OpFsync
	OpOpendir
	OpReaddir
	OpReleasedir
	OpFsyncdir
	OpStatfs
	OpSetxattr
	OpGetxattr
	OpListxattr
	OpRemovexattr
	OpAccess
	OpCreate
	OpGetlk
	OpSetlk
	OpBmap
	OpPoll
	OpWriteBuf
	OpRetrieveReply
	OpForgetMulti
	OpFlock
	OpFallocate
	OpReaddirplus
	OpCopyFileRange
	OpLseek

	opCount = iota
)

// Every operation.
const AllOps OpFlag = 1<<opCount - 1

// Indexed by bit position.
var opNames = [opCount]string{
	"init",
	"destroy",
	"lookup",
	"forget",
	"getattr",
	"setattr",
	"readlink",
	"mknod",
	"mkdir",
	"unlink",
	"rmdir",
	"symlink",
	"rename",
	"link",
	"open",
	"read",
	"write",
	"flush",
	"release",
	"fsync",
	"opendir",
	"readdir",
	"releasedir",
	"fsyncdir",
	"statfs",
	"setxattr",
	"getxattr",
	"listxattr",
	"removexattr",
	"access",
	"create",
	"getlk",
	"setlk",
	"bmap",
	"poll",
	"write_buf",
	"retrieve_reply",
	"forget_multi",
	"flock",
	"fallocate",
	"readdirplus",
	"copy_file_range",
	"lseek",
}

// Report whether every operation in other is also in f.
func (f OpFlag) Has(other OpFlag) bool {
	return f&other == other
}

// Return the names of the operations in f, separated by "|". Bits that
// name no operation are shown in hex at the end.
func (f OpFlag) String() string {
	if f == 0 {
		return "0"
	}

	var names []string
	for i, name := range opNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}

	if rest := f &^ AllOps; rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint64(rest)))
	}

	return strings.Join(names, "|")
}

// Return the number of operations in f.
func (f OpFlag) Len() int {
	return bits.OnesCount64(uint64(f & AllOps))
}

// Parse a list of operation names as printed by OpFlag.String, ignoring case.
// The name "all" stands for AllOps.
func ParseOpFlags(names []string) (f OpFlag, err error) {
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		if name == "all" {
			f |= AllOps
			continue
		}

		i := indexOfOp(name)
		if i < 0 {
			err = fmt.Errorf("unknown operation %q", name)
			return
		}

		f |= 1 << i
	}

	return
}

func indexOfOp(name string) int {
	for i, n := range opNames {
		if n == name {
			return i
		}
	}

	return -1
}
