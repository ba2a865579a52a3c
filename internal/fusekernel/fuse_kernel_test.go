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

package fusekernel

import (
	"testing"
	"unsafe"
)

// The kernel rejects messages whose structs are sized differently from its
// own, so pin every size against fuse.h.
func TestStructSizes(t *testing.T) {
	testCases := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"InHeader", unsafe.Sizeof(InHeader{}), 40},
		{"OutHeader", unsafe.Sizeof(OutHeader{}), 16},
		{"Attr", unsafe.Sizeof(Attr{}), 88},
		{"EntryOut", unsafe.Sizeof(EntryOut{}), 128},
		{"AttrOut", unsafe.Sizeof(AttrOut{}), 104},
		{"GetattrIn", unsafe.Sizeof(GetattrIn{}), 16},
		{"SetattrIn", unsafe.Sizeof(SetattrIn{}), 88},
		{"MknodIn", unsafe.Sizeof(MknodIn{}), 16},
		{"ReadIn", unsafe.Sizeof(ReadIn{}), 40},
		{"WriteIn", unsafe.Sizeof(WriteIn{}), 40},
		{"OpenOut", unsafe.Sizeof(OpenOut{}), 16},
		{"StatfsOut", unsafe.Sizeof(StatfsOut{}), 80},
		{"LkIn", unsafe.Sizeof(LkIn{}), 48},
		{"LkOut", unsafe.Sizeof(LkOut{}), 24},
		{"InitOut", unsafe.Sizeof(InitOut{}), 64},
		{"CopyFileRangeIn", unsafe.Sizeof(CopyFileRangeIn{}), 56},
		{"NotifyRetrieveIn", unsafe.Sizeof(NotifyRetrieveIn{}), 40},
		{"Dirent", unsafe.Sizeof(Dirent{}), DirentNameOffset},
		{"Direntplus", unsafe.Sizeof(Direntplus{}), DirentplusNameOffset},
	}

	for _, tc := range testCases {
		if tc.got != tc.want {
			t.Errorf("sizeof(%s) = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestDirentAlign(t *testing.T) {
	testCases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 8},
		{7, 8},
		{8, 8},
		{25, 32},
		{32, 32},
	}

	for _, tc := range testCases {
		if got := DirentAlign(tc.in); got != tc.want {
			t.Errorf("DirentAlign(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	if got := OpReaddirplus.String(); got != "READDIRPLUS" {
		t.Errorf("got %q", got)
	}

	if got := Opcode(9999).String(); got != "OPCODE_9999" {
		t.Errorf("got %q", got)
	}
}
