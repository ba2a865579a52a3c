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
	"testing"
)

func TestOpFlagCount(t *testing.T) {
	if got := AllOps.Len(); got != 43 {
		t.Errorf("AllOps has %d operations, want 43", got)
	}

	if OpLseek != 1<<42 {
		t.Errorf("OpLseek = %#x", uint64(OpLseek))
	}
}

func TestOpFlagString(t *testing.T) {
	testCases := []struct {
		f    OpFlag
		want string
	}{
		{0, "0"},
		{OpInit, "init"},
		{OpLookup | OpGetattr, "lookup|getattr"},
		{OpWriteBuf | OpCopyFileRange, "write_buf|copy_file_range"},
		{OpLseek | 1<<50, "lseek|0x4000000000000"},
	}

	for _, tc := range testCases {
		if got := tc.f.String(); got != tc.want {
			t.Errorf("%#x: got %q, want %q", uint64(tc.f), got, tc.want)
		}
	}
}

func TestParseOpFlags(t *testing.T) {
	testCases := []struct {
		names   []string
		want    OpFlag
		wantErr bool
	}{
		{nil, 0, false},
		{[]string{"lookup", " GetAttr ", ""}, OpLookup | OpGetattr, false},
		{[]string{"all"}, AllOps, false},
		{[]string{"retrieve_reply"}, OpRetrieveReply, false},
		{[]string{"lookup", "bogus"}, 0, true},
	}

	for _, tc := range testCases {
		got, err := ParseOpFlags(tc.names)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected an error", tc.names)
			}

			continue
		}

		if err != nil {
			t.Errorf("%q: %v", tc.names, err)
			continue
		}

		if got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.names, got, tc.want)
		}
	}
}

func TestOpFlagStringRoundTrip(t *testing.T) {
	for i := 0; i < opCount; i++ {
		f := OpFlag(1) << i
		got, err := ParseOpFlags([]string{f.String()})
		if err != nil || got != f {
			t.Errorf("%v: got %v, %v", f, got, err)
		}
	}
}
