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
	"strings"
	"testing"
)

func Test_parseFuseFd(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fd, err := parseFuseFd("/dev/fd/42")
		if fd != 42 {
			t.Errorf("expected 42, got %d", fd)
		}
		if err != nil {
			t.Errorf("expected no error, got %#v", err)
		}
	})

	t.Run("negative", func(t *testing.T) {
		fd, err := parseFuseFd("/dev/fd/-42")
		if fd != -1 {
			t.Errorf("expected an invalid fd, got %d", fd)
		}
		if err == nil {
			t.Errorf("expected an error, nil")
		}
	})

	t.Run("not an int", func(t *testing.T) {
		fd, err := parseFuseFd("/dev/fd/3.14159")
		if fd != -1 {
			t.Errorf("expected an invalid fd, got %d", fd)
		}
		if err == nil {
			t.Errorf("expected an error, nil")
		}
	})
}

func Test_mountOptions(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{FSName: "lowfuse"},
			want: "fsname=lowfuse",
		},
		{
			name: "flags",
			cfg: Config{
				FSName:             "hello",
				Subtype:            "hellofs",
				ReadOnly:           true,
				AllowOther:         true,
				DefaultPermissions: true,
			},
			want: "allow_other,default_permissions,fsname=hello,ro,subtype=hellofs",
		},
		{
			name: "escaping",
			cfg: Config{
				FSName:  `a,b\c`,
				Options: map[string]string{"max_read": "131072", "noatime": ""},
			},
			want: `fsname=a\,b\\c,max_read=131072,noatime`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mountOptions(&tc.cfg); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func Test_mountNonexistentDir(t *testing.T) {
	_, err := mount(t.TempDir()+"/foo", &Config{FSName: "lowfuse"})
	if err == nil {
		t.Fatal("expected an error")
	}

	const want = "no such file"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("Unexpected error: %v", got)
	}
}
