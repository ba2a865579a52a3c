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

package lowfuse_test

import (
	"context"
	"os"
	"os/exec"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/fuseutil"
)

////////////////////////////////////////////////////////////////////////
// minimalFS
////////////////////////////////////////////////////////////////////////

// A minimal fuseutil.FileSystem that can successfully mount but do nothing
// else.
type minimalFS struct {
	fuseutil.NotImplementedFileSystem
}

func (fs *minimalFS) GetAttr(
	ctx context.Context,
	hdr fuseops.OpHeader,
	ino fuseops.InodeID,
	fi *fuseops.FileInfo) (fuseops.Attr, time.Duration, error) {
	return fuseops.Attr{
		Ino:   uint64(ino),
		Mode:  fuseops.Directory.Mode() | 0755,
		Nlink: 2,
	}, 0, nil
}

// Skip tests that need a real FUSE mount when the machine can't do one.
func skipUnlessMountable(t *testing.T) {
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skipf("No /dev/fuse: %v", err)
	}

	for _, name := range []string{"fusermount3", "fusermount"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}

	t.Skip("No fusermount binary")
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func TestSuccessfulMount(t *testing.T) {
	skipUnlessMountable(t)
	ctx := context.Background()

	// Set up a temporary directory.
	dir, err := os.MkdirTemp("", "mount_test")
	if err != nil {
		t.Fatalf("os.MkdirTemp: %v", err)
	}

	defer os.RemoveAll(dir)

	// Mount.
	fs := &minimalFS{}
	mfs, err := lowfuse.Mount(
		dir,
		fs,
		lowfuse.OpGetattr,
		&lowfuse.MountConfig{})

	if err != nil {
		t.Fatalf("lowfuse.Mount: %v", err)
	}

	defer func() {
		if err := mfs.Join(ctx); err != nil {
			t.Errorf("Joining: %v", err)
		}
	}()

	defer lowfuse.Unmount(mfs.Dir())

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Stat: %v", err)
	}
}

func TestNonexistentMountPoint(t *testing.T) {
	ctx := context.Background()

	// Set up a temporary directory.
	dir, err := os.MkdirTemp("", "mount_test")
	if err != nil {
		t.Fatalf("os.MkdirTemp: %v", err)
	}

	defer os.RemoveAll(dir)

	// Attempt to mount into a sub-directory that doesn't exist.
	fs := &minimalFS{}
	mfs, err := lowfuse.Mount(
		path.Join(dir, "foo"),
		fs,
		lowfuse.OpGetattr,
		&lowfuse.MountConfig{})

	if err == nil {
		lowfuse.Unmount(mfs.Dir())
		mfs.Join(ctx)
		t.Fatal("lowfuse.Mount returned nil")
	}

	const want = "no such file"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("Unexpected error: %v", got)
	}
}
