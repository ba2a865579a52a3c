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
	"context"
	"fmt"

	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/lowfuse/lowlevel"
)

// A struct representing the status of a mount operation, with a method that
// waits for unmounting.
type MountedFileSystem struct {
	dir     string
	session *lowlevel.Session

	// The result to return from Join. Not valid until the channel is closed.
	joinStatus          error
	joinStatusAvailable chan struct{}
}

// Return the directory on which the file system is mounted (or where we
// attempted to mount it.)
func (mfs *MountedFileSystem) Dir() string {
	return mfs.dir
}

// Return the session serving the file system, for sending notifications to
// the kernel.
func (mfs *MountedFileSystem) Session() *lowlevel.Session {
	return mfs.session
}

// Block until a mounted file system has been unmounted. Do not return
// successfully until all ops read from the kernel have been responded to
// and the file system's Destroy method has returned.
//
// The return value will be non-nil if anything unexpected happened while
// serving. May be called multiple times.
func (mfs *MountedFileSystem) Join(ctx context.Context) error {
	select {
	case <-mfs.joinStatusAvailable:
		return mfs.joinStatus
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attempt to mount fs on the given directory, exposing the operations in
// mask, and serve it in the background until it is unmounted. config may be
// nil.
func Mount[T fuseutil.FileSystem](
	dir string,
	fs T,
	mask OpFlag,
	config *MountConfig) (mfs *MountedFileSystem, err error) {
	if config == nil {
		config = &MountConfig{}
	}

	s := lowlevel.NewSession(NewOps[T](mask), fs, config.sessionConfig())
	if err = s.Mount(dir); err != nil {
		err = fmt.Errorf("Mount: %w", err)
		return
	}

	mfs = &MountedFileSystem{
		dir:                 dir,
		session:             s,
		joinStatusAvailable: make(chan struct{}),
	}

	// Serve in the background. When done, set the join status.
	go func() {
		var err error
		if config.Serial {
			err = s.Loop()
		} else {
			err = s.LoopMT()
		}

		if destroyErr := s.Destroy(); err == nil {
			err = destroyErr
		}

		mfs.joinStatus = err
		close(mfs.joinStatusAvailable)
	}()

	return
}

// Attempt to unmount the file system whose mount point is the supplied
// directory.
func Unmount(dir string) error {
	return lowlevel.Unmount(dir)
}
