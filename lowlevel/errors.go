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

import "errors"

// ErrAlreadyReplied is returned by a Req's reply methods once the request
// has been answered.
var ErrAlreadyReplied = errors.New("request already answered")

// ErrExternallyManagedMountPoint is returned when asked to unmount a file
// system that was mounted through a file descriptor passed in as
// /dev/fd/N, whose mount point is owned by whoever opened the descriptor.
var ErrExternallyManagedMountPoint = errors.New("mount point is externally managed")

// ErrNotMounted is returned by the loop functions of a session with no
// device attached.
var ErrNotMounted = errors.New("session has no device attached")

// errShortMessage marks a request whose arguments are truncated.
var errShortMessage = errors.New("message too short for its arguments")
