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

// Package lowlevel speaks the FUSE kernel protocol on behalf of an inode-based
// file system, in the manner of libfuse's low-level API.
//
// A Session reads requests from /dev/fuse, decodes their arguments into the
// native structures defined here, and invokes the matching callback in an
// Ops table. Callbacks answer through the Req handle they are given, using
// exactly one of its Reply methods. A nil callback is never invoked: the
// session answers on its behalf, usually with ENOSYS.
//
// Byte slices handed to callbacks alias the session's receive buffer and are
// valid only until the callback returns.
//
// Only Linux is supported, and native structures use the 64-bit layout.
package lowlevel
