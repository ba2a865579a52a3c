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

// Types and functions that make it easier to work with package lowfuse.
//
// Implement FileSystem (usually by embedding NotImplementedFileSystem and
// overriding the methods you need), then hand it to lowfuse.Mount along with
// a mask naming those methods. DirentBuffer takes care of framing directory
// listings for READDIR and READDIRPLUS.
package fuseutil
