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
	"log"

	"github.com/jacobsa/lowfuse/lowlevel"
)

// Optional configuration accepted by Mount.
type MountConfig struct {
	// The context from which every op's context inherits. If nil,
	// context.Background is used.
	OpContext context.Context

	// The name shown in the first column of /proc/mounts, and the type
	// suffix shown as "fuse.<Subtype>". FSName defaults to "lowfuse".
	FSName  string
	Subtype string

	// Mount the file system in read-only mode.
	ReadOnly bool

	// Let users other than the one mounting access the file system.
	AllowOther bool

	// Have the kernel check permissions against the modes returned by the
	// file system, rather than calling Access.
	DefaultPermissions bool

	// Additional key=value options passed to fusermount. A key with an empty
	// value is passed without "=".
	Options map[string]string

	// Serve requests one at a time, in the order they arrive. By default each
	// request gets its own goroutine, and the file system must be safe for
	// concurrent use.
	Serial bool

	// Don't offer FUSE_ASYNC_READ, so that the kernel sends reads for a file
	// one at a time.
	DisableAsyncRead bool

	// Limits on background requests announced at INIT. Zero leaves the
	// kernel's defaults.
	MaxBackground       uint16
	CongestionThreshold uint16

	// A logger to use for logging errors. All errors that are returned to the
	// kernel without a specific errno are logged here. If nil, no error
	// logging is performed.
	ErrorLogger *log.Logger

	// A logger to use for logging debug information. If nil, the logger
	// selected by the --fuse.debug flag is used.
	DebugLogger *log.Logger
}

// Create the session configuration corresponding to c.
func (c *MountConfig) sessionConfig() *lowlevel.Config {
	cfg := &lowlevel.Config{
		FSName:              c.FSName,
		Subtype:             c.Subtype,
		ReadOnly:            c.ReadOnly,
		AllowOther:          c.AllowOther,
		DefaultPermissions:  c.DefaultPermissions,
		Options:             c.Options,
		DisableAsyncRead:    c.DisableAsyncRead,
		MaxBackground:       c.MaxBackground,
		CongestionThreshold: c.CongestionThreshold,
		DebugLogger:         c.DebugLogger,
		ErrorLogger:         c.ErrorLogger,
		OpContext:           c.OpContext,
	}

	if cfg.DebugLogger == nil {
		cfg.DebugLogger = getLogger()
	}

	return cfg
}
