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

// A tool for mounting the sample file systems:
//
//	mount_sample --type memfs /mnt/memfs
//
// Settings may also come from a config file (--config) and LOWFUSE_*
// environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseutil"
	"github.com/jacobsa/lowfuse/samples/hellofs"
	"github.com/jacobsa/lowfuse/samples/loopbackfs"
	"github.com/jacobsa/lowfuse/samples/memfs"
	"github.com/jacobsa/lowfuse/samples/statfs"
	"github.com/jacobsa/timeutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

const logFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile

// Create the file system selected by cfg, along with the operations it
// implements.
func makeFS(cfg *Config, logger *log.Logger) (fs fuseutil.FileSystem, mask lowfuse.OpFlag, err error) {
	switch cfg.Type {
	default:
		err = fmt.Errorf("Unknown FS type: %v", cfg.Type)

	case "hello":
		fs = &hellofs.HelloFS{Clock: timeutil.RealClock()}
		mask = hellofs.Mask

	case "memfs":
		fs = memfs.NewMemFS(
			uint32(os.Getuid()),
			uint32(os.Getgid()),
			timeutil.RealClock())
		mask = memfs.Mask

	case "loopback":
		var lc *LoopbackConfig
		if lc, err = cfg.LoopbackConfig(); err != nil {
			return
		}

		fs, err = loopbackfs.NewFileSystem(lc.Root, cfg.ReadOnly, logger)
		mask = loopbackfs.Mask

	case "statfs":
		var sc *StatfsConfig
		if sc, err = cfg.StatfsConfig(); err != nil {
			return
		}

		sfs := statfs.New()
		sfs.SetStatFSResponse(sc.StatFS)
		fs = sfs
		mask = statfs.Mask
	}

	if err != nil {
		return
	}

	mask, err = cfg.Mask(mask)
	return
}

// Serve the default Prometheus registry, which holds the session metrics.
func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		err := http.ListenAndServe(addr, mux)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server: %v", err)
		}
	}()
}

func main() {
	flags := pflag.CommandLine
	registerFlags(flags)

	// Pick up --fuse.debug and friends.
	flags.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	// lowfuse consults the flag package only once it has been parsed.
	if err := flag.CommandLine.Parse(nil); err != nil {
		log.Fatalf("flag.Parse: %v", err)
	}

	logger := log.New(os.Stderr, "mount_sample: ", logFlags)

	cfg, err := loadConfig(flags)
	if err != nil {
		logger.Fatalf("loadConfig: %v", err)
	}

	fs, mask, err := makeFS(cfg, logger)
	if err != nil {
		logger.Fatalf("makeFS: %v", err)
	}

	if cfg.MetricsListen != "" {
		serveMetrics(cfg.MetricsListen, logger)
	}

	mountCfg := &lowfuse.MountConfig{
		FSName:      cfg.FSName,
		Subtype:     cfg.Type,
		ReadOnly:    cfg.ReadOnly,
		ErrorLogger: log.New(os.Stderr, "fuse: ", logFlags),
	}

	if cfg.Debug {
		mountCfg.DebugLogger = log.New(os.Stderr, "fuse_debug: ", logFlags)
	}

	// Mount the file system.
	mfs, err := lowfuse.Mount(cfg.MountPoint, fs, mask, mountCfg)
	if err != nil {
		logger.Fatalf("Mount: %v", err)
	}

	// Unmount on interrupt, leaving Join to report the outcome.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, unix.SIGTERM)
	go func() {
		for range sigs {
			if err := lowfuse.Unmount(mfs.Dir()); err != nil {
				logger.Printf("Unmount: %v", err)
			}
		}
	}()

	// Wait for it to be unmounted.
	if err = mfs.Join(context.Background()); err != nil {
		logger.Fatalf("Join: %v", err)
	}
}
