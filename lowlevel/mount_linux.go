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
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"syscall"
)

// Mount mounts the session's file system at dir using fusermount, and
// attaches the session to the resulting device.
//
// If dir has the form /dev/fd/N, N is taken to be an already-mounted
// /dev/fuse descriptor, as passed by mount.fuse3 or a container runtime.
func (s *Session) Mount(dir string) error {
	dev, err := mount(dir, &s.cfg)
	if err != nil {
		return err
	}

	s.mountpoint = dir
	s.Attach(dev)

	return nil
}

// Unmount unmounts the session's mount point. The loop returns once the
// kernel has hung up.
func (s *Session) Unmount() error {
	if s.mountpoint == "" {
		return ErrNotMounted
	}

	return Unmount(s.mountpoint)
}

func mount(dir string, cfg *Config) (*os.File, error) {
	if strings.HasPrefix(dir, "/dev/fd/") {
		fd, err := parseFuseFd(dir)
		if err != nil {
			return nil, err
		}

		return os.NewFile(uintptr(fd), "/dev/fuse"), nil
	}

	// fusermount's complaints about a missing directory are less readable.
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	if !fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, syscall.ENOTDIR)
	}

	return mountWithFusermount(dir, mountOptions(cfg))
}

// Return the file descriptor named by a path of the form /dev/fd/N.
func parseFuseFd(dir string) (int, error) {
	fd, err := strconv.Atoi(strings.TrimPrefix(dir, "/dev/fd/"))
	if err != nil {
		return -1, fmt.Errorf("invalid /dev/fd/N path: %w", err)
	}

	if fd < 0 {
		return -1, fmt.Errorf("invalid /dev/fd/N path: N must be non-negative, got %d", fd)
	}

	return fd, nil
}

// Escape a value for fusermount's -o parser.
func escapeOption(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, ",", `\,`)
}

// Render the comma-separated option string given to fusermount.
func mountOptions(cfg *Config) string {
	opts := map[string]string{
		"fsname": cfg.FSName,
	}

	if cfg.Subtype != "" {
		opts["subtype"] = cfg.Subtype
	}

	if cfg.ReadOnly {
		opts["ro"] = ""
	}

	if cfg.AllowOther {
		opts["allow_other"] = ""
	}

	if cfg.DefaultPermissions {
		opts["default_permissions"] = ""
	}

	for k, v := range cfg.Options {
		opts[k] = v
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if v := opts[k]; v != "" {
			parts = append(parts, k+"="+escapeOption(v))
		} else {
			parts = append(parts, k)
		}
	}

	return strings.Join(parts, ",")
}

func findFusermount() (string, error) {
	for _, name := range []string{"fusermount3", "fusermount"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	// PATH may be stripped in setuid contexts.
	for _, path := range []string{"/bin/fusermount3", "/bin/fusermount", "/usr/bin/fusermount3", "/usr/bin/fusermount"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", errors.New("fusermount not found in PATH")
}

// Run fusermount, which mounts dir and sends back the /dev/fuse descriptor
// over a socket named by _FUSE_COMMFD.
func mountWithFusermount(dir string, opts string) (*os.File, error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("Socketpair: %w", err)
	}

	writeFile := os.NewFile(uintptr(fds[0]), "fusermount-child-writes")
	defer writeFile.Close()

	readFile := os.NewFile(uintptr(fds[1]), "fusermount-parent-reads")
	defer readFile.Close()

	fusermount, err := findFusermount()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(fusermount, "-o", opts, "--", dir)
	cmd.Env = append(os.Environ(), "_FUSE_COMMFD=3")
	cmd.ExtraFiles = []*os.File{writeFile}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w: %s", fusermount, err, bytes.TrimRight(stderr.Bytes(), "\n"))
	}

	c, err := net.FileConn(readFile)
	if err != nil {
		return nil, fmt.Errorf("FileConn: %w", err)
	}
	defer c.Close()

	uc, ok := c.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("unexpected connection type %T", c)
	}

	buf := make([]byte, 32)
	oob := make([]byte, 32)
	_, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, fmt.Errorf("ReadMsgUnix: %w", err)
	}

	scms, err := syscall.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("ParseSocketControlMessage: %w", err)
	}

	if len(scms) != 1 {
		return nil, fmt.Errorf("expected 1 socket control message, got %d", len(scms))
	}

	gotFds, err := syscall.ParseUnixRights(&scms[0])
	if err != nil {
		return nil, fmt.Errorf("ParseUnixRights: %w", err)
	}

	if len(gotFds) != 1 {
		return nil, fmt.Errorf("expected 1 file descriptor, got %d", len(gotFds))
	}

	return os.NewFile(uintptr(gotFds[0]), "/dev/fuse"), nil
}
