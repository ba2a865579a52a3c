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

package fuseops

import (
	"math"
	"time"

	"github.com/jacobsa/lowfuse/lowlevel"
	"golang.org/x/sys/unix"
)

// This file converts between the records in this package and the native
// structures of package lowlevel. Conversions never validate: values are
// assigned at the native field's width, truncating as C would, and native
// padding is zero on the way out and ignored on the way in.

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Assign src to a native field whose width varies by architecture.
func assign[D, S integer](dst *D, src S) {
	*dst = D(src)
}

func (ts Timespec) native() unix.Timespec {
	return unix.Timespec{Sec: ts.Sec, Nsec: int64(ts.Nsec)}
}

func timespecFromNative(ts unix.Timespec) Timespec {
	return Timespec{Sec: int64(ts.Sec), Nsec: uint32(ts.Nsec)}
}

////////////////////////////////////////////////////////////////////////
// Attributes
////////////////////////////////////////////////////////////////////////

// AttrToNative encodes a as a struct stat.
func AttrToNative(a *Attr) (st lowlevel.Stat) {
	st.Dev = a.Dev
	st.Ino = a.Ino
	assign(&st.Size, a.Size)
	assign(&st.Blocks, a.Blocks)
	st.Atim = a.Atime.native()
	st.Mtim = a.Mtime.native()
	st.Ctim = a.Ctime.native()
	st.Mode = a.Mode
	assign(&st.Nlink, a.Nlink)
	st.Uid = a.Uid
	st.Gid = a.Gid
	assign(&st.Blksize, a.Blksize)
	st.Rdev = a.Rdev

	return
}

// AttrFromNative decodes a struct stat.
func AttrFromNative(st *lowlevel.Stat) Attr {
	return Attr{
		Dev:     st.Dev,
		Ino:     st.Ino,
		Size:    uint64(st.Size),
		Blocks:  uint64(st.Blocks),
		Atime:   timespecFromNative(st.Atim),
		Mtime:   timespecFromNative(st.Mtim),
		Ctime:   timespecFromNative(st.Ctim),
		Mode:    st.Mode,
		Nlink:   uint32(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Blksize: uint32(st.Blksize),
		Rdev:    st.Rdev,
	}
}

////////////////////////////////////////////////////////////////////////
// File system statistics
////////////////////////////////////////////////////////////////////////

// StatFSToNative encodes s as a struct statvfs.
func StatFSToNative(s *StatFS) lowlevel.Statvfs {
	return lowlevel.Statvfs{
		Bsize:   s.Bsize,
		Frsize:  s.Frsize,
		Blocks:  s.Blocks,
		Bfree:   s.Bfree,
		Bavail:  s.Bavail,
		Files:   s.Files,
		Ffree:   s.Ffree,
		Favail:  s.Favail,
		Fsid:    s.Fsid,
		Flag:    s.Flag,
		Namemax: s.Namemax,
	}
}

// StatFSFromNative decodes a struct statvfs.
func StatFSFromNative(st *lowlevel.Statvfs) StatFS {
	return StatFS{
		Bsize:   st.Bsize,
		Frsize:  st.Frsize,
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Favail:  st.Favail,
		Fsid:    st.Fsid,
		Flag:    st.Flag,
		Namemax: st.Namemax,
	}
}

////////////////////////////////////////////////////////////////////////
// Locks
////////////////////////////////////////////////////////////////////////

// LockToNative encodes l as a struct flock.
func LockToNative(l *Lock) (fl lowlevel.Flock) {
	fl.Type = l.Type
	fl.Whence = l.Whence
	fl.Start = l.Start
	fl.Len = l.Len
	fl.Pid = l.Pid

	return
}

// LockFromNative decodes a struct flock.
func LockFromNative(fl *lowlevel.Flock) Lock {
	return Lock{
		Type:   fl.Type,
		Whence: fl.Whence,
		Start:  fl.Start,
		Len:    fl.Len,
		Pid:    fl.Pid,
	}
}

////////////////////////////////////////////////////////////////////////
// Entries and handles
////////////////////////////////////////////////////////////////////////

// TimeoutToNative converts a cache timeout to the seconds the kernel
// expects. Negative durations become zero.
func TimeoutToNative(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}

	return d.Seconds()
}

// TimeoutFromNative converts seconds to a duration, saturating at the
// largest duration.
func TimeoutFromNative(sec float64) time.Duration {
	switch {
	case sec <= 0 || math.IsNaN(sec):
		return 0
	case sec >= math.MaxInt64/float64(time.Second):
		return math.MaxInt64
	}

	return time.Duration(sec * float64(time.Second))
}

// EntryToNative encodes e as a struct fuse_entry_param.
func EntryToNative(e *EntryParam) lowlevel.EntryParam {
	return lowlevel.EntryParam{
		Ino:          uint64(e.Ino),
		Generation:   e.Generation,
		Attr:         AttrToNative(&e.Attr),
		AttrTimeout:  TimeoutToNative(e.AttrTimeout),
		EntryTimeout: TimeoutToNative(e.EntryTimeout),
	}
}

// EntryFromNative decodes a struct fuse_entry_param.
func EntryFromNative(e *lowlevel.EntryParam) EntryParam {
	return EntryParam{
		Ino:          InodeID(e.Ino),
		Generation:   e.Generation,
		Attr:         AttrFromNative(&e.Attr),
		AttrTimeout:  TimeoutFromNative(e.AttrTimeout),
		EntryTimeout: TimeoutFromNative(e.EntryTimeout),
	}
}

// DirEntryAttr returns the attributes embedded in a listing record for d:
// its inode number and type bits, with everything else zero.
func DirEntryAttr(d *DirEntry) Attr {
	return Attr{
		Ino:  uint64(d.Ino),
		Mode: d.Type.Mode(),
	}
}

// FileInfoFromNative decodes a struct fuse_file_info. A nil fi decodes to
// nil.
func FileInfoFromNative(fi *lowlevel.FileInfo) *FileInfo {
	if fi == nil {
		return nil
	}

	return &FileInfo{
		Flags:        fi.Flags,
		Handle:       HandleID(fi.Fh),
		LockOwner:    fi.LockOwner,
		PollEvents:   fi.PollEvents,
		DirectIO:     fi.DirectIO,
		KeepCache:    fi.KeepCache,
		NonSeekable:  fi.NonSeekable,
		CacheReaddir: fi.CacheReaddir,
		Writepage:    fi.Writepage,
		Flush:        fi.Flush,
		FlockRelease: fi.FlockRelease,
	}
}

// FileInfoToNative copies the fields a file system may set when opening
// into dst.
func FileInfoToNative(fi *FileInfo, dst *lowlevel.FileInfo) {
	dst.Fh = uint64(fi.Handle)
	dst.DirectIO = fi.DirectIO
	dst.KeepCache = fi.KeepCache
	dst.NonSeekable = fi.NonSeekable
	dst.CacheReaddir = fi.CacheReaddir
}

// ConnInfoFromNative decodes the connection parameters given to Init.
func ConnInfoFromNative(c *lowlevel.ConnInfo) ConnInfo {
	return ConnInfo{
		ProtoMajor:          c.ProtoMajor,
		ProtoMinor:          c.ProtoMinor,
		MaxWrite:            c.MaxWrite,
		MaxRead:             c.MaxRead,
		MaxReadahead:        c.MaxReadahead,
		Capable:             c.Capable,
		Want:                c.Want,
		MaxBackground:       c.MaxBackground,
		CongestionThreshold: c.CongestionThreshold,
		TimeGran:            c.TimeGran,
	}
}

// ConnInfoToNative copies the adjustable parameters of c into dst.
func ConnInfoToNative(c *ConnInfo, dst *lowlevel.ConnInfo) {
	dst.MaxWrite = c.MaxWrite
	dst.MaxReadahead = c.MaxReadahead
	dst.Want = c.Want
	dst.MaxBackground = c.MaxBackground
	dst.CongestionThreshold = c.CongestionThreshold
	dst.TimeGran = c.TimeGran
}

// OpHeaderFromNative decodes the caller identity of a request.
func OpHeaderFromNative(c *lowlevel.Ctx) OpHeader {
	return OpHeader{
		Uid:   c.Uid,
		Gid:   c.Gid,
		Pid:   c.Pid,
		Umask: c.Umask,
	}
}

// ForgetsFromNative decodes the list carried by a batch forget.
func ForgetsFromNative(in []lowlevel.ForgetData) []ForgetData {
	out := make([]ForgetData, len(in))
	for i, f := range in {
		out[i] = ForgetData{
			Ino:     InodeID(f.Ino),
			Nlookup: f.Nlookup,
		}
	}

	return out
}
