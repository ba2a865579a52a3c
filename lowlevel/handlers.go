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
	"syscall"

	"github.com/jacobsa/lowfuse/internal/buffer"
	"github.com/jacobsa/lowfuse/internal/fusekernel"
	"golang.org/x/sys/unix"
)

// A handler decodes the arguments of one opcode and hands them to the
// matching callback, or answers on the callback's behalf when it is nil. It
// returns an error only if the message is malformed.
type handler func(s *Session, r *request, nodeid uint64, m *buffer.InMessage) error

var handlers = map[fusekernel.Opcode]handler{
	fusekernel.OpInit:          (*Session).doInit,
	fusekernel.OpDestroy:       (*Session).doDestroy,
	fusekernel.OpInterrupt:     (*Session).doInterrupt,
	fusekernel.OpLookup:        (*Session).doLookup,
	fusekernel.OpForget:        (*Session).doForget,
	fusekernel.OpBatchForget:   (*Session).doBatchForget,
	fusekernel.OpGetattr:       (*Session).doGetattr,
	fusekernel.OpSetattr:       (*Session).doSetattr,
	fusekernel.OpReadlink:      (*Session).doReadlink,
	fusekernel.OpSymlink:       (*Session).doSymlink,
	fusekernel.OpMknod:         (*Session).doMknod,
	fusekernel.OpMkdir:         (*Session).doMkdir,
	fusekernel.OpUnlink:        (*Session).doUnlink,
	fusekernel.OpRmdir:         (*Session).doRmdir,
	fusekernel.OpRename:        (*Session).doRename,
	fusekernel.OpRename2:       (*Session).doRename2,
	fusekernel.OpLink:          (*Session).doLink,
	fusekernel.OpOpen:          (*Session).doOpen,
	fusekernel.OpRead:          (*Session).doRead,
	fusekernel.OpWrite:         (*Session).doWrite,
	fusekernel.OpFlush:         (*Session).doFlush,
	fusekernel.OpRelease:       (*Session).doRelease,
	fusekernel.OpFsync:         (*Session).doFsync,
	fusekernel.OpOpendir:       (*Session).doOpendir,
	fusekernel.OpReaddir:       (*Session).doReaddir,
	fusekernel.OpReaddirplus:   (*Session).doReaddirplus,
	fusekernel.OpReleasedir:    (*Session).doReleasedir,
	fusekernel.OpFsyncdir:      (*Session).doFsyncdir,
	fusekernel.OpStatfs:        (*Session).doStatfs,
	fusekernel.OpSetxattr:      (*Session).doSetxattr,
	fusekernel.OpGetxattr:      (*Session).doGetxattr,
	fusekernel.OpListxattr:     (*Session).doListxattr,
	fusekernel.OpRemovexattr:   (*Session).doRemovexattr,
	fusekernel.OpAccess:        (*Session).doAccess,
	fusekernel.OpCreate:        (*Session).doCreate,
	fusekernel.OpGetlk:         (*Session).doGetlk,
	fusekernel.OpSetlk:         (*Session).doSetlk,
	fusekernel.OpSetlkw:        (*Session).doSetlkw,
	fusekernel.OpBmap:          (*Session).doBmap,
	fusekernel.OpPoll:          (*Session).doPoll,
	fusekernel.OpNotifyReply:   (*Session).doNotifyReply,
	fusekernel.OpFallocate:     (*Session).doFallocate,
	fusekernel.OpLseek:         (*Session).doLseek,
	fusekernel.OpCopyFileRange: (*Session).doCopyFileRange,
	fusekernel.OpIoctl:         (*Session).doIoctl,
}

func consumeName(m *buffer.InMessage) ([]byte, error) {
	name := m.ConsumeName()
	if name == nil {
		return nil, errShortMessage
	}

	return name, nil
}

////////////////////////////////////////////////////////////////////////
// Session management
////////////////////////////////////////////////////////////////////////

func (s *Session) doDestroy(r *request, nodeid uint64, m *buffer.InMessage) error {
	s.callDestroy()
	r.ReplyErr(0)
	return nil
}

// The kernel retries interrupted requests on its own, and callbacks answer
// synchronously, so there is nothing to do.
func (s *Session) doInterrupt(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.InterruptIn](m)
	if in == nil {
		return errShortMessage
	}

	s.debugf("%d: interrupt for %d ignored", r.unique, in.Unique)
	r.ReplyNone()
	return nil
}

func (s *Session) doIoctl(r *request, nodeid uint64, m *buffer.InMessage) error {
	r.ReplyErr(syscall.ENOSYS)
	return nil
}

////////////////////////////////////////////////////////////////////////
// Inodes
////////////////////////////////////////////////////////////////////////

func (s *Session) doLookup(r *request, nodeid uint64, m *buffer.InMessage) error {
	name, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Lookup == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Lookup(r, nodeid, name)
	return nil
}

func (s *Session) doForget(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.ForgetIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Forget == nil {
		r.ReplyNone()
		return nil
	}

	s.ops.Forget(r, nodeid, in.Nlookup)
	return nil
}

func (s *Session) doBatchForget(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.BatchForgetIn](m)
	if in == nil {
		return errShortMessage
	}

	forgets := make([]ForgetData, 0, in.Count)
	for i := uint32(0); i < in.Count; i++ {
		one := buffer.Consume[fusekernel.ForgetOne](m)
		if one == nil {
			return errShortMessage
		}

		forgets = append(forgets, ForgetData{Ino: one.Nodeid, Nlookup: one.Nlookup})
	}

	switch {
	case s.ops.ForgetMulti != nil:
		s.ops.ForgetMulti(r, forgets)

	case s.ops.Forget != nil:
		// Each forget gets a request of its own to answer.
		for _, f := range forgets {
			sub := &request{
				s:      s,
				opcode: fusekernel.OpForget,
				ctx:    r.ctx,
				start:  r.start,
			}

			s.ops.Forget(sub, f.Ino, f.Nlookup)
		}

		r.ReplyNone()

	default:
		r.ReplyNone()
	}

	return nil
}

func (s *Session) doGetattr(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.GetattrIn](m)
	if in == nil {
		return errShortMessage
	}

	var fi *FileInfo
	if in.GetattrFlags&fusekernel.GetattrFh != 0 {
		fi = &FileInfo{Fh: in.Fh}
	}

	if s.ops.Getattr == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Getattr(r, nodeid, fi)
	return nil
}

// The Setattr* bits a callback is told about.
const setattrPassed = fusekernel.SetattrMode |
	fusekernel.SetattrUid |
	fusekernel.SetattrGid |
	fusekernel.SetattrSize |
	fusekernel.SetattrAtime |
	fusekernel.SetattrMtime |
	fusekernel.SetattrAtimeNow |
	fusekernel.SetattrMtimeNow |
	fusekernel.SetattrCtime

func (s *Session) doSetattr(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.SetattrIn](m)
	if in == nil {
		return errShortMessage
	}

	var st Stat
	st.Mode = in.Mode
	st.Uid = in.Uid
	st.Gid = in.Gid
	st.Size = int64(in.Size)
	st.Atim = unix.Timespec{Sec: int64(in.Atime), Nsec: int64(in.AtimeNsec)}
	st.Mtim = unix.Timespec{Sec: int64(in.Mtime), Nsec: int64(in.MtimeNsec)}
	st.Ctim = unix.Timespec{Sec: int64(in.Ctime), Nsec: int64(in.CtimeNsec)}

	var fi *FileInfo
	if in.Valid&fusekernel.SetattrHandle != 0 {
		fi = &FileInfo{Fh: in.Fh}
	}

	if s.ops.Setattr == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Setattr(r, nodeid, &st, int(in.Valid&setattrPassed), fi)
	return nil
}

func (s *Session) doReadlink(r *request, nodeid uint64, m *buffer.InMessage) error {
	if s.ops.Readlink == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Readlink(r, nodeid)
	return nil
}

func (s *Session) doSymlink(r *request, nodeid uint64, m *buffer.InMessage) error {
	name, err := consumeName(m)
	if err != nil {
		return err
	}

	link, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Symlink == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Symlink(r, link, nodeid, name)
	return nil
}

func (s *Session) doMknod(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.MknodIn](m)
	if in == nil {
		return errShortMessage
	}

	name, err := consumeName(m)
	if err != nil {
		return err
	}

	r.ctx.Umask = in.Umask
	if s.ops.Mknod == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Mknod(r, nodeid, name, in.Mode, uint64(in.Rdev))
	return nil
}

func (s *Session) doMkdir(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.MkdirIn](m)
	if in == nil {
		return errShortMessage
	}

	name, err := consumeName(m)
	if err != nil {
		return err
	}

	r.ctx.Umask = in.Umask
	if s.ops.Mkdir == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Mkdir(r, nodeid, name, in.Mode)
	return nil
}

func (s *Session) doUnlink(r *request, nodeid uint64, m *buffer.InMessage) error {
	name, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Unlink == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Unlink(r, nodeid, name)
	return nil
}

func (s *Session) doRmdir(r *request, nodeid uint64, m *buffer.InMessage) error {
	name, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Rmdir == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Rmdir(r, nodeid, name)
	return nil
}

func (s *Session) doRename(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.RenameIn](m)
	if in == nil {
		return errShortMessage
	}

	return s.rename(r, nodeid, in.Newdir, 0, m)
}

func (s *Session) doRename2(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.Rename2In](m)
	if in == nil {
		return errShortMessage
	}

	return s.rename(r, nodeid, in.Newdir, in.Flags, m)
}

func (s *Session) rename(r *request, nodeid, newdir uint64, flags uint32, m *buffer.InMessage) error {
	oldName, err := consumeName(m)
	if err != nil {
		return err
	}

	newName, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Rename == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Rename(r, nodeid, oldName, newdir, newName, flags)
	return nil
}

func (s *Session) doLink(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.LinkIn](m)
	if in == nil {
		return errShortMessage
	}

	name, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Link == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Link(r, in.Oldnodeid, nodeid, name)
	return nil
}

////////////////////////////////////////////////////////////////////////
// Files
////////////////////////////////////////////////////////////////////////

func (s *Session) doOpen(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.OpenIn](m)
	if in == nil {
		return errShortMessage
	}

	fi := FileInfo{Flags: int32(in.Flags)}
	if s.ops.Open == nil {
		r.ReplyOpen(&fi)
		return nil
	}

	s.ops.Open(r, nodeid, &fi)
	return nil
}

func readFileInfo(in *fusekernel.ReadIn) *FileInfo {
	fi := &FileInfo{
		Fh:    in.Fh,
		Flags: int32(in.Flags),
	}

	if in.ReadFlags&fusekernel.ReadLockOwner != 0 {
		fi.LockOwner = in.LockOwner
	}

	return fi
}

func (s *Session) doRead(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.ReadIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Read == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Read(r, nodeid, int(in.Size), int64(in.Offset), readFileInfo(in))
	return nil
}

func (s *Session) doWrite(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.WriteIn](m)
	if in == nil {
		return errShortMessage
	}

	data := m.ConsumeBytes(uintptr(in.Size))
	if data == nil && in.Size != 0 {
		return errShortMessage
	}

	fi := &FileInfo{
		Fh:        in.Fh,
		Flags:     int32(in.Flags),
		Writepage: in.WriteFlags&fusekernel.WriteCache != 0,
	}

	if in.WriteFlags&fusekernel.WriteLockOwner != 0 {
		fi.LockOwner = in.LockOwner
	}

	switch {
	case s.ops.WriteBuf != nil:
		s.ops.WriteBuf(r, nodeid, &Bufvec{Bufs: [][]byte{data}}, int64(in.Offset), fi)

	case s.ops.Write != nil:
		s.ops.Write(r, nodeid, data, int64(in.Offset), fi)

	default:
		r.ReplyErr(syscall.ENOSYS)
	}

	return nil
}

func (s *Session) doFlush(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.FlushIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Flush == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Flush(r, nodeid, &FileInfo{
		Fh:        in.Fh,
		Flush:     true,
		LockOwner: in.LockOwner,
	})

	return nil
}

func releaseFileInfo(in *fusekernel.ReleaseIn) *FileInfo {
	return &FileInfo{
		Fh:           in.Fh,
		Flags:        int32(in.Flags),
		LockOwner:    in.LockOwner,
		Flush:        in.ReleaseFlags&fusekernel.ReleaseFlush != 0,
		FlockRelease: in.ReleaseFlags&fusekernel.ReleaseFlockUnlock != 0,
	}
}

func (s *Session) doRelease(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.ReleaseIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Release == nil {
		r.ReplyErr(0)
		return nil
	}

	s.ops.Release(r, nodeid, releaseFileInfo(in))
	return nil
}

func (s *Session) doFsync(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.FsyncIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Fsync == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	datasync := int(in.FsyncFlags & fusekernel.FsyncFdatasync)
	s.ops.Fsync(r, nodeid, datasync, &FileInfo{Fh: in.Fh})
	return nil
}

func (s *Session) doFallocate(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.FallocateIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Fallocate == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Fallocate(r, nodeid, int(in.Mode), int64(in.Offset), int64(in.Length), &FileInfo{Fh: in.Fh})
	return nil
}

func (s *Session) doLseek(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.LseekIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Lseek == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Lseek(r, nodeid, int64(in.Offset), int(in.Whence), &FileInfo{Fh: in.Fh})
	return nil
}

func (s *Session) doCopyFileRange(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.CopyFileRangeIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.CopyFileRange == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.CopyFileRange(
		r,
		nodeid, int64(in.OffIn), &FileInfo{Fh: in.FhIn},
		in.NodeidOut, int64(in.OffOut), &FileInfo{Fh: in.FhOut},
		int(in.Len),
		int(in.Flags))

	return nil
}

func (s *Session) doBmap(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.BmapIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Bmap == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Bmap(r, nodeid, int(in.Blocksize), in.Block)
	return nil
}

func (s *Session) doPoll(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.PollIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Poll == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	var ph *PollHandle
	if in.Flags&fusekernel.PollScheduleNotify != 0 {
		ph = &PollHandle{kh: in.Kh, s: s}
	}

	s.ops.Poll(r, nodeid, &FileInfo{Fh: in.Fh, PollEvents: in.Events}, ph)
	return nil
}

func (s *Session) doCreate(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.CreateIn](m)
	if in == nil {
		return errShortMessage
	}

	name, err := consumeName(m)
	if err != nil {
		return err
	}

	r.ctx.Umask = in.Umask
	if s.ops.Create == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Create(r, nodeid, name, in.Mode, &FileInfo{Flags: int32(in.Flags)})
	return nil
}

////////////////////////////////////////////////////////////////////////
// Directories
////////////////////////////////////////////////////////////////////////

func (s *Session) doOpendir(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.OpenIn](m)
	if in == nil {
		return errShortMessage
	}

	fi := FileInfo{Flags: int32(in.Flags)}
	if s.ops.Opendir == nil {
		r.ReplyOpen(&fi)
		return nil
	}

	s.ops.Opendir(r, nodeid, &fi)
	return nil
}

func (s *Session) doReaddir(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.ReadIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Readdir == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Readdir(r, nodeid, int(in.Size), int64(in.Offset), readFileInfo(in))
	return nil
}

func (s *Session) doReaddirplus(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.ReadIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Readdirplus == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Readdirplus(r, nodeid, int(in.Size), int64(in.Offset), readFileInfo(in))
	return nil
}

func (s *Session) doReleasedir(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.ReleaseIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Releasedir == nil {
		r.ReplyErr(0)
		return nil
	}

	s.ops.Releasedir(r, nodeid, releaseFileInfo(in))
	return nil
}

func (s *Session) doFsyncdir(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.FsyncIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Fsyncdir == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	datasync := int(in.FsyncFlags & fusekernel.FsyncFdatasync)
	s.ops.Fsyncdir(r, nodeid, datasync, &FileInfo{Fh: in.Fh})
	return nil
}

////////////////////////////////////////////////////////////////////////
// File systems and extended attributes
////////////////////////////////////////////////////////////////////////

func (s *Session) doStatfs(r *request, nodeid uint64, m *buffer.InMessage) error {
	if s.ops.Statfs == nil {
		r.ReplyStatfs(&Statvfs{Namemax: 255, Bsize: 512})
		return nil
	}

	s.ops.Statfs(r, nodeid)
	return nil
}

func (s *Session) doSetxattr(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.SetxattrIn](m)
	if in == nil {
		return errShortMessage
	}

	name, err := consumeName(m)
	if err != nil {
		return err
	}

	value := m.ConsumeBytes(uintptr(in.Size))
	if value == nil && in.Size != 0 {
		return errShortMessage
	}

	if s.ops.Setxattr == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Setxattr(r, nodeid, name, value, int(in.Flags))
	return nil
}

func (s *Session) doGetxattr(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.GetxattrIn](m)
	if in == nil {
		return errShortMessage
	}

	name, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Getxattr == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Getxattr(r, nodeid, name, int(in.Size))
	return nil
}

func (s *Session) doListxattr(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.GetxattrIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Listxattr == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Listxattr(r, nodeid, int(in.Size))
	return nil
}

func (s *Session) doRemovexattr(r *request, nodeid uint64, m *buffer.InMessage) error {
	name, err := consumeName(m)
	if err != nil {
		return err
	}

	if s.ops.Removexattr == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Removexattr(r, nodeid, name)
	return nil
}

func (s *Session) doAccess(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.AccessIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Access == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	s.ops.Access(r, nodeid, int(in.Mask))
	return nil
}

////////////////////////////////////////////////////////////////////////
// Locks
////////////////////////////////////////////////////////////////////////

func (s *Session) doGetlk(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.LkIn](m)
	if in == nil {
		return errShortMessage
	}

	if s.ops.Getlk == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	lock := convertFileLock(&in.Lk)
	s.ops.Getlk(r, nodeid, &FileInfo{Fh: in.Fh, LockOwner: in.Owner}, &lock)
	return nil
}

func (s *Session) doSetlk(r *request, nodeid uint64, m *buffer.InMessage) error {
	return s.setlk(r, nodeid, m, false)
}

func (s *Session) doSetlkw(r *request, nodeid uint64, m *buffer.InMessage) error {
	return s.setlk(r, nodeid, m, true)
}

func (s *Session) setlk(r *request, nodeid uint64, m *buffer.InMessage, sleep bool) error {
	in := buffer.Consume[fusekernel.LkIn](m)
	if in == nil {
		return errShortMessage
	}

	fi := &FileInfo{Fh: in.Fh, LockOwner: in.Owner}

	// BSD locks arrive as whole-file POSIX locks with a flag set.
	if in.LkFlags&fusekernel.LkFlock != 0 {
		if s.ops.Flock == nil {
			r.ReplyErr(syscall.ENOSYS)
			return nil
		}

		var op int
		switch in.Lk.Type {
		case unix.F_RDLCK:
			op = unix.LOCK_SH
		case unix.F_WRLCK:
			op = unix.LOCK_EX
		case unix.F_UNLCK:
			op = unix.LOCK_UN
		}

		if !sleep {
			op |= unix.LOCK_NB
		}

		s.ops.Flock(r, nodeid, fi, op)
		return nil
	}

	if s.ops.Setlk == nil {
		r.ReplyErr(syscall.ENOSYS)
		return nil
	}

	lock := convertFileLock(&in.Lk)
	s.ops.Setlk(r, nodeid, fi, &lock, sleep)
	return nil
}

////////////////////////////////////////////////////////////////////////
// Notification replies
////////////////////////////////////////////////////////////////////////

func (s *Session) doNotifyReply(r *request, nodeid uint64, m *buffer.InMessage) error {
	in := buffer.Consume[fusekernel.NotifyRetrieveIn](m)
	if in == nil {
		return errShortMessage
	}

	data := m.ConsumeBytes(uintptr(in.Size))
	if data == nil && in.Size != 0 {
		return errShortMessage
	}

	s.mu.Lock()
	cookie, ok := s.retrieves[r.unique]
	delete(s.retrieves, r.unique)
	s.mu.Unlock()

	if !ok || s.ops.RetrieveReply == nil {
		r.ReplyNone()
		return nil
	}

	s.ops.RetrieveReply(r, cookie, nodeid, int64(in.Offset), &Bufvec{Bufs: [][]byte{data}})
	return nil
}
