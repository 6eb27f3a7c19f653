package fs

import (
	"encoding/binary"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Stat is the MINIX stat(2) buffer layout, in host byte order. Callers
// swap the individual fields to wire order before copying it into guest
// memory; see the message package for the swap convention used elsewhere.
type Stat struct {
	Dev   int16
	Ino   uint16
	Mode  uint16
	Nlink int16
	Uid   int16
	Gid   int16
	Rdev  int16
	Size  int32
	Atime int32
	Mtime int32
	Ctime int32
}

// MINIX mode bits, distinct from the host's S_IF*/S_I[RWX]* despite
// sharing the same numeric convention for the permission bits.
const (
	modeIFREG uint16 = 0100000
	modeIFBLK uint16 = 0060000
	modeIFDIR uint16 = 0040000
	modeIFCHR uint16 = 0020000
	modeIFIFO uint16 = 0010000
	modeISUID uint16 = 0004000
	modeISGID uint16 = 0002000
	modeISVTX uint16 = 0001000
)

func minixModeForHost(m os.FileMode) uint16 {
	var out uint16
	switch {
	case m.IsRegular():
		out |= modeIFREG
	case m&os.ModeDir != 0:
		out |= modeIFDIR
	case m&os.ModeCharDevice != 0:
		out |= modeIFCHR
	case m&os.ModeDevice != 0:
		out |= modeIFBLK
	case m&os.ModeNamedPipe != 0:
		out |= modeIFIFO
	}
	if m&os.ModeSetuid != 0 {
		out |= modeISUID
	}
	if m&os.ModeSetgid != 0 {
		out |= modeISGID
	}
	if m&os.ModeSticky != 0 {
		out |= modeISVTX
	}
	out |= uint16(m.Perm())
	return out
}

// clampSize clamps a host file size to MINIX's signed 32-bit off_t.
func clampSize(n int64) int32 {
	if n >= 0x7FFFFFFF {
		return 0x7FFFFFFF
	}
	return int32(n)
}

func hostInode(info os.FileInfo) uint64 {
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(sys.Ino)
	}
	return 0
}

func fillStat(out *Stat, info os.FileInfo) {
	sys, _ := info.Sys().(*syscall.Stat_t)

	out.Mode = minixModeForHost(info.Mode())
	out.Ino = minixInode(info)
	out.Size = clampSize(info.Size())
	out.Mtime = int32(info.ModTime().Unix())

	if sys != nil {
		out.Dev = int16(sys.Dev)
		out.Nlink = int16(sys.Nlink)
		out.Uid = int16(sys.Uid)
		out.Gid = int16(sys.Gid)
		out.Rdev = int16(sys.Rdev)
		out.Atime = int32(sys.Atim.Sec)
		out.Ctime = int32(sys.Ctim.Sec)
	}
}

func accessCheck(hostPath string, mode int) error {
	return unix.Access(hostPath, uint32(mode))
}

// StatSize is the wire size of a minix stat(2) buffer.
const StatSize = 30

// Marshal encodes st in MINIX's big-endian stat(2) buffer layout, ready
// to copy straight into guest memory.
func (st Stat) Marshal() [StatSize]byte {
	var b [StatSize]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(st.Dev))
	binary.BigEndian.PutUint16(b[2:4], st.Ino)
	binary.BigEndian.PutUint16(b[4:6], st.Mode)
	binary.BigEndian.PutUint16(b[6:8], uint16(st.Nlink))
	binary.BigEndian.PutUint16(b[8:10], uint16(st.Uid))
	binary.BigEndian.PutUint16(b[10:12], uint16(st.Gid))
	binary.BigEndian.PutUint16(b[12:14], uint16(st.Rdev))
	binary.BigEndian.PutUint32(b[14:18], uint32(st.Size))
	binary.BigEndian.PutUint32(b[18:22], uint32(st.Atime))
	binary.BigEndian.PutUint32(b[22:26], uint32(st.Mtime))
	binary.BigEndian.PutUint32(b[26:30], uint32(st.Ctime))
	return b
}
