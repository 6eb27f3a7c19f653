// Package fs bridges MINIX filesystem calls onto the host filesystem: it
// roots every guest path under a configured MINIX installation directory,
// tracks a 20-slot file descriptor table exactly like the real kernel's
// fixed-size table, and synthesizes directory contents on open since
// MINIX 1.5 has no getdents(2) — directories are read like files.
package fs

import (
	"encoding/binary"
	"io"
	"os"
	"path"
	"strings"

	"github.com/minix68k/minixcompat/internal/mcerrno"
)

// FDCount is the number of file descriptors a MINIX process may have open
// at once.
const FDCount = 20

// DirentSize is the size of one synthesized directory entry: a 2-byte
// inode followed by a 14-byte, not necessarily NUL-terminated, name.
const DirentSize = 16

type fileType int

const (
	typeUnchecked fileType = iota
	typeFile
	typeDirectory
)

type fdEntry struct {
	hostFile *os.File
	inUse    bool
	kind     fileType

	// dirCache holds every synthesized dirent for an open directory,
	// rounded up to a multiple of 32 as the original does (one MINIX
	// block's worth), with unused trailing slots zeroed.
	dirCache []byte
	dirOff   int64
}

func (e *fdEntry) clear() {
	e.hostFile = nil
	e.inUse = false
	e.kind = typeUnchecked
	e.dirCache = nil
	e.dirOff = 0
}

// FS holds the filesystem bridge's state: the MINIX root, the current
// working directory (both guest- and host-relative forms), and the
// descriptor table. It carries no singletons, so a process fork can clone
// one independently of any other.
type FS struct {
	root string // MINIXCOMPAT_DIR, host-absolute

	pwd     string // MINIX-relative cwd, e.g. "/usr/bin"
	pwdHost string // host-absolute equivalent of pwd

	fds [FDCount]fdEntry
}

// New creates a filesystem bridge rooted at root, honoring pwd (a
// MINIX-relative path, defaulting to the host's own working directory if
// it falls inside root, else "/") exactly as MINIXCOMPAT_DIR/MINIXCOMPAT_PWD
// do.
func New(root, pwd string) *FS {
	f := &FS{root: root}

	if pwd == "" {
		pwd = "/"
		if hostCwd, err := os.Getwd(); err == nil {
			cleanCwd := path.Clean(hostCwd)
			prefix := strings.TrimSuffix(path.Clean(root), "/") + "/"
			if strings.HasPrefix(cleanCwd, prefix) {
				pwd = "/" + strings.TrimPrefix(cleanCwd, prefix)
			}
		}
	}
	f.SetWorkingDirectory(pwd)

	f.fds[0] = fdEntry{hostFile: os.Stdin, inUse: true, kind: typeFile}
	f.fds[1] = fdEntry{hostFile: os.Stdout, inUse: true, kind: typeFile}
	f.fds[2] = fdEntry{hostFile: os.Stderr, inUse: true, kind: typeFile}

	return f
}

// HostPath resolves a guest path (absolute or relative to the current
// working directory) to an absolute host path.
func (f *FS) HostPath(guestPath string) string {
	base := f.pwdHost
	if strings.HasPrefix(guestPath, "/") {
		base = f.root
	}
	return path.Join(base, guestPath)
}

// WorkingDirectory returns the current MINIX-relative working directory.
func (f *FS) WorkingDirectory() string { return f.pwd }

// SetWorkingDirectory updates the current working directory, recomputing
// its host-absolute equivalent.
func (f *FS) SetWorkingDirectory(mwd string) {
	f.pwd = mwd
	if strings.HasPrefix(mwd, "/") {
		f.pwdHost = path.Join(f.root, mwd)
	} else {
		f.pwdHost = path.Join(f.pwdHost, mwd)
	}
}

func (f *FS) inRange(fd int) bool { return fd >= 0 && fd < FDCount }

func (f *FS) findNextAvailable() (int, mcerrno.Errno) {
	for i := 0; i < FDCount; i++ {
		if !f.fds[i].inUse {
			return i, 0
		}
	}
	return -1, mcerrno.ENFILE
}

// Open opens a guest path with MINIX-style flags/mode and returns the new
// guest file descriptor, or a negative Errno on failure.
func (f *FS) Open(guestPath string, flags int, mode os.FileMode) (int, mcerrno.Errno) {
	fd, errno := f.findNextAvailable()
	if errno != 0 {
		return -1, errno
	}

	hostPath := f.HostPath(guestPath)
	file, err := os.OpenFile(hostPath, flags, mode)
	if err != nil {
		return -1, mcerrno.FromHost(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return -1, mcerrno.FromHost(err)
	}

	f.fds[fd] = fdEntry{hostFile: file, inUse: true, kind: typeFile}
	if info.IsDir() {
		if errno := f.precacheDir(fd, hostPath); errno != 0 {
			file.Close()
			f.fds[fd].clear()
			return -1, errno
		}
		f.fds[fd].kind = typeDirectory
	}

	return fd, 0
}

// Create is the bridge's open(O_CREAT|O_TRUNC|O_WRONLY) shorthand.
func (f *FS) Create(guestPath string, mode os.FileMode) (int, mcerrno.Errno) {
	return f.Open(guestPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
}

// Close closes a guest file descriptor.
func (f *FS) Close(fd int) mcerrno.Errno {
	if !f.inRange(fd) || !f.fds[fd].inUse {
		return mcerrno.EBADF
	}
	var errno mcerrno.Errno
	if err := f.fds[fd].hostFile.Close(); err != nil {
		errno = mcerrno.FromHost(err)
	}
	f.fds[fd].clear()
	return errno
}

// Read reads up to len(buf) bytes from fd. Reading a directory fd returns
// synthesized dirents instead of touching the host file.
func (f *FS) Read(fd int, buf []byte) (int, mcerrno.Errno) {
	if !f.inRange(fd) || !f.fds[fd].inUse {
		return -1, mcerrno.EBADF
	}
	e := &f.fds[fd]
	if e.kind == typeDirectory {
		return f.readDir(e, buf)
	}
	n, err := e.hostFile.Read(buf)
	if err != nil && err != io.EOF {
		return -1, mcerrno.FromHost(err)
	}
	return n, 0
}

// Write writes buf to fd.
func (f *FS) Write(fd int, buf []byte) (int, mcerrno.Errno) {
	if !f.inRange(fd) || !f.fds[fd].inUse {
		return -1, mcerrno.EBADF
	}
	e := &f.fds[fd]
	if e.kind == typeDirectory {
		return -1, mcerrno.EISDIR
	}
	n, err := e.hostFile.Write(buf)
	if err != nil {
		return -1, mcerrno.FromHost(err)
	}
	return n, 0
}

// Whence values, matching lseek(2)'s.
const (
	SeekSet = io.SeekStart
	SeekCur = io.SeekCurrent
	SeekEnd = io.SeekEnd
)

// Seek repositions fd. Directory fds are seeked within their synthesized
// entry cache instead of any host file.
func (f *FS) Seek(fd int, offset int64, whence int) (int64, mcerrno.Errno) {
	if !f.inRange(fd) || !f.fds[fd].inUse {
		return -1, mcerrno.EBADF
	}
	e := &f.fds[fd]
	if e.kind == typeDirectory {
		return f.seekDir(e, offset, whence)
	}
	pos, err := e.hostFile.Seek(offset, whence)
	if err != nil {
		return -1, mcerrno.FromHost(err)
	}
	return pos, 0
}

// Unlink removes a guest path.
func (f *FS) Unlink(guestPath string) mcerrno.Errno {
	if err := os.Remove(f.HostPath(guestPath)); err != nil {
		return mcerrno.FromHost(err)
	}
	return 0
}

// Access checks accessibility of a guest path using the host's access(2)
// semantics (mode bits interpreted as R_OK/W_OK/X_OK, not a MINIX st_mode).
func (f *FS) Access(guestPath string, mode int) mcerrno.Errno {
	hostPath := f.HostPath(guestPath)
	info, err := os.Stat(hostPath)
	if err != nil {
		return mcerrno.FromHost(err)
	}
	_ = info
	if err := accessCheck(hostPath, mode); err != nil {
		return mcerrno.FromHost(err)
	}
	return 0
}

// Stat fills minixStat with the MINIX-layout stat buffer (host byte order,
// the caller swaps before handing it to the guest) for a guest path.
func (f *FS) Stat(guestPath string, minixStat *Stat) mcerrno.Errno {
	info, err := os.Stat(f.HostPath(guestPath))
	if err != nil {
		return mcerrno.FromHost(err)
	}
	fillStat(minixStat, info)
	return 0
}

// StatOpen is Stat for an already-open descriptor (fstat).
func (f *FS) StatOpen(fd int, minixStat *Stat) mcerrno.Errno {
	if !f.inRange(fd) || !f.fds[fd].inUse {
		return mcerrno.EBADF
	}
	info, err := f.fds[fd].hostFile.Stat()
	if err != nil {
		return mcerrno.FromHost(err)
	}
	fillStat(minixStat, info)
	return 0
}

func (f *FS) precacheDir(fd int, hostPath string) mcerrno.Errno {
	entries, err := os.ReadDir(hostPath)
	if err != nil {
		return mcerrno.FromHost(err)
	}

	// Round the entry count up to a multiple of 32, one MINIX block's
	// worth, leaving the padding entries zeroed (inode 0 means "gap").
	count := len(entries)
	capacity := ((count + 31) / 32) * 32
	if capacity == 0 {
		capacity = 32
	}

	cache := make([]byte, capacity*DirentSize)
	for i, ent := range entries {
		info, err := ent.Info()
		var ino uint16
		if err == nil {
			ino = minixInode(info)
		}
		off := i * DirentSize
		binary.BigEndian.PutUint16(cache[off:off+2], ino)
		name := ent.Name()
		if len(name) > 14 {
			name = name[:14]
		}
		copy(cache[off+2:off+16], name)
	}

	f.fds[fd].dirCache = cache
	f.fds[fd].dirOff = 0
	return 0
}

func (f *FS) readDir(e *fdEntry, buf []byte) (int, mcerrno.Errno) {
	maxOff := int64(len(e.dirCache))
	n := int64(len(buf))
	if e.dirOff+n > maxOff {
		return -1, mcerrno.EIO
	}
	copy(buf, e.dirCache[e.dirOff:e.dirOff+n])
	e.dirOff += n
	return int(n), 0
}

func (f *FS) seekDir(e *fdEntry, offset int64, whence int) (int64, mcerrno.Errno) {
	maxOff := int64(len(e.dirCache)) - 1
	var newOff int64
	switch whence {
	case SeekSet:
		newOff = offset
	case SeekCur:
		newOff = e.dirOff + offset
	case SeekEnd:
		newOff = maxOff + offset
	default:
		return -1, mcerrno.EINVAL
	}
	if newOff < 0 || newOff > maxOff {
		return -1, mcerrno.EINVAL
	}
	e.dirOff = newOff
	return newOff, 0
}

// minixInode truncates a host inode to MINIX's 16-bit inode space,
// folding the discarded high bits in rather than dropping them, so a
// truncation collision with inode 0 still yields something deterministic
// and non-zero.
func minixInode(info os.FileInfo) uint16 {
	host := hostInode(info)
	if host == 0 {
		return 0
	}
	folded := uint16(host)
	if folded == 0 {
		folded = uint16((host>>48)&0xffff) + uint16((host>>32)&0xffff) +
			uint16((host>>16)&0xffff) + uint16(host&0xffff)
	}
	for v := host >> 16; folded == 0; v >>= 16 {
		folded = uint16(v)
	}
	return folded
}
