// Package mcerrno translates between host errno/signal numbers and their
// MINIX equivalents.
package mcerrno

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Errno is a MINIX errno value, as returned (negated) by every bridge
// function on failure.
type Errno int16

const (
	EPERM      Errno = 1
	ENOENT     Errno = 2
	ESRCH      Errno = 3
	EINTR      Errno = 4
	EIO        Errno = 5
	ENXIO      Errno = 6
	E2BIG      Errno = 7
	ENOEXEC    Errno = 8
	EBADF      Errno = 9
	ECHILD     Errno = 10
	EAGAIN     Errno = 11
	ENOMEM     Errno = 12
	EACCES     Errno = 13
	EFAULT     Errno = 14
	ENOTBLK    Errno = 15
	EBUSY      Errno = 16
	EEXIST     Errno = 17
	EXDEV      Errno = 18
	ENODEV     Errno = 19
	ENOTDIR    Errno = 20
	EISDIR     Errno = 21
	EINVAL     Errno = 22
	ENFILE     Errno = 23
	EMFILE     Errno = 24
	ENOTTY     Errno = 25
	ETXTBSY    Errno = 26
	EFBIG      Errno = 27
	ENOSPC     Errno = 28
	ESPIPE     Errno = 29
	EROFS      Errno = 30
	EMLINK     Errno = 31
	EPIPE      Errno = 32
	EDOM       Errno = 33
	ERANGE     Errno = 34
	EDEADLK    Errno = 35
	ENAMETOOLONG Errno = 36
	ENOLCK     Errno = 37
	ENOSYS     Errno = 38
	ENOTEMPTY  Errno = 39

	// ERROR is the catch-all for any host errno without a MINIX equivalent.
	ERROR Errno = 99
)

// hostToMinix mirrors MINIXCompat_Errors_MINIXErrorForHostError: every
// entry the original maps, mapped the same way.
var hostToMinix = map[unix.Errno]Errno{
	unix.EPERM:   EPERM,
	unix.ENOENT:  ENOENT,
	unix.ESRCH:   ESRCH,
	unix.EINTR:   EINTR,
	unix.EIO:     EIO,
	unix.ENXIO:   ENXIO,
	unix.E2BIG:   E2BIG,
	unix.ENOEXEC: ENOEXEC,
	unix.EBADF:   EBADF,
	unix.ECHILD:  ECHILD,
	unix.EAGAIN:  EAGAIN,
	unix.ENOMEM:  ENOMEM,
	unix.EACCES:  EACCES,
	unix.EFAULT:  EFAULT,
	unix.ENOTBLK: ENOTBLK,
	unix.EBUSY:   EBUSY,
	unix.EEXIST:  EEXIST,
	unix.EXDEV:   EXDEV,
	unix.ENODEV:  ENODEV,
	unix.ENOTDIR: ENOTDIR,
	unix.EISDIR:  EISDIR,
	unix.EINVAL:  EINVAL,
	unix.ENFILE:  ENFILE,
	unix.EMFILE:  EMFILE,
	unix.ENOTTY:  ENOTTY,
	unix.ETXTBSY: ETXTBSY,
	unix.EFBIG:   EFBIG,
	unix.ENOSPC:  ENOSPC,
	unix.ESPIPE:  ESPIPE,
	unix.EROFS:   EROFS,
	unix.EMLINK:  EMLINK,
	unix.EPIPE:   EPIPE,
	unix.EDOM:    EDOM,
	unix.ERANGE:  ERANGE,
	unix.EDEADLK: EDEADLK,
	unix.ENAMETOOLONG: ENAMETOOLONG,
	unix.ENOLCK:  ENOLCK,
	unix.ENOSYS:  ENOSYS,
	unix.ENOTEMPTY: ENOTEMPTY,
}

var minixToHost map[Errno]unix.Errno

func init() {
	minixToHost = make(map[Errno]unix.Errno, len(hostToMinix))
	for h, m := range hostToMinix {
		minixToHost[m] = h
	}
}

// FromHost classifies a host error into its MINIX equivalent, falling back
// to ERROR for anything not in the mapped set.
func FromHost(err error) Errno {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		if m, ok := hostToMinix[errno]; ok {
			return m
		}
	}
	if errors.Is(err, os.ErrNotExist) {
		return ENOENT
	}
	if errors.Is(err, os.ErrPermission) {
		return EACCES
	}
	return ERROR
}

// ToHost returns the host errno corresponding to e, and whether one is
// known. Used by tests to verify the round-trip invariant.
func ToHost(e Errno) (unix.Errno, bool) {
	h, ok := minixToHost[e]
	return h, ok
}

// Neg returns -errno as the signed reply value a bridge function returns on
// failure.
func (e Errno) Neg() int32 {
	return -int32(e)
}
