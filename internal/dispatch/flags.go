package dispatch

import (
	"os"
	"syscall"
)

// MINIX open(2) flags. These are MINIX's own bit assignments, distinct
// from the host's <fcntl.h> values, so every flag is translated
// individually rather than passed through.
const (
	minixOCreat    = 00100
	minixOExcl     = 00200
	minixONoCTTY   = 00400
	minixOTrunc    = 01000
	minixOAppend   = 02000
	minixONonblock = 04000
	minixORDONLY   = 00000
	minixOWRONLY   = 00001
	minixORDWR     = 00002
)

func hostOpenFlags(minixFlags int16) int {
	var host int
	if minixFlags&minixOCreat != 0 {
		host |= os.O_CREATE
	}
	if minixFlags&minixOExcl != 0 {
		host |= os.O_EXCL
	}
	if minixFlags&minixONoCTTY != 0 {
		host |= syscall.O_NOCTTY
	}
	if minixFlags&minixOTrunc != 0 {
		host |= os.O_TRUNC
	}
	if minixFlags&minixOAppend != 0 {
		host |= os.O_APPEND
	}
	if minixFlags&minixONonblock != 0 {
		host |= syscall.O_NONBLOCK
	}
	switch minixFlags & 03 {
	case minixOWRONLY:
		host |= os.O_WRONLY
	case minixORDWR:
		host |= os.O_RDWR
	default:
		host |= os.O_RDONLY
	}
	return host
}

// MINIX mode bits used by open(2)/creat(2) when O_CREAT is set.
const (
	minixIRWXU = 00700
	minixIRWXG = 00070
	minixIRWXO = 00007
)

func hostOpenMode(minixMode int16) os.FileMode {
	return os.FileMode(minixMode & (minixIRWXU | minixIRWXG | minixIRWXO))
}

// MINIX lseek(2) whence constants.
const (
	minixSeekSet = 0
	minixSeekCur = 1
	minixSeekEnd = 2
)

func hostWhence(minixWhence int16) int {
	switch minixWhence {
	case minixSeekCur:
		return 1
	case minixSeekEnd:
		return 2
	default:
		return 0
	}
}
