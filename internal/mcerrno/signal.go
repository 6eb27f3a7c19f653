package mcerrno

import "golang.org/x/sys/unix"

// Signal is a MINIX signal number, 1 through 16.
type Signal int16

const (
	SIGHUP    Signal = 1
	SIGINT    Signal = 2
	SIGQUIT   Signal = 3
	SIGILL    Signal = 4
	SIGTRAP   Signal = 5
	SIGABRT   Signal = 6
	SIGIOT           = SIGABRT // alias, same value on MINIX
	SIGUNUSED Signal = 7
	SIGFPE    Signal = 8
	SIGKILL   Signal = 9
	SIGUSR1   Signal = 10
	SIGSEGV   Signal = 11
	SIGUSR2   Signal = 12
	SIGPIPE   Signal = 13
	SIGALRM   Signal = 14
	SIGTERM   Signal = 15
	SIGSTKFLT Signal = 16
)

// hostForSignal mirrors MINIXCompat_Processes_HostSignalForMINIXSignal:
// signals MINIX has but the host treats specially get mapped to a benign
// host signal we're unlikely to otherwise receive, so kill/signal never
// fail purely because of the mapping.
var hostForSignal = map[Signal]unix.Signal{
	SIGHUP:    unix.SIGHUP,
	SIGINT:    unix.SIGINT,
	SIGQUIT:   unix.SIGQUIT,
	SIGILL:    unix.SIGILL,
	SIGTRAP:   unix.SIGTRAP,
	SIGABRT:   unix.SIGABRT,
	SIGUNUSED: unix.SIGXFSZ,
	SIGFPE:    unix.SIGFPE,
	SIGKILL:   unix.SIGKILL,
	SIGUSR1:   unix.SIGUSR1,
	SIGSEGV:   unix.SIGSEGV,
	SIGUSR2:   unix.SIGUSR2,
	SIGPIPE:   unix.SIGPIPE,
	SIGALRM:   unix.SIGALRM,
	SIGTERM:   unix.SIGTERM,
	SIGSTKFLT: unix.SIGXCPU,
}

var signalForHost map[unix.Signal]Signal

func init() {
	signalForHost = make(map[unix.Signal]Signal, len(hostForSignal))
	for m, h := range hostForSignal {
		signalForHost[h] = m
	}
}

// HostSignal returns the host signal corresponding to sig, and whether one
// is defined.
func HostSignal(sig Signal) (unix.Signal, bool) {
	h, ok := hostForSignal[sig]
	return h, ok
}

// FromHostSignal returns the MINIX signal corresponding to a host signal
// number, or 0 if the host delivered something MINIX has no notion of.
func FromHostSignal(h unix.Signal) Signal {
	return signalForHost[h]
}

// Valid reports whether sig is one of the sixteen MINIX signal numbers.
func (s Signal) Valid() bool {
	return s >= SIGHUP && s <= SIGSTKFLT
}
