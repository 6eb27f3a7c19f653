package proc

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/minix68k/minixcompat/internal/mcerrno"
)

// Handler is a MINIX signal handler value: SIG_DFL (0), SIG_IGN (1),
// SIG_ERR (-1, as 0xFFFFFFFF), or a guest function pointer.
type Handler uint32

const (
	SIG_DFL Handler = 0x00000000
	SIG_IGN Handler = 0x00000001
	SIG_ERR Handler = 0xFFFFFFFF
)

// Signals tracks per-signal handler state and pending deliveries. Host
// signals the emulator's own process receives are translated into MINIX
// signal numbers and queued here; the run loop drains the queue between
// instruction-execution quanta rather than touching guest state from a
// host signal-handler context, since signal handlers run on a borrowed
// OS thread and must not call back into Go code that isn't signal-safe.
type Signals struct {
	mu       sync.Mutex
	handlers [mcerrno.SIGSTKFLT + 1]Handler
	pending  [mcerrno.SIGSTKFLT + 1]bool
	any      bool

	hostSig chan os.Signal
}

// NewSignals creates signal state with every handler defaulting to
// SIG_DFL and begins forwarding the host signals MINIX understands.
func NewSignals() *Signals {
	s := &Signals{hostSig: make(chan os.Signal, 16)}

	watched := make([]os.Signal, 0, mcerrno.SIGSTKFLT)
	for sig := mcerrno.SIGHUP; sig <= mcerrno.SIGSTKFLT; sig++ {
		if h, ok := mcerrno.HostSignal(sig); ok {
			watched = append(watched, syscall.Signal(h))
		}
	}
	signal.Notify(s.hostSig, watched...)

	go s.forward()
	return s
}

func (s *Signals) forward() {
	for hs := range s.hostSig {
		u, ok := hs.(syscall.Signal)
		if !ok {
			continue
		}
		if sig := mcerrno.FromHostSignal(unix.Signal(u)); sig.Valid() {
			s.Raise(sig)
		}
	}
}

// Stop stops forwarding host signals.
func (s *Signals) Stop() {
	signal.Stop(s.hostSig)
	close(s.hostSig)
}

// SetHandler installs a new handler for sig and returns the one it
// replaced.
func (s *Signals) SetHandler(sig mcerrno.Signal, h Handler) Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.handlers[sig]
	s.handlers[sig] = h
	return old
}

// Handler returns the currently installed handler for sig.
func (s *Signals) Handler(sig mcerrno.Signal) Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[sig]
}

// Raise marks sig as pending delivery, unless it's currently ignored.
func (s *Signals) Raise(sig mcerrno.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers[sig] == SIG_IGN {
		return
	}
	s.pending[sig] = true
	s.any = true
}

// DrainPending returns every signal number currently pending and clears
// the pending set, to be called once per run-loop quantum boundary.
func (s *Signals) DrainPending() []mcerrno.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.any {
		return nil
	}
	var out []mcerrno.Signal
	for sig := mcerrno.SIGHUP; sig <= mcerrno.SIGSTKFLT; sig++ {
		if s.pending[sig] {
			out = append(out, sig)
			s.pending[sig] = false
		}
	}
	s.any = false
	return out
}
