// Package runloop drives the execution state machine described for the
// bridge: Started, Ready, Running, Finished. It is the only place that
// resets the CPU core held in dispatch.Env, and, apart from dispatch's
// synthetic fork (which runs the child's quanta in place), the only place
// that asks the core to run a quantum.
package runloop

import (
	"log/slog"

	"github.com/minix68k/minixcompat/internal/dispatch"
	"github.com/minix68k/minixcompat/internal/emulator"
	"github.com/minix68k/minixcompat/internal/proc"
)

// State is one of the four execution states. The zero value is Started.
type State int

const (
	Started State = iota
	Ready
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Started:
		return "Started"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	default:
		return "invalid"
	}
}

// Loop drives one guest process from Started to Finished.
type Loop struct {
	Env   *dispatch.Env
	State State

	// HostPath, Argv, and Envp feed the Started→Ready startup exec.
	HostPath string
	Argv     []string
	Envp     []string

	Log *slog.Logger
}

// Run executes the state machine to completion and returns the guest's
// exit status.
func (l *Loop) Run() (int16, error) {
	if l.Log == nil {
		l.Log = slog.Default()
	}
	l.Env.CPU.SetTrapFunc(l.Env.Trap)

	for {
		switch l.State {
		case Started:
			if err := l.Env.Start(l.HostPath, l.Argv, l.Envp); err != nil {
				return 0, err
			}
			l.State = Ready

		case Ready:
			l.resetCPU()
			l.State = Running

		case Running:
			l.runQuantum()
			if l.Env.Finished() {
				l.State = Finished
				continue
			}
			l.deliverPendingSignal()

		case Finished:
			return l.Env.ExitCode(), nil
		}
	}
}

// resetCPU performs the Ready→Running transition: install the reset
// vectors at 0x000 (initial SSP) and 0x004 (initial PC) in guest memory,
// the way a real 68000 reads its own bootstrap state, zero the status
// register, and pulse reset on the core.
func (l *Loop) resetCPU() {
	pc, sp := l.Env.EntryPoint()
	l.Env.RAM.WriteMemory32(0x000, sp)
	l.Env.RAM.WriteMemory32(0x004, pc)
	l.Env.CPU.Reset(l.Env.RAM, pc, sp)
	l.Env.CPU.SetRegister(emulator.SR, 0)
	l.Log.Debug("cpu reset", "pc", pc, "sp", sp)
}

func (l *Loop) runQuantum() {
	executed := l.Env.CPU.Run(emulator.QuantumSize)
	l.Log.Debug("quantum complete", "executed", executed)
}

// deliverPendingSignal implements the only guest-side signal delivery
// this bridge performs: between quanta, never from the host signal
// context. A handler invocation is synthesized by pushing the signal
// number and then the return PC onto the guest stack (so the return PC
// sits on top, as after a subroutine call)
// and redirecting PC to the guest handler; the guest's own signal
// trampoline is responsible for restoring PC off that frame when the
// handler returns, the same contract a real 68000 exception return
// would have.
func (l *Loop) deliverPendingSignal() {
	pending := l.Env.Signals.DrainPending()
	if len(pending) == 0 {
		return
	}

	// Only the lowest-numbered pending signal of the quantum is
	// delivered; the other signals drained with it are dropped.
	sig := pending[0]
	handler := l.Env.Signals.Handler(sig)
	if handler == proc.SIG_DFL {
		// SIG_DFL: no guest trampoline installed, nothing to redirect to.
		return
	}

	sp := l.Env.CPU.GetRegister(emulator.A7)
	returnPC := l.Env.CPU.GetRegister(emulator.PC)

	sp -= 4
	l.Env.RAM.WriteMemory32(sp, uint32(sig))
	sp -= 4
	l.Env.RAM.WriteMemory32(sp, returnPC)

	l.Env.CPU.SetRegister(emulator.A7, sp)
	l.Env.CPU.SetRegister(emulator.PC, uint32(handler))
	l.Log.Debug("signal delivered", "signal", sig, "handler", uint32(handler))
}
