package dispatch

import (
	"os"

	"github.com/minix68k/minixcompat/internal/emulator"
	"github.com/minix68k/minixcompat/internal/fs"
	"github.com/minix68k/minixcompat/internal/loader"
	"github.com/minix68k/minixcompat/internal/message"
	"github.com/minix68k/minixcompat/internal/proc"
	"github.com/minix68k/minixcompat/internal/ram"
)

// All the world is ast:adm (uid 8, gid 3), whose HOME is /usr/ast; the
// effective IDs are root:root. MINIX 1.5 predates any real multi-user
// story for this bridge, so every process gets the same fixed identity.
const (
	defaultUID  = 8
	defaultGID  = 3
	defaultEUID = 0
	defaultEGID = 0
)

// Env bundles every subsystem a syscall handler might need to touch. It
// carries no singletons: a dispatch table is a pure function of an Env
// and a message, which is what makes the handlers below testable without
// any real CPU core.
type Env struct {
	RAM     *ram.RAM
	FS      *fs.FS
	Procs   *proc.Table
	Signals *proc.Signals
	CPU     emulator.Emulator

	Debug bool

	brk      uint32
	finished bool
	exitCode int16

	// pendingExits holds the exit status of every child sysFork has run
	// to completion but that no wait(2) has reaped yet.
	pendingExits map[proc.PID]int16

	// entryPC and entrySP are the values the next Ready→Running
	// transition resets the CPU to: loader.Base/the stack pointer right
	// after the most recent load/exec, set by Start and by the exece(2)
	// handler, consumed by runloop.Loop.
	entryPC uint32
	entrySP uint32
}

// Finished reports whether the guest called _exit(2).
func (e *Env) Finished() bool { return e.finished }

// ExitCode is the status passed to the most recent _exit(2), valid once
// Finished is true.
func (e *Env) ExitCode() int16 { return e.exitCode }

// EntryPoint returns the PC/SP the most recent load left the guest ready
// to run from, for the run loop's Ready→Running CPU reset.
func (e *Env) EntryPoint() (pc, sp uint32) { return e.entryPC, e.entrySP }

// Trap services one guest TRAP instruction: vector identifies the trap
// number (MINIX uses TRAP #0 exclusively), D0 holds the IPC function
// (send/receive/both), D1 the destination task, and A0 the guest address
// of the message to service. The reply is written back to the same
// address and D0 is updated with the tri-state dispatch result.
func (e *Env) Trap(vector int) {
	if vector != 0 {
		return
	}

	fn := Func(e.CPU.GetRegister(emulator.D0))
	srcDest := int16(e.CPU.GetRegister(emulator.D1))
	addr := e.CPU.GetRegister(emulator.A0)

	raw := e.RAM.BlockToHost(addr, message.Size)
	msg := message.Unmarshal(raw)

	result, value := Call(e, fn, srcDest, &msg)

	wire := msg.Marshal()
	e.RAM.BlockFromHost(addr, wire[:])
	e.CPU.SetRegister(emulator.D0, D0(result, value))
}

func (e *Env) readCString(addr uint32, length int16) string {
	buf := e.RAM.BlockToHost(addr, uint32(length))
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// Start performs the run loop's Started-state transition: build the
// initial argv/envp stack snapshot and load the guest executable,
// recording the PC/SP the next Ready→Running transition resets the CPU
// to. It does not touch the CPU core itself. argv[0] is conventionally
// the guest path itself.
func (e *Env) Start(hostPath string, argv, envp []string) error {
	stack := proc.BuildStack(loader.StackBase, argv, envp)
	if err := e.loadAndExec(hostPath, loader.StackBase); err != nil {
		return err
	}
	e.RAM.BlockFromHost(loader.StackBase, stack)
	return nil
}

// loadAndExec is shared by the startup path (cmd/minixcompat) and the
// guest-initiated exece(2) handler: load the executable into RAM at
// loader.Base and record the PC/SP the run loop's next Ready→Running
// reset should use. It does not touch the CPU core itself or the
// execution state — both are the run loop's responsibility.
func (e *Env) loadAndExec(hostPath string, stackPointer uint32) error {
	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := loader.LoadInto(f, e.RAM); err != nil {
		return err
	}

	e.brk = 0
	e.entryPC = loader.Base
	e.entrySP = stackPointer
	return nil
}
