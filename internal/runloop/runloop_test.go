package runloop

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minix68k/minixcompat/internal/dispatch"
	"github.com/minix68k/minixcompat/internal/emulator"
	"github.com/minix68k/minixcompat/internal/fs"
	"github.com/minix68k/minixcompat/internal/mcerrno"
	"github.com/minix68k/minixcompat/internal/message"
	"github.com/minix68k/minixcompat/internal/proc"
	"github.com/minix68k/minixcompat/internal/ram"
)

const (
	magicCombined uint32 = 0x04100301
	headerFlags   uint32 = 0x00000020
)

func writeTinyExecutable(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	var h [32]byte
	binary.BigEndian.PutUint32(h[0:4], magicCombined)
	binary.BigEndian.PutUint32(h[4:8], headerFlags)
	binary.BigEndian.PutUint32(h[8:12], 0)   // text
	binary.BigEndian.PutUint32(h[12:16], 4)  // data
	binary.BigEndian.PutUint32(h[16:20], 0)  // bss
	binary.BigEndian.PutUint32(h[20:24], 0)  // no_entry
	binary.BigEndian.PutUint32(h[24:28], 256) // total
	binary.BigEndian.PutUint32(h[28:32], 0)  // syms
	buf.Write(h[:])
	buf.Write([]byte{1, 2, 3, 4})
	buf.Write([]byte{0}) // no relocation

	path := filepath.Join(dir, "tiny")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o755))
	return path
}

func newTestLoop(t *testing.T) (*Loop, string) {
	t.Helper()
	dir := t.TempDir()
	exePath := writeTinyExecutable(t, dir)

	var mem ram.RAM
	env := &dispatch.Env{
		RAM:     &mem,
		FS:      fs.New(dir, "/"),
		Procs:   proc.New(1, 0),
		Signals: &proc.Signals{},
		CPU:     &emulator.Fake{},
	}

	env.CPU.SetTrapFunc(env.Trap)

	return &Loop{
		Env:      env,
		HostPath: exePath,
		Argv:     []string{"tiny"},
		Envp:     nil,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, dir
}

func TestRunLoopReachesRunningAfterStart(t *testing.T) {
	l, _ := newTestLoop(t)

	fake := l.Env.CPU.(*emulator.Fake)
	fake.InstructionsPerRun = 1

	// Drive one step manually instead of Run() (which loops to
	// Finished): exercise Started→Ready→Running directly.
	require.NoError(t, l.Env.Start(l.HostPath, l.Argv, l.Envp))
	l.State = Ready
	l.resetCPU()
	assert.Equal(t, uint32(0x00001000), fake.GetRegister(emulator.PC))
	assert.Equal(t, uint32(0x00FF0000), fake.GetRegister(emulator.A7))
}

func TestRunLoopFinishesOnExitTrap(t *testing.T) {
	l, _ := newTestLoop(t)
	fake := l.Env.CPU.(*emulator.Fake)

	require.NoError(t, l.Env.Start(l.HostPath, l.Argv, l.Envp))
	l.State = Ready
	l.resetCPU()
	l.State = Running

	// Hand-assemble an exit(7) message the guest would have placed at
	// A0 before trapping: mess1 with I1 = status, sent to MM.
	const msgAddr = 0x00002000
	var msg message.Message
	msg.Type = 1 // exit syscall number
	msg.SetMess1(message.Mess1{I1: 7})
	msg.SwapMess1ToGuest()
	wire := msg.Marshal()
	l.Env.RAM.BlockFromHost(msgAddr, wire[:])

	fake.SetRegister(emulator.D0, uint32(dispatch.FuncSend))
	fake.SetRegister(emulator.D1, uint32(dispatch.TaskMM))
	fake.SetRegister(emulator.A0, msgAddr)
	fake.PendingTraps = []int{0}

	l.runQuantum()

	assert.True(t, l.Env.Finished())
	assert.Equal(t, int16(7), l.Env.ExitCode())
}

func TestDeliverPendingSignalRedirectsPC(t *testing.T) {
	l, _ := newTestLoop(t)
	fake := l.Env.CPU.(*emulator.Fake)
	fake.Reset(l.Env.RAM, 0x2000, 0x00FF0000)

	l.Env.Signals.SetHandler(mcerrno.SIGINT, proc.Handler(0x00005000))
	l.Env.Signals.Raise(mcerrno.SIGINT)

	l.deliverPendingSignal()

	assert.Equal(t, uint32(0x00005000), fake.GetRegister(emulator.PC))
	assert.Equal(t, uint32(0x00FF0000-8), fake.GetRegister(emulator.A7))
	// [SP] holds the return address, [SP+4] the signal number, mirroring
	// how a subroutine call leaves its return address on top of
	// already-pushed arguments.
	assert.Equal(t, uint32(0x2000), l.Env.RAM.Read32(0x00FF0000-8))
	assert.Equal(t, uint32(mcerrno.SIGINT), l.Env.RAM.Read32(0x00FF0000-4))
}

func TestDeliverPendingSignalNoopWhenDefault(t *testing.T) {
	l, _ := newTestLoop(t)
	fake := l.Env.CPU.(*emulator.Fake)
	fake.Reset(l.Env.RAM, 0x2000, 0x00FF0000)

	l.Env.Signals.Raise(mcerrno.SIGINT)
	l.deliverPendingSignal()

	assert.Equal(t, uint32(0x2000), fake.GetRegister(emulator.PC))
}
