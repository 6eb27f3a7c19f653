// Package dispatch implements the MINIX system call table: translating
// each TRAP #0 send into a call against fs/proc/loader, and writing the
// reply message and tri-state result the emulator's syscall trap
// instruction handler expects.
package dispatch

import (
	"log/slog"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/minix68k/minixcompat/internal/emulator"
	"github.com/minix68k/minixcompat/internal/fs"
	"github.com/minix68k/minixcompat/internal/loader"
	"github.com/minix68k/minixcompat/internal/mcerrno"
	"github.com/minix68k/minixcompat/internal/message"
	"github.com/minix68k/minixcompat/internal/proc"
)

func currentTime() int32 {
	return int32(time.Now().Unix())
}

// Func is a MINIX TRAP operation: send, receive, or both (sendrec).
type Func int

const (
	FuncSend Func = 1
	FuncReceive Func = 2
	FuncBoth Func = 3
)

// Task identifies who a message was addressed to. System calls only ever
// go to MM or FS; this bridge runs a single process and never needs to
// emulate any of the other well-known task IDs, so those just fail.
type Task int16

const (
	TaskMM Task = 0
	TaskFS Task = 1
)

// Result is the tri-state outcome of a syscall trap, independent of
// whatever error code the reply message carries in its own m_type field.
type Result int

const (
	// ResultFailure means the send/receive itself failed: D0 gets -1
	// (0xFFFFFFFF) with no other result value.
	ResultFailure Result = -1
	// ResultSuccessEmpty means the call succeeded with no result beyond
	// whatever the reply message says: D0 gets 0.
	ResultSuccessEmpty Result = 0
	// ResultSuccess means the call succeeded and produced an explicit
	// result value that goes in D0 in place of 0.
	ResultSuccess Result = 1
)

// D0 computes the register value a trap handler writes to D0 for a given
// dispatch outcome.
func D0(result Result, value uint32) uint32 {
	switch result {
	case ResultFailure:
		return 0xFFFFFFFF
	case ResultSuccess:
		return value
	default:
		return 0
	}
}

// Syscall numbers, matching MINIX's fixed assignment (index 0 is unused;
// MINIX never sends syscall number 0).
const (
	scExit   = 1
	scFork   = 2
	scRead   = 3
	scWrite  = 4
	scOpen   = 5
	scClose  = 6
	scWait   = 7
	scCreat  = 8
	scUnlink = 10
	scTime   = 13
	scBrk    = 17
	scStat   = 18
	scLseek  = 19
	scGetpid = 20
	scGetuid = 24
	scFstat  = 28
	scAccess = 33
	scKill   = 37
	scGetgid = 47
	scSignal = 48
	scExece  = 59
)

type handler func(e *Env, msg *message.Message) (Result, uint32)

var table = map[int16]handler{
	scExit:   sysExit,
	scFork:   sysFork,
	scRead:   sysRead,
	scWrite:  sysWrite,
	scOpen:   sysOpen,
	scClose:  sysClose,
	scWait:   sysWait,
	scCreat:  sysCreat,
	scUnlink: sysUnlink,
	scTime:   sysTime,
	scBrk:    sysBrk,
	scStat:   sysStat,
	scLseek:  sysLseek,
	scGetpid: sysGetpid,
	scGetuid: sysGetuid,
	scFstat:  sysFstat,
	scAccess: sysAccess,
	scKill:   sysKill,
	scGetgid: sysGetgid,
	scSignal: sysSignal,
	scExece:  sysExece,
}

// Call dispatches one TRAP #0 send: srcDest names the task the message
// was addressed to, and msg is the already-unmarshalled message at the
// guest's msg pointer (still in wire byte order; each handler swaps the
// shape it needs). It returns the tri-state result and, for
// ResultSuccess, the explicit value that belongs in D0.
func Call(e *Env, fn Func, srcDest int16, msg *message.Message) (Result, uint32) {
	if fn == FuncReceive {
		// No user process in this bridge ever blocks in a bare
		// receive(); MM/FS replies always come back through the
		// send half of a sendrec.
		return ResultFailure, 0
	}

	task := Task(srcDest)
	if task != TaskMM && task != TaskFS {
		return ResultFailure, 0
	}

	sc := msg.Type
	h, ok := table[sc]
	if !ok {
		return ResultFailure, 0
	}
	result, value := h(e, msg)
	if e.Debug {
		slog.Debug("syscall", "number", sc, "result", result, "value", value)
	}
	return result, value
}

func sysExit(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	e.finished = true
	e.exitCode = v.I1
	return ResultSuccessEmpty, 0
}

// sysFork implements fork(2) without a host fork(2): Go's runtime forbids
// a bare fork once more than one OS thread exists, which every Go binary
// has running. Instead the bridge plays both ends itself. It snapshots
// the whole machine (RAM, registers, process table, heap break), then
// lets the current execution continue in place as the child — D0 zeroed,
// its own cloned process-table view — until that child exits. Once it
// does, the snapshot is restored so the original execution resumes as
// the parent, and the child's exit status is recorded for a later wait.
// Because only one guest process ever executes at a time, the child runs
// to completion before fork() returns to the parent at all; wait never
// actually blocks as a result.
func sysFork(e *Env, msg *message.Message) (Result, uint32) {
	entry, child := e.Procs.Fork()

	parentRAM := *e.RAM
	var parentRegs [18]uint32
	for r := emulator.Register(0); r <= emulator.SR; r++ {
		parentRegs[r] = e.CPU.GetRegister(r)
	}
	parentProcs := e.Procs
	parentFinished, parentExit, parentBrk := e.finished, e.exitCode, e.brk

	e.Procs = parentProcs.Clone()
	e.Procs.BecomeChild(entry, child, proc.HostID(child))
	e.CPU.SetRegister(emulator.D0, 0)
	e.finished = false

	for !e.finished {
		e.CPU.Run(emulator.QuantumSize)
	}
	childExit := e.exitCode

	*e.RAM = parentRAM
	for r := emulator.Register(0); r <= emulator.SR; r++ {
		e.CPU.SetRegister(r, parentRegs[r])
	}
	e.Procs = parentProcs
	e.finished, e.exitCode, e.brk = parentFinished, parentExit, parentBrk
	e.Procs.RecordChild(entry, child, proc.HostID(child))
	if e.pendingExits == nil {
		e.pendingExits = make(map[proc.PID]int16)
	}
	e.pendingExits[child] = childExit & 0x00FF

	msg.Clear()
	msg.Type = int16(child)
	msg.SwapMess2ToGuest()
	return ResultSuccessEmpty, 0
}

func sysRead(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	fd, n, buf := int(v.I1), v.I2, v.P1

	host := make([]byte, n)
	nread, errno := e.FS.Read(fd, host)

	var result int16
	if errno != 0 {
		result = int16(errno.Neg())
	} else {
		result = int16(nread)
		if nread > 0 {
			e.RAM.BlockFromHost(buf, host[:nread])
		}
	}

	msg.Clear()
	msg.Type = result
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysWrite(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	fd, n, buf := int(v.I1), v.I2, v.P1

	host := e.RAM.BlockToHost(buf, uint32(n))
	nwritten, errno := e.FS.Write(fd, host)

	var result int16
	if errno != 0 {
		result = int16(errno.Neg())
	} else {
		result = int16(nwritten)
	}

	msg.Clear()
	msg.Type = result
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysOpen(e *Env, msg *message.Message) (Result, uint32) {
	// open(2) sends mess1 when O_CREAT is set (mode needed), mess3
	// otherwise; the flags field lives at the same wire offset in both
	// shapes so it can be peeked before deciding which shape to fully
	// swap.
	peekFlags := msg.PeekWireInt16(2)

	var nameLen int16
	var nameAddr uint32
	var mode int16

	if peekFlags&minixOCreat != 0 {
		msg.SwapMess1ToHost()
		v := msg.GetMess1()
		nameLen, nameAddr, mode = v.I1, v.P1, v.I3
	} else {
		msg.SwapMess3ToHost()
		v := msg.GetMess3()
		nameLen, nameAddr, mode = v.I1, v.P1, 0
	}

	path := e.readCString(nameAddr, nameLen)
	fd, errno := e.FS.Open(path, hostOpenFlags(peekFlags), hostOpenMode(mode))

	var result int16
	if errno != 0 {
		result = int16(errno.Neg())
	} else {
		result = int16(fd)
	}

	msg.Clear()
	msg.Type = result
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysClose(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	fd := int(msg.GetMess1().I1)

	errno := e.FS.Close(fd)

	msg.Clear()
	msg.Type = int16(errno.Neg())
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysWait(e *Env, msg *message.Message) (Result, uint32) {
	// sysFork runs every child to completion before it ever returns to
	// the parent, so by the time wait() is called the exit status is
	// already sitting in e.pendingExits; there's never anything to
	// actually block on. Ties among multiple pending children are broken
	// arbitrarily, matching real wait(2)'s unspecified ordering.
	var pid proc.PID
	var found bool
	for p := range e.pendingExits {
		pid, found = p, true
		break
	}

	var errno mcerrno.Errno
	var status int16
	if !found {
		errno = mcerrno.ECHILD
	} else {
		status = e.pendingExits[pid]
		delete(e.pendingExits, pid)
		e.Procs.Release(pid)
	}

	msg.Clear()
	msg.Type = int16(pid)
	if errno != 0 {
		msg.Type = int16(errno.Neg())
	}
	msg.SetMess2(message.Mess2{I1: status})
	msg.SwapMess2ToGuest()
	return ResultSuccessEmpty, 0
}

func sysCreat(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess3ToHost()
	v := msg.GetMess3()
	path := e.readCString(v.P1, v.I1)

	fd, errno := e.FS.Create(path, hostOpenMode(v.I2))

	var result int16
	if errno != 0 {
		result = int16(errno.Neg())
	} else {
		result = int16(fd)
	}

	msg.Clear()
	msg.Type = result
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysUnlink(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess3ToHost()
	v := msg.GetMess3()
	path := e.readCString(v.P1, v.I1)

	errno := e.FS.Unlink(path)

	msg.Clear()
	msg.Type = int16(errno.Neg())
	msg.SwapMess1ToGuest()
	return ResultSuccess, uint32(int32(errno.Neg()))
}

func sysTime(e *Env, msg *message.Message) (Result, uint32) {
	t := currentTime()

	msg.Clear()
	msg.Type = 0
	msg.SetMess2(message.Mess2{L1: int32(t)})
	msg.SwapMess2ToGuest()
	return ResultSuccess, uint32(t)
}

func sysBrk(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	requested := v.P1

	var result uint32
	var errno int16
	if requested < loader.Limit && requested >= e.brk {
		result = requested
		e.brk = requested
	} else {
		errno = int16(mcerrno.ENOMEM.Neg())
		result = 0xFFFFFFFF
	}

	msg.Clear()
	msg.Type = errno
	msg.SetMess2(message.Mess2{P1: result})
	msg.SwapMess2ToGuest()
	return ResultSuccessEmpty, 0
}

func sysStat(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	path := e.readCString(v.P1, v.I1)

	var st fs.Stat
	errno := e.FS.Stat(path, &st)
	if errno == 0 {
		wire := st.Marshal()
		e.RAM.BlockFromHost(v.P2, wire[:])
	}

	msg.Clear()
	msg.Type = int16(errno.Neg())
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysFstat(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	fd := int(v.I1)

	var st fs.Stat
	errno := e.FS.StatOpen(fd, &st)
	if errno == 0 {
		wire := st.Marshal()
		e.RAM.BlockFromHost(v.P1, wire[:])
	}

	msg.Clear()
	msg.Type = int16(errno.Neg())
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysLseek(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess2ToHost()
	v := msg.GetMess2()
	fd := int(v.I1)

	pos, errno := e.FS.Seek(fd, int64(v.L1), hostWhence(v.I2))

	var result int16
	var outResult int32
	if errno != 0 {
		result = int16(errno.Neg())
		outResult = int32(errno.Neg())
	} else {
		result = int16(pos)
		outResult = int32(pos)
	}

	msg.Clear()
	msg.Type = result
	msg.SetMess2(message.Mess2{L1: int32(pos)})
	msg.SwapMess2ToGuest()
	return ResultSuccess, uint32(outResult)
}

func sysGetpid(e *Env, msg *message.Message) (Result, uint32) {
	msg.Clear()
	msg.Type = int16(e.Procs.Self())
	msg.SetMess1(message.Mess1{I1: int16(e.Procs.Parent())})
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysGetuid(e *Env, msg *message.Message) (Result, uint32) {
	msg.Clear()
	msg.Type = defaultUID
	msg.SetMess2(message.Mess2{I1: defaultEUID})
	msg.SwapMess2ToGuest()
	return ResultSuccessEmpty, 0
}

func sysGetgid(e *Env, msg *message.Message) (Result, uint32) {
	msg.Clear()
	msg.Type = defaultGID
	msg.SetMess2(message.Mess2{I1: defaultEGID})
	msg.SwapMess2ToGuest()
	return ResultSuccessEmpty, 0
}

func sysAccess(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess3ToHost()
	v := msg.GetMess3()
	path := e.readCString(v.P1, v.I1)

	errno := e.FS.Access(path, int(v.I2))

	msg.Clear()
	msg.Type = int16(errno.Neg())
	msg.SwapMess1ToGuest()
	return ResultSuccessEmpty, 0
}

func sysKill(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	pid := proc.PID(v.I1)
	sig := mcerrno.Signal(v.I2)

	var errno mcerrno.Errno
	switch {
	case !sig.Valid():
		errno = mcerrno.EINVAL
	case pid == e.Procs.Self():
		// Targeting ourselves: deliver through the same pending-signal
		// path a host-forwarded signal would use, rather than round-trip
		// through a real kill(2).
		e.Signals.Raise(sig)
	default:
		host := e.Procs.HostForPID(pid)
		if host < 0 {
			errno = mcerrno.ESRCH
			break
		}
		hostSig, ok := mcerrno.HostSignal(sig)
		if !ok {
			errno = mcerrno.EINVAL
			break
		}
		if err := unix.Kill(int(host), syscall.Signal(hostSig)); err != nil {
			errno = mcerrno.FromHost(err)
		}
	}

	msg.Clear()
	msg.Type = int16(errno.Neg())
	msg.SwapMess2ToGuest()
	return ResultSuccessEmpty, 0
}

func sysSignal(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess6ToHost()
	v := msg.GetMess6()
	sig := mcerrno.Signal(v.I1)
	newHandler := proc.Handler(v.F1)

	old := e.Signals.SetHandler(sig, newHandler)

	msg.Clear()
	msg.Type = 0
	msg.SwapMess2ToGuest()
	return ResultSuccess, uint32(old)
}

func sysExece(e *Env, msg *message.Message) (Result, uint32) {
	msg.SwapMess1ToHost()
	v := msg.GetMess1()
	pathLen, pathAddr := v.I1, v.P1
	stackSize, stackAddr := v.I2, v.P2

	path := e.readCString(pathAddr, pathLen)
	hostPath := e.FS.HostPath(path)

	stackBlock := e.RAM.BlockToHost(stackAddr, uint32(stackSize))
	proc.RelocateStack(stackBlock, loader.StackBase)

	var execErr int16
	if err := e.loadAndExec(hostPath, loader.StackBase); err != nil {
		execErr = int16(mcerrno.FromHost(err).Neg())
	} else {
		e.RAM.BlockFromHost(loader.StackBase, stackBlock)
	}

	msg.Clear()
	msg.Type = execErr
	msg.SwapMess2ToGuest()
	return ResultSuccess, 0
}
