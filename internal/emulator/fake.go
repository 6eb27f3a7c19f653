package emulator

// Fake is a minimal Emulator used by tests elsewhere in this tree: it
// doesn't decode or execute M68000 instructions, but it honours register
// state, and it lets a test script a queue of TRAPs to fire as if a real
// core had hit TRAP instructions while running.
type Fake struct {
	mem Memory
	pc  uint32
	sp  uint32
	regs [18]uint32
	trap TrapFunc

	// PendingTraps, if non-empty, is consumed one entry per Run call: Run
	// calls trap() with the next vector and reports 1 instruction
	// executed, simulating the guest having run up to a TRAP.
	PendingTraps []int

	// InstructionsPerRun is returned by Run when PendingTraps is empty,
	// simulating a quantum that ran to completion without trapping.
	InstructionsPerRun int
}

func (f *Fake) Reset(mem Memory, initialPC, initialSP uint32) {
	f.mem = mem
	f.pc = initialPC
	f.sp = initialSP
	f.regs = [18]uint32{}
	f.regs[A7] = initialSP
	f.regs[PC] = initialPC
}

func (f *Fake) SetTrapFunc(fn TrapFunc) { f.trap = fn }

func (f *Fake) Run(quantum int) int {
	if len(f.PendingTraps) > 0 {
		vector := f.PendingTraps[0]
		f.PendingTraps = f.PendingTraps[1:]
		if f.trap != nil {
			f.trap(vector)
		}
		return 1
	}
	n := f.InstructionsPerRun
	if n == 0 || n > quantum {
		n = quantum
	}
	return n
}

func (f *Fake) GetRegister(r Register) uint32 { return f.regs[r] }

func (f *Fake) SetRegister(r Register, v uint32) { f.regs[r] = v }
