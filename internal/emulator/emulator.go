// Package emulator defines the narrow interface this bridge needs from an
// M68000 core. Nothing in the rest of the tree implements an actual CPU —
// that's a large, separate undertaking (see Musashi, the C core the
// original links against) — but every other package is written against
// this interface so a real core can be dropped in later.
package emulator

// Register identifies one of the M68000's sixteen general registers plus
// the program counter and status register.
type Register int

const (
	D0 Register = iota
	D1
	D2
	D3
	D4
	D5
	D6
	D7
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7 // also the stack pointer
	PC
	SR
)

// TrapFunc is called whenever the guest executes a TRAP instruction. vector
// is the trap number (MINIX uses TRAP #0 exclusively for its syscall ABI).
// The core suspends until TrapFunc returns.
type TrapFunc func(vector int)

// Memory is the narrow read/write surface an Emulator needs over guest
// RAM. internal/ram.RAM implements this directly.
type Memory interface {
	ReadMemory8(addr uint32) uint32
	ReadMemory16(addr uint32) uint32
	ReadMemory32(addr uint32) uint32
	WriteMemory8(addr uint32, val uint32)
	WriteMemory16(addr uint32, val uint32)
	WriteMemory32(addr uint32, val uint32)
}

// Emulator is the interface the rest of this bridge drives a CPU core
// through: reset it, point it at memory, give it a trap hook, run it for
// a bounded number of instructions, and peek/poke its registers between
// runs.
type Emulator interface {
	// Reset reinitializes the core: all data/address registers to 0, SR
	// to the supervisor-mode/interrupts-masked state MINIX expects, and
	// PC/A7 to the given initial values.
	Reset(mem Memory, initialPC, initialSP uint32)

	// SetTrapFunc installs the callback invoked on every TRAP.
	SetTrapFunc(fn TrapFunc)

	// Run executes up to quantum instructions (or until a TRAP, whichever
	// comes first) and returns how many were actually executed.
	Run(quantum int) (executed int)

	GetRegister(r Register) uint32
	SetRegister(r Register, v uint32)
}

// QuantumSize is the number of instructions run between opportunities to
// deliver a pending signal. Signals are never delivered from inside Run —
// only between quanta, so the core is never re-entered from anything
// resembling a host signal-handler context.
const QuantumSize = 10000
