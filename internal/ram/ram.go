// Package ram implements the guest's flat 16MiB address space.
//
// Every multi-byte value that crosses the guest/host boundary here is
// big-endian on the guest side; Read16/Read32 and Write16/Write32 do the
// conversion to and from host order so callers never see guest bytes.
package ram

import (
	"encoding/binary"
	"fmt"
)

// Size is the guest's total address space: sixteen mebibytes, matching the
// 24-bit bus of a 68000 with the high address byte ignored.
const Size = 16 * 1024 * 1024

// RAM is the guest's flat byte array. The zero value is ready to use.
type RAM struct {
	bytes [Size]byte
}

// BoundsError reports an access that would cross the end of the address
// space. It is an invariant violation per the core's error-handling design:
// callers should treat it as fatal rather than try to recover from it.
type BoundsError struct {
	Addr uint32
	Size uint32
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("ram: access at 0x%06x size %d exceeds 0x%06x", e.Addr, e.Size, Size)
}

func (r *RAM) check(addr uint32, size uint32) {
	if uint64(addr)+uint64(size) > Size {
		panic(&BoundsError{Addr: addr, Size: size})
	}
}

// Read8 returns the byte at addr.
func (r *RAM) Read8(addr uint32) uint8 {
	r.check(addr, 1)
	return r.bytes[addr]
}

// Write8 stores val at addr.
func (r *RAM) Write8(addr uint32, val uint8) {
	r.check(addr, 1)
	r.bytes[addr] = val
}

// Read16 returns the big-endian word at addr, converted to host order.
func (r *RAM) Read16(addr uint32) uint16 {
	r.check(addr, 2)
	return binary.BigEndian.Uint16(r.bytes[addr : addr+2])
}

// Write16 stores val, a host-order value, as a big-endian word at addr.
func (r *RAM) Write16(addr uint32, val uint16) {
	r.check(addr, 2)
	binary.BigEndian.PutUint16(r.bytes[addr:addr+2], val)
}

// Read32 returns the big-endian long at addr, converted to host order.
func (r *RAM) Read32(addr uint32) uint32 {
	r.check(addr, 4)
	return binary.BigEndian.Uint32(r.bytes[addr : addr+4])
}

// Write32 stores val, a host-order value, as a big-endian long at addr.
func (r *RAM) Write32(addr uint32, val uint32) {
	r.check(addr, 4)
	binary.BigEndian.PutUint32(r.bytes[addr:addr+4], val)
}

// BlockFromHost copies src verbatim into the guest at addr. No byte-order
// conversion is performed; callers that copy structured data are
// responsible for having already put it in guest order.
func (r *RAM) BlockFromHost(addr uint32, src []byte) {
	r.check(addr, uint32(len(src)))
	copy(r.bytes[addr:addr+uint32(len(src))], src)
}

// BlockToHost returns a fresh, host-owned copy of size bytes starting at
// addr.
func (r *RAM) BlockToHost(addr uint32, size uint32) []byte {
	r.check(addr, size)
	out := make([]byte, size)
	copy(out, r.bytes[addr:addr+size])
	return out
}

// Slice returns a direct view of size bytes starting at addr, without
// copying. Callers must not retain it past the next mutation of r.
func (r *RAM) Slice(addr uint32, size uint32) []byte {
	r.check(addr, size)
	return r.bytes[addr : addr+size]
}

// ReadMemory8, ReadMemory16, and ReadMemory32 are thin wrappers matching the
// emulator's required memory-callback signatures.
func (r *RAM) ReadMemory8(addr uint32) uint32  { return uint32(r.Read8(addr)) }
func (r *RAM) ReadMemory16(addr uint32) uint32 { return uint32(r.Read16(addr)) }
func (r *RAM) ReadMemory32(addr uint32) uint32 { return r.Read32(addr) }

// WriteMemory8, WriteMemory16, and WriteMemory32 are thin wrappers matching
// the emulator's required memory-callback signatures.
func (r *RAM) WriteMemory8(addr uint32, val uint32)  { r.Write8(addr, uint8(val)) }
func (r *RAM) WriteMemory16(addr uint32, val uint32) { r.Write16(addr, uint16(val)) }
func (r *RAM) WriteMemory32(addr uint32, val uint32) { r.Write32(addr, val) }
