// Package message implements the MINIX IPC message wire format: a fixed
// 26-byte record used for every system call, and the six payload shapes
// that different calls interpret it as.
//
// On the guest side every field is big-endian. Each shape has its own swap
// routine that toggles the declared fields between wire order and host
// order in place; fields belonging to a shape that wasn't used for a given
// message are left untouched, which is what lets an unmodified field
// survive a swap-in/edit/swap-out round unchanged.
package message

import "encoding/binary"

// Size is the wire size of a minix_message_t: a 2-byte source, a 2-byte
// type, and the largest payload shape (mess3, at 22 bytes).
const Size = 26

const payloadOffset = 4

// Message is a minix_message_t. Source and Type are always host-order
// int16s (the header is swapped unconditionally by Unmarshal/Marshal); the
// payload bytes are in whatever order they were last swapped to, which is
// wire (big-endian) order immediately after Unmarshal.
type Message struct {
	Source  int16
	Type    int16
	payload [Size - payloadOffset]byte
}

// Unmarshal decodes a wire-format message out of a byte slice of exactly
// Size bytes. The payload is left in wire order; callers call the
// shape-specific Swap*ToHost before reading fields.
func Unmarshal(b []byte) Message {
	var m Message
	m.Source = int16(binary.BigEndian.Uint16(b[0:2]))
	m.Type = int16(binary.BigEndian.Uint16(b[2:4]))
	copy(m.payload[:], b[payloadOffset:Size])
	return m
}

// Marshal encodes m back into a Size-byte wire buffer. The payload must
// already be in wire order; callers call the shape-specific Swap*ToGuest
// before Marshal.
func (m Message) Marshal() [Size]byte {
	var b [Size]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(m.Source))
	binary.BigEndian.PutUint16(b[2:4], uint16(m.Type))
	copy(b[payloadOffset:], m.payload[:])
	return b
}

// Clear zeros the entire message, including source and type, in
// preparation for filling out a reply.
func (m *Message) Clear() {
	m.Source = 0
	m.Type = 0
	for i := range m.payload {
		m.payload[i] = 0
	}
}

// PeekWireInt16 reads a 16-bit field straight out of wire order at the
// given byte offset into the payload, without disturbing any shape's swap
// state. It's for the rare call (open(2)) that needs to inspect a field
// shared at the same offset by more than one shape before deciding which
// shape the rest of the message actually is.
func (m *Message) PeekWireInt16(offset int) int16 {
	return int16(binary.BigEndian.Uint16(m.payload[offset : offset+2]))
}

func swap16(b []byte) {
	b[0], b[1] = b[1], b[0]
}

func swap32(b []byte) {
	b[0], b[3] = b[3], b[0]
	b[1], b[2] = b[2], b[1]
}

// Mess1 is three 16-bit ints and three 32-bit guest pointers.
type Mess1 struct {
	I1, I2, I3 int16
	P1, P2, P3 uint32
}

func (m *Message) swapMess1(toHost bool) {
	_ = toHost // the swap is self-inverse; direction only documents intent
	swap16(m.payload[0:2])
	swap16(m.payload[2:4])
	swap16(m.payload[4:6])
	swap32(m.payload[6:10])
	swap32(m.payload[10:14])
	swap32(m.payload[14:18])
}

// SwapMess1ToHost converts the mess1 fields from wire to host order.
func (m *Message) SwapMess1ToHost() { m.swapMess1(true) }

// SwapMess1ToGuest converts the mess1 fields from host back to wire order.
func (m *Message) SwapMess1ToGuest() { m.swapMess1(false) }

// GetMess1 reads the mess1 fields. Call after SwapMess1ToHost.
func (m *Message) GetMess1() Mess1 {
	return Mess1{
		I1: int16(binary.LittleEndian.Uint16(m.payload[0:2])),
		I2: int16(binary.LittleEndian.Uint16(m.payload[2:4])),
		I3: int16(binary.LittleEndian.Uint16(m.payload[4:6])),
		P1: binary.LittleEndian.Uint32(m.payload[6:10]),
		P2: binary.LittleEndian.Uint32(m.payload[10:14]),
		P3: binary.LittleEndian.Uint32(m.payload[14:18]),
	}
}

// SetMess1 writes the mess1 fields in host order. Call SwapMess1ToGuest
// before Marshal.
func (m *Message) SetMess1(v Mess1) {
	binary.LittleEndian.PutUint16(m.payload[0:2], uint16(v.I1))
	binary.LittleEndian.PutUint16(m.payload[2:4], uint16(v.I2))
	binary.LittleEndian.PutUint16(m.payload[4:6], uint16(v.I3))
	binary.LittleEndian.PutUint32(m.payload[6:10], v.P1)
	binary.LittleEndian.PutUint32(m.payload[10:14], v.P2)
	binary.LittleEndian.PutUint32(m.payload[14:18], v.P3)
}

// Mess2 is three 16-bit ints, two 32-bit longs, and one 32-bit pointer.
type Mess2 struct {
	I1, I2, I3 int16
	L1, L2     int32
	P1         uint32
}

func (m *Message) swapMess2() {
	swap16(m.payload[0:2])
	swap16(m.payload[2:4])
	swap16(m.payload[4:6])
	swap32(m.payload[6:10])
	swap32(m.payload[10:14])
	swap32(m.payload[14:18])
}

// SwapMess2ToHost converts the mess2 fields from wire to host order.
func (m *Message) SwapMess2ToHost() { m.swapMess2() }

// SwapMess2ToGuest converts the mess2 fields from host back to wire order.
func (m *Message) SwapMess2ToGuest() { m.swapMess2() }

// GetMess2 reads the mess2 fields. Call after SwapMess2ToHost.
func (m *Message) GetMess2() Mess2 {
	return Mess2{
		I1: int16(binary.LittleEndian.Uint16(m.payload[0:2])),
		I2: int16(binary.LittleEndian.Uint16(m.payload[2:4])),
		I3: int16(binary.LittleEndian.Uint16(m.payload[4:6])),
		L1: int32(binary.LittleEndian.Uint32(m.payload[6:10])),
		L2: int32(binary.LittleEndian.Uint32(m.payload[10:14])),
		P1: binary.LittleEndian.Uint32(m.payload[14:18]),
	}
}

// SetMess2 writes the mess2 fields in host order.
func (m *Message) SetMess2(v Mess2) {
	binary.LittleEndian.PutUint16(m.payload[0:2], uint16(v.I1))
	binary.LittleEndian.PutUint16(m.payload[2:4], uint16(v.I2))
	binary.LittleEndian.PutUint16(m.payload[4:6], uint16(v.I3))
	binary.LittleEndian.PutUint32(m.payload[6:10], uint32(v.L1))
	binary.LittleEndian.PutUint32(m.payload[10:14], uint32(v.L2))
	binary.LittleEndian.PutUint32(m.payload[14:18], v.P1)
}

// Mess3 is two 16-bit ints, one 32-bit pointer, and 14 inline bytes.
type Mess3 struct {
	I1, I2 int16
	P1     uint32
	CA1    [14]byte
}

func (m *Message) swapMess3() {
	swap16(m.payload[0:2])
	swap16(m.payload[2:4])
	swap32(m.payload[4:8])
	// ca1 (payload[8:22]) is raw bytes, never swapped.
}

// SwapMess3ToHost converts the mess3 fields from wire to host order.
func (m *Message) SwapMess3ToHost() { m.swapMess3() }

// SwapMess3ToGuest converts the mess3 fields from host back to wire order.
func (m *Message) SwapMess3ToGuest() { m.swapMess3() }

// GetMess3 reads the mess3 fields. Call after SwapMess3ToHost.
func (m *Message) GetMess3() Mess3 {
	var v Mess3
	v.I1 = int16(binary.LittleEndian.Uint16(m.payload[0:2]))
	v.I2 = int16(binary.LittleEndian.Uint16(m.payload[2:4]))
	v.P1 = binary.LittleEndian.Uint32(m.payload[4:8])
	copy(v.CA1[:], m.payload[8:22])
	return v
}

// SetMess3 writes the mess3 fields in host order.
func (m *Message) SetMess3(v Mess3) {
	binary.LittleEndian.PutUint16(m.payload[0:2], uint16(v.I1))
	binary.LittleEndian.PutUint16(m.payload[2:4], uint16(v.I2))
	binary.LittleEndian.PutUint32(m.payload[4:8], v.P1)
	copy(m.payload[8:22], v.CA1[:])
}

// Mess4 is four 32-bit longs.
type Mess4 struct {
	L1, L2, L3, L4 int32
}

func (m *Message) swapMess4() {
	swap32(m.payload[0:4])
	swap32(m.payload[4:8])
	swap32(m.payload[8:12])
	swap32(m.payload[12:16])
}

// SwapMess4ToHost converts the mess4 fields from wire to host order.
func (m *Message) SwapMess4ToHost() { m.swapMess4() }

// SwapMess4ToGuest converts the mess4 fields from host back to wire order.
func (m *Message) SwapMess4ToGuest() { m.swapMess4() }

// GetMess4 reads the mess4 fields. Call after SwapMess4ToHost.
func (m *Message) GetMess4() Mess4 {
	return Mess4{
		L1: int32(binary.LittleEndian.Uint32(m.payload[0:4])),
		L2: int32(binary.LittleEndian.Uint32(m.payload[4:8])),
		L3: int32(binary.LittleEndian.Uint32(m.payload[8:12])),
		L4: int32(binary.LittleEndian.Uint32(m.payload[12:16])),
	}
}

// SetMess4 writes the mess4 fields in host order.
func (m *Message) SetMess4(v Mess4) {
	binary.LittleEndian.PutUint32(m.payload[0:4], uint32(v.L1))
	binary.LittleEndian.PutUint32(m.payload[4:8], uint32(v.L2))
	binary.LittleEndian.PutUint32(m.payload[8:12], uint32(v.L3))
	binary.LittleEndian.PutUint32(m.payload[12:16], uint32(v.L4))
}

// Mess5 is two 8-bit chars, two 16-bit ints, and three 32-bit longs.
type Mess5 struct {
	C1, C2     byte
	I1, I2     int16
	L1, L2, L3 int32
}

func (m *Message) swapMess5() {
	// c1, c2 (payload[0:2]) never swap: single bytes.
	swap16(m.payload[2:4])
	swap16(m.payload[4:6])
	swap32(m.payload[6:10])
	swap32(m.payload[10:14])
	swap32(m.payload[14:18])
}

// SwapMess5ToHost converts the mess5 fields from wire to host order.
func (m *Message) SwapMess5ToHost() { m.swapMess5() }

// SwapMess5ToGuest converts the mess5 fields from host back to wire order.
func (m *Message) SwapMess5ToGuest() { m.swapMess5() }

// GetMess5 reads the mess5 fields. Call after SwapMess5ToHost.
func (m *Message) GetMess5() Mess5 {
	return Mess5{
		C1: m.payload[0],
		C2: m.payload[1],
		I1: int16(binary.LittleEndian.Uint16(m.payload[2:4])),
		I2: int16(binary.LittleEndian.Uint16(m.payload[4:6])),
		L1: int32(binary.LittleEndian.Uint32(m.payload[6:10])),
		L2: int32(binary.LittleEndian.Uint32(m.payload[10:14])),
		L3: int32(binary.LittleEndian.Uint32(m.payload[14:18])),
	}
}

// SetMess5 writes the mess5 fields in host order.
func (m *Message) SetMess5(v Mess5) {
	m.payload[0] = v.C1
	m.payload[1] = v.C2
	binary.LittleEndian.PutUint16(m.payload[2:4], uint16(v.I1))
	binary.LittleEndian.PutUint16(m.payload[4:6], uint16(v.I2))
	binary.LittleEndian.PutUint32(m.payload[6:10], uint32(v.L1))
	binary.LittleEndian.PutUint32(m.payload[10:14], uint32(v.L2))
	binary.LittleEndian.PutUint32(m.payload[14:18], uint32(v.L3))
}

// Mess6 is three 16-bit ints, one 32-bit long, and one 32-bit guest
// function pointer.
type Mess6 struct {
	I1, I2, I3 int16
	L1         int32
	F1         uint32
}

func (m *Message) swapMess6() {
	swap16(m.payload[0:2])
	swap16(m.payload[2:4])
	swap16(m.payload[4:6])
	swap32(m.payload[6:10])
	swap32(m.payload[10:14])
}

// SwapMess6ToHost converts the mess6 fields from wire to host order.
func (m *Message) SwapMess6ToHost() { m.swapMess6() }

// SwapMess6ToGuest converts the mess6 fields from host back to wire order.
func (m *Message) SwapMess6ToGuest() { m.swapMess6() }

// GetMess6 reads the mess6 fields. Call after SwapMess6ToHost.
func (m *Message) GetMess6() Mess6 {
	return Mess6{
		I1: int16(binary.LittleEndian.Uint16(m.payload[0:2])),
		I2: int16(binary.LittleEndian.Uint16(m.payload[2:4])),
		I3: int16(binary.LittleEndian.Uint16(m.payload[4:6])),
		L1: int32(binary.LittleEndian.Uint32(m.payload[6:10])),
		F1: binary.LittleEndian.Uint32(m.payload[10:14]),
	}
}

// SetMess6 writes the mess6 fields in host order.
func (m *Message) SetMess6(v Mess6) {
	binary.LittleEndian.PutUint16(m.payload[0:2], uint16(v.I1))
	binary.LittleEndian.PutUint16(m.payload[2:4], uint16(v.I2))
	binary.LittleEndian.PutUint16(m.payload[4:6], uint16(v.I3))
	binary.LittleEndian.PutUint32(m.payload[6:10], uint32(v.L1))
	binary.LittleEndian.PutUint32(m.payload[10:14], v.F1)
}
