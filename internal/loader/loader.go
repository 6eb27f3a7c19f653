// Package loader parses MINIX a.out executables and places them into a
// guest RAM image, applying the relocation bytecode stream so a combined
// or separate I&D binary ends up addressed relative to its load base.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/minix68k/minixcompat/internal/ram"
)

// Base is where a loaded executable's text/data/bss begins.
const Base uint32 = 0x00001000

// Limit is the heap ceiling: brk(2) may never push a process's data
// segment past this address, since the stack occupies everything above
// it in the flat 16MiB guest address space.
const Limit uint32 = 0x00FE0000

// StackBase is where a fresh process's stack starts (growing down from
// the top of the address space).
const StackBase uint32 = 0x00FF0000

// ClickSize is the unit executable sections are rounded up to.
const ClickSize = 256

const headerSize = 32

const (
	magicCombined uint32 = 0x04100301
	magicSeparate uint32 = 0x04200301
	requiredFlags uint32 = 0x00000020
)

// Header is the 32-byte a.out header, decoded to host byte order.
type Header struct {
	Magic   uint32
	Flags   uint32
	Text    uint32
	Data    uint32
	Bss     uint32
	NoEntry uint32
	Total   uint32
	Syms    uint32
}

// Executable is a loaded program: its validated header plus the sizing
// derived from it.
type Executable struct {
	Header Header

	// TextClicks and TotalClicks are the section sizes rounded up to
	// ClickSize, in units of ClickSize.
	TextClicks  uint32
	TotalClicks uint32
}

// clickRound rounds size up to the next multiple of ClickSize, returned in
// units of ClickSize. Unlike the original's MINIX_CLICK_ROUND macro this
// is a no-op when size is already click-aligned.
func clickRound(size uint32) uint32 {
	return (size + ClickSize - 1) / ClickSize
}

func readHeader(r io.Reader) (Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, fmt.Errorf("minix exec header: %w", err)
	}

	h := Header{
		Magic:   binary.BigEndian.Uint32(raw[0:4]),
		Flags:   binary.BigEndian.Uint32(raw[4:8]),
		Text:    binary.BigEndian.Uint32(raw[8:12]),
		Data:    binary.BigEndian.Uint32(raw[12:16]),
		Bss:     binary.BigEndian.Uint32(raw[16:20]),
		NoEntry: binary.BigEndian.Uint32(raw[20:24]),
		Total:   binary.BigEndian.Uint32(raw[24:28]),
		Syms:    binary.BigEndian.Uint32(raw[28:32]),
	}

	if h.Magic != magicCombined && h.Magic != magicSeparate {
		return Header{}, fmt.Errorf("minix exec header: bad magic %#08x", h.Magic)
	}
	if h.Flags != requiredFlags {
		return Header{}, fmt.Errorf("minix exec header: unsupported flags %#08x", h.Flags)
	}
	if h.NoEntry != 0 {
		return Header{}, fmt.Errorf("minix exec header: non-zero entry-point field")
	}
	if h.Total == 0 {
		return Header{}, fmt.Errorf("minix exec header: zero total size")
	}

	if h.Magic == magicCombined {
		// Combined I&D is addressed as all data; fold text into data so
		// relocation and layout below treat the whole thing uniformly.
		h.Data += h.Text
		h.Text = 0
	}

	return h, nil
}

// Load reads a MINIX executable from r, seekable back to the start, and
// returns its decoded header plus the section-sized byte image ready to be
// copied into guest RAM at Base. The image is zero-filled out to
// TotalClicks*ClickSize, which covers text+data+bss+initial heap room.
func Load(r io.ReadSeeker) (*Executable, []byte, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}

	h, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}

	exe := &Executable{
		Header:      h,
		TextClicks:  clickRound(h.Text),
		TotalClicks: clickRound(h.Total),
	}

	buf := make([]byte, exe.TotalClicks*ClickSize)

	if _, err := r.Seek(headerSize, io.SeekStart); err != nil {
		return nil, nil, err
	}

	textBase := uint32(0)
	dataBase := textBase + exe.TextClicks*ClickSize

	if h.Text > 0 {
		if _, err := io.ReadFull(r, buf[textBase:textBase+h.Text]); err != nil {
			return nil, nil, fmt.Errorf("minix exec text: %w", err)
		}
	}

	if _, err := io.ReadFull(r, buf[dataBase:dataBase+h.Data]); err != nil {
		return nil, nil, fmt.Errorf("minix exec data: %w", err)
	}

	if h.Syms > 0 {
		if _, err := r.Seek(int64(h.Syms), io.SeekCurrent); err != nil {
			return nil, nil, err
		}
	}

	if err := relocate(r, buf); err != nil {
		return nil, nil, err
	}

	return exe, buf, nil
}

// LoadInto loads exe's data into guest memory at Base via Load.
func LoadInto(r io.ReadSeeker, mem *ram.RAM) (*Executable, error) {
	exe, buf, err := Load(r)
	if err != nil {
		return nil, err
	}
	mem.BlockFromHost(Base, buf)
	return exe, nil
}

// relocate applies the relocation bytecode stream that follows the symbol
// table: every encoded longword offset is rewritten to be relative to
// Base instead of 0. The stream is terminated by a 0x00 byte; a 0x01 byte
// skips 254 bytes without relocating; any other even byte is a delta to
// add before relocating at the new offset; any odd byte other than 0x01
// is malformed.
func relocate(r io.Reader, buf []byte) error {
	var initial [4]byte
	n, err := io.ReadFull(r, initial[:])
	if err == io.ErrUnexpectedEOF || err == io.EOF || n == 0 {
		// No relocation information present at all.
		return nil
	}
	if err != nil {
		return err
	}

	offset := binary.BigEndian.Uint32(initial[:])
	if offset == 0 {
		return nil
	}

	relocateLongAt(buf, Base, offset)

	for {
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return fmt.Errorf("minix exec relocation: %w", err)
		}
		switch {
		case b[0] == 0x00:
			return nil
		case b[0] == 0x01:
			offset += 254
		case b[0]&0x01 == 0x00:
			offset += uint32(b[0])
			relocateLongAt(buf, Base, offset)
		default:
			return fmt.Errorf("minix exec relocation: malformed byte %#02x", b[0])
		}
	}
}

func relocateLongAt(buf []byte, base, offset uint32) {
	p := buf[offset : offset+4]
	l := binary.BigEndian.Uint32(p)
	binary.BigEndian.PutUint32(p, l+base)
}
