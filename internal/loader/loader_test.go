package loader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minix68k/minixcompat/internal/ram"
)

func buildHeader(magic, text, data, bss, total, syms uint32) []byte {
	h := make([]byte, headerSize)
	binary.BigEndian.PutUint32(h[0:4], magic)
	binary.BigEndian.PutUint32(h[4:8], requiredFlags)
	binary.BigEndian.PutUint32(h[8:12], text)
	binary.BigEndian.PutUint32(h[12:16], data)
	binary.BigEndian.PutUint32(h[16:20], bss)
	binary.BigEndian.PutUint32(h[20:24], 0)
	binary.BigEndian.PutUint32(h[24:28], total)
	binary.BigEndian.PutUint32(h[28:32], syms)
	return h
}

func TestLoadCombinedFoldsTextIntoData(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(magicCombined, 4, 4, 0, 512, 0))
	buf.Write([]byte{1, 2, 3, 4}) // "text"
	buf.Write([]byte{5, 6, 7, 8}) // "data"
	buf.Write([]byte{0})         // no relocation

	exe, img, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), exe.Header.Text)
	assert.Equal(t, uint32(8), exe.Header.Data)
	assert.Equal(t, uint32(0), exe.TextClicks)

	// Combined I&D: both chunks land back-to-back starting at offset 0.
	assert.Equal(t, byte(1), img[0])
	assert.Equal(t, byte(5), img[4])
}

func TestLoadSeparateKeepsTextAndDataApart(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(magicSeparate, 256, 4, 0, 768, 0))
	buf.Write(make([]byte, 256)) // exactly one click of text
	buf.Write([]byte{9, 9, 9, 9})
	buf.Write([]byte{0})

	exe, img, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), exe.TextClicks)
	// Data starts right after the text click.
	assert.Equal(t, byte(9), img[ClickSize])
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(0xdeadbeef, 0, 0, 0, 256, 0))
	_, _, err := Load(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestLoadRejectsZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(magicSeparate, 0, 0, 0, 0, 0))
	_, _, err := Load(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestRelocationAppliesBase(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(magicSeparate, 0, 8, 0, 512, 0))
	buf.Write(make([]byte, 8)) // data, with a pointer at offset 4 to relocate
	// relocation: initial offset = 4 (relocate offset 4 itself), then terminate;
	// an initial offset of 0 would mean "no relocations"
	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 4)
	buf.Write(initial[:])
	buf.Write([]byte{0x00}) // terminate immediately after first relocation

	exe, img, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	_ = exe
	got := binary.BigEndian.Uint32(img[4:8])
	assert.Equal(t, Base, got)
}

func TestRelocationSkipByte(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(magicSeparate, 0, 300, 0, 512, 0))
	buf.Write(make([]byte, 300))

	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 4) // relocate at 4
	buf.Write(initial[:])
	buf.Write([]byte{0x01}) // skip 254
	buf.Write([]byte{0x02}) // relocate at 4 + 254 + 2 = 260
	buf.Write([]byte{0x00})

	_, img, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	got := binary.BigEndian.Uint32(img[260:264])
	assert.Equal(t, Base, got)
}

func TestRelocationRejectsMalformedByte(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(magicSeparate, 0, 8, 0, 512, 0))
	buf.Write(make([]byte, 8))

	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 4)
	buf.Write(initial[:])
	buf.Write([]byte{0x03}) // odd, not 0x01: malformed

	_, _, err := Load(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestLoadIntoPlacesImageAtBase(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(magicCombined, 0, 4, 0, 256, 0))
	buf.Write([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	buf.Write([]byte{0})

	var mem ram.RAM
	_, err := LoadInto(bytes.NewReader(buf.Bytes()), &mem)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAA), mem.Read8(Base))
}
