package ram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteRoundTrip(t *testing.T) {
	var r RAM

	r.Write8(0x1000, 0xAB)
	assert.Equal(t, uint8(0xAB), r.Read8(0x1000))

	r.Write16(0x1000, 0x1234)
	assert.Equal(t, uint16(0x1234), r.Read16(0x1000))

	r.Write32(0x1000, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), r.Read32(0x1000))
}

func TestBigEndianOnWire(t *testing.T) {
	var r RAM
	r.Write16(0x2000, 0x0102)
	assert.Equal(t, []byte{0x01, 0x02}, r.BlockToHost(0x2000, 2))

	r.Write32(0x2000, 0x01020304)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, r.BlockToHost(0x2000, 4))
}

func TestBlockTransfer(t *testing.T) {
	var r RAM
	src := []byte{1, 2, 3, 4, 5}
	r.BlockFromHost(0x3000, src)
	got := r.BlockToHost(0x3000, 5)
	require.Equal(t, src, got)

	// BlockToHost must return a copy, not a view.
	got[0] = 0xFF
	assert.Equal(t, uint8(1), r.Read8(0x3000))
}

func TestBoundsInvariant(t *testing.T) {
	var r RAM
	assert.Panics(t, func() { r.Read32(Size - 2) })
	assert.Panics(t, func() { r.Write8(Size, 0) })
	assert.NotPanics(t, func() { r.Write8(Size-1, 0) })
}
