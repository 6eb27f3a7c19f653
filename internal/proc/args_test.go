package proc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStackLayout(t *testing.T) {
	const base = uint32(0x00ff0000)
	block := BuildStack(base, []string{"prog", "arg1"}, []string{"MINIX_TERM=vt100", "PATH=/bin"})

	argc := binary.BigEndian.Uint32(block[0:4])
	assert.Equal(t, uint32(2), argc)

	argv0Ptr := binary.BigEndian.Uint32(block[4:8])
	argv1Ptr := binary.BigEndian.Uint32(block[8:12])
	argvTerm := binary.BigEndian.Uint32(block[12:16])
	envp0Ptr := binary.BigEndian.Uint32(block[16:20])
	envpTerm := binary.BigEndian.Uint32(block[20:24])

	require.Zero(t, argvTerm)
	require.Zero(t, envpTerm)

	progStr := readCString(block, argv0Ptr-base)
	assert.Equal(t, "prog", progStr)
	arg1Str := readCString(block, argv1Ptr-base)
	assert.Equal(t, "arg1", arg1Str)

	// PATH= was not MINIX_-prefixed, so only one env entry survives.
	envStr := readCString(block, envp0Ptr-base)
	assert.Equal(t, "TERM=vt100", envStr)
}

func readCString(block []byte, offset uint32) string {
	end := offset
	for block[end] != 0 {
		end++
	}
	return string(block[offset:end])
}

func TestBuildStackContentIsFourByteAligned(t *testing.T) {
	block := BuildStack(0x1000, []string{"a"}, nil)
	// ptr area: argc + argv[0] + NULL + NULL = 4 words = 16 bytes.
	assert.Len(t, block, 16+4) // "a\0" rounds up to 4 bytes
}

func TestRelocateStackAddsBase(t *testing.T) {
	block := make([]byte, 16)
	binary.BigEndian.PutUint32(block[0:4], 1) // argc
	binary.BigEndian.PutUint32(block[4:8], 0x20)
	binary.BigEndian.PutUint32(block[8:12], 0) // argv terminator
	binary.BigEndian.PutUint32(block[12:16], 0) // envp terminator (envc=0)

	RelocateStack(block, 0x00ff0000)
	assert.Equal(t, uint32(0x00ff0020), binary.BigEndian.Uint32(block[4:8]))
}
