package emulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minix68k/minixcompat/internal/ram"
)

func TestFakeResetSetsPCAndSP(t *testing.T) {
	var mem ram.RAM
	var f Fake
	f.Reset(&mem, 0x1000, 0x00ff0000)
	assert.Equal(t, uint32(0x1000), f.GetRegister(PC))
	assert.Equal(t, uint32(0x00ff0000), f.GetRegister(A7))
}

func TestFakeRunFiresQueuedTrap(t *testing.T) {
	var f Fake
	f.PendingTraps = []int{0}

	var seen int = -1
	f.SetTrapFunc(func(vector int) { seen = vector })

	executed := f.Run(emulatorQuantum)
	require.Equal(t, 1, executed)
	assert.Equal(t, 0, seen)
}

func TestFakeRunToCompletionWithoutTrap(t *testing.T) {
	var f Fake
	f.InstructionsPerRun = 500
	executed := f.Run(QuantumSize)
	assert.Equal(t, 500, executed)
}

const emulatorQuantum = QuantumSize
