package proc

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeExitedStatus(t *testing.T) {
	ws := syscall.WaitStatus(7 << 8)
	assert.Equal(t, int16(7), EncodeWaitStatus(ws))
}

func TestEncodeSignaledStatus(t *testing.T) {
	ws := syscall.WaitStatus(9) // killed by SIGKILL, low 7 bits = 9
	assert.Equal(t, int16(9)<<8, EncodeWaitStatus(ws))
}

func TestEncodeStoppedStatus(t *testing.T) {
	const stopSig = 19
	ws := syscall.WaitStatus((stopSig << 8) | 0x7f)
	assert.Equal(t, int16(stopSig)<<8|0177, EncodeWaitStatus(ws))
}
