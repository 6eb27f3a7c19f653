package mcerrno

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestRoundTrip(t *testing.T) {
	for host := range hostToMinix {
		m := FromHost(host)
		back, ok := ToHost(m)
		assert.True(t, ok)
		assert.Equal(t, host, back, "errno %v", host)
	}
}

func TestUnmappedFallsBackToError(t *testing.T) {
	assert.Equal(t, ERROR, FromHost(unix.ENOTRECOVERABLE))
}

func TestSignalRoundTrip(t *testing.T) {
	for sig := SIGHUP; sig <= SIGSTKFLT; sig++ {
		host, ok := HostSignal(sig)
		assert.True(t, ok)
		assert.NotZero(t, host)
		assert.Equal(t, sig, FromHostSignal(host))
	}
}
