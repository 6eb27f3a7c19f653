package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minix68k/minixcompat/internal/mcerrno"
)

func TestRaiseAndDrainPending(t *testing.T) {
	s := &Signals{}
	s.Raise(mcerrno.SIGUSR1)
	s.Raise(mcerrno.SIGTERM)

	got := s.DrainPending()
	require.Len(t, got, 2)
	assert.Contains(t, got, mcerrno.SIGUSR1)
	assert.Contains(t, got, mcerrno.SIGTERM)

	assert.Empty(t, s.DrainPending())
}

func TestIgnoredSignalNeverPends(t *testing.T) {
	s := &Signals{}
	s.SetHandler(mcerrno.SIGPIPE, SIG_IGN)
	s.Raise(mcerrno.SIGPIPE)
	assert.Empty(t, s.DrainPending())
}

func TestSetHandlerReturnsPrevious(t *testing.T) {
	s := &Signals{}
	old := s.SetHandler(mcerrno.SIGINT, 0x2000)
	assert.Equal(t, SIG_DFL, old)
	old2 := s.SetHandler(mcerrno.SIGINT, SIG_IGN)
	assert.Equal(t, Handler(0x2000), old2)
}
