package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapChain(t *testing.T) {
	table := New(100, 99)
	assert.Equal(t, PID(7), table.Self())
	assert.Equal(t, PID(6), table.Parent())
	assert.Equal(t, HostID(100), table.HostForPID(7))
	assert.Equal(t, HostID(99), table.HostForPID(6))
}

func TestForkAllocatesIncrementingPIDs(t *testing.T) {
	table := New(100, 99)
	entry1, child1 := table.Fork()
	table.RecordChild(entry1, child1, 200)
	assert.Equal(t, PID(8), child1)

	entry2, child2 := table.Fork()
	table.RecordChild(entry2, child2, 201)
	assert.Equal(t, PID(9), child2)

	assert.Equal(t, HostID(200), table.HostForPID(8))
	assert.Equal(t, HostID(201), table.HostForPID(9))
}

func TestPIDForHostRoundTrip(t *testing.T) {
	table := New(100, 99)
	entry, child := table.Fork()
	table.RecordChild(entry, child, 300)
	assert.Equal(t, child, table.PIDForHost(300))
}

func TestUnmappedLookupReturnsNegativeOne(t *testing.T) {
	table := New(100, 99)
	assert.EqualValues(t, -1, table.PIDForHost(9999))
	assert.EqualValues(t, -1, table.HostForPID(9999))
}

func TestBecomeChildRotatesTable(t *testing.T) {
	table := New(100, 99)
	entry, child := table.Fork()
	require.Equal(t, PID(8), child)

	table.BecomeChild(entry, child, 201)

	assert.Equal(t, PID(8), table.Self())
	assert.Equal(t, HostID(201), table.HostForPID(8))
	// The old self (pid 7, host 100) is now the child's parent.
	assert.Equal(t, PID(7), table.Parent())
	assert.Equal(t, HostID(100), table.HostForPID(7))
	// The old parent (pid 6, host 99) was preserved in the reserved slot.
	assert.Equal(t, HostID(99), table.HostForPID(6))
}

func TestTableGrowsPastInitialSize(t *testing.T) {
	table := New(100, 99)
	var lastChild PID
	for i := 0; i < initialTableSize+5; i++ {
		entry, child := table.Fork()
		table.RecordChild(entry, child, HostID(1000+i))
		lastChild = child
	}
	assert.Greater(t, len(table.slots), initialTableSize)
	assert.Equal(t, lastChild, table.PIDForHost(HostID(1000+initialTableSize+4)))
}

func TestReleaseFreesSlotForReuse(t *testing.T) {
	table := New(100, 99)
	entry, child := table.Fork()
	table.RecordChild(entry, child, 400)
	table.Release(child)
	assert.EqualValues(t, -1, table.HostForPID(child))
}
