// Package proc tracks MINIX process identity and signal state: the
// mapping between MINIX's 16-bit process IDs and whatever host-side
// identifier actually backs a process, the exec-time argument/environment
// stack layout, and the bookkeeping needed to turn a host wait(2) status
// or signal into its MINIX equivalent.
//
// MINIX fork(2) relies on the host's copy-on-write fork to duplicate an
// entire running process, including its loaded text/data/bss. Calling the
// raw fork(2) syscall from a Go binary is documented as unsafe once more
// than one OS thread exists, which the Go runtime always has running.
// Table is therefore deliberately silent on *how* a child comes into
// being — HostID is an opaque identifier the caller chooses (a real OS
// pid from a self-reexec, or a synthetic counter for an in-process VM
// clone) — and Fork only performs the bookkeeping the original function
// does around the actual duplication.
package proc

// HostID identifies whatever backs a MINIX process on the host side.
type HostID int64

// PID is a MINIX process ID. MINIX reserves 0 for MM and 1 for FS; the
// lowest PID a bridged user process can have is 2 (init), but this bridge
// only ever runs a single user process tree, so real allocation starts
// at 7 per the bootstrap chain below.
type PID int16

type slot struct {
	hostID HostID
	pid    PID
	used   bool
}

// Table is the MINIX↔host process ID mapping. Like the original, it's an
// unordered array searched linearly — there are never enough live
// processes for that to matter — that grows by half again whenever it
// fills up.
type Table struct {
	slots   []slot
	nextPID PID
}

const initialTableSize = 32

// New creates a process table and performs the same bootstrap the
// original does: MINIX has no notion of "the first process launched
// directly", so the table pretends this process was started by an
// ordinary login shell, with PIDs 3 through 6 standing in for
// /etc/rc's sh, getty, login, and the user's own shell. The bridged
// process becomes MINIX PID 7, child of pseudo-parent 6.
func New(selfHost, parentHost HostID) *Table {
	t := &Table{
		slots:   make([]slot, initialTableSize),
		nextPID: 8,
	}
	t.slots[0] = slot{hostID: selfHost, pid: 7, used: true}
	t.slots[1] = slot{hostID: parentHost, pid: 6, used: true}
	return t
}

// Self returns this process's own MINIX PID.
func (t *Table) Self() PID { return t.slots[0].pid }

// Parent returns this process's MINIX parent PID.
func (t *Table) Parent() PID { return t.slots[1].pid }

// PIDForHost returns the MINIX PID mapped to a host identifier, or -1 if
// none is mapped.
func (t *Table) PIDForHost(host HostID) PID {
	for _, s := range t.slots {
		if s.used && s.hostID == host {
			return s.pid
		}
	}
	return -1
}

// HostForPID returns the host identifier mapped to a MINIX PID, or -1 if
// none is mapped.
func (t *Table) HostForPID(pid PID) HostID {
	for _, s := range t.slots {
		if s.used && s.pid == pid {
			return s.hostID
		}
	}
	return -1
}

func (t *Table) nextFreeEntry() int {
	for i := 2; i < len(t.slots); i++ {
		if !t.slots[i].used {
			return i
		}
	}

	old := t.slots
	grown := make([]slot, len(old)+len(old)/2)
	copy(grown, old)
	t.slots = grown
	return len(old)
}

// Fork allocates a PID and table slot for a new child but does not create
// any host-side process; the caller creates the child by whatever means
// it uses and then calls RecordChild (as the parent) or BecomeChild (in
// the child's own view of the table, if the table was cloned rather than
// shared) to finish the bookkeeping.
func (t *Table) Fork() (entry int, child PID) {
	entry = t.nextFreeEntry()
	child = t.nextPID
	t.nextPID++
	return entry, child
}

// RecordChild fills in the table entry Fork reserved, to be called from
// the parent's view of the table once the child's host identifier is
// known.
func (t *Table) RecordChild(entry int, child PID, hostID HostID) {
	t.slots[entry] = slot{hostID: hostID, pid: child, used: true}
}

// BecomeChild rotates a cloned table into the child's point of view: the
// old parent goes into the slot reserved for this child (so nothing is
// lost), the old self becomes the new parent, and the new child identity
// becomes self. selfHostID is the child's own host identifier (e.g. its
// own OS pid after a self-reexec fork, distinct from the parent's).
func (t *Table) BecomeChild(entry int, child PID, selfHostID HostID) {
	t.slots[entry] = t.slots[1]
	t.slots[1] = t.slots[0]
	t.slots[0] = slot{hostID: selfHostID, pid: child, used: true}
}

// Clone returns an independent copy of the table, the way a real
// copy-on-write fork leaves parent and child with their own address
// space and therefore their own process table: mutations to one copy
// (BecomeChild, RecordChild, Release) never affect the other.
func (t *Table) Clone() *Table {
	slots := make([]slot, len(t.slots))
	copy(slots, t.slots)
	return &Table{slots: slots, nextPID: t.nextPID}
}

// Release frees the table slot for a process once it's been reaped.
func (t *Table) Release(pid PID) {
	for i, s := range t.slots {
		if s.used && s.pid == pid {
			t.slots[i] = slot{}
			return
		}
	}
}
