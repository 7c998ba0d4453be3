package proc

import (
	"coreos/defs"
	"coreos/synch"
)

// PIDTable is the process-wide PID-to-process map, protected by one
// spinlock (spec.md §3's "PID table"). PID 0 is reserved for the kernel
// process and is never handed out by AllocPID.
type PIDTable struct {
	spin  synch.Spinlock
	procs map[defs.Pid_t]*Process
	next  defs.Pid_t
}

// NewPIDTable returns an empty table with allocation starting at PID_MIN.
func NewPIDTable() *PIDTable {
	return &PIDTable{procs: make(map[defs.Pid_t]*Process), next: defs.PID_MIN}
}

// AllocPID reserves the next free PID in [PID_MIN, PID_MAX), scanning
// circularly from next_pid. This is the resolution of spec.md §9's
// pid_alloc open question: the scan covers the full PID_MAX-PID_MIN
// candidate slots as a circular sweep, so PID_MAX-1 is reachable and no
// slot is skipped or rechecked twice (see SPEC_FULL.md §4.7).
func (pt *PIDTable) AllocPID(t *synch.Thread) (defs.Pid_t, bool) {
	pt.spin.Acquire(t)
	defer pt.spin.Release(t)

	span := int(defs.PID_MAX - defs.PID_MIN)
	start := int(pt.next - defs.PID_MIN)
	for i := 0; i < span; i++ {
		candidate := defs.PID_MIN + defs.Pid_t((start+i)%span)
		if _, used := pt.procs[candidate]; !used {
			pt.procs[candidate] = nil
			pt.next = candidate + 1
			if pt.next >= defs.PID_MAX {
				pt.next = defs.PID_MIN
			}
			return candidate, true
		}
	}
	return 0, false
}

// Insert records p under its PID, replacing the AllocPID placeholder.
func (pt *PIDTable) Insert(t *synch.Thread, p *Process) {
	pt.spin.Acquire(t)
	defer pt.spin.Release(t)
	pt.procs[p.PID] = p
}

// Remove frees pid for reuse, done only after the process has exited and
// been reaped by waitpid (spec.md §3's "a PID is reusable only after both
// the process has exited and been reaped").
func (pt *PIDTable) Remove(t *synch.Thread, pid defs.Pid_t) {
	pt.spin.Acquire(t)
	defer pt.spin.Release(t)
	delete(pt.procs, pid)
}

// Lookup returns the process registered under pid, if any.
func (pt *PIDTable) Lookup(t *synch.Thread, pid defs.Pid_t) (*Process, bool) {
	pt.spin.Acquire(t)
	defer pt.spin.Release(t)
	p, ok := pt.procs[pid]
	return p, ok && p != nil
}
