// Package proc implements the process model described in spec.md §4.7: the
// PID table, process lifecycle, fork/exit/waitpid, and per-process
// accounting.
package proc

import (
	"sync"
	"time"
)

// Accnt accumulates per-process user/system time, grounded on
// biscuit/src/accnt/accnt.go's Accnt_t. The rusage-bytes encoding the
// teacher builds (To_rusage, for copying straight into a userspace rusage
// struct) has no consumer here — this module exposes accounting as a
// Snapshot a caller can format however dispatch needs — so it is kept as
// plain fields instead.
type Accnt struct {
	mu     sync.Mutex
	UserNs int64
	SysNs  int64
}

// Utadd adds delta to the user-time counter.
func (a *Accnt) Utadd(delta time.Duration) {
	a.mu.Lock()
	a.UserNs += int64(delta)
	a.mu.Unlock()
}

// Systadd adds delta to the system-time counter.
func (a *Accnt) Systadd(delta time.Duration) {
	a.mu.Lock()
	a.SysNs += int64(delta)
	a.mu.Unlock()
}

// Add merges another record's counters into this one. Waitpid does not
// call it: reaping a child leaves the parent's record unchanged.
func (a *Accnt) Add(n *Accnt) {
	n.mu.Lock()
	du, ds := n.UserNs, n.SysNs
	n.mu.Unlock()
	a.mu.Lock()
	a.UserNs += du
	a.SysNs += ds
	a.mu.Unlock()
}

// Snapshot returns a consistent (user, sys) pair.
func (a *Accnt) Snapshot() (user, sys time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Duration(a.UserNs), time.Duration(a.SysNs)
}
