package synch

import "sync"

// Spinlock is the lowest mutual-exclusion primitive (spec.md §4.1). On real
// hardware, acquire spins with interrupts disabled on the local CPU; under
// the Go scheduler there is no interrupt register to disable, so Acquire
// blocks on an ordinary mutex instead — the part of the contract this module
// can and does enforce is the one that matters for correctness here: a
// thread's held-spinlock count is tracked so the kernel can assert it is
// zero before any operation that may sleep (spec.md §5).
type Spinlock struct {
	mu sync.Mutex
}

// Acquire takes the lock and records it against t's held-spinlock count.
func (s *Spinlock) Acquire(t *Thread) {
	s.mu.Lock()
	t.spinInc()
}

// Release gives up the lock and updates t's held-spinlock count.
func (s *Spinlock) Release(t *Thread) {
	t.spinDec()
	s.mu.Unlock()
}
