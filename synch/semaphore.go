package synch

// Semaphore is a counting semaphore: (count, wait channel, spinlock).
// No strict FIFO ordering of waiters is guaranteed (spec.md §4.1, and
// explicitly called out as a non-goal in spec.md §1).
type Semaphore struct {
	spin  Spinlock
	wc    WaitChannel
	count uint
}

// NewSemaphore returns a semaphore initialized to the given count.
func NewSemaphore(initial uint) *Semaphore {
	return &Semaphore{count: initial}
}

// P waits while count == 0, then decrements it.
func (s *Semaphore) P(t *Thread) {
	t.assertNoSpinlocks()
	s.spin.Acquire(t)
	for s.count == 0 {
		s.wc.Sleep(t, &s.spin)
	}
	s.count--
	s.spin.Release(t)
}

// V increments count and wakes one waiter.
func (s *Semaphore) V(t *Thread) {
	s.spin.Acquire(t)
	s.count++
	s.wc.WakeOne(&s.spin)
	s.spin.Release(t)
}

// Count returns a snapshot of the current count, for tests/diagnostics.
func (s *Semaphore) Count(t *Thread) uint {
	s.spin.Acquire(t)
	defer s.spin.Release(t)
	return s.count
}
