package synch

// SleepLock is a mutex that may be held across a blocking operation:
// (holder, wait channel, spinlock). Acquire blocks while the lock is held by
// another thread; release clears the holder and wakes one waiter. Only the
// holder may release (spec.md §4.1).
type SleepLock struct {
	spin   Spinlock
	wc     WaitChannel
	holder *Thread
}

// Acquire blocks until the lock is free, then takes it.
func (l *SleepLock) Acquire(t *Thread) {
	t.assertNoSpinlocks()
	l.spin.Acquire(t)
	for l.holder != nil {
		l.wc.Sleep(t, &l.spin)
	}
	l.holder = t
	l.spin.Release(t)
}

// Release gives up the lock and wakes one waiter. It is a fatal error to
// release a lock this thread does not hold (spec.md §7).
func (l *SleepLock) Release(t *Thread) {
	l.spin.Acquire(t)
	if l.holder != t {
		l.spin.Release(t)
		panic("synch: release of sleep lock not held")
	}
	l.holder = nil
	l.wc.WakeOne(&l.spin)
	l.spin.Release(t)
}

// DoIHold reports whether t currently holds the lock.
func (l *SleepLock) DoIHold(t *Thread) bool {
	l.spin.Acquire(t)
	defer l.spin.Release(t)
	return l.holder == t
}
