package synch

// RWLock is a readers-writer lock with writer preference, grounded on
// original_source/kern/thread/synch.c's rwlock: a sleep lock, a CV, the set
// of active reader threads, a count of waiting writers, and the active
// writer if any (spec.md §4.1).
type RWLock struct {
	lk             SleepLock
	cv             CV
	activeReaders  map[*Thread]bool
	waitingWriters int
	activeWriter   *Thread
}

// NewRWLock returns a ready-to-use RWLock.
func NewRWLock() *RWLock {
	return &RWLock{activeReaders: make(map[*Thread]bool)}
}

// AcquireRead blocks while there is an active or waiting writer, then joins
// the active-readers set.
func (l *RWLock) AcquireRead(t *Thread) {
	l.lk.Acquire(t)
	for l.waitingWriters > 0 || l.activeWriter != nil {
		l.cv.Wait(t, &l.lk)
	}
	l.activeReaders[t] = true
	l.lk.Release(t)
}

// ReleaseRead removes t from the active-readers set. If t was the last
// reader, it broadcasts the CV. Releasing without holding the read lock is a
// fatal error.
func (l *RWLock) ReleaseRead(t *Thread) {
	l.lk.Acquire(t)
	if !l.activeReaders[t] {
		l.lk.Release(t)
		panic("synch: release of read lock not held")
	}
	delete(l.activeReaders, t)
	if len(l.activeReaders) == 0 {
		l.cv.Broadcast(t, &l.lk)
	}
	l.lk.Release(t)
}

// AcquireWrite registers as a waiting writer, blocks until there are no
// active readers or writer, then installs itself as the active writer.
func (l *RWLock) AcquireWrite(t *Thread) {
	l.lk.Acquire(t)
	l.waitingWriters++
	for len(l.activeReaders) > 0 || l.activeWriter != nil {
		l.cv.Wait(t, &l.lk)
	}
	l.waitingWriters--
	l.activeWriter = t
	l.lk.Release(t)
}

// ReleaseWrite clears the active writer and broadcasts. Releasing without
// holding the write lock is a fatal error.
func (l *RWLock) ReleaseWrite(t *Thread) {
	l.lk.Acquire(t)
	if l.activeWriter != t {
		l.lk.Release(t)
		panic("synch: release of write lock not held")
	}
	l.activeWriter = nil
	l.cv.Broadcast(t, &l.lk)
	l.lk.Release(t)
}

// ActiveReaderCount reports the current size of the active-readers set, for
// stress tests that verify concurrent-reader counts.
func (l *RWLock) ActiveReaderCount(t *Thread) int {
	l.lk.Acquire(t)
	defer l.lk.Release(t)
	return len(l.activeReaders)
}
