package synch

// WaitChannel is an opaque parking queue associated with a spinlock supplied
// by the caller at each call (spec.md §4.1). It does not lock itself: the
// caller is required to already hold the associated spinlock, exactly as
// os161's wchan is only ever touched with its owning spinlock held
// (original_source/kern/thread/synch.c).
type WaitChannel struct {
	waiters []chan struct{}
}

// Sleep atomically releases spin, blocks the calling thread on wc, and
// reacquires spin before returning.
func (wc *WaitChannel) Sleep(t *Thread, spin *Spinlock) {
	ch := make(chan struct{})
	wc.waiters = append(wc.waiters, ch)
	spin.Release(t)
	<-ch
	spin.Acquire(t)
}

// WakeOne moves one parked thread to runnable. The caller must hold spin.
func (wc *WaitChannel) WakeOne(spin *Spinlock) {
	if len(wc.waiters) == 0 {
		return
	}
	ch := wc.waiters[0]
	wc.waiters = wc.waiters[1:]
	close(ch)
}

// WakeAll moves every parked thread to runnable. The caller must hold spin.
func (wc *WaitChannel) WakeAll(spin *Spinlock) {
	for _, ch := range wc.waiters {
		close(ch)
	}
	wc.waiters = nil
}

// Empty reports whether any thread is currently parked on wc. The caller
// must hold the associated spinlock.
func (wc *WaitChannel) Empty() bool {
	return len(wc.waiters) == 0
}
