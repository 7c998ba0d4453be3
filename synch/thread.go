package synch

import (
	"sync"
	"sync/atomic"
	"time"

	"coreos/defs"
)

// Thread is the "current thread" handle every blocking primitive in this
// package is given explicitly. os161 (and biscuit, via runtime.Gptr) reach a
// per-CPU "current thread" through a hidden global; Go gives no portable
// equivalent without patching the runtime, so one Thread value is created per
// goroutine that plays the role of a kernel thread (spec.md §5: "a single
// thread runs per user process") and threaded through call sites instead.
//
// Thread also carries the per-thread accounting the teacher's accnt.Accnt_t
// and tinfo.Tnote_t track, adapted here onto a single struct rather than two.
type Thread struct {
	Tid defs.Tid_t

	mu        sync.Mutex
	spinHeld  int
	Killed    bool
	Userns    int64 // nanoseconds of user time consumed
	Sysns     int64 // nanoseconds of system time consumed
}

var nextTid int64

// NewThread allocates a fresh thread handle.
func NewThread() *Thread {
	return &Thread{Tid: defs.Tid_t(atomic.AddInt64(&nextTid, 1))}
}

// spinInc/spinDec are called by Spinlock.Acquire/Release to maintain the
// held-spinlock count spec.md §4.1 requires "the kernel asserts this count
// is zero before any operation that may block".
func (t *Thread) spinInc() {
	t.mu.Lock()
	t.spinHeld++
	t.mu.Unlock()
}

func (t *Thread) spinDec() {
	t.mu.Lock()
	if t.spinHeld == 0 {
		t.mu.Unlock()
		panic("synch: spinlock held-count underflow")
	}
	t.spinHeld--
	t.mu.Unlock()
}

// SpinHeld reports how many spinlocks this thread currently holds.
func (t *Thread) SpinHeld() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spinHeld
}

// assertNoSpinlocks panics if the thread holds any spinlock; called at the
// entry of every operation that may block (sleep-lock acquire, CV wait,
// semaphore P), per spec.md §5 "Spinlocks must never be held across a
// suspension point; this is asserted wherever the core needs to sleep."
func (t *Thread) assertNoSpinlocks() {
	if t.SpinHeld() != 0 {
		panic("synch: may not block while holding a spinlock")
	}
}

// Utadd/Systadd mirror accnt.Accnt_t's bookkeeping API. They add to this
// thread's own counters only; proc.Accnt keeps separate counters.
func (t *Thread) Utadd(delta time.Duration) {
	atomic.AddInt64(&t.Userns, int64(delta))
}

func (t *Thread) Systadd(delta time.Duration) {
	atomic.AddInt64(&t.Sysns, int64(delta))
}
