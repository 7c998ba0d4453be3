// Package mem implements the coremap: the physical-frame allocator described
// in spec.md §3/§4.2. It is grounded on biscuit/src/mem/mem.go's Physmem_t
// (a frame array guarded by one spinlock, first-fit scan, direct page
// access) with the refcounting/COW machinery stripped — this spec's coremap
// has single ownership per frame, no COW — and the unsafe/runtime.Vtop
// direct-map trick replaced by a plain []byte arena, since there is no real
// physical machine under this module.
package mem

import (
	"coreos/defs"
	"coreos/pagetable"
	"coreos/synch"
)

// FrameState is one of the four coremap entry states (spec.md §3).
type FrameState int

const (
	FREE FrameState = iota
	FIXED
	USER
	EVICTING
)

func (s FrameState) String() string {
	switch s {
	case FREE:
		return "FREE"
	case FIXED:
		return "FIXED"
	case USER:
		return "USER"
	case EVICTING:
		return "EVICTING"
	default:
		return "?"
	}
}

// frame is one coremap entry (spec.md §3 "Physical frame (coremap entry)").
type frame struct {
	state    FrameState
	chunkLen int // run length if first page of a multi-page kernel run
	ownerPT  *pagetable.PageTable
	ownerVPN uint32
}

// Coremap is the physical-frame allocator: a contiguous array of per-frame
// entries sized at boot to cover all simulated RAM, guarded by one spinlock
// (spec.md §4.2).
type Coremap struct {
	spin   synch.Spinlock
	frames []frame
	arena  []byte // simulated RAM: frame i occupies arena[i*PGSIZE:(i+1)*PGSIZE]
}

// NewCoremap allocates a coremap covering nframes physical pages. nfixed
// frames at the start of the array are marked FIXED, standing in for the
// kernel text/data/coremap pages spec.md §4.2 says "start as FIXED"; the
// remainder start FREE.
func NewCoremap(nframes, nfixed int) *Coremap {
	if nfixed > nframes {
		panic("mem: nfixed exceeds nframes")
	}
	cm := &Coremap{
		frames: make([]frame, nframes),
		arena:  make([]byte, nframes*defs.PGSIZE),
	}
	for i := 0; i < nfixed; i++ {
		cm.frames[i].state = FIXED
	}
	return cm
}

// NFrames returns the total number of physical frames.
func (cm *Coremap) NFrames() int { return len(cm.frames) }

// Bytes returns the page-sized byte view of frame idx, used by swap I/O and
// the fault handler's zero-fill/copy paths.
func (cm *Coremap) Bytes(idx int) []byte {
	return cm.arena[idx*defs.PGSIZE : (idx+1)*defs.PGSIZE]
}

// UsedBytes returns the count of non-FREE frames times the page size, at the
// instant observed (spec.md §8 universal invariant).
func (cm *Coremap) UsedBytes(t *synch.Thread) int {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	n := 0
	for i := range cm.frames {
		if cm.frames[i].state != FREE {
			n++
		}
	}
	return n * defs.PGSIZE
}

// AllocKpages performs a linear first-fit scan for n contiguous FREE frames
// and marks the run FIXED with chunkLen=n on the head frame (spec.md §4.2).
// It returns the head frame index and whether allocation succeeded.
func (cm *Coremap) AllocKpages(t *synch.Thread, n int) (int, bool) {
	if n <= 0 {
		panic("mem: bad kpages request")
	}
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	run := 0
	for i := 0; i < len(cm.frames); i++ {
		if cm.frames[i].state == FREE {
			run++
			if run == n {
				head := i - n + 1
				cm.frames[head].state = FIXED
				cm.frames[head].chunkLen = n
				for j := head + 1; j <= i; j++ {
					cm.frames[j].state = FIXED
					cm.frames[j].chunkLen = 0
				}
				return head, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

// FreeKpages locates the head frame of the run starting at idx, asserts it
// is FIXED with a non-zero chunkLen, and returns the full run to FREE.
func (cm *Coremap) FreeKpages(t *synch.Thread, idx int) {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	f := &cm.frames[idx]
	if f.state != FIXED || f.chunkLen == 0 {
		panic("mem: free_kpages on non-head or non-fixed frame")
	}
	n := f.chunkLen
	for j := idx; j < idx+n; j++ {
		cm.frames[j] = frame{}
	}
}

// AllocUpage allocates a single FREE frame, records (owner, vpn) ownership,
// and transitions it to USER (spec.md §4.2). It does not itself evict; on
// exhaustion package vmfault's fault handler evicts a frame through
// swap.Evictor and retries.
func (cm *Coremap) AllocUpage(t *synch.Thread, owner *pagetable.PageTable, vpn uint32) (int, bool) {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	for i := range cm.frames {
		if cm.frames[i].state == FREE {
			cm.frames[i] = frame{state: USER, ownerPT: owner, ownerVPN: vpn}
			return i, true
		}
	}
	return 0, false
}

// FreeUpage frees a user frame. If the frame is EVICTING, the free is a
// no-op: the evictor owns the frame and will complete the transition
// (spec.md §4.2).
func (cm *Coremap) FreeUpage(t *synch.Thread, idx int) {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	f := &cm.frames[idx]
	if f.state == EVICTING {
		return
	}
	if f.state != USER {
		panic("mem: free_upage on non-user frame")
	}
	*f = frame{}
}

// FrameView is a read-only snapshot of one coremap entry, used by the swap
// package's clock scan.
type FrameView struct {
	State    FrameState
	OwnerPT  *pagetable.PageTable
	OwnerVPN uint32
}

// Frame returns a snapshot of frame idx.
func (cm *Coremap) Frame(t *synch.Thread, idx int) FrameView {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	f := cm.frames[idx]
	return FrameView{State: f.state, OwnerPT: f.ownerPT, OwnerVPN: f.ownerVPN}
}

// MarkEvicting transitions frame idx from USER to EVICTING. It returns
// EBUSY if the frame is not currently USER — including, deliberately, the
// case where it is already EVICTING (see SPEC_FULL.md §9's resolution of the
// vm_mark_page_evicting open question: the check is against USER
// specifically, so a racing evictor is correctly detected instead of being
// unreachable).
func (cm *Coremap) MarkEvicting(t *synch.Thread, idx int) defs.Err_t {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	f := &cm.frames[idx]
	if f.state != USER {
		return defs.EBUSY
	}
	f.state = EVICTING
	return 0
}

// FinishEviction transitions frame idx from EVICTING to FREE, the final
// step of the evict sequence (spec.md §4.4 step 7).
func (cm *Coremap) FinishEviction(t *synch.Thread, idx int) {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	f := &cm.frames[idx]
	if f.state != EVICTING {
		panic("mem: finish_eviction on non-evicting frame")
	}
	*f = frame{}
}

// RollbackEviction restores frame idx from EVICTING back to USER with its
// original ownership, used when the evict sequence fails after marking the
// frame (spec.md §4.4 step 4's "on failure ... roll back the eviction
// state").
func (cm *Coremap) RollbackEviction(t *synch.Thread, idx int, owner *pagetable.PageTable, vpn uint32) {
	cm.spin.Acquire(t)
	defer cm.spin.Release(t)
	f := &cm.frames[idx]
	if f.state != EVICTING {
		panic("mem: rollback_eviction on non-evicting frame")
	}
	f.state = USER
	f.ownerPT = owner
	f.ownerVPN = vpn
}
