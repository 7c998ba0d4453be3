package swap

import (
	"coreos/defs"
	"coreos/mem"
	"coreos/pagetable"
	"coreos/synch"
)

// Evictor runs the clock/second-chance victim scan and the evict sequence
// against one coremap, grounded on original_source/kern/vm/vm.c (spec.md
// §4.4).
type Evictor struct {
	cm   *mem.Coremap
	sw   *Swap
	spin synch.Spinlock
	hand int // rotating clock index, guarded by spin
}

// NewEvictor ties an Evictor to the coremap and swap allocator it evicts
// between.
func NewEvictor(cm *mem.Coremap, sw *Swap) *Evictor {
	return &Evictor{cm: cm, sw: sw}
}

// pickVictim runs the two-pass clock scan (spec.md §4.4): a first pass
// chooses any USER frame whose owning PTE is unreferenced, clearing the
// referenced bit of everything it skips; a second full pass returns any
// USER frame unconditionally. The coremap spinlock is never held across
// the PTE lock acquire, matching spec.md §4.2's "never held across a
// sleeping operation" invariant.
func (e *Evictor) pickVictim(t *synch.Thread) (idx int, ok bool) {
	e.spin.Acquire(t)
	start := e.hand
	n := e.cm.NFrames()
	e.spin.Release(t)

	for pass := 0; pass < 2; pass++ {
		for i := 0; i < n; i++ {
			e.spin.Acquire(t)
			idx = (start + i) % n
			e.spin.Release(t)

			fv := e.cm.Frame(t, idx)
			if fv.State != mem.USER {
				continue
			}
			pagetable.LockPTE(t, fv.OwnerPT, fv.OwnerVPN)
			pte := fv.OwnerPT.GetPTE(fv.OwnerVPN, false)
			if pte == nil || pte.State != pagetable.RAM {
				pagetable.UnlockPTE(t, fv.OwnerPT, fv.OwnerVPN)
				continue
			}
			if pass == 1 || !pte.Referenced {
				e.spin.Acquire(t)
				e.hand = (idx + 1) % n
				e.spin.Release(t)
				pagetable.UnlockPTE(t, fv.OwnerPT, fv.OwnerVPN)
				return idx, true
			}
			pte.Referenced = false
			pagetable.UnlockPTE(t, fv.OwnerPT, fv.OwnerVPN)
		}
	}
	return 0, false
}

// Evict runs the full vm_evict_page sequence (spec.md §4.4 steps 1-8) and
// returns the freed frame index.
func (e *Evictor) Evict(t *synch.Thread) (freed int, err defs.Err_t) {
	idx, ok := e.pickVictim(t)
	if !ok {
		return 0, defs.ENOMEM
	}

	fv := e.cm.Frame(t, idx)
	if ec := e.cm.MarkEvicting(t, idx); ec != 0 {
		return 0, ec
	}

	pagetable.LockPTE(t, fv.OwnerPT, fv.OwnerVPN)
	defer pagetable.UnlockPTE(t, fv.OwnerPT, fv.OwnerVPN)

	pte := fv.OwnerPT.GetPTE(fv.OwnerVPN, false)
	if pte == nil || pte.State != pagetable.RAM || pte.PFN != idx {
		e.cm.RollbackEviction(t, idx, fv.OwnerPT, fv.OwnerVPN)
		return 0, defs.EBUSY
	}

	slot, ok := e.sw.Alloc(t)
	if !ok {
		e.cm.RollbackEviction(t, idx, fv.OwnerPT, fv.OwnerVPN)
		return 0, defs.ENOSWAP
	}
	if werr := e.sw.Out(slot, e.cm.Bytes(idx)); werr != nil {
		e.sw.Free(t, slot)
		e.cm.RollbackEviction(t, idx, fv.OwnerPT, fv.OwnerVPN)
		return 0, defs.ENOMEM
	}

	fv.OwnerPT.TLB.InvalidateVPN(fv.OwnerVPN)

	pte.State = pagetable.SWAP
	pte.SwapSlot = slot
	pte.PFN = 0

	e.cm.FinishEviction(t, idx)
	return idx, 0
}
