// Package vmfault implements the demand-paging fault handler described in
// spec.md §4.6, grounded on biscuit/src/vm/as.go's Sys_pgfault for the
// overall lock/dispatch shape, with the COW and shared-file branches
// removed (spec.md's non-goals) and SWAP-state handling added, following
// original_source/kern/vm/vm.c (absent from the teacher, which has no
// swap-in path of its own to borrow).
package vmfault

import (
	"coreos/as"
	"coreos/defs"
	"coreos/mem"
	"coreos/pagetable"
	"coreos/swap"
	"coreos/synch"
)

// Handler ties the fault dispatcher to the coremap and the evictor it
// drives on allocation failure.
type Handler struct {
	cm *mem.Coremap
	ev *swap.Evictor
	sw *swap.Swap
}

// NewHandler builds a fault handler over the given coremap, swap allocator,
// and evictor.
func NewHandler(cm *mem.Coremap, sw *swap.Swap, ev *swap.Evictor) *Handler {
	return &Handler{cm: cm, sw: sw, ev: ev}
}

func (h *Handler) allocFrame(t *synch.Thread, pt *pagetable.PageTable, vpn uint32) (int, defs.Err_t) {
	idx, ok := h.cm.AllocUpage(t, pt, vpn)
	if ok {
		return idx, 0
	}
	if _, everr := h.ev.Evict(t); everr != 0 {
		return 0, defs.ENOMEM
	}
	idx, ok = h.cm.AllocUpage(t, pt, vpn)
	if !ok {
		return 0, defs.ENOMEM
	}
	return idx, 0
}

// Fault handles one page fault at va of the given kind against a (spec.md
// §4.6 steps 1-5).
func (h *Handler) Fault(t *synch.Thread, a *as.AddrSpace, ft defs.FaultType, va uintptr) defs.Err_t {
	if a == nil || va >= as.UserTop {
		return defs.EFAULT
	}
	if ft == defs.FaultReadonly {
		return defs.EFAULT
	}

	var readonly bool
	if r, ok := a.Lookup(t, va); ok {
		readonly = !r.Writeable
	} else if a.InHeap(t, va) {
		readonly = false
	} else {
		return defs.EFAULT
	}

	pt := a.PageTable()
	vpn := defs.VPN(va)

	pagetable.LockPTE(t, pt, vpn)
	pte := pt.GetPTE(vpn, false)
	if pte == nil {
		pte = pt.GetPTE(vpn, true)
		pte.State = pagetable.ZERO
		pte.Readonly = readonly
	}

	switch pte.State {
	case pagetable.RAM:
		pte.Referenced = true
		pt.TLB.Write(vpn, pte.PFN)
		if !pte.Readonly {
			pt.TLB.MarkDirty(vpn)
		}
		pagetable.UnlockPTE(t, pt, vpn)
		return 0

	case pagetable.ZERO, pagetable.UNALLOC:
		prevState := pte.State
		pagetable.UnlockPTE(t, pt, vpn)

		idx, err := h.allocFrame(t, pt, vpn)
		if err != 0 {
			return err
		}
		clear(h.cm.Bytes(idx))

		pagetable.LockPTE(t, pt, vpn)
		defer pagetable.UnlockPTE(t, pt, vpn)
		if pte.State != prevState {
			h.cm.FreeUpage(t, idx)
			return defs.EBUSY
		}
		pte.State = pagetable.RAM
		pte.PFN = idx
		pte.Referenced = true
		pt.TLB.Write(vpn, idx)
		if !pte.Readonly {
			pt.TLB.MarkDirty(vpn)
		}
		return 0

	case pagetable.SWAP:
		slot := pte.SwapSlot
		pagetable.UnlockPTE(t, pt, vpn)

		idx, err := h.allocFrame(t, pt, vpn)
		if err != 0 {
			return err
		}
		if rerr := h.sw.In(slot, h.cm.Bytes(idx)); rerr != nil {
			h.cm.FreeUpage(t, idx)
			return defs.EFAULT
		}
		h.sw.Free(t, slot)

		pagetable.LockPTE(t, pt, vpn)
		defer pagetable.UnlockPTE(t, pt, vpn)
		pte.State = pagetable.RAM
		pte.PFN = idx
		pte.SwapSlot = 0
		pte.Referenced = true
		pt.TLB.Write(vpn, idx)
		if !pte.Readonly {
			pt.TLB.MarkDirty(vpn)
		}
		return 0

	default:
		pagetable.UnlockPTE(t, pt, vpn)
		return defs.EFAULT
	}
}
