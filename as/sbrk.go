package as

import (
	"coreos/defs"
	"coreos/pagetable"
	"coreos/synch"
	"coreos/util"
)

// Sbrk adjusts the program break by n bytes (n may be negative) and
// returns the break's previous value (spec.md §4.5). Growing past
// user_stack_top-stack_size, or shrinking below heap_start, is rejected.
//
// Shrinking frees whole pages in [round_up(new_break), round_down(old_break)]
// back to the coremap/swap allocator and resets their PTEs to UNALLOC — the
// resolution of this spec's open question on the exact shrink range
// (documented in SPEC_FULL.md §4.5): a page straddling new_break is kept,
// since it still backs live bytes below new_break, while a page straddling
// old_break is freed in full, since nothing above new_break is reachable
// again.
func (as *AddrSpace) Sbrk(t *synch.Thread, n int64) (oldBreak uintptr, err defs.Err_t) {
	as.spin.Acquire(t)
	oldBreak = as.heapEnd
	var newBreak uintptr
	if n >= 0 {
		newBreak = oldBreak + uintptr(n)
	} else {
		shrink := uintptr(-n)
		if shrink > oldBreak {
			as.spin.Release(t)
			return 0, defs.EINVAL
		}
		newBreak = oldBreak - shrink
	}
	stackLimit := (UserTop - DefaultStackSize) &^ uintptr(defs.PGOFFSET)
	if n > 0 && (newBreak < oldBreak || newBreak > stackLimit) {
		as.spin.Release(t)
		return 0, defs.ENOMEM
	}
	if newBreak < as.heapStart {
		as.spin.Release(t)
		return 0, defs.EINVAL
	}
	as.heapEnd = newBreak
	as.spin.Release(t)

	if n < 0 {
		lo := defs.VPN(util.Roundup(newBreak, uintptr(defs.PGSIZE)))
		hi := defs.VPN(util.Rounddown(oldBreak, uintptr(defs.PGSIZE)))
		for vpn := lo; vpn <= hi; vpn++ {
			pagetable.LockPTE(t, as.pt, vpn)
			pte := as.pt.GetPTE(vpn, false)
			if pte != nil {
				switch pte.State {
				case pagetable.RAM:
					as.cm.FreeUpage(t, pte.PFN)
				case pagetable.SWAP:
					as.sw.Free(t, pte.SwapSlot)
				}
				as.pt.TLB.InvalidateVPN(vpn)
				*pte = pagetable.PTE{}
			}
			pagetable.UnlockPTE(t, as.pt, vpn)
		}
	}
	return oldBreak, 0
}
