package as

import (
	"coreos/defs"
	"coreos/pagetable"
	"coreos/synch"
)

// Copy deep-copies as into a new address space (spec.md §4.5's "copy
// semantics"): each RAM PTE gets a freshly allocated and copied frame, each
// SWAP PTE gets a freshly allocated slot with the page contents relayed
// through a scratch kernel frame, and each ZERO PTE is copied as ZERO.
// Permission and dirty bits are propagated. Any failure destroys the
// partially built child and returns the error that caused it.
func (as *AddrSpace) Copy(t *synch.Thread) (*AddrSpace, defs.Err_t) {
	child := Create(as.cm, as.sw)

	as.spin.Acquire(t)
	child.heapStart, child.heapEnd, child.stackBase = as.heapStart, as.heapEnd, as.stackBase
	for _, r := range as.regions {
		cp := *r
		child.regions = append(child.regions, &cp)
	}
	as.spin.Release(t)

	var copyErr defs.Err_t
	as.pt.Walk(func(vpn uint32, pte *pagetable.PTE) {
		if copyErr != 0 {
			return
		}
		pagetable.LockPTE(t, as.pt, vpn)
		defer pagetable.UnlockPTE(t, as.pt, vpn)

		cpte := child.pt.GetPTE(vpn, true)
		cpte.Dirty = pte.Dirty
		cpte.Readonly = pte.Readonly

		switch pte.State {
		case pagetable.ZERO:
			cpte.State = pagetable.ZERO

		case pagetable.RAM:
			newIdx, ok := as.cm.AllocUpage(t, child.pt, vpn)
			if !ok {
				copyErr = defs.ENOMEM
				return
			}
			copy(as.cm.Bytes(newIdx), as.cm.Bytes(pte.PFN))
			cpte.State = pagetable.RAM
			cpte.PFN = newIdx

		case pagetable.SWAP:
			scratch, ok := as.cm.AllocKpages(t, 1)
			if !ok {
				copyErr = defs.ENOMEM
				return
			}
			buf := as.cm.Bytes(scratch)
			if err := as.sw.In(pte.SwapSlot, buf); err != nil {
				as.cm.FreeKpages(t, scratch)
				copyErr = defs.ENOMEM
				return
			}
			newSlot, ok := as.sw.Alloc(t)
			if !ok {
				as.cm.FreeKpages(t, scratch)
				copyErr = defs.ENOSWAP
				return
			}
			if err := as.sw.Out(newSlot, buf); err != nil {
				as.sw.Free(t, newSlot)
				as.cm.FreeKpages(t, scratch)
				copyErr = defs.ENOMEM
				return
			}
			as.cm.FreeKpages(t, scratch)
			cpte.State = pagetable.SWAP
			cpte.SwapSlot = newSlot
		}
	})

	if copyErr != 0 {
		child.Destroy(t)
		return nil, copyErr
	}
	return child, 0
}
