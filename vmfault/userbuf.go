package vmfault

import (
	"coreos/as"
	"coreos/defs"
	"coreos/pagetable"
	"coreos/synch"
)

// CopyIn reads len(dst) bytes from user virtual address uva into dst,
// faulting in each page it crosses. Grounded on
// biscuit/src/vm/userbuf.go's Uioread/_tx loop, adapted to copy directly
// out of the simulated frame arena once a page is resident instead of
// through a direct-mapped kernel alias.
func (h *Handler) CopyIn(t *synch.Thread, a *as.AddrSpace, uva uintptr, dst []byte) (int, defs.Err_t) {
	return h.tx(t, a, uva, dst, false)
}

// CopyOut writes src into user virtual address uva, faulting in each page
// it crosses.
func (h *Handler) CopyOut(t *synch.Thread, a *as.AddrSpace, uva uintptr, src []byte) (int, defs.Err_t) {
	return h.tx(t, a, uva, src, true)
}

func (h *Handler) tx(t *synch.Thread, a *as.AddrSpace, uva uintptr, buf []byte, write bool) (int, defs.Err_t) {
	ft := defs.FaultRead
	if write {
		ft = defs.FaultWrite
	}

	n := 0
	for len(buf) > 0 {
		if err := h.Fault(t, a, ft, uva); err != 0 {
			return n, err
		}

		pt := a.PageTable()
		vpn := defs.VPN(uva)
		pagetable.LockPTE(t, pt, vpn)
		pte := pt.GetPTE(vpn, false)
		if pte == nil || pte.State != pagetable.RAM {
			pagetable.UnlockPTE(t, pt, vpn)
			return n, defs.EFAULT
		}
		page := h.cm.Bytes(pte.PFN)
		voff := int(uva & uintptr(defs.PGOFFSET))
		avail := page[voff:]

		var c int
		if write {
			c = copy(avail, buf)
		} else {
			c = copy(buf, avail)
		}
		pagetable.UnlockPTE(t, pt, vpn)

		buf = buf[c:]
		uva += uintptr(c)
		n += c
	}
	return n, 0
}
