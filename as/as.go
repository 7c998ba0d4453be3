// Package as implements the per-process address space described in
// spec.md §4.5: a region list, heap bounds, and the deep-copy fork,
// activation, and sbrk operations built on top of packages mem, pagetable,
// and swap. It is grounded on biscuit/src/vm/as.go's Vm_t (the mutex
// guarding region list + pmap + heap bounds, the Lock_pmap/Unlock_pmap
// naming) with the copy-on-write machinery removed (spec.md's explicit
// non-goal) and the deep-copy-on-fork semantics added from
// original_source/kern/vm/vm.c, which this spec follows instead.
package as

import (
	"coreos/defs"
	"coreos/mem"
	"coreos/pagetable"
	"coreos/swap"
	"coreos/synch"
)

// UserTop is the boundary between user and kernel virtual addresses,
// following the classic MIPS kuseg/kseg split original_source targets:
// addresses at or above this are kernel segment and always fault EFAULT
// from package vmfault.
const UserTop uintptr = 0x80000000

// DefaultStackSize is the fixed size of the stack region installed by
// DefineStack.
const DefaultStackSize uintptr = 256 * 1024

// Region is a contiguous virtual range with one permission set, belonging
// to exactly one address space (spec.md §3). Kept as a slice entry on
// AddrSpace rather than the teacher's/spec's linked list — idiomatic Go
// has no reason to hand-roll a list where a slice does the same job.
type Region struct {
	Base       uintptr
	Length     uintptr
	Readable   bool
	Writeable  bool
	Executable bool
}

func (r *Region) contains(va uintptr) bool {
	return va >= r.Base && va < r.Base+r.Length
}

func (r *Region) vpnRange() (lo, hi uint32) {
	lo = defs.VPN(r.Base)
	hi = defs.VPN(r.Base + r.Length - 1)
	return
}

// AddrSpace owns the level-1 table pointer (via PageTable), the region
// list, and the heap bounds, guarded by one spinlock (spec.md §3).
type AddrSpace struct {
	spin synch.Spinlock

	cm *mem.Coremap
	sw *swap.Swap

	pt      *pagetable.PageTable
	regions []*Region

	heapStart uintptr
	heapEnd   uintptr
	stackBase uintptr
}

// Create returns an empty address space (spec.md §4.5's "create").
func Create(cm *mem.Coremap, sw *swap.Swap) *AddrSpace {
	return &AddrSpace{cm: cm, sw: sw, pt: pagetable.New()}
}

// PageTable exposes the underlying two-level table, used by package
// vmfault to look up and install PTEs and by the TLB install step to reach
// the owning TLB.
func (as *AddrSpace) PageTable() *pagetable.PageTable { return as.pt }

// Coremap and SwapAllocator expose the coremap/swap singletons this
// address space was created with, so package proc's exec can build a
// fresh sibling AddrSpace against the same backing allocators without
// threading them through every call site separately.
func (as *AddrSpace) Coremap() *mem.Coremap    { return as.cm }
func (as *AddrSpace) SwapAllocator() *swap.Swap { return as.sw }

// Lookup returns the region containing va, if any.
func (as *AddrSpace) Lookup(t *synch.Thread, va uintptr) (*Region, bool) {
	as.spin.Acquire(t)
	defer as.spin.Release(t)
	for _, r := range as.regions {
		if r.contains(va) {
			return r, true
		}
	}
	return nil, false
}

// InHeap reports whether va falls within [heap_start, heap_end).
func (as *AddrSpace) InHeap(t *synch.Thread, va uintptr) bool {
	as.spin.Acquire(t)
	defer as.spin.Release(t)
	return va >= as.heapStart && va < as.heapEnd
}

// DefineRegion adds a new non-overlapping region (spec.md §4.5, §3's
// "regions do not overlap within an address space" invariant).
func (as *AddrSpace) DefineRegion(t *synch.Thread, base, length uintptr, readable, writeable, executable bool) defs.Err_t {
	as.spin.Acquire(t)
	defer as.spin.Release(t)
	newr := &Region{Base: base, Length: length, Readable: readable, Writeable: writeable, Executable: executable}
	for _, r := range as.regions {
		if newr.Base < r.Base+r.Length && r.Base < newr.Base+newr.Length {
			return defs.EINVAL
		}
	}
	as.regions = append(as.regions, newr)
	return 0
}

// InitHeap sets the initial, empty heap (heap_start == heap_end == start),
// page-aligned. Called once after the loader's regions are defined; not
// itself part of any region.
func (as *AddrSpace) InitHeap(t *synch.Thread, start uintptr) {
	as.spin.Acquire(t)
	defer as.spin.Release(t)
	as.heapStart = start
	as.heapEnd = start
}

// DefineStack adds a fixed-size stack region terminating at UserTop and
// returns the initial stack pointer. Existing heap bounds are untouched
// (spec.md §4.5).
func (as *AddrSpace) DefineStack(t *synch.Thread) (sp uintptr, err defs.Err_t) {
	as.spin.Acquire(t)
	base := (UserTop - DefaultStackSize) &^ uintptr(defs.PGOFFSET)
	as.spin.Release(t)

	if err := as.DefineRegion(t, base, UserTop-base, true, true, false); err != 0 {
		return 0, err
	}
	as.spin.Acquire(t)
	as.stackBase = base
	as.spin.Release(t)
	return UserTop, 0
}

// PrepareLoad sets every page of every defined region to ZERO and
// temporarily writable, so the loader can write initial segment contents
// regardless of the region's real permissions (spec.md §4.5).
func (as *AddrSpace) PrepareLoad(t *synch.Thread) {
	as.spin.Acquire(t)
	regions := append([]*Region(nil), as.regions...)
	as.spin.Release(t)

	for _, r := range regions {
		lo, hi := r.vpnRange()
		for vpn := lo; vpn <= hi; vpn++ {
			pagetable.LockPTE(t, as.pt, vpn)
			pte := as.pt.GetPTE(vpn, true)
			if pte.State == pagetable.UNALLOC {
				pte.State = pagetable.ZERO
			}
			pte.Readonly = false
			pagetable.UnlockPTE(t, as.pt, vpn)
		}
	}
}

// CompleteLoad restores each region's real readonly flag on every page the
// loader touched (spec.md §4.5).
func (as *AddrSpace) CompleteLoad(t *synch.Thread) {
	as.spin.Acquire(t)
	regions := append([]*Region(nil), as.regions...)
	as.spin.Release(t)

	for _, r := range regions {
		lo, hi := r.vpnRange()
		for vpn := lo; vpn <= hi; vpn++ {
			pagetable.LockPTE(t, as.pt, vpn)
			if pte := as.pt.GetPTE(vpn, false); pte != nil {
				pte.Readonly = !r.Writeable
			}
			pagetable.UnlockPTE(t, as.pt, vpn)
		}
	}
}

// Activate makes as the current address space and flushes its TLB
// (spec.md §4.5). Because each AddrSpace owns its own simulated TLB rather
// than a shared hardware register file, this reduces to the flush.
func (as *AddrSpace) Activate() {
	as.pt.TLB.InvalidateAll()
}

// Destroy frees every frame and swap slot still mapped by a present PTE.
func (as *AddrSpace) Destroy(t *synch.Thread) {
	as.pt.Walk(func(vpn uint32, pte *pagetable.PTE) {
		pagetable.LockPTE(t, as.pt, vpn)
		switch pte.State {
		case pagetable.RAM:
			as.cm.FreeUpage(t, pte.PFN)
		case pagetable.SWAP:
			as.sw.Free(t, pte.SwapSlot)
		}
		pte.State = pagetable.UNALLOC
		pagetable.UnlockPTE(t, as.pt, vpn)
	})
}
