// Package pagetable implements the two-level per-address-space page table
// described in spec.md §3/§4.3: a level-1 array of 1024 pointers to level-2
// arrays of 1024 PTEs, each level allocated lazily, indexed by 10 bits of
// the 20-bit virtual page number (package defs defines the bit split).
//
// Structurally this is the teacher's vm/as.go Pmap_t idea (a fixed-size
// array of table entries, lazily populated) adapted from biscuit's x86
// four-level hardware format to the spec's MIPS-shaped two-level software
// format, and from "spinlock re-acquire plus double check" (which requires
// the caller to cooperate by holding the address space's spinlock) to a
// self-contained lock-free install using atomic.Pointer's CompareAndSwap —
// the same "allocate without holding the lock, then discard a lost race"
// behavior spec.md §4.3 asks for, without requiring pagetable to take a
// dependency on package synch's Thread-threading convention for what is a
// purely internal allocation detail.
package pagetable

import (
	"sync/atomic"

	"coreos/defs"
	"coreos/tlb"
)

// PTEState is one of the four page-table-entry states (spec.md §3).
type PTEState int

const (
	UNALLOC PTEState = iota
	ZERO
	RAM
	SWAP
)

// PTE is one page-table entry. Exactly one of PFN/SwapSlot is meaningful
// depending on State; UNALLOC forces zero-fill on first touch (spec.md §3).
// Mutation is serialized by the owning PageTable's striped lock pool (see
// stripedlocks.go), not by a lock embedded in the PTE itself — spec.md's
// design notes §9 explicitly sanction this as a memory-saving substitute
// for "a naive per-entry lock object", provided no two writers to the same
// PTE ever run concurrently, which the striping preserves.
type PTE struct {
	State      PTEState
	PFN        int
	SwapSlot   int
	Dirty      bool
	Readonly   bool
	Referenced bool
}

type l2table [defs.L2ENTRIES]PTE

// PageTable is one address space's two-level map. Each address space owns
// exactly one simulated TLB (SPEC_FULL.md §3's "Simulated TLB"), so it is
// carried here rather than in a separate structure the caller has to keep
// in step with the table by hand.
type PageTable struct {
	id  int64
	l1  [defs.L1ENTRIES]atomic.Pointer[l2table]
	TLB tlb.TLB
}

var nextID int64

// New returns an empty page table (both levels allocated lazily).
func New() *PageTable {
	id := atomic.AddInt64(&nextID, 1)
	return &PageTable{id: id}
}

// ID is a stable identifier for this page table, used to index the striped
// lock pool and by the coremap to record frame ownership.
func (pt *PageTable) ID() int64 { return pt.id }

// GetPTE returns a pointer to the PTE for vpn. With create=false it returns
// nil if either level is absent. With create=true it lazily allocates the
// L2 array on first touch for that L1 index; the "once installed, a
// level-2 pointer is never rewritten" invariant (spec.md §3) is preserved by
// CompareAndSwap: a goroutine that loses the race discards its allocation
// and uses the winner's.
func (pt *PageTable) GetPTE(vpn uint32, create bool) *PTE {
	i1 := defs.L1Index(vpn)
	l2 := pt.l1[i1].Load()
	if l2 == nil {
		if !create {
			return nil
		}
		fresh := &l2table{}
		if !pt.l1[i1].CompareAndSwap(nil, fresh) {
			l2 = pt.l1[i1].Load() // another goroutine won the race
		} else {
			l2 = fresh
		}
	}
	return &l2[defs.L2Index(vpn)]
}

// Walk calls f for every VPN with a present (non-UNALLOC) PTE, in ascending
// VPN order. Used by address-space fork and destroy to enumerate
// mapped pages without the caller needing to know the table's shape.
func (pt *PageTable) Walk(f func(vpn uint32, pte *PTE)) {
	for i1 := 0; i1 < defs.L1ENTRIES; i1++ {
		l2 := pt.l1[i1].Load()
		if l2 == nil {
			continue
		}
		for i2 := 0; i2 < defs.L2ENTRIES; i2++ {
			pte := &l2[i2]
			if pte.State != UNALLOC {
				vpn := uint32(i1)<<defs.L2BITS | uint32(i2)
				f(vpn, pte)
			}
		}
	}
}
