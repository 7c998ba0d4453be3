// Package tlb implements the simulated software-managed TLB described in
// SPEC_FULL.md §3's "Simulated TLB" expansion: a small fixed array of
// (vpn, pfn, valid, dirty) entries, refilled by the fault handler rather
// than hardware, matching the MIPS-style machine original_source's
// kern/arch/mips/vm.c assumes. One TLB belongs to exactly one address
// space (spec.md's explicit non-goal of multi-CPU shootdown means there is
// no broadcast/IPI machinery here).
package tlb

import "math/rand"

// NTLBENTRIES mirrors the handful of entries a real software-refilled TLB
// carries (MIPS parts typically ship 32-64); a linear Probe over this many
// entries is faithful to the hardware, not a shortcut.
const NTLBENTRIES = 64

type entry struct {
	valid bool
	vpn   uint32
	pfn   int
	dirty bool
}

// TLB is one address space's simulated translation cache.
type TLB struct {
	entries [NTLBENTRIES]entry
}

// Probe looks up vpn. It returns the mapped pfn, whether the entry is
// dirty, and whether it was found at all.
func (tb *TLB) Probe(vpn uint32) (pfn int, dirty bool, ok bool) {
	for i := range tb.entries {
		if tb.entries[i].valid && tb.entries[i].vpn == vpn {
			return tb.entries[i].pfn, tb.entries[i].dirty, true
		}
	}
	return 0, false, false
}

// Write installs (vpn, pfn) into a free slot if one exists, or else into a
// slot chosen by Random, mirroring the MIPS c0_random register contract
// (original_source's vm.h/vm.c): software picks a victim entry, hardware
// does not compel any particular replacement policy.
func (tb *TLB) Write(vpn uint32, pfn int) {
	for i := range tb.entries {
		if !tb.entries[i].valid {
			tb.entries[i] = entry{valid: true, vpn: vpn, pfn: pfn}
			return
		}
	}
	victim := rand.Intn(NTLBENTRIES)
	tb.entries[victim] = entry{valid: true, vpn: vpn, pfn: pfn}
}

// InvalidateVPN clears any entry mapping vpn, used by swap-out,
// sbrk-shrink, and eviction to keep the TLB from serving a stale
// translation.
func (tb *TLB) InvalidateVPN(vpn uint32) {
	for i := range tb.entries {
		if tb.entries[i].valid && tb.entries[i].vpn == vpn {
			tb.entries[i] = entry{}
			return
		}
	}
}

// InvalidateAll clears every entry; as.AddrSpace.Activate uses it to flush
// the TLB.
func (tb *TLB) InvalidateAll() {
	for i := range tb.entries {
		tb.entries[i] = entry{}
	}
}

// MarkDirty sets the dirty bit on the entry for vpn, if present.
func (tb *TLB) MarkDirty(vpn uint32) {
	for i := range tb.entries {
		if tb.entries[i].valid && tb.entries[i].vpn == vpn {
			tb.entries[i].dirty = true
			return
		}
	}
}
