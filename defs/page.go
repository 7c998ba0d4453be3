package defs

// Page geometry for the simulated MIPS-like machine: a 4KB page, a 20-bit
// virtual page number split into two 10-bit page-table indices (spec.md
// §4.3's "two-level, each level indexed by 10 bits of the 20-bit VPN").
const (
	PGSHIFT  uint = 12
	PGSIZE   int  = 1 << PGSHIFT
	PGOFFSET int  = PGSIZE - 1

	L1BITS  uint = 10
	L2BITS  uint = 10
	VPNBITS uint = L1BITS + L2BITS // 20

	L1ENTRIES = 1 << L1BITS // 1024
	L2ENTRIES = 1 << L2BITS // 1024

	// NVPN is the number of addressable virtual pages (2^20).
	NVPN = 1 << VPNBITS
)

// VPN extracts the virtual page number from a virtual address.
func VPN(va uintptr) uint32 {
	return uint32((va >> PGSHIFT) & (NVPN - 1))
}

// L1Index and L2Index split a VPN into its two page-table indices.
func L1Index(vpn uint32) int { return int(vpn >> L2BITS) }
func L2Index(vpn uint32) int { return int(vpn & (L2ENTRIES - 1)) }

// PageAddr reconstructs the page-aligned base address of a VPN.
func PageAddr(vpn uint32) uintptr {
	return uintptr(vpn) << PGSHIFT
}
