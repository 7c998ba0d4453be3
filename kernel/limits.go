package kernel

// Limits holds the system-wide resource bounds Boot is configured with
// (SPEC_FULL.md §9). MaxSwapSlots sizes the swap disk, MaxOpenFiles sizes
// each process's descriptor table, and MaxProcs is reported in the boot
// log line; the number of processes is not capped by it. Adapted from the
// teacher's Syslimit_t down to these three fields: every other field on the
// teacher's struct (Vnodes, Futexes, Arpents, Routes, Tcpsegs, Socks,
// Pipes, Mfspgs, Blocks) governs subsystems — networking, futexes, a real
// on-disk filesystem — this module never builds.
type Limits struct {
	MaxProcs     int
	MaxSwapSlots int
	MaxOpenFiles int
}

// DefaultLimits mirrors the teacher's MkSysLimit: a fixed, generous
// default rather than anything read from a config file, since this
// module has no configuration format of its own.
func DefaultLimits() Limits {
	return Limits{
		MaxProcs:     1024,
		MaxSwapSlots: 4096,
		MaxOpenFiles: 128,
	}
}
