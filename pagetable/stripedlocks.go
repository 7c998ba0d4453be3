package pagetable

import (
	"hash/fnv"

	"coreos/synch"
)

// lockStripes is the size of the striped PTE lock pool (spec.md design
// notes §9's "pool of striped locks indexed by (as_id, vpn) mod K").
const lockStripes = 256

// stripedLocks adapts the teacher's hashtable.go bucket array — a
// fixed-size slice of independently lockable buckets, each addressed by a
// hash of the key — to this spec's narrower need: not a general key/value
// store, just one lock per stripe. The generic interface{} keys, value
// chaining, and lock-free Get of the original have no counterpart here
// since a stripe never holds more than its own lock.
type stripedLocks struct {
	stripes [lockStripes]synch.SleepLock
}

// stripeIndex hashes (asID, vpn) the same way the teacher's keyed hash combines
// fields before reducing mod table size, via hash/fnv rather than the
// teacher's ad hoc XOR-fold (fnv is already the standard way every example
// in the pack that hashes composite keys reaches for).
func stripeIndex(asID int64, vpn uint32) int {
	h := fnv.New32a()
	var buf [12]byte
	buf[0] = byte(asID)
	buf[1] = byte(asID >> 8)
	buf[2] = byte(asID >> 16)
	buf[3] = byte(asID >> 24)
	buf[4] = byte(asID >> 32)
	buf[5] = byte(asID >> 40)
	buf[6] = byte(asID >> 48)
	buf[7] = byte(asID >> 56)
	buf[8] = byte(vpn)
	buf[9] = byte(vpn >> 8)
	buf[10] = byte(vpn >> 16)
	buf[11] = byte(vpn >> 24)
	h.Write(buf[:])
	return int(h.Sum32() % lockStripes)
}

var global stripedLocks

// LockPTE acquires the stripe guarding (pt, vpn)'s PTE. Two different
// (pt, vpn) pairs that happen to hash to the same stripe serialize against
// each other too; this is the accepted cost of striping (spec.md design
// notes §9).
func LockPTE(t *synch.Thread, pt *PageTable, vpn uint32) {
	global.stripes[stripeIndex(pt.id, vpn)].Acquire(t)
}

// UnlockPTE releases the stripe guarding (pt, vpn)'s PTE.
func UnlockPTE(t *synch.Thread, pt *PageTable, vpn uint32) {
	global.stripes[stripeIndex(pt.id, vpn)].Release(t)
}
