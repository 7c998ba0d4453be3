// Package swap implements the swap slot allocator and page-out/page-in
// transfers described in spec.md §4.4, grounded on biscuit/src/mem/mem.go's
// bitmap-protected allocator shape for swap_alloc/swap_free and on
// original_source/kern/vm/vm.c for the synchronous swap_out/swap_in
// transfer semantics.
package swap

import (
	"coreos/defs"
	"coreos/synch"
)

// Device is the raw block store swap transfers against: one page per slot.
// A vfs raw-disk vnode satisfies this interface in the full system; tests
// use MemDevice. Keeping this as a narrow interface (rather than importing
// package vfs directly) avoids tying the swap allocator to any particular
// backing store, the same "accept an interface" shape biscuit's fd package
// uses for fdops.Fdops_i.
type Device interface {
	ReadPage(slot int, buf []byte) error
	WritePage(slot int, buf []byte) error
	NumSlots() int
}

// MemDevice is an in-memory Device, standing in for the raw swap partition
// a real kernel would open (spec.md §4.4's "opens the raw swap block
// device"); there is no real disk under this module.
type MemDevice struct {
	arena []byte
}

// NewMemDevice allocates an in-memory block device of nslots pages.
func NewMemDevice(nslots int) *MemDevice {
	return &MemDevice{arena: make([]byte, nslots*defs.PGSIZE)}
}

func (d *MemDevice) NumSlots() int { return len(d.arena) / defs.PGSIZE }

func (d *MemDevice) ReadPage(slot int, buf []byte) error {
	copy(buf, d.arena[slot*defs.PGSIZE:(slot+1)*defs.PGSIZE])
	return nil
}

func (d *MemDevice) WritePage(slot int, buf []byte) error {
	copy(d.arena[slot*defs.PGSIZE:(slot+1)*defs.PGSIZE], buf)
	return nil
}

// Swap is the swap-slot allocator: a bitmap of free/used slots guarded by
// one spinlock (spec.md §4.4).
type Swap struct {
	spin   synch.Spinlock
	dev    Device
	used   []bool
	nslots int
}

// Init opens dev, reads its size, and creates the slot bitmap (spec.md
// §4.4's "Swap init").
func Init(dev Device) *Swap {
	n := dev.NumSlots()
	return &Swap{dev: dev, used: make([]bool, n), nslots: n}
}

// Alloc marks one free slot used and returns its index. ok is false when
// swap is exhausted.
func (s *Swap) Alloc(t *synch.Thread) (slot int, ok bool) {
	s.spin.Acquire(t)
	defer s.spin.Release(t)
	for i, u := range s.used {
		if !u {
			s.used[i] = true
			return i, true
		}
	}
	return 0, false
}

// Free unmarks slot.
func (s *Swap) Free(t *synch.Thread, slot int) {
	s.spin.Acquire(t)
	defer s.spin.Release(t)
	if !s.used[slot] {
		panic("swap: double free of swap slot")
	}
	s.used[slot] = false
}

// Out writes page into slot (spec.md §4.4's swap_out).
func (s *Swap) Out(slot int, page []byte) error {
	return s.dev.WritePage(slot, page)
}

// In reads slot into page (spec.md §4.4's swap_in).
func (s *Swap) In(slot int, page []byte) error {
	return s.dev.ReadPage(slot, page)
}

// UsedSlots reports the count of currently allocated slots, for the
// universal coremap/swap accounting invariant (spec.md §8).
func (s *Swap) UsedSlots(t *synch.Thread) int {
	s.spin.Acquire(t)
	defer s.spin.Release(t)
	n := 0
	for _, u := range s.used {
		if u {
			n++
		}
	}
	return n
}
