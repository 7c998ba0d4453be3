package vfs

import (
	"sync"

	"coreos/defs"
	"coreos/synch"
)

// RawDisk is the raw block device backing swap (spec.md §4.4's "opens the
// raw swap block device"). It satisfies both vfs.Vnode (so it can be
// opened and read/written like any other file, e.g. for diagnostics) and
// package swap's Device interface (ReadPage/WritePage) without needing an
// adapter type, since Go interface satisfaction is structural. The two
// interfaces are guarded separately: Vnode methods thread a *synch.Thread
// through the kernel's sleep-lock discipline like every other vnode; the
// page-granular Device methods are called by package swap's Out/In, which
// have no thread handle to offer, so they take a plain sync.Mutex instead.
type RawDisk struct {
	lk    synch.SleepLock
	devMu sync.Mutex
	arena []byte
}

// NewRawDisk allocates an in-memory raw disk of nslots pages.
func NewRawDisk(nslots int) *RawDisk {
	return &RawDisk{arena: make([]byte, nslots*defs.PGSIZE)}
}

func (d *RawDisk) NumSlots() int { return len(d.arena) / defs.PGSIZE }

// ReadPage and WritePage satisfy package swap's Device interface.
func (d *RawDisk) ReadPage(slot int, buf []byte) error {
	d.devMu.Lock()
	defer d.devMu.Unlock()
	copy(buf, d.arena[slot*defs.PGSIZE:(slot+1)*defs.PGSIZE])
	return nil
}

func (d *RawDisk) WritePage(slot int, buf []byte) error {
	d.devMu.Lock()
	defer d.devMu.Unlock()
	copy(d.arena[slot*defs.PGSIZE:(slot+1)*defs.PGSIZE], buf)
	return nil
}

func (d *RawDisk) ReadAt(t *synch.Thread, off int64, buf []byte) (int, defs.Err_t) {
	d.lk.Acquire(t)
	defer d.lk.Release(t)
	if off >= int64(len(d.arena)) {
		return 0, 0
	}
	n := copy(buf, d.arena[off:])
	return n, 0
}

func (d *RawDisk) WriteAt(t *synch.Thread, off int64, buf []byte) (int, defs.Err_t) {
	d.lk.Acquire(t)
	defer d.lk.Release(t)
	if off+int64(len(buf)) > int64(len(d.arena)) {
		return 0, defs.EINVAL
	}
	n := copy(d.arena[off:], buf)
	return n, 0
}

func (d *RawDisk) Size(t *synch.Thread) int64 { return int64(len(d.arena)) }
func (d *RawDisk) Seekable() bool             { return true }
func (d *RawDisk) Close(t *synch.Thread) defs.Err_t { return 0 }
