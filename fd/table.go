package fd

import (
	"coreos/defs"
	"coreos/synch"
	"coreos/vfs"
)

// slot is one descriptor-table entry: a handle plus per-descriptor flags
// (spec.md §3's "(handle, per-descriptor-flags) slots"). FD_CLOEXEC is the
// only per-descriptor flag defined; nothing in this module sets or reads
// it (package proc's exec rebuilds the address space, not the fd table).
// Fork copies each slot's flags into the child's table; Dup2 installs the
// handle at newfd with its flags cleared.
const FD_CLOEXEC = 0x1

type slot struct {
	h     *Handle
	flags int
}

// Table is the per-process fixed-size descriptor array guarded by one
// sleep lock (spec.md §3/§4.8).
type Table struct {
	lk    synch.SleepLock
	slots []slot
}

// NewTable returns an empty table of n descriptor slots.
func NewTable(n int) *Table {
	return &Table{slots: make([]slot, n)}
}

// NewConsoleTable returns a table of n slots with fds 0/1/2 bound to three
// handles over con, opened read-only, write-only, and write-only
// respectively (spec.md §4.8's "first three slots are bound to three
// console open file handles").
func NewConsoleTable(con vfs.Vnode, n int) *Table {
	tbl := NewTable(n)
	tbl.slots[0] = slot{h: NewHandle(con, O_RDONLY)}
	tbl.slots[1] = slot{h: NewHandle(con, O_WRONLY)}
	tbl.slots[2] = slot{h: NewHandle(con, O_WRONLY)}
	return tbl
}

// Alloc performs a linear scan for a free slot and installs h there,
// failing EMFILE if the table is full (spec.md §4.8).
func (tbl *Table) Alloc(t *synch.Thread, h *Handle) (int, defs.Err_t) {
	tbl.lk.Acquire(t)
	defer tbl.lk.Release(t)
	for i := range tbl.slots {
		if tbl.slots[i].h == nil {
			tbl.slots[i] = slot{h: h}
			return i, 0
		}
	}
	return 0, defs.EMFILE
}

// Free removes the handle installed at fd and releases one reference
// outside the table lock (spec.md §4.8).
func (tbl *Table) Free(t *synch.Thread, fdno int) defs.Err_t {
	tbl.lk.Acquire(t)
	if fdno < 0 || fdno >= len(tbl.slots) || tbl.slots[fdno].h == nil {
		tbl.lk.Release(t)
		return defs.EBADF
	}
	h := tbl.slots[fdno].h
	tbl.slots[fdno] = slot{}
	tbl.lk.Release(t)

	h.Release(t)
	return 0
}

// Get bumps the handle's refcount and returns it so the caller can operate
// without holding the table lock; the caller must Release it after use
// (spec.md §4.8).
func (tbl *Table) Get(t *synch.Thread, fdno int) (*Handle, defs.Err_t) {
	tbl.lk.Acquire(t)
	defer tbl.lk.Release(t)
	if fdno < 0 || fdno >= len(tbl.slots) || tbl.slots[fdno].h == nil {
		return nil, defs.EBADF
	}
	h := tbl.slots[fdno].h
	h.Acquire()
	return h, 0
}

// Dup2 installs oldfd's handle at newfd, bumping its refcount and
// releasing (outside the lock) whatever handle newfd previously held.
// oldfd == newfd is a no-op validity check (spec.md §4.8).
func (tbl *Table) Dup2(t *synch.Thread, oldfd, newfd int) (int, defs.Err_t) {
	tbl.lk.Acquire(t)
	if oldfd < 0 || oldfd >= len(tbl.slots) || tbl.slots[oldfd].h == nil {
		tbl.lk.Release(t)
		return 0, defs.EBADF
	}
	if newfd < 0 || newfd >= len(tbl.slots) {
		tbl.lk.Release(t)
		return 0, defs.EBADF
	}
	if oldfd == newfd {
		tbl.lk.Release(t)
		return newfd, 0
	}

	oh := tbl.slots[oldfd].h
	oh.Acquire()
	evicted := tbl.slots[newfd].h
	tbl.slots[newfd] = slot{h: oh}
	tbl.lk.Release(t)

	if evicted != nil {
		evicted.Release(t)
	}
	return newfd, 0
}

// Fork deep-clones the table for a child process, bumping each installed
// handle's refcount (spec.md §4.7's "clones the FD table bumping each open
// file refcount").
func (tbl *Table) Fork(t *synch.Thread) *Table {
	tbl.lk.Acquire(t)
	defer tbl.lk.Release(t)
	nt := &Table{slots: make([]slot, len(tbl.slots))}
	for i := range tbl.slots {
		if tbl.slots[i].h != nil {
			tbl.slots[i].h.Acquire()
			nt.slots[i] = tbl.slots[i]
		}
	}
	return nt
}

// CloseAll atomically extracts every handle from the table, then releases
// them outside the table lock (spec.md §4.8).
func (tbl *Table) CloseAll(t *synch.Thread) {
	tbl.lk.Acquire(t)
	handles := make([]*Handle, 0, len(tbl.slots))
	for i := range tbl.slots {
		if tbl.slots[i].h != nil {
			handles = append(handles, tbl.slots[i].h)
			tbl.slots[i] = slot{}
		}
	}
	tbl.lk.Release(t)

	for _, h := range handles {
		h.Release(t)
	}
}
