// Package fd implements the file-handle and descriptor-table model
// described in spec.md §3/§4.8: a shared, reference-counted open-file
// object (Handle) and the per-process fixed-size slot array (Table) that
// points descriptors at handles. Grounded on
// biscuit/src/fd/fd.go's Fd_t/Copyfd for the permission-bits/reopen idiom,
// expanded with the Handle/Table split spec.md requires (a handle can be
// shared by more than one descriptor, across processes, which the
// teacher's trimmed Fd_t does not itself model) per
// original_source/kern/proc/files.c's filetable semantics.
package fd

import (
	"sync/atomic"

	"coreos/defs"
	"coreos/synch"
	"coreos/vfs"
)

// Open-mode flags, carried on the handle (spec.md §4.8's "open flags").
const (
	O_RDONLY = 0x0
	O_WRONLY = 0x1
	O_RDWR   = 0x2
	O_CREAT  = 0x4
)

// Seek origins for Handle.Lseek (spec.md §4.8's lseek contract).
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Handle is the shared open-file object spec.md §3 describes: a vnode
// reference, a byte offset, open flags, a reference count, and a sleep
// lock that also serializes offset mutations for read/write/seek. refcount
// reaches 0 exactly once, at which point the vnode is closed.
type Handle struct {
	lk     synch.SleepLock
	vn     vfs.Vnode
	offset int64
	flags  int
	refs   int32
}

// NewHandle returns a handle over vn with one reference held, the state a
// freshly opened file starts in.
func NewHandle(vn vfs.Vnode, flags int) *Handle {
	return &Handle{vn: vn, flags: flags, refs: 1}
}

// Acquire bumps the reference count (spec.md §4.8's "acquire bumps
// refcount under its lock"). The increment itself needs no lock: refs is a
// plain atomic counter, not the offset state the sleep lock guards.
func (h *Handle) Acquire() {
	atomic.AddInt32(&h.refs, 1)
}

// Release decrements the reference count and, on the transition to zero,
// closes the underlying vnode (spec.md §3's "refcount reaches 0 exactly
// once, triggering vnode close and destruction").
func (h *Handle) Release(t *synch.Thread) {
	if atomic.AddInt32(&h.refs, -1) == 0 {
		h.vn.Close(t)
	}
}

// Refs reports the current reference count, used by the universal
// invariant in spec.md §8 ("for every file handle with refcount R, exactly
// R descriptor slots ... reference it").
func (h *Handle) Refs() int32 {
	return atomic.LoadInt32(&h.refs)
}

func (h *Handle) writable() bool { return h.flags == O_WRONLY || h.flags == O_RDWR }
func (h *Handle) readable() bool { return h.flags == O_RDONLY || h.flags == O_RDWR }

// Read rejects descriptors opened write-only, computes the effective
// offset under the handle lock, releases it for the (possibly blocking)
// VFS transfer, then reacquires to commit the offset taken from the
// transfer's result (spec.md §4.8's read/write contract). Partial
// transfers are permitted.
func (h *Handle) Read(t *synch.Thread, buf []byte) (int, defs.Err_t) {
	if !h.readable() {
		return 0, defs.EACCES
	}
	h.lk.Acquire(t)
	off := h.offset
	h.lk.Release(t)

	n, err := h.vn.ReadAt(t, off, buf)
	if err != 0 {
		return 0, err
	}

	h.lk.Acquire(t)
	h.offset = off + int64(n)
	h.lk.Release(t)
	return n, 0
}

// Write rejects descriptors opened read-only and otherwise mirrors Read's
// offset-commit protocol.
func (h *Handle) Write(t *synch.Thread, buf []byte) (int, defs.Err_t) {
	if !h.writable() {
		return 0, defs.EACCES
	}
	h.lk.Acquire(t)
	off := h.offset
	h.lk.Release(t)

	n, err := h.vn.WriteAt(t, off, buf)
	if err != 0 {
		return 0, err
	}

	h.lk.Acquire(t)
	h.offset = off + int64(n)
	h.lk.Release(t)
	return n, 0
}

// Lseek implements SET/CUR/END (spec.md §4.8). Non-seekable vnodes (the
// console) report ESPIPE; a negative result is EINVAL.
func (h *Handle) Lseek(t *synch.Thread, offset int64, whence int) (int64, defs.Err_t) {
	if !h.vn.Seekable() {
		return 0, defs.ESPIPE
	}
	h.lk.Acquire(t)
	defer h.lk.Release(t)

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = h.offset
	case SeekEnd:
		base = h.vn.Size(t)
	default:
		return 0, defs.EINVAL
	}
	n := base + offset
	if n < 0 {
		return 0, defs.EINVAL
	}
	h.offset = n
	return n, 0
}
