// Package vfs stands in for the on-disk filesystem layer spec.md places
// out of scope: just enough vnode surface (console, an in-memory regular
// file, and the raw block device backing swap) for the FD table and the
// syscall dispatcher to have something real to operate on. Grounded on
// biscuit/src/circbuf/circbuf.go for the console's ring-buffer shape and
// on package fd's Fdops_i (fdops package, referenced but not retrieved in
// full) for the general notion of a vnode-like operations surface.
package vfs

import "coreos/defs"
import "coreos/synch"

// Vnode is the operations surface a file handle (package fd) calls
// through. Unlike a real filesystem vnode, offset is not part of this
// interface: spec.md §4.8 makes the file handle, not the vnode, the owner
// of the current offset, so every transfer takes an explicit position.
type Vnode interface {
	ReadAt(t *synch.Thread, off int64, buf []byte) (int, defs.Err_t)
	WriteAt(t *synch.Thread, off int64, buf []byte) (int, defs.Err_t)
	Size(t *synch.Thread) int64
	Seekable() bool
	Close(t *synch.Thread) defs.Err_t
}
