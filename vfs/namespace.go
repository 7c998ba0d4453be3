package vfs

import (
	"sync"

	"coreos/defs"
)

// Namespace is a flat path-to-vnode registry standing in for the real VFS
// mount/lookup table spec.md §1 places out of scope; it gives the
// open/chdir/remove syscalls (§4.9) something concrete to resolve a path
// against. "con:" and the raw swap device path are registered here at boot.
type Namespace struct {
	mu    sync.Mutex
	table map[string]Vnode
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{table: make(map[string]Vnode)}
}

// Register binds path to vn, overwriting any previous binding.
func (ns *Namespace) Register(path string, vn Vnode) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.table[path] = vn
}

// Lookup resolves path to its bound vnode, if any.
func (ns *Namespace) Lookup(path string) (Vnode, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	vn, ok := ns.table[path]
	return vn, ok
}

// Create registers and returns a fresh in-memory file at path, used by
// open's O_CREAT flag when path has no existing binding.
func (ns *Namespace) Create(path string) Vnode {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	vn := NewMemFile()
	ns.table[path] = vn
	return vn
}

// Remove unbinds path. It fails ESRCH if path has no binding (spec.md §6's
// "remove" syscall).
func (ns *Namespace) Remove(path string) defs.Err_t {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.table[path]; !ok {
		return defs.ESRCH
	}
	delete(ns.table, path)
	return 0
}
