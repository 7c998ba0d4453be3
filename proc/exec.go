package proc

import (
	"coreos/as"
	"coreos/defs"
	"coreos/synch"
	"coreos/util"
	"coreos/vfs"
	"coreos/vmfault"
)

// ExecBase is the fixed virtual base a loaded program's text starts at, the
// role original_source's ELF loader fills by reading program-header
// vaddrs. ArgMax bounds the combined argv payload (spec.md §4.7's "bounded
// by ARG_MAX").
const (
	ExecBase uintptr = 0x00400000
	ArgMax   int     = 64 * 1024
)

// Loader loads a program image into a freshly created address space and
// returns its entry point. It stands in for the ELF loader spec.md §1
// places out of scope ("the ELF loader" external collaborator): rather
// than parsing ELF section headers, this module's default FlatLoader
// treats the executable vnode's bytes as one flat, executable text image.
type Loader interface {
	Load(t *synch.Thread, h *vmfault.Handler, a *as.AddrSpace, vn vfs.Vnode) (entry uintptr, err defs.Err_t)
}

// FlatLoader is the default Loader: the whole file becomes one
// readable+writeable+executable region at ExecBase (spec.md's
// prepare_load/complete_load are still exercised, since real loaders also
// temporarily widen permissions while writing segment contents).
type FlatLoader struct{}

func (FlatLoader) Load(t *synch.Thread, h *vmfault.Handler, a *as.AddrSpace, vn vfs.Vnode) (uintptr, defs.Err_t) {
	size := vn.Size(t)
	if size <= 0 {
		return 0, defs.EFAULT
	}
	pages := (uintptr(size) + uintptr(defs.PGOFFSET)) &^ uintptr(defs.PGOFFSET)
	if err := a.DefineRegion(t, ExecBase, pages, true, true, true); err != 0 {
		return 0, err
	}

	a.PrepareLoad(t)
	buf := make([]byte, size)
	if _, err := vn.ReadAt(t, 0, buf); err != 0 {
		return 0, err
	}
	if _, err := h.CopyOut(t, a, ExecBase, buf); err != 0 {
		return 0, err
	}
	a.CompleteLoad(t)
	a.InitHeap(t, ExecBase+pages)

	return ExecBase, 0
}

// layoutArgv copies argv's strings onto the top of the user stack and
// builds a NULL-terminated, word-aligned argv pointer array just above
// them (spec.md §4.7's "lays out argument strings and an argv array on the
// user stack"). It returns the argv array's address, which is also the new
// stack pointer.
func layoutArgv(t *synch.Thread, h *vmfault.Handler, a *as.AddrSpace, sp uintptr, argv []string) (argvPtr uintptr, err defs.Err_t) {
	const wordSize = 8

	strPtrs := make([]uintptr, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		s := argv[i]
		n := uintptr(len(s) + 1) // NUL terminator
		sp -= n
		sp &^= uintptr(wordSize - 1) // keep each string's start word-aligned
		buf := append([]byte(s), 0)
		if _, werr := h.CopyOut(t, a, sp, buf); werr != 0 {
			return 0, werr
		}
		strPtrs[i] = sp
	}

	// argv array: len(argv) pointers plus one NULL terminator.
	arrBytes := uintptr(len(argv)+1) * wordSize
	sp -= arrBytes
	sp &^= uintptr(wordSize - 1)
	argvPtr = sp

	for i, p := range strPtrs {
		var word [wordSize]byte
		util.Writen(word[:], wordSize, 0, int(p))
		if _, werr := h.CopyOut(t, a, sp+uintptr(i)*wordSize, word[:]); werr != 0 {
			return 0, werr
		}
	}
	// NULL terminator word is already zero in a freshly faulted-in ZERO page.

	return argvPtr, 0
}

// Exec implements spec.md §4.7's exec: resolves path through ns, tears
// down the current address space, builds a new one via ldr, defines the
// stack, and lays out argv. On success it returns the new entry point and
// stack pointer for the caller (package dispatch) to install into the
// trap frame in place of returning normally ("must not return on
// success"); on failure before that point the old address space is left
// untouched and an error is returned.
func (p *Process) Exec(t *synch.Thread, path string, argv []string, ns *vfs.Namespace, h *vmfault.Handler, ldr Loader) (entry, sp uintptr, err defs.Err_t) {
	if len(argv) == 0 {
		return 0, 0, defs.EINVAL
	}
	total := 0
	for _, s := range argv {
		total += len(s) + 1
	}
	if total > ArgMax {
		return 0, 0, defs.E2BIG
	}

	vn, ok := ns.Lookup(path)
	if !ok {
		return 0, 0, defs.ESRCH
	}

	newAS := as.Create(p.addrspace.Coremap(), p.addrspace.SwapAllocator())
	entry, err = ldr.Load(t, h, newAS, vn)
	if err != 0 {
		newAS.Destroy(t)
		return 0, 0, err
	}

	sp, err = newAS.DefineStack(t)
	if err != 0 {
		newAS.Destroy(t)
		return 0, 0, err
	}

	sp, err = layoutArgv(t, h, newAS, sp, argv)
	if err != 0 {
		newAS.Destroy(t)
		return 0, 0, err
	}

	oldAS := p.addrspace
	p.spin.Acquire(t)
	p.addrspace = newAS
	p.EntryPoint = entry
	p.StackPtr = sp
	p.spin.Release(t)

	newAS.Activate()
	oldAS.Destroy(t)

	return entry, sp, 0
}
