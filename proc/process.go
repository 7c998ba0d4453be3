package proc

import (
	"coreos/as"
	"coreos/defs"
	"coreos/fd"
	"coreos/mem"
	"coreos/swap"
	"coreos/synch"
	"coreos/vfs"
)

// Process is the process structure described in spec.md §3: name, PID,
// exit status, parent/child links, address space, cwd, fd table, and the
// CV/lock pair waiters block on. Struct shape and field grouping are
// grounded on original_source/kern/include/proc.h's struct proc, since the
// teacher's own process model is x86/COW-specific and was not retrieved in
// full; per-process accounting is carried over nearly as-is from
// biscuit/src/accnt/accnt.go's Accnt_t (see accnt.go).
type Process struct {
	Name string
	PID  defs.Pid_t

	spin synch.Spinlock // short internal mutations: parent/children, cwd

	waitLk synch.SleepLock
	waitCV synch.CV

	hasExited  bool
	exitStatus int32

	parent   *Process
	children []defs.Pid_t

	addrspace *as.AddrSpace
	cwd       vfs.Vnode
	cwdPath   string
	fds       *fd.Table

	Acct Accnt

	thread *synch.Thread

	EntryPoint uintptr
	StackPtr   uintptr
}

// AddrSpace exposes the process's address space to package vmfault/dispatch.
func (p *Process) AddrSpace() *as.AddrSpace { return p.addrspace }

// FDs exposes the process's descriptor table.
func (p *Process) FDs() *fd.Table { return p.fds }

// Thread returns the kernel-thread handle (one goroutine per process,
// spec.md §5) this process runs on.
func (p *Process) Thread() *synch.Thread { return p.thread }

// Getpid returns the caller's PID (syscall #5, spec.md §6).
func (p *Process) Getpid() defs.Pid_t { return p.PID }

// Parent returns the process's parent, or nil for the kernel process.
func (p *Process) Parent() *Process { return p.parent }

// ProcCreate allocates a fresh process (spec.md §4.7's proc_create): its
// PID comes from the global table, it gets an empty address space and a
// console-backed descriptor table, and it is registered in pt before
// return. Used both for the kernel process (which Boot then re-registers
// under PID 0) and the first user process (the runprogram
// equivalent, via System.SpawnInit).
func ProcCreate(t *synch.Thread, pt *PIDTable, cm *mem.Coremap, sw *swap.Swap, name string, con vfs.Vnode, numFDs int) (*Process, defs.Err_t) {
	pid, ok := pt.AllocPID(t)
	if !ok {
		return nil, defs.ENPROC
	}
	p := &Process{
		Name:      name,
		PID:       pid,
		addrspace: as.Create(cm, sw),
		cwd:       con,
		cwdPath:   "/",
		fds:       fd.NewConsoleTable(con, numFDs),
		thread:    t,
	}
	pt.Insert(t, p)
	return p, 0
}

// Fork implements spec.md §4.7's fork: deep-copies the address space,
// clones the cwd reference, clones the FD table (bumping refcounts),
// records parent/child linkage, and allocates the child a PID and thread.
// It does not itself start the child's thread running in user mode — the
// caller (package dispatch, or a test) does that with the returned
// Process and its Thread().
func (p *Process) Fork(t *synch.Thread, pt *PIDTable) (*Process, defs.Err_t) {
	childAS, err := p.addrspace.Copy(t)
	if err != 0 {
		return nil, err
	}

	pid, ok := pt.AllocPID(t)
	if !ok {
		childAS.Destroy(t)
		return nil, defs.ENPROC
	}

	p.spin.Acquire(t)
	cwd, cwdPath := p.cwd, p.cwdPath
	p.spin.Release(t)

	child := &Process{
		Name:      p.Name,
		PID:       pid,
		parent:    p,
		addrspace: childAS,
		cwd:       cwd,
		cwdPath:   cwdPath,
		fds:       p.fds.Fork(t),
		thread:    synch.NewThread(),
	}
	pt.Insert(t, child)

	p.spin.Acquire(t)
	p.children = append(p.children, pid)
	p.spin.Release(t)

	return child, 0
}

// Exit implements spec.md §4.7's exit: closes every descriptor, destroys
// the address space, records the exit status, sets has_exited, and
// broadcasts the CV waitpid blocks on. The process record itself survives
// as a zombie until a parent's Waitpid reaps it.
func (p *Process) Exit(t *synch.Thread, code int) {
	p.fds.CloseAll(t)
	p.addrspace.Destroy(t)

	p.waitLk.Acquire(t)
	p.hasExited = true
	p.exitStatus = EncodeExit(code)
	p.waitCV.Broadcast(t, &p.waitLk)
	p.waitLk.Release(t)
}

// Waitpid implements spec.md §4.7's waitpid. options other than zero is
// EINVAL; an unknown pid is ESRCH; a pid that is not one of the caller's
// children is ECHILD. It blocks on the child's CV until has_exited, then
// destroys the child's process record (reaping it) and returns its PID and
// encoded status.
func (p *Process) Waitpid(t *synch.Thread, pt *PIDTable, pid defs.Pid_t, options int) (defs.Pid_t, int32, defs.Err_t) {
	if options != 0 {
		return 0, 0, defs.EINVAL
	}

	child, ok := pt.Lookup(t, pid)
	if !ok {
		return 0, 0, defs.ESRCH
	}

	p.spin.Acquire(t)
	isChild := false
	for _, c := range p.children {
		if c == pid {
			isChild = true
			break
		}
	}
	p.spin.Release(t)
	if !isChild {
		return 0, 0, defs.ECHILD
	}

	child.waitLk.Acquire(t)
	for !child.hasExited {
		child.waitCV.Wait(t, &child.waitLk)
	}
	status := child.exitStatus
	child.waitLk.Release(t)

	pt.Remove(t, pid)
	p.spin.Acquire(t)
	for i, c := range p.children {
		if c == pid {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	p.spin.Release(t)

	return pid, status, 0
}

// Chdir resolves path through ns and, on success, installs it as the
// process's current working directory (spec.md §6's chdir syscall).
func (p *Process) Chdir(t *synch.Thread, ns *vfs.Namespace, path string) defs.Err_t {
	vn, ok := ns.Lookup(path)
	if !ok {
		return defs.ESRCH
	}
	p.spin.Acquire(t)
	p.cwd, p.cwdPath = vn, path
	p.spin.Release(t)
	return 0
}

// Getcwd returns the process's current working directory path (spec.md
// §6's __getcwd syscall).
func (p *Process) Getcwd(t *synch.Thread) string {
	p.spin.Acquire(t)
	defer p.spin.Release(t)
	return p.cwdPath
}
