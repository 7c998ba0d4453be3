package dispatch

import (
	"coreos/defs"
	"coreos/fd"
	"coreos/proc"
	"coreos/synch"
	"coreos/util"
	"coreos/vfs"
	"coreos/vmfault"
)

// Clock supplies wall-clock time for __time, kept as an injected function
// rather than calling time.Now directly so tests can hold it fixed.
type Clock func() (secs int64, nsecs int64)

// Dispatcher ties the syscall table to the subsystems it routes into:
// the PID table (fork/waitpid/getpid), the namespace (open/chdir/remove
// path resolution), the fault handler (user buffer transfers), and a
// program loader (execv). One Dispatcher is shared process-wide; per-call
// state lives entirely in the Process and TrapFrame arguments.
type Dispatcher struct {
	PIDs   *proc.PIDTable
	NS     *vfs.Namespace
	Fault  *vmfault.Handler
	Loader proc.Loader
	Now    Clock
}

// NewDispatcher wires a dispatcher over the given boot-context singletons.
func NewDispatcher(pt *proc.PIDTable, ns *vfs.Namespace, h *vmfault.Handler, ldr proc.Loader, clk Clock) *Dispatcher {
	return &Dispatcher{PIDs: pt, NS: ns, Fault: h, Loader: ldr, Now: clk}
}

// Dispatch routes tf to the operation its Sysno names and writes back the
// result/error-flag/PC-advance protocol spec.md §4.9 describes. fork is
// the one call whose effect cannot be captured purely by mutating tf: it
// returns the newly created child process for the caller (the
// out-of-scope scheduler) to actually run; every other syscall returns
// nil.
func (d *Dispatcher) Dispatch(t *synch.Thread, p *proc.Process, tf *TrapFrame) *proc.Process {
	switch tf.Sysno {
	case SYS_fork:
		return d.sysFork(t, p, tf)
	case SYS_execv:
		d.sysExecv(t, p, tf)
	case SYS__exit:
		p.Exit(t, int(int32(tf.A0)))
		// the caller's thread terminates here; no return into tf.
	case SYS_waitpid:
		d.sysWaitpid(t, p, tf)
	case SYS_getpid:
		tf.setOK(uintptr(p.Getpid()))
	case SYS_sbrk:
		d.sysSbrk(t, p, tf)
	case SYS_open:
		d.sysOpen(t, p, tf)
	case SYS_dup2:
		d.sysDup2(t, p, tf)
	case SYS_close:
		d.sysClose(t, p, tf)
	case SYS_read:
		d.sysRead(t, p, tf)
	case SYS_write:
		d.sysWrite(t, p, tf)
	case SYS_lseek:
		d.sysLseek(t, p, tf)
	case SYS_remove:
		d.sysRemove(t, p, tf)
	case SYS_chdir:
		d.sysChdir(t, p, tf)
	case SYS___getcwd:
		d.sysGetcwd(t, p, tf)
	case SYS___time:
		d.sysTime(t, p, tf)
	case SYS_reboot:
		tf.setOK(0)
	default:
		tf.setErr(defs.EINVAL)
	}
	return nil
}

func (d *Dispatcher) sysFork(t *synch.Thread, p *proc.Process, tf *TrapFrame) *proc.Process {
	child, err := p.Fork(t, d.PIDs)
	if err != 0 {
		tf.setErr(err)
		return nil
	}
	tf.setOK(uintptr(child.Getpid()))
	return child
}

func (d *Dispatcher) sysExecv(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	a := p.AddrSpace()
	path, err := copyInString(t, d.Fault, a, tf.A0, MaxPathLen)
	if err != 0 {
		tf.setErr(err)
		return
	}

	const wordSize = 8
	var argv []string
	for i := 0; i < proc.ArgMax/wordSize; i++ {
		var word [wordSize]byte
		if _, err := d.Fault.CopyIn(t, a, tf.A1+uintptr(i*wordSize), word[:]); err != 0 {
			tf.setErr(err)
			return
		}
		ptr := uintptr(util.Readn(word[:], wordSize, 0))
		if ptr == 0 {
			break
		}
		s, err := copyInString(t, d.Fault, a, ptr, MaxPathLen)
		if err != 0 {
			tf.setErr(err)
			return
		}
		argv = append(argv, s)
	}

	entry, sp, err := p.Exec(t, path, argv, d.NS, d.Fault, d.Loader)
	if err != 0 {
		tf.setErr(err)
		return
	}
	// exec "must not return on success": entry becomes the new PC and the
	// new stack pointer is handed back in V0; tf.Err is cleared and the
	// PC is not advanced past the syscall instruction.
	tf.PC = entry
	tf.V0 = sp
	tf.Err = 0
}

func (d *Dispatcher) sysWaitpid(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	options := int(int32(tf.A2))
	pid, status, err := p.Waitpid(t, d.PIDs, defs.Pid_t(int32(tf.A0)), options)
	if err != 0 {
		tf.setErr(err)
		return
	}
	if tf.A1 != 0 {
		var word [4]byte
		util.Writen(word[:], 4, 0, int(status))
		if _, werr := d.Fault.CopyOut(t, p.AddrSpace(), tf.A1, word[:]); werr != 0 {
			tf.setErr(werr)
			return
		}
	}
	tf.setOK(uintptr(pid))
}

func (d *Dispatcher) sysSbrk(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	oldBreak, err := p.AddrSpace().Sbrk(t, int64(int32(tf.A0)))
	if err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(oldBreak)
}

func (d *Dispatcher) sysOpen(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	path, err := copyInString(t, d.Fault, p.AddrSpace(), tf.A0, MaxPathLen)
	if err != 0 {
		tf.setErr(err)
		return
	}
	flags := int(int32(tf.A1))

	vn, ok := d.NS.Lookup(path)
	if !ok {
		if flags&fd.O_CREAT == 0 {
			tf.setErr(defs.ESRCH)
			return
		}
		vn = d.NS.Create(path)
	}

	h := fd.NewHandle(vn, flags&^fd.O_CREAT)
	fdno, err := p.FDs().Alloc(t, h)
	if err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(uintptr(fdno))
}

func (d *Dispatcher) sysDup2(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	newfd, err := p.FDs().Dup2(t, int(int32(tf.A0)), int(int32(tf.A1)))
	if err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(uintptr(newfd))
}

func (d *Dispatcher) sysClose(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	if err := p.FDs().Free(t, int(int32(tf.A0))); err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(0)
}

func (d *Dispatcher) sysRead(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	h, err := p.FDs().Get(t, int(int32(tf.A0)))
	if err != 0 {
		tf.setErr(err)
		return
	}
	defer h.Release(t)

	n := int(tf.A2)
	buf := make([]byte, n)
	nr, err := h.Read(t, buf)
	if err != 0 {
		tf.setErr(err)
		return
	}
	if _, werr := d.Fault.CopyOut(t, p.AddrSpace(), tf.A1, buf[:nr]); werr != 0 {
		tf.setErr(werr)
		return
	}
	tf.setOK(uintptr(nr))
}

func (d *Dispatcher) sysWrite(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	h, err := p.FDs().Get(t, int(int32(tf.A0)))
	if err != 0 {
		tf.setErr(err)
		return
	}
	defer h.Release(t)

	n := int(tf.A2)
	buf := make([]byte, n)
	if _, rerr := d.Fault.CopyIn(t, p.AddrSpace(), tf.A1, buf); rerr != 0 {
		tf.setErr(rerr)
		return
	}
	nw, err := h.Write(t, buf)
	if err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(uintptr(nw))
}

func (d *Dispatcher) sysLseek(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	h, err := p.FDs().Get(t, int(int32(tf.A0)))
	if err != 0 {
		tf.setErr(err)
		return
	}
	defer h.Release(t)

	offset := int64(uint64(tf.A2) | uint64(tf.A3)<<32)
	whence := int(tf.StackArg(0))

	pos, err := h.Lseek(t, offset, whence)
	if err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK64(uint64(pos))
}

func (d *Dispatcher) sysRemove(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	path, err := copyInString(t, d.Fault, p.AddrSpace(), tf.A0, MaxPathLen)
	if err != 0 {
		tf.setErr(err)
		return
	}
	if err := d.NS.Remove(path); err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(0)
}

func (d *Dispatcher) sysChdir(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	path, err := copyInString(t, d.Fault, p.AddrSpace(), tf.A0, MaxPathLen)
	if err != 0 {
		tf.setErr(err)
		return
	}
	if err := p.Chdir(t, d.NS, path); err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(0)
}

func (d *Dispatcher) sysGetcwd(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	cwd := p.Getcwd(t)
	buflen := int(tf.A1)
	if len(cwd) >= buflen {
		tf.setErr(defs.ENAMETOOLONG)
		return
	}
	out := make([]byte, len(cwd)+1)
	copy(out, cwd)
	if _, err := d.Fault.CopyOut(t, p.AddrSpace(), tf.A0, out); err != 0 {
		tf.setErr(err)
		return
	}
	tf.setOK(uintptr(len(cwd)))
}

func (d *Dispatcher) sysTime(t *synch.Thread, p *proc.Process, tf *TrapFrame) {
	secs, nsecs := d.Now()
	if tf.A0 != 0 {
		var word [8]byte
		util.Writen(word[:], 8, 0, int(secs))
		if _, err := d.Fault.CopyOut(t, p.AddrSpace(), tf.A0, word[:]); err != 0 {
			tf.setErr(err)
			return
		}
	}
	if tf.A1 != 0 {
		var word [8]byte
		util.Writen(word[:], 8, 0, int(nsecs))
		if _, err := d.Fault.CopyOut(t, p.AddrSpace(), tf.A1, word[:]); err != 0 {
			tf.setErr(err)
			return
		}
	}
	tf.setOK(0)
}
