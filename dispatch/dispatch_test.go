package dispatch

import (
	"testing"

	"coreos/defs"
	"coreos/fd"
	"coreos/mem"
	"coreos/proc"
	"coreos/swap"
	"coreos/synch"
	"coreos/vfs"
	"coreos/vmfault"
)

func newTestDispatcher(t *testing.T, nframes int) (*Dispatcher, *proc.Process, *synch.Thread) {
	t.Helper()
	pt := proc.NewPIDTable()
	cm := mem.NewCoremap(nframes, 0)
	sw := swap.Init(swap.NewMemDevice(nframes))
	ev := swap.NewEvictor(cm, sw)
	h := vmfault.NewHandler(cm, sw, ev)
	ns := vfs.NewNamespace()
	con := vfs.NewConsole(nil)
	ns.Register("con:", con)

	clk := func() (int64, int64) { return 1000, 0 }
	d := NewDispatcher(pt, ns, h, proc.FlatLoader{}, clk)

	th := synch.NewThread()
	p, err := proc.ProcCreate(th, pt, cm, sw, "init", con, 8)
	if err != 0 {
		t.Fatalf("ProcCreate: %v", err)
	}
	p.AddrSpace().InitHeap(th, 0x20000)
	// Scratch user buffers used by the tests below live in this page.
	if err := p.AddrSpace().DefineRegion(th, 0x30000, uintptr(defs.PGSIZE), true, true, false); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}
	return d, p, th
}

func TestDispatchGetpid(t *testing.T) {
	d, p, th := newTestDispatcher(t, 8)
	tf := &TrapFrame{Sysno: SYS_getpid}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 {
		t.Fatalf("expected success, got err flag set with code %d", tf.V0)
	}
	if defs.Pid_t(tf.V0) != p.Getpid() {
		t.Fatalf("expected V0 == %d, got %d", p.Getpid(), tf.V0)
	}
	if tf.PC != 4 {
		t.Fatalf("expected PC advanced by one instruction, got %d", tf.PC)
	}
}

func TestDispatchUnknownSyscallIsEINVAL(t *testing.T) {
	d, p, th := newTestDispatcher(t, 8)
	tf := &TrapFrame{Sysno: 9999}
	d.Dispatch(th, p, tf)
	if tf.Err != 1 || defs.Err_t(tf.V0) != defs.EINVAL {
		t.Fatalf("expected EINVAL error return, got err=%d v0=%d", tf.Err, tf.V0)
	}
}

func TestDispatchSbrkThenFaultInNewPages(t *testing.T) {
	d, p, th := newTestDispatcher(t, 8)
	tf := &TrapFrame{Sysno: SYS_sbrk, A0: uintptr(int32(8192))}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 {
		t.Fatalf("sbrk failed: code %d", tf.V0)
	}

	var buf [4]byte
	if _, err := d.Fault.CopyOut(th, p.AddrSpace(), 0x20000, buf[:]); err != 0 {
		t.Fatalf("expected grown heap page to be writable, got %v", err)
	}
}

// TestDispatchOpenWriteReadLseek exercises spec.md §8 scenario 4 through
// the syscall table: open a file, write 10 bytes from a user buffer,
// lseek(-5, CUR), read 5 bytes back, lseek(0, END).
func TestDispatchOpenWriteReadLseek(t *testing.T) {
	d, p, th := newTestDispatcher(t, 8)
	path := "/tmp/f"
	d.NS.Create(path)

	pathVA := uintptr(0x30000)
	pathBytes := append([]byte(path), 0)
	if _, err := d.Fault.CopyOut(th, p.AddrSpace(), pathVA, pathBytes); err != 0 {
		t.Fatalf("CopyOut path: %v", err)
	}

	tf := &TrapFrame{Sysno: SYS_open, A0: pathVA, A1: uintptr(fd.O_RDWR)}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 {
		t.Fatalf("open failed: code %d", tf.V0)
	}
	openedFD := int(tf.V0)

	msg := []byte("helloworld")
	msgVA := uintptr(0x30100)
	if _, err := d.Fault.CopyOut(th, p.AddrSpace(), msgVA, msg); err != 0 {
		t.Fatalf("CopyOut msg: %v", err)
	}

	tf = &TrapFrame{Sysno: SYS_write, A0: uintptr(openedFD), A1: msgVA, A2: uintptr(len(msg))}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 || int(tf.V0) != len(msg) {
		t.Fatalf("write failed: err=%d n=%d", tf.Err, tf.V0)
	}

	tf = &TrapFrame{Sysno: SYS_lseek, A0: uintptr(openedFD), A2: uint64AsPair(-5), A3: uint64AsPairHi(-5), StackArgs: []uintptr{fd.SeekCur}}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 || int64(tf.V0) != 5 {
		t.Fatalf("lseek CUR -5 failed: err=%d pos=%d", tf.Err, tf.V0)
	}

	readVA := uintptr(0x30200)
	tf = &TrapFrame{Sysno: SYS_read, A0: uintptr(openedFD), A1: readVA, A2: 5}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 || tf.V0 != 5 {
		t.Fatalf("read failed: err=%d n=%d", tf.Err, tf.V0)
	}
	got := make([]byte, 5)
	if _, err := d.Fault.CopyIn(th, p.AddrSpace(), readVA, got); err != 0 {
		t.Fatalf("CopyIn result: %v", err)
	}
	if string(got) != "world" {
		t.Fatalf("expected last 5 bytes written, got %q", got)
	}

	tf = &TrapFrame{Sysno: SYS_lseek, StackArgs: []uintptr{fd.SeekEnd}, A0: uintptr(openedFD)}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 || int64(tf.V0) != 10 {
		t.Fatalf("lseek END failed: err=%d pos=%d", tf.Err, tf.V0)
	}
}

// TestDispatchDup2ThenCloseScenario exercises spec.md §8 scenario 5:
// dup2(1, 5), close(1), write(5, "hi") still reaches the console.
func TestDispatchDup2ThenCloseScenario(t *testing.T) {
	d, p, th := newTestDispatcher(t, 8)

	tf := &TrapFrame{Sysno: SYS_dup2, A0: 1, A1: 5}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 || tf.V0 != 5 {
		t.Fatalf("dup2 failed: err=%d newfd=%d", tf.Err, tf.V0)
	}

	tf = &TrapFrame{Sysno: SYS_close, A0: 1}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 {
		t.Fatalf("close failed: code %d", tf.V0)
	}

	msg := []byte("hi")
	msgVA := uintptr(0x30300)
	if _, err := d.Fault.CopyOut(th, p.AddrSpace(), msgVA, msg); err != 0 {
		t.Fatalf("CopyOut: %v", err)
	}
	tf = &TrapFrame{Sysno: SYS_write, A0: 5, A1: msgVA, A2: 2}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 || tf.V0 != 2 {
		t.Fatalf("write via duped fd failed: err=%d n=%d", tf.Err, tf.V0)
	}
}

func TestDispatchForkExitWaitpid(t *testing.T) {
	d, p, th := newTestDispatcher(t, 16)

	tf := &TrapFrame{Sysno: SYS_fork}
	child := d.Dispatch(th, p, tf)
	if tf.Err != 0 {
		t.Fatalf("fork failed: code %d", tf.V0)
	}
	if child == nil {
		t.Fatal("expected fork to return the new child process")
	}
	if defs.Pid_t(tf.V0) != child.Getpid() {
		t.Fatalf("expected parent's fork result to be the child PID")
	}

	childThread := child.Thread()
	childTF := &TrapFrame{Sysno: SYS__exit, A0: uintptr(int32(3))}
	done := make(chan struct{})
	go func() {
		d.Dispatch(childThread, child, childTF)
		close(done)
	}()
	<-done

	statusVA := uintptr(0x30400)
	tf = &TrapFrame{Sysno: SYS_waitpid, A0: uintptr(child.Getpid()), A1: statusVA}
	d.Dispatch(th, p, tf)
	if tf.Err != 0 || defs.Pid_t(tf.V0) != child.Getpid() {
		t.Fatalf("waitpid failed: err=%d pid=%d", tf.Err, tf.V0)
	}
	var statusWord [4]byte
	if _, err := d.Fault.CopyIn(th, p.AddrSpace(), statusVA, statusWord[:]); err != 0 {
		t.Fatalf("CopyIn status: %v", err)
	}
	code, signaled := proc.DecodeWaitStatus(int32(statusWord[0]) | int32(statusWord[1])<<8 | int32(statusWord[2])<<16 | int32(statusWord[3])<<24)
	if signaled || code != 3 {
		t.Fatalf("expected exit code 3, got code=%d signaled=%v", code, signaled)
	}
}

func uint64AsPair(n int64) uintptr  { return uintptr(uint32(uint64(n))) }
func uint64AsPairHi(n int64) uintptr { return uintptr(uint32(uint64(n) >> 32)) }
