package fd

import (
	"bytes"
	"testing"

	"coreos/defs"
	"coreos/synch"
	"coreos/vfs"
)

func TestHandleReadWriteRejectsWrongMode(t *testing.T) {
	th := synch.NewThread()
	h := NewHandle(vfs.NewMemFile(), O_RDONLY)
	if _, err := h.Write(th, []byte("x")); err != defs.EACCES {
		t.Fatalf("expected EACCES writing a read-only handle, got %v", err)
	}
	wh := NewHandle(vfs.NewMemFile(), O_WRONLY)
	if _, err := wh.Read(th, make([]byte, 1)); err != defs.EACCES {
		t.Fatalf("expected EACCES reading a write-only handle, got %v", err)
	}
}

// TestLseekScenario is spec.md §8 scenario 4: write 10 bytes, lseek(-5, CUR)
// returns 5, the next 5 bytes read back are the last 5 written, and
// lseek(0, END) returns 10.
func TestLseekScenario(t *testing.T) {
	th := synch.NewThread()
	h := NewHandle(vfs.NewMemFile(), O_RDWR)

	if n, err := h.Write(th, []byte("0123456789")); err != 0 || n != 10 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	pos, err := h.Lseek(th, -5, SeekCur)
	if err != 0 || pos != 5 {
		t.Fatalf("Lseek CUR: pos=%d err=%v", pos, err)
	}
	buf := make([]byte, 5)
	if n, err := h.Read(th, buf); err != 0 || n != 5 || string(buf) != "56789" {
		t.Fatalf("Read after seek: n=%d err=%v buf=%q", n, err, buf)
	}
	pos, err = h.Lseek(th, 0, SeekEnd)
	if err != 0 || pos != 10 {
		t.Fatalf("Lseek END: pos=%d err=%v", pos, err)
	}
}

func TestLseekCurDoesNotModifyOffset(t *testing.T) {
	th := synch.NewThread()
	h := NewHandle(vfs.NewMemFile(), O_RDWR)
	h.Write(th, []byte("hello"))
	h.Lseek(th, 2, SeekSet)
	before, _ := h.Lseek(th, 0, SeekCur)
	after, _ := h.Lseek(th, 0, SeekCur)
	if before != after || before != 2 {
		t.Fatalf("lseek(fd,0,CUR) must not move the offset: before=%d after=%d", before, after)
	}
}

func TestLseekNegativeResultIsEINVAL(t *testing.T) {
	th := synch.NewThread()
	h := NewHandle(vfs.NewMemFile(), O_RDWR)
	if _, err := h.Lseek(th, -1, SeekSet); err != defs.EINVAL {
		t.Fatalf("expected EINVAL, got %v", err)
	}
}

func TestLseekOnConsoleIsESPIPE(t *testing.T) {
	th := synch.NewThread()
	h := NewHandle(vfs.NewConsole(nil), O_WRONLY)
	if _, err := h.Lseek(th, 0, SeekCur); err != defs.ESPIPE {
		t.Fatalf("expected ESPIPE on a non-seekable vnode, got %v", err)
	}
}

// TestDup2ThenCloseScenario is spec.md §8 scenario 5: dup2(1, 5) then
// close(1) then write(5, ...) still reaches the console.
func TestDup2ThenCloseScenario(t *testing.T) {
	th := synch.NewThread()
	var out bytes.Buffer
	tbl := NewConsoleTable(vfs.NewConsole(&out), 8)

	if fdno, err := tbl.Dup2(th, 1, 5); err != 0 || fdno != 5 {
		t.Fatalf("Dup2: fd=%d err=%v", fdno, err)
	}
	if err := tbl.Free(th, 1); err != 0 {
		t.Fatalf("close(1): %v", err)
	}
	h, err := tbl.Get(th, 5)
	if err != 0 {
		t.Fatalf("Get(5): %v", err)
	}
	defer h.Release(th)
	n, werr := h.Write(th, []byte("hi"))
	if werr != 0 || n != 2 {
		t.Fatalf("write(5): n=%d err=%v", n, werr)
	}
	if out.String() != "hi" {
		t.Fatalf("expected console output %q, got %q", "hi", out.String())
	}
}

func TestDup2SameFdIsNoop(t *testing.T) {
	th := synch.NewThread()
	tbl := NewConsoleTable(vfs.NewConsole(nil), 8)
	if fdno, err := tbl.Dup2(th, 1, 1); err != 0 || fdno != 1 {
		t.Fatalf("dup2(a,a): fd=%d err=%v", fdno, err)
	}
	if _, err := tbl.Dup2(th, 99, 99); err != defs.EBADF {
		t.Fatalf("dup2 on an invalid fd must fail, got %v", err)
	}
}

func TestAllocFailsEMFILEWhenFull(t *testing.T) {
	th := synch.NewThread()
	tbl := NewTable(2)
	if _, err := tbl.Alloc(th, NewHandle(vfs.NewMemFile(), O_RDWR)); err != 0 {
		t.Fatalf("alloc 1: %v", err)
	}
	if _, err := tbl.Alloc(th, NewHandle(vfs.NewMemFile(), O_RDWR)); err != 0 {
		t.Fatalf("alloc 2: %v", err)
	}
	if _, err := tbl.Alloc(th, NewHandle(vfs.NewMemFile(), O_RDWR)); err != defs.EMFILE {
		t.Fatalf("expected EMFILE on a full table, got %v", err)
	}
}

func TestForkBumpsRefcount(t *testing.T) {
	th := synch.NewThread()
	tbl := NewConsoleTable(vfs.NewConsole(nil), 8)
	h, _ := tbl.Get(th, 1)
	before := h.Refs()
	h.Release(th)

	child := tbl.Fork(th)
	ch, _ := child.Get(th, 1)
	defer ch.Release(th)

	if ch.Refs() != before+1 {
		t.Fatalf("expected refcount bumped by fork, before=%d after=%d", before, ch.Refs())
	}
}

func TestCloseAllReleasesEveryHandle(t *testing.T) {
	th := synch.NewThread()
	tbl := NewConsoleTable(vfs.NewConsole(nil), 8)
	h, _ := tbl.Get(th, 1)
	before := h.Refs()
	h.Release(th)

	// before counts the table's reference plus the one Get took.
	tbl.CloseAll(th)
	if h.Refs() != before-2 {
		t.Fatalf("expected CloseAll to release the table's reference, before=%d after=%d", before, h.Refs())
	}
	if _, err := tbl.Get(th, 1); err != defs.EBADF {
		t.Fatalf("expected EBADF after CloseAll, got %v", err)
	}
}
