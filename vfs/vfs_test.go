package vfs

import (
	"bytes"
	"testing"
	"time"

	"coreos/synch"
)

func TestConsoleReadBlocksUntilFed(t *testing.T) {
	c := NewConsole(nil)
	th := synch.NewThread()
	done := make(chan struct{})
	var n int
	go func() {
		buf := make([]byte, 5)
		n, _ = c.ReadAt(synch.NewThread(), 0, buf)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("ReadAt returned before input was fed")
	case <-time.After(20 * time.Millisecond):
	}
	c.Feed(th, []byte("hello"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ReadAt never woke after Feed")
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes read, got %d", n)
	}
}

func TestConsoleWriteRelaysToWriter(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	th := synch.NewThread()
	n, err := c.WriteAt(th, 0, []byte("hi"))
	if err != 0 || n != 2 {
		t.Fatalf("WriteAt: n=%d err=%v", n, err)
	}
	if buf.String() != "hi" {
		t.Fatalf("expected relayed output, got %q", buf.String())
	}
}

func TestMemFileWriteThenReadAt(t *testing.T) {
	f := NewMemFile()
	th := synch.NewThread()
	if _, err := f.WriteAt(th, 10, []byte("hello")); err != 0 {
		t.Fatalf("WriteAt: %v", err)
	}
	if f.Size(th) != 15 {
		t.Fatalf("expected size 15, got %d", f.Size(th))
	}
	buf := make([]byte, 5)
	n, err := f.ReadAt(th, 10, buf)
	if err != 0 || n != 5 || string(buf) != "hello" {
		t.Fatalf("ReadAt: n=%d err=%v buf=%q", n, err, buf)
	}
}

func TestMemFileReadPastEndReturnsZero(t *testing.T) {
	f := NewMemFile()
	th := synch.NewThread()
	buf := make([]byte, 5)
	n, err := f.ReadAt(th, 100, buf)
	if err != 0 || n != 0 {
		t.Fatalf("expected (0,0) reading past end, got (%d,%v)", n, err)
	}
}

func TestRawDiskSatisfiesSwapDevice(t *testing.T) {
	d := NewRawDisk(4)
	page := bytes.Repeat([]byte{0x9}, 4096)
	if err := d.WritePage(2, page); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	back := make([]byte, 4096)
	if err := d.ReadPage(2, back); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if !bytes.Equal(page, back) {
		t.Fatal("RawDisk page round trip failed")
	}
	if d.NumSlots() != 4 {
		t.Fatalf("expected 4 slots, got %d", d.NumSlots())
	}
}

func TestNamespaceRegisterLookupRemove(t *testing.T) {
	ns := NewNamespace()
	con := NewConsole(nil)
	ns.Register("con:", con)

	vn, ok := ns.Lookup("con:")
	if !ok || vn != Vnode(con) {
		t.Fatal("expected con: to resolve to the registered console")
	}
	if _, ok := ns.Lookup("missing"); ok {
		t.Fatal("expected unregistered path to miss")
	}

	ns.Create("/tmp/f")
	if _, ok := ns.Lookup("/tmp/f"); !ok {
		t.Fatal("expected Create to register the path")
	}
	if err := ns.Remove("/tmp/f"); err != 0 {
		t.Fatalf("Remove: %v", err)
	}
	if err := ns.Remove("/tmp/f"); err == 0 {
		t.Fatal("expected second Remove to fail")
	}
}
