package vmfault

import (
	"bytes"
	"testing"

	"coreos/as"
	"coreos/defs"
	"coreos/mem"
	"coreos/pagetable"
	"coreos/swap"
	"coreos/synch"
)

func newTestHandler(nframes int) (*Handler, *as.AddrSpace, *synch.Thread) {
	cm := mem.NewCoremap(nframes, 0)
	sw := swap.Init(swap.NewMemDevice(nframes))
	ev := swap.NewEvictor(cm, sw)
	h := NewHandler(cm, sw, ev)
	a := as.Create(cm, sw)
	return h, a, synch.NewThread()
}

func TestFaultRejectsKernelSegment(t *testing.T) {
	h, a, th := newTestHandler(4)
	if err := h.Fault(th, a, defs.FaultRead, as.UserTop); err != defs.EFAULT {
		t.Fatalf("expected EFAULT for kernel segment, got %v", err)
	}
}

func TestFaultRejectsReadonlyFaultType(t *testing.T) {
	h, a, th := newTestHandler(4)
	if err := h.Fault(th, a, defs.FaultReadonly, 0x1000); err != defs.EFAULT {
		t.Fatalf("expected EFAULT for a READONLY fault, got %v", err)
	}
}

func TestFaultRejectsAddressOutsideAnyRegion(t *testing.T) {
	h, a, th := newTestHandler(4)
	if err := h.Fault(th, a, defs.FaultRead, 0x5000); err != defs.EFAULT {
		t.Fatalf("expected EFAULT outside any region or heap, got %v", err)
	}
}

func TestFaultDemandZeroInstallsRAM(t *testing.T) {
	h, a, th := newTestHandler(4)
	if err := a.DefineRegion(th, 0x1000, 0x1000, true, true, false); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}
	if err := h.Fault(th, a, defs.FaultRead, 0x1000); err != 0 {
		t.Fatalf("Fault: %v", err)
	}
	pte := a.PageTable().GetPTE(defs.VPN(0x1000), false)
	if pte == nil || pte.State != pagetable.RAM {
		t.Fatalf("expected RAM PTE after demand-zero fault, got %+v", pte)
	}
	page := h.cm.Bytes(pte.PFN)
	for _, b := range page {
		if b != 0 {
			t.Fatal("expected zero-filled frame on demand-zero fault")
		}
	}
}

func TestFaultHeapWithoutExplicitRegion(t *testing.T) {
	h, a, th := newTestHandler(4)
	a.InitHeap(th, 0x20000)
	if _, err := a.Sbrk(th, 0x1000); err != 0 {
		t.Fatalf("Sbrk: %v", err)
	}
	if err := h.Fault(th, a, defs.FaultWrite, 0x20000); err != 0 {
		t.Fatalf("expected heap fault to succeed, got %v", err)
	}
}

func TestFaultSwapInRestoresContents(t *testing.T) {
	h, a, th := newTestHandler(4)
	vpn := uint32(5)
	slot, _ := h.sw.Alloc(th)
	payload := bytes.Repeat([]byte{0x7}, defs.PGSIZE)
	if err := h.sw.Out(slot, payload); err != nil {
		t.Fatalf("Out: %v", err)
	}
	pte := a.PageTable().GetPTE(vpn, true)
	pte.State = pagetable.SWAP
	pte.SwapSlot = slot

	va := defs.PageAddr(vpn)
	if err := a.DefineRegion(th, va, uintptr(defs.PGSIZE), true, true, false); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}
	if err := h.Fault(th, a, defs.FaultRead, va); err != 0 {
		t.Fatalf("Fault: %v", err)
	}
	if pte.State != pagetable.RAM {
		t.Fatalf("expected RAM after swap-in, got %v", pte.State)
	}
	if !bytes.Equal(h.cm.Bytes(pte.PFN), payload) {
		t.Fatal("expected swap-in to restore original page contents")
	}
}

func TestCopyOutThenCopyInRoundTrip(t *testing.T) {
	h, a, th := newTestHandler(4)
	if err := a.DefineRegion(th, 0x4000, uintptr(defs.PGSIZE)*2, true, true, false); err != 0 {
		t.Fatalf("DefineRegion: %v", err)
	}
	msg := []byte("hello from kernel space, spanning more than one page perhaps")
	n, err := h.CopyOut(th, a, 0x4000+uintptr(defs.PGSIZE)-10, msg)
	if err != 0 {
		t.Fatalf("CopyOut: %v", err)
	}
	if n != len(msg) {
		t.Fatalf("expected %d bytes written, got %d", len(msg), n)
	}

	back := make([]byte, len(msg))
	n, err = h.CopyIn(th, a, 0x4000+uintptr(defs.PGSIZE)-10, back)
	if err != 0 {
		t.Fatalf("CopyIn: %v", err)
	}
	if n != len(msg) || !bytes.Equal(back, msg) {
		t.Fatal("CopyIn did not recover bytes written by CopyOut across a page boundary")
	}
}
