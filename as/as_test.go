package as

import (
	"testing"

	"coreos/defs"
	"coreos/mem"
	"coreos/pagetable"
	"coreos/swap"
	"coreos/synch"
)

func newTestAS(nframes int) (*AddrSpace, *synch.Thread) {
	cm := mem.NewCoremap(nframes, 0)
	sw := swap.Init(swap.NewMemDevice(nframes))
	return Create(cm, sw), synch.NewThread()
}

func TestDefineRegionRejectsOverlap(t *testing.T) {
	a, th := newTestAS(16)
	if err := a.DefineRegion(th, 0x1000, 0x2000, true, true, false); err != 0 {
		t.Fatalf("first region: %v", err)
	}
	if err := a.DefineRegion(th, 0x2000, 0x1000, true, false, false); err == 0 {
		t.Fatal("expected overlap to be rejected")
	}
}

func TestDefineStackPreservesHeapBounds(t *testing.T) {
	a, th := newTestAS(16)
	a.InitHeap(th, 0x10000)
	sp, err := a.DefineStack(th)
	if err != 0 {
		t.Fatalf("DefineStack: %v", err)
	}
	if sp != UserTop {
		t.Fatalf("expected stack pointer %x, got %x", UserTop, sp)
	}
	if a.heapStart != 0x10000 || a.heapEnd != 0x10000 {
		t.Fatal("DefineStack must not disturb existing heap bounds")
	}
}

func TestSbrkGrowAndShrink(t *testing.T) {
	a, th := newTestAS(16)
	a.InitHeap(th, 0x10000)
	if _, err := a.DefineStack(th); err != 0 {
		t.Fatalf("DefineStack: %v", err)
	}

	old, err := a.Sbrk(th, int64(defs.PGSIZE*2))
	if err != 0 {
		t.Fatalf("Sbrk grow: %v", err)
	}
	if old != 0x10000 {
		t.Fatalf("expected old break 0x10000, got %x", old)
	}
	if a.heapEnd != 0x10000+uintptr(defs.PGSIZE*2) {
		t.Fatal("heapEnd not updated after grow")
	}

	old2, err := a.Sbrk(th, -int64(defs.PGSIZE))
	if err != 0 {
		t.Fatalf("Sbrk shrink: %v", err)
	}
	if old2 != a.heapEnd+uintptr(defs.PGSIZE) {
		t.Fatal("Sbrk did not return the pre-shrink break")
	}
}

func TestSbrkShrinkFreesRAMPages(t *testing.T) {
	a, th := newTestAS(16)
	a.InitHeap(th, 0)
	if _, err := a.DefineStack(th); err != 0 {
		t.Fatalf("DefineStack: %v", err)
	}
	if _, err := a.Sbrk(th, int64(defs.PGSIZE)); err != 0 {
		t.Fatalf("Sbrk grow: %v", err)
	}

	vpn := defs.VPN(0)
	idx, ok := a.cm.AllocUpage(th, a.pt, vpn)
	if !ok {
		t.Fatal("expected frame alloc to succeed")
	}
	pte := a.pt.GetPTE(vpn, true)
	pte.State = pagetable.RAM
	pte.PFN = idx

	if _, err := a.Sbrk(th, -int64(defs.PGSIZE)); err != 0 {
		t.Fatalf("Sbrk shrink: %v", err)
	}
	if pte.State != pagetable.UNALLOC {
		t.Fatalf("expected PTE reset to UNALLOC, got %v", pte.State)
	}
	fv := a.cm.Frame(th, idx)
	if fv.State != mem.FREE {
		t.Fatalf("expected frame freed, got %v", fv.State)
	}
}

func TestSbrkRejectsGrowthPastStack(t *testing.T) {
	a, th := newTestAS(16)
	a.InitHeap(th, 0)
	if _, err := a.DefineStack(th); err != 0 {
		t.Fatalf("DefineStack: %v", err)
	}
	if _, err := a.Sbrk(th, int64(UserTop)); err != defs.ENOMEM {
		t.Fatalf("expected ENOMEM growing past stack, got %v", err)
	}
}

func TestSbrkRejectsShrinkBelowHeapStart(t *testing.T) {
	a, th := newTestAS(16)
	a.InitHeap(th, 0x10000)
	if _, err := a.Sbrk(th, -int64(defs.PGSIZE)); err != defs.EINVAL {
		t.Fatalf("expected EINVAL shrinking below heap_start, got %v", err)
	}
}

func TestCopyDeepCopiesRAMPage(t *testing.T) {
	a, th := newTestAS(16)
	vpn := uint32(3)
	idx, ok := a.cm.AllocUpage(th, a.pt, vpn)
	if !ok {
		t.Fatal("alloc failed")
	}
	pte := a.pt.GetPTE(vpn, true)
	pte.State = pagetable.RAM
	pte.PFN = idx
	copy(a.cm.Bytes(idx), []byte("hello"))

	child, err := a.Copy(th)
	if err != 0 {
		t.Fatalf("Copy: %v", err)
	}
	cpte := child.pt.GetPTE(vpn, false)
	if cpte == nil || cpte.State != pagetable.RAM {
		t.Fatal("expected child RAM PTE")
	}
	if cpte.PFN == pte.PFN {
		t.Fatal("expected a distinct frame in the child")
	}
	if string(child.cm.Bytes(cpte.PFN)[:5]) != "hello" {
		t.Fatal("expected child's frame to contain a copy of the parent's data")
	}
	child.cm.Bytes(cpte.PFN)[0] = 'H'
	if a.cm.Bytes(idx)[0] != 'h' {
		t.Fatal("parent's frame must be unaffected by a write to the child's copy")
	}
}

func TestCopyPreservesZeroState(t *testing.T) {
	a, th := newTestAS(16)
	vpn := uint32(9)
	pte := a.pt.GetPTE(vpn, true)
	pte.State = pagetable.ZERO

	child, err := a.Copy(th)
	if err != 0 {
		t.Fatalf("Copy: %v", err)
	}
	cpte := child.pt.GetPTE(vpn, false)
	if cpte == nil || cpte.State != pagetable.ZERO {
		t.Fatal("expected child ZERO PTE")
	}
}

func TestDestroyFreesAllMappedFrames(t *testing.T) {
	a, th := newTestAS(16)
	vpn := uint32(1)
	idx, _ := a.cm.AllocUpage(th, a.pt, vpn)
	pte := a.pt.GetPTE(vpn, true)
	pte.State = pagetable.RAM
	pte.PFN = idx

	a.Destroy(th)
	if fv := a.cm.Frame(th, idx); fv.State != mem.FREE {
		t.Fatalf("expected frame freed after Destroy, got %v", fv.State)
	}
}
