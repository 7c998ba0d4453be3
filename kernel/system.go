// Package kernel is the boot context described in SPEC_FULL.md §9: it
// wires together the coremap, swap allocator, evictor, fault handler, PID
// table, namespace, and syscall dispatcher that the rest of this module's
// packages take as explicit parameters, replacing the teacher's ad hoc
// package-level globals (mem.Physmem, limits.Syslimit) with the fields of
// one System value constructed by Boot and threaded explicitly from then
// on — Design Notes: "model as a process-wide context initialized in a
// single boot sequence and passed by reference; no ambient globals
// required".
package kernel

import (
	"io"
	"log/slog"

	"coreos/dispatch"
	"coreos/mem"
	"coreos/proc"
	"coreos/swap"
	"coreos/synch"
	"coreos/vfs"
	"coreos/vmfault"
)

const (
	// swapDevicePath is the raw block device path the swap vnode is
	// registered under (spec.md §6: "opened as a raw block device path
	// (implementation-chosen)").
	swapDevicePath = "swap:"
	// consoleDevicePath is the console's well-known path (spec.md §6).
	consoleDevicePath = "con:"
)

// System is the boot-time singleton set: every subsystem a process or
// syscall needs, constructed once and passed by reference from then on.
type System struct {
	Limits Limits
	Log    *Logger

	Coremap *mem.Coremap
	Swap    *swap.Swap
	Evictor *swap.Evictor
	Fault   *vmfault.Handler

	PIDs *proc.PIDTable
	NS   *vfs.Namespace

	Console *vfs.Console
	Disk    *vfs.RawDisk

	Dispatch *dispatch.Dispatcher

	// Kernel is the PID-0 process: no user code runs as it, but it owns
	// the boot thread and gives proc_create's "kernel process" a real
	// record to register, rather than leaving PID 0 a special case
	// nowhere in the PID table.
	Kernel *proc.Process
}

// Boot constructs a System: nframes physical frames of simulated RAM,
// lim system-wide resource bounds, and consoleOut as the console's
// relayed output (nil discards it). It registers "con:" and "swap:" in
// the namespace and creates the PID-0 kernel process on a fresh boot
// thread, mirroring the teacher's single linear boot sequence
// (main.go's Main) without the device-driver/network stack this module
// has no use for.
func Boot(nframes int, lim Limits, consoleOut io.Writer, logOut io.Writer) *System {
	log := NewLogger(logOut, slog.LevelInfo)

	cm := mem.NewCoremap(nframes, 0)
	disk := vfs.NewRawDisk(lim.MaxSwapSlots)
	sw := swap.Init(disk)
	ev := swap.NewEvictor(cm, sw)
	fault := vmfault.NewHandler(cm, sw, ev)

	pt := proc.NewPIDTable()
	ns := vfs.NewNamespace()
	con := vfs.NewConsole(consoleOut)
	ns.Register(consoleDevicePath, con)
	ns.Register(swapDevicePath, disk)

	clk := func() (int64, int64) { return wallClock() }
	disp := dispatch.NewDispatcher(pt, ns, fault, proc.FlatLoader{}, clk)

	boot := synch.NewThread()
	kproc, err := proc.ProcCreate(boot, pt, cm, sw, "kernel", con, lim.MaxOpenFiles)
	if err != 0 {
		Fatal(log, "boot: failed to create kernel process")
	}
	pt.Remove(boot, kproc.PID)
	kproc.PID = 0
	pt.Insert(boot, kproc)

	sys := &System{
		Limits:   lim,
		Log:      log,
		Coremap:  cm,
		Swap:     sw,
		Evictor:  ev,
		Fault:    fault,
		PIDs:     pt,
		NS:       ns,
		Console:  con,
		Disk:     disk,
		Dispatch: disp,
		Kernel:   kproc,
	}
	log.Info("boot complete", "frames", nframes, "max_procs", lim.MaxProcs, "max_swap_slots", lim.MaxSwapSlots)
	return sys
}

// SpawnInit creates the first user process (the teacher's runprogram
// equivalent): a fresh process bound to the console, loaded with path via
// ldr, ready to run at the returned entry point and stack pointer.
func (s *System) SpawnInit(t *synch.Thread, path string, argv []string) (*proc.Process, uintptr, uintptr, error) {
	p, err := proc.ProcCreate(t, s.PIDs, s.Coremap, s.Swap, path, s.Console, s.Limits.MaxOpenFiles)
	if err != 0 {
		return nil, 0, 0, err
	}
	entry, sp, err := p.Exec(t, path, argv, s.NS, s.Fault, proc.FlatLoader{})
	if err != 0 {
		return nil, 0, 0, err
	}
	return p, entry, sp, nil
}
