package vfs

import (
	"io"

	"coreos/defs"
	"coreos/synch"
)

// Console is the vnode bound to fds 0/1/2 on process creation (spec.md
// §4.8). It is grounded on circbuf.go's ring-buffer accumulation, with the
// page-backed allocation (Cb_init_phys's mem.Page_i dependency) replaced
// by a plain growable []byte — there is no physical-page budget to account
// for a byte queue that never needs to survive a fault or be evicted.
type Console struct {
	lk  synch.SleepLock
	cv  synch.CV
	in  []byte
	out io.Writer
}

// NewConsole returns a console whose Write calls are relayed to out (nil
// discards them).
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Feed appends data to the console's pending input, waking any blocked
// reader. Used by the boot context in place of a real keyboard driver.
func (c *Console) Feed(t *synch.Thread, data []byte) {
	c.lk.Acquire(t)
	c.in = append(c.in, data...)
	c.cv.Broadcast(t, &c.lk)
	c.lk.Release(t)
}

// ReadAt blocks until input is available, then consumes up to len(buf)
// bytes. The offset parameter is ignored: the console has no seekable
// position, matching ESPIPE semantics reported by Seekable.
func (c *Console) ReadAt(t *synch.Thread, _ int64, buf []byte) (int, defs.Err_t) {
	c.lk.Acquire(t)
	defer c.lk.Release(t)
	for len(c.in) == 0 {
		c.cv.Wait(t, &c.lk)
	}
	n := copy(buf, c.in)
	c.in = c.in[n:]
	return n, 0
}

// WriteAt relays buf to the console's output writer.
func (c *Console) WriteAt(t *synch.Thread, _ int64, buf []byte) (int, defs.Err_t) {
	if c.out == nil {
		return len(buf), 0
	}
	n, err := c.out.Write(buf)
	if err != nil {
		return n, defs.EFAULT
	}
	return n, 0
}

func (c *Console) Size(t *synch.Thread) int64 { return 0 }
func (c *Console) Seekable() bool             { return false }
func (c *Console) Close(t *synch.Thread) defs.Err_t { return 0 }
