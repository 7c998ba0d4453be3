package dispatch

import (
	"coreos/as"
	"coreos/defs"
	"coreos/synch"
	"coreos/vmfault"
)

// copyInString reads a NUL-terminated string from user address uva in
// 64-byte chunks, failing ENAMETOOLONG past maxLen. This is
// the syscall layer's analogue of original_source's copyinstr, needed
// because this module has no libc-side strlen to bound the transfer in
// advance.
func copyInString(t *synch.Thread, h *vmfault.Handler, a *as.AddrSpace, uva uintptr, maxLen int) (string, defs.Err_t) {
	buf := make([]byte, 0, 64)
	var chunk [64]byte
	for len(buf) < maxLen {
		n, err := h.CopyIn(t, a, uva+uintptr(len(buf)), chunk[:])
		if err != 0 {
			return "", err
		}
		for i := 0; i < n; i++ {
			if chunk[i] == 0 {
				return string(buf), 0
			}
			buf = append(buf, chunk[i])
			if len(buf) >= maxLen {
				return "", defs.ENAMETOOLONG
			}
		}
		if n == 0 {
			break
		}
	}
	return "", defs.ENAMETOOLONG
}
