// Package dispatch implements the syscall entry point described in
// spec.md §4.9: a single dispatcher that decodes a trap frame's call
// number and argument registers, routes to the process/address-space/fd
// operations in packages proc, as, fd, and vmfault, and writes the result
// back using the register + error-flag + PC-advance return protocol.
// Grounded on original_source/kern/arch/mips/syscall/syscall.c (the
// v0/a0-a3 register convention, the a3-as-error-flag idiom, the epc += 4
// PC-advance) since the teacher has no single trap/syscall entry point of
// its own in the retrieved file set.
package dispatch

import "coreos/defs"

// TrapFrame stands in for the MIPS trap/exception stub's saved register
// context (spec.md §4.9's "a trap frame containing the call number in one
// register and up to four argument registers plus an on-stack overflow
// area for 64-bit values"). Sysno is tf_v0, A0-A3 are tf_a0-tf_a3, and
// StackArgs models the words original_source reads from sp+16 onward
// (lseek's whence argument, in this syscall table).
type TrapFrame struct {
	Sysno uintptr
	A0    uintptr
	A1    uintptr
	A2    uintptr
	A3    uintptr

	StackArgs []uintptr

	// V0/V1 carry the result on success: one register for a 32-bit
	// result, both for a 64-bit one (lseek's returned position).
	V0 uintptr
	V1 uintptr

	// Err mirrors tf_a3: 0 on success, 1 on failure, with V0 then holding
	// the error code instead of a result.
	Err uintptr

	// PC is advanced by one instruction on every return, successful or
	// not, so the syscall instruction is not re-executed.
	PC uintptr
}

// StackArg returns the i'th word of the stack overflow area, or 0 if the
// caller did not supply one (callers needing it must check separately; no
// syscall in this table has more than one).
func (tf *TrapFrame) StackArg(i int) uintptr {
	if i < 0 || i >= len(tf.StackArgs) {
		return 0
	}
	return tf.StackArgs[i]
}

// setOK installs a single-register success result and advances the PC.
func (tf *TrapFrame) setOK(v0 uintptr) {
	tf.V0, tf.V1, tf.Err = v0, 0, 0
	tf.PC += 4
}

// setOK64 installs a 64-bit success result split across V0/V1.
func (tf *TrapFrame) setOK64(v uint64) {
	tf.V0 = uintptr(uint32(v))
	tf.V1 = uintptr(uint32(v >> 32))
	tf.Err = 0
	tf.PC += 4
}

// setErr installs an error return and advances the PC.
func (tf *TrapFrame) setErr(e defs.Err_t) {
	tf.V0 = uintptr(e)
	tf.V1 = 0
	tf.Err = 1
	tf.PC += 4
}
