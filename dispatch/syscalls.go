package dispatch

// Syscall numbers, unchanged from spec.md §6's table (the fixed
// original_source/os161 numbering this corpus was distilled from).
const (
	SYS_fork     = 0
	SYS_execv    = 2
	SYS__exit    = 3
	SYS_waitpid  = 4
	SYS_getpid   = 5
	SYS_sbrk     = 9
	SYS_open     = 45
	SYS_dup2     = 48
	SYS_close    = 49
	SYS_read     = 50
	SYS_write    = 55
	SYS_lseek    = 59
	SYS_remove   = 68
	SYS_chdir    = 74
	SYS___getcwd = 76
	SYS___time   = 113
	SYS_reboot   = 119
)

// MaxPathLen bounds a path string's length, as ARG_MAX bounds argv in
// package proc's exec.
const MaxPathLen = 1024
