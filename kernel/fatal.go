package kernel

import (
	"fmt"
	"runtime"
)

// Callerdump formats the call stack starting at the given runtime.Caller
// depth, one frame per line, kept nearly verbatim from the teacher's
// caller.Callerdump.
func Callerdump(start int) string {
	i := start
	s := ""
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		i++
		if s == "" {
			s = fmt.Sprintf("%s:%d\n", f, l)
		} else {
			s += fmt.Sprintf("\t<-%s:%d\n", f, l)
		}
	}
	return s
}

// Fatal logs msg at the Error level with a call-stack dump attached, then
// panics. Boot calls it when the kernel process cannot be created. The
// double-release and coremap-state checks in packages synch, mem, and swap
// do not go through Fatal: they call panic directly.
func Fatal(log *Logger, msg string) {
	trace := Callerdump(2)
	if log != nil {
		log.Error(msg, "stack", trace)
	}
	panic(msg + "\n" + trace)
}
