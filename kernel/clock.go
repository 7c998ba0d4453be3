package kernel

import "time"

// wallClock backs the default dispatch.Clock installed by Boot: real wall
// time, split into seconds and nanoseconds-of-second the way __time's two
// out-parameters expect (spec.md §6).
func wallClock() (secs int64, nsecs int64) {
	now := time.Now()
	return now.Unix(), int64(now.Nanosecond())
}
