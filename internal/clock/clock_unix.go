//go:build !windows

package clock

import (
	"golang.org/x/sys/unix"
)

// MonotonicMillis returns milliseconds on CLOCK_MONOTONIC. The epoch is
// arbitrary (boot on linux); only differences are meaningful. Returns 0 if
// the clock cannot be read.
func MonotonicMillis() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return int64(ts.Sec)*1000 + int64(ts.Nsec)/1_000_000
}

// ProcessCPUMillis returns the CPU time consumed by the current process in
// milliseconds, from CLOCK_PROCESS_CPUTIME_ID. Returns 0 if unavailable.
func ProcessCPUMillis() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_PROCESS_CPUTIME_ID, &ts); err != nil {
		return 0
	}
	return int64(ts.Sec)*1000 + int64(ts.Nsec)/1_000_000
}
