//go:build windows

package clock

import (
	"golang.org/x/sys/windows"
)

// MonotonicMillis returns milliseconds since boot from GetTickCount64.
func MonotonicMillis() int64 {
	return int64(windows.GetTickCount64())
}

// ProcessCPUMillis returns kernel plus user CPU time consumed by the current
// process, in milliseconds. Returns 0 if unavailable.
func ProcessCPUMillis() int64 {
	h := windows.CurrentProcess()
	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h, &creation, &exit, &kernel, &user); err != nil {
		return 0
	}
	k := int64(kernel.HighDateTime)<<32 | int64(kernel.LowDateTime)
	u := int64(user.HighDateTime)<<32 | int64(user.LowDateTime)
	// FILETIME counts 100 ns intervals.
	return (k + u) / 10_000
}
