//go:build windows

package identity

import (
	"golang.org/x/sys/windows"
)

// probeStartToken returns the process creation FILETIME as 100 ns intervals
// since 1601-01-01. GetProcessTimes reports the creation time captured by the
// kernel at process start, so it is stable for the life of the process and
// differs between any two processes that reuse a PID across distinct ticks.
func probeStartToken(pid int) (int64, bool) {
	if pid <= 0 {
		return 0, false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return 0, false
	}
	defer func() { _ = windows.CloseHandle(h) }()

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h, &creation, &exit, &kernel, &user); err != nil {
		return 0, false
	}
	tok := int64(creation.HighDateTime)<<32 | int64(creation.LowDateTime)
	if tok == 0 {
		return 0, false
	}
	return tok, true
}
