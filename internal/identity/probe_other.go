//go:build !linux && !darwin && !windows

package identity

import (
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// probeStartToken falls back to gopsutil's CreateTime, in milliseconds since
// the epoch. Best-effort only: this path allocates and is not safe to call
// from a signal handler. The signal-capable implementations live in the
// linux, darwin and windows files.
func probeStartToken(pid int) (int64, bool) {
	if pid <= 0 {
		return 0, false
	}
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return 0, false
	}
	ms, err := p.CreateTime()
	if err != nil || ms <= 0 {
		return 0, false
	}
	return ms, true
}
