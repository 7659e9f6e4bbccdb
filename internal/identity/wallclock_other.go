//go:build !linux && !darwin && !windows

package identity

import "time"

// TokenWallClock converts a fallback start token (milliseconds since the
// epoch) to wall clock for display.
func TokenWallClock(token int64) (time.Time, bool) {
	if token <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(token), true
}
