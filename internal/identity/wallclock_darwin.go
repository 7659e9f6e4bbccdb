//go:build darwin

package identity

import "time"

// TokenWallClock converts a darwin start token (microseconds since the epoch)
// to wall clock for display.
func TokenWallClock(token int64) (time.Time, bool) {
	if token <= 0 {
		return time.Time{}, false
	}
	return time.UnixMicro(token), true
}
