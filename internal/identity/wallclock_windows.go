//go:build windows

package identity

import "time"

// 100 ns intervals between 1601-01-01 and the Unix epoch.
const filetimeEpochDelta = 116444736000000000

// TokenWallClock converts a windows start token (creation FILETIME) to wall
// clock for display.
func TokenWallClock(token int64) (time.Time, bool) {
	if token <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, (token-filetimeEpochDelta)*100), true
}
