//go:build linux

package identity

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	sysconf "github.com/tklauser/go-sysconf"
)

// TokenWallClock converts a linux start token (clock ticks since boot) to an
// approximate wall-clock start time for display. The conversion is lossy and
// depends on the boot time, so it is never used for comparison; identity
// decisions always compare raw tokens.
func TokenWallClock(token int64) (time.Time, bool) {
	if token <= 0 {
		return time.Time{}, false
	}

	f, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, false
	}
	defer func() { _ = f.Close() }()

	var btime int64
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, "btime ") {
			v := strings.TrimSpace(strings.TrimPrefix(line, "btime "))
			if bt, err := strconv.ParseInt(v, 10, 64); err == nil {
				btime = bt
			}
			break
		}
	}
	if btime == 0 {
		return time.Time{}, false
	}

	clk, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || clk <= 0 {
		clk = 100
	}
	return time.Unix(btime+token/clk, 0), true
}
