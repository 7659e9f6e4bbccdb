//go:build linux

package identity

import (
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"
)

func TestParseStatStartTicks(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
		ok   bool
	}{
		{
			name: "plain comm",
			in:   "1234 (sleep) S 1 1234 1234 0 -1 4194304 100 0 0 0 1 2 0 0 20 0 1 0 98765 1024 100 18446744073709551615",
			want: 98765,
			ok:   true,
		},
		{
			name: "comm with spaces and parens",
			in:   "42 (my (weird) proc) R 1 42 42 0 -1 4194304 1 0 0 0 0 0 0 0 20 0 1 0 777 0 0 0",
			want: 777,
			ok:   true,
		},
		{
			name: "too few fields",
			in:   "99 (x) S 1 2 3",
			ok:   false,
		},
		{
			name: "no comm terminator",
			in:   "garbage without parens",
			ok:   false,
		},
		{
			name: "empty",
			in:   "",
			ok:   false,
		},
		{
			name: "zero starttime rejected",
			in:   "2 (kthreadd) S 0 0 0 0 -1 2129984 0 0 0 0 0 0 0 0 20 0 1 0 0 0 0 0",
			ok:   false,
		},
		{
			name: "non-numeric starttime",
			in:   "5 (x) S 1 5 5 0 -1 0 0 0 0 0 0 0 0 0 20 0 1 0 abc 0 0 0",
			ok:   false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := parseStatStartTicks([]byte(c.in))
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Fatalf("ticks = %d, want %d", got, c.want)
			}
		})
	}
}

func TestPutDecimal(t *testing.T) {
	for _, v := range []uint64{0, 1, 9, 10, 12345, 4194304} {
		var buf [24]byte
		n := putDecimal(buf[:], v)
		if got := string(buf[:n]); got != strconv.FormatUint(v, 10) {
			t.Fatalf("putDecimal(%d) = %q", v, got)
		}
	}
}

// Probing a pid whose process has exited must fail cleanly.
func TestProbeExitedProcess(t *testing.T) {
	// #nosec G204
	cmd := exec.Command("/bin/true")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	// The pid is reaped; /proc/<pid>/stat is gone unless it was reused, in
	// which case the probe may legitimately succeed with a different token.
	time.Sleep(10 * time.Millisecond)
	if tok, ok := probeStartToken(pid); ok {
		self, _ := probeStartToken(os.Getpid())
		if tok == self {
			t.Fatalf("exited pid probe returned own token %d", tok)
		}
	}
}

// The probe runs inside signal handlers, so it must not touch the heap.
func TestProbeAllocationFree(t *testing.T) {
	pid := os.Getpid()
	allocs := testing.AllocsPerRun(200, func() {
		if _, ok := probeStartToken(pid); !ok {
			t.Fatal("probe failed")
		}
	})
	if allocs != 0 {
		t.Fatalf("probe allocates %.1f objects per run, want 0", allocs)
	}
}

func TestTokenWallClockPlausible(t *testing.T) {
	fp, ok := Self()
	if !ok {
		t.Fatal("cannot probe own process")
	}
	at, ok := TokenWallClock(fp.StartToken)
	if !ok {
		t.Skip("wall clock conversion unavailable")
	}
	now := time.Now()
	if at.After(now.Add(time.Minute)) || at.Before(now.Add(-24*365*time.Hour)) {
		t.Fatalf("implausible start time %v", at)
	}
}
