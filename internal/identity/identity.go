// Package identity implements PID-reuse-safe process identity for the worker
// daemon. A process is identified by the pair (PID, kernel start-time token):
// PIDs are recycled by the OS, but two processes that ever occupy the same PID
// get different start times unless the kernel reuses the PID within one clock
// granule. The worker records its own token next to its PID file at startup;
// later invocations probe the live token for the recorded PID and compare.
package identity

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/loykin/stoker/internal/fsys"
)

// StartTimeFile is the identity record name inside the server state directory.
const StartTimeFile = "server.starttime"

// Outcome is the result of verifying a recorded identity against a live PID.
type Outcome int

const (
	// Fresh means the PID still refers to the worker that wrote the record.
	Fresh Outcome = iota
	// Stale means the PID is gone or now belongs to a different process.
	Stale
	// Indeterminate means the record is missing or unreadable. Callers apply
	// their own documented policy; stoker treats Indeterminate as Stale so a
	// worker we cannot positively identify is never reused.
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Fingerprint approximates a unique identity for a local process.
type Fingerprint struct {
	PID        int   `json:"pid"`
	StartToken int64 `json:"start_token"`
}

// Probe returns the fingerprint for pid, or ok=false when pid is free,
// inaccessible, or its process table entry cannot be read. The token's field
// and unit are platform-specific but identical between recording and every
// later verification on the same host; see the probe_* files.
func Probe(pid int) (Fingerprint, bool) {
	tok, ok := probeStartToken(pid)
	if !ok {
		return Fingerprint{}, false
	}
	return Fingerprint{PID: pid, StartToken: tok}, true
}

// Self probes the current process.
func Self() (Fingerprint, bool) { return Probe(os.Getpid()) }

// RecordSelf probes the current process and writes its start token to
// dir/server.starttime as a single decimal line. It is called by the worker
// itself, once, before it announces readiness. A failure here is fatal to the
// worker: a worker that cannot record its identity must not keep running,
// because no client could ever safely reconnect to it.
//
// The write is a plain overwrite. Only one worker holds the state directory
// lock at a time, so no atomic rename is needed.
func RecordSelf(fs fsys.FS, dir string) error {
	fp, ok := Self()
	if !ok {
		return fmt.Errorf("identity: cannot determine start time of pid %d", os.Getpid())
	}
	path := dir + string(os.PathSeparator) + StartTimeFile
	if err := fs.WriteFile(path, []byte(strconv.FormatInt(fp.StartToken, 10)), 0o600); err != nil {
		return fmt.Errorf("identity: write %s: %w", path, err)
	}
	return nil
}

// Verify decides whether pid still refers to the worker whose token was
// recorded in dir. Probe failure means the process is simply gone: Stale.
// A missing or empty record yields Indeterminate. Otherwise the recorded
// bytes are compared against the live token.
//
// Verification is read-only and idempotent; concurrent callers need no
// locking.
func Verify(fs fsys.FS, pid int, dir string) Outcome {
	live, ok := probeStartToken(pid)
	if !ok {
		return Stale
	}
	recorded, err := fs.ReadFile(dir + string(os.PathSeparator) + StartTimeFile)
	if err != nil {
		return Indeterminate
	}
	want := strings.TrimSpace(string(recorded))
	if want == "" {
		return Indeterminate
	}
	if want == strconv.FormatInt(live, 10) {
		return Fresh
	}
	return Stale
}
