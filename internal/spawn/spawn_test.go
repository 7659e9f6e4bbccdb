package spawn

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix-only test")
	}
}

func TestLaunchRunsDetachedProcess(t *testing.T) {
	requireUnix(t)
	logPath := filepath.Join(t.TempDir(), "server.log")
	p, err := Launch(Options{
		SelfPath: "/bin/sh",
		Args:     []string{"-c", "echo started"},
		LogPath:  logPath,
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if p == nil || p.Pid <= 0 {
		t.Fatal("no process returned")
	}
	// Give the child time to run and flush.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b, err := os.ReadFile(logPath); err == nil && len(b) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("worker output never reached the log file")
}

func TestLaunchConfiguratorFailureAborts(t *testing.T) {
	requireUnix(t)
	boom := errors.New("no such scheduling class")
	_, err := Launch(Options{
		SelfPath:  "/bin/sh",
		Args:      []string{"-c", "exit 0"},
		Configure: func(*exec.Cmd) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Launch = %v, want wrapped %v", err, boom)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if _, err := Launch(Options{}); err == nil {
		t.Fatal("expected error for empty SelfPath")
	}
}
