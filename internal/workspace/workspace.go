// Package workspace derives the on-disk layout of a workspace's worker state
// directory and resolves paths the client needs for diagnostics.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loykin/stoker/internal/fsys"
	"github.com/loykin/stoker/internal/global"
)

// Artifacts inside a workspace's server state directory. The starttime record
// name lives in the identity package next to the code that owns it.
const (
	PIDFile  = "server.pid"
	AddrFile = "server.addr"
	LockFile = "lock"
	LogFile  = "server.log"
)

// OutputRoot returns the default cache root: <home>/.cache/stoker, or a
// directory under the system temp dir when no home is available.
func OutputRoot() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".cache", "stoker")
	}
	return filepath.Join(os.TempDir(), "stoker")
}

// ServerDir derives the per-workspace server state directory:
// <outputRoot>/<digest(absolute workspace path)>/server. The digest comes
// from the registry so every command in the process agrees on the mapping.
func ServerDir(reg *global.Registry, outputRoot, workspaceDir string) (string, error) {
	digest, err := reg.Digest()
	if err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	abs, err := filepath.Abs(workspaceDir)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve %s: %w", workspaceDir, err)
	}
	return filepath.Join(outputRoot, digest([]byte(abs)), "server"), nil
}

// SelfPath returns the canonical path of the running executable with all
// symlinks resolved. Used for diagnostics and to re-exec the worker.
func SelfPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("workspace: locate executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

// WritePID records the worker's PID in dir. Plain overwrite; the state
// directory lock serializes writers.
func WritePID(fs fsys.FS, dir string, pid int) error {
	return fs.WriteFile(filepath.Join(dir, PIDFile), []byte(strconv.Itoa(pid)), 0o600)
}

// ReadPID returns the recorded worker PID, or an error when the file is
// missing or does not hold a positive integer.
func ReadPID(fs fsys.FS, dir string) (int, error) {
	b, err := fs.ReadFile(filepath.Join(dir, PIDFile))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("workspace: invalid pid file in %s: %w", dir, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("workspace: non-positive pid %d in %s", pid, dir)
	}
	return pid, nil
}

// WriteAddr records the worker's listen address. Written after the identity
// record, so its presence doubles as the readiness signal.
func WriteAddr(fs fsys.FS, dir, addr string) error {
	return fs.WriteFile(filepath.Join(dir, AddrFile), []byte(addr), 0o600)
}

// ReadAddr returns the worker's recorded listen address.
func ReadAddr(fs fsys.FS, dir string) (string, error) {
	b, err := fs.ReadFile(filepath.Join(dir, AddrFile))
	if err != nil {
		return "", err
	}
	addr := strings.TrimSpace(string(b))
	if addr == "" {
		return "", fmt.Errorf("workspace: empty addr file in %s", dir)
	}
	return addr, nil
}
