// Package spawn launches the worker process. The platform configurator runs
// against the prepared command before it starts; a configurator failure
// aborts the launch rather than starting an unconfigured worker.
package spawn

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/loykin/stoker/internal/metrics"
)

// Configurator adjusts platform process attributes (session, process group,
// scheduling hints) on the prepared command. A platform with no special
// requirements uses a configurator that does nothing and returns nil.
type Configurator func(cmd *exec.Cmd) error

// Options describe one worker launch.
type Options struct {
	// SelfPath is the executable to run, normally the stoker binary itself.
	SelfPath string
	// Args are passed verbatim, e.g. ["serve", "--server-dir", dir].
	Args []string
	// Env replaces the worker's environment when non-nil; nil inherits ours.
	Env []string
	// LogPath receives the worker's raw stdout/stderr. Empty means the null
	// device. The worker's structured log is separate and rotated; this file
	// only catches panics and early startup noise.
	LogPath string
	// Configure defaults to DefaultConfigurator when nil.
	Configure Configurator
}

// Launch starts a detached worker and returns its process without waiting.
// The short-lived client exits before the worker does; the worker is
// reparented and reaped by the system.
func Launch(opts Options) (*os.Process, error) {
	if opts.SelfPath == "" {
		return nil, fmt.Errorf("spawn: no executable path")
	}
	// #nosec G204 -- re-executes our own binary with fixed arguments
	cmd := exec.Command(opts.SelfPath, opts.Args...)
	cmd.Stdin = nil
	if opts.Env != nil {
		cmd.Env = opts.Env
	}

	logPath := opts.LogPath
	if logPath == "" {
		logPath = os.DevNull
	}
	// The worker outlives us, so stdio must be real file descriptors, not
	// parent-pumped pipes.
	// #nosec G304 -- path is derived from the state directory layout
	logF, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("spawn: open worker log %s: %w", logPath, err)
	}
	defer func() { _ = logF.Close() }()
	cmd.Stdout = logF
	cmd.Stderr = logF

	configure := opts.Configure
	if configure == nil {
		configure = DefaultConfigurator
	}
	if err := configure(cmd); err != nil {
		metrics.IncSpawnConfigFailure()
		return nil, fmt.Errorf("spawn: configure worker process: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn: start worker: %w", err)
	}
	metrics.IncSpawn()
	return cmd.Process, nil
}
