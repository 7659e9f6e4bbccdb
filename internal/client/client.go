// Package client implements the invocation-side half of the worker protocol:
// find the workspace's recorded worker, verify its identity, reattach when it
// is provably the same process, and otherwise launch a replacement and wait
// for it to become ready.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/loykin/stoker/internal/clock"
	"github.com/loykin/stoker/internal/config"
	"github.com/loykin/stoker/internal/fsys"
	"github.com/loykin/stoker/internal/global"
	"github.com/loykin/stoker/internal/history"
	"github.com/loykin/stoker/internal/identity"
	"github.com/loykin/stoker/internal/metrics"
	"github.com/loykin/stoker/internal/spawn"
	"github.com/loykin/stoker/internal/workspace"
)

const (
	defaultStartTimeout = 30 * time.Second
	readyPollInterval   = 50 * time.Millisecond
)

// Options configure a Client.
type Options struct {
	// Registry supplies the digest and filesystem backends. Required.
	Registry *global.Registry
	// Config is the loaded stoker configuration. Required.
	Config *config.FileConfig
	// ConfigPath, when non-empty, is forwarded to the spawned worker.
	ConfigPath string
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Sink receives lifecycle events. Optional; sends are best-effort.
	Sink history.Sink
	// StartTimeout bounds the wait for a spawned worker to become ready.
	StartTimeout time.Duration
}

// Client verifies, reattaches to, and launches workers.
type Client struct {
	fs           fsys.FS
	reg          *global.Registry
	cfg          *config.FileConfig
	cfgPath      string
	log          *slog.Logger
	sink         history.Sink
	httpc        *http.Client
	startTimeout time.Duration
}

// Worker describes a ready worker the client can talk to.
type Worker struct {
	Addr        string
	Fingerprint identity.Fingerprint
	// Reused reports whether an existing worker passed verification, as
	// opposed to a fresh spawn.
	Reused bool
}

// Status is the worker's self-report, decoded from GET /status.
type Status struct {
	Workspace  string `json:"workspace"`
	PID        int    `json:"pid"`
	StartToken int64  `json:"start_token"`
	UptimeMS   int64  `json:"uptime_ms"`
	CPUMS      int64  `json:"cpu_ms"`
}

func New(opts Options) (*Client, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("client: registry required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("client: config required")
	}
	fs, err := opts.Registry.Filesystem()
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := opts.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}
	return &Client{
		fs:           fs,
		reg:          opts.Registry,
		cfg:          opts.Config,
		cfgPath:      opts.ConfigPath,
		log:          log,
		sink:         opts.Sink,
		httpc:        &http.Client{Timeout: 5 * time.Second},
		startTimeout: timeout,
	}, nil
}

// ServerDir returns the state directory for workspaceDir under the configured
// output root.
func (c *Client) ServerDir(workspaceDir string) (string, error) {
	root := c.cfg.OutputRoot
	if root == "" {
		root = workspace.OutputRoot()
	}
	return workspace.ServerDir(c.reg, root, workspaceDir)
}

// Verify checks whether the worker recorded for workspaceDir is still the
// process that wrote the record. It returns the verdict and the recorded PID.
// A missing PID file returns Stale with pid 0: no worker was ever recorded.
func (c *Client) Verify(workspaceDir string) (identity.Outcome, int, error) {
	dir, err := c.ServerDir(workspaceDir)
	if err != nil {
		return identity.Stale, 0, err
	}
	pid, err := workspace.ReadPID(c.fs, dir)
	if err != nil {
		return identity.Stale, 0, nil
	}
	out := identity.Verify(c.fs, pid, dir)
	metrics.IncVerification(out.String())
	return out, pid, nil
}

// Ensure returns a ready worker for workspaceDir, reattaching to a verified
// live worker when possible and spawning a replacement otherwise.
//
// An Indeterminate verdict is treated the same as Stale: a worker whose
// identity record is missing cannot be positively identified, so it is
// replaced rather than trusted.
func (c *Client) Ensure(ctx context.Context, workspaceDir string) (*Worker, error) {
	dir, err := c.ServerDir(workspaceDir)
	if err != nil {
		return nil, err
	}
	if err := c.fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("client: create state dir %s: %w", dir, err)
	}

	if w := c.tryReattach(ctx, workspaceDir, dir); w != nil {
		return w, nil
	}
	return c.spawnAndWait(ctx, workspaceDir, dir)
}

// tryReattach returns a Worker when the recorded PID passes identity
// verification and answers the health probe, nil otherwise.
func (c *Client) tryReattach(ctx context.Context, workspaceDir, dir string) *Worker {
	pid, err := workspace.ReadPID(c.fs, dir)
	if err != nil {
		return nil
	}
	out := identity.Verify(c.fs, pid, dir)
	metrics.IncVerification(out.String())

	fp, _ := identity.Probe(pid)
	c.emit(ctx, history.EventVerify, history.Record{
		Workspace:  workspaceDir,
		PID:        pid,
		StartToken: fp.StartToken,
		Outcome:    out.String(),
	})

	if out != identity.Fresh {
		c.log.Info("recorded worker not reusable", "pid", pid, "verdict", out.String())
		return nil
	}
	addr, err := workspace.ReadAddr(c.fs, dir)
	if err != nil {
		c.log.Warn("verified worker has no address record", "pid", pid, "error", err)
		return nil
	}
	if !c.healthy(ctx, addr) {
		c.log.Warn("verified worker failed health check", "pid", pid, "addr", addr)
		return nil
	}
	c.log.Debug("reattached to worker", "pid", pid, "addr", addr)
	return &Worker{Addr: addr, Fingerprint: fp, Reused: true}
}

func (c *Client) spawnAndWait(ctx context.Context, workspaceDir, dir string) (*Worker, error) {
	self, err := workspace.SelfPath()
	if err != nil {
		return nil, err
	}
	env, err := c.cfg.WorkerEnv()
	if err != nil {
		return nil, fmt.Errorf("client: build worker env: %w", err)
	}
	if len(env) == 0 && !c.cfg.UseOSEnv {
		env = nil // inherit
	}

	// Drop the previous address record so the readiness poll cannot pick up
	// the dead worker's address.
	_ = c.fs.Remove(filepath.Join(dir, workspace.AddrFile))

	args := []string{"serve", "--workspace", workspaceDir}
	if c.cfgPath != "" {
		args = append(args, "--config", c.cfgPath)
	}
	proc, err := spawn.Launch(spawn.Options{
		SelfPath: self,
		Args:     args,
		Env:      env,
		LogPath:  filepath.Join(dir, workspace.LogFile),
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("spawned worker", "pid", proc.Pid, "workspace", workspaceDir)
	c.emit(ctx, history.EventSpawn, history.Record{Workspace: workspaceDir, PID: proc.Pid})

	return c.awaitReady(ctx, dir)
}

// awaitReady polls for the address record the worker writes last, then
// confirms the worker answers its health endpoint.
func (c *Client) awaitReady(ctx context.Context, dir string) (*Worker, error) {
	deadline := clock.MonotonicMillis() + c.startTimeout.Milliseconds()
	for {
		if addr, err := workspace.ReadAddr(c.fs, dir); err == nil && c.healthy(ctx, addr) {
			pid, err := workspace.ReadPID(c.fs, dir)
			if err != nil {
				return nil, fmt.Errorf("client: worker ready but pid unreadable: %w", err)
			}
			fp, ok := identity.Probe(pid)
			if !ok {
				metrics.IncProbeFailure()
				return nil, fmt.Errorf("client: worker pid %d vanished during startup", pid)
			}
			return &Worker{Addr: addr, Fingerprint: fp, Reused: false}, nil
		}
		if clock.MonotonicMillis() >= deadline {
			return nil, fmt.Errorf("client: worker not ready after %s", c.startTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}

// Status queries a verified worker's self-report.
func (c *Client) Status(ctx context.Context, workspaceDir string) (*Status, error) {
	w, err := c.attachOnly(ctx, workspaceDir)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := c.getJSON(ctx, w.Addr, "/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Shutdown asks a verified worker to stop. It is not an error when no worker
// is running.
func (c *Client) Shutdown(ctx context.Context, workspaceDir string) error {
	w, err := c.attachOnly(ctx, workspaceDir)
	if err != nil {
		return err
	}
	if w == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(w.Addr, "/shutdown"), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("client: shutdown request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: shutdown status %d", resp.StatusCode)
	}
	c.emit(ctx, history.EventShutdown, history.Record{
		Workspace:  workspaceDir,
		PID:        w.Fingerprint.PID,
		StartToken: w.Fingerprint.StartToken,
	})
	return nil
}

// attachOnly resolves a verified running worker without ever spawning.
// Returns (nil, nil) when no worker is recorded.
func (c *Client) attachOnly(ctx context.Context, workspaceDir string) (*Worker, error) {
	dir, err := c.ServerDir(workspaceDir)
	if err != nil {
		return nil, err
	}
	pid, err := workspace.ReadPID(c.fs, dir)
	if err != nil {
		return nil, nil
	}
	out := identity.Verify(c.fs, pid, dir)
	metrics.IncVerification(out.String())
	if out != identity.Fresh {
		return nil, fmt.Errorf("client: recorded worker pid %d is %s", pid, out.String())
	}
	addr, err := workspace.ReadAddr(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("client: worker pid %d has no address record: %w", pid, err)
	}
	fp, _ := identity.Probe(pid)
	return &Worker{Addr: addr, Fingerprint: fp, Reused: true}, nil
}

func (c *Client) url(addr, path string) string {
	return "http://" + addr + c.cfg.BasePath + path
}

func (c *Client) healthy(ctx context.Context, addr string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(addr, "/healthz"), nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) getJSON(ctx context.Context, addr, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(addr, path), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: %s status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// emit sends a lifecycle event; sinks are best-effort and never block the
// caller for long or fail the operation.
func (c *Client) emit(ctx context.Context, t history.EventType, rec history.Record) {
	if c.sink == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.sink.Send(sctx, history.Event{Type: t, OccurredAt: time.Now().UTC(), Record: rec}); err != nil {
		c.log.Warn("history sink send failed", "event", string(t), "error", err)
	}
}
