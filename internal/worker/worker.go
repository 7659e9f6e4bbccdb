// Package worker runs the long-lived daemon side of the protocol. Startup
// ordering is load-bearing: the state directory lock is taken first, the PID
// and identity records are written next, and the address record is written
// last — its appearance is the readiness signal clients poll for.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/stoker/internal/config"
	"github.com/loykin/stoker/internal/global"
	"github.com/loykin/stoker/internal/identity"
	"github.com/loykin/stoker/internal/metrics"
	"github.com/loykin/stoker/internal/server"
	"github.com/loykin/stoker/internal/workspace"
)

// Options configure one worker run.
type Options struct {
	// Registry supplies the digest and filesystem backends. Required.
	Registry *global.Registry
	// Config is the loaded stoker configuration. Required.
	Config *config.FileConfig
	// Workspace is the directory this worker serves. Required.
	Workspace string
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Serve runs a worker until ctx is cancelled, the idle timeout elapses, or a
// client posts /shutdown. It returns an error when the worker could not reach
// readiness; errors after readiness are logged and the worker shuts down.
func Serve(ctx context.Context, opts Options) error {
	if opts.Registry == nil || opts.Config == nil {
		return fmt.Errorf("worker: registry and config required")
	}
	if opts.Workspace == "" {
		return fmt.Errorf("worker: workspace required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	fs, err := opts.Registry.Filesystem()
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	root := opts.Config.OutputRoot
	if root == "" {
		root = workspace.OutputRoot()
	}
	dir, err := workspace.ServerDir(opts.Registry, root, opts.Workspace)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("worker: create state dir %s: %w", dir, err)
	}

	// One worker per state directory. The lock is held for the whole run so
	// a second worker racing us fails fast instead of clobbering the records.
	lock := flock.New(filepath.Join(dir, workspace.LockFile))
	held, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("worker: lock %s: %w", lock.Path(), err)
	}
	if !held {
		return fmt.Errorf("worker: another worker holds %s", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	// A leftover address record must never be readable while this worker is
	// still starting up.
	_ = fs.Remove(filepath.Join(dir, workspace.AddrFile))

	if err := workspace.WritePID(fs, dir, os.Getpid()); err != nil {
		return fmt.Errorf("worker: write pid record: %w", err)
	}
	// A worker that cannot record its identity must not keep running: no
	// client could ever safely reconnect to it.
	if err := identity.RecordSelf(fs, dir); err != nil {
		return err
	}
	fp, ok := identity.Self()
	if !ok {
		return fmt.Errorf("worker: cannot probe own start time")
	}

	for name, d := range opts.Config.Discoveries() {
		home, err := d.Resolve()
		if err != nil {
			log.Warn("runtime discovery failed", "runtime", name, "error", err)
			continue
		}
		log.Info("runtime discovered", "runtime", name, "home", home)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("metrics registration failed", "error", err)
	}

	stopCh := make(chan struct{})
	var stopOnce sync.Once
	stop := func() { stopOnce.Do(func() { close(stopCh) }) }

	activity := make(chan struct{}, 1)
	rt := server.NewRouter(opts.Config.BasePath, opts.Workspace, fp, stop)
	rt.OnActivity(func() {
		select {
		case activity <- struct{}{}:
		default:
		}
	})

	srv, addr, err := server.NewServer(opts.Config.Addr, rt)
	if err != nil {
		return fmt.Errorf("worker: listen on %s: %w", opts.Config.Addr, err)
	}

	// Readiness: only now may a client observe and trust this worker.
	if err := workspace.WriteAddr(fs, dir, addr); err != nil {
		_ = srv.Close()
		return fmt.Errorf("worker: write addr record: %w", err)
	}
	log.Info("worker ready", "pid", fp.PID, "start_token", fp.StartToken, "addr", addr, "workspace", opts.Workspace)

	reason := waitForStop(ctx, stopCh, activity, opts.Config.IdleTimeout)
	log.Info("worker stopping", "reason", reason)

	// Withdraw the readiness signal before the listener goes away.
	_ = fs.Remove(filepath.Join(dir, workspace.AddrFile))
	shutdownHTTP(srv)
	return nil
}

func waitForStop(ctx context.Context, stopCh, activity <-chan struct{}, idle time.Duration) string {
	var idleC <-chan time.Time
	var timer *time.Timer
	if idle > 0 {
		timer = time.NewTimer(idle)
		defer timer.Stop()
		idleC = timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return "signal"
		case <-stopCh:
			return "shutdown request"
		case <-idleC:
			return "idle timeout"
		case <-activity:
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(idle)
			}
		}
	}
}

func shutdownHTTP(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
}
