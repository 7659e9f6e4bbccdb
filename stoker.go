package stoker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	iclient "github.com/loykin/stoker/internal/client"
	cfg "github.com/loykin/stoker/internal/config"
	"github.com/loykin/stoker/internal/fsys"
	"github.com/loykin/stoker/internal/global"
	"github.com/loykin/stoker/internal/history"
	"github.com/loykin/stoker/internal/history/factory"
	"github.com/loykin/stoker/internal/identity"
	"github.com/loykin/stoker/internal/metrics"
	"github.com/loykin/stoker/internal/worker"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Fingerprint = identity.Fingerprint

type Outcome = identity.Outcome

const (
	Fresh         = identity.Fresh
	Stale         = identity.Stale
	Indeterminate = identity.Indeterminate
)

type Config = cfg.FileConfig

type Worker = iclient.Worker

type WorkerStatus = iclient.Status

type HistorySink = history.Sink

// Client is a thin facade over internal/client.Client.
// It provides a stable public API for embedding.
type Client struct {
	inner *iclient.Client
	reg   *global.Registry
	conf  *Config
}

// Options configure a Client built with New.
type Options struct {
	// ConfigPath loads a TOML config file; empty uses defaults.
	ConfigPath string
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// HistoryDSN overrides the config file's history_dsn when non-empty.
	HistoryDSN string
	// StartTimeout bounds the wait for a spawned worker to become ready.
	StartTimeout time.Duration
}

// New builds a Client with the default digest (truncated SHA-256) and the OS
// filesystem backend.
func New(opts Options) (*Client, error) {
	reg := &global.Registry{}
	if err := reg.SetDigest(DefaultDigest); err != nil {
		return nil, err
	}
	if err := reg.SetFilesystem(fsys.OSFS{}); err != nil {
		return nil, err
	}

	conf := cfg.Default()
	if opts.ConfigPath != "" {
		loaded, err := cfg.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		conf = loaded
	}

	dsn := opts.HistoryDSN
	if dsn == "" {
		dsn = conf.HistoryDSN
	}
	var sink history.Sink
	if dsn != "" {
		s, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			return nil, err
		}
		sink = s
	}

	inner, err := iclient.New(iclient.Options{
		Registry:     reg,
		Config:       conf,
		ConfigPath:   opts.ConfigPath,
		Logger:       opts.Logger,
		Sink:         sink,
		StartTimeout: opts.StartTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Client{inner: inner, reg: reg, conf: conf}, nil
}

// DefaultDigest is the digest installed by New: the first 8 bytes of a
// SHA-256, hex encoded.
func DefaultDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Ensure returns a ready worker for workspaceDir, reattaching when the
// recorded worker passes identity verification and spawning otherwise.
func (c *Client) Ensure(ctx context.Context, workspaceDir string) (*Worker, error) {
	return c.inner.Ensure(ctx, workspaceDir)
}

// Verify reports whether the recorded worker for workspaceDir is still the
// process that wrote its identity record.
func (c *Client) Verify(workspaceDir string) (Outcome, int, error) {
	return c.inner.Verify(workspaceDir)
}

// Status queries a verified worker's self-report.
func (c *Client) Status(ctx context.Context, workspaceDir string) (*WorkerStatus, error) {
	return c.inner.Status(ctx, workspaceDir)
}

// Shutdown asks a verified worker to stop. Not an error when none is running.
func (c *Client) Shutdown(ctx context.Context, workspaceDir string) error {
	return c.inner.Shutdown(ctx, workspaceDir)
}

// ServerDir returns the state directory derived for workspaceDir.
func (c *Client) ServerDir(workspaceDir string) (string, error) {
	return c.inner.ServerDir(workspaceDir)
}

// Serve runs the worker side in the current process until ctx is cancelled,
// the idle timeout elapses, or a client posts /shutdown.
func (c *Client) Serve(ctx context.Context, workspaceDir string, logger *slog.Logger) error {
	return worker.Serve(ctx, worker.Options{
		Registry:  c.reg,
		Config:    c.conf,
		Workspace: workspaceDir,
		Logger:    logger,
	})
}

// LoadConfig parses a TOML config file.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
