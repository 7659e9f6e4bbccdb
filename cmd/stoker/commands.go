package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/loykin/stoker"
	"github.com/loykin/stoker/internal/identity"
	"github.com/loykin/stoker/internal/logger"
)

// command carries the global flags into the subcommand implementations.
type command struct {
	flags *GlobalFlags
}

func (c command) workspaceDir() (string, error) {
	ws := c.flags.Workspace
	if ws == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		ws = wd
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return "", fmt.Errorf("resolve workspace %s: %w", ws, err)
	}
	return abs, nil
}

func (c command) logConfig() logger.Config {
	if c.flags.ConfigPath == "" {
		return logger.Config{}
	}
	conf, err := stoker.LoadConfig(c.flags.ConfigPath)
	if err != nil || conf.Log == nil {
		return logger.Config{}
	}
	return conf.LoggerConfig()
}

func (c command) newClient(startTimeout time.Duration, log *slog.Logger) (*stoker.Client, error) {
	return stoker.New(stoker.Options{
		ConfigPath:   c.flags.ConfigPath,
		Logger:       log,
		StartTimeout: startTimeout,
	})
}

// Ensure verifies or replaces the workspace worker and prints the result.
func (c command) Ensure(ctx context.Context, startTimeout time.Duration) error {
	ws, err := c.workspaceDir()
	if err != nil {
		return err
	}
	cl, err := c.newClient(startTimeout, c.logConfig().NewStderr())
	if err != nil {
		return err
	}
	w, err := cl.Ensure(ctx, ws)
	if err != nil {
		return err
	}
	verb := "spawned"
	if w.Reused {
		verb = "reused"
	}
	fmt.Printf("%s worker pid=%d start_token=%d addr=%s\n", verb, w.Fingerprint.PID, w.Fingerprint.StartToken, w.Addr)
	return nil
}

// Status prints the running worker's self-report.
func (c command) Status(ctx context.Context) error {
	ws, err := c.workspaceDir()
	if err != nil {
		return err
	}
	cl, err := c.newClient(0, c.logConfig().NewStderr())
	if err != nil {
		return err
	}
	st, err := cl.Status(ctx, ws)
	if err != nil {
		return err
	}
	fmt.Printf("workspace: %s\npid: %d\nstart_token: %d\nuptime: %s\ncpu: %s\n",
		st.Workspace, st.PID, st.StartToken,
		time.Duration(st.UptimeMS)*time.Millisecond,
		time.Duration(st.CPUMS)*time.Millisecond)
	return nil
}

// Verify prints the identity verdict without ever spawning.
func (c command) Verify() error {
	ws, err := c.workspaceDir()
	if err != nil {
		return err
	}
	cl, err := c.newClient(0, c.logConfig().NewStderr())
	if err != nil {
		return err
	}
	out, pid, err := cl.Verify(ws)
	if err != nil {
		return err
	}
	if pid == 0 {
		fmt.Println("no worker recorded")
		return nil
	}
	if fp, ok := identity.Probe(pid); ok {
		if started, ok := identity.TokenWallClock(fp.StartToken); ok {
			fmt.Printf("pid %d: %s (process started %s)\n", pid, out.String(), started.Format(time.RFC3339))
			return nil
		}
	}
	fmt.Printf("pid %d: %s\n", pid, out.String())
	return nil
}

// Shutdown stops the workspace worker when one is verifiably running.
func (c command) Shutdown(ctx context.Context) error {
	ws, err := c.workspaceDir()
	if err != nil {
		return err
	}
	cl, err := c.newClient(0, c.logConfig().NewStderr())
	if err != nil {
		return err
	}
	if err := cl.Shutdown(ctx, ws); err != nil {
		return err
	}
	fmt.Println("worker stopped")
	return nil
}

// Serve runs the worker in the foreground until a signal, shutdown request or
// the idle timeout stops it. The structured log goes to a rotating file in the
// state directory; stdout and stderr are already redirected there by the
// spawning client.
func (c command) Serve() error {
	ws, err := c.workspaceDir()
	if err != nil {
		return err
	}
	cl, err := c.newClient(0, nil)
	if err != nil {
		return err
	}
	dir, err := cl.ServerDir(ws)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}
	log, closer := c.logConfig().NewFile(filepath.Join(dir, "worker.log"))
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cl.Serve(ctx, ws, log)
}
