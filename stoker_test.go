package stoker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWithDefaults(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c == nil {
		t.Fatal("nil client")
	}
}

func TestNewWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stoker.toml")
	content := "output_root = \"" + filepath.ToSlash(t.TempDir()) + "\"\naddr = \"127.0.0.1:0\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir, err := c.ServerDir("/work/project")
	if err != nil {
		t.Fatalf("ServerDir: %v", err)
	}
	if dir == "" {
		t.Fatal("empty server dir")
	}
}

func TestNewBadConfigPath(t *testing.T) {
	if _, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestDefaultDigestStable(t *testing.T) {
	a := DefaultDigest([]byte("/work/project"))
	b := DefaultDigest([]byte("/work/project"))
	if a != b {
		t.Fatalf("digest not deterministic: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("digest length = %d, want 16 hex chars", len(a))
	}
	if a == DefaultDigest([]byte("/work/other")) {
		t.Fatal("distinct inputs collided")
	}
}

func TestVerifyNoWorker(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, pid, err := c.Verify(t.TempDir())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out != Stale || pid != 0 {
		t.Fatalf("verdict = %v pid = %d, want Stale/0", out, pid)
	}
}

func TestShutdownNoWorker(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Shutdown(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
