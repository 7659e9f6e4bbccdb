package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestBuildRootSubcommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{
		"ensure":   false,
		"status":   false,
		"verify":   false,
		"shutdown": false,
		"serve":    false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestServeCommandHidden(t *testing.T) {
	for _, cmd := range buildRoot().Commands() {
		if cmd.Name() == "serve" && !cmd.Hidden {
			t.Error("serve should be hidden")
		}
	}
}

func TestWorkspaceDirDefaultsToCwd(t *testing.T) {
	c := command{flags: &GlobalFlags{}}
	ws, err := c.workspaceDir()
	if err != nil {
		t.Fatalf("workspaceDir: %v", err)
	}
	wd, _ := os.Getwd()
	abs, _ := filepath.Abs(wd)
	if ws != abs {
		t.Errorf("workspace = %q, want %q", ws, abs)
	}
}

func TestWorkspaceDirFlagWins(t *testing.T) {
	dir := t.TempDir()
	c := command{flags: &GlobalFlags{Workspace: dir}}
	ws, err := c.workspaceDir()
	if err != nil {
		t.Fatalf("workspaceDir: %v", err)
	}
	if ws != dir {
		t.Errorf("workspace = %q, want %q", ws, dir)
	}
}

func TestVerifyNoWorkerRecorded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("HOME override not applicable on windows")
	}
	t.Setenv("HOME", t.TempDir())

	c := command{flags: &GlobalFlags{Workspace: t.TempDir()}}
	if err := c.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestLogConfigWithoutConfigFile(t *testing.T) {
	c := command{flags: &GlobalFlags{}}
	lc := c.logConfig()
	if lc.Level != "" {
		t.Errorf("unexpected level %q", lc.Level)
	}
}
