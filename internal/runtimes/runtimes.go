// Package runtimes locates a managed runtime installation the worker may need
// at startup. An explicit environment override wins; otherwise the runtime's
// well-known binary is searched on PATH, symlinks are resolved, and the
// installation root is taken two directories above the binary
// (<root>/bin/<tool>).
package runtimes

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Discovery describes how to find one runtime.
type Discovery struct {
	// EnvVar names the override variable, e.g. "STOKER_JAVA_HOME".
	EnvVar string
	// Tool is the binary searched on PATH when the override is unset,
	// e.g. "javac".
	Tool string
}

// Resolve returns the runtime installation directory, or an error when the
// override is unset and the tool cannot be found or canonicalized. Discovery
// runs once at worker-startup configuration time; it is not part of the
// identity protocol.
func (d Discovery) Resolve() (string, error) {
	if d.EnvVar != "" {
		if home := os.Getenv(d.EnvVar); home != "" {
			return home, nil
		}
	}
	if d.Tool == "" {
		return "", fmt.Errorf("runtimes: no override in %s and no tool to search for", d.EnvVar)
	}
	found, err := exec.LookPath(d.Tool)
	if err != nil {
		return "", fmt.Errorf("runtimes: %s not found on PATH: %w", d.Tool, err)
	}
	resolved, err := filepath.EvalSymlinks(found)
	if err != nil {
		return "", fmt.Errorf("runtimes: resolve symlinks for %s: %w", found, err)
	}
	return filepath.Dir(filepath.Dir(resolved)), nil
}
