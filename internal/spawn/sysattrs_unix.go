//go:build !windows

package spawn

import (
	"os/exec"
	"syscall"
)

// DefaultConfigurator starts the worker in a new session (setsid) so it is
// detached from the client's controlling terminal and survives client exit.
func DefaultConfigurator(cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return nil
}
