//go:build windows

package spawn

import (
	"os/exec"
	"syscall"
)

const (
	createNewProcessGroup = 0x00000200
	detachedProcess       = 0x00000008
)

// DefaultConfigurator detaches the worker from the client's console and puts
// it in its own process group so console control events do not reach it.
func DefaultConfigurator(cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNewProcessGroup | detachedProcess,
	}
	return nil
}
