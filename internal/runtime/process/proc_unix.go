//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

const groupSignals = true

func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func (c *child) SignalGraceful() error {
	if c.cmd.Process == nil {
		return nil
	}
	// ESRCH means the group is already gone; the exit notification will
	// arrive through Done on its own.
	if err := syscall.Kill(-c.cmd.Process.Pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %s: %w", c.name, err)
	}
	return nil
}

func (c *child) SignalForceful() error {
	if c.cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-c.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %s: %w", c.name, err)
	}
	return nil
}
