//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

const groupSignals = false

func configureSysProcAttr(cmd *exec.Cmd) {}

func (c *child) SignalGraceful() error {
	// Console control events cannot be delivered to a whole child tree
	// reliably, so the graceful phase is not offered on this platform.
	return errors.New("graceful group signalling is not supported on windows")
}

func (c *child) SignalForceful() error {
	if c.cmd.Process == nil {
		return nil
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %s: %w", c.name, err)
	}
	return nil
}
