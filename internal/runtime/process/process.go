package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/devharness/relaunch/internal/runtime"
)

type runtimeImpl struct{}

// New constructs a runtime that executes commands as local processes.
func New() runtime.Runtime {
	return &runtimeImpl{}
}

func (r *runtimeImpl) GroupSignals() bool {
	return groupSignals
}

func (r *runtimeImpl) Start(ctx context.Context, spec runtime.StartSpec) (runtime.Handle, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("process runtime for %s requires a command", spec.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}

	env := os.Environ()
	if len(spec.Env) > 0 {
		overrides := make([]string, 0, len(spec.Env))
		for k, v := range spec.Env {
			overrides = append(overrides, fmt.Sprintf("%s=%s", k, v))
		}
		env = append(env, overrides...)
	}
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdout: %w", spec.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stderr: %w", spec.Name, err)
	}

	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	c := &child{
		name: spec.Name,
		cmd:  cmd,
		logs: make(chan runtime.LogEntry, 64),
		done: make(chan error, 1),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go c.streamLogs(stdout, runtime.LogSourceStdout, &wg)
	go c.streamLogs(stderr, runtime.LogSourceStderr, &wg)
	go func() {
		wg.Wait()
		close(c.logs)
	}()

	go func() {
		c.done <- cmd.Wait()
		close(c.done)
	}()

	return c, nil
}

type child struct {
	name string
	cmd  *exec.Cmd
	logs chan runtime.LogEntry
	done chan error
}

func (c *child) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

func (c *child) Done() <-chan error {
	return c.done
}

func (c *child) Logs() <-chan runtime.LogEntry {
	return c.logs
}

func (c *child) streamLogs(r io.Reader, source string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		entry := runtime.LogEntry{Message: line, Source: source}
		if source == runtime.LogSourceStderr {
			entry.Level = "warn"
		}
		c.logs <- entry
	}
}
