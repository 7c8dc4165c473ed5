package runtime

import (
	"context"
	goruntime "runtime"
)

// Log sources attached to entries emitted by a running instance.
const (
	LogSourceStdout = "stdout"
	LogSourceStderr = "stderr"
	LogSourceSystem = "system"
)

// LogEntry is a single line of output captured from a running instance.
type LogEntry struct {
	Message string
	Level   string
	Source  string
}

// StartSpec describes the command a runtime should launch.
type StartSpec struct {
	Name    string
	Command []string
	Dir     string
	Env     map[string]string
}

// Handle represents a single launched instance. Signalling is
// fire-and-forget; the outcome is observed through Done.
type Handle interface {
	// Pid returns the OS process id of the instance.
	Pid() int

	// Done delivers the instance's exit result exactly once and is then
	// closed. A nil value means the process exited cleanly.
	Done() <-chan error

	// Logs returns a channel of output lines. The channel is closed once
	// both output streams reach EOF.
	Logs() <-chan LogEntry

	// SignalGraceful asks the instance, and its descendants where the
	// platform supports group delivery, to shut down. The instance may
	// intercept the request; exit is observed via Done.
	SignalGraceful() error

	// SignalForceful terminates the instance without giving it a chance
	// to react. Best-effort; exit is observed via Done.
	SignalForceful() error
}

// Runtime describes a backend capable of launching supervised commands.
type Runtime interface {
	// Start launches the provided command and returns a handle to the
	// running instance.
	Start(ctx context.Context, spec StartSpec) (Handle, error)

	// GroupSignals reports whether graceful signals reach the entire
	// process group reliably on this platform. When false, callers should
	// skip the graceful phase and terminate forcefully.
	GroupSignals() bool
}

// ShellCommand wraps a manifest script line in the platform's command
// interpreter so scripts behave the way script runners expect.
func ShellCommand(script string) []string {
	if goruntime.GOOS == "windows" {
		return []string{"cmd", "/c", script}
	}
	return []string{"/bin/sh", "-c", script}
}
