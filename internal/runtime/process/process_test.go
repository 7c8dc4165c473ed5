package process

import (
	"context"
	"errors"
	goruntime "runtime"
	"testing"
	"time"

	"github.com/devharness/relaunch/internal/runtime"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("requires a POSIX shell and group signals")
	}
}

func collectLogs(t *testing.T, h runtime.Handle) []runtime.LogEntry {
	t.Helper()
	var entries []runtime.LogEntry
	deadline := time.After(5 * time.Second)
	for {
		select {
		case entry, ok := <-h.Logs():
			if !ok {
				return entries
			}
			entries = append(entries, entry)
		case <-deadline:
			t.Fatal("timed out draining logs")
		}
	}
}

func TestStartCapturesOutput(t *testing.T) {
	requireUnix(t)
	rt := New()

	h, err := rt.Start(context.Background(), runtime.StartSpec{
		Name:    "echo",
		Command: runtime.ShellCommand("echo out-line; echo err-line >&2"),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	entries := collectLogs(t, h)

	var sawStdout, sawStderr bool
	for _, e := range entries {
		switch {
		case e.Source == runtime.LogSourceStdout && e.Message == "out-line":
			sawStdout = true
		case e.Source == runtime.LogSourceStderr && e.Message == "err-line":
			if e.Level != "warn" {
				t.Fatalf("stderr entry level = %q, want warn", e.Level)
			}
			sawStderr = true
		}
	}
	if !sawStdout || !sawStderr {
		t.Fatalf("missing output lines, got %+v", entries)
	}

	select {
	case err := <-h.Done():
		if err != nil {
			t.Fatalf("unexpected exit error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for exit")
	}
}

func TestStartAppliesEnvAndDir(t *testing.T) {
	requireUnix(t)
	rt := New()
	dir := t.TempDir()

	h, err := rt.Start(context.Background(), runtime.StartSpec{
		Name:    "env",
		Command: runtime.ShellCommand("echo $GREETING from $PWD"),
		Dir:     dir,
		Env:     map[string]string{"GREETING": "hello"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	entries := collectLogs(t, h)
	want := "hello from " + dir
	found := false
	for _, e := range entries {
		if e.Message == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q in output, got %+v", want, entries)
	}
	<-h.Done()
}

func TestGracefulSignalStopsProcessGroup(t *testing.T) {
	requireUnix(t)
	rt := New()
	if !rt.GroupSignals() {
		t.Fatal("expected group signal support on this platform")
	}

	h, err := rt.Start(context.Background(), runtime.StartSpec{
		Name:    "sleeper",
		Command: runtime.ShellCommand("sleep 30"),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.Pid() <= 0 {
		t.Fatalf("expected positive pid, got %d", h.Pid())
	}

	if err := h.SignalGraceful(); err != nil {
		t.Fatalf("graceful signal: %v", err)
	}

	select {
	case err := <-h.Done():
		if err == nil {
			t.Fatal("expected a signal exit error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process ignored the termination signal")
	}

	// Signalling after exit reports nothing: the group is gone.
	if err := h.SignalGraceful(); err != nil {
		t.Fatalf("signal after exit: %v", err)
	}
}

func TestForcefulSignalStopsProcessGroup(t *testing.T) {
	requireUnix(t)
	rt := New()

	// Trap TERM so only the forceful signal can end it.
	h, err := rt.Start(context.Background(), runtime.StartSpec{
		Name:    "stubborn",
		Command: runtime.ShellCommand("trap '' TERM; sleep 30"),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Let the shell install its trap before signalling.
	time.Sleep(200 * time.Millisecond)

	if err := h.SignalGraceful(); err != nil {
		t.Fatalf("graceful signal: %v", err)
	}
	select {
	case <-h.Done():
		t.Fatal("process exited on the trapped termination signal")
	case <-time.After(300 * time.Millisecond):
	}

	if err := h.SignalForceful(); err != nil {
		t.Fatalf("forceful signal: %v", err)
	}
	select {
	case err := <-h.Done():
		if err == nil {
			t.Fatal("expected a signal exit error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process survived the kill signal")
	}
}

func TestStartRejectsEmptyCommand(t *testing.T) {
	rt := New()
	_, err := rt.Start(context.Background(), runtime.StartSpec{Name: "empty"})
	if err == nil {
		t.Fatal("expected an error for an empty command")
	}
}

func TestStartHonorsCancelledContext(t *testing.T) {
	rt := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rt.Start(ctx, runtime.StartSpec{Name: "late", Command: runtime.ShellCommand("true")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStartFailsForMissingBinary(t *testing.T) {
	rt := New()
	_, err := rt.Start(context.Background(), runtime.StartSpec{
		Name:    "absent",
		Command: []string{"/nonexistent/definitely-not-a-binary"},
	})
	if err == nil {
		t.Fatal("expected a spawn error")
	}
}
