package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devharness/relaunch/internal/events"
)

func startWatcher(t *testing.T, dir string, debounce time.Duration) chan events.RebuildEvent {
	t.Helper()
	bus := events.New()
	received := make(chan events.RebuildEvent, 16)
	unsubscribe := bus.SubscribeRebuild(func(e events.RebuildEvent) {
		received <- e
	})
	t.Cleanup(unsubscribe)

	w := New(bus, []string{dir}, WithDebounce(debounce), WithErrorHandler(func(err error) {
		t.Logf("watch error: %v", err)
	}))
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return received
}

func TestWatcherCoalescesBurstIntoOneEvent(t *testing.T) {
	dir := t.TempDir()
	received := startWatcher(t, dir, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "artifact.js")
		require.NoError(t, os.WriteFile(name, []byte("build output"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for rebuild notification")
	}

	// The burst is over; the quiet window must not produce another one.
	select {
	case e := <-received:
		t.Fatalf("unexpected second notification for %q", e.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherReportsChangedPath(t *testing.T) {
	dir := t.TempDir()
	received := startWatcher(t, dir, 50*time.Millisecond)

	target := filepath.Join(dir, "bundle.css")
	require.NoError(t, os.WriteFile(target, []byte("body{}"), 0o644))

	select {
	case e := <-received:
		require.Equal(t, target, e.Path)
		require.False(t, e.Timestamp.IsZero())
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for rebuild notification")
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	received := startWatcher(t, dir, 50*time.Millisecond)

	sub := filepath.Join(dir, "chunks")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Creation of the directory itself fires a notification.
	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for directory creation notification")
	}

	// Give the watcher a moment to register the new directory, then write
	// inside it.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "0.js"), []byte("x"), 0o644))

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for nested write notification")
	}
}

func TestWatcherStartFailsOnMissingPath(t *testing.T) {
	bus := events.New()
	w := New(bus, []string{filepath.Join(t.TempDir(), "absent")})
	require.Error(t, w.Start())
}
