// Package watch turns filesystem changes under the build output paths into
// rebuild-completed notifications on the event bus.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devharness/relaunch/internal/events"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher observes the configured artifact paths and publishes a single
// RebuildEvent per burst of changes.
type Watcher struct {
	paths    []string
	debounce time.Duration
	bus      *events.Bus
	onError  func(error)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window for bursts of file changes.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler sets a callback for watch errors. If not set, errors are
// dropped.
func WithErrorHandler(handler func(error)) Option {
	return func(w *Watcher) {
		w.onError = handler
	}
}

// New creates a watcher that publishes rebuild notifications on bus whenever
// files under paths change.
func New(bus *events.Bus, paths []string, opts ...Option) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		paths:    append([]string(nil), paths...),
		debounce: defaultDebounce,
		bus:      bus,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching the configured paths. Directories are watched
// recursively; directories created later are picked up as they appear.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	for _, path := range w.paths {
		if err := w.add(path); err != nil {
			watcher.Close()
			return err
		}
	}

	go w.watch()
	return nil
}

// Stop stops watching and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
}

func (w *Watcher) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time
	var last fsnotify.Event

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.add(event.Name)
				}
			}
			last = event
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.bus.PublishRebuild(events.RebuildEvent{
				Path:      last.Name,
				Op:        last.Op.String(),
				Timestamp: time.Now(),
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}
