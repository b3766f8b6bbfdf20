package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Op describes what happened to a snapshot.
type Op string

const (
	OpUpdated Op = "updated"
	OpRemoved Op = "removed"
)

// Change reports a snapshot appearing, changing or disappearing.
type Change struct {
	Service string `json:"service"`
	Op      Op     `json:"op"`
}

// Watcher reports snapshot changes in a topology directory on the OS filesystem.
type Watcher struct {
	dir      string
	onChange func(Change)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher for dir that calls onChange for every snapshot event.
func NewWatcher(dir string, onChange func(Change)) *Watcher {
	return &Watcher{dir: dir, onChange: onChange}
}

// Start begins watching. The directory is created if needed. Watching stops when ctx
// is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create topology directory %s: %w", w.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	go w.run(ctx, watcher, w.done)

	slog.Debug("Started topology directory watcher", "directory", w.dir)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	watcher, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer slog.Debug("Topology directory watcher stopped", "directory", w.dir)

	for {
		select {
		case <-ctx.Done():
			watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if change, ok := changeFor(event); ok {
				w.onChange(change)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Topology directory watcher error", "error", err)
		}
	}
}

// changeFor maps a raw file event onto a snapshot change. URL files and temp files
// are ignored.
func changeFor(event fsnotify.Event) (Change, bool) {
	base := filepath.Base(event.Name)
	if filepath.Ext(base) != snapshotExt || strings.HasPrefix(base, ".") {
		return Change{}, false
	}
	service := strings.TrimSuffix(base, snapshotExt)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Change{Service: service, Op: OpRemoved}, true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return Change{Service: service, Op: OpUpdated}, true
	}
	return Change{}, false
}
