// Package watch re-runs the pipeline when the contract source tree changes,
// with optional periodic redeploys.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wasmship/wasmship/internal/logfields"
)

// Watcher monitors source paths and invokes a callback once changes settle.
type Watcher struct {
	paths    []string
	debounce time.Duration
	run      func(ctx context.Context)
	watcher  *fsnotify.Watcher
}

// New creates a watcher over the given paths. The run callback is invoked
// after a burst of filesystem events has been quiet for the debounce period.
func New(paths []string, debounce time.Duration, run func(ctx context.Context)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		paths:    paths,
		debounce: debounce,
		run:      run,
		watcher:  fsw,
	}, nil
}

// Start registers the watched paths (directories recursively) and begins the
// event loop in a goroutine. It returns once watches are established.
func (w *Watcher) Start(ctx context.Context) error {
	for _, p := range w.paths {
		if err := w.addRecursive(p); err != nil {
			return err
		}
		slog.Info("Watching for changes", logfields.Path(p))
	}
	go w.loop(ctx)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch path %s: %w", root, err)
	}
	if !info.IsDir() {
		if err := w.watcher.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watches.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		case <-fire:
			timer = nil
			fire = nil
			w.run(ctx)
		}
	}
}
