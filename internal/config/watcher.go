package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the settings file when it changes on disk. The directory
// is watched rather than the file so editors that save by rename are seen.
type Watcher struct {
	m       *Manager
	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for m's settings file.
func NewWatcher(m *Manager) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(filepath.Dir(m.Path())); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		m:       m,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// Start starts watching for config file changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watch()
}

// Stop stops the config watcher
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) watch() {
	defer w.wg.Done()
	target := filepath.Clean(w.m.Path())
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("[config] watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if err := w.m.Load(); err != nil {
		slog.Warn("[config] reload rejected, keeping current settings", "error", err)
		return
	}
	slog.Debug("[config] settings file changed", "path", w.m.Path())
}
