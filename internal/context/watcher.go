package context

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"leo/internal/logging"
)

// BootstrapWatcher reloads the cached bootstrap text when any of the
// bootstrap documents change on disk.
type BootstrapWatcher struct {
	ctx       *Context
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	done      chan struct{}
	stopOnce  sync.Once
}

// NewBootstrapWatcher creates a watcher over the workspace root.
func NewBootstrapWatcher(ctx *Context) (*BootstrapWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(ctx.Workspace()); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return &BootstrapWatcher{
		ctx:       ctx,
		fsWatcher: fsWatcher,
		debounce:  500 * time.Millisecond,
		done:      make(chan struct{}),
	}, nil
}

// Start begins processing file events in the background.
func (w *BootstrapWatcher) Start() {
	go w.processEvents()
}

// Stop stops the watcher.
func (w *BootstrapWatcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	return w.fsWatcher.Close()
}

func (w *BootstrapWatcher) processEvents() {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !isBootstrapFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Editors fire bursts of events per save; coalesce them.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.ctx.ReloadBootstrap)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("bootstrap watcher error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func isBootstrapFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range BootstrapFiles {
		if base == name {
			return true
		}
	}
	return false
}
