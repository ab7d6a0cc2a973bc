// Package watch keeps the symbol index fresh by re-parsing source
// files as they change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"astscope/internal/lang"
	"astscope/internal/logging"
	"astscope/internal/scan"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the paths whose events have settled past the
// debounce window. Deleted files are included; the handler decides
// how to treat them.
type Handler func(ctx context.Context, paths []string)

// Stats tracks watcher activity for debugging.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Batches       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// Watcher monitors a workspace for source file changes and invokes a
// handler with debounced batches of changed paths.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	root        string
	registry    *lang.Registry
	config      *scan.Config
	handler     Handler
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// New creates a watcher over root. Events are routed through registry
// extension checks and the scan config's ignore patterns, so the
// watcher and the scanner agree on what counts as a source file.
func New(root string, registry *lang.Registry, config *scan.Config, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		root:        root,
		registry:    registry,
		config:      config,
		handler:     handler,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Batch rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a
// goroutine until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("Watching %s (%d dirs)", w.root, len(w.watcher.WatchList()))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
// Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("Failed to close watcher: %v", err)
	}
	logging.Watch("Watcher stopped")
}

// IsRunning reports whether the event loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats returns a snapshot of the watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// addRecursive registers root and every non-ignored subdirectory.
// fsnotify watches are not recursive on Linux.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && scan.IsIgnored(rel, d.Name(), w.config.IgnorePatterns) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			logging.Get(logging.CategoryWatch).Warn("Failed to watch %s: %v", path, addErr)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("Context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("Watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flushDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories need their own watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			rel, relErr := filepath.Rel(w.root, event.Name)
			if relErr != nil || !scan.IsIgnored(rel, filepath.Base(event.Name), w.config.IgnorePatterns) {
				if err := w.watcher.Add(event.Name); err != nil {
					logging.Get(logging.CategoryWatch).Warn("Failed to watch new dir %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !w.registry.HasParser(event.Name) {
		return
	}
	if rel, err := filepath.Rel(w.root, event.Name); err == nil &&
		scan.IsIgnored(rel, filepath.Base(event.Name), w.config.IgnorePatterns) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Op&fsnotify.Create != 0:
		w.stats.FilesCreated++
	case event.Op&fsnotify.Write != 0:
		w.stats.FilesModified++
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.stats.FilesDeleted++
	default:
		return // chmod etc.
	}

	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.debounceMap[event.Name] = time.Now()
	logging.WatchDebug("Event %s for %s", event.Op, event.Name)
}

// flushDebounced hands settled paths to the handler.
func (w *Watcher) flushDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	if len(settled) > 0 {
		w.stats.Batches++
	}
	handler := w.handler
	w.mu.Unlock()

	if len(settled) == 0 || handler == nil {
		return
	}
	logging.Watch("Dispatching %d changed file(s)", len(settled))
	handler(ctx, settled)
}
