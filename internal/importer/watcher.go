package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// DefaultWatchDebounce is how long a file must be quiet before it is imported.
const DefaultWatchDebounce = 500 * time.Millisecond

// ImportHook is called once per file the watcher imports.
type ImportHook func(path string, result *Result, err error)

// Watcher imports every *.csv file created or written in a directory once it
// has stopped changing for the debounce period.
type Watcher struct {
	importer *Importer
	dir      string
	debounce time.Duration
	hook     ImportHook
	log      logger.Logger

	pendingMu sync.Mutex
	pending   map[string]time.Time // path -> last event

	// modification time of each file at its last import
	imported map[string]time.Time
}

// NewWatcher creates a watcher for dir. A non-positive debounce uses
// DefaultWatchDebounce; hook may be nil.
func (im *Importer) NewWatcher(dir string, debounce time.Duration, hook ImportHook) *Watcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &Watcher{
		importer: im,
		dir:      dir,
		debounce: debounce,
		hook:     hook,
		log:      im.log.With(logger.String("watch_dir", dir)),
		pending:  make(map[string]time.Time),
		imported: make(map[string]time.Time),
	}
}

// Run watches the directory until ctx is cancelled. Failed imports are logged
// and reported to the hook; they do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(err).
			Component(componentImporter).
			Category(errors.CategoryFileIO).
			Build()
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return errors.New(err).
			Component(componentImporter).
			Category(errors.CategoryFileIO).
			Context("dir", w.dir).
			Build()
	}

	w.log.Info("watching for CSV files", logger.Duration("debounce", w.debounce))

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", logger.Error(err))

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				w.importFile(ctx, path)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = time.Now()
	w.pendingMu.Unlock()
}

// due removes and returns the pending paths that have been quiet long enough.
func (w *Watcher) due(now time.Time) []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	var paths []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	return paths
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	modTime, ok := fileModTime(path)
	if !ok {
		return
	}
	if prev, seen := w.imported[path]; seen && prev.Equal(modTime) {
		return
	}

	result, err := w.importer.ImportFrom(ctx, FileOpener{}, path)
	w.imported[path] = modTime
	if err != nil {
		w.log.Error("watched file import failed", logger.String("path", path), logger.Error(err))
	}
	if w.hook != nil {
		w.hook(path, result, err)
	}
}

func fileModTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
