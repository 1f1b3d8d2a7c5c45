// Package watcher ingests documents dropped into a folder.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/siherrmann/paperqa/core/extract"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// DefaultDebounce is how long a file has to stay unchanged before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Ingester ingests a file from disk.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*model.IngestManifest, error)
}

// fileState identifies one version of a file.
type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher ingests supported files created or written in a directory. Every
// version of a file is ingested once.
type Watcher struct {
	watcher  *fsnotify.Watcher
	ingester Ingester
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]fileState
	ready   chan string
}

// NewWatcher creates a watcher feeding ingester. A debounce of 0 uses DefaultDebounce.
func NewWatcher(ingester Ingester, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, helper.NewError("create fsnotify watcher", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		watcher:  w,
		ingester: ingester,
		debounce: debounce,
		log:      logger,
		pending:  map[string]*time.Timer{},
		seen:     map[string]fileState{},
		ready:    make(chan string, 100),
	}, nil
}

// Watch ingests files of dir until ctx is done or the watcher is closed.
// With existing set, files already in dir are ingested first.
func (w *Watcher) Watch(ctx context.Context, dir string, existing bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.watcher.Add(dir); err != nil {
		return helper.NewError("watch directory", err)
	}

	if existing {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return helper.NewError("read directory", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				w.schedule(ctx, filepath.Join(dir, entry.Name()))
			}
		}
	}

	w.log.Info("Watching directory", slog.String("dir", dir), slog.Bool("existing", existing))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case path := <-w.ready:
				w.ingest(ctx, path)
			}
		}
	}()
	defer wg.Wait()
	defer cancel()
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// schedule (re)starts the debounce timer of path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !watched(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	state := fileState{modTime: info.ModTime(), size: info.Size()}
	w.mu.Lock()
	if w.seen[path] == state {
		w.mu.Unlock()
		return
	}
	w.seen[path] = state
	w.mu.Unlock()

	manifest, err := w.ingester.IngestFile(ctx, path)
	if err != nil {
		w.log.Error("Failed to ingest file", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	w.log.Info("Ingested file", slog.String("path", path), slog.Int64("paper_id", manifest.PaperID), slog.Int("num_chunks", manifest.ChunkCount))
}

// watched reports whether path is a supported, non-temporary document.
func watched(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	return extract.IsSupported(name)
}
