package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherOptions configures directory watching.
type WatcherOptions struct {
	// Debounce is how long to accumulate change events before ingesting.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`

	// Extensions lists file extensions to ingest, dot included.
	Extensions []string `json:"extensions" yaml:"extensions"`

	// ExcludeDirs lists directory names skipped during watching.
	ExcludeDirs []string `json:"exclude_dirs" yaml:"exclude_dirs"`
}

// DefaultWatcherOptions returns the production defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		Debounce:    500 * time.Millisecond,
		Extensions:  []string{".md", ".txt"},
		ExcludeDirs: []string{".git", "node_modules", "vendor"},
	}
}

// Watcher re-ingests documents in a directory whenever they change. Events
// are debounced and deduplicated by content hash, so editor save storms and
// touch-without-change are ignored.
type Watcher struct {
	dir      string
	opts     WatcherOptions
	pipeline *Pipeline
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	extensions map[string]bool
	excludes   map[string]bool

	mu      sync.Mutex
	pending map[string]struct{}
	hashes  map[string]string
}

// NewWatcher creates a watcher over dir that feeds changed files into the
// pipeline.
func NewWatcher(dir string, opts WatcherOptions, pipeline *Pipeline, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultWatcherOptions().Extensions
	}
	if len(opts.ExcludeDirs) == 0 {
		opts.ExcludeDirs = DefaultWatcherOptions().ExcludeDirs
	}

	extensions := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}

	excludes := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excludes[d] = true
	}

	return &Watcher{
		dir:        dir,
		opts:       opts,
		pipeline:   pipeline,
		fsw:        fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]struct{}),
		hashes:     make(map[string]string),
	}, nil
}

// Run watches until the context is cancelled. It blocks; run it in a
// goroutine when the caller has other work.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	if err := w.addWatchesRecursive(w.dir); err != nil {
		return err
	}
	defer w.fsw.Close()

	w.logger.Info("watching directory",
		slog.String("dir", w.dir),
		slog.Duration("debounce", w.opts.Debounce))

	ticker := time.NewTicker(w.opts.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// addWatchesRecursive registers every non-excluded directory under root.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}

		if werr := w.fsw.Add(path); werr != nil {
			w.logger.Warn("cannot watch directory",
				slog.String("path", path),
				slog.String("error", werr.Error()))
		}
		return nil
	})
}

// handleEvent queues matching files and registers new directories.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	ext := strings.ToLower(filepath.Ext(path))
	if !w.extensions[ext] {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				base := filepath.Base(path)
				if !w.excludes[base] && !strings.HasPrefix(base, ".") {
					_ = w.fsw.Add(path)
				}
			}
		}
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.hashes, path)
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()
}

// flush ingests accumulated changes whose content actually differs.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	for _, path := range batch {
		if ctx.Err() != nil {
			return
		}

		content, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				w.logger.Warn("cannot read changed file",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
			continue
		}

		hash := ContentHash(content)
		w.mu.Lock()
		unchanged := w.hashes[path] == hash
		w.hashes[path] = hash
		w.mu.Unlock()
		if unchanged {
			continue
		}

		result, err := w.pipeline.IngestFile(ctx, path)
		if err != nil {
			w.logger.Error("ingest failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}

		w.logger.Info("file ingested",
			slog.String("path", path),
			slog.String("job_id", result.JobID),
			slog.Int("chunks", len(result.Chunks)))
	}
}
