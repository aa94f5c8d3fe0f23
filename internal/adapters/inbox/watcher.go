// Package inbox imports quote files dropped into a watched directory.
//
// A *.json file is imported once it has been quiet for the settle delay, then
// moved into processed/ or, if the import was rejected, failed/.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultSettle is how long a file must go without events before it is imported.
	DefaultSettle = 250 * time.Millisecond

	processedDir = "processed"
	failedDir    = "failed"
)

// Importer is the subset of app.QuoteService used by the watcher.
type Importer interface {
	Import(ctx context.Context, payload []byte) (int, error)
}

// Watcher watches one directory for import files.
type Watcher struct {
	dir      string
	importer Importer
	settle   time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New creates a Watcher for dir.
func New(dir string, importer Importer, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		dir:      dir,
		importer: importer,
		settle:   DefaultSettle,
		logger:   logger.With(slog.String("component", "inbox"), slog.String("dir", dir)),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run imports files already present in the directory, then watches it until
// ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{"", processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o750); err != nil {
			return fmt.Errorf("creating inbox directory: %w", err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	pending := make(map[string]time.Time)

	existing, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}

	for _, e := range existing {
		if !e.IsDir() && isImportFile(e.Name()) {
			pending[filepath.Join(w.dir, e.Name())] = time.Time{}
		}
	}

	w.logger.InfoContext(ctx, "inbox watcher started", slog.Int("pending", len(pending)))

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "inbox watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if !isImportFile(filepath.Base(event.Name)) {
				continue
			}

			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.WarnContext(ctx, "inbox watcher error", slog.Any("error", err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}

				delete(pending, path)
				w.process(ctx, path)
			}
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	logger := w.logger.With(slog.String("file", filepath.Base(path)))

	payload, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnContext(ctx, "reading inbox file failed", slog.Any("error", err))
		}

		return
	}

	n, err := w.importer.Import(ctx, payload)
	if err != nil {
		logger.WarnContext(ctx, "inbox import rejected", slog.Any("error", err))
		w.move(ctx, path, failedDir)

		return
	}

	logger.InfoContext(ctx, "inbox file imported", slog.Int("quotes", n))
	w.move(ctx, path, processedDir)
}

func (w *Watcher) move(ctx context.Context, path, sub string) {
	target := filepath.Join(w.dir, sub, time.Now().UTC().Format("20060102T150405.000000000")+"-"+filepath.Base(path))

	if err := os.Rename(path, target); err != nil {
		w.logger.ErrorContext(ctx, "moving inbox file failed",
			slog.String("file", path), slog.String("target", target), slog.Any("error", err))
	}
}

// isImportFile matches visible *.json files. Dotfiles are skipped so that
// atomic writers can stage into the directory.
func isImportFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json") && !strings.HasPrefix(name, ".")
}
