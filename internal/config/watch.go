package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow absorbs the write-then-rename sequence editors and
// config-management tools often produce for a single logical save.
const debounceWindow = 200 * time.Millisecond

// Watcher hot-reloads the tunables file without a restart. It never touches
// the connection settings — those are environment-only and fixed for the
// process lifetime.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	onChange func(Tunables)
}

// WatchTunables starts watching path for changes and invokes onChange with
// the newly parsed Tunables each time the file settles after a write.
// Environment variable overrides are re-applied on top of every reload, so
// an operator's env still wins even after a file edit.
func WatchTunables(ctx context.Context, path string, logger *slog.Logger, onChange func(Tunables)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, fsw: fsw, logger: logger, onChange: onChange}
	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			_ = w.fsw.Close()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, w.reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("failed to re-read tunables file", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}
	tunables := DefaultTunables()
	cfg := &Config{Tunables: tunables}
	if err := cfg.loadTunablesYAMLBytes(data); err != nil {
		w.logger.Warn("failed to parse tunables file after change", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}
	cfg.applyEnvOverrides()
	w.logger.Info("tunables file reloaded", slog.String("path", w.path))
	w.onChange(cfg.Tunables)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
