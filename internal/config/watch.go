package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

// Watch reloads the config file at path whenever it changes and hands every
// successfully parsed result to apply. Parse failures are logged and skipped.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, apply func(Loaded)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory rather than the file.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %q: %w", dir, err)
	}

	target := filepath.Clean(path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}

		case <-pending:
			pending = nil
			loaded, err := LoadFile(path)
			if err != nil {
				if logger != nil {
					logger.Warn("config reload failed; keeping previous settings", "path", path, "error", err.Error())
				}
				continue
			}
			if !loaded.Exists {
				continue
			}
			if logger != nil {
				logger.Info("config reloaded", "path", path)
			}
			apply(loaded)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("config watcher error", "error", err.Error())
			}
		}
	}
}
