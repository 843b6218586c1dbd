package registry

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch fires onChange whenever connections.json is rewritten by another
// process, until ctx is canceled. Watcher errors are logged and the loop
// keeps running; a failure to create the watcher is returned.
func (r *Registry) Watch(ctx context.Context, onChange func()) error {
	if err := r.ensureDataDir(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &StorageError{Op: "failed to watch", Path: r.dir, Err: err}
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return &StorageError{Op: "failed to watch", Path: r.dir, Err: err}
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != connectionsFile {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				r.logger.Debug("connections file changed", slog.String("op", event.Op.String()))
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("registry watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
