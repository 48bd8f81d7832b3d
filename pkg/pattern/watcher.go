package pattern

import (
	"context"
	"fmt"
	"path/filepath"

	"gopkg.in/fsnotify.v1"
)

// Watcher reloads a rule file whenever it changes on disk and hands the
// result to a callback. The parent directory is watched so that editors
// which replace the file by rename are still noticed.
type Watcher struct {
	path     string
	onChange func(*Dictionary, error)
	watcher  *fsnotify.Watcher
}

// NewWatcher prepares a watcher for path. onChange receives either the
// freshly loaded dictionary or the load error.
func NewWatcher(path string, onChange func(*Dictionary, error)) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watcher requires a change callback")
	}

	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(absolutePath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watching directory %s: %w", filepath.Dir(absolutePath), err)
	}

	return &Watcher{
		path:     absolutePath,
		onChange: onChange,
		watcher:  fsWatcher,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run dispatches reloads until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.onChange(LoadFile(w.path))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.onChange(nil, fmt.Errorf("watch error: %w", err))
		}
	}
}

// Close stops the underlying file system watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
