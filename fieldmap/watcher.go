package fieldmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ErrEmptyFieldMap is returned when a reload finds a file with no mappings.
// Editors truncate a file before writing it, so this is usually a transient
// state rather than an intended change.
var ErrEmptyFieldMap = errors.New("field map file is empty")

// Watcher keeps a Map in sync with a YAML file on disk.
// Readers always see a complete map: reloads build a new Map and swap it in.
type Watcher struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Map]
}

// NewWatcher loads path once and returns a Watcher serving it.
// Call Run to follow later changes.
func NewWatcher(logger *slog.Logger, path string) (*Watcher, error) {
	w := &Watcher{path: path, logger: logger}

	if err := w.reload(true); err != nil {
		return nil, err
	}

	return w, nil
}

// FieldMap returns the most recently loaded map.
func (w *Watcher) FieldMap() Map {
	return *w.current.Load()
}

func (w *Watcher) reload(allowEmpty bool) error {
	m, err := Load(w.path)
	if err != nil {
		return err
	}

	if len(m) == 0 && !allowEmpty {
		return ErrEmptyFieldMap
	}

	w.current.Store(&m)

	return nil
}

// Run watches the file until ctx is cancelled. A file that fails to load,
// or loads with no mappings, is logged and the previous map stays in use.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing to it, which gives it
	// a new inode. Watching the directory survives that.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("cannot add directory to watcher: %w", err)
	}

	name := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				w.logger.Debug("fsnotify watcher channel is closed.")
				return nil
			}

			if filepath.Clean(event.Name) != name {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				w.logger.Debug("received unhandled event from fsnotify.", "event", event.String())
				continue
			}

			if err := w.reload(false); err != nil {
				w.logger.Error("failed to reload field map. keeping previous one.", "path", w.path, "error", err)
				continue
			}

			w.logger.Info("reloaded field map.", "path", w.path, "fields", len(w.FieldMap()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
