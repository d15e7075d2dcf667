package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

type pathStore interface {
	Path() string
}

// Watch reloads all sections whenever the config file changes, until ctx is
// done. The parent directory is watched so atomic rename-on-save is seen.
// Reload errors go to onError; the previous values stay in effect.
func (m *Manager) Watch(ctx context.Context, onError func(error)) error {
	ps, ok := m.store.(pathStore)
	if !ok {
		return fmt.Errorf("config store does not expose a file path")
	}
	path := filepath.Clean(ps.Path())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	go m.processEvents(ctx, watcher, path, onError)
	return nil
}

func (m *Manager) processEvents(ctx context.Context, watcher *fsnotify.Watcher, path string, onError func(error)) {
	defer watcher.Close()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce = time.After(watchDebounce)
			}

		case <-debounce:
			debounce = nil
			if err := m.LoadAll(); err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			m.notifyReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
