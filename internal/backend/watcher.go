package backend

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/aixkai/naiveproxy/internal/cache"
)

// Watch reloads snapshot files into the store as they change on disk,
// so a cache directory can be edited while the backend is serving. It
// requires a successful Initialize and returns a stop function.
//
// fsnotify does not watch recursively, so every subdirectory is added
// individually and directories created later are picked up from their
// create events.
func (b *Backend) Watch() (func(), error) {
	b.mu.Lock()
	cacheDir := b.cacheDir
	initialized := b.initialized
	b.mu.Unlock()
	if !initialized {
		return nil, ErrNotInitialized
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating cache watcher: %w", err)
	}

	err = filepath.WalkDir(cacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", cacheDir, err)
	}

	go b.watchLoop(watcher, cacheDir)
	return func() { _ = watcher.Close() }, nil
}

func (b *Backend) watchLoop(watcher *fsnotify.Watcher, cacheDir string) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := watcher.Add(event.Name); err != nil {
					logrus.Errorf("Failed to watch new directory %s: %v", event.Name, err)
				}
				continue
			}
			b.reloadFile(cacheDir, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logrus.Errorf("Cache watcher error: %v", err)
		}
	}
}

func (b *Backend) reloadFile(cacheDir, path string) {
	resource, err := cache.ReadResource(cacheDir, path)
	if err != nil {
		logrus.Errorf("Failed to reload %s: %v", path, err)
		return
	}
	b.store.Put(resource.Host, resource.Path, resource.Response())
	logrus.Infof("Reloaded response for %s%s", resource.Host, resource.Path)
}
