// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor watches the data directory and reports when one of the
// dataset files has been rewritten.
type FileMonitor struct {
	watchDir string
	targets  map[string]bool // base names of interest, empty means all
	watcher  *fsnotify.Watcher
	lastMod  map[string]time.Time
	mu       sync.Mutex
}

// NewFileMonitor starts watching dir. Only events for the given file names
// are reported; with no names every file in dir is reported.
func NewFileMonitor(dir string, names ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	targets := make(map[string]bool, len(names))
	for _, n := range names {
		targets[filepath.Base(n)] = true
	}

	return &FileMonitor{
		watchDir: dir,
		targets:  targets,
		watcher:  watcher,
		lastMod:  make(map[string]time.Time),
	}, nil
}

// Watch blocks until ctx is done or the watcher fails, calling handler with
// the path of every target file whose modification time moved forward.
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if m.changed(event.Name) {
				handler(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) changed(path string) bool {
	if len(m.targets) > 0 && !m.targets[filepath.Base(path)] {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !info.ModTime().After(m.lastMod[path]) {
		return false
	}
	m.lastMod[path] = info.ModTime()
	return true
}

// Close stops the underlying watcher.
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
