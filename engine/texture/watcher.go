package texture

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads cached textures when their image files change on disk.
type Watcher struct {
	mu      *sync.Mutex
	loader  Loader
	watcher *fsnotify.Watcher
	dirs    map[string]bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a Watcher that calls loader.Reload for changed images the loader has cached.
//
// Parameters:
//   - loader: the loader owning the cached textures
//
// Returns:
//   - *Watcher: the running watcher
//   - error: an error if the file system watcher cannot be created
func NewWatcher(loader Loader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		mu:      &sync.Mutex{},
		loader:  loader,
		watcher: fw,
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Watch starts watching the directory containing path. Watching a directory twice is a no-op.
//
// Parameters:
//   - path: an image path inside the directory to watch
//
// Returns:
//   - error: an error if the directory cannot be watched
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, cached := w.loader.Cache().Lookup(event.Name); !cached {
				continue
			}
			if err := w.loader.Reload(event.Name); err != nil && !errors.Is(err, ErrNotCached) {
				common.Logger().Warn("texture reload failed", "path", event.Name, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("texture watcher error", "error", err)
		}
	}
}

// Close stops watching and waits for the event loop to exit.
//
// Returns:
//   - error: the error from closing the file system watcher
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
