package pane

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/multipane/internal/debug"
)

// DirectoryWatcher watches directories for changes and notifies when refreshes are needed
type DirectoryWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watching map[string]bool // Currently watched paths
	notify   chan string     // Channel to send changed directory paths
	done     chan struct{}   // Shutdown signal
	debounce time.Duration
}

// NewDirectoryWatcher creates a new directory watcher
func NewDirectoryWatcher(debounce time.Duration) (*DirectoryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	dw := &DirectoryWatcher{
		watcher:  w,
		watching: make(map[string]bool),
		notify:   make(chan string, 10),
		done:     make(chan struct{}),
		debounce: debounce,
	}

	go dw.run()
	return dw, nil
}

// run processes filesystem events with debouncing
func (dw *DirectoryWatcher) run() {
	lastEvent := make(map[string]time.Time)
	ticker := time.NewTicker(dw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}

			// fsnotify reports the changed child; map it back to the watched directory
			changed := event.Name
			dir := filepath.Dir(changed)

			dw.mu.Lock()
			switch {
			case dw.watching[dir]:
				lastEvent[dir] = time.Now()
			case dw.watching[changed]:
				lastEvent[changed] = time.Now()
				dir = changed
			default:
				dir = ""
			}
			dw.mu.Unlock()
			if dir != "" {
				debug.Log(debug.APP, "watch: %s on %s (dir %s)", event.Op, changed, dir)
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.APP, "watch: fsnotify error: %v", err)

		case <-ticker.C:
			now := time.Now()
			for dir, last := range lastEvent {
				if now.Sub(last) < dw.debounce {
					continue
				}
				select {
				case dw.notify <- dir:
					debug.Log(debug.APP, "watch: change notification for %s", dir)
				default:
					// Channel full, skip
				}
				delete(lastEvent, dir)
			}
		}
	}
}

// Watch adds a directory to the watch list
func (dw *DirectoryWatcher) Watch(path string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.watching[path] {
		return nil
	}
	if err := dw.watcher.Add(path); err != nil {
		return err
	}
	dw.watching[path] = true
	debug.Log(debug.APP, "watch: now watching %s", path)
	return nil
}

// UnwatchAll removes all directories from the watch list
func (dw *DirectoryWatcher) UnwatchAll() {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	for path := range dw.watching {
		if err := dw.watcher.Remove(path); err != nil {
			// Path may already be gone
			debug.Log(debug.APP, "watch: unwatch %s: %v", path, err)
		}
	}
	dw.watching = make(map[string]bool)
}

// Notify returns the channel that receives directory change notifications
func (dw *DirectoryWatcher) Notify() <-chan string {
	return dw.notify
}

// Close shuts down the watcher
func (dw *DirectoryWatcher) Close() error {
	close(dw.done)
	return dw.watcher.Close()
}
