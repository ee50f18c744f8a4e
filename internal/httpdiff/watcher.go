package httpdiff

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 200 * time.Millisecond

// ConfigWatcher watches the configuration file and emits
// ReloadConfigurationFile on the bus when it is written. Events are
// debounced at 200 ms so editors that write in several syscalls trigger a
// single reload. Closing the watcher stops it.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchConfigurationFile starts watching path. The watch is attached to the
// parent directory because most editors replace the file on save, which
// would otherwise drop an inode-based watch.
func WatchConfigurationFile(path string, bus *Bus, log *zap.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	cw := &ConfigWatcher{watcher: watcher, done: make(chan struct{})}

	go func() {
		var debounce *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-cw.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				log.Debug("configuration file changed", zap.String("path", path))
				if debounce == nil {
					debounce = time.NewTimer(watchDebounce)
					fire = debounce.C
				} else {
					debounce.Reset(watchDebounce)
				}
			case <-fire:
				debounce = nil
				fire = nil
				bus.Send(ReloadConfigurationFile{Path: path})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("configuration watcher error", zap.Error(err))
			}
		}
	}()

	return cw, nil
}

// Close stops the watcher.
func (w *ConfigWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
