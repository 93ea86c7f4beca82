package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changes to a fixed set of settings files. It watches the
// parent directories, so files created after the watcher starts are seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	logger  *zap.Logger

	mu     sync.Mutex
	subs   map[int]chan string
	nextID int
	done   chan struct{}
	once   sync.Once
}

// NewWatcher starts watching paths. Directories that do not exist are
// skipped.
func NewWatcher(paths []string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher: fw,
		files:   make(map[string]bool),
		logger:  logger.Named("settings"),
		subs:    make(map[int]chan string),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("settings directory missing, not watched", zap.String("dir", dir))

			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()

			return nil, err
		}
	}
	go w.run()

	return w, nil
}

// Subscribe returns a channel receiving the path of each changed settings
// file, and a function that cancels the subscription. Notifications are
// dropped for subscribers that are not keeping up.
func (w *Watcher) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 8)
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	select {
	case <-w.done:
		close(ch)
	default:
		w.subs[id] = ch
	}
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
		w.mu.Unlock()
	}
}

// Close stops the watcher and closes every subscription.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})

	return err
}

func (w *Watcher) run() {
	defer func() {
		w.mu.Lock()
		close(w.done)
		for id, ch := range w.subs {
			delete(w.subs, id)
			close(ch)
		}
		w.mu.Unlock()
	}()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			w.logger.Debug("settings file changed",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			w.notify(filepath.Clean(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) notify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- path:
		default:
		}
	}
}
