package screenshot

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hupe1980/testmesh/logging"
)

// WatchLocator tracks the newest image in a directory through filesystem
// notifications. Until the first notification, or when the tracked file has
// been removed, it falls back to a directory scan.
type WatchLocator struct {
	dir     string
	logger  logging.Logger
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	latest  string
	latestT time.Time

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewWatchLocator starts watching dir, creating it if necessary. Close stops the watcher.
func NewWatchLocator(dir string, logger logging.Logger) (*WatchLocator, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	l := &WatchLocator{
		dir:     dir,
		logger:  logging.OrNoOp(logger),
		watcher: watcher,
		done:    make(chan struct{}),
	}
	l.latest, l.latestT = scan(dir, l.logger)

	l.wg.Add(1)
	go l.watchLoop()
	return l, nil
}

// Latest implements Locator.
func (l *WatchLocator) Latest() string {
	l.mu.RLock()
	latest := l.latest
	l.mu.RUnlock()

	if latest != "" {
		if _, err := os.Stat(latest); err == nil {
			return latest
		}
	}

	path, mod := scan(l.dir, l.logger)
	l.mu.Lock()
	l.latest, l.latestT = path, mod
	l.mu.Unlock()
	return path
}

// Close stops the watcher. It is safe to call more than once.
func (l *WatchLocator) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.closeErr = l.watcher.Close()
		l.wg.Wait()
	})
	return l.closeErr
}

func (l *WatchLocator) watchLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !IsImage(event.Name) {
				continue
			}
			l.observe(event.Name)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("screenshot.watch.error", "dir", l.dir, "error", err.Error())
		}
	}
}

func (l *WatchLocator) observe(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	mod := info.ModTime()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == "" || path == l.latest || !mod.Before(l.latestT) {
		l.latest, l.latestT = path, mod
		l.logger.Debug("screenshot.observed", "path", path)
	}
}
