// Package watcher turns filesystem events into external-change
// notifications for the editor engine. Editors and sync tools often write
// a file several times in quick succession, so events are debounced per
// path and only the final content is reported.
package watcher

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mdvault/mdvault/internal/debounce"
)

const defaultDelay = 100 * time.Millisecond

// Watcher observes files on disk and reports coalesced content changes.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func(path string, content []byte)
	delay    time.Duration
	logger   *zap.Logger

	mu         sync.Mutex
	debouncers map[string]*debounce.Debouncer
	closed     bool

	done chan struct{}
}

// New starts a watcher. onChange receives the watched path and the file's
// content after a quiet period of no further writes.
func New(onChange func(path string, content []byte), delay time.Duration, logger *zap.Logger) (*Watcher, error) {
	if delay <= 0 {
		delay = defaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating fsnotify watcher")
	}

	w := &Watcher{
		fs:         fs,
		onChange:   onChange,
		delay:      delay,
		logger:     logger,
		debouncers: make(map[string]*debounce.Debouncer),
		done:       make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Add starts watching the file at path.
func (w *Watcher) Add(path string) error {
	return errors.Wrapf(w.fs.Add(path), "watching %q", path)
}

// Remove stops watching the file at path and drops any pending
// notification for it.
func (w *Watcher) Remove(path string) error {
	w.mu.Lock()
	if deb, ok := w.debouncers[path]; ok {
		deb.Cancel()
		delete(w.debouncers, path)
	}
	w.mu.Unlock()
	return errors.Wrapf(w.fs.Remove(path), "unwatching %q", path)
}

// Close stops the watcher. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, deb := range w.debouncers {
		deb.Cancel()
	}
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return errors.Wrap(err, "closing fsnotify watcher")
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	deb, ok := w.debouncers[path]
	if !ok {
		deb = debounce.New(w.delay, func() { w.report(path) })
		w.debouncers[path] = deb
	}
	w.mu.Unlock()

	deb.Call()
}

func (w *Watcher) report(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		// The file may have been removed between the event and the
		// debounce firing.
		w.logger.Debug("skipping change report", zap.String("path", path), zap.Error(err))
		return
	}
	w.onChange(path, content)
}
