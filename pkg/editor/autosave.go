package editor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mdvault/mdvault/internal/debounce"
)

// AutoSaver triggers debounced persistence of canonical text. At most one
// timer is pending; every schedule call cancels and replaces it, so the
// eventual save always carries the text of the last edit before the quiet
// period.
type AutoSaver struct {
	path   string
	save   SaveFunc
	notify func(SaveEvent)
	logger *zap.Logger

	deb *debounce.Debouncer

	// saveMu serializes save attempts so a timer firing and an explicit
	// flush cannot persist concurrently.
	saveMu sync.Mutex

	mu          sync.Mutex
	lastSaved   string
	pendingText string
	dirty       bool
}

// NewAutoSaver builds a saver for one document. lastSaved starts at the
// document's initial text, so opening a document never triggers a save.
func NewAutoSaver(path, initialText string, delay time.Duration, save SaveFunc, notify func(SaveEvent), logger *zap.Logger) *AutoSaver {
	if delay <= 0 {
		delay = DefaultAutoSaveDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AutoSaver{
		path:      path,
		save:      save,
		notify:    notify,
		logger:    logger,
		lastSaved: initialText,
	}
	s.deb = debounce.New(delay, s.fire)
	return s
}

// Schedule records text as the next candidate for persistence and resets
// the debounce timer.
func (s *AutoSaver) Schedule(text string) {
	s.mu.Lock()
	s.pendingText = text
	s.dirty = true
	s.mu.Unlock()
	s.deb.Call()
}

// Flush cancels any pending timer and runs the save path synchronously.
// Used on close and navigation so no edit is silently dropped. A save
// that already ran and failed is attempted again here, not only on the
// next edit.
func (s *AutoSaver) Flush() {
	s.deb.Cancel()
	s.fire()
}

// Cancel drops the pending save without persisting. Used when an external
// update supersedes the local edit that scheduled it.
func (s *AutoSaver) Cancel() {
	s.deb.Cancel()
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// SetLastSaved marks text as already persisted. External updates call this
// because they did not originate from this engine's own pending save.
func (s *AutoSaver) SetLastSaved(text string) {
	s.mu.Lock()
	s.lastSaved = text
	s.mu.Unlock()
}

func (s *AutoSaver) LastSaved() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

func (s *AutoSaver) fire() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	text := s.pendingText
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	if text == s.lastSaved {
		s.dirty = false
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.notify != nil {
		s.notify(SaveEvent{Path: s.path, Status: StatusSaving})
	}

	if err := s.save(context.Background(), s.path, text); err != nil {
		// Content stays authoritative in memory; the next edit or an
		// explicit flush retries.
		s.logger.Warn("autosave failed", zap.String("path", s.path), zap.Error(err))
		if s.notify != nil {
			s.notify(SaveEvent{Path: s.path, Status: StatusFailed, Err: err})
		}
		return
	}

	s.mu.Lock()
	s.lastSaved = text
	if s.pendingText == text {
		s.dirty = false
	}
	s.mu.Unlock()

	if s.notify != nil {
		s.notify(SaveEvent{Path: s.path, Status: StatusSaved})
	}
}
