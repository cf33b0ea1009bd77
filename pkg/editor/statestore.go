package editor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mdvault/mdvault/internal/debounce"
	"github.com/mdvault/mdvault/pkg/document"
)

type stateKey struct {
	path    string
	surface SurfaceKind
}

// StateStore persists per-document, per-surface selection and scroll
// state. Writes are debounced so rapid selection and scroll events
// collapse to the most recent value. Losing this state is tolerable, so
// persistence errors are logged and swallowed.
type StateStore struct {
	persist StatePersistence
	delay   time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	pending    map[stateKey]EditorState
	debouncers map[stateKey]*debounce.Debouncer
}

func NewStateStore(persist StatePersistence, delay time.Duration, logger *zap.Logger) *StateStore {
	if delay <= 0 {
		delay = DefaultStateSaveDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStore{
		persist:    persist,
		delay:      delay,
		logger:     logger,
		pending:    make(map[stateKey]EditorState),
		debouncers: make(map[stateKey]*debounce.Debouncer),
	}
}

// Save records state for (path, surface) and schedules its persistence.
// Multiple calls within the debounce window keep only the last value.
func (s *StateStore) Save(path string, surface SurfaceKind, state EditorState) {
	key := stateKey{path: path, surface: surface}

	s.mu.Lock()
	s.pending[key] = state
	deb, ok := s.debouncers[key]
	if !ok {
		deb = debounce.New(s.delay, func() { s.write(key) })
		s.debouncers[key] = deb
	}
	s.mu.Unlock()

	deb.Call()
}

// Load returns the most recent state for (path, surface). A pending,
// not-yet-persisted value wins over the stored one. Absence and read
// errors both report ok=false; a missing state is not an error.
func (s *StateStore) Load(path string, surface SurfaceKind) (EditorState, bool) {
	key := stateKey{path: path, surface: surface}

	s.mu.Lock()
	if state, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return state, true
	}
	s.mu.Unlock()

	state, ok, err := s.persist.ReadState(path, surface)
	if err != nil {
		s.logger.Debug("editor state read failed",
			zap.String("path", path), zap.String("surface", string(surface)), zap.Error(err))
		return EditorState{}, false
	}
	return state, ok
}

// Restore loads state for (path, surface) and clamps its selection to the
// given tree, which may have changed size since the state was recorded.
func (s *StateStore) Restore(path string, surface SurfaceKind, tree *document.Tree) (EditorState, bool) {
	state, ok := s.Load(path, surface)
	if !ok {
		return EditorState{}, false
	}
	state.Selection = tree.ClampSelection(state.Selection)
	if state.ScrollOffset < 0 {
		state.ScrollOffset = 0
	}
	return state, true
}

// Flush immediately persists any pending state for the path, across all
// surfaces. Called when a document closes.
func (s *StateStore) Flush(path string) {
	s.mu.Lock()
	var toFlush []*debounce.Debouncer
	for key, deb := range s.debouncers {
		if key.path == path {
			toFlush = append(toFlush, deb)
		}
	}
	s.mu.Unlock()

	for _, deb := range toFlush {
		deb.Flush()
	}
}

func (s *StateStore) write(key stateKey) {
	s.mu.Lock()
	state, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := s.persist.WriteState(key.path, key.surface, state); err != nil {
		s.logger.Debug("editor state write failed",
			zap.String("path", key.path), zap.String("surface", string(key.surface)), zap.Error(err))
	}
}
