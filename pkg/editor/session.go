package editor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mdvault/mdvault/pkg/document"
)

// Config wires the collaborators a session needs. Save is required;
// everything else has a default.
type Config struct {
	Save           SaveFunc
	States         StatePersistence
	Callbacks      Callbacks
	AutoSaveDelay  time.Duration
	StateSaveDelay time.Duration
	Logger         *zap.Logger
}

// Session orchestrates the lifecycle of one open document: parse on open,
// serialize on edit, debounced autosave, editor-state restore, and
// flush-on-close. All entry points run to completion under one lock, so
// for a given document exactly one of {external update, local edit} is
// ever in flight at a time.
type Session struct {
	mu sync.Mutex

	doc      *Document
	ctrl     *Controller
	autosave *AutoSaver
	states   *StateStore
	logger   *zap.Logger

	surface SurfaceKind
	// Canonical text at the last parse each surface has seen. Switching
	// surfaces re-parses only when the text genuinely diverged, so
	// in-flight surface-local state is not discarded.
	lastParsed map[SurfaceKind]string

	closed bool
}

// Open constructs a session for the document at path with its initial
// text. The returned session is active on the given surface; RestoreState
// yields any stored selection and scroll to apply to it.
func Open(path, initialText string, surface SurfaceKind, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.States == nil {
		cfg.States = discardStates{}
	}

	doc := NewDocument(path, initialText)
	autosave := NewAutoSaver(path, initialText, cfg.AutoSaveDelay, cfg.Save, cfg.Callbacks.emitSaveStatus, logger)

	s := &Session{
		doc:        doc,
		autosave:   autosave,
		states:     NewStateStore(cfg.States, cfg.StateSaveDelay, logger),
		logger:     logger,
		surface:    surface,
		lastParsed: map[SurfaceKind]string{surface: initialText},
	}
	s.ctrl = NewController(doc, autosave, cfg.Callbacks, logger)

	logger.Debug("document opened",
		zap.String("path", path), zap.String("surface", string(surface)))
	return s
}

func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

func (s *Session) Surface() SurfaceKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Edit runs mutate against the document tree and serializes the result.
// If the mutation round-trips to the same canonical text it is a no-op:
// no change event, no scheduled save.
func (s *Session) Edit(mutate func(tree *document.Tree)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	mutate(s.doc.tree)
	s.ctrl.OnLocalEdit()
	s.lastParsed[s.surface] = s.doc.canonicalText
}

// CycleTask advances a task item's check state and treats it as a local
// edit.
func (s *Session) CycleTask(id document.NodeID) (state document.CheckState, err error) {
	s.Edit(func(tree *document.Tree) {
		state, err = tree.CycleTask(id)
	})
	return state, err
}

// ExternalTextChanged feeds in text that changed outside this session.
// Texts the engine itself produced are recognized and ignored, which
// breaks the loop of our own change event coming back as an update.
func (s *Session) ExternalTextChanged(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ctrl.OnExternalTextChanged(text)
	s.lastParsed[s.surface] = s.doc.canonicalText
}

// SelectionChanged records the active surface's selection and scroll for
// later restore. Calls are cheap; persistence is debounced.
func (s *Session) SelectionChanged(state EditorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.states.Save(s.doc.path, s.surface, state)
}

// RestoreState returns the stored editor state for the active surface,
// selection clamped to the current tree. ok=false means start at the top.
func (s *Session) RestoreState() (EditorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states.Restore(s.doc.path, s.surface, s.doc.tree)
}

// SwitchSurface activates a different editing surface for the same
// document. The tree is re-parsed only when canonical text diverged from
// what the target surface last parsed; otherwise the existing tree, with
// any in-flight not-yet-serialized edits, is reused. The previous
// surface's stored editor state is untouched.
func (s *Session) SwitchSurface(kind SurfaceKind) (EditorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || kind == s.surface {
		return s.states.Restore(s.doc.path, kind, s.doc.tree)
	}

	s.surface = kind
	// A surface that already parsed an older text must rebuild; a surface
	// activated for the first time, or one whose last parse matches the
	// canonical text, adopts the current tree as-is so no in-flight state
	// is discarded.
	if last, seen := s.lastParsed[kind]; seen && last != s.doc.canonicalText {
		s.ctrl.applyingExternal = true
		s.doc.replaceTree(s.doc.canonicalText)
		s.ctrl.applyingExternal = false
	}
	s.lastParsed[kind] = s.doc.canonicalText

	s.logger.Debug("surface switched",
		zap.String("path", s.doc.path), zap.String("surface", string(kind)))
	return s.states.Restore(s.doc.path, kind, s.doc.tree)
}

// Flush forces pending persistence (content and editor state) to run now.
func (s *Session) Flush() {
	s.autosave.Flush()
	s.states.Flush(s.doc.path)
}

// Close flushes any pending autosave and editor state, then discards the
// document. A pending save fires immediately rather than being dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	path := s.doc.path
	s.mu.Unlock()

	s.autosave.Flush()
	s.states.Flush(path)

	s.logger.Debug("document closed", zap.String("path", path))
}

// discardStates is the default when no state persistence is supplied.
type discardStates struct{}

func (discardStates) WriteState(string, SurfaceKind, EditorState) error { return nil }

func (discardStates) ReadState(string, SurfaceKind) (EditorState, bool, error) {
	return EditorState{}, false, nil
}
