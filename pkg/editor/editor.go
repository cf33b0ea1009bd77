// Package editor keeps a canonical markdown text, its editable document
// tree, per-document editor state, and debounced autosave mutually
// consistent. Rendering, toolbars, and transport stay outside; hosts plug
// in through the collaborator contracts defined here.
package editor

import (
	"context"
	"time"

	"github.com/mdvault/mdvault/pkg/document"
)

const (
	// DefaultAutoSaveDelay is the quiet period before edited content is
	// persisted.
	DefaultAutoSaveDelay = 1000 * time.Millisecond
	// DefaultStateSaveDelay coalesces rapid selection and scroll updates.
	// Editor state is tolerable to lose, content is not, so the two
	// windows are deliberately independent.
	DefaultStateSaveDelay = 150 * time.Millisecond
)

// SurfaceKind identifies an editing surface. Multiple surfaces may show
// the same document; each keeps its own editor state.
type SurfaceKind string

const (
	SurfaceSource SurfaceKind = "source"
	SurfaceRich   SurfaceKind = "rich"
)

// EditorState is the per-surface selection and scroll position for a
// document.
type EditorState struct {
	Selection    document.Selection `json:"selection"`
	ScrollOffset float64            `json:"scrollOffset"`
}

// SaveFunc persists canonical text. It must be idempotent for identical
// text. Supplied by the host's persistence layer.
type SaveFunc func(ctx context.Context, path, text string) error

// StatePersistence stores editor state per (path, surface). It is lossy
// and best-effort: absence is an expected answer, not an error.
type StatePersistence interface {
	WriteState(path string, surface SurfaceKind, state EditorState) error
	ReadState(path string, surface SurfaceKind) (EditorState, bool, error)
}

// SaveStatus is reported to the host for UI status indicators.
type SaveStatus int

const (
	StatusSaving SaveStatus = iota + 1
	StatusSaved
	StatusFailed
)

func (s SaveStatus) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SaveEvent carries a status change; Err is set only for StatusFailed.
type SaveEvent struct {
	Path   string
	Status SaveStatus
	Err    error
}

// Callbacks are the events the engine emits to its host. Nil members are
// skipped. Callbacks must not call back into the emitting Session.
type Callbacks struct {
	// Changed fires whenever canonical text changes due to a local edit,
	// so other surfaces showing the same document can re-parse.
	Changed func(text string)
	// SaveStatus fires around every persistence attempt. A failed save
	// keeps the content in memory; the next edit or an explicit flush
	// retries.
	SaveStatus func(SaveEvent)
}

func (c Callbacks) emitChanged(text string) {
	if c.Changed != nil {
		c.Changed(text)
	}
}

func (c Callbacks) emitSaveStatus(ev SaveEvent) {
	if c.SaveStatus != nil {
		c.SaveStatus(ev)
	}
}
