package editor

import (
	"go.uber.org/zap"

	"github.com/mdvault/mdvault/pkg/document"
)

// Controller mediates between external canonical-text changes and local
// tree edits for one document. It suppresses the feedback loop where a
// programmatic tree replacement is misread as a user edit, and it drops
// edits that serialize to the text the document already has.
//
// Controller methods are not safe for concurrent use; the owning Session
// serializes entry.
type Controller struct {
	doc       *Document
	autosave  *AutoSaver
	callbacks Callbacks
	logger    *zap.Logger

	applyingExternal bool
}

func NewController(doc *Document, autosave *AutoSaver, callbacks Callbacks, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		doc:       doc,
		autosave:  autosave,
		callbacks: callbacks,
		logger:    logger,
	}
}

func (c *Controller) Document() *Document { return c.doc }

// OnExternalTextChanged applies text that changed outside this engine:
// a file reload, or another surface persisting first. External text is
// assumed already persisted, so it becomes the autosave baseline and any
// pending local save is dropped as superseded.
func (c *Controller) OnExternalTextChanged(text string) {
	if text == c.doc.canonicalText {
		return
	}

	c.applyingExternal = true
	defer func() { c.applyingExternal = false }()

	c.doc.replaceTree(text)
	c.autosave.SetLastSaved(text)
	c.autosave.Cancel()

	c.logger.Debug("applied external update",
		zap.String("path", c.doc.path),
		zap.Int("bytes", len(text)))
}

// OnLocalEdit is fired by the editing surface whenever its tree mutates.
// While an external update is being applied the surface sees a
// programmatic tree replacement; those events are ignored.
func (c *Controller) OnLocalEdit() {
	if c.applyingExternal {
		return
	}

	newCanonical := string(document.Render(c.doc.tree))
	if newCanonical == c.doc.canonicalText {
		// The edit was a no-op, e.g. a toggle toggled back. No event,
		// no save.
		return
	}

	c.doc.canonicalText = newCanonical
	c.callbacks.emitChanged(newCanonical)
	c.autosave.Schedule(newCanonical)
}
