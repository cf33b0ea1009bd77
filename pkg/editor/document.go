package editor

import (
	"github.com/mdvault/mdvault/pkg/document"
)

// Document pairs a canonical markdown text with the tree parsed from it.
// One document is active per session; it is created on open, mutated by
// local edits and external reloads, and discarded on close.
type Document struct {
	path          string
	canonicalText string
	tree          *document.Tree
}

func NewDocument(path, text string) *Document {
	return &Document{
		path:          path,
		canonicalText: text,
		tree:          document.Parse([]byte(text)),
	}
}

func (d *Document) Path() string { return d.path }

// CanonicalText is the markdown string considered authoritative for this
// document right now.
func (d *Document) CanonicalText() string { return d.canonicalText }

// Tree is the structured representation edited by the rich surface. The
// tree is owned by the document; mutate it only through Session.Edit so
// the change is serialized and scheduled for persistence.
func (d *Document) Tree() *document.Tree { return d.tree }

func (d *Document) replaceTree(text string) {
	d.tree = document.Parse([]byte(text))
	d.canonicalText = text
}
