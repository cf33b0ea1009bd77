package document

import (
	"github.com/pkg/errors"
)

// NodeID addresses a node within its Tree. IDs are stable for the lifetime
// of the tree: removing a node never renumbers the others.
type NodeID int

// RootID is the ID of the synthetic document node that owns all
// top-level blocks.
const RootID NodeID = 0

type BlockKind int

const (
	documentKind BlockKind = iota
	HeadingKind
	ParagraphKind
	BulletListKind
	OrderedListKind
	TaskListKind
	ListItemKind
	TaskItemKind
	BlockquoteKind
	CodeBlockKind
	ThematicBreakKind
)

func (k BlockKind) String() string {
	switch k {
	case HeadingKind:
		return "heading"
	case ParagraphKind:
		return "paragraph"
	case BulletListKind:
		return "bullet-list"
	case OrderedListKind:
		return "ordered-list"
	case TaskListKind:
		return "task-list"
	case ListItemKind:
		return "list-item"
	case TaskItemKind:
		return "task-item"
	case BlockquoteKind:
		return "blockquote"
	case CodeBlockKind:
		return "code-block"
	case ThematicBreakKind:
		return "thematic-break"
	default:
		return "document"
	}
}

// Node is a single block in the document tree. Topology (parent, children)
// is managed exclusively by the owning Tree; content fields are mutated
// directly by the editing surface.
type Node struct {
	Kind     BlockKind
	Level    int        // headings
	Language string     // code blocks
	Start    int        // ordered lists
	Tight    bool       // lists
	Text     string     // inline markdown, or raw code for code blocks
	Check    CheckState // task items

	id       NodeID
	parent   NodeID
	children []NodeID
}

func (n *Node) ID() NodeID      { return n.id }
func (n *Node) Parent() NodeID  { return n.parent }
func (n *Node) ChildCount() int { return len(n.children) }
func (n *Node) ChildIDs() []NodeID {
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// Tree is an arena of block nodes addressed by stable indices. It is the
// structured, mutable representation edited by a rich editing surface.
type Tree struct {
	nodes              []*Node
	lineBreak          []byte
	trailingLineBreaks int
}

func NewTree() *Tree {
	t := &Tree{lineBreak: []byte{'\n'}}
	t.nodes = append(t.nodes, &Node{Kind: documentKind, id: RootID, parent: -1})
	return t
}

// LineBreak is the line separator detected in the source document, kept so
// that serialization matches the document's existing convention.
func (t *Tree) LineBreak() []byte { return t.lineBreak }

func (t *Tree) SetLineBreak(lb []byte) {
	if len(lb) == 0 {
		lb = []byte{'\n'}
	}
	t.lineBreak = lb
}

func (t *Tree) Root() *Node { return t.nodes[RootID] }

// Node returns the node with the given ID, or nil if the ID is not valid
// for this tree.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) || t.nodes[id] == nil {
		return nil
	}
	return t.nodes[id]
}

// Append adds a new node of the given kind as the last child of parent.
func (t *Tree) Append(parent NodeID, kind BlockKind) *Node {
	return t.Insert(parent, -1, kind)
}

// Insert adds a new node of the given kind at position at among parent's
// children. A negative position appends.
func (t *Tree) Insert(parent NodeID, at int, kind BlockKind) *Node {
	p := t.Node(parent)
	if p == nil {
		return nil
	}
	n := &Node{Kind: kind, id: NodeID(len(t.nodes)), parent: parent}
	t.nodes = append(t.nodes, n)
	if at < 0 || at >= len(p.children) {
		p.children = append(p.children, n.id)
	} else {
		p.children = append(p.children[:at], append([]NodeID{n.id}, p.children[at:]...)...)
	}
	return n
}

// Remove detaches the node from its parent. The arena slot is cleared, so
// the ID becomes invalid but no other ID shifts.
func (t *Tree) Remove(id NodeID) {
	n := t.Node(id)
	if n == nil || id == RootID {
		return
	}
	if p := t.Node(n.parent); p != nil {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	t.nodes[id] = nil
}

// Children returns the child nodes of id in document order.
func (t *Tree) Children(id NodeID) []*Node {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if child := t.Node(c); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// Walk visits every node in document order, root's children first. The
// callback returns false to stop the walk.
func (t *Tree) Walk(fn func(*Node) bool) {
	t.walk(RootID, fn)
}

func (t *Tree) walk(id NodeID, fn func(*Node) bool) bool {
	for _, child := range t.Children(id) {
		if !fn(child) {
			return false
		}
		if !t.walk(child.id, fn) {
			return false
		}
	}
	return true
}

// FindNode returns the first node in document order for which fn reports
// true, or nil.
func (t *Tree) FindNode(fn func(*Node) bool) *Node {
	var found *Node
	t.Walk(func(n *Node) bool {
		if fn(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// TaskItems collects all task items in document order.
func (t *Tree) TaskItems() []*Node {
	var result []*Node
	t.Walk(func(n *Node) bool {
		if n.Kind == TaskItemKind {
			result = append(result, n)
		}
		return true
	})
	return result
}

// CycleTask advances the check state of a task item along the legal
// transition order and returns the new state.
func (t *Tree) CycleTask(id NodeID) (CheckState, error) {
	n := t.Node(id)
	if n == nil {
		return Unchecked, errors.Errorf("no node with id %d", id)
	}
	if n.Kind != TaskItemKind {
		return Unchecked, errors.Errorf("node %d is a %s, not a task item", id, n.Kind)
	}
	n.Check = n.Check.Cycle()
	return n.Check, nil
}

// TrailingLineBreaks is the number of line breaks the source document ended
// with. It is preserved so that serialization reproduces the original
// ending byte-for-byte.
func (t *Tree) TrailingLineBreaks() int { return t.trailingLineBreaks }

func (t *Tree) SetTrailingLineBreaks(n int) {
	if n < 0 {
		n = 0
	}
	t.trailingLineBreaks = n
}

// ContentLength returns the length of the tree's linear content addressing
// space: each block contributes its text plus a one-position block
// boundary. Selections are expressed in this space, not in byte offsets of
// the serialized markdown.
func (t *Tree) ContentLength() int {
	length := 0
	t.Walk(func(n *Node) bool {
		switch n.Kind {
		case HeadingKind, ParagraphKind, ListItemKind, TaskItemKind, CodeBlockKind:
			length += len(n.Text) + 1
		}
		return true
	})
	if length > 0 {
		length--
	}
	return length
}

// Equal reports structural equality with another tree: same shape, same
// block kinds and attributes, same text. Whitespace differences in the
// serialized form do not affect it.
func (t *Tree) Equal(other *Tree) bool {
	if other == nil {
		return false
	}
	return t.equalNode(t.Root(), other, other.Root())
}

func (t *Tree) equalNode(a *Node, ot *Tree, b *Node) bool {
	if a.Kind != b.Kind ||
		a.Level != b.Level ||
		a.Language != b.Language ||
		a.Start != b.Start ||
		a.Tight != b.Tight ||
		a.Text != b.Text ||
		a.Check != b.Check {
		return false
	}
	ac, bc := t.Children(a.id), ot.Children(b.id)
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !t.equalNode(ac[i], ot, bc[i]) {
			return false
		}
	}
	return true
}
