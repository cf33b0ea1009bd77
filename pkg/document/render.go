package document

import (
	"bytes"
	"strconv"
	"unicode"
)

// Render serializes a tree back to markdown. Task items emit the tri-state
// syntax ("[ ]", "[>]", "[x]") directly; bullet markers are always "-".
// Render never fails: every tree a host can build has a markdown form.
func Render(t *Tree) []byte {
	w := &writer{lineBreak: t.LineBreak()}
	renderBlocks(w, t, RootID)
	w.needCR = t.TrailingLineBreaks()
	w.write(nil)
	return w.buf.Bytes()
}

func renderBlocks(w *writer, t *Tree, parent NodeID) {
	for _, n := range t.Children(parent) {
		renderBlock(w, t, n)
	}
}

func renderBlock(w *writer, t *Tree, n *Node) {
	switch n.Kind {
	case HeadingKind:
		level := n.Level
		if level < 1 {
			level = 1
		}
		w.write(append(bytes.Repeat([]byte{'#'}, level), ' '))
		w.write([]byte(n.Text))
		w.blankline()

	case ParagraphKind:
		w.write([]byte(n.Text))
		w.blankline()

	case BulletListKind, OrderedListKind, TaskListKind:
		renderList(w, t, n)

	case BlockquoteKind:
		prefix := []byte{'>', ' '}
		w.write(prefix)
		w.prefix = append(w.prefix, prefix...)
		renderBlocks(w, t, n.ID())
		w.prefix = w.prefix[:len(w.prefix)-len(prefix)]
		w.blankline()

	case CodeBlockKind:
		fence := bytes.Repeat([]byte{'`'}, fenceLength([]byte(n.Text)))
		w.write(fence)
		w.write([]byte(n.Language))
		w.cr()
		w.write([]byte(n.Text))
		w.cr()
		w.write(fence)
		w.blankline()

	case ThematicBreakKind:
		w.write([]byte("---"))
		w.blankline()
	}
}

func renderList(w *writer, t *Tree, list *Node) {
	number := list.Start
	if number < 1 {
		number = 1
	}

	for i, item := range t.Children(list.ID()) {
		marker := itemMarker(list, item, number+i)
		w.write(marker)
		w.prefix = append(w.prefix, bytes.Repeat([]byte{' '}, itemIndent(list, number+i))...)

		if item.Text != "" {
			w.write([]byte(item.Text))
		}
		if list.Tight {
			w.cr()
		} else {
			w.blankline()
		}

		renderBlocks(w, t, item.ID())

		w.prefix = w.prefix[:len(w.prefix)-itemIndent(list, number+i)]

		// A tight list must keep consecutive markers on adjacent lines;
		// demote any blank line a nested block left pending.
		if list.Tight && w.needCR > 1 {
			w.needCR = 1
		}
	}
	w.blankline()
}

func itemMarker(list, item *Node, number int) []byte {
	var buf bytes.Buffer
	if list.Kind == OrderedListKind {
		_, _ = buf.WriteString(strconv.Itoa(number))
		_, _ = buf.WriteString(". ")
	} else {
		_, _ = buf.WriteString("- ")
	}
	if item.Kind == TaskItemKind {
		_ = buf.WriteByte('[')
		_ = buf.WriteByte(item.Check.Marker())
		_, _ = buf.WriteString("] ")
	}
	return buf.Bytes()
}

// itemIndent is the width of the list marker, which is how far child
// blocks must be indented to stay attached to the item.
func itemIndent(list *Node, number int) int {
	if list.Kind == OrderedListKind {
		return len(strconv.Itoa(number)) + 2
	}
	return 2
}

// fenceLength picks a backtick fence longer than any backtick run inside
// the code, with the conventional minimum of three.
func fenceLength(code []byte) int {
	longest, current := 0, 0
	for _, b := range code {
		if b == '`' {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	if longest+1 > 3 {
		return longest + 1
	}
	return 3
}

// writer accumulates markdown output. Line breaks are written lazily:
// needCR counts breaks owed before the next content, so adjacent blocks can
// request separation without ever stacking more than one blank line. The
// prefix is re-emitted at the start of every line, trimmed on blank lines,
// which is what keeps blockquote and list nesting aligned.
type writer struct {
	buf       bytes.Buffer
	lineBreak []byte
	prefix    []byte
	beginLine bool
	needCR    int
}

func (w *writer) blankline() {
	if w.needCR < 2 {
		w.needCR = 2
	}
}

func (w *writer) cr() {
	if w.needCR < 1 {
		w.needCR = 1
	}
}

func (w *writer) write(data []byte) {
	k := w.buf.Len() - 1

	for w.needCR > 0 {
		if k < 0 || w.buf.Bytes()[k] == '\n' {
			k--
			if w.beginLine && w.needCR > 1 {
				_, _ = w.buf.Write(bytes.TrimFunc(w.prefix, unicode.IsSpace))
			}
		} else {
			_, _ = w.buf.Write(w.lineBreak)
			if w.needCR > 1 {
				_, _ = w.buf.Write(bytes.TrimFunc(w.prefix, unicode.IsSpace))
			}
		}
		w.beginLine = true
		w.needCR--
	}

	for _, c := range data {
		if w.beginLine {
			_, _ = w.buf.Write(w.prefix)
		}
		if c == '\n' {
			_, _ = w.buf.Write(w.lineBreak)
		} else {
			_ = w.buf.WriteByte(c)
		}
		w.beginLine = c == '\n'
	}
}
