package document

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// inProgressRe matches a task-list line carrying the in-progress marker.
// The first group spans everything up to the opening bracket, so the
// bracket's byte offset within the line is the group's end.
var inProgressRe = regexp.MustCompile(`^((?:\s*>)*\s*(?:[-*+]|\d{1,9}[.)])[ \t]+)\[>\](?:[ \t]|$)`)

// checkboxRe strips the checkbox prefix from a task item's first line.
var checkboxRe = regexp.MustCompile(`^\[[ xX>]\][ \t]?`)

// Parse converts markdown text into a document tree. It never fails:
// anything the block grammar does not understand is kept as paragraph
// content so no input is ever rejected.
//
// The in-progress marker "[>]" is not part of the base task-list grammar.
// A pre-processing pass rewrites it to "[x]" so the parser accepts the item
// as checked, remembering the byte offset of each rewritten checkbox. After
// the tree is built, exactly the items whose checkbox sits at a remembered
// offset are flipped to InProgress. Matching by structural position instead
// of text content keeps sibling items with identical text apart.
func Parse(source []byte) *Tree {
	rewritten, inProgressAt := rewriteInProgressMarkers(source)

	p := goldmark.New(goldmark.WithExtensions(extension.TaskList)).Parser()
	root := p.Parse(text.NewReader(rewritten))

	b := &treeBuilder{
		// Block text is sliced out of the original source so that code
		// blocks keep a literal "[>]" untouched by the rewrite.
		source:       source,
		inProgressAt: inProgressAt,
		tree:         NewTree(),
	}
	lineBreak := detectLineBreak(source)
	b.tree.SetLineBreak(lineBreak)
	b.tree.SetTrailingLineBreaks(countTrailingLineBreaks(source, lineBreak))
	b.addBlocks(RootID, root)
	return b.tree
}

// rewriteInProgressMarkers returns a copy of source with every "[>]" task
// marker replaced by "[x]", plus the byte offsets of the rewritten opening
// brackets. Offsets are stable because the replacement has the same length.
func rewriteInProgressMarkers(source []byte) ([]byte, map[int]bool) {
	out := make([]byte, len(source))
	copy(out, source)
	marks := make(map[int]bool)

	lineStart := 0
	for lineStart <= len(out) {
		rest := out[lineStart:]
		lineLen := bytes.IndexByte(rest, '\n')
		line := rest
		if lineLen >= 0 {
			line = rest[:lineLen]
		}
		if m := inProgressRe.FindSubmatchIndex(line); m != nil {
			bracket := lineStart + m[3]
			out[bracket+1] = 'x'
			marks[bracket] = true
		}
		if lineLen < 0 {
			break
		}
		lineStart += lineLen + 1
	}
	return out, marks
}

type treeBuilder struct {
	source       []byte
	inProgressAt map[int]bool
	tree         *Tree
}

func (b *treeBuilder) addBlocks(parent NodeID, astParent ast.Node) {
	for c := astParent.FirstChild(); c != nil; c = c.NextSibling() {
		b.addBlock(parent, c)
	}
}

func (b *treeBuilder) addBlock(parent NodeID, astNode ast.Node) {
	switch astNode.Kind() {
	case ast.KindHeading:
		n := b.tree.Append(parent, HeadingKind)
		n.Level = astNode.(*ast.Heading).Level
		n.Text = b.blockText(astNode)

	case ast.KindFencedCodeBlock:
		n := b.tree.Append(parent, CodeBlockKind)
		fenced := astNode.(*ast.FencedCodeBlock)
		if fenced.Info != nil {
			n.Language = strings.TrimSpace(string(fenced.Info.Segment.Value(b.source)))
		}
		n.Text = b.codeText(astNode)

	case ast.KindCodeBlock:
		n := b.tree.Append(parent, CodeBlockKind)
		n.Text = b.codeText(astNode)

	case ast.KindThematicBreak:
		b.tree.Append(parent, ThematicBreakKind)

	case ast.KindBlockquote:
		n := b.tree.Append(parent, BlockquoteKind)
		b.addBlocks(n.ID(), astNode)

	case ast.KindList:
		b.addList(parent, astNode.(*ast.List))

	default:
		// Paragraphs, HTML blocks and anything unrecognized degrade to
		// plain paragraph content.
		n := b.tree.Append(parent, ParagraphKind)
		n.Text = b.blockText(astNode)
	}
}

func (b *treeBuilder) addList(parent NodeID, list *ast.List) {
	kind := BulletListKind
	if list.IsOrdered() {
		kind = OrderedListKind
	} else if hasTaskItems(list) {
		kind = TaskListKind
	}

	n := b.tree.Append(parent, kind)
	n.Tight = list.IsTight
	if list.IsOrdered() {
		n.Start = list.Start
	}

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		b.addListItem(n.ID(), item)
	}
}

func (b *treeBuilder) addListItem(listID NodeID, item ast.Node) {
	textBlock, checkbox := itemContent(item)

	kind := ListItemKind
	if checkbox != nil {
		kind = TaskItemKind
	}
	n := b.tree.Append(listID, kind)

	if textBlock != nil {
		n.Text = b.blockText(textBlock)
	}

	if checkbox != nil {
		n.Text = checkboxRe.ReplaceAllString(n.Text, "")
		switch {
		case b.inProgressAt[checkboxOffset(textBlock)]:
			n.Check = InProgress
		case checkbox.IsChecked:
			n.Check = Checked
		default:
			n.Check = Unchecked
		}
	}

	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if c == textBlock {
			continue
		}
		b.addBlock(n.ID(), c)
	}
}

// itemContent returns the list item's leading text block, if any, and the
// task checkbox parsed at its start.
func itemContent(item ast.Node) (ast.Node, *east.TaskCheckBox) {
	first := item.FirstChild()
	if first == nil {
		return nil, nil
	}
	if first.Kind() != ast.KindTextBlock && first.Kind() != ast.KindParagraph {
		return nil, nil
	}
	if cb, ok := first.FirstChild().(*east.TaskCheckBox); ok {
		return first, cb
	}
	return first, nil
}

// checkboxOffset is the byte offset of the item's opening bracket, used to
// match against positions recorded by the pre-processing rewrite.
func checkboxOffset(textBlock ast.Node) int {
	if textBlock.Lines().Len() == 0 {
		return -1
	}
	return textBlock.Lines().At(0).Start
}

func hasTaskItems(list *ast.List) bool {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if _, cb := itemContent(item); cb != nil {
			return true
		}
	}
	return false
}

// blockText reconstructs a block's inline markdown from the source lines,
// normalized to "\n" line separators with the trailing break removed.
func (b *treeBuilder) blockText(astNode ast.Node) string {
	lines := astNode.Lines()
	if lines.Len() == 0 {
		return ""
	}
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		_, _ = buf.Write(seg.Value(b.source))
	}
	return strings.TrimRight(normalizeLineBreaks(buf.String()), "\n")
}

// codeText reconstructs a code block's content without the fence lines.
func (b *treeBuilder) codeText(astNode ast.Node) string {
	var buf bytes.Buffer
	lines := astNode.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		_, _ = buf.Write(seg.Value(b.source))
	}
	return strings.TrimRight(normalizeLineBreaks(buf.String()), "\n")
}

func normalizeLineBreaks(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func detectLineBreak(source []byte) []byte {
	crlfCount := bytes.Count(source, []byte{'\r', '\n'})
	lfCount := bytes.Count(source, []byte{'\n'})
	if lfCount > 0 && crlfCount == lfCount {
		return []byte{'\r', '\n'}
	}
	return []byte{'\n'}
}

func countTrailingLineBreaks(source []byte, lineBreak []byte) int {
	i := len(source) - len(lineBreak)
	numBreaks := 0
	for i >= 0 && bytes.Equal(source[i:i+len(lineBreak)], lineBreak) {
		i -= len(lineBreak)
		numBreaks++
	}
	return numBreaks
}
