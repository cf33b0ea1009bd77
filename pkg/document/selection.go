package document

// Selection is a half-open range over a tree's linear content addressing,
// not over byte offsets of the serialized markdown.
type Selection struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ClampSelection constrains a selection to the tree's valid offset range.
// The tree may have changed size since the selection was recorded, e.g.
// after an external reload, so out-of-range values are pulled back instead
// of rejected.
func (t *Tree) ClampSelection(sel Selection) Selection {
	max := t.ContentLength()
	sel.From = clampOffset(sel.From, max)
	sel.To = clampOffset(sel.To, max)
	if sel.From > sel.To {
		sel.From, sel.To = sel.To, sel.From
	}
	return sel
}

func clampOffset(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
