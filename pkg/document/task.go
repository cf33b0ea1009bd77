package document

// CheckState is the three-valued status of a task-list item.
type CheckState int

const (
	Unchecked CheckState = iota
	InProgress
	Checked
)

// Cycle advances a check state along the only legal transition order:
// Unchecked -> InProgress -> Checked -> Unchecked. Editing surfaces must
// always go through Cycle instead of assigning states directly so that
// they cannot disagree with the engine about the transition order.
func (s CheckState) Cycle() CheckState {
	switch s {
	case Unchecked:
		return InProgress
	case InProgress:
		return Checked
	case Checked:
		return Unchecked
	default:
		return InProgress
	}
}

// Marker returns the character written between brackets in the task-list
// markdown syntax: "- [ ]", "- [>]", "- [x]".
func (s CheckState) Marker() byte {
	switch s {
	case InProgress:
		return '>'
	case Checked:
		return 'x'
	default:
		return ' '
	}
}

// FromMarker maps a checkbox marker character back to a state. The checked
// marker is case-insensitive; anything unrecognized is treated as unchecked.
func FromMarker(c byte) CheckState {
	switch c {
	case '>':
		return InProgress
	case 'x', 'X':
		return Checked
	default:
		return Unchecked
	}
}

func (s CheckState) String() string {
	switch s {
	case InProgress:
		return "in-progress"
	case Checked:
		return "checked"
	default:
		return "unchecked"
	}
}
