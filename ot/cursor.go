package ot

// Cursor is a position/selection pair in a document. Position and
// SelectionEnd coincide for a plain caret; SelectionEnd may be smaller than
// Position for an inverse selection.
type Cursor struct {
	Position     int `json:"position"`
	SelectionEnd int `json:"selectionEnd"`
}

// NewCursor returns a caret at pos with no selection.
func NewCursor(pos int) *Cursor {
	return &Cursor{Position: pos, SelectionEnd: pos}
}

// NewSelection returns a cursor spanning pos to end.
func NewSelection(pos, end int) *Cursor {
	return &Cursor{Position: pos, SelectionEnd: end}
}

// Equal reports whether both fields match.
func (c *Cursor) Equal(other *Cursor) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Position == other.Position && c.SelectionEnd == other.SelectionEnd
}

// Transform maps the cursor through an operation so it still points at the
// same character afterwards. Inserts before the cursor shift it forward,
// deletes spanning it clamp it to the deletion start.
func (c *Cursor) Transform(op *Operation) *Cursor {
	return &Cursor{
		Position:     transformIndex(c.Position, op),
		SelectionEnd: transformIndex(c.SelectionEnd, op),
	}
}

// Compose returns the later of two cursor states.
func (c *Cursor) Compose(other *Cursor) *Cursor {
	return other
}

// Clone returns a copy. Cloning nil yields nil.
func (c *Cursor) Clone() *Cursor {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func transformIndex(index int, op *Operation) int {
	newIndex := index
	for _, comp := range op.Ops {
		switch {
		case comp.IsRetain():
			index -= comp.Retain
		case comp.IsInsert():
			newIndex += charCount(comp.Insert)
		case comp.IsDelete():
			newIndex -= min(index, comp.Delete)
			index -= comp.Delete
		}
		if index < 0 {
			break
		}
	}
	return newIndex
}
