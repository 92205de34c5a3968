package ot

import "unicode/utf8"

// Component is a single step in an OT operation.
// Exactly one of Retain, Insert, Delete should be set. Retain and Insert may
// additionally carry attributes.
type Component struct {
	Retain int        // keep N chars unchanged
	Insert string     // insert text at cursor
	Delete int        // remove N chars at cursor
	Attrs  Attributes // formatting applied to a retain or insert
}

func (c Component) IsRetain() bool { return c.Retain > 0 && c.Insert == "" && c.Delete == 0 }
func (c Component) IsInsert() bool { return c.Insert != "" }
func (c Component) IsDelete() bool { return c.Delete > 0 && c.Insert == "" }

// HasEmptyAttributes reports whether the component carries no attributes.
func (c Component) HasEmptyAttributes() bool { return c.Attrs.IsEmpty() }

// AttributesEqual reports whether both components carry the same attributes.
func (c Component) AttributesEqual(other Component) bool { return c.Attrs.Equal(other.Attrs) }

// Equal reports whether tag, payload and attributes all match.
func (c Component) Equal(other Component) bool {
	return c.Retain == other.Retain &&
		c.Insert == other.Insert &&
		c.Delete == other.Delete &&
		c.Attrs.Equal(other.Attrs)
}

// length returns the span of the component in characters.
func (c Component) length() int {
	switch {
	case c.IsInsert():
		return utf8.RuneCountInString(c.Insert)
	case c.IsRetain():
		return c.Retain
	case c.IsDelete():
		return c.Delete
	}
	return 0
}

// charCount counts Unicode code points. The whole algebra measures documents
// in code points, not bytes; adapters translate editor-native units.
func charCount(s string) int {
	return utf8.RuneCountInString(s)
}
