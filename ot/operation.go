package ot

import (
	"fmt"
	"strings"
)

// Operation is a sequence of components that transforms a document.
// Components are applied left-to-right, advancing a cursor through the input.
//
// The builder methods keep the sequence in normalized form: adjacent
// components of the same kind (with equal attributes) are merged, and an
// insert is never placed directly after a delete. Operations are treated as
// immutable once built; every algebraic method returns a new value.
type Operation struct {
	Ops []Component
}

// New returns an empty operation for fluent construction.
func New() *Operation {
	return &Operation{}
}

// BaseLen returns the expected input document length in characters.
func (op *Operation) BaseLen() int {
	n := 0
	for _, c := range op.Ops {
		if c.IsRetain() {
			n += c.Retain
		} else if c.IsDelete() {
			n += c.Delete
		}
	}
	return n
}

// TargetLen returns the document length after the operation is applied.
func (op *Operation) TargetLen() int {
	n := 0
	for _, c := range op.Ops {
		if c.IsRetain() {
			n += c.Retain
		} else if c.IsInsert() {
			n += charCount(c.Insert)
		}
	}
	return n
}

// IsNoop returns true if the operation makes no changes.
func (op *Operation) IsNoop() bool {
	for _, c := range op.Ops {
		if c.IsInsert() || c.IsDelete() {
			return false
		}
		if c.IsRetain() && !c.HasEmptyAttributes() {
			return false
		}
	}
	return true
}

// Equal reports whether two operations have identical component sequences.
func (op *Operation) Equal(other *Operation) bool {
	if len(op.Ops) != len(other.Ops) {
		return false
	}
	for i, c := range op.Ops {
		if !c.Equal(other.Ops[i]) {
			return false
		}
	}
	return true
}

// Retain appends a retain of n characters, optionally setting attributes on
// them. Pass nil attrs for a plain retain. Retaining zero characters is a
// no-op; a negative count is a programming error.
func (op *Operation) Retain(n int, attrs Attributes) *Operation {
	if n < 0 {
		panic(fmt.Sprintf("ot: retain count must be non-negative, got %d", n))
	}
	if n == 0 {
		return op
	}
	if l := len(op.Ops); l > 0 {
		last := &op.Ops[l-1]
		if last.IsRetain() && last.Attrs.Equal(attrs) {
			last.Retain += n
			return op
		}
	}
	op.Ops = append(op.Ops, Component{Retain: n, Attrs: attrs.Clone()})
	return op
}

// Insert appends an insert of s, optionally attributed. An empty string is a
// no-op. If the previous component is a delete, the insert is placed before
// it so that equivalent operations have a single canonical form.
func (op *Operation) Insert(s string, attrs Attributes) *Operation {
	if s == "" {
		return op
	}
	l := len(op.Ops)
	if l > 0 && op.Ops[l-1].IsInsert() && op.Ops[l-1].Attrs.Equal(attrs) {
		op.Ops[l-1].Insert += s
		return op
	}
	if l > 0 && op.Ops[l-1].IsDelete() {
		if l > 1 && op.Ops[l-2].IsInsert() && op.Ops[l-2].Attrs.Equal(attrs) {
			op.Ops[l-2].Insert += s
			return op
		}
		del := op.Ops[l-1]
		op.Ops[l-1] = Component{Insert: s, Attrs: attrs.Clone()}
		op.Ops = append(op.Ops, del)
		return op
	}
	op.Ops = append(op.Ops, Component{Insert: s, Attrs: attrs.Clone()})
	return op
}

// Delete appends a delete of n characters. Deleting zero characters is a
// no-op; a negative count is a programming error.
func (op *Operation) Delete(n int) *Operation {
	if n < 0 {
		panic(fmt.Sprintf("ot: delete count must be non-negative, got %d", n))
	}
	if n == 0 {
		return op
	}
	if l := len(op.Ops); l > 0 && op.Ops[l-1].IsDelete() {
		op.Ops[l-1].Delete += n
		return op
	}
	op.Ops = append(op.Ops, Component{Delete: n})
	return op
}

// Apply applies the operation to a document string.
func (op *Operation) Apply(doc string) (string, error) {
	runes := []rune(doc)
	if len(runes) != op.BaseLen() {
		return "", fmt.Errorf("%w: document length %d, base length %d",
			ErrLengthMismatch, len(runes), op.BaseLen())
	}
	var b strings.Builder
	pos := 0
	for _, c := range op.Ops {
		switch {
		case c.IsRetain():
			if pos+c.Retain > len(runes) {
				return "", fmt.Errorf("%w: retain %d at position %d", ErrDocumentTooShort, c.Retain, pos)
			}
			b.WriteString(string(runes[pos : pos+c.Retain]))
			pos += c.Retain
		case c.IsInsert():
			b.WriteString(c.Insert)
		case c.IsDelete():
			if pos+c.Delete > len(runes) {
				return "", fmt.Errorf("%w: delete %d at position %d", ErrDocumentTooShort, c.Delete, pos)
			}
			pos += c.Delete
		}
	}
	return b.String(), nil
}

// ApplyWithAttributes applies the operation to a document and its
// per-character attribute maps in parallel. prev may be nil, meaning every
// character is unattributed; otherwise it must align with doc. The returned
// slice aligns with the returned string.
func (op *Operation) ApplyWithAttributes(doc string, prev []Attributes) (string, []Attributes, error) {
	runes := []rune(doc)
	if len(runes) != op.BaseLen() {
		return "", nil, fmt.Errorf("%w: document length %d, base length %d",
			ErrLengthMismatch, len(runes), op.BaseLen())
	}
	if prev != nil && len(prev) != len(runes) {
		return "", nil, fmt.Errorf("%w: attribute map length %d, document length %d",
			ErrLengthMismatch, len(prev), len(runes))
	}

	var b strings.Builder
	out := make([]Attributes, 0, op.TargetLen())
	pos := 0
	for _, c := range op.Ops {
		switch {
		case c.IsRetain():
			if pos+c.Retain > len(runes) {
				return "", nil, fmt.Errorf("%w: retain %d at position %d", ErrDocumentTooShort, c.Retain, pos)
			}
			for i := 0; i < c.Retain; i++ {
				var cur Attributes
				if prev != nil {
					cur = prev[pos+i].Clone()
				}
				out = append(out, c.Attrs.mergeInto(cur))
			}
			b.WriteString(string(runes[pos : pos+c.Retain]))
			pos += c.Retain
		case c.IsInsert():
			for i := 0; i < charCount(c.Insert); i++ {
				out = append(out, c.Attrs.mergeInto(nil))
			}
			b.WriteString(c.Insert)
		case c.IsDelete():
			if pos+c.Delete > len(runes) {
				return "", nil, fmt.Errorf("%w: delete %d at position %d", ErrDocumentTooShort, c.Delete, pos)
			}
			pos += c.Delete
		}
	}
	return b.String(), out, nil
}

// Invert produces the operation that undoes op when applied to its result:
// inverse.Apply(op.Apply(doc)) == doc. The document op was built against is
// needed to recapture deleted text.
func (op *Operation) Invert(doc string) (*Operation, error) {
	return op.invert(doc, nil)
}

// InvertWithAttributes is Invert for attributed documents: retains with
// attribute changes are inverted to restore the prior values, using attrs as
// the pre-application per-character attribute maps.
func (op *Operation) InvertWithAttributes(doc string, attrs []Attributes) (*Operation, error) {
	return op.invert(doc, attrs)
}

func (op *Operation) invert(doc string, attrs []Attributes) (*Operation, error) {
	runes := []rune(doc)
	if len(runes) != op.BaseLen() {
		return nil, fmt.Errorf("%w: document length %d, base length %d",
			ErrLengthMismatch, len(runes), op.BaseLen())
	}
	if attrs != nil && len(attrs) != len(runes) {
		return nil, fmt.Errorf("%w: attribute map length %d, document length %d",
			ErrLengthMismatch, len(attrs), len(runes))
	}
	inverse := New()
	pos := 0
	for _, c := range op.Ops {
		switch {
		case c.IsRetain():
			if c.HasEmptyAttributes() || attrs == nil {
				inverse.Retain(c.Retain, nil)
			} else {
				// Restore the prior value (or the unset sentinel) for
				// every key this retain touched.
				for i := 0; i < c.Retain; i++ {
					restore := make(Attributes, len(c.Attrs))
					for k := range c.Attrs {
						restore[k] = attrs[pos+i][k]
					}
					inverse.Retain(1, restore)
				}
			}
			pos += c.Retain
		case c.IsInsert():
			inverse.Delete(charCount(c.Insert))
		case c.IsDelete():
			if pos+c.Delete > len(runes) {
				return nil, fmt.Errorf("%w: delete %d at position %d", ErrDocumentTooShort, c.Delete, pos)
			}
			if attrs == nil {
				inverse.Insert(string(runes[pos:pos+c.Delete]), nil)
			} else {
				for i := pos; i < pos+c.Delete; i++ {
					inverse.Insert(string(runes[i]), attrs[i])
				}
			}
			pos += c.Delete
		}
	}
	return inverse, nil
}

// NewInsert creates an operation that inserts text at pos in a document of docLen.
func NewInsert(pos int, text string, docLen int) *Operation {
	return New().Retain(pos, nil).Insert(text, nil).Retain(docLen-pos, nil)
}

// NewDelete creates an operation that deletes count chars at pos in a document of docLen.
func NewDelete(pos, count, docLen int) *Operation {
	return New().Retain(pos, nil).Delete(count).Retain(docLen-pos-count, nil)
}
