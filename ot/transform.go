package ot

import "fmt"

// Transform takes two concurrent operations a and b (both built against the
// same document state) and returns aPrime and bPrime such that:
//
//	bPrime.Apply(a.Apply(doc)) == aPrime.Apply(b.Apply(doc))
//
// When both operations insert at the same position, a's insert goes first.
// Every caller must put the same side in the a seat: the coordinator
// transforms each incoming operation as a against already accepted history,
// and a client transforms its pending local ops as a against received server
// ops, so all participants order concurrent inserts identically. On
// concurrent attribute retains, b's attributes win: conflicting keys are
// dropped from aPrime.
func Transform(a, b *Operation) (aPrime, bPrime *Operation, err error) {
	if a.BaseLen() != b.BaseLen() {
		return nil, nil, fmt.Errorf("%w: a=%d, b=%d", ErrCannotTransform, a.BaseLen(), b.BaseLen())
	}

	ap := New()
	bp := New()
	ia := newIter(a.Ops)
	ib := newIter(b.Ops)

	for ia.hasNext() || ib.hasNext() {
		// a inserts first on ties.
		if ia.peekType() == compInsert {
			c := ia.take(0)
			ap.Insert(c.Insert, c.Attrs)
			bp.Retain(charCount(c.Insert), nil)
			continue
		}
		if ib.peekType() == compInsert {
			c := ib.take(0)
			bp.Insert(c.Insert, c.Attrs)
			ap.Retain(charCount(c.Insert), nil)
			continue
		}

		// Both consume input. Take the shorter chunk.
		if !ia.hasNext() || !ib.hasNext() {
			return nil, nil, fmt.Errorf("%w: transform ran out of components", ErrCannotTransform)
		}

		n := min(ia.peekLen(), ib.peekLen())
		ca := ia.take(n)
		cb := ib.take(n)

		switch {
		case ca.IsRetain() && cb.IsRetain():
			// b's attributes win on conflicting keys.
			ap.Retain(n, ca.Attrs.withoutConflicts(cb.Attrs))
			bp.Retain(n, cb.Attrs)
		case ca.IsDelete() && cb.IsRetain():
			ap.Delete(n)
		case ca.IsRetain() && cb.IsDelete():
			bp.Delete(n)
		case ca.IsDelete() && cb.IsDelete():
			// Both delete same chars — nothing to do.
		}
	}

	return ap, bp, nil
}

// Transform is the method form of the package function; the receiver is a.
func (op *Operation) Transform(other *Operation) (*Operation, *Operation, error) {
	return Transform(op, other)
}

// compType identifies a component kind for the iterator.
type compType int

const (
	compNone compType = iota
	compRetain
	compInsert
	compDelete
)

// iter walks through operation components, allowing partial consumption.
type iter struct {
	ops    []Component
	index  int
	offset int
}

func newIter(ops []Component) *iter {
	return &iter{ops: ops}
}

func (it *iter) hasNext() bool {
	return it.index < len(it.ops)
}

func (it *iter) peekType() compType {
	if !it.hasNext() {
		return compNone
	}
	c := it.ops[it.index]
	switch {
	case c.IsInsert():
		return compInsert
	case c.IsDelete():
		return compDelete
	default:
		return compRetain
	}
}

func (it *iter) peekLen() int {
	if !it.hasNext() {
		return 0
	}
	return it.ops[it.index].length() - it.offset
}

// take consumes n units from the current component, preserving its
// attributes. For inserts, n=0 means take all that remains.
func (it *iter) take(n int) Component {
	c := it.ops[it.index]
	remaining := it.peekLen()

	switch {
	case c.IsRetain():
		if n >= remaining {
			it.index++
			it.offset = 0
			return Component{Retain: remaining, Attrs: c.Attrs}
		}
		it.offset += n
		return Component{Retain: n, Attrs: c.Attrs}

	case c.IsInsert():
		runes := []rune(c.Insert)
		if n == 0 || n >= remaining {
			s := string(runes[it.offset:])
			it.index++
			it.offset = 0
			return Component{Insert: s, Attrs: c.Attrs}
		}
		s := string(runes[it.offset : it.offset+n])
		it.offset += n
		return Component{Insert: s, Attrs: c.Attrs}

	case c.IsDelete():
		if n >= remaining {
			it.index++
			it.offset = 0
			return Component{Delete: remaining}
		}
		it.offset += n
		return Component{Delete: n}
	}

	it.index++
	return Component{}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
