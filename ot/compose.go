package ot

import "fmt"

// overlay combines the attributes of a component with those of a later
// retain spanning it: b's values win. When the underlying component is an
// insert, an unset sentinel in b removes the key outright (there is no older
// document value left to unset).
func overlay(a, b Attributes, aIsInsert bool) Attributes {
	if len(b) == 0 {
		return a
	}
	merged := a.Clone()
	if merged == nil {
		merged = make(Attributes, len(b))
	}
	for k, v := range b {
		if v == "" && aIsInsert {
			delete(merged, k)
		} else {
			merged[k] = v
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// Compose folds two sequential operations into one: for every doc with
// doc length == a.BaseLen(),
//
//	Compose(a, b).Apply(doc) == b.Apply(a.Apply(doc))
func Compose(a, b *Operation) (*Operation, error) {
	if a.TargetLen() != b.BaseLen() {
		return nil, fmt.Errorf("%w: target length %d, base length %d",
			ErrCannotCompose, a.TargetLen(), b.BaseLen())
	}

	result := New()
	ia := newIter(a.Ops)
	ib := newIter(b.Ops)

	for ia.hasNext() || ib.hasNext() {
		// a's deletes pass through untouched; b never saw those chars.
		if ia.peekType() == compDelete {
			c := ia.take(ia.peekLen())
			result.Delete(c.Delete)
			continue
		}
		// b's inserts pass through untouched; they land after a's work.
		if ib.peekType() == compInsert {
			c := ib.take(0)
			result.Insert(c.Insert, c.Attrs)
			continue
		}

		if !ia.hasNext() || !ib.hasNext() {
			return nil, fmt.Errorf("%w: compose ran out of components", ErrCannotCompose)
		}

		n := min(ia.peekLen(), ib.peekLen())
		ca := ia.take(n)
		cb := ib.take(n)

		switch {
		case ca.IsRetain() && cb.IsRetain():
			result.Retain(n, overlay(ca.Attrs, cb.Attrs, false))
		case ca.IsRetain() && cb.IsDelete():
			result.Delete(n)
		case ca.IsInsert() && cb.IsRetain():
			result.Insert(ca.Insert, overlay(ca.Attrs, cb.Attrs, true))
		case ca.IsInsert() && cb.IsDelete():
			// b deletes what a inserted — they cancel.
		}
	}

	return result, nil
}

// Compose is the method form of the package function.
func (op *Operation) Compose(other *Operation) (*Operation, error) {
	return Compose(op, other)
}
