package ot

// simpleOp returns the single effective insert or delete of an operation
// that is a bare edit surrounded by retains, or nil otherwise.
func simpleOp(op *Operation) *Component {
	ops := op.Ops
	switch len(ops) {
	case 1:
		return &ops[0]
	case 2:
		if ops[0].IsRetain() {
			return &ops[1]
		}
		if ops[1].IsRetain() {
			return &ops[0]
		}
	case 3:
		if ops[0].IsRetain() && ops[2].IsRetain() {
			return &ops[1]
		}
	}
	return nil
}

// startIndex returns the position where an operation starts editing.
func startIndex(op *Operation) int {
	if len(op.Ops) > 0 && op.Ops[0].IsRetain() && op.Ops[0].HasEmptyAttributes() {
		return op.Ops[0].Retain
	}
	return 0
}

// ShouldBeComposedWith reports whether other is a natural continuation of op:
// typing on directly after an insert, or deleting on from the same spot.
// Used to coalesce consecutive edits into a single undo step.
func (op *Operation) ShouldBeComposedWith(other *Operation) bool {
	if op.IsNoop() || other.IsNoop() {
		return true
	}
	sa, sb := simpleOp(op), simpleOp(other)
	if sa == nil || sb == nil {
		return false
	}
	ia, ib := startIndex(op), startIndex(other)
	if sa.IsInsert() && sb.IsInsert() {
		return ia+charCount(sa.Insert) == ib
	}
	if sa.IsDelete() && sb.IsDelete() {
		// Delete via backspace or via the delete key.
		return ib+sb.Delete == ia || ia == ib
	}
	return false
}

// ShouldBeComposedWithInverted is the check used when pushing inverses onto
// the undo stack: the inverse of a deletion moves the start position
// backwards, so the adjacency test differs from ShouldBeComposedWith.
func (op *Operation) ShouldBeComposedWithInverted(other *Operation) bool {
	if op.IsNoop() || other.IsNoop() {
		return true
	}
	sa, sb := simpleOp(op), simpleOp(other)
	if sa == nil || sb == nil {
		return false
	}
	ia, ib := startIndex(op), startIndex(other)
	if sa.IsInsert() && sb.IsInsert() {
		return ia+charCount(sa.Insert) == ib || ia == ib
	}
	if sa.IsDelete() && sb.IsDelete() {
		return ib+sb.Delete == ia
	}
	return false
}

// CanMergeWith is a looser criterion than ShouldBeComposedWith: the two
// operations are bare edits of the same kind with the same attributes,
// regardless of position. Callers that only care about attribute families
// (not adjacency) use this.
func (op *Operation) CanMergeWith(other *Operation) bool {
	if op.IsNoop() || other.IsNoop() {
		return true
	}
	sa, sb := simpleOp(op), simpleOp(other)
	if sa == nil || sb == nil {
		return false
	}
	if sa.IsInsert() && sb.IsInsert() {
		return sa.AttributesEqual(*sb)
	}
	return sa.IsDelete() && sb.IsDelete()
}
