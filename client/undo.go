package client

import "github.com/alimasry/go-collab-ot/ot"

const defaultMaxUndoItems = 50

type undoMode int

const (
	modeNormal undoMode = iota
	modeUndoing
	modeRedoing
)

// UndoManager keeps undo and redo stacks of wrapped operations. Every entry
// is an inverse: applying it reverts the edit that produced it. As remote
// operations arrive, both stacks are transformed in place so replayed undos
// still target the right region.
type UndoManager struct {
	maxItems    int
	undoStack   []*ot.WrappedOperation
	redoStack   []*ot.WrappedOperation
	mode        undoMode
	dontCompose bool
}

// NewUndoManager returns a manager retaining at most maxItems undo entries.
// Pass 0 for the default.
func NewUndoManager(maxItems int) *UndoManager {
	if maxItems <= 0 {
		maxItems = defaultMaxUndoItems
	}
	return &UndoManager{maxItems: maxItems}
}

// Add records an inverse operation. In the normal mode it lands on the undo
// stack and clears the redo stack; during PerformUndo it lands on the redo
// stack (and vice versa). With compose set, the entry is merged into the
// current top so bursts of typing undo as one step.
func (u *UndoManager) Add(op *ot.WrappedOperation, compose bool) error {
	switch u.mode {
	case modeUndoing:
		u.redoStack = append(u.redoStack, op)
		u.dontCompose = true
	case modeRedoing:
		u.undoStack = append(u.undoStack, op)
		u.dontCompose = true
	default:
		if !u.dontCompose && compose && len(u.undoStack) > 0 {
			// Inverses apply newest-first, so the new entry composes in
			// front of the current top.
			top := u.undoStack[len(u.undoStack)-1]
			merged, err := op.Compose(top)
			if err != nil {
				return err
			}
			// The cursor metadata follows the forward edits, oldest first.
			merged.Meta = top.Meta.Compose(op.Meta)
			u.undoStack[len(u.undoStack)-1] = merged
		} else {
			u.undoStack = append(u.undoStack, op)
			if len(u.undoStack) > u.maxItems {
				u.undoStack = u.undoStack[1:]
			}
		}
		u.dontCompose = false
		u.redoStack = nil
	}
	return nil
}

// Transform remaps every stacked entry through a remote operation.
func (u *UndoManager) Transform(op *ot.Operation) error {
	undo, err := transformStack(u.undoStack, op)
	if err != nil {
		return err
	}
	redo, err := transformStack(u.redoStack, op)
	if err != nil {
		return err
	}
	u.undoStack = undo
	u.redoStack = redo
	return nil
}

// transformStack walks from the top of the stack down, transforming each
// entry and carrying the remote op through the ones already processed.
// Entries that become noops are dropped.
func transformStack(stack []*ot.WrappedOperation, op *ot.Operation) ([]*ot.WrappedOperation, error) {
	out := make([]*ot.WrappedOperation, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		entry, transformed, err := stack[i].TransformAgainst(op)
		if err != nil {
			return nil, err
		}
		if !entry.IsNoop() {
			out = append(out, entry)
		}
		op = transformed
	}
	// out was built top-first; restore bottom-first order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Last peeks the top of the undo stack, or nil if it is empty.
func (u *UndoManager) Last() *ot.WrappedOperation {
	if len(u.undoStack) == 0 {
		return nil
	}
	return u.undoStack[len(u.undoStack)-1]
}

func (u *UndoManager) CanUndo() bool { return len(u.undoStack) > 0 }
func (u *UndoManager) CanRedo() bool { return len(u.redoStack) > 0 }

func (u *UndoManager) IsUndoing() bool { return u.mode == modeUndoing }
func (u *UndoManager) IsRedoing() bool { return u.mode == modeRedoing }

// PerformUndo pops the top undo entry and hands it to fn, which is expected
// to apply it and Add its inverse (landing on the redo stack, since the
// manager is in the undoing mode for the duration of the call). Re-entrant
// by design: the mode is restored on every exit path.
func (u *UndoManager) PerformUndo(fn func(w *ot.WrappedOperation)) {
	if len(u.undoStack) == 0 {
		return
	}
	u.mode = modeUndoing
	defer func() { u.mode = modeNormal }()
	top := u.undoStack[len(u.undoStack)-1]
	u.undoStack = u.undoStack[:len(u.undoStack)-1]
	fn(top)
}

// PerformRedo is the symmetric counterpart of PerformUndo.
func (u *UndoManager) PerformRedo(fn func(w *ot.WrappedOperation)) {
	if len(u.redoStack) == 0 {
		return
	}
	u.mode = modeRedoing
	defer func() { u.mode = modeNormal }()
	top := u.redoStack[len(u.redoStack)-1]
	u.redoStack = u.redoStack[:len(u.redoStack)-1]
	fn(top)
}

// Dispose clears both stacks and resets the mode. Idempotent.
func (u *UndoManager) Dispose() {
	u.undoStack = nil
	u.redoStack = nil
	u.mode = modeNormal
	u.dontCompose = false
}
