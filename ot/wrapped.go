package ot

// WrappedOperation pairs an operation with optional cursor metadata. The
// algebra delegates to the inner operation while keeping the metadata
// consistent through compose, transform and invert. Undo stacks hold wrapped
// operations.
type WrappedOperation struct {
	Op   *Operation
	Meta *Meta
}

// Wrap attaches metadata to an operation.
func Wrap(op *Operation, meta *Meta) *WrappedOperation {
	return &WrappedOperation{Op: op, Meta: meta}
}

// IsNoop delegates to the inner operation.
func (w *WrappedOperation) IsNoop() bool { return w.Op.IsNoop() }

// Apply delegates to the inner operation.
func (w *WrappedOperation) Apply(doc string) (string, error) { return w.Op.Apply(doc) }

// Compose folds two sequential wrapped operations, composing the metadata
// alongside the ops.
func (w *WrappedOperation) Compose(other *WrappedOperation) (*WrappedOperation, error) {
	op, err := Compose(w.Op, other.Op)
	if err != nil {
		return nil, err
	}
	return &WrappedOperation{Op: op, Meta: w.Meta.Compose(other.Meta)}, nil
}

// Transform rewrites two concurrent wrapped operations against each other.
// Each side's metadata is transformed through the other side's op.
func (w *WrappedOperation) Transform(other *WrappedOperation) (*WrappedOperation, *WrappedOperation, error) {
	wPrime, oPrime, err := Transform(w.Op, other.Op)
	if err != nil {
		return nil, nil, err
	}
	return &WrappedOperation{Op: wPrime, Meta: w.Meta.Transform(other.Op)},
		&WrappedOperation{Op: oPrime, Meta: other.Meta.Transform(w.Op)},
		nil
}

// TransformAgainst rewrites the wrapped operation against a concurrent bare
// operation, returning the transformed wrapped op and the transformed bare op.
func (w *WrappedOperation) TransformAgainst(op *Operation) (*WrappedOperation, *Operation, error) {
	wPrime, oPrime, err := Transform(w.Op, op)
	if err != nil {
		return nil, nil, err
	}
	return &WrappedOperation{Op: wPrime, Meta: w.Meta.Transform(op)}, oPrime, nil
}

// Invert inverts both the operation and its metadata against doc.
func (w *WrappedOperation) Invert(doc string) (*WrappedOperation, error) {
	inv, err := w.Op.Invert(doc)
	if err != nil {
		return nil, err
	}
	return &WrappedOperation{Op: inv, Meta: w.Meta.Invert()}, nil
}
