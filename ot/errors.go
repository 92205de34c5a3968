package ot

import "errors"

var (
	// ErrLengthMismatch is returned when an operation is applied to a
	// document whose length differs from the operation's base length.
	ErrLengthMismatch = errors.New("ot: document length does not match operation base length")

	// ErrDocumentTooShort is returned when a retain or delete would read
	// past the end of the document.
	ErrDocumentTooShort = errors.New("ot: operation reads past end of document")

	// ErrCannotCompose is returned when the first operation's target length
	// does not match the second operation's base length.
	ErrCannotCompose = errors.New("ot: operations are not composable")

	// ErrCannotTransform is returned when two supposedly concurrent
	// operations have different base lengths.
	ErrCannotTransform = errors.New("ot: operations have different base lengths")

	// ErrInvalidOperation is returned when a serialized operation cannot be
	// decoded into a normalized component sequence.
	ErrInvalidOperation = errors.New("ot: invalid serialized operation")
)
