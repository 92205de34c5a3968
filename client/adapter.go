package client

import "github.com/alimasry/go-collab-ot/ot"

// Disposable removes something that was previously installed, typically a
// rendered remote cursor. Dispose must be idempotent.
type Disposable interface {
	Dispose()
}

// EditorCallbacks are the hooks an editor adapter fires at the core.
// Change must be emitted atomically after each user edit, carrying both the
// forward and the inverse operation.
type EditorCallbacks struct {
	Change         func(op, inverse *ot.Operation)
	CursorActivity func()
	Blur           func()
	Focus          func()
	Error          func(err error)
}

// EditorAdapter bridges a concrete editor to the core. The core holds the
// adapter by interface; any editor that can report text, cursors and edits
// can participate.
type EditorAdapter interface {
	GetText() string
	SetText(s string)

	GetCursor() *ot.Cursor
	SetCursor(c *ot.Cursor)
	// SetOtherCursor renders a remote user's cursor and returns a handle
	// that removes it again.
	SetOtherCursor(clientID string, cursor *ot.Cursor, color, name string) Disposable

	ApplyOperation(op *ot.Operation) error
	InvertOperation(op *ot.Operation) *ot.Operation

	RegisterCallbacks(cb EditorCallbacks)
	RegisterUndo(fn func())
	RegisterRedo(fn func())
}

// DatabaseCallbacks are the hooks a coordinator adapter fires at the core.
// Ack and Retry refer to this client's outstanding operation; Operation and
// Cursor carry other participants' activity. A nil cursor means the peer
// removed theirs.
type DatabaseCallbacks struct {
	Ready     func()
	Ack       func()
	Retry     func()
	Operation func(op *ot.Operation)
	Cursor    func(clientID string, cursor *ot.Cursor, color, name string)
	Error     func(err error)
}

// DatabaseAdapter transmits operations to the coordinator's log and delivers
// acknowledgements and remote activity back. The coordinator serializes
// operations into a total order and acknowledges FIFO per client.
type DatabaseAdapter interface {
	SendOperation(op *ot.Operation) error
	SendCursor(c *ot.Cursor) error

	IsCurrentUser(clientID string) bool
	IsHistoryEmpty() bool

	SetUserID(id string)
	SetUserColor(color string)
	SetUserName(name string)

	RegisterCallbacks(cb DatabaseCallbacks)
}
