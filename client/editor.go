package client

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/alimasry/go-collab-ot/ot"
)

// cursorRetryDelay is how long a cursor broadcast is deferred while local
// edits are still buffered, so the cursor travels with a coherent document
// version.
const cursorRetryDelay = 3 * time.Millisecond

// RemoteClient is what this client knows about another participant.
// The record survives a removed cursor; only the rendered marker is disposed.
type RemoteClient struct {
	ID     string
	Name   string
	Color  string
	Cursor *ot.Cursor

	mark Disposable
}

// Config configures an EditorClient.
type Config struct {
	UserID       string
	UserColor    string
	UserName     string
	DefaultText  string // inserted when the coordinator history is empty
	MaxUndoItems int    // 0 for the default
}

// EditorClient wires the synchronization protocol to an editor adapter and a
// coordinator adapter. It owns the undo history, the local cursor broadcast
// and the rendering of remote cursors.
//
// Undo, Redo, On, Off, ClearUndoRedoStack, Dispose and the adapter callbacks
// other than Ready and Error serialize on an internal mutex (Ready takes it
// only to check for Dispose); apart from the deferred cursor timer the client
// expects to be driven from a single goroutine, in delivery order.
type EditorClient struct {
	*Client

	mu     sync.Mutex
	editor EditorAdapter
	db     DatabaseAdapter
	undo   *UndoManager
	events *emitter

	clients     map[string]*RemoteClient
	cursor      *ot.Cursor
	focused     bool
	cursorTimer *time.Timer
	disposed    bool
}

// NewEditorClient connects the adapters and registers all callbacks.
func NewEditorClient(cfg Config, editor EditorAdapter, db DatabaseAdapter) *EditorClient {
	e := &EditorClient{
		editor:  editor,
		db:      db,
		undo:    NewUndoManager(cfg.MaxUndoItems),
		events:  newEmitter(),
		clients: make(map[string]*RemoteClient),
	}
	e.Client = NewClient(e)

	if cfg.UserID != "" {
		db.SetUserID(cfg.UserID)
	}
	if cfg.UserColor != "" {
		db.SetUserColor(cfg.UserColor)
	}
	if cfg.UserName != "" {
		db.SetUserName(cfg.UserName)
	}

	editor.RegisterCallbacks(EditorCallbacks{
		Change:         e.onChange,
		CursorActivity: e.onCursorActivity,
		Blur:           e.onBlur,
		Focus:          e.onFocus,
		Error:          e.onAdapterError,
	})
	editor.RegisterUndo(e.Undo)
	editor.RegisterRedo(e.Redo)

	db.RegisterCallbacks(DatabaseCallbacks{
		// The lock is held only for the disposed check: SetText re-enters
		// through the change callback, which takes it.
		Ready: func() {
			e.mu.Lock()
			disposed := e.disposed
			e.mu.Unlock()
			if disposed {
				return
			}
			if cfg.DefaultText != "" && db.IsHistoryEmpty() {
				editor.SetText(cfg.DefaultText)
			}
		},
		Ack:       e.onAck,
		Retry:     e.onRetry,
		Operation: e.onOperation,
		Cursor:    e.onCursor,
		Error:     e.onAdapterError,
	})

	return e
}

// SendOperation implements Transport: local ops go to the coordinator.
func (e *EditorClient) SendOperation(op *ot.Operation) {
	if err := e.db.SendOperation(op); err != nil {
		e.emitError(err, op)
	}
}

// ApplyOperation implements Transport: transformed remote ops reach the
// editor, the local cursor is re-read, and the undo history is remapped.
func (e *EditorClient) ApplyOperation(op *ot.Operation) {
	if err := e.editor.ApplyOperation(op); err != nil {
		e.emitError(err, op)
		return
	}
	e.cursor = e.editor.GetCursor()
	if err := e.undo.Transform(op); err != nil {
		e.emitError(err, op)
	}
	e.events.emit(EventSynced, e.IsSynchronized())
}

func (e *EditorClient) onChange(op, inverse *ot.Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}

	cursorBefore := e.cursor
	e.cursor = e.editor.GetCursor()

	compose := e.undo.CanUndo() && inverse.ShouldBeComposedWithInverted(e.undo.Last().Op)
	wrapped := ot.Wrap(inverse, &ot.Meta{Before: cursorBefore, After: e.cursor})
	if err := e.undo.Add(wrapped, compose); err != nil {
		e.emitError(err, inverse)
	}

	if err := e.ApplyClient(op); err != nil {
		e.emitError(err, op)
	}
}

func (e *EditorClient) onCursorActivity() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.cursor = e.editor.GetCursor()
	e.sendCursor()
}

func (e *EditorClient) onBlur() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.cursor = nil
	e.focused = false
	e.sendCursor()
}

func (e *EditorClient) onFocus() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.focused = true
	e.cursor = e.editor.GetCursor()
	e.sendCursor()
}

// sendCursor broadcasts the local cursor, deferring while local edits are
// still buffered. Callers hold the mutex.
func (e *EditorClient) sendCursor() {
	if e.cursorTimer != nil {
		e.cursorTimer.Stop()
		e.cursorTimer = nil
	}
	if _, buffering := e.State().(AwaitingWithBuffer); buffering {
		e.cursorTimer = time.AfterFunc(cursorRetryDelay, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.disposed {
				return
			}
			e.cursorTimer = nil
			e.sendCursor()
		})
		return
	}
	if err := e.db.SendCursor(e.cursor); err != nil {
		e.emitError(err, nil)
	}
}

func (e *EditorClient) onAck() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	if err := e.ServerAck(); err != nil {
		e.emitError(err, nil)
		return
	}
	e.cursor = e.editor.GetCursor()
	e.sendCursor()
	e.events.emit(EventSynced, e.IsSynchronized())
}

func (e *EditorClient) onRetry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	if err := e.ServerRetry(); err != nil {
		e.emitError(err, nil)
	}
}

func (e *EditorClient) onOperation(op *ot.Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	if err := e.ApplyServer(op); err != nil {
		e.emitError(err, op)
	}
}

func (e *EditorClient) onCursor(clientID string, cursor *ot.Cursor, color, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	// A cursor rendered against a document version we have not caught up
	// with would point at the wrong character; it will be sent again once
	// we are synchronized.
	if e.db.IsCurrentUser(clientID) || !e.IsSynchronized() {
		return
	}

	rc, ok := e.clients[clientID]
	if !ok {
		rc = &RemoteClient{ID: clientID}
		e.clients[clientID] = rc
	}
	if color != "" {
		rc.Color = color
	}
	if name != "" {
		rc.Name = name
	}

	if rc.mark != nil {
		rc.mark.Dispose()
		rc.mark = nil
	}
	rc.Cursor = cursor
	if cursor != nil {
		rc.mark = e.editor.SetOtherCursor(clientID, cursor, rc.Color, rc.Name)
	}
}

func (e *EditorClient) onAdapterError(err error) {
	e.emitError(err, nil)
}

func (e *EditorClient) emitError(err error, op *ot.Operation) {
	log.Printf("editor client: %v (state %s)", err, e.State())
	e.events.emit(EventError, err, op, e.State().String())
}

// Undo pops the most recent undo entry, applies it locally and sends it
// through the protocol like any other edit.
func (e *EditorClient) Undo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.undo.PerformUndo(func(w *ot.WrappedOperation) {
		e.applyUnredo(w)
		e.events.emit(EventUndo, opString(w.Op))
	})
}

// Redo is the symmetric counterpart of Undo.
func (e *EditorClient) Redo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.undo.PerformRedo(func(w *ot.WrappedOperation) {
		e.applyUnredo(w)
		e.events.emit(EventRedo, opString(w.Op))
	})
}

// applyUnredo applies a popped history entry: record its inverse (landing on
// the opposite stack), apply it to the editor, restore the cursor it
// remembers, and feed it through the protocol.
func (e *EditorClient) applyUnredo(w *ot.WrappedOperation) {
	inverse := e.editor.InvertOperation(w.Op)
	if err := e.undo.Add(ot.Wrap(inverse, w.Meta.Invert()), false); err != nil {
		e.emitError(err, inverse)
	}
	if err := e.editor.ApplyOperation(w.Op); err != nil {
		e.emitError(err, w.Op)
		return
	}
	if w.Meta != nil {
		cursor := w.Meta.Before
		if cursor == nil {
			cursor = w.Meta.After
		}
		if cursor != nil {
			e.cursor = cursor
			e.editor.SetCursor(cursor)
		}
	}
	if err := e.ApplyClient(w.Op); err != nil {
		e.emitError(err, w.Op)
	}
}

// On registers a listener for one of the Event* names.
func (e *EditorClient) On(event string, fn Listener) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	return e.events.on(event, fn)
}

// Off removes all listeners for an event.
func (e *EditorClient) Off(event string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	return e.events.off(event)
}

// GetText returns the editor's current content.
func (e *EditorClient) GetText() string { return e.editor.GetText() }

// SetText replaces the editor's content; the resulting change event feeds
// the protocol like any user edit.
func (e *EditorClient) SetText(s string) { e.editor.SetText(s) }

// IsHistoryEmpty reports whether the coordinator log has no operations.
func (e *EditorClient) IsHistoryEmpty() bool { return e.db.IsHistoryEmpty() }

func (e *EditorClient) SetUserID(id string)       { e.db.SetUserID(id) }
func (e *EditorClient) SetUserColor(color string) { e.db.SetUserColor(color) }
func (e *EditorClient) SetUserName(name string)   { e.db.SetUserName(name) }

// ClearUndoRedoStack drops the local edit history.
func (e *EditorClient) ClearUndoRedoStack() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.undo.Dispose()
}

// Dispose cancels the cursor timer, removes rendered remote cursors and
// clears the undo history. Idempotent; subsequent calls are no-ops.
func (e *EditorClient) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.disposed = true
	if e.cursorTimer != nil {
		e.cursorTimer.Stop()
		e.cursorTimer = nil
	}
	for _, rc := range e.clients {
		if rc.mark != nil {
			rc.mark.Dispose()
			rc.mark = nil
		}
	}
	e.clients = make(map[string]*RemoteClient)
	e.undo.Dispose()
}

func opString(op *ot.Operation) string {
	b, err := json.Marshal(op)
	if err != nil {
		return ""
	}
	return string(b)
}
