package client

// Events emitted by the EditorClient.
const (
	// EventUndo fires after an undo is applied, with the serialized op.
	EventUndo = "undo"
	// EventRedo fires after a redo is applied, with the serialized op.
	EventRedo = "redo"
	// EventError fires with (err, operation, state) when an adapter or
	// protocol error is detected.
	EventError = "error"
	// EventSynced fires with a bool after every ack or remote op,
	// reporting whether the client is fully synchronized.
	EventSynced = "synced"
)

// Listener receives an event's arguments.
type Listener func(args ...interface{})

// emitter is a minimal event dispatcher over a fixed event set.
type emitter struct {
	listeners map[string][]Listener
}

var knownEvents = map[string]bool{
	EventUndo:   true,
	EventRedo:   true,
	EventError:  true,
	EventSynced: true,
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[string][]Listener)}
}

func (e *emitter) on(event string, fn Listener) error {
	if !knownEvents[event] {
		return ErrUnknownEvent
	}
	e.listeners[event] = append(e.listeners[event], fn)
	return nil
}

// off removes every listener for the event. Individual listeners are not
// addressable (func values are not comparable).
func (e *emitter) off(event string) error {
	if !knownEvents[event] {
		return ErrUnknownEvent
	}
	delete(e.listeners, event)
	return nil
}

func (e *emitter) emit(event string, args ...interface{}) {
	for _, fn := range e.listeners[event] {
		fn(args...)
	}
}
