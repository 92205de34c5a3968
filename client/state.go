package client

import (
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-ot/ot"
)

var (
	// ErrNoPendingOp is returned when the coordinator acknowledges or asks
	// for a retry while no operation is outstanding. The coordinator is out
	// of sync with this client; the session should be rebuilt.
	ErrNoPendingOp = errors.New("client: no pending operation")

	// ErrDisposed is returned from methods called after Dispose.
	ErrDisposed = errors.New("client: disposed")

	// ErrUnknownEvent is returned when a listener is registered for an
	// unsupported event name.
	ErrUnknownEvent = errors.New("client: unknown event")
)

// Transport is what a state transition needs from its owner: a way to send a
// local operation to the coordinator and a way to deliver a (transformed)
// remote operation to the editor.
type Transport interface {
	SendOperation(op *ot.Operation)
	ApplyOperation(op *ot.Operation)
}

// State is one of the three client synchronization states. Each transition
// returns the next state; the zero-value states carry exactly the pending
// operations they need.
type State interface {
	ApplyClient(t Transport, op *ot.Operation) (State, error)
	ApplyServer(t Transport, op *ot.Operation) (State, error)
	ServerAck(t Transport) (State, error)
	ServerRetry(t Transport) (State, error)
	String() string
}

// Synchronized is the resting state: no local operation is in flight.
type Synchronized struct{}

func (Synchronized) String() string { return "Synchronized" }

func (s Synchronized) ApplyClient(t Transport, op *ot.Operation) (State, error) {
	t.SendOperation(op)
	return AwaitingConfirm{Outstanding: op}, nil
}

func (s Synchronized) ApplyServer(t Transport, op *ot.Operation) (State, error) {
	t.ApplyOperation(op)
	return s, nil
}

func (s Synchronized) ServerAck(Transport) (State, error) {
	return nil, fmt.Errorf("%w: ack while synchronized", ErrNoPendingOp)
}

func (s Synchronized) ServerRetry(Transport) (State, error) {
	return nil, fmt.Errorf("%w: retry while synchronized", ErrNoPendingOp)
}

// AwaitingConfirm holds one operation sent to the coordinator but not yet
// acknowledged.
type AwaitingConfirm struct {
	Outstanding *ot.Operation
}

func (s AwaitingConfirm) String() string { return "AwaitingConfirm" }

func (s AwaitingConfirm) ApplyClient(t Transport, op *ot.Operation) (State, error) {
	return AwaitingWithBuffer{Outstanding: s.Outstanding, Buffer: op}, nil
}

func (s AwaitingConfirm) ApplyServer(t Transport, op *ot.Operation) (State, error) {
	outstanding, transformed, err := ot.Transform(s.Outstanding, op)
	if err != nil {
		return nil, err
	}
	t.ApplyOperation(transformed)
	return AwaitingConfirm{Outstanding: outstanding}, nil
}

func (s AwaitingConfirm) ServerAck(Transport) (State, error) {
	return Synchronized{}, nil
}

func (s AwaitingConfirm) ServerRetry(t Transport) (State, error) {
	t.SendOperation(s.Outstanding)
	return s, nil
}

// AwaitingWithBuffer holds an unacknowledged operation plus the composition
// of every local edit made since it was sent.
type AwaitingWithBuffer struct {
	Outstanding *ot.Operation
	Buffer      *ot.Operation
}

func (s AwaitingWithBuffer) String() string { return "AwaitingWithBuffer" }

func (s AwaitingWithBuffer) ApplyClient(t Transport, op *ot.Operation) (State, error) {
	buffer, err := ot.Compose(s.Buffer, op)
	if err != nil {
		return nil, err
	}
	return AwaitingWithBuffer{Outstanding: s.Outstanding, Buffer: buffer}, nil
}

func (s AwaitingWithBuffer) ApplyServer(t Transport, op *ot.Operation) (State, error) {
	outstanding, transformed, err := ot.Transform(s.Outstanding, op)
	if err != nil {
		return nil, err
	}
	buffer, transformed, err := ot.Transform(s.Buffer, transformed)
	if err != nil {
		return nil, err
	}
	t.ApplyOperation(transformed)
	return AwaitingWithBuffer{Outstanding: outstanding, Buffer: buffer}, nil
}

func (s AwaitingWithBuffer) ServerAck(t Transport) (State, error) {
	t.SendOperation(s.Buffer)
	return AwaitingConfirm{Outstanding: s.Buffer}, nil
}

func (s AwaitingWithBuffer) ServerRetry(t Transport) (State, error) {
	// Resend all local work as one operation.
	merged, err := ot.Compose(s.Outstanding, s.Buffer)
	if err != nil {
		return nil, err
	}
	t.SendOperation(merged)
	return AwaitingConfirm{Outstanding: merged}, nil
}
