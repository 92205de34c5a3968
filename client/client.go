package client

import "github.com/alimasry/go-collab-ot/ot"

// Client drives the three-state synchronization protocol. It is not
// goroutine-safe: all events must be delivered from a single goroutine, in
// the order the coordinator and the editor produced them.
type Client struct {
	transport Transport
	state     State
}

// NewClient returns a client in the Synchronized state.
func NewClient(t Transport) *Client {
	return &Client{transport: t, state: Synchronized{}}
}

// State returns the current synchronization state.
func (c *Client) State() State { return c.state }

// IsSynchronized reports whether no local operation is in flight.
func (c *Client) IsSynchronized() bool {
	_, ok := c.state.(Synchronized)
	return ok
}

// ApplyClient feeds a local edit into the protocol. In Synchronized the op
// is sent immediately; otherwise it is buffered.
func (c *Client) ApplyClient(op *ot.Operation) error {
	next, err := c.state.ApplyClient(c.transport, op)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// ApplyServer feeds a remote operation into the protocol. The op is
// transformed against any pending local work before reaching the editor.
func (c *Client) ApplyServer(op *ot.Operation) error {
	next, err := c.state.ApplyServer(c.transport, op)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// ServerAck handles the coordinator's acknowledgement of the outstanding op.
func (c *Client) ServerAck() error {
	next, err := c.state.ServerAck(c.transport)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// ServerRetry resends all pending local work after the coordinator reported
// a transient failure.
func (c *Client) ServerRetry() error {
	next, err := c.state.ServerRetry(c.transport)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}
