// Package wsadapter implements client.DatabaseAdapter on top of a WebSocket
// connection to the reference coordinator in package server.
package wsadapter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alimasry/go-collab-ot/client"
	"github.com/alimasry/go-collab-ot/ot"
	"github.com/alimasry/go-collab-ot/server"
)

// Adapter connects an EditorClient to a coordinator over WebSocket. Create
// it with Dial, hand it to client.NewEditorClient (which registers its
// callbacks), then call Start to join the document and begin dispatching.
type Adapter struct {
	conn  *websocket.Conn
	docID string

	writeMu sync.Mutex

	mu           sync.Mutex
	cb           client.DatabaseCallbacks
	userID       string
	userColor    string
	userName     string
	revision     int
	content      string
	historyEmpty bool
	closed       bool
}

// Dial connects to a coordinator WebSocket endpoint for the given document.
func Dial(url, docID string) (*Adapter, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsadapter: dial %s: %w", url, err)
	}
	return &Adapter{
		conn:   conn,
		docID:  docID,
		userID: uuid.NewString(),
	}, nil
}

// RegisterCallbacks installs the core's hooks. Must be called before Start.
func (a *Adapter) RegisterCallbacks(cb client.DatabaseCallbacks) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
}

// Start joins the document and begins the read loop.
func (a *Adapter) Start() error {
	a.mu.Lock()
	msg := server.ClientMessage{
		Type:   server.MsgJoin,
		DocID:  a.docID,
		UserID: a.userID,
		Name:   a.userName,
		Color:  a.userColor,
	}
	a.mu.Unlock()
	if err := a.writeJSON(msg); err != nil {
		return err
	}
	go a.readLoop()
	return nil
}

func (a *Adapter) readLoop() {
	for {
		var msg server.ServerMessage
		if err := a.conn.ReadJSON(&msg); err != nil {
			a.mu.Lock()
			closed := a.closed
			cb := a.cb
			a.mu.Unlock()
			if !closed && cb.Error != nil {
				cb.Error(fmt.Errorf("wsadapter: read: %w", err))
			}
			return
		}
		a.dispatch(msg)
	}
}

func (a *Adapter) dispatch(msg server.ServerMessage) {
	a.mu.Lock()
	cb := a.cb
	switch msg.Type {
	case server.MsgDoc:
		a.revision = msg.Revision
		a.content = msg.Content
		a.historyEmpty = msg.Revision == 0 && msg.Content == ""
	case server.MsgAck, server.MsgOp:
		a.revision = msg.Revision
		a.historyEmpty = false
	}
	a.mu.Unlock()

	switch msg.Type {
	case server.MsgDoc:
		if cb.Ready != nil {
			cb.Ready()
		}
		// Peers present before we joined arrive with the snapshot.
		if cb.Cursor != nil {
			for _, info := range msg.Clients {
				if info.ID == a.userID || info.Cursor == nil {
					continue
				}
				cb.Cursor(info.ID, info.Cursor, info.Color, info.Name)
			}
		}
	case server.MsgAck:
		if cb.Ack != nil {
			cb.Ack()
		}
	case server.MsgRetry:
		if cb.Retry != nil {
			cb.Retry()
		}
	case server.MsgOp:
		if cb.Operation != nil {
			cb.Operation(msg.Op)
		}
	case server.MsgCursor:
		if cb.Cursor != nil {
			cb.Cursor(msg.ClientID, msg.Cursor, msg.Color, msg.Name)
		}
	case server.MsgLeave:
		// Departed peers take their cursor with them.
		if cb.Cursor != nil {
			cb.Cursor(msg.ClientID, nil, "", "")
		}
	case server.MsgError:
		if cb.Error != nil {
			cb.Error(errors.New(msg.Message))
		}
	}
}

func (a *Adapter) writeJSON(v interface{}) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteJSON(v)
}

// SendOperation sends a local operation at the last seen revision.
func (a *Adapter) SendOperation(op *ot.Operation) error {
	a.mu.Lock()
	revision := a.revision
	a.mu.Unlock()
	return a.writeJSON(server.ClientMessage{
		Type:     server.MsgOp,
		DocID:    a.docID,
		Revision: revision,
		Op:       op,
	})
}

// SendCursor broadcasts the local cursor; nil removes it.
func (a *Adapter) SendCursor(c *ot.Cursor) error {
	return a.writeJSON(server.ClientMessage{
		Type:   server.MsgCursor,
		DocID:  a.docID,
		Cursor: c,
	})
}

func (a *Adapter) IsCurrentUser(clientID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return clientID == a.userID
}

func (a *Adapter) IsHistoryEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.historyEmpty
}

func (a *Adapter) SetUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userID = id
}

func (a *Adapter) SetUserColor(color string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userColor = color
}

func (a *Adapter) SetUserName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = name
}

// Content returns the document snapshot received on join.
func (a *Adapter) Content() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content
}

// Revision returns the last seen server revision.
func (a *Adapter) Revision() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revision
}

// Close shuts the connection down. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	return a.conn.Close()
}
