package server

import (
	"encoding/json"

	"github.com/alimasry/go-collab-ot/ot"
)

// Message types exchanged over WebSocket.
const (
	MsgJoin   = "join"
	MsgLeave  = "leave"
	MsgOp     = "op"
	MsgAck    = "ack"
	MsgRetry  = "retry"
	MsgDoc    = "doc"
	MsgCursor = "cursor"
	MsgError  = "error"
)

// ClientMessage is a message from client to server.
type ClientMessage struct {
	Type     string        `json:"type"`
	DocID    string        `json:"docId,omitempty"`
	Revision int           `json:"revision"`
	Op       *ot.Operation `json:"op,omitempty"`
	Cursor   *ot.Cursor    `json:"cursor,omitempty"`
	UserID   string        `json:"userId,omitempty"`
	Name     string        `json:"name,omitempty"`
	Color    string        `json:"color,omitempty"`
}

// ServerMessage is a message from server to client.
type ServerMessage struct {
	Type     string        `json:"type"`
	DocID    string        `json:"docId,omitempty"`
	Content  string        `json:"content"`
	Revision int           `json:"revision"`
	Op       *ot.Operation `json:"op,omitempty"`
	Cursor   *ot.Cursor    `json:"cursor,omitempty"`
	ClientID string        `json:"clientId,omitempty"`
	Name     string        `json:"name,omitempty"`
	Color    string        `json:"color,omitempty"`
	Message  string        `json:"message,omitempty"`
	Clients  []ClientInfo  `json:"clients,omitempty"`
}

// ClientInfo describes a connected user.
type ClientInfo struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Color  string     `json:"color"`
	Cursor *ot.Cursor `json:"cursor,omitempty"`
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
