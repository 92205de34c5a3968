package server

import (
	"context"
	"log"

	"github.com/alimasry/go-collab-ot/ot"
	"github.com/alimasry/go-collab-ot/store"
)

// clientEnvelope is a message from a connected client awaiting serialization.
type clientEnvelope struct {
	client *Client
	msg    ClientMessage
}

// remoteEnvelope is an already-accepted op or cursor relayed from another
// server node via the redis bridge.
type remoteEnvelope struct {
	Revision int           `json:"revision"`
	Op       *ot.Operation `json:"op,omitempty"`
	Cursor   *ot.Cursor    `json:"cursor,omitempty"`
	IsCursor bool          `json:"isCursor,omitempty"`
	ClientID string        `json:"clientId"`
	Name     string        `json:"name,omitempty"`
	Color    string        `json:"color,omitempty"`
}

// Session manages collaboration for a single document.
// All operations are serialized through a single goroutine.
type Session struct {
	docID   string
	doc     *ot.Document
	engine  ot.Engine
	store   store.DocumentStore
	bridge  *RedisBridge
	clients map[*Client]bool
	cursors map[string]*ot.Cursor

	incoming chan clientEnvelope
	remote   chan remoteEnvelope
	join     chan *Client
	leave    chan *Client
	stop     chan struct{}
}

func newSession(docID, content string, version int, history []*ot.Operation, engine ot.Engine, st store.DocumentStore, bridge *RedisBridge) *Session {
	doc := ot.NewDocument(content)
	doc.Version = version
	doc.History = history
	return &Session{
		docID:    docID,
		doc:      doc,
		engine:   engine,
		store:    st,
		bridge:   bridge,
		clients:  make(map[*Client]bool),
		cursors:  make(map[string]*ot.Cursor),
		incoming: make(chan clientEnvelope, 64),
		remote:   make(chan remoteEnvelope, 64),
		join:     make(chan *Client, 16),
		leave:    make(chan *Client, 16),
		stop:     make(chan struct{}),
	}
}

// Run is the session's main loop. It serializes all operations.
func (s *Session) Run() {
	for {
		select {
		case c := <-s.join:
			s.handleJoin(c)
		case c := <-s.leave:
			s.handleLeave(c)
		case env := <-s.incoming:
			switch env.msg.Type {
			case MsgOp:
				s.handleOp(env)
			case MsgCursor:
				s.handleCursor(env)
			}
		case env := <-s.remote:
			s.handleRemote(env)
		case <-s.stop:
			return
		}
	}
}

func (s *Session) handleJoin(c *Client) {
	s.clients[c] = true
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	// Send current document state to the joining client.
	c.sendMsg(ServerMessage{
		Type:     MsgDoc,
		DocID:    s.docID,
		Content:  s.doc.Content,
		Revision: s.doc.Version,
		Clients:  s.clientInfos(),
	})

	// Notify other clients about the new user.
	for other := range s.clients {
		if other != c {
			other.sendMsg(ServerMessage{
				Type:     MsgJoin,
				ClientID: c.ID,
				Name:     c.Name,
				Color:    c.Color,
			})
		}
	}
}

func (s *Session) handleLeave(c *Client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	delete(s.cursors, c.ID)
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	close(c.send)

	// Notify others.
	for other := range s.clients {
		other.sendMsg(ServerMessage{
			Type:     MsgLeave,
			ClientID: c.ID,
		})
	}
}

func (s *Session) handleOp(env clientEnvelope) {
	// Transform the client's operation against server history.
	transformed, err := s.engine.TransformIncoming(env.msg.Op, env.msg.Revision, s.doc.History)
	if err != nil {
		log.Printf("session %s: transform error: %v", s.docID, err)
		env.client.sendError("transform error: " + err.Error())
		return
	}

	// A transformed-away op (e.g. both sides deleted the same text) still
	// needs an ack so the client can release its buffer.
	if transformed.IsNoop() {
		env.client.sendMsg(ServerMessage{Type: MsgAck, Revision: s.doc.Version})
		return
	}

	// Apply to the document.
	prevContent, prevVersion := s.doc.Content, s.doc.Version
	if err := s.doc.Apply(transformed); err != nil {
		log.Printf("session %s: apply error: %v", s.docID, err)
		env.client.sendError("apply error: " + err.Error())
		return
	}

	// Persist. A failed write is transient as far as the client is
	// concerned: roll the document back and ask it to resend.
	ctx := context.Background()
	if err := s.store.AppendOperation(ctx, s.docID, transformed, s.doc.Version); err != nil {
		log.Printf("session %s: persist op error: %v", s.docID, err)
		s.doc.Content, s.doc.Version = prevContent, prevVersion
		s.doc.History = s.doc.History[:len(s.doc.History)-1]
		env.client.sendMsg(ServerMessage{Type: MsgRetry, Revision: s.doc.Version})
		return
	}
	if err := s.store.UpdateContent(ctx, s.docID, s.doc.Content, s.doc.Version); err != nil {
		log.Printf("session %s: persist content error: %v", s.docID, err)
	}

	// Ack the sender.
	env.client.sendMsg(ServerMessage{
		Type:     MsgAck,
		Revision: s.doc.Version,
	})

	// Broadcast to other clients.
	for c := range s.clients {
		if c != env.client {
			c.sendMsg(ServerMessage{
				Type:     MsgOp,
				DocID:    s.docID,
				Revision: s.doc.Version,
				Op:       transformed,
				ClientID: env.client.ID,
			})
		}
	}
	if s.bridge != nil {
		s.bridge.PublishOp(s.docID, s.doc.Version, transformed, env.client.ID)
	}
}

func (s *Session) handleCursor(env clientEnvelope) {
	if env.msg.Cursor == nil {
		delete(s.cursors, env.client.ID)
	} else {
		s.cursors[env.client.ID] = env.msg.Cursor
	}
	for c := range s.clients {
		if c != env.client {
			c.sendMsg(ServerMessage{
				Type:     MsgCursor,
				DocID:    s.docID,
				ClientID: env.client.ID,
				Cursor:   env.msg.Cursor,
				Name:     env.client.Name,
				Color:    env.client.Color,
			})
		}
	}
	if s.bridge != nil {
		s.bridge.PublishCursor(s.docID, env.msg.Cursor, env.client.ID, env.client.Name, env.client.Color)
	}
}

// handleRemote delivers an op or cursor accepted on another node to the
// clients connected here. Ops arrive in publish order per document; a
// revision gap means this node fell behind and resynchronizes from the store.
func (s *Session) handleRemote(env remoteEnvelope) {
	if env.IsCursor {
		for c := range s.clients {
			c.sendMsg(ServerMessage{
				Type:     MsgCursor,
				DocID:    s.docID,
				ClientID: env.ClientID,
				Cursor:   env.Cursor,
				Name:     env.Name,
				Color:    env.Color,
			})
		}
		return
	}

	if env.Revision != s.doc.Version+1 {
		if env.Revision <= s.doc.Version {
			return // our own publication echoed back, or already seen
		}
		log.Printf("session %s: revision gap (have %d, got %d), resyncing", s.docID, s.doc.Version, env.Revision)
		s.resyncFromStore()
		return
	}
	if err := s.doc.Apply(env.Op); err != nil {
		log.Printf("session %s: remote apply error: %v", s.docID, err)
		return
	}
	for c := range s.clients {
		c.sendMsg(ServerMessage{
			Type:     MsgOp,
			DocID:    s.docID,
			Revision: s.doc.Version,
			Op:       env.Op,
			ClientID: env.ClientID,
		})
	}
}

func (s *Session) resyncFromStore() {
	ctx := context.Background()
	ops, err := s.store.GetOperations(ctx, s.docID, s.doc.Version)
	if err != nil {
		log.Printf("session %s: resync error: %v", s.docID, err)
		return
	}
	for _, op := range ops {
		if err := s.doc.Apply(op); err != nil {
			log.Printf("session %s: resync apply error: %v", s.docID, err)
			return
		}
		for c := range s.clients {
			c.sendMsg(ServerMessage{
				Type:     MsgOp,
				DocID:    s.docID,
				Revision: s.doc.Version,
				Op:       op,
			})
		}
	}
}

func (s *Session) clientInfos() []ClientInfo {
	infos := make([]ClientInfo, 0, len(s.clients))
	for c := range s.clients {
		info := c.Info()
		info.Cursor = s.cursors[c.ID]
		infos = append(infos, info)
	}
	return infos
}
