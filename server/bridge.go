package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alimasry/go-collab-ot/ot"
)

const bridgeChannelPrefix = "otdoc:"

// bridgeMessage is a remoteEnvelope stamped with the publishing node so a
// node can skip its own publications.
type bridgeMessage struct {
	Node string `json:"node"`
	remoteEnvelope
}

// RedisBridge fans accepted operations and cursors out to other server
// nodes through redis pub-sub, one channel per document. Every node
// publishes what it accepts and relays what it receives to the local
// session.
type RedisBridge struct {
	rdb    *redis.Client
	nodeID string
	hub    *Hub

	mu         sync.Mutex
	pubsub     *redis.PubSub
	subscribed map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRedisBridge(rdb *redis.Client) *RedisBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBridge{
		rdb:        rdb,
		nodeID:     uuid.NewString(),
		subscribed: make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Subscribe starts relaying the document's channel into the local session.
func (b *RedisBridge) Subscribe(docID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed[docID] {
		return
	}
	b.subscribed[docID] = true
	if b.pubsub == nil {
		b.pubsub = b.rdb.Subscribe(b.ctx, bridgeChannelPrefix+docID)
		go b.readLoop()
		return
	}
	if err := b.pubsub.Subscribe(b.ctx, bridgeChannelPrefix+docID); err != nil {
		log.Printf("bridge: subscribe %q: %v", docID, err)
	}
}

func (b *RedisBridge) readLoop() {
	for msg := range b.pubsub.Channel() {
		var bm bridgeMessage
		if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
			log.Printf("bridge: bad payload on %s: %v", msg.Channel, err)
			continue
		}
		if bm.Node == b.nodeID {
			continue
		}
		docID := strings.TrimPrefix(msg.Channel, bridgeChannelPrefix)
		s := b.hub.GetSession(docID)
		if s == nil {
			continue
		}
		select {
		case s.remote <- bm.remoteEnvelope:
		default:
			log.Printf("bridge: session %s remote queue full, dropping", docID)
		}
	}
}

// PublishOp announces an accepted operation to the other nodes.
func (b *RedisBridge) PublishOp(docID string, revision int, op *ot.Operation, clientID string) {
	b.publish(docID, bridgeMessage{
		Node: b.nodeID,
		remoteEnvelope: remoteEnvelope{
			Revision: revision,
			Op:       op,
			ClientID: clientID,
		},
	})
}

// PublishCursor announces a cursor update to the other nodes.
func (b *RedisBridge) PublishCursor(docID string, cursor *ot.Cursor, clientID, name, color string) {
	b.publish(docID, bridgeMessage{
		Node: b.nodeID,
		remoteEnvelope: remoteEnvelope{
			IsCursor: true,
			Cursor:   cursor,
			ClientID: clientID,
			Name:     name,
			Color:    color,
		},
	})
}

func (b *RedisBridge) publish(docID string, bm bridgeMessage) {
	payload, err := json.Marshal(bm)
	if err != nil {
		log.Printf("bridge: marshal: %v", err)
		return
	}
	if err := b.rdb.Publish(b.ctx, bridgeChannelPrefix+docID, payload).Err(); err != nil {
		log.Printf("bridge: publish %q: %v", docID, err)
	}
}

// Close stops the relay.
func (b *RedisBridge) Close() {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		b.pubsub.Close()
	}
}
