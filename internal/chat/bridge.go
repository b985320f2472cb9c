package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chatrooms/internal/message"
)

const bridgeChannel = "chatrooms:events"

const (
	bridgeKindMessage   = "message"
	bridgeKindRoomEvict = "room_evicted"
)

const publishQueueSize = 256

// bridgeEnvelope is what instances exchange over Redis. Origin carries the
// publishing instance's id: a node already broadcast locally before
// publishing, so it skips its own envelopes to keep delivery exactly-once.
type bridgeEnvelope struct {
	Origin  string           `json:"origin"`
	Kind    string           `json:"kind"`
	RoomID  string           `json:"roomId"`
	Message *message.Message `json:"message,omitempty"`
}

// Bridge relays broadcasts and room evictions between server instances over
// Redis pub/sub. It is optional; a single instance runs without one.
// Outbound envelopes go through a queue drained by one goroutine, so a slow
// Redis round-trip never stalls a send path, while envelope order per room
// is preserved.
type Bridge struct {
	rdb    *redis.Client
	origin string
	pubsub *redis.PubSub

	out      chan bridgeEnvelope
	quit     chan struct{}
	quitOnce sync.Once
}

func NewBridge(rdb *redis.Client) *Bridge {
	return &Bridge{
		rdb:    rdb,
		origin: uuid.NewString(),
		out:    make(chan bridgeEnvelope, publishQueueSize),
		quit:   make(chan struct{}),
	}
}

// AttachBridge wires the bridge into the hub and starts relaying. Call once,
// before serving connections.
func (h *Hub) AttachBridge(b *Bridge) {
	h.bridge = b
	b.pubsub = b.rdb.Subscribe(context.Background(), bridgeChannel)
	go b.relay(h)
	go b.publishLoop()
}

func (b *Bridge) relay(hub *Hub) {
	for msg := range b.pubsub.Channel() {
		b.handlePayload(hub, []byte(msg.Payload))
	}
}

func (b *Bridge) handlePayload(hub *Hub, payload []byte) {
	var env bridgeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Printf("bridge: bad envelope: %v", err)
		return
	}
	b.handleEnvelope(hub, env)
}

func (b *Bridge) handleEnvelope(hub *Hub, env bridgeEnvelope) {
	if env.Origin == b.origin {
		return
	}

	switch env.Kind {
	case bridgeKindMessage:
		if env.Message != nil {
			hub.deliverLocal(env.RoomID, newMessageEvent(env.Message))
		}
	case bridgeKindRoomEvict:
		hub.evictLocal(env.RoomID)
	}
}

// PublishMessage relays a stored message to peer instances. Enqueueing never
// blocks the caller; bridge failures are logged, never surfaced to the send
// path: local delivery already happened.
func (b *Bridge) PublishMessage(roomID string, msg *message.Message) {
	b.enqueue(bridgeEnvelope{
		Origin:  b.origin,
		Kind:    bridgeKindMessage,
		RoomID:  roomID,
		Message: msg,
	})
}

// PublishEviction relays a room deletion to peer instances.
func (b *Bridge) PublishEviction(roomID string) {
	b.enqueue(bridgeEnvelope{
		Origin: b.origin,
		Kind:   bridgeKindRoomEvict,
		RoomID: roomID,
	})
}

func (b *Bridge) enqueue(env bridgeEnvelope) {
	select {
	case b.out <- env:
	default:
		log.Printf("bridge: publish queue full, dropping %s for room %s", env.Kind, env.RoomID)
	}
}

func (b *Bridge) publishLoop() {
	for {
		select {
		case env := <-b.out:
			payload, _ := json.Marshal(env)
			if err := b.rdb.Publish(context.Background(), bridgeChannel, payload).Err(); err != nil {
				log.Printf("bridge: publish error: %v", err)
			}
		case <-b.quit:
			return
		}
	}
}

func (b *Bridge) Close() error {
	b.quitOnce.Do(func() { close(b.quit) })
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
