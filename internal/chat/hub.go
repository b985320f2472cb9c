package chat

import (
	"context"
	"sync"

	"chatrooms/internal/message"
)

// MessageStore persists messages. Implemented by message.Repository.
type MessageStore interface {
	Create(ctx context.Context, roomID, senderName, content string) (*message.Message, error)
}

// Hub owns the realtime core: the membership registry, the set of open
// sessions, and the single persist-then-broadcast path shared by the push
// channel and the REST API. One Hub is created on server start and closed on
// shutdown.
type Hub struct {
	registry *Registry
	store    MessageStore
	bridge   *Bridge // nil when running a single instance

	mu        sync.Mutex
	clients   map[string]*Client
	roomLocks map[string]*sync.Mutex
	closed    bool
}

func NewHub(store MessageStore) *Hub {
	return &Hub{
		registry:  NewRegistry(),
		store:     store,
		clients:   make(map[string]*Client),
		roomLocks: make(map[string]*sync.Mutex),
	}
}

// Registry exposes the membership index, mainly for tests and diagnostics.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// SendMessage validates, persists, and broadcasts one message. It is the
// only place a broadcast is triggered, so a stored message goes out exactly
// once whether it came in over the push channel or over HTTP. A per-room
// lock keeps broadcast order equal to persist order within the room.
func (h *Hub) SendMessage(ctx context.Context, roomID, senderName, content string) (*message.Message, error) {
	if roomID == "" {
		return nil, &message.ValidationError{Reason: "roomId is required"}
	}
	if err := message.Validate(senderName, content); err != nil {
		return nil, err
	}

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := h.store.Create(ctx, roomID, senderName, content)
	if err != nil {
		return nil, err
	}
	h.broadcast(roomID, msg)
	return msg, nil
}

// broadcast fans the message out to every current member of the room and,
// when bridged, to peer instances. An empty room is a no-op.
func (h *Hub) broadcast(roomID string, msg *message.Message) {
	h.deliverLocal(roomID, newMessageEvent(msg))
	if h.bridge != nil {
		h.bridge.PublishMessage(roomID, msg)
	}
}

// deliverLocal hands the payload to each member's sink. Deliver never
// blocks, so one slow or closed recipient cannot delay the others.
func (h *Hub) deliverLocal(roomID string, payload []byte) {
	for _, sink := range h.registry.MembersOf(roomID) {
		sink.Deliver(payload)
	}
}

// EvictRoom drops the room from the membership index, here and on peers.
// Called when the room is deleted.
func (h *Hub) EvictRoom(roomID string) {
	h.evictLocal(roomID)
	if h.bridge != nil {
		h.bridge.PublishEviction(roomID)
	}
}

func (h *Hub) evictLocal(roomID string) {
	h.registry.EvictRoom(roomID)
	h.mu.Lock()
	delete(h.roomLocks, roomID)
	h.mu.Unlock()
}

func (h *Hub) roomLock(roomID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		h.roomLocks[roomID] = lock
	}
	return lock
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.Close()
		return
	}
	h.clients[c.handle] = c
	h.mu.Unlock()
}

// unregister releases the client's handle and clears its memberships.
// Reached exactly once per session, from the read pump's cleanup.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.handle)
	h.mu.Unlock()
	h.registry.LeaveAll(c.handle)
}

// Close shuts down every open session and clears the registry.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.registry.Clear()
}
