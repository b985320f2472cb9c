package chat

import "sync"

// Sink receives outbound payloads for one connection. Deliver must not
// block: it reports false when the session is closed or its buffer is full.
type Sink interface {
	Deliver(payload []byte) bool
}

// Registry is the authoritative in-memory index of room-to-handle
// subscriptions. All operations are safe under concurrent invocation and
// never fail; an unknown room id simply reads as empty.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Sink // roomID -> handle -> sink
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]Sink)}
}

// Join adds the handle to the room's member set, creating the set if absent.
// Joining twice is the same as joining once.
func (r *Registry) Join(roomID, handle string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]Sink)
		r.rooms[roomID] = members
	}
	members[handle] = sink
}

// Leave removes the handle from the room. An emptied set is removed
// entirely so the index never holds dangling rooms.
func (r *Registry) Leave(roomID, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, handle)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// LeaveAll removes the handle from every room. Called once on disconnect.
func (r *Registry) LeaveAll(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID, members := range r.rooms {
		if _, ok := members[handle]; !ok {
			continue
		}
		delete(members, handle)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// MembersOf returns a snapshot of the room's current members. Callers never
// observe a half-updated set.
func (r *Registry) MembersOf(roomID string) map[string]Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	snapshot := make(map[string]Sink, len(members))
	for handle, sink := range members {
		snapshot[handle] = sink
	}
	return snapshot
}

// EvictRoom drops the room's entry. Members stay connected.
func (r *Registry) EvictRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// Clear empties the whole index. Used on server shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = make(map[string]map[string]Sink)
}
