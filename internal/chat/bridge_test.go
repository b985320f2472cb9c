package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrooms/internal/message"
)

func newTestBridge(origin string) *Bridge {
	return &Bridge{
		origin: origin,
		out:    make(chan bridgeEnvelope, publishQueueSize),
		quit:   make(chan struct{}),
	}
}

func peerMessage(roomID string) *message.Message {
	return &message.Message{
		ID:         "m-peer",
		RoomID:     roomID,
		SenderName: "alice",
		Content:    "from another instance",
		CreatedAt:  time.Now().UTC(),
	}
}

func TestBridgeDeliversPeerMessages(t *testing.T) {
	store := newFakeStore("r1")
	hub := NewHub(store)
	sink := &recordSink{}
	hub.Registry().Join("r1", "a", sink)

	b := newTestBridge("self")
	b.handleEnvelope(hub, bridgeEnvelope{
		Origin:  "peer",
		Kind:    bridgeKindMessage,
		RoomID:  "r1",
		Message: peerMessage("r1"),
	})

	events := sink.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventNewMessage, events[0].Event)

	var got message.Message
	require.NoError(t, json.Unmarshal(events[0].Data, &got))
	assert.Equal(t, "m-peer", got.ID)
	assert.Equal(t, 0, store.createdCount(), "relayed messages are not re-persisted")
}

func TestBridgeSkipsOwnOrigin(t *testing.T) {
	hub := NewHub(newFakeStore("r1"))
	sink := &recordSink{}
	hub.Registry().Join("r1", "a", sink)

	b := newTestBridge("self")
	b.handleEnvelope(hub, bridgeEnvelope{
		Origin:  "self",
		Kind:    bridgeKindMessage,
		RoomID:  "r1",
		Message: peerMessage("r1"),
	})

	assert.Empty(t, sink.events(t), "a node must not redeliver its own envelopes")
}

func TestBridgeRelaysEviction(t *testing.T) {
	hub := NewHub(newFakeStore("r1"))
	hub.Registry().Join("r1", "a", &recordSink{})

	b := newTestBridge("self")
	b.handleEnvelope(hub, bridgeEnvelope{
		Origin: "peer",
		Kind:   bridgeKindRoomEvict,
		RoomID: "r1",
	})

	assert.Empty(t, hub.Registry().MembersOf("r1"))
}

func TestBridgeIgnoresMalformedPayloads(t *testing.T) {
	hub := NewHub(newFakeStore("r1"))
	sink := &recordSink{}
	hub.Registry().Join("r1", "a", sink)

	b := newTestBridge("self")
	b.handlePayload(hub, []byte(`{`))
	b.handleEnvelope(hub, bridgeEnvelope{Origin: "peer", Kind: "unknown", RoomID: "r1"})
	b.handleEnvelope(hub, bridgeEnvelope{Origin: "peer", Kind: bridgeKindMessage, RoomID: "r1"})

	assert.Empty(t, sink.events(t))
}

func TestBridgePublishNeverBlocks(t *testing.T) {
	b := newTestBridge("self")

	// No publish loop is draining; the queue fills and further envelopes
	// are dropped instead of stalling the send path.
	for i := 0; i < publishQueueSize+10; i++ {
		b.PublishMessage("r1", peerMessage("r1"))
	}
	assert.Len(t, b.out, publishQueueSize)

	first := <-b.out
	assert.Equal(t, bridgeKindMessage, first.Kind)
	assert.Equal(t, "self", first.Origin)
}
