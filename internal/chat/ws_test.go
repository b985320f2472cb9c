package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrooms/internal/message"
)

func startWsServer(t *testing.T, store MessageStore) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(store)
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(hub).ServeWs))
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return hub, srv
}

func dialWs(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// expectNoEvent asserts nothing arrives within a short window. The read
// deadline poisons the connection, so only call this last.
func expectNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var env Envelope
	err := conn.ReadJSON(&env)
	require.Error(t, err, "expected no event, got %q", env.Event)
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID string) {
	t.Helper()
	writeEvent(t, conn, EventJoinRoom, joinRoomData{RoomID: roomID})
	env := readEvent(t, conn)
	require.Equal(t, EventJoinedRoom, env.Event)

	var ack joinRoomData
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	require.Equal(t, roomID, ack.RoomID)
}

func TestJoinRoomWithoutIDRejected(t *testing.T) {
	hub, srv := startWsServer(t, newFakeStore())
	conn := dialWs(t, srv)

	writeEvent(t, conn, EventJoinRoom, joinRoomData{})
	env := readEvent(t, conn)
	assert.Equal(t, EventError, env.Event)
	assert.Empty(t, hub.Registry().MembersOf(""))
}

func TestUnknownEventRejected(t *testing.T) {
	_, srv := startWsServer(t, newFakeStore())
	conn := dialWs(t, srv)

	writeEvent(t, conn, "dance", nil)
	env := readEvent(t, conn)
	assert.Equal(t, EventError, env.Event)
}

func TestSendMessageReachesAllRoomMembers(t *testing.T) {
	_, srv := startWsServer(t, newFakeStore("r1", "r2"))

	a := dialWs(t, srv)
	b := dialWs(t, srv)
	c := dialWs(t, srv)
	joinRoom(t, a, "r1")
	joinRoom(t, b, "r1")
	joinRoom(t, c, "r2")

	writeEvent(t, a, EventSendMessage, sendMessageData{
		RoomID: "r1", SenderName: "alice", Content: "hi",
	})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEvent(t, conn)
		require.Equal(t, EventNewMessage, env.Event)

		var msg message.Message
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "r1", msg.RoomID)
		assert.Equal(t, "alice", msg.SenderName)
		assert.Equal(t, "hi", msg.Content)
		assert.NotEmpty(t, msg.ID)
	}
	expectNoEvent(t, c)
}

func TestSendMessageValidationError(t *testing.T) {
	store := newFakeStore("r1")
	_, srv := startWsServer(t, store)
	conn := dialWs(t, srv)
	joinRoom(t, conn, "r1")

	writeEvent(t, conn, EventSendMessage, sendMessageData{
		RoomID: "r1", SenderName: "alice", Content: "",
	})

	env := readEvent(t, conn)
	assert.Equal(t, EventError, env.Event)
	assert.Equal(t, 0, store.createdCount(), "nothing stored, nothing broadcast")
}

func TestSendMessageToUnknownRoom(t *testing.T) {
	store := newFakeStore("r1")
	_, srv := startWsServer(t, store)

	sender := dialWs(t, srv)
	bystander := dialWs(t, srv)
	joinRoom(t, bystander, "r1")

	writeEvent(t, sender, EventSendMessage, sendMessageData{
		RoomID: "missing", SenderName: "alice", Content: "hi",
	})

	env := readEvent(t, sender)
	require.Equal(t, EventError, env.Event)

	var errData errorData
	require.NoError(t, json.Unmarshal(env.Data, &errData))
	assert.Contains(t, errData.Message, "not found")
	expectNoEvent(t, bystander)
}

func TestDisconnectCleansUpMembership(t *testing.T) {
	hub, srv := startWsServer(t, newFakeStore("r1"))

	a := dialWs(t, srv)
	b := dialWs(t, srv)
	joinRoom(t, a, "r1")
	joinRoom(t, b, "r1")

	a.Close()
	require.Eventually(t, func() bool {
		return len(hub.Registry().MembersOf("r1")) == 1
	}, 2*time.Second, 10*time.Millisecond, "closed session must leave the room")

	// Delivery still works for the remaining member; the closed handle is
	// simply gone, no error surfaces.
	writeEvent(t, b, EventSendMessage, sendMessageData{
		RoomID: "r1", SenderName: "bob", Content: "still here",
	})
	env := readEvent(t, b)
	assert.Equal(t, EventNewMessage, env.Event)
}

func TestHubCloseShutsDownSessions(t *testing.T) {
	hub, srv := startWsServer(t, newFakeStore("r1"))
	conn := dialWs(t, srv)
	joinRoom(t, conn, "r1")

	hub.Close()

	assert.Empty(t, hub.Registry().MembersOf("r1"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server side closed the connection")
}

func TestJoinMultipleRoomsConcurrently(t *testing.T) {
	hub, srv := startWsServer(t, newFakeStore("r1", "r2"))
	conn := dialWs(t, srv)
	joinRoom(t, conn, "r1")
	joinRoom(t, conn, "r2")

	require.Len(t, hub.Registry().MembersOf("r1"), 1)
	require.Len(t, hub.Registry().MembersOf("r2"), 1)

	writeEvent(t, conn, EventSendMessage, sendMessageData{
		RoomID: "r2", SenderName: "alice", Content: "both rooms",
	})
	env := readEvent(t, conn)
	require.Equal(t, EventNewMessage, env.Event)

	var msg message.Message
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "r2", msg.RoomID)
}
