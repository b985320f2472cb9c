package chat

import (
	"encoding/json"

	"chatrooms/internal/message"
)

// Wire event names, matching what the frontend emits and listens for.
const (
	EventJoinRoom    = "join_room"
	EventJoinedRoom  = "joined_room"
	EventSendMessage = "send_message"
	EventNewMessage  = "new_message"
	EventError       = "error"
)

// Envelope frames every event on the push channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinRoomData struct {
	RoomID string `json:"roomId"`
}

type sendMessageData struct {
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

type errorData struct {
	Message string `json:"message"`
}

func marshalEvent(event string, data any) []byte {
	raw, _ := json.Marshal(data)
	out, _ := json.Marshal(Envelope{Event: event, Data: raw})
	return out
}

func newMessageEvent(msg *message.Message) []byte {
	return marshalEvent(EventNewMessage, msg)
}

func errorEvent(msg string) []byte {
	return marshalEvent(EventError, errorData{Message: msg})
}

func joinedRoomEvent(roomID string) []byte {
	return marshalEvent(EventJoinedRoom, joinRoomData{RoomID: roomID})
}
