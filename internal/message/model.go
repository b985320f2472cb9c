package message

import (
	"errors"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when a message id does not exist.
	ErrNotFound = errors.New("message not found")
	// ErrRoomNotFound is returned when the target room does not exist.
	ErrRoomNotFound = errors.New("room not found")
)

type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ValidationError reports a missing or out-of-bounds field on a send.
// It is recovered locally and surfaced to the sender only, never fatal.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate enforces the send-path field bounds: sender name 1-50 chars,
// content 1-1000 chars.
func Validate(senderName, content string) error {
	if senderName == "" || content == "" {
		return &ValidationError{Reason: "senderName and content are required"}
	}
	// Bounds count characters, not bytes; multibyte names are fine.
	if utf8.RuneCountInString(senderName) > 50 {
		return &ValidationError{Reason: "senderName must be at most 50 characters"}
	}
	if utf8.RuneCountInString(content) > 1000 {
		return &ValidationError{Reason: "content must be at most 1000 characters"}
	}
	return nil
}
