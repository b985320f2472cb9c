package room

import (
	"errors"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when a room id does not exist.
	ErrNotFound = errors.New("room not found")
	// ErrNameTaken is returned when a room name is already in use.
	ErrNameTaken = errors.New("room name already exists")
)

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// MessageCount is derived from the messages table, not stored.
	MessageCount int `json:"messageCount"`
}

// ValidateName checks the 1-100 char bound on room names.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return errors.New("name must be at most 100 characters")
	}
	return nil
}
