// Package chat defines the domain types shared by the registry, the
// broadcast engine, and the persistence gateway.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// ContentKind describes what a message body holds.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// User is a durable chat identity, created on first login and immutable
// afterwards.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Room is a static, pre-provisioned broadcast domain.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is one append-only chat message. Ordering within a room is
// (CreatedAt, ID), with ID breaking timestamp ties.
type Message struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"room_id"`
	UserID      string      `json:"user_id"`
	Username    string      `json:"username"`
	Content     string      `json:"content"`
	ContentType ContentKind `json:"content_type"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewMessage builds a message with a fresh ID and a UTC timestamp.
func NewMessage(roomID, userID, username, content string, kind ContentKind) *Message {
	return &Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		UserID:      userID,
		Username:    username,
		Content:     content,
		ContentType: kind,
		CreatedAt:   time.Now().UTC(),
	}
}

// previewRunes is how much of a text message survives in a notification.
const previewRunes = 30

// Preview returns the short human-readable notification line for a
// message. Image previews are a fixed string, never derived from the blob.
func (m *Message) Preview() string {
	if m.ContentType == ContentImage {
		return m.Username + " sent an image"
	}
	runes := []rune(m.Content)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return m.Username + ": " + string(runes) + "..."
}
