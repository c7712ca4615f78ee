package ws

import (
	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Session is the live server-side state for one connected client. It is
// created when the socket is accepted and destroyed on disconnect; there
// is no resumption.
type Session struct {
	ID       string
	UserID   string
	Username string

	conn *websocket.Conn
	send chan []byte

	// roomID is the room this session is currently joined to, or ""
	// while connected but not in a room. It is read and written only by
	// the session's own read-loop goroutine; the registry holds the
	// authoritative copy for everyone else.
	roomID string
}

// NewSession creates a session for an accepted connection.
func NewSession(conn *websocket.Conn, user *chat.User) *Session {
	return &Session{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Username: user.Username,
		conn:     conn,
	}
}

// InRoom reports whether the session has joined a room.
func (s *Session) InRoom() bool {
	return s.roomID != ""
}
