package chat

import "time"

// NotificationType tags what triggered a notification event.
type NotificationType string

const (
	NotifyJoin    NotificationType = "join"
	NotifyLeave   NotificationType = "leave"
	NotifyMessage NotificationType = "message"
)

// NewMessageEvent is the wire payload broadcast for each persisted message.
type NewMessageEvent struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	ContentType ContentKind `json:"content_type"`
	Timestamp   string      `json:"timestamp"`
	Username    string      `json:"username"`
	UserID      string      `json:"user_id"`
}

// NewMessageEventFrom converts a persisted message into its wire payload.
func NewMessageEventFrom(m *Message) NewMessageEvent {
	return NewMessageEvent{
		ID:          m.ID,
		Content:     m.Content,
		ContentType: m.ContentType,
		Timestamp:   m.CreatedAt.Format(time.RFC3339),
		Username:    m.Username,
		UserID:      m.UserID,
	}
}

// NotificationEvent is a short human-readable room announcement.
type NotificationEvent struct {
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}

// UserListEvent is the presence snapshot broadcast after membership changes.
type UserListEvent struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// ErrorEvent is unicast to the session whose operation failed. It is
// never broadcast.
type ErrorEvent struct {
	Message string `json:"message"`
}
