package ws

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/digitalbuzz/buzzchat/internal/registry"
	"github.com/digitalbuzz/buzzchat/internal/store"
)

// defaultMaxMessageLen bounds text message content.
const defaultMaxMessageLen = 2000

// Router dispatches inbound client events to the registry, the
// persistence gateway, and the broadcaster — in that order. It enforces
// the connection state machine: a session is Connected until it joins a
// room, InRoom while joined to exactly one, and every transition below
// runs serially on the session's own read-loop goroutine.
//
// Durable writes never happen under the registry lock: the registry is
// touched only to mutate membership or take a broadcast snapshot, and
// the message append completes before any recipient sees the event.
type Router struct {
	registry  *registry.Registry
	bcast     *Broadcaster
	messages  store.MessageStore
	directory store.Directory

	maxMessageLen int
	maxImageBytes int
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMaxMessageLen caps text message length in runes.
func WithMaxMessageLen(n int) RouterOption {
	return func(rt *Router) {
		if n > 0 {
			rt.maxMessageLen = n
		}
	}
}

// WithMaxImageBytes caps the decoded size of image payloads.
func WithMaxImageBytes(n int) RouterOption {
	return func(rt *Router) {
		if n > 0 {
			rt.maxImageBytes = n
		}
	}
}

// NewRouter creates an event router.
func NewRouter(reg *registry.Registry, bcast *Broadcaster, messages store.MessageStore, directory store.Directory, opts ...RouterOption) *Router {
	rt := &Router{
		registry:      reg,
		bcast:         bcast,
		messages:      messages,
		directory:     directory,
		maxMessageLen: defaultMaxMessageLen,
		maxImageBytes: defaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// HandleJoin moves a session into a room. Joining while in another room
// runs a full leave round for the old room first; re-joining the
// current room only refreshes the presence snapshot, with no duplicate
// join notification.
func (rt *Router) HandleJoin(ctx context.Context, s *Session, roomID string) {
	room, err := rt.directory.Room(ctx, roomID)
	if err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) {
			rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Room not found"})
			return
		}
		log.Printf("ws: look up room %s: %v", roomID, err)
		rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Failed to join room"})
		return
	}

	if s.roomID == room.ID {
		users, count := rt.registry.Members(room.ID)
		rt.bcast.Broadcast(room.ID, EventUserList, chat.UserListEvent{Users: users, Count: count})
		return
	}

	if s.InRoom() {
		rt.leave(s, s.roomID, s.Username+" has left the room")
	}

	users, err := rt.registry.Register(room.ID, s.ID, s.Username)
	if err != nil {
		// The leave above cleared any previous registration, so this
		// indicates a racing disconnect; the session is gone either way.
		log.Printf("ws: register %s in %s: %v", s.Username, room.ID, err)
		rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Failed to join room"})
		return
	}
	s.roomID = room.ID

	rt.bcast.Broadcast(room.ID, EventNotification, chat.NotificationEvent{
		Message: s.Username + " has joined the room",
		Type:    chat.NotifyJoin,
	})
	rt.bcast.Broadcast(room.ID, EventUserList, chat.UserListEvent{Users: users, Count: len(users)})
}

// HandleLeave moves a session out of a room. Leaving a room the session
// is not in is a no-op, so a leave racing disconnect cleanup never
// produces a duplicate notification.
func (rt *Router) HandleLeave(ctx context.Context, s *Session, roomID string) {
	rt.leave(s, roomID, s.Username+" has left the room")
}

// HandleMessage validates, persists, and broadcasts a text message. The
// append is synchronous: no recipient sees the message unless it is
// durable.
func (rt *Router) HandleMessage(ctx context.Context, s *Session, roomID, content string) {
	if !rt.allowSend(ctx, s, roomID) {
		return
	}

	content = strings.TrimSpace(content)
	if content == "" {
		rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Message content is required"})
		return
	}
	if len([]rune(content)) > rt.maxMessageLen {
		rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Message is too long"})
		return
	}

	msg := chat.NewMessage(s.roomID, s.UserID, s.Username, content, chat.ContentText)
	rt.deliver(ctx, s, msg)
}

// HandleImage validates, persists, and broadcasts an image message.
// An oversized or undecodable blob is rejected whole: no message row,
// no broadcast, only a unicast error to the sender.
func (rt *Router) HandleImage(ctx context.Context, s *Session, roomID, dataURI string) {
	if !rt.allowSend(ctx, s, roomID) {
		return
	}

	if err := validateImage(dataURI, rt.maxImageBytes); err != nil {
		log.Printf("ws: image from %s rejected: %v", s.Username, err)
		rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Failed to process image"})
		return
	}

	msg := chat.NewMessage(s.roomID, s.UserID, s.Username, dataURI, chat.ContentImage)
	rt.deliver(ctx, s, msg)
}

// HandleDisconnect runs terminal cleanup for a session. Idempotent and
// safe to race an in-flight leave: both converge on the registry's
// idempotent unregister. The disconnected session receives nothing.
func (rt *Router) HandleDisconnect(ctx context.Context, s *Session) {
	roomID, ok := rt.registry.RoomOf(s.ID)
	if !ok {
		s.roomID = ""
		return
	}
	rt.leave(s, roomID, s.Username+" has disconnected")
}

// allowSend enforces the InRoom precondition for message and image
// events and reports mismatched room ids back to the sender.
func (rt *Router) allowSend(ctx context.Context, s *Session, roomID string) bool {
	if !s.InRoom() {
		rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Join a room before sending messages"})
		return false
	}
	if roomID != "" && roomID != s.roomID {
		if _, err := rt.directory.Room(ctx, roomID); errors.Is(err, chat.ErrRoomNotFound) {
			rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Room not found"})
		} else {
			rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Join a room before sending messages"})
		}
		return false
	}
	return true
}

// deliver persists a message and then fans it out, followed by its
// notification preview. On a failed append nothing is broadcast.
func (rt *Router) deliver(ctx context.Context, s *Session, msg *chat.Message) {
	if err := rt.messages.Append(ctx, msg); err != nil {
		log.Printf("ws: persist message from %s: %v", s.Username, err)
		rt.bcast.Unicast(s, EventError, chat.ErrorEvent{Message: "Failed to send message"})
		return
	}

	rt.bcast.Broadcast(msg.RoomID, EventNewMessage, chat.NewMessageEventFrom(msg))
	rt.bcast.Broadcast(msg.RoomID, EventNotification, chat.NotificationEvent{
		Message: msg.Preview(),
		Type:    chat.NotifyMessage,
	})
}

// leave unregisters a session and announces the departure with the
// given notification text. No-op if the session was not in the room.
func (rt *Router) leave(s *Session, roomID, text string) {
	if !rt.registry.Unregister(roomID, s.ID) {
		return
	}
	if s.roomID == roomID {
		s.roomID = ""
	}

	rt.bcast.Broadcast(roomID, EventNotification, chat.NotificationEvent{
		Message: text,
		Type:    chat.NotifyLeave,
	})
	users, count := rt.registry.Members(roomID)
	rt.bcast.Broadcast(roomID, EventUserList, chat.UserListEvent{Users: users, Count: count})
}
