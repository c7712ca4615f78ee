package ws

import (
	"log"

	"github.com/digitalbuzz/buzzchat/internal/registry"
)

// Broadcaster fans events out to every session in a room. Delivery is
// best-effort: the frame is marshalled once, the member set is a
// snapshot taken under the registry's lock, and each enqueue is
// non-blocking — there is no delivery guarantee beyond at most one
// outbound queue per session, and no per-recipient error reaches the
// caller.
type Broadcaster struct {
	registry *registry.Registry
	conns    *ConnManager
}

// NewBroadcaster creates a Broadcaster over the given registry and
// connection manager.
func NewBroadcaster(reg *registry.Registry, conns *ConnManager) *Broadcaster {
	return &Broadcaster{registry: reg, conns: conns}
}

// Broadcast delivers an event to the outbound queue of every session
// currently in the room.
func (b *Broadcaster) Broadcast(roomID, eventType string, payload any) {
	data, err := marshalEnvelope(eventType, payload)
	if err != nil {
		log.Printf("ws: marshal %s event: %v", eventType, err)
		return
	}
	for _, sessionID := range b.registry.Sessions(roomID) {
		b.conns.Send(sessionID, data)
	}
}

// Unicast delivers an event to exactly one session.
func (b *Broadcaster) Unicast(s *Session, eventType string, payload any) {
	data, err := marshalEnvelope(eventType, payload)
	if err != nil {
		log.Printf("ws: marshal %s event: %v", eventType, err)
		return
	}
	b.conns.Send(s.ID, data)
}
