// Package registry tracks which sessions are live in which room. It is
// the single source of truth for presence: purely in-memory, rebuilt
// empty on process start, never recovered from persisted state.
package registry

import (
	"sync"

	"github.com/digitalbuzz/buzzchat/internal/chat"
)

// roomState holds one room's active members. order preserves join order
// so presence snapshots are stable for clients and tests.
type roomState struct {
	members map[string]string // session id -> display name
	order   []string
}

// Registry maps rooms to their active sessions. A forward map answers
// "who is in this room"; a reverse index answers "which room is this
// session in" without scanning every room on disconnect.
//
// All operations are linearizable under one mutex: two concurrent joins
// to the same room are both reflected in the post-state.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*roomState
	sessions map[string]string // session id -> room id, at most one
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		rooms:    make(map[string]*roomState),
		sessions: make(map[string]string),
	}
}

// Register adds a session to a room's active set and returns the
// post-state member name snapshot. Re-registering the same session in
// the same room is a no-op returning the current snapshot. Registering
// a session that is still in a different room fails with
// ErrAlreadyRegisteredElsewhere; callers must unregister first.
func (r *Registry) Register(roomID, sessionID, displayName string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[sessionID]; ok {
		if current != roomID {
			return nil, chat.ErrAlreadyRegisteredElsewhere
		}
		return r.memberNames(roomID), nil
	}

	rs := r.rooms[roomID]
	if rs == nil {
		rs = &roomState{members: make(map[string]string)}
		r.rooms[roomID] = rs
	}
	rs.members[sessionID] = displayName
	rs.order = append(rs.order, sessionID)
	r.sessions[sessionID] = roomID

	return r.memberNames(roomID), nil
}

// Unregister removes a session from a room's active set. It reports
// whether an entry was actually removed; removing an absent session is
// a no-op, not an error, because disconnect cleanup may race an
// explicit leave.
func (r *Registry) Unregister(roomID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs := r.rooms[roomID]
	if rs == nil {
		return false
	}
	if _, ok := rs.members[sessionID]; !ok {
		return false
	}

	delete(rs.members, sessionID)
	for i, id := range rs.order {
		if id == sessionID {
			rs.order = append(rs.order[:i], rs.order[i+1:]...)
			break
		}
	}
	if len(rs.members) == 0 {
		delete(r.rooms, roomID)
	}
	delete(r.sessions, sessionID)
	return true
}

// Members returns a join-ordered snapshot of display names and the
// member count. The snapshot does not stay valid under concurrent
// mutation.
func (r *Registry) Members(roomID string) ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := r.memberNames(roomID)
	return names, len(names)
}

// RoomOf returns the room a session is currently in, if any. Used by
// disconnect cleanup instead of scanning every room.
func (r *Registry) RoomOf(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.sessions[sessionID]
	return roomID, ok
}

// Sessions returns a snapshot of the session ids in a room. The
// broadcast engine fans out over this snapshot after the lock is
// released, so a slow recipient never extends the critical section.
func (r *Registry) Sessions(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs := r.rooms[roomID]
	if rs == nil {
		return nil
	}
	ids := make([]string, len(rs.order))
	copy(ids, rs.order)
	return ids
}

// memberNames must be called with mu held.
func (r *Registry) memberNames(roomID string) []string {
	rs := r.rooms[roomID]
	if rs == nil {
		return []string{}
	}
	names := make([]string, 0, len(rs.order))
	for _, id := range rs.order {
		names = append(names, rs.members[id])
	}
	return names
}
