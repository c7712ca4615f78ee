package store

import (
	"context"
	"sort"
	"sync"

	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/google/uuid"
)

// Memory is an in-memory gateway implementing both MessageStore and
// Directory. It backs tests and runs without external services.
type Memory struct {
	mu       sync.RWMutex
	messages map[string][]*chat.Message // room id -> chronological history
	rooms    map[string]*chat.Room
	order    []string // room ids in seed order
	users    map[string]*chat.User
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		messages: make(map[string][]*chat.Message),
		rooms:    make(map[string]*chat.Room),
		users:    make(map[string]*chat.User),
	}
}

// Append stores a message in the room's history.
func (m *Memory) Append(ctx context.Context, msg *chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := append(m.messages[msg.RoomID], msg)
	// Keep (created_at, id) order even if clocks collide.
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	m.messages[msg.RoomID] = msgs
	return nil
}

// Page returns one newest-first-addressed history page in
// chronological order.
func (m *Memory) Page(ctx context.Context, roomID string, page int) ([]*chat.Message, bool, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[roomID]
	start, end, hasNext, hasPrev := pageBounds(len(msgs), page)
	result := make([]*chat.Message, end-start)
	copy(result, msgs[start:end])
	return result, hasNext, hasPrev, nil
}

// Count returns the number of stored messages for a room.
func (m *Memory) Count(ctx context.Context, roomID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages[roomID]), nil
}

// Room returns a room by id.
func (m *Memory) Room(ctx context.Context, id string) (*chat.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, chat.ErrRoomNotFound
	}
	return room, nil
}

// Rooms lists rooms in seed order.
func (m *Memory) Rooms(ctx context.Context) ([]*chat.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*chat.Room, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.rooms[id])
	}
	return result, nil
}

// EnsureUser returns the named user, creating it on first sight.
func (m *Memory) EnsureUser(ctx context.Context, username string) (*chat.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	u := &chat.User{ID: uuid.NewString(), Username: username}
	m.users[username] = u
	return u, nil
}

// SeedRooms provisions rooms by name, skipping existing names.
func (m *Memory) SeedRooms(ctx context.Context, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		exists := false
		for _, r := range m.rooms {
			if r.Name == name {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		room := &chat.Room{ID: uuid.NewString(), Name: name}
		m.rooms[room.ID] = room
		m.order = append(m.order, room.ID)
	}
	return nil
}
