// Package store is the persistence gateway: an append-only message
// store plus the room/user directory. The messaging core consults it
// through these narrow interfaces and never reaches into a backend
// directly.
package store

import (
	"context"

	"github.com/digitalbuzz/buzzchat/internal/chat"
)

// PageSize is the fixed history page size. Pages are addressed
// newest-first: page 1 holds the most recent messages, higher pages go
// further back. Messages within a page are returned in chronological
// order for display.
const PageSize = 20

// MessageStore appends and reads back room message history. Messages
// are immutable and append-only; there is no update or delete.
type MessageStore interface {
	// Append durably stores one message. An error means the message
	// was not stored; callers must not broadcast it.
	Append(ctx context.Context, msg *chat.Message) error

	// Page returns one history page for a room, with flags indicating
	// whether an older (next) or newer (previous) page exists.
	Page(ctx context.Context, roomID string, page int) (msgs []*chat.Message, hasNext, hasPrev bool, err error)

	// Count returns the number of stored messages for a room.
	Count(ctx context.Context, roomID string) (int, error)
}

// Directory looks up rooms and users. Rooms are static and seeded once
// at startup; users are created on first login and immutable afterwards.
type Directory interface {
	// Room returns the room with the given id, or chat.ErrRoomNotFound.
	Room(ctx context.Context, id string) (*chat.Room, error)

	// Rooms lists all provisioned rooms.
	Rooms(ctx context.Context) ([]*chat.Room, error)

	// EnsureUser returns the user with the given name, creating it on
	// first sight.
	EnsureUser(ctx context.Context, username string) (*chat.User, error)

	// SeedRooms provisions the given rooms by name, skipping ones that
	// already exist. Idempotent; called once at startup.
	SeedRooms(ctx context.Context, names []string) error
}

// clampPage normalizes a requested page number.
func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// pageBounds computes the chronological slice [start, end) for a
// newest-first page over total messages, plus the pagination flags.
func pageBounds(total, page int) (start, end int, hasNext, hasPrev bool) {
	page = clampPage(page)
	end = total - (page-1)*PageSize
	if end < 0 {
		end = 0
	}
	start = end - PageSize
	if start < 0 {
		start = 0
	}
	hasNext = start > 0
	hasPrev = page > 1 && total > 0
	return start, end, hasNext, hasPrev
}
