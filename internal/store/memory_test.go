package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/digitalbuzz/buzzchat/internal/chat"
)

func memMsg(id, roomID, content string, at time.Time) *chat.Message {
	return &chat.Message{
		ID:          id,
		RoomID:      roomID,
		UserID:      "u1",
		Username:    "alice",
		Content:     content,
		ContentType: chat.ContentText,
		CreatedAt:   at,
	}
}

func TestMemoryPageOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 45; i++ {
		msg := memMsg(fmt.Sprintf("%02d", i), "general", fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Second))
		if err := m.Append(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// Page 1 is the newest 20, in chronological order.
	msgs, hasNext, hasPrev, err := m.Page(ctx, "general", 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(msgs) != PageSize {
		t.Fatalf("expected %d messages, got %d", PageSize, len(msgs))
	}
	if msgs[0].Content != "msg-25" || msgs[len(msgs)-1].Content != "msg-44" {
		t.Fatalf("expected msg-25..msg-44, got %s..%s", msgs[0].Content, msgs[len(msgs)-1].Content)
	}
	if !hasNext || hasPrev {
		t.Fatalf("expected hasNext=true hasPrev=false, got %v %v", hasNext, hasPrev)
	}

	// Page 3 holds the oldest 5.
	msgs, hasNext, hasPrev, err = m.Page(ctx, "general", 3)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(msgs) != 5 || msgs[0].Content != "msg-0" {
		t.Fatalf("expected 5 oldest messages starting at msg-0, got %d starting at %s", len(msgs), msgs[0].Content)
	}
	if hasNext || !hasPrev {
		t.Fatalf("expected hasNext=false hasPrev=true, got %v %v", hasNext, hasPrev)
	}
}

func TestMemoryPageTimestampTieBreak(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Appended out of id order with identical timestamps; id breaks the tie.
	m.Append(ctx, memMsg("b", "general", "second", at))
	m.Append(ctx, memMsg("a", "general", "first", at))

	msgs, _, _, err := m.Page(ctx, "general", 1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if msgs[0].ID != "a" || msgs[1].ID != "b" {
		t.Fatalf("expected id order [a b], got [%s %s]", msgs[0].ID, msgs[1].ID)
	}
}

func TestMemoryPageEmptyRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	msgs, hasNext, hasPrev, err := m.Page(ctx, "general", 1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(msgs) != 0 || hasNext || hasPrev {
		t.Fatalf("expected empty first page, got %d msgs next=%v prev=%v", len(msgs), hasNext, hasPrev)
	}
}

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.SeedRooms(ctx, []string{"General", "Tech Talk", "Random"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Seeding again must not duplicate.
	if err := m.SeedRooms(ctx, []string{"General"}); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	rooms, err := m.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}

	got, err := m.Room(ctx, rooms[0].ID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if got.Name != rooms[0].Name {
		t.Fatalf("expected %q, got %q", rooms[0].Name, got.Name)
	}

	if _, err := m.Room(ctx, "nope"); err != chat.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestMemoryEnsureUserStableID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, err := m.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := m.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected stable user id, got %s then %s", first.ID, second.ID)
	}
}
