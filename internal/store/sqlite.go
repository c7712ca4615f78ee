package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS rooms (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	room_id      TEXT NOT NULL REFERENCES rooms(id),
	user_id      TEXT NOT NULL REFERENCES users(id),
	username     TEXT NOT NULL,
	content      TEXT NOT NULL,
	content_type TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room_order
	ON messages (room_id, created_at, id);
`

// SQLite is the durable gateway: system of record for users, rooms,
// and message history.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the SQLite store at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append durably stores one message.
func (s *SQLite) Append(ctx context.Context, msg *chat.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, user_id, username, content, content_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.RoomID, msg.UserID, msg.Username,
		msg.Content, string(msg.ContentType), msg.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Page returns one history page: queried newest-first with offset
// paging, then reversed to chronological order for display.
func (s *SQLite) Page(ctx context.Context, roomID string, page int) ([]*chat.Message, bool, bool, error) {
	page = clampPage(page)
	offset := (page - 1) * PageSize

	// Fetch one extra row to learn whether an older page exists.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, user_id, username, content, content_type, created_at
		 FROM messages WHERE room_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		roomID, PageSize+1, offset,
	)
	if err != nil {
		return nil, false, false, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []*chat.Message
	for rows.Next() {
		var m chat.Message
		var kind string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Content, &kind, &createdAt); err != nil {
			return nil, false, false, fmt.Errorf("scan message: %w", err)
		}
		m.ContentType = chat.ContentKind(kind)
		m.CreatedAt = fromMillis(createdAt)
		newestFirst = append(newestFirst, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, false, fmt.Errorf("iterate messages: %w", err)
	}

	hasNext := len(newestFirst) > PageSize
	if hasNext {
		newestFirst = newestFirst[:PageSize]
	}
	hasPrev := page > 1 && (len(newestFirst) > 0 || offset > 0)

	msgs := make([]*chat.Message, len(newestFirst))
	for i, m := range newestFirst {
		msgs[len(msgs)-1-i] = m
	}
	return msgs, hasNext, hasPrev, nil
}

// Count returns the number of stored messages for a room.
func (s *SQLite) Count(ctx context.Context, roomID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE room_id = ?`, roomID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// Room returns a room by id.
func (s *SQLite) Room(ctx context.Context, id string) (*chat.Room, error) {
	var room chat.Room
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM rooms WHERE id = ?`, id,
	).Scan(&room.ID, &room.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chat.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// Rooms lists all provisioned rooms by name.
func (s *SQLite) Rooms(ctx context.Context) ([]*chat.Room, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*chat.Room
	for rows.Next() {
		var r chat.Room
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

// EnsureUser returns the named user, creating it on first login.
func (s *SQLite) EnsureUser(ctx context.Context, username string) (*chat.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	u := &chat.User{ID: uuid.NewString(), Username: username}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		u.ID, u.Username, nowMillis(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	var createdAt int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// SeedRooms provisions the given rooms by name, skipping existing ones.
func (s *SQLite) SeedRooms(ctx context.Context, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO rooms (id, name) VALUES (?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			uuid.NewString(), name,
		)
		if err != nil {
			return fmt.Errorf("seed room %q: %w", name, err)
		}
	}
	return nil
}
