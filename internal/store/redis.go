package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/redis/go-redis/v9"
)

// redisKey returns the Redis key for a room's message list.
func redisKey(roomID string) string {
	return "room:" + roomID + ":messages"
}

// Redis is a MessageStore backed by a Redis list per room, appended in
// chronological order. Retention is capped at maxSize messages per room
// (0 = unlimited). The room/user directory stays in SQLite; Redis holds
// message history only.
type Redis struct {
	client  redis.Cmdable
	maxSize int64
}

// NewRedis creates a Redis message store retaining up to maxSize
// messages per room.
func NewRedis(client redis.Cmdable, maxSize int) *Redis {
	return &Redis{client: client, maxSize: int64(maxSize)}
}

// Append stores a message at the tail of the room's list, trimming to
// the retention cap. An error means the message was not durably stored.
func (s *Redis) Append(ctx context.Context, msg *chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := redisKey(msg.RoomID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.maxSize > 0 {
		pipe.LTrim(ctx, key, -s.maxSize, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Page returns one newest-first-addressed history page in
// chronological order.
func (s *Redis) Page(ctx context.Context, roomID string, page int) ([]*chat.Message, bool, bool, error) {
	key := redisKey(roomID)
	total, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return nil, false, false, fmt.Errorf("count messages: %w", err)
	}

	start, end, hasNext, hasPrev := pageBounds(int(total), page)
	if start >= end {
		return []*chat.Message{}, hasNext, hasPrev, nil
	}

	vals, err := s.client.LRange(ctx, key, int64(start), int64(end-1)).Result()
	if err != nil {
		return nil, false, false, fmt.Errorf("read messages: %w", err)
	}

	msgs := make([]*chat.Message, 0, len(vals))
	for _, v := range vals {
		var m chat.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		msgs = append(msgs, &m)
	}
	return msgs, hasNext, hasPrev, nil
}

// Count returns the number of stored messages for a room.
func (s *Redis) Count(ctx context.Context, roomID string) (int, error) {
	n, err := s.client.LLen(ctx, redisKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return int(n), nil
}
