package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// defaultTTL is how long an idle conversation is retained in Redis.
const defaultTTL = 24 * time.Hour

// RedisStore provides a Redis-backed implementation of the Store interface.
// Each conversation is a Redis list of JSON-encoded turns; the append path
// trims the list server-side, so the bounded-window invariant holds even
// with concurrent writers across instances.
type RedisStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisLimit sets the number of turns retained per conversation.
// Default is DefaultLimit.
func WithRedisLimit(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithTTL sets the idle time-to-live for conversations. The TTL is refreshed
// on every append. Default is 24 hours. Set to 0 for no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys. Default is "pokerrange".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed conversation store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(24 * time.Hour),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		limit:  DefaultLimit,
		ttl:    defaultTTL,
		prefix: "pokerrange",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// key builds the Redis key for a conversation.
func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:conversation:%s", s.prefix, id)
}

// History returns the stored turns for a conversation.
func (s *RedisStore) History(ctx context.Context, id string) ([]types.Message, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	raw, err := s.client.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	msgs := make([]types.Message, 0, len(raw))
	for _, item := range raw {
		var msg types.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode stored turn: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Append pushes turns onto the conversation list and trims to the limit.
func (s *RedisStore) Append(ctx context.Context, id string, msgs ...types.Message) error {
	if id == "" {
		return ErrInvalidID
	}
	if len(msgs) == 0 {
		return nil
	}

	encoded := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		encoded = append(encoded, data)
	}

	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, encoded...)
		pipe.LTrim(ctx, key, int64(-s.limit), -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	removed, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}
