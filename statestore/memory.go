package statestore

import (
	"context"
	"sync"

	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// MemoryStore provides an in-memory implementation of the Store interface.
// It is thread-safe and suitable for development, testing, and
// single-instance deployments. For distributed deployments, use RedisStore.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string][]types.Message
	limit int
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithLimit sets the number of turns retained per conversation.
// Default is DefaultLimit.
func WithLimit(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		convs: make(map[string][]types.Message),
		limit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns a copy of the stored turns for a conversation.
func (s *MemoryStore) History(ctx context.Context, id string) ([]types.Message, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, exists := s.convs[id]
	if !exists {
		return nil, ErrNotFound
	}

	// Copy so callers can't mutate stored history.
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Append adds turns to a conversation and truncates to the limit.
func (s *MemoryStore) Append(ctx context.Context, id string, msgs ...types.Message) error {
	if id == "" {
		return ErrInvalidID
	}
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := append(s.convs[id], msgs...)
	if len(updated) > s.limit {
		updated = updated[len(updated)-s.limit:]
	}
	s.convs[id] = updated
	return nil
}

// Delete removes a conversation.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.convs[id]; !exists {
		return ErrNotFound
	}
	delete(s.convs, id)
	return nil
}
