// Package statestore provides conversation history storage.
//
// The store keeps a bounded window of recent turns per conversation:
// appends past the limit evict the oldest turns first. Implementations are
// safe for concurrent use, so simultaneous appends to one conversation
// serialize instead of losing updates.
package statestore

import (
	"context"
	"errors"

	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// DefaultLimit is the number of turns retained per conversation when no
// limit is configured.
const DefaultLimit = 20

// Store defines the interface for conversation history storage.
type Store interface {
	// History returns the stored turns for a conversation in order.
	// Returns ErrNotFound if the conversation doesn't exist.
	History(ctx context.Context, id string) ([]types.Message, error)

	// Append adds turns to a conversation, creating it on first use, and
	// truncates to the configured limit (oldest turns discarded first).
	Append(ctx context.Context, id string, msgs ...types.Message) error

	// Delete removes a conversation entirely.
	// Returns ErrNotFound if the conversation doesn't exist.
	Delete(ctx context.Context, id string) error
}

// ErrNotFound is returned when a conversation doesn't exist in the store.
var ErrNotFound = errors.New("conversation not found")

// ErrInvalidID is returned when an empty conversation ID is provided.
var ErrInvalidID = errors.New("invalid conversation ID")
