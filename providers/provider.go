// Package providers implements chat-model provider support with a unified
// interface.
//
// This package provides a common abstraction for the chat providers the
// backend can talk to — Azure OpenAI and standard OpenAI — and handles:
//   - Chat completion requests with streaming support
//   - Token usage extraction and latency tracking
//   - Error handling at the HTTP boundary
//
// All providers implement the Provider interface.
package providers

import (
	"context"
	"time"

	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// ChatRequest represents a request to a chat provider.
type ChatRequest struct {
	System      string          `json:"system"`
	Messages    []types.Message `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

// ChatResponse represents a response from a chat provider.
type ChatResponse struct {
	Content      string        `json:"content"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
}

// Defaults holds fallback parameters applied when a request leaves them zero.
type Defaults struct {
	Temperature float32
	MaxTokens   int
}

// Provider defines the contract for chat providers.
type Provider interface {
	// ID returns a human-readable provider name (e.g. "Azure OpenAI").
	ID() string

	// Model returns the model or deployment name this provider targets.
	Model() string

	// Chat issues one blocking chat-completion request.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ChatStream issues an incremental request. The returned channel yields
	// chunks as they arrive and is closed when the stream ends. A mid-stream
	// failure is delivered as a final chunk with Error set.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)

	// Close cleans up provider resources (e.g. HTTP connections).
	Close() error
}
