package providers

import (
	"context"
	"errors"
)

// MockProvider is a provider implementation for testing. It returns scripted
// responses without making any API calls.
type MockProvider struct {
	id    string
	model string

	// Reply is returned by Chat. LastRequest records the most recent
	// request for assertions.
	Reply       string
	ChatErr     error
	LastRequest ChatRequest

	// Fragments are emitted one per chunk by ChatStream. StreamErr, if
	// set, is delivered as a final error chunk after the fragments.
	Fragments []string
	StreamErr error

	// Calls counts Chat and ChatStream invocations.
	Calls int
}

// NewMockProvider creates a mock provider with a fixed reply.
func NewMockProvider(reply string) *MockProvider {
	return &MockProvider{
		id:    "mock",
		model: "mock-model",
		Reply: reply,
	}
}

// ID returns the provider name.
func (m *MockProvider) ID() string { return m.id }

// Model returns the mock model name.
func (m *MockProvider) Model() string { return m.model }

// Close is a no-op.
func (m *MockProvider) Close() error { return nil }

// Chat returns the scripted reply.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	m.Calls++
	m.LastRequest = req

	if m.ChatErr != nil {
		return ChatResponse{}, m.ChatErr
	}
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}

	return ChatResponse{
		Content:      m.Reply,
		InputTokens:  len(req.Messages),
		OutputTokens: 1,
	}, nil
}

// ChatStream emits the scripted fragments, then either a terminal error
// chunk or a stop chunk. Cancellation stops production without a send, so
// an abandoned consumer never strands the goroutine.
func (m *MockProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	m.Calls++
	m.LastRequest = req

	if m.ChatErr != nil {
		return nil, m.ChatErr
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		accumulated := ""
		for _, frag := range m.Fragments {
			accumulated += frag
			if !emitChunk(ctx, out, StreamChunk{Content: accumulated, Delta: frag}) {
				return
			}
		}

		if m.StreamErr != nil {
			emitChunk(ctx, out, StreamChunk{
				Content:      accumulated,
				Error:        m.StreamErr,
				FinishReason: ptr("error"),
			})
			return
		}
		emitChunk(ctx, out, StreamChunk{Content: accumulated, FinishReason: ptr("stop")})
	}()
	return out, nil
}

// ErrMockUpstream is a canned upstream failure for tests.
var ErrMockUpstream = errors.New("mock upstream failure")
