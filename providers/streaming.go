package providers

// StreamChunk represents one increment of a streaming reply.
type StreamChunk struct {
	// Content is the accumulated content so far.
	Content string `json:"content"`

	// Delta is the new content in this chunk.
	Delta string `json:"delta"`

	// FinishReason is nil until the stream is complete.
	// Values: "stop", "length", "content_filter", "error"
	FinishReason *string `json:"finish_reason,omitempty"`

	// Error is set if an error occurred during streaming.
	Error error `json:"error,omitempty"`
}

// ptr is a helper to get a pointer to a string.
func ptr(s string) *string {
	return &s
}
