package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TerryZYH/PokerRangeCalculator/llm"
	"github.com/TerryZYH/PokerRangeCalculator/logger"
	"github.com/TerryZYH/PokerRangeCalculator/metrics"
)

// Stream event types, in emission order: one conversation_id event, then
// content events carrying fragments, then exactly one of done or error.
const (
	eventConversationID = "conversation_id"
	eventContent        = "content"
	eventDone           = "done"
	eventError          = "error"
)

// streamEvent is one JSON-framed SSE payload.
type streamEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		s.record("/chat/stream", http.StatusBadRequest, start)
		return
	}

	if !s.agent.Available() {
		writeError(w, http.StatusServiceUnavailable, llm.UnavailableMessage)
		s.record("/chat/stream", http.StatusServiceUnavailable, start)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		s.record("/chat/stream", http.StatusInternalServerError, start)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	metrics.StreamOpened()
	defer metrics.StreamClosed()

	convID, history := s.resolveConversation(r.Context(), req.ConversationID)

	writeSSE(w, flusher, streamEvent{Type: eventConversationID, ConversationID: convID})

	fragments := s.agent.ChatStream(r.Context(), req.Message, history, req.RangeContext)

	var reply strings.Builder
	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			// Client went away. Stop emitting; the partial exchange is
			// not recorded.
			s.record("/chat/stream", http.StatusOK, start)
			return

		case fragment, open := <-fragments:
			if !open {
				s.appendTurns(ctx, convID, req.Message, reply.String())
				writeSSE(w, flusher, streamEvent{
					Type:      eventDone,
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
				s.record("/chat/stream", http.StatusOK, start)
				return
			}
			if fragment.Err != nil {
				// Terminal. The failed exchange is not recorded.
				writeSSE(w, flusher, streamEvent{
					Type:  eventError,
					Error: fragment.Err.Error(),
				})
				s.record("/chat/stream", http.StatusInternalServerError, start)
				return
			}
			reply.WriteString(fragment.Text)
			writeSSE(w, flusher, streamEvent{Type: eventContent, Content: fragment.Text})
		}
	}
}

// writeSSE frames one event as `data: {json}` followed by a blank line and
// flushes it immediately.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, evt streamEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		logger.Error("stream event encode failed", "error", err)
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
