// Package server exposes the range assistant over HTTP: chat (blocking and
// streaming), conversation history, range analysis and recommendation, and
// health/metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TerryZYH/PokerRangeCalculator/agent"
	"github.com/TerryZYH/PokerRangeCalculator/llm"
	"github.com/TerryZYH/PokerRangeCalculator/logger"
	"github.com/TerryZYH/PokerRangeCalculator/metrics"
	"github.com/TerryZYH/PokerRangeCalculator/statestore"
	"github.com/TerryZYH/PokerRangeCalculator/types"
)

const (
	// Version is reported by the health endpoints.
	Version = "1.0.0"

	// defaultReadHeaderTimeout prevents Slowloris attacks.
	defaultReadHeaderTimeout = 10 * time.Second

	// defaultReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout is the maximum duration before timing out
	// writes of the response. Streams must finish within this window.
	defaultWriteTimeout = 120 * time.Second

	// defaultIdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled.
	defaultIdleTimeout = 120 * time.Second

	// defaultMaxBodySize is the maximum allowed size of a request body (1 MB).
	defaultMaxBodySize int64 = 1 << 20

	// maxMessageLen caps a chat message, matching the frontend's limit.
	maxMessageLen = 2000
)

// Option configures a [Server].
type Option func(*Server)

// WithPort sets the TCP port for ListenAndServe.
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithAllowedOrigin sets the origin allowed by the CORS middleware.
// Default: http://localhost:3000.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.allowedOrigin = origin }
}

// WithMetrics enables or disables the /metrics endpoint. Default: enabled.
func WithMetrics(enabled bool) Option {
	return func(s *Server) { s.metricsEnabled = enabled }
}

// WithReadTimeout sets the maximum duration for reading the entire request.
// Default: 30s.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithWriteTimeout sets the maximum duration before timing out writes of
// the response. Default: 120s.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.writeTimeout = d }
}

// WithIdleTimeout sets the maximum amount of time to wait for the next
// request when keep-alives are enabled. Default: 120s.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idleTimeout = d }
}

// WithMaxBodySize sets the maximum allowed request body size in bytes.
// Default: 1 MB.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) { s.maxBodySize = n }
}

// Server is the HTTP front end over the chat agent and conversation store.
type Server struct {
	agent *agent.Agent
	store statestore.Store

	port           int
	allowedOrigin  string
	metricsEnabled bool

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
	maxBodySize  int64

	httpSrv   *http.Server
	httpSrvMu sync.Mutex
}

// NewServer creates a server around an agent and a conversation store.
func NewServer(a *agent.Agent, store statestore.Store, opts ...Option) *Server {
	s := &Server{
		agent:          a,
		store:          store,
		port:           8000,
		allowedOrigin:  "http://localhost:3000",
		metricsEnabled: true,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
		maxBodySize:    defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed http.Handler with CORS and tracing applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /chat/stream", s.handleChatStream)
	mux.HandleFunc("DELETE /chat/{conversation_id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /chat/history/{conversation_id}", s.handleHistory)

	mux.HandleFunc("POST /range/analyze", s.handleRangeAnalyze)
	mux.HandleFunc("POST /range/recommend", s.handleRangeRecommend)

	if s.metricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	return otelhttp.NewHandler(s.corsMiddleware(mux), "poker-range-server")
}

// corsMiddleware answers preflight requests and stamps the allowed origin
// on every response.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server on the configured port.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       s.idleTimeout,
	}

	s.httpSrvMu.Lock()
	s.httpSrv = srv
	s.httpSrvMu.Unlock()

	return srv.ListenAndServe()
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       s.idleTimeout,
	}

	s.httpSrvMu.Lock()
	s.httpSrv = srv
	s.httpSrvMu.Unlock()

	return srv.Serve(ln)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpSrvMu.Lock()
	srv := s.httpSrv
	s.httpSrvMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// healthResponse is the body of GET / and GET /health.
type healthResponse struct {
	Status     string `json:"status"`
	AIEnabled  bool   `json:"ai_enabled"`
	AIProvider string `json:"ai_provider,omitempty"`
	Version    string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		AIEnabled:  s.agent.Available(),
		AIProvider: s.agent.Gateway().ProviderName(),
		Version:    Version,
	})
}

// chatRequest is the body of POST /chat and POST /chat/stream.
type chatRequest struct {
	Message        string              `json:"message"`
	ConversationID string              `json:"conversation_id,omitempty"`
	RangeContext   *types.RangeContext `json:"range_context,omitempty"`
}

// chatResponse is the body of a successful POST /chat.
type chatResponse struct {
	Reply          string    `json:"reply"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		s.record("/chat", http.StatusBadRequest, start)
		return
	}

	if !s.agent.Available() {
		writeError(w, http.StatusServiceUnavailable, llm.UnavailableMessage)
		s.record("/chat", http.StatusServiceUnavailable, start)
		return
	}

	convID, history := s.resolveConversation(r.Context(), req.ConversationID)

	reply := s.agent.Chat(r.Context(), req.Message, history, req.RangeContext)

	s.appendTurns(r.Context(), convID, req.Message, reply)

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:          reply,
		ConversationID: convID,
		Timestamp:      time.Now().UTC(),
	})
	s.record("/chat", http.StatusOK, start)
}

// deleteResponse is the body of a successful DELETE /chat/{conversation_id}.
type deleteResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	convID := r.PathValue("conversation_id")

	err := s.store.Delete(r.Context(), convID)
	switch {
	case errors.Is(err, statestore.ErrNotFound), errors.Is(err, statestore.ErrInvalidID):
		writeError(w, http.StatusNotFound, "conversation not found")
		s.record("/chat/delete", http.StatusNotFound, start)
	case err != nil:
		logger.Error("conversation delete failed", "conversation_id", convID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		s.record("/chat/delete", http.StatusInternalServerError, start)
	default:
		writeJSON(w, http.StatusOK, deleteResponse{
			Message:        "conversation deleted",
			ConversationID: convID,
		})
		s.record("/chat/delete", http.StatusOK, start)
	}
}

// historyResponse is the body of a successful GET /chat/history/{conversation_id}.
type historyResponse struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []types.Message `json:"messages"`
	Count          int             `json:"count"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	convID := r.PathValue("conversation_id")

	history, err := s.store.History(r.Context(), convID)
	switch {
	case errors.Is(err, statestore.ErrNotFound), errors.Is(err, statestore.ErrInvalidID):
		writeError(w, http.StatusNotFound, "conversation not found")
		s.record("/chat/history", http.StatusNotFound, start)
	case err != nil:
		logger.Error("history lookup failed", "conversation_id", convID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		s.record("/chat/history", http.StatusInternalServerError, start)
	default:
		writeJSON(w, http.StatusOK, historyResponse{
			ConversationID: convID,
			Messages:       history,
			Count:          len(history),
		})
		s.record("/chat/history", http.StatusOK, start)
	}
}

// decodeChatRequest parses and validates a chat body, writing the error
// response itself when the body is unusable.
func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return chatRequest{}, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return chatRequest{}, false
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("message exceeds %d characters", maxMessageLen))
		return chatRequest{}, false
	}
	return req, true
}

// resolveConversation returns the conversation ID (minting one when the
// caller supplied none) and any stored history. A missing conversation is
// not an error here; it just means an empty history.
func (s *Server) resolveConversation(ctx context.Context, convID string) (string, []types.Message) {
	if convID == "" {
		return uuid.NewString(), nil
	}

	history, err := s.store.History(ctx, convID)
	if err != nil && !errors.Is(err, statestore.ErrNotFound) {
		logger.Warn("history read failed, continuing without it",
			"conversation_id", convID, "error", err)
	}
	return convID, history
}

// appendTurns records one user/assistant exchange. Store failures are
// logged, not surfaced: the reply already exists and is worth returning.
func (s *Server) appendTurns(ctx context.Context, convID, message, reply string) {
	err := s.store.Append(ctx, convID,
		types.UserMessage(message),
		types.AssistantMessage(reply),
	)
	if err != nil {
		logger.Error("history append failed", "conversation_id", convID, "error", err)
	}
}

func (s *Server) record(endpoint string, status int, start time.Time) {
	metrics.RecordRequest(endpoint, strconv.Itoa(status), time.Since(start))
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
