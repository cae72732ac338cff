package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TerryZYH/PokerRangeCalculator/logger"
	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// providerTimeout is the HTTP timeout for chat-completion calls. Provider
// requests can involve long inference times, so it is generous.
const providerTimeout = 60 * time.Second

// OpenAIProvider implements the Provider interface for standard OpenAI.
type OpenAIProvider struct {
	model    string
	baseURL  string
	apiKey   string
	defaults Defaults
	client   *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model, baseURL string, defaults Defaults) *OpenAIProvider {
	return &OpenAIProvider{
		model:    model,
		baseURL:  baseURL,
		apiKey:   apiKey,
		defaults: defaults,
		client:   &http.Client{Timeout: providerTimeout},
	}
}

// ID returns the provider name.
func (p *OpenAIProvider) ID() string { return "OpenAI" }

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string { return p.model }

// Close closes the HTTP client and cleans up idle connections.
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Chat-completions wire structures, shared with the Azure provider (Azure
// OpenAI speaks the same format, with the deployment in the URL instead of
// a model field).
type completionsRequest struct {
	Model         string               `json:"model,omitempty"`
	Messages      []completionsMessage `json:"messages"`
	Temperature   float32              `json:"temperature"`
	MaxTokens     int                  `json:"max_tokens"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *streamOptions       `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type completionsMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionsResponse struct {
	ID      string              `json:"id"`
	Model   string              `json:"model"`
	Choices []completionsChoice `json:"choices"`
	Usage   completionsUsage    `json:"usage"`
	Error   *completionsError   `json:"error,omitempty"`
}

type completionsChoice struct {
	Index        int                `json:"index"`
	Message      completionsMessage `json:"message"`
	FinishReason string             `json:"finish_reason"`
}

type completionsUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type completionsError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// buildWireMessages converts a ChatRequest into the wire message list:
// system prompt first (if any), then history and the user message in order.
func buildWireMessages(req ChatRequest) []completionsMessage {
	messages := make([]completionsMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, completionsMessage{
			Role:    types.RoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, completionsMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return messages
}

// applyDefaults fills zero-valued request parameters from provider defaults.
func applyDefaults(req *ChatRequest, d Defaults) {
	if req.Temperature == 0 {
		req.Temperature = d.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = d.MaxTokens
	}
}

// Chat sends a blocking chat-completion request to OpenAI.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	applyDefaults(&req, p.defaults)

	wireReq := completionsRequest{
		Model:       p.model,
		Messages:    buildWireMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	httpReq, err := p.newRequest(ctx, wireReq)
	if err != nil {
		return ChatResponse{}, err
	}

	return doCompletions(p.ID(), p.model, p.client, httpReq, wireReq)
}

// ChatStream streams a chat response from OpenAI.
func (p *OpenAIProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	applyDefaults(&req, p.defaults)

	wireReq := completionsRequest{
		Model:         p.model,
		Messages:      buildWireMessages(req),
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	httpReq, err := p.newRequest(ctx, wireReq)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	return openCompletionsStream(ctx, p.ID(), p.client, httpReq)
}

// newRequest builds an authenticated POST to the chat-completions endpoint.
func (p *OpenAIProvider) newRequest(ctx context.Context, wireReq completionsRequest) (*http.Request, error) {
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	return httpReq, nil
}

// doCompletions executes a blocking completions request and decodes the reply.
func doCompletions(providerID, model string, client *http.Client, httpReq *http.Request, wireReq completionsRequest) (ChatResponse, error) {
	start := time.Now()

	logger.APIRequest(providerID, httpReq.Method, httpReq.URL.String(), nil, wireReq)

	resp, err := client.Do(httpReq)
	if err != nil {
		return ChatResponse{Latency: time.Since(start)}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{Latency: time.Since(start)}, fmt.Errorf("failed to read response body: %w", err)
	}

	logger.APIResponse(providerID, resp.StatusCode, string(respBody), nil)

	if resp.StatusCode != http.StatusOK {
		return ChatResponse{Latency: time.Since(start)},
			fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var wireResp completionsResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return ChatResponse{Latency: time.Since(start)}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if wireResp.Error != nil {
		return ChatResponse{Latency: time.Since(start)},
			fmt.Errorf("%s API error: %s", providerID, wireResp.Error.Message)
	}

	if len(wireResp.Choices) == 0 {
		return ChatResponse{Latency: time.Since(start)}, fmt.Errorf("no choices in response")
	}

	return ChatResponse{
		Content:      wireResp.Choices[0].Message.Content,
		InputTokens:  wireResp.Usage.PromptTokens,
		OutputTokens: wireResp.Usage.CompletionTokens,
		Latency:      time.Since(start),
	}, nil
}

// openCompletionsStream executes a streaming completions request and starts
// the SSE reader goroutine.
func openCompletionsStream(ctx context.Context, providerID string, client *http.Client, httpReq *http.Request) (<-chan StreamChunk, error) {
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	outChan := make(chan StreamChunk)
	go streamCompletions(ctx, providerID, resp.Body, outChan)
	return outChan, nil
}

// streamCompletions reads the SSE stream and sends chunks until [DONE],
// a finish reason, cancellation, or a transport error. A cancelled context
// ends production silently: the consumer is gone, so nothing may block on a
// send or the response body would stay open forever.
func streamCompletions(ctx context.Context, providerID string, body io.ReadCloser, outChan chan<- StreamChunk) {
	defer close(outChan)
	defer body.Close()

	scanner := NewSSEScanner(body)
	accumulated := ""

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		data := scanner.Data()
		if data == "[DONE]" {
			emitChunk(ctx, outChan, StreamChunk{
				Content:      accumulated,
				FinishReason: ptr("stop"),
			})
			return
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}

		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // Skip malformed chunks
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			accumulated += delta
			if !emitChunk(ctx, outChan, StreamChunk{
				Content: accumulated,
				Delta:   delta,
			}) {
				return
			}
		}

		if chunk.Choices[0].FinishReason != nil {
			emitChunk(ctx, outChan, StreamChunk{
				Content:      accumulated,
				FinishReason: chunk.Choices[0].FinishReason,
			})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			// The read failed because the caller cancelled.
			return
		}
		logger.LLMError(providerID, "", err, "phase", "stream")
		emitChunk(ctx, outChan, StreamChunk{
			Content:      accumulated,
			Error:        err,
			FinishReason: ptr("error"),
		})
	}
}

// emitChunk sends a chunk unless the context is cancelled first. It reports
// whether the chunk was delivered.
func emitChunk(ctx context.Context, outChan chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case outChan <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
