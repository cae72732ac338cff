// Package llm owns the configured chat-model handle and the system prompt.
//
// The gateway never surfaces provider failures as errors: callers always get
// text back. Failures become an apologetic fallback string so the chat
// surface degrades instead of breaking.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TerryZYH/PokerRangeCalculator/config"
	"github.com/TerryZYH/PokerRangeCalculator/logger"
	"github.com/TerryZYH/PokerRangeCalculator/metrics"
	"github.com/TerryZYH/PokerRangeCalculator/providers"
	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// UnavailableMessage is returned when no chat provider is configured.
const UnavailableMessage = "Sorry, the AI service is currently unavailable. Please check the configuration."

// apology wraps an upstream error into the user-facing fallback string.
func apology(err error) string {
	return fmt.Sprintf("Sorry, something went wrong while handling your request: %v", err)
}

// Gateway holds at most one configured chat provider.
type Gateway struct {
	provider providers.Provider
	defaults providers.Defaults
}

// NewGateway constructs a gateway from settings. Provider selection follows
// a priority rule: Azure OpenAI when configured (api-key auth when a key is
// set, Entra ID otherwise), else standard OpenAI when an API key is present,
// else no provider ("unavailable"). Construction failures degrade to the
// next option rather than failing the process.
func NewGateway(cfg *config.Settings) *Gateway {
	defaults := providers.Defaults{
		Temperature: cfg.AITemperature,
		MaxTokens:   cfg.AIMaxTokens,
	}
	return &Gateway{defaults: defaults, provider: selectProvider(cfg, defaults)}
}

// selectProvider picks the highest-priority provider the settings allow.
func selectProvider(cfg *config.Settings, defaults providers.Defaults) providers.Provider {
	if cfg.AzureConfigured() {
		if cfg.AzureOpenAIAPIKey != "" {
			logger.Info("✅ Azure OpenAI initialized",
				"deployment", cfg.AzureOpenAIDeploymentName, "auth", "api-key")
			return providers.NewAzureProvider(
				cfg.AzureOpenAIEndpoint,
				cfg.AzureOpenAIAPIKey,
				cfg.AzureOpenAIDeploymentName,
				cfg.AzureOpenAIAPIVersion,
				defaults,
			)
		}

		p, err := providers.NewAzureProviderWithCredential(
			cfg.AzureOpenAIEndpoint,
			cfg.AzureOpenAIDeploymentName,
			cfg.AzureOpenAIAPIVersion,
			defaults,
		)
		if err == nil {
			logger.Info("✅ Azure OpenAI initialized",
				"deployment", cfg.AzureOpenAIDeploymentName, "auth", "entra-id")
			return p
		}
		logger.Error("Azure credential setup failed, trying next provider", "error", err)
	}

	if cfg.OpenAIConfigured() {
		logger.Info("✅ OpenAI initialized", "model", cfg.OpenAIModel)
		return providers.NewOpenAIProvider(
			cfg.OpenAIAPIKey,
			cfg.OpenAIModel,
			cfg.OpenAIBaseURL,
			defaults,
		)
	}

	logger.Warn("⚠️ no AI provider configured, AI features disabled")
	return nil
}

// NewGatewayWithProvider builds a gateway around an existing provider.
// Used by tests and anywhere the provider is constructed externally.
func NewGatewayWithProvider(p providers.Provider, defaults providers.Defaults) *Gateway {
	return &Gateway{provider: p, defaults: defaults}
}

// Available reports whether a chat provider was successfully constructed.
func (g *Gateway) Available() bool {
	return g.provider != nil
}

// ProviderName returns the active provider's name, or "" when unavailable.
func (g *Gateway) ProviderName() string {
	if g.provider == nil {
		return ""
	}
	return g.provider.ID()
}

// Close releases the underlying provider's resources.
func (g *Gateway) Close() error {
	if g.provider == nil {
		return nil
	}
	return g.provider.Close()
}

// buildRequest assembles the ordered message list: system prompt first, then
// history turns, then the new user message.
func (g *Gateway) buildRequest(message, systemPrompt string, history []types.Message) providers.ChatRequest {
	messages := make([]types.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, types.Message{Role: types.RoleUser, Content: message})

	return providers.ChatRequest{
		System:      systemPrompt,
		Messages:    messages,
		Temperature: g.defaults.Temperature,
		MaxTokens:   g.defaults.MaxTokens,
	}
}

// ErrUnavailable is returned by Complete when no provider is configured.
var ErrUnavailable = errors.New("no AI provider configured")

// Complete issues one blocking chat request and returns the reply text or
// the upstream error. Callers that must report failures (the range
// endpoints) use this; conversational callers use Chat.
func (g *Gateway) Complete(ctx context.Context, message, systemPrompt string, history []types.Message) (string, error) {
	if !g.Available() {
		return "", ErrUnavailable
	}

	req := g.buildRequest(message, systemPrompt, history)
	provider, model := g.provider.ID(), g.provider.Model()

	logger.LLMCall(provider, model, len(req.Messages), float64(req.Temperature))
	start := time.Now()

	resp, err := g.provider.Chat(ctx, req)
	if err != nil {
		metrics.RecordProviderCall(provider, model, "error", time.Since(start))
		logger.LLMError(provider, model, err)
		return "", err
	}

	metrics.RecordProviderCall(provider, model, "success", resp.Latency)
	metrics.RecordProviderTokens(provider, model, resp.InputTokens, resp.OutputTokens)
	logger.LLMResponse(provider, model, resp.InputTokens, resp.OutputTokens,
		"latency_ms", resp.Latency.Milliseconds())

	return resp.Content, nil
}

// Chat issues one blocking chat request and returns the reply text. Any
// failure is converted into the apology fallback, never an error.
func (g *Gateway) Chat(ctx context.Context, message, systemPrompt string, history []types.Message) string {
	content, err := g.Complete(ctx, message, systemPrompt, history)
	if errors.Is(err, ErrUnavailable) {
		return UnavailableMessage
	}
	if err != nil {
		return apology(err)
	}
	return content
}

// Fragment is one increment of a streamed reply. A non-nil Err terminates
// the stream; no further fragments follow it.
type Fragment struct {
	Text string
	Err  error
}

// ChatStream issues an incremental chat request and returns a channel of
// reply fragments. The channel is closed when the reply is complete. A
// failure yields one final fragment carrying the error; the stream is not
// resumed.
func (g *Gateway) ChatStream(ctx context.Context, message, systemPrompt string, history []types.Message) <-chan Fragment {
	out := make(chan Fragment)

	if !g.Available() {
		go func() {
			defer close(out)
			out <- Fragment{Err: ErrUnavailable}
		}()
		return out
	}

	req := g.buildRequest(message, systemPrompt, history)
	provider, model := g.provider.ID(), g.provider.Model()

	logger.LLMCall(provider, model, len(req.Messages), float64(req.Temperature), "stream", true)
	start := time.Now()

	chunks, err := g.provider.ChatStream(ctx, req)
	if err != nil {
		metrics.RecordProviderCall(provider, model, "error", time.Since(start))
		logger.LLMError(provider, model, err, "phase", "open")
		go func() {
			defer close(out)
			out <- Fragment{Err: err}
		}()
		return out
	}

	go func() {
		defer close(out)
		status := "success"

		for chunk := range chunks {
			if chunk.Error != nil {
				status = "error"
				logger.LLMError(provider, model, chunk.Error, "phase", "stream")
				select {
				case out <- Fragment{Err: chunk.Error}:
				case <-ctx.Done():
				}
				break
			}
			if chunk.Delta == "" {
				continue
			}
			select {
			case out <- Fragment{Text: chunk.Delta}:
			case <-ctx.Done():
				// Caller went away; stop emitting.
				return
			}
		}

		metrics.RecordProviderCall(provider, model, status, time.Since(start))
	}()

	return out
}
