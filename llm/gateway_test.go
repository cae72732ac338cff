package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerryZYH/PokerRangeCalculator/config"
	"github.com/TerryZYH/PokerRangeCalculator/providers"
	"github.com/TerryZYH/PokerRangeCalculator/types"
)

func TestGatewayUnavailable(t *testing.T) {
	g := NewGateway(&config.Settings{})

	assert.False(t, g.Available())
	assert.Empty(t, g.ProviderName())

	// No provider means the fixed unavailable message, no network call.
	reply := g.Chat(context.Background(), "hello", "", nil)
	assert.Equal(t, UnavailableMessage, reply)

	var fragments []Fragment
	for f := range g.ChatStream(context.Background(), "hello", "", nil) {
		fragments = append(fragments, f)
	}
	require.Len(t, fragments, 1)
	assert.ErrorIs(t, fragments[0].Err, ErrUnavailable)
}

func TestGatewayCompleteFailureReturnsError(t *testing.T) {
	mock := providers.NewMockProvider("")
	mock.ChatErr = providers.ErrMockUpstream
	g := NewGatewayWithProvider(mock, providers.Defaults{})

	_, err := g.Complete(context.Background(), "hi", "", nil)
	assert.ErrorIs(t, err, providers.ErrMockUpstream)

	_, err = NewGateway(&config.Settings{}).Complete(context.Background(), "hi", "", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGatewayProviderSelection(t *testing.T) {
	azure := &config.Settings{
		AzureOpenAIEndpoint:       "https://example.openai.azure.com",
		AzureOpenAIAPIKey:         "key",
		AzureOpenAIDeploymentName: "gpt-35-turbo",
		AzureOpenAIAPIVersion:     "2024-02-15-preview",
		// Azure wins even when an OpenAI key is also present.
		OpenAIAPIKey: "sk-test",
	}
	g := NewGateway(azure)
	require.True(t, g.Available())
	assert.Equal(t, "Azure OpenAI", g.ProviderName())

	openai := &config.Settings{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-3.5-turbo"}
	g = NewGateway(openai)
	require.True(t, g.Available())
	assert.Equal(t, "OpenAI", g.ProviderName())
}

func TestGatewayAzureWithoutKeyUsesCredentialChain(t *testing.T) {
	// Endpoint and deployment but no api-key selects the Entra ID path.
	cfg := &config.Settings{
		AzureOpenAIEndpoint:       "https://example.openai.azure.com",
		AzureOpenAIDeploymentName: "gpt-35-turbo",
		AzureOpenAIAPIVersion:     "2024-02-15-preview",
	}
	g := NewGateway(cfg)
	require.True(t, g.Available())
	assert.Equal(t, "Azure OpenAI", g.ProviderName())
}

func TestGatewayChat(t *testing.T) {
	mock := providers.NewMockProvider("Fold pre.")
	g := NewGatewayWithProvider(mock, providers.Defaults{Temperature: 0.7, MaxTokens: 100})

	history := []types.Message{
		types.UserMessage("earlier question"),
		types.AssistantMessage("earlier answer"),
	}
	reply := g.Chat(context.Background(), "What about 72o?", "be brief", history)

	assert.Equal(t, "Fold pre.", reply)
	assert.Equal(t, "be brief", mock.LastRequest.System)
	require.Len(t, mock.LastRequest.Messages, 3)
	assert.Equal(t, "earlier question", mock.LastRequest.Messages[0].Content)
	assert.Equal(t, "What about 72o?", mock.LastRequest.Messages[2].Content)
	assert.Equal(t, types.RoleUser, mock.LastRequest.Messages[2].Role)
}

func TestGatewayChatFailureBecomesApology(t *testing.T) {
	mock := providers.NewMockProvider("")
	mock.ChatErr = providers.ErrMockUpstream
	g := NewGatewayWithProvider(mock, providers.Defaults{})

	reply := g.Chat(context.Background(), "hi", "", nil)
	assert.Contains(t, reply, "Sorry")
	assert.Contains(t, reply, "mock upstream failure")
}

func TestGatewayChatStream(t *testing.T) {
	mock := providers.NewMockProvider("")
	mock.Fragments = []string{"Hel", "lo"}
	g := NewGatewayWithProvider(mock, providers.Defaults{})

	var fragments []string
	for f := range g.ChatStream(context.Background(), "hi", "", nil) {
		require.NoError(t, f.Err)
		fragments = append(fragments, f.Text)
	}
	assert.Equal(t, []string{"Hel", "lo"}, fragments)
}

func TestGatewayChatStreamMidStreamError(t *testing.T) {
	mock := providers.NewMockProvider("")
	mock.Fragments = []string{"partial"}
	mock.StreamErr = providers.ErrMockUpstream
	g := NewGatewayWithProvider(mock, providers.Defaults{})

	var fragments []Fragment
	for f := range g.ChatStream(context.Background(), "hi", "", nil) {
		fragments = append(fragments, f)
	}

	// The partial fragment, then one terminal error fragment.
	require.Len(t, fragments, 2)
	assert.Equal(t, "partial", fragments[0].Text)
	assert.ErrorIs(t, fragments[1].Err, providers.ErrMockUpstream)
}

func TestGatewayChatStreamOpenError(t *testing.T) {
	mock := providers.NewMockProvider("")
	mock.ChatErr = providers.ErrMockUpstream
	g := NewGatewayWithProvider(mock, providers.Defaults{})

	var fragments []Fragment
	for f := range g.ChatStream(context.Background(), "hi", "", nil) {
		fragments = append(fragments, f)
	}
	require.Len(t, fragments, 1)
	assert.ErrorIs(t, fragments[0].Err, providers.ErrMockUpstream)
}
