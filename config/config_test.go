package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-35-turbo", s.AzureOpenAIDeploymentName)
	assert.Equal(t, "2024-02-15-preview", s.AzureOpenAIAPIVersion)
	assert.Equal(t, "gpt-3.5-turbo", s.OpenAIModel)
	assert.Equal(t, "https://api.openai.com/v1", s.OpenAIBaseURL)
	assert.Equal(t, 8000, s.Port)
	assert.Equal(t, "http://localhost:3000", s.FrontendURL)
	assert.InDelta(t, 0.7, s.AITemperature, 0.001)
	assert.Equal(t, 1000, s.AIMaxTokens)
	assert.Equal(t, 5, s.AIHistoryWindow)
	assert.Equal(t, 20, s.ConversationSize)
	assert.Equal(t, 24*time.Hour, s.ConversationTTL)
	assert.True(t, s.MetricsEnabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9001")
	t.Setenv("AI_MAX_TOKENS", "256")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", s.OpenAIAPIKey)
	assert.Equal(t, 9001, s.Port)
	assert.Equal(t, 256, s.AIMaxTokens)
}

func TestProviderPredicates(t *testing.T) {
	var s Settings
	assert.False(t, s.AzureConfigured())
	assert.False(t, s.OpenAIConfigured())
	assert.False(t, s.AIEnabled())

	s.OpenAIAPIKey = "sk-test"
	assert.True(t, s.OpenAIConfigured())
	assert.True(t, s.AIEnabled())

	// Azure needs endpoint and deployment; the key is optional because the
	// provider can fall back to Entra ID.
	s = Settings{
		AzureOpenAIEndpoint:       "https://example.openai.azure.com",
		AzureOpenAIDeploymentName: "gpt-35-turbo",
	}
	assert.True(t, s.AzureConfigured())
	assert.True(t, s.AIEnabled())

	s.AzureOpenAIDeploymentName = ""
	assert.False(t, s.AzureConfigured())
}
