// Package config loads the application settings from the environment.
//
// Every setting has a documented default so the server boots with no
// environment at all (AI features simply report as unavailable).
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings holds the application-wide configuration.
type Settings struct {
	// Azure OpenAI
	AzureOpenAIEndpoint       string `mapstructure:"azure_openai_endpoint"`
	AzureOpenAIAPIKey         string `mapstructure:"azure_openai_api_key"`
	AzureOpenAIDeploymentName string `mapstructure:"azure_openai_deployment_name"`
	AzureOpenAIAPIVersion     string `mapstructure:"azure_openai_api_version"`

	// Standard OpenAI (fallback provider)
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	// Application
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
	FrontendURL string `mapstructure:"frontend_url"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	// AI behavior
	AITemperature    float32 `mapstructure:"ai_temperature"`
	AIMaxTokens      int     `mapstructure:"ai_max_tokens"`
	AIHistoryWindow  int     `mapstructure:"ai_history_window"`
	ConversationSize int     `mapstructure:"conversation_size"`

	// Conversation store backend. Empty RedisAddr selects the in-memory store.
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	ConversationTTL time.Duration `mapstructure:"conversation_ttl"`

	// Observability
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// Load reads settings from environment variables, applying defaults for
// anything unset. Environment names are the upper-cased mapstructure keys
// (AZURE_OPENAI_ENDPOINT, OPENAI_API_KEY, PORT, ...).
func Load() (*Settings, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("azure_openai_endpoint", "")
	v.SetDefault("azure_openai_api_key", "")
	v.SetDefault("azure_openai_deployment_name", "gpt-35-turbo")
	v.SetDefault("azure_openai_api_version", "2024-02-15-preview")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")

	v.SetDefault("environment", "development")
	v.SetDefault("port", 8000)
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("ai_temperature", 0.7)
	v.SetDefault("ai_max_tokens", 1000)
	v.SetDefault("ai_history_window", 5)
	v.SetDefault("conversation_size", 20)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("conversation_ttl", 24*time.Hour)

	v.SetDefault("metrics_enabled", true)

	// AutomaticEnv alone does not surface env vars through Unmarshal, so
	// bind each known key explicitly.
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AzureConfigured reports whether Azure OpenAI is addressable: endpoint and
// deployment present. The API key is optional; without one the provider
// authenticates with Entra ID through the default credential chain.
func (s *Settings) AzureConfigured() bool {
	return s.AzureOpenAIEndpoint != "" && s.AzureOpenAIDeploymentName != ""
}

// OpenAIConfigured reports whether a standard OpenAI API key is present.
func (s *Settings) OpenAIConfigured() bool {
	return s.OpenAIAPIKey != ""
}

// AIEnabled reports whether any chat provider can be constructed.
func (s *Settings) AIEnabled() bool {
	return s.AzureConfigured() || s.OpenAIConfigured()
}
