// Package logger provides structured logging with automatic secret redaction.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - LLM API call logging (requests, responses, errors)
//   - Automatic API key and sensitive data redaction
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// DefaultLogger is the global structured logger instance.
// It is safe for concurrent use and initialized with slog.LevelInfo by default.
var DefaultLogger *slog.Logger

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// ParseLevel converts a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure replaces the global logger with one using the given level and
// output format. This is safe for concurrent use as it replaces the entire
// logger instance.
func Configure(level slog.Level, jsonFormat bool) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	DefaultLogger = slog.New(handler)
	slog.SetDefault(DefaultLogger)
}

// SetLevel changes the logging level for all subsequent log operations.
func SetLevel(level slog.Level) {
	Configure(level, false)
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// LLMCall logs an LLM API call with structured fields for observability.
// Additional attributes can be passed as key-value pairs after the required
// parameters.
func LLMCall(provider, model string, messages int, temperature float64, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs,
		"provider", provider,
		"model", model,
		"messages", messages,
		"temperature", temperature,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("🤖 LLM API Call", allAttrs...)
}

// LLMResponse logs an LLM API response with token usage.
func LLMResponse(provider, model string, tokensIn, tokensOut int, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs,
		"provider", provider,
		"model", model,
		"tokens_in", tokensIn,
		"tokens_out", tokensOut,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("✅ LLM API Response", allAttrs...)
}

// LLMError logs an LLM API error for debugging and monitoring.
func LLMError(provider, model string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"provider", provider,
		"model", model,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	Error("❌ LLM API Call Failed", allAttrs...)
}

// apiKeyPatterns contains compiled regular expressions for detecting
// sensitive data. Patterns match common API key formats.
var apiKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),      // OpenAI API keys
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`), // Bearer tokens
	regexp.MustCompile(`api-key:\s*\S+`),           // Azure api-key headers
}

// RedactSensitiveData removes API keys and other sensitive information from
// strings. It replaces matched patterns with a redacted form that preserves
// the first few characters for debugging while hiding the sensitive portion.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			if strings.HasPrefix(match, "api-key") {
				return "api-key: [REDACTED]"
			}
			// Show first 4 characters for debugging context
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}

	return result
}

// APIRequest logs HTTP API request details at debug level with automatic
// redaction. This function is a no-op when debug logging is disabled.
func APIRequest(provider, method, url string, headers map[string]string, body interface{}) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 8)
	attrs = append(attrs,
		"provider", provider,
		"method", method,
		"url", RedactSensitiveData(url),
	)

	if len(headers) > 0 {
		redactedHeaders := make(map[string]string, len(headers))
		for key, value := range headers {
			redactedHeaders[key] = RedactSensitiveData(value)
		}
		attrs = append(attrs, "headers", redactedHeaders)
	}

	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			attrs = append(attrs, "body_error", err.Error())
		} else {
			attrs = append(attrs, "body", RedactSensitiveData(string(bodyJSON)))
		}
	}

	Debug("🔵 API Request", attrs...)
}

// APIResponse logs HTTP API response details at debug level with automatic
// redaction. This function is a no-op when debug logging is disabled.
func APIResponse(provider string, statusCode int, body string, err error) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 6)
	attrs = append(attrs,
		"provider", provider,
		"status_code", statusCode,
	)

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		Error("🔴 API Response Error", attrs...)
		return
	}

	var emoji string
	switch {
	case statusCode >= 200 && statusCode < 300:
		emoji = "🟢"
	case statusCode >= 400:
		emoji = "🔴"
	default:
		emoji = "🟡"
	}

	if body != "" {
		attrs = append(attrs, "body", RedactSensitiveData(body))
	}

	Debug(emoji+" API Response", attrs...)
}
