// Package types holds the data types shared across the backend.
package types

import "time"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single turn in a conversation.
// This is the canonical message type used throughout the system.
type Message struct {
	Role      string    `json:"role"`    // "system", "user", "assistant"
	Content   string    `json:"content"` // Message content
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// UserMessage builds a user-role message stamped with the current time.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// AssistantMessage builds an assistant-role message stamped with the current time.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// RangeContext is a caller-supplied hand range attached to a single request.
// It is consumed only to enrich the system prompt for that call and is never
// persisted.
type RangeContext struct {
	Name  string   `json:"name,omitempty"`
	Hands []string `json:"hands,omitempty"`
}
