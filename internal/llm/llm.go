// Package llm defines the chat model contract the agent drives.
package llm

import (
	"context"
	"errors"
)

// ErrNoAPIKey is returned when the chat model's API key is not configured.
var ErrNoAPIKey = errors.New("chat model API key not set")

// Role of a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCalls is set on assistant messages that request tool runs.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a model request to run a tool. Arguments is the raw JSON
// object the model produced.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec advertises a tool to the model. Parameters is a JSON schema.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatModel produces the next assistant message for a transcript.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
}
