// Package ai defines the provider abstraction over the LLM APIs and
// the streaming event model the agent loop consumes.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/UH3135/cli-master/internal/db"
)

// StreamEventType defines the type of streaming event
type StreamEventType string

const (
	EventTypeText       StreamEventType = "text"
	EventTypeToolCall   StreamEventType = "tool_call"
	EventTypeToolResult StreamEventType = "tool_result"
	EventTypeError      StreamEventType = "error"
	EventTypeDone       StreamEventType = "done"
)

// StreamEvent represents a streaming response event
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ToolCall *db.ToolCall    `json:"tool_call,omitempty"`
	Error    error           `json:"error,omitempty"`
}

// ToolDefinition describes a tool available to the model
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ChatRequest represents a request to the AI provider
type ChatRequest struct {
	Messages    []db.Message     `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	System      string           `json:"system,omitempty"`
	Model       string           `json:"model,omitempty"` // Model override
}

// Provider interface for AI providers
type Provider interface {
	// ID returns the provider identifier (e.g., "anthropic", "openai")
	ID() string

	// Stream sends a request and returns a channel of streaming events
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error)
}

// ProviderIDForModel maps a model name to its provider id by prefix.
func ProviderIDForModel(model string) (string, error) {
	switch {
	case strings.HasPrefix(model, "gemini"):
		return "gemini", nil
	case strings.HasPrefix(model, "claude"):
		return "anthropic", nil
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return "openai", nil
	default:
		return "", fmt.Errorf("no provider for model %q", model)
	}
}

// ForModel builds the provider that serves the given model name.
// keyFor resolves the API key for a provider id.
func ForModel(model string, keyFor func(providerID string) string) (Provider, error) {
	id, err := ProviderIDForModel(model)
	if err != nil {
		return nil, err
	}

	key := keyFor(id)
	if key == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", id)
	}

	switch id {
	case "gemini":
		return NewGeminiProvider(key, model), nil
	case "anthropic":
		return NewAnthropicProvider(key, model), nil
	case "openai":
		return NewOpenAIProvider(key, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", id)
	}
}
