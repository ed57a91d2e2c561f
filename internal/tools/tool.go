// Package tools implements the agent's tool surface. Every tool that
// touches the filesystem validates its paths through the access policy
// before doing any work.
package tools

import (
	"context"
	"encoding/json"
)

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool interface that all tools must implement
type Tool interface {
	// Name returns the tool's unique name
	Name() string

	// Description returns a description for the AI
	Description() string

	// Schema returns the JSON schema for the tool's input
	Schema() json.RawMessage

	// Execute runs the tool with the given input
	Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error)
}

func errorResult(msg string) *ToolResult {
	return &ToolResult{Content: msg, IsError: true}
}

func textResult(msg string) *ToolResult {
	return &ToolResult{Content: msg}
}
