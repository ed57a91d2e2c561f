package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/UH3135/cli-master/internal/safepath"
)

// CatTool reads file contents
type CatTool struct {
	validator *safepath.Validator
}

// NewCatTool creates a new cat tool
func NewCatTool(validator *safepath.Validator) *CatTool {
	return &CatTool{validator: validator}
}

// Name returns the tool name
func (t *CatTool) Name() string {
	return "cat"
}

// Description returns the tool description
func (t *CatTool) Description() string {
	return "Read the contents of a file. Returns the full text of the file."
}

// Schema returns the JSON schema for the tool input
func (t *CatTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"file_path": {
				"type": "string",
				"description": "Path of the file to read"
			}
		},
		"required": ["file_path"]
	}`)
}

// CatInput represents the tool input
type CatInput struct {
	FilePath string `json:"file_path"`
}

// Execute reads the file
func (t *CatTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in CatInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.FilePath == "" {
		return errorResult("file_path is required"), nil
	}

	res, err := t.validator.Validate(in.FilePath, safepath.OpRead)
	if err != nil {
		return errorResult(fmt.Sprintf("cannot resolve %q: %v", in.FilePath, err)), nil
	}
	if !res.Allowed {
		return errorResult(res.Reason), nil
	}

	data, err := os.ReadFile(res.NormalizedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(fmt.Sprintf("file not found: %s", in.FilePath)), nil
		}
		if os.IsPermission(err) {
			return errorResult(fmt.Sprintf("no read permission: %s", in.FilePath)), nil
		}
		return errorResult(fmt.Sprintf("failed to read file: %v", err)), nil
	}

	return textResult(string(data)), nil
}
