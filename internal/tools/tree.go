package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/UH3135/cli-master/internal/safepath"
)

// Directories never shown in tree output.
var treeExclude = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// TreeTool renders a directory structure
type TreeTool struct {
	validator *safepath.Validator
}

// NewTreeTool creates a new tree tool
func NewTreeTool(validator *safepath.Validator) *TreeTool {
	return &TreeTool{validator: validator}
}

// Name returns the tool name
func (t *TreeTool) Name() string {
	return "tree"
}

// Description returns the tool description
func (t *TreeTool) Description() string {
	return "Show a directory's structure as a tree. Hidden files and common build directories are skipped."
}

// Schema returns the JSON schema for the tool input
func (t *TreeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Directory to start from (default: current directory)"
			},
			"max_depth": {
				"type": "integer",
				"description": "Maximum depth to descend (default: 3)"
			}
		}
	}`)
}

// TreeInput represents the tool input
type TreeInput struct {
	Path     string `json:"path"`
	MaxDepth int    `json:"max_depth"`
}

// Execute renders the tree
func (t *TreeTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in TreeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.Path == "" {
		in.Path = "."
	}
	if in.MaxDepth <= 0 {
		in.MaxDepth = 3
	}

	res, err := t.validator.Validate(in.Path, safepath.OpRead)
	if err != nil {
		return errorResult(fmt.Sprintf("cannot resolve %q: %v", in.Path, err)), nil
	}
	if !res.Allowed {
		return errorResult(res.Reason), nil
	}

	info, err := os.Stat(res.NormalizedPath)
	if err != nil {
		return errorResult(fmt.Sprintf("path not found: %s", in.Path)), nil
	}
	if !info.IsDir() {
		return errorResult(fmt.Sprintf("not a directory: %s", in.Path)), nil
	}

	var b strings.Builder
	b.WriteString(in.Path + "/\n")
	t.walk(&b, res.NormalizedPath, "", 0, in.MaxDepth)
	return textResult(strings.TrimRight(b.String(), "\n")), nil
}

func (t *TreeTool) walk(b *strings.Builder, dir, prefix string, depth, maxDepth int) {
	if depth >= maxDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		b.WriteString(prefix + "[permission denied]\n")
		return
	}

	var visible []os.DirEntry
	for _, e := range entries {
		name := e.Name()
		if treeExclude[name] || strings.HasPrefix(name, ".") {
			continue
		}
		visible = append(visible, e)
	}

	for i, e := range visible {
		last := i == len(visible)-1
		connector := "├── "
		extension := "│   "
		if last {
			connector = "└── "
			extension = "    "
		}

		if e.IsDir() {
			b.WriteString(prefix + connector + e.Name() + "/\n")
			t.walk(b, filepath.Join(dir, e.Name()), prefix+extension, depth+1, maxDepth)
		} else {
			b.WriteString(prefix + connector + e.Name() + "\n")
		}
	}
}
