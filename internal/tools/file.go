package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/UH3135/cli-master/internal/safepath"
)

// Confirmer asks the user to approve a destructive action. Returning
// false aborts the action.
type Confirmer func(prompt string) bool

// FileTool performs file operations behind the access policy.
// Deletes that the policy flags for confirmation go through the
// confirmer before anything is removed.
type FileTool struct {
	validator *safepath.Validator
	confirm   Confirmer
}

// NewFileTool creates a new file tool. A nil confirmer rejects every
// delete that needs confirmation.
func NewFileTool(validator *safepath.Validator, confirm Confirmer) *FileTool {
	return &FileTool{validator: validator, confirm: confirm}
}

// Name returns the tool name
func (t *FileTool) Name() string {
	return "file"
}

// Description returns the tool description
func (t *FileTool) Description() string {
	return `Perform file operations: write, append, delete, copy, move, list.
Actions:
- write: create or overwrite a file with content
- append: add content to the end of a file
- delete: remove a file (may require user confirmation)
- copy: copy a file to a new path
- move: move or rename a file
- list: list the entries of a directory`
}

// Schema returns the JSON schema for the tool input
func (t *FileTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"description": "One of: write, append, delete, copy, move, list"
			},
			"path": {
				"type": "string",
				"description": "Target file or directory path"
			},
			"content": {
				"type": "string",
				"description": "Content for write and append actions"
			},
			"destination": {
				"type": "string",
				"description": "Destination path for copy and move actions"
			}
		},
		"required": ["action", "path"]
	}`)
}

// FileInput represents the tool input
type FileInput struct {
	Action      string `json:"action"`
	Path        string `json:"path"`
	Content     string `json:"content"`
	Destination string `json:"destination"`
}

// Execute dispatches on the action
func (t *FileTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in FileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.Path == "" {
		return errorResult("path is required"), nil
	}

	switch in.Action {
	case "write":
		return t.handleWrite(in, false)
	case "append":
		return t.handleWrite(in, true)
	case "delete":
		return t.handleDelete(in)
	case "copy":
		return t.handleCopyMove(in, false)
	case "move":
		return t.handleCopyMove(in, true)
	case "list":
		return t.handleList(in)
	default:
		return errorResult(fmt.Sprintf("unknown action: %s (valid: write, append, delete, copy, move, list)", in.Action)), nil
	}
}

func (t *FileTool) checkOp(path string, op safepath.Operation) (safepath.Result, *ToolResult) {
	res, err := t.validator.Validate(path, op)
	if err != nil {
		return res, errorResult(fmt.Sprintf("cannot resolve %q: %v", path, err))
	}
	if !res.Allowed {
		return res, errorResult(res.Reason)
	}
	return res, nil
}

func (t *FileTool) handleWrite(in FileInput, appendMode bool) (*ToolResult, error) {
	res, denied := t.checkOp(in.Path, safepath.OpWrite)
	if denied != nil {
		return denied, nil
	}

	if err := os.MkdirAll(filepath.Dir(res.NormalizedPath), 0o755); err != nil {
		return errorResult(fmt.Sprintf("failed to create parent directory: %v", err)), nil
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	verb := "wrote"
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		verb = "appended to"
	}
	f, err := os.OpenFile(res.NormalizedPath, flags, 0o644)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to open file: %v", err)), nil
	}
	n, err := f.WriteString(in.Content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to write file: %v", err)), nil
	}

	return textResult(fmt.Sprintf("%s %s (%d bytes)", verb, in.Path, n)), nil
}

func (t *FileTool) handleDelete(in FileInput) (*ToolResult, error) {
	res, denied := t.checkOp(in.Path, safepath.OpDelete)
	if denied != nil {
		return denied, nil
	}

	if res.NeedsConfirmation {
		if t.confirm == nil || !t.confirm(fmt.Sprintf("Delete %s?", in.Path)) {
			return errorResult(fmt.Sprintf("delete of %s was not confirmed", in.Path)), nil
		}
	}

	if err := os.Remove(res.NormalizedPath); err != nil {
		if os.IsNotExist(err) {
			return errorResult(fmt.Sprintf("file not found: %s", in.Path)), nil
		}
		return errorResult(fmt.Sprintf("failed to delete file: %v", err)), nil
	}
	return textResult(fmt.Sprintf("deleted %s", in.Path)), nil
}

func (t *FileTool) handleCopyMove(in FileInput, move bool) (*ToolResult, error) {
	if in.Destination == "" {
		return errorResult("destination is required"), nil
	}

	src, denied := t.checkOp(in.Path, safepath.OpRead)
	if denied != nil {
		return denied, nil
	}
	dst, denied := t.checkOp(in.Destination, safepath.OpWrite)
	if denied != nil {
		return denied, nil
	}

	if move {
		// Moving removes the source, so the source needs write access
		// too; NeedsConfirmation is a delete policy and does not apply
		// to renames.
		if _, denied := t.checkOp(in.Path, safepath.OpWrite); denied != nil {
			return denied, nil
		}
		if err := os.Rename(src.NormalizedPath, dst.NormalizedPath); err != nil {
			return errorResult(fmt.Sprintf("failed to move file: %v", err)), nil
		}
		return textResult(fmt.Sprintf("moved %s to %s", in.Path, in.Destination)), nil
	}

	if err := copyFile(src.NormalizedPath, dst.NormalizedPath); err != nil {
		return errorResult(fmt.Sprintf("failed to copy file: %v", err)), nil
	}
	return textResult(fmt.Sprintf("copied %s to %s", in.Path, in.Destination)), nil
}

func (t *FileTool) handleList(in FileInput) (*ToolResult, error) {
	res, denied := t.checkOp(in.Path, safepath.OpRead)
	if denied != nil {
		return denied, nil
	}

	entries, err := os.ReadDir(res.NormalizedPath)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list directory: %v", err)), nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return textResult(fmt.Sprintf("%s is empty", in.Path)), nil
	}
	return textResult(strings.Join(names, "\n")), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
