package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/UH3135/cli-master/internal/safepath"
)

const grepMaxResults = 50

// GrepTool searches for patterns in files
type GrepTool struct {
	validator *safepath.Validator
}

// NewGrepTool creates a new grep tool
func NewGrepTool(validator *safepath.Validator) *GrepTool {
	return &GrepTool{validator: validator}
}

// Name returns the tool name
func (t *GrepTool) Name() string {
	return "grep"
}

// Description returns the tool description
func (t *GrepTool) Description() string {
	return `Search for a regular expression in files under a directory.
Returns matching lines as path:line: text. Use file_pattern to filter
which files are searched.`
}

// Schema returns the JSON schema for the tool input
func (t *GrepTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "Regular expression to search for"
			},
			"path": {
				"type": "string",
				"description": "Directory to search in (default: current directory)"
			},
			"file_pattern": {
				"type": "string",
				"description": "Glob to filter file names, e.g. '*.go' (default: all files)"
			}
		},
		"required": ["pattern"]
	}`)
}

// GrepInput represents the tool input
type GrepInput struct {
	Pattern     string `json:"pattern"`
	Path        string `json:"path"`
	FilePattern string `json:"file_pattern"`
}

// Execute runs the search
func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in GrepInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.Pattern == "" {
		return errorResult("pattern is required"), nil
	}
	if in.Path == "" {
		in.Path = "."
	}
	if in.FilePattern == "" {
		in.FilePattern = "*"
	}

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	res, err := t.validator.Validate(in.Path, safepath.OpRead)
	if err != nil {
		return errorResult(fmt.Sprintf("cannot resolve %q: %v", in.Path, err)), nil
	}
	if !res.Allowed {
		return errorResult(res.Reason), nil
	}

	var matches []string
	err = filepath.WalkDir(res.NormalizedPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(matches) >= grepMaxResults {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if treeExclude[d.Name()] || (d.Name() != "." && strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(in.FilePattern, d.Name()); !ok {
			return nil
		}
		// Files under the search root may still be individually blocked.
		if fileRes, err := t.validator.Validate(path, safepath.OpRead); err != nil || !fileRes.Allowed {
			return nil
		}
		t.searchFile(re, path, &matches)
		return nil
	})
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(matches) == 0 {
		return textResult(fmt.Sprintf("no matches for pattern %q", in.Pattern)), nil
	}
	if len(matches) > grepMaxResults {
		matches = matches[:grepMaxResults]
	}
	return textResult(strings.Join(matches, "\n")), nil
}

func (t *GrepTool) searchFile(re *regexp.Regexp, path string, matches *[]string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			*matches = append(*matches, fmt.Sprintf("%s:%d: %s", path, lineNum, strings.TrimSpace(line)))
			if len(*matches) >= grepMaxResults {
				return
			}
		}
	}
}
