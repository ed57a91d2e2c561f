package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/safepath"
)

type stubTool struct {
	name   string
	result string
}

func (t *stubTool) Name() string            { return t.name }
func (t *stubTool) Description() string     { return "stub" }
func (t *stubTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *stubTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	return textResult(t.result), nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubTool{name: "a"}, CategoryCustom, false); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubTool{name: "a"}, CategoryCustom, false); err == nil {
		t.Error("duplicate registration without replace should fail")
	}
	if err := r.Register(&stubTool{name: "a", result: "v2"}, CategoryCustom, true); err != nil {
		t.Errorf("replace registration should succeed: %v", err)
	}

	res := r.Execute(context.Background(), &db.ToolCall{Name: "a", Input: json.RawMessage(`{}`)})
	if res.Content != "v2" {
		t.Errorf("expected replaced tool to run, got %q", res.Content)
	}
}

func TestDisableHidesTool(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "a"}, CategoryCustom, false); err != nil {
		t.Fatal(err)
	}

	r.Disable("a")
	if _, ok := r.Get("a"); ok {
		t.Error("disabled tool should not be gettable")
	}
	if len(r.List()) != 0 {
		t.Error("disabled tool should not be listed")
	}

	res := r.Execute(context.Background(), &db.ToolCall{Name: "a", Input: json.RawMessage(`{}`)})
	if !res.IsError {
		t.Error("executing a disabled tool should error")
	}

	r.Enable("a")
	if _, ok := r.Get("a"); !ok {
		t.Error("re-enabled tool should be gettable")
	}
}

func TestByCategory(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterAll(CategorySearch, &stubTool{name: "b"}, &stubTool{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubTool{name: "c"}, CategoryCustom, false); err != nil {
		t.Fatal(err)
	}

	search := r.ByCategory(CategorySearch)
	if len(search) != 2 {
		t.Fatalf("expected 2 search tools, got %d", len(search))
	}
	if search[0].Name() != "a" || search[1].Name() != "b" {
		t.Error("category listing should be sorted by name")
	}
}

func TestExecuteUnknownToolListsAvailable(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "cat"}, CategoryFilesystem, false); err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), &db.ToolCall{Name: "nope", Input: json.RawMessage(`{}`)})
	if !res.IsError {
		t.Fatal("unknown tool should produce an error result")
	}
	if !strings.Contains(res.Content, "cat") {
		t.Errorf("error should list available tools, got %q", res.Content)
	}
}

func TestDefaultRegistry(t *testing.T) {
	work := t.TempDir()
	v := safepath.NewValidator(safepath.DefaultPolicy(work))

	r, todos, err := DefaultRegistry(v, nil)
	if err != nil {
		t.Fatal(err)
	}
	if todos == nil {
		t.Fatal("expected a todo store")
	}

	for _, name := range []string{"cat", "tree", "grep", "file", "todo"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("default registry missing tool %s", name)
		}
	}
	if len(r.ByCategory(CategoryFilesystem)) != 3 {
		t.Errorf("expected 3 filesystem tools, got %d", len(r.ByCategory(CategoryFilesystem)))
	}
}
