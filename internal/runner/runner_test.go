package runner

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UH3135/cli-master/internal/ai"
	"github.com/UH3135/cli-master/internal/config"
	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
	"github.com/UH3135/cli-master/internal/tools"
)

// scriptedProvider plays back one batch of events per Stream call.
type scriptedProvider struct {
	turns [][]ai.StreamEvent
	calls int
	seen  []*ai.ChatRequest
}

func (p *scriptedProvider) ID() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req *ai.ChatRequest) (<-chan ai.StreamEvent, error) {
	p.seen = append(p.seen, req)
	turn := p.turns[p.calls]
	if p.calls < len(p.turns)-1 {
		p.calls++
	}

	events := make(chan ai.StreamEvent, len(turn)+1)
	for _, ev := range turn {
		events <- ev
	}
	events <- ai.StreamEvent{Type: ai.EventTypeDone}
	close(events)
	return events, nil
}

type echoTool struct{}

func (t *echoTool) Name() string            { return "echo" }
func (t *echoTool) Description() string     { return "echoes its input" }
func (t *echoTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *echoTool) Execute(ctx context.Context, input json.RawMessage) (*tools.ToolResult, error) {
	return &tools.ToolResult{Content: "echo: " + string(input)}, nil
}

func newTestRunner(t *testing.T, provider ai.Provider) (*Runner, *db.Checkpoints) {
	t.Helper()
	logging.Disable()
	t.Cleanup(logging.Enable)

	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	registry := tools.NewRegistry()
	if err := registry.Register(&echoTool{}, tools.CategoryCustom, false); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Model: "test-model", MaxIterations: 5}
	checkpoints := db.NewCheckpoints(store)
	return New(cfg, checkpoints, provider, registry), checkpoints
}

func collect(t *testing.T, events <-chan ai.StreamEvent) []ai.StreamEvent {
	t.Helper()
	var all []ai.StreamEvent
	for ev := range events {
		all = append(all, ev)
	}
	return all
}

func TestRunPlainTextResponse(t *testing.T) {
	provider := &scriptedProvider{turns: [][]ai.StreamEvent{
		{{Type: ai.EventTypeText, Text: "hello "}, {Type: ai.EventTypeText, Text: "there"}},
	}}
	r, checkpoints := newTestRunner(t, provider)

	events, err := r.Run(context.Background(), &RunRequest{ThreadID: "t1", Input: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	var text string
	var done bool
	for _, ev := range collect(t, events) {
		switch ev.Type {
		case ai.EventTypeText:
			text += ev.Text
		case ai.EventTypeDone:
			done = true
		case ai.EventTypeError:
			t.Fatalf("unexpected error: %v", ev.Error)
		}
	}
	if text != "hello there" {
		t.Errorf("expected streamed text, got %q", text)
	}
	if !done {
		t.Error("expected a done event")
	}

	msgs, err := checkpoints.Messages("t1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("expected user and assistant messages persisted, got %+v", msgs)
	}
}

func TestRunExecutesToolsAndLoops(t *testing.T) {
	call := &db.ToolCall{ID: "tc1", Name: "echo", Input: json.RawMessage(`{"x":1}`)}
	provider := &scriptedProvider{turns: [][]ai.StreamEvent{
		{{Type: ai.EventTypeToolCall, ToolCall: call}},
		{{Type: ai.EventTypeText, Text: "final answer"}},
	}}
	r, checkpoints := newTestRunner(t, provider)

	events, err := r.Run(context.Background(), &RunRequest{ThreadID: "t1", Input: "use the tool"})
	if err != nil {
		t.Fatal(err)
	}

	var toolResults int
	var text string
	for _, ev := range collect(t, events) {
		switch ev.Type {
		case ai.EventTypeToolResult:
			toolResults++
			if !strings.Contains(ev.Text, "echo:") {
				t.Errorf("unexpected tool result: %q", ev.Text)
			}
		case ai.EventTypeText:
			text += ev.Text
		case ai.EventTypeError:
			t.Fatalf("unexpected error: %v", ev.Error)
		}
	}
	if toolResults != 1 {
		t.Errorf("expected 1 tool result event, got %d", toolResults)
	}
	if text != "final answer" {
		t.Errorf("expected final answer, got %q", text)
	}

	// Thread should hold user, assistant w/ tool call, tool results,
	// and the final assistant message.
	msgs, err := checkpoints.Messages("t1", 0)
	if err != nil {
		t.Fatal(err)
	}
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role
	}
	want := []string{"user", "assistant", "tool", "assistant"}
	if len(roles) != len(want) {
		t.Fatalf("expected roles %v, got %v", want, roles)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("expected roles %v, got %v", want, roles)
		}
	}

	// The second model call must include the tool results.
	if len(provider.seen) < 2 {
		t.Fatal("expected two provider calls")
	}
	second := provider.seen[1]
	foundResults := false
	for _, m := range second.Messages {
		if m.Role == "tool" && len(m.ToolResults) > 0 {
			foundResults = true
		}
	}
	if !foundResults {
		t.Error("second request should carry the tool results back to the model")
	}
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	// A provider that always asks for a tool never settles; the loop
	// must cut it off.
	call := &db.ToolCall{ID: "tc", Name: "echo", Input: json.RawMessage(`{}`)}
	provider := &scriptedProvider{turns: [][]ai.StreamEvent{
		{{Type: ai.EventTypeToolCall, ToolCall: call}},
	}}
	r, _ := newTestRunner(t, provider)

	events, err := r.Run(context.Background(), &RunRequest{ThreadID: "t1", Input: "loop"})
	if err != nil {
		t.Fatal(err)
	}

	var gotErr error
	for _, ev := range collect(t, events) {
		if ev.Type == ai.EventTypeError {
			gotErr = ev.Error
		}
	}
	if gotErr == nil || !strings.Contains(gotErr.Error(), "maximum iterations") {
		t.Errorf("expected max iterations error, got %v", gotErr)
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	r, _ := newTestRunner(t, &scriptedProvider{turns: [][]ai.StreamEvent{{}}})

	if _, err := r.Run(context.Background(), &RunRequest{ThreadID: "t", Input: "   "}); err == nil {
		t.Error("blank input should be rejected")
	}
	if _, err := r.Run(context.Background(), &RunRequest{Input: "hi"}); err == nil {
		t.Error("missing thread id should be rejected")
	}
}

func TestChatCollectsText(t *testing.T) {
	provider := &scriptedProvider{turns: [][]ai.StreamEvent{
		{{Type: ai.EventTypeText, Text: "collected"}},
	}}
	r, _ := newTestRunner(t, provider)

	out, err := r.Chat(context.Background(), "t1", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if out != "collected" {
		t.Errorf("expected 'collected', got %q", out)
	}
}

func TestSystemPromptListsTools(t *testing.T) {
	provider := &scriptedProvider{turns: [][]ai.StreamEvent{
		{{Type: ai.EventTypeText, Text: "ok"}},
	}}
	r, _ := newTestRunner(t, provider)

	if _, err := r.Chat(context.Background(), "t1", "hi"); err != nil {
		t.Fatal(err)
	}
	if len(provider.seen) == 0 {
		t.Fatal("provider never called")
	}
	if !strings.Contains(provider.seen[0].System, "echo") {
		t.Error("system prompt should list the registered tools")
	}
}
