package db

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/UH3135/cli-master/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logging.Disable()
	t.Cleanup(logging.Enable)

	store, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryAppendAndAll(t *testing.T) {
	store := newTestStore(t)
	h := NewHistory(store)

	if err := h.Append("hello"); err != nil {
		t.Fatal(err)
	}
	if err := h.AppendAI("hi there"); err != nil {
		t.Fatal(err)
	}

	entries, err := h.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Role != RoleUser || entries[0].Content != "hello" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Role != RoleAI || entries[1].Content != "hi there" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestHistoryIsSessionScoped(t *testing.T) {
	store := newTestStore(t)
	a := NewHistory(store)
	b := NewHistory(store)

	if err := a.Append("from a"); err != nil {
		t.Fatal(err)
	}
	if err := b.Append("from b"); err != nil {
		t.Fatal(err)
	}

	entries, err := a.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Content != "from a" {
		t.Errorf("session a should only see its own entries, got %+v", entries)
	}
}

func TestHistoryStrings(t *testing.T) {
	store := newTestStore(t)
	h := NewHistory(store)

	if err := h.Append("question"); err != nil {
		t.Fatal(err)
	}
	if err := h.AppendAI("answer"); err != nil {
		t.Fatal(err)
	}

	lines, err := h.Strings()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"user: question", "ai: answer"}
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("expected %v, got %v", want, lines)
	}
}

func TestHistoryAllWithRole(t *testing.T) {
	store := newTestStore(t)
	h := NewHistory(store)

	if err := h.Append("first question"); err != nil {
		t.Fatal(err)
	}
	if err := h.AppendAI("first answer"); err != nil {
		t.Fatal(err)
	}
	if err := h.Append("second question"); err != nil {
		t.Fatal(err)
	}

	users, err := h.AllWithRole(RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].Content != "first question" || users[1].Content != "second question" {
		t.Errorf("unexpected user entries: %+v", users)
	}

	ais, err := h.AllWithRole(RoleAI)
	if err != nil {
		t.Fatal(err)
	}
	if len(ais) != 1 || ais[0].Content != "first answer" {
		t.Errorf("unexpected ai entries: %+v", ais)
	}
}

func TestHistorySearch(t *testing.T) {
	store := newTestStore(t)
	h := NewHistory(store)

	for _, msg := range []string{"deploy the service", "check the logs", "deploy again"} {
		if err := h.Append(msg); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := h.Search("deploy")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits for 'deploy', got %d", len(hits))
	}
}

func TestHistoryClear(t *testing.T) {
	store := newTestStore(t)
	h := NewHistory(store)
	other := NewHistory(store)

	if err := h.Append("mine"); err != nil {
		t.Fatal(err)
	}
	if err := other.Append("theirs"); err != nil {
		t.Fatal(err)
	}

	if err := h.Clear(); err != nil {
		t.Fatal(err)
	}

	mine, err := h.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 0 {
		t.Errorf("expected cleared session to be empty, got %d entries", len(mine))
	}

	theirs, err := other.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(theirs) != 1 {
		t.Error("clearing one session must not touch another")
	}
}

func TestCheckpointsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	cp := NewCheckpoints(store)

	calls, _ := json.Marshal([]ToolCall{{ID: "tc1", Name: "cat", Input: json.RawMessage(`{"path":"a.txt"}`)}})
	results, _ := json.Marshal([]ToolResult{{ToolCallID: "tc1", Content: "contents"}})

	msgs := []Message{
		{Role: "user", Content: "read a.txt"},
		{Role: "assistant", ToolCalls: calls},
		{Role: "tool", ToolResults: results},
		{Role: "assistant", Content: "done"},
	}
	for _, m := range msgs {
		if err := cp.AppendMessage("thread-1", m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := cp.Messages("thread-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	if got[1].Role != "assistant" || len(got[1].ToolCalls) == 0 {
		t.Errorf("tool calls not persisted: %+v", got[1])
	}

	var restored []ToolCall
	if err := json.Unmarshal(got[1].ToolCalls, &restored); err != nil {
		t.Fatalf("tool calls not valid JSON after round trip: %v", err)
	}
	if restored[0].Name != "cat" {
		t.Errorf("expected tool call name cat, got %s", restored[0].Name)
	}
}

func TestCheckpointsLimitAndClear(t *testing.T) {
	store := newTestStore(t)
	cp := NewCheckpoints(store)

	for i := 0; i < 5; i++ {
		if err := cp.AppendMessage("t", Message{Role: "user", Content: "m"}); err != nil {
			t.Fatal(err)
		}
	}

	limited, err := cp.Messages("t", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 3 {
		t.Errorf("expected 3 messages with limit, got %d", len(limited))
	}

	if err := cp.ClearThread("t"); err != nil {
		t.Fatal(err)
	}
	rest, err := cp.Messages("t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("expected thread cleared, got %d messages", len(rest))
	}
}
