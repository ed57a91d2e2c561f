package ai

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/UH3135/cli-master/internal/db"
)

func TestProviderIDForModel(t *testing.T) {
	cases := []struct {
		model string
		want  string
		ok    bool
	}{
		{"gemini-2.5-flash", "gemini", true},
		{"gemini-2.0-pro", "gemini", true},
		{"claude-sonnet-4-20250514", "anthropic", true},
		{"gpt-4o", "openai", true},
		{"o3-mini", "openai", true},
		{"llama-3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ProviderIDForModel(tc.model)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ProviderIDForModel(%q) = %q, %v; want %q", tc.model, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ProviderIDForModel(%q) should fail", tc.model)
		}
	}
}

func TestForModelRequiresAPIKey(t *testing.T) {
	_, err := ForModel("gemini-2.5-flash", func(string) string { return "" })
	if err == nil {
		t.Fatal("expected error when no API key is configured")
	}
}

func TestForModelPicksProviderByPrefix(t *testing.T) {
	keyFor := func(string) string { return "test-key" }

	p, err := ForModel("claude-sonnet-4-20250514", keyFor)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID() != "anthropic" {
		t.Errorf("expected anthropic provider, got %s", p.ID())
	}

	p, err = ForModel("gpt-4o", keyFor)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID() != "openai" {
		t.Errorf("expected openai provider, got %s", p.ID())
	}
}

func TestFakeProviderEchoesLastUserMessage(t *testing.T) {
	p := NewFakeProvider()

	events, err := p.Stream(context.Background(), &ChatRequest{
		Messages: []db.Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var text string
	var done bool
	for ev := range events {
		switch ev.Type {
		case EventTypeText:
			text += ev.Text
		case EventTypeDone:
			done = true
		case EventTypeError:
			t.Fatalf("unexpected error event: %v", ev.Error)
		}
	}
	if text != "fake: second" {
		t.Errorf("expected 'fake: second', got %q", text)
	}
	if !done {
		t.Error("stream should end with a done event")
	}
}

func TestSchemaFromJSON(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "file path"},
			"depth": {"type": "integer"},
			"tags": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["path"]
	}`)

	s, err := schemaFromJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(s.Properties))
	}
	if s.Properties["path"].Description != "file path" {
		t.Error("property description not mapped")
	}
	if s.Properties["tags"].Items == nil {
		t.Error("array items not mapped")
	}
	if len(s.Required) != 1 || s.Required[0] != "path" {
		t.Errorf("required not mapped: %v", s.Required)
	}
}
