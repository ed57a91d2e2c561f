package ai

import (
	"context"
)

// FakeProvider echoes the last user message without calling any API.
// Used for offline runs and tests.
type FakeProvider struct{}

// NewFakeProvider creates a fake provider
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

// ID returns the provider identifier
func (p *FakeProvider) ID() string {
	return "fake"
}

// Stream returns events that echo the last user message
func (p *FakeProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	var last string
	for _, msg := range req.Messages {
		if msg.Role == "user" && msg.Content != "" {
			last = msg.Content
		}
	}

	events := make(chan StreamEvent, 2)
	go func() {
		defer close(events)
		select {
		case <-ctx.Done():
			events <- StreamEvent{Type: EventTypeError, Error: ctx.Err()}
			return
		default:
		}
		events <- StreamEvent{Type: EventTypeText, Text: "fake: " + last}
		events <- StreamEvent{Type: EventTypeDone}
	}()
	return events, nil
}
