package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
)

const defaultMaxTokens = 8192

// AnthropicProvider implements the Anthropic Claude API using the official SDK
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() string {
	return "anthropic"
}

// Stream sends a request and returns streaming events
func (p *AnthropicProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	messages, err := p.buildMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to build messages: %w", err)
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(defaultMaxTokens),
		Messages:  messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			var schema map[string]interface{}
			if err := json.Unmarshal([]byte(tool.InputSchema), &schema); err != nil {
				logging.Warnf("skipping tool %s: bad schema: %v", tool.Name, err)
				continue
			}

			toolParam := anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema["properties"],
				},
			}
			if required, ok := schema["required"].([]interface{}); ok {
				reqStrings := make([]string, len(required))
				for i, r := range required {
					reqStrings[i] = r.(string)
				}
				toolParam.InputSchema.Required = reqStrings
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools
	}

	logging.Debugf("[anthropic] request: model=%s messages=%d tools=%d", model, len(messages), len(req.Tools))

	stream := p.client.Messages.NewStreaming(ctx, params)

	events := make(chan StreamEvent, 100)
	go p.handleStream(stream, events)
	return events, nil
}

// buildMessages converts stored messages to Anthropic format
func (p *AnthropicProvider) buildMessages(msgs []db.Message) ([]anthropic.MessageParam, error) {
	// Collect tool_call ids with responses so orphans on either side
	// can be filtered out; the API rejects unmatched blocks.
	respondedToolIDs := make(map[string]bool)
	allToolCallIDs := make(map[string]bool)
	for _, msg := range msgs {
		if msg.Role == "assistant" && len(msg.ToolCalls) > 0 {
			var toolCalls []db.ToolCall
			if err := json.Unmarshal(msg.ToolCalls, &toolCalls); err == nil {
				for _, tc := range toolCalls {
					allToolCallIDs[tc.ID] = true
				}
			}
		}
		if msg.Role == "tool" && len(msg.ToolResults) > 0 {
			var results []db.ToolResult
			if err := json.Unmarshal(msg.ToolResults, &results); err == nil {
				for _, r := range results {
					respondedToolIDs[r.ToolCallID] = true
				}
			}
		}
	}

	var result []anthropic.MessageParam

	for _, msg := range msgs {
		switch msg.Role {
		case "user":
			if msg.Content == "" {
				continue
			}
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))

		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			if len(msg.ToolCalls) > 0 {
				var toolCalls []db.ToolCall
				if err := json.Unmarshal(msg.ToolCalls, &toolCalls); err == nil {
					for _, tc := range toolCalls {
						if !respondedToolIDs[tc.ID] {
							continue
						}
						var input map[string]interface{}
						if err := json.Unmarshal(tc.Input, &input); err != nil {
							input = map[string]interface{}{}
						}
						blocks = append(blocks, anthropic.ContentBlockParamUnion{
							OfToolUse: &anthropic.ToolUseBlockParam{
								ID:    tc.ID,
								Name:  tc.Name,
								Input: input,
							},
						})
					}
				}
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			}

		case "tool":
			if len(msg.ToolResults) > 0 {
				var results []db.ToolResult
				if err := json.Unmarshal(msg.ToolResults, &results); err == nil {
					var blocks []anthropic.ContentBlockParamUnion
					for _, r := range results {
						if !allToolCallIDs[r.ToolCallID] || !respondedToolIDs[r.ToolCallID] {
							continue
						}
						blocks = append(blocks, anthropic.NewToolResultBlock(
							r.ToolCallID,
							r.Content,
							r.IsError,
						))
					}
					if len(blocks) > 0 {
						result = append(result, anthropic.NewUserMessage(blocks...))
					}
				}
			}

		case "system":
			// Handled via params.System
			continue
		}
	}

	return result, nil
}

// handleStream processes the streaming response
func (p *AnthropicProvider) handleStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], events chan<- StreamEvent) {
	defer close(events)

	var currentToolID string
	var currentToolName string
	var inputBuffer string

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "content_block_start":
			cb := event.AsContentBlockStart()
			if toolUse, ok := cb.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				currentToolID = toolUse.ID
				currentToolName = toolUse.Name
				inputBuffer = ""
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta()
			switch d := delta.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				events <- StreamEvent{Type: EventTypeText, Text: d.Text}
			case anthropic.InputJSONDelta:
				inputBuffer += d.PartialJSON
			}

		case "content_block_stop":
			if currentToolID != "" {
				events <- StreamEvent{
					Type: EventTypeToolCall,
					ToolCall: &db.ToolCall{
						ID:    currentToolID,
						Name:  currentToolName,
						Input: json.RawMessage(inputBuffer),
					},
				}
				currentToolID = ""
				currentToolName = ""
				inputBuffer = ""
			}

		case "message_stop":
			events <- StreamEvent{Type: EventTypeDone}
			return

		case "error":
			events <- StreamEvent{
				Type:  EventTypeError,
				Error: fmt.Errorf("stream error: %s", event.RawJSON()),
			}
			return
		}
	}

	if err := stream.Err(); err != nil {
		logging.Errorf("[anthropic] stream error: %v", err)
		events <- StreamEvent{Type: EventTypeError, Error: err}
		return
	}

	events <- StreamEvent{Type: EventTypeDone}
}
