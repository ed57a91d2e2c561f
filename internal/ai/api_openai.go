package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
)

// OpenAIProvider implements the OpenAI API using the official SDK
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// ID returns the provider identifier
func (p *OpenAIProvider) ID() string {
	return "openai"
}

// Stream sends a request and returns streaming events
func (p *OpenAIProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	messages, err := p.buildMessages(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build messages: %w", err)
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			var schema map[string]interface{}
			if err := json.Unmarshal([]byte(tool.InputSchema), &schema); err != nil {
				logging.Warnf("skipping tool %s: bad schema: %v", tool.Name, err)
				continue
			}
			tools = append(tools, openai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  shared.FunctionParameters(schema),
				},
			})
		}
		params.Tools = tools
	}

	logging.Debugf("[openai] request: model=%s messages=%d tools=%d", model, len(messages), len(req.Tools))

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	events := make(chan StreamEvent, 100)
	go p.handleStream(stream, events)
	return events, nil
}

// buildMessages converts stored messages to OpenAI format
func (p *OpenAIProvider) buildMessages(req *ChatRequest) ([]openai.ChatCompletionMessageParamUnion, error) {
	respondedToolIDs := make(map[string]bool)
	for _, msg := range req.Messages {
		if msg.Role == "tool" && len(msg.ToolResults) > 0 {
			var results []db.ToolResult
			if err := json.Unmarshal(msg.ToolResults, &results); err == nil {
				for _, r := range results {
					respondedToolIDs[r.ToolCallID] = true
				}
			}
		}
	}

	var result []openai.ChatCompletionMessageParamUnion

	if req.System != "" {
		result = append(result, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "user":
			result = append(result, openai.UserMessage(msg.Content))

		case "assistant":
			var toolCalls []openai.ChatCompletionMessageToolCallParam
			if len(msg.ToolCalls) > 0 {
				var tcs []db.ToolCall
				if err := json.Unmarshal(msg.ToolCalls, &tcs); err == nil {
					for _, tc := range tcs {
						if !respondedToolIDs[tc.ID] {
							continue
						}
						toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
							ID:   tc.ID,
							Type: "function",
							Function: openai.ChatCompletionMessageToolCallFunctionParam{
								Name:      tc.Name,
								Arguments: string(tc.Input),
							},
						})
					}
				}
			}

			if msg.Content != "" || len(toolCalls) > 0 {
				assistantMsg := openai.ChatCompletionAssistantMessageParam{
					Role: "assistant",
				}
				if msg.Content != "" {
					assistantMsg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					}
				}
				if len(toolCalls) > 0 {
					assistantMsg.ToolCalls = toolCalls
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &assistantMsg,
				})
			}

		case "tool":
			if len(msg.ToolResults) > 0 {
				var results []db.ToolResult
				if err := json.Unmarshal(msg.ToolResults, &results); err == nil {
					for _, r := range results {
						if respondedToolIDs[r.ToolCallID] {
							result = append(result, openai.ToolMessage(r.Content, r.ToolCallID))
						}
					}
				}
			}

		case "system":
			result = append(result, openai.SystemMessage(msg.Content))
		}
	}

	return result, nil
}

// handleStream processes the streaming response
func (p *OpenAIProvider) handleStream(stream *ssestream.Stream[openai.ChatCompletionChunk], events chan<- StreamEvent) {
	defer close(events)

	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tool, ok := acc.JustFinishedToolCall(); ok {
			events <- StreamEvent{
				Type: EventTypeToolCall,
				ToolCall: &db.ToolCall{
					ID:    tool.ID,
					Name:  tool.Name,
					Input: json.RawMessage(tool.Arguments),
				},
			}
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			events <- StreamEvent{Type: EventTypeText, Text: chunk.Choices[0].Delta.Content}
		}
	}

	if err := stream.Err(); err != nil {
		logging.Errorf("[openai] stream error: %v", err)
		events <- StreamEvent{Type: EventTypeError, Error: err}
		return
	}

	events <- StreamEvent{Type: EventTypeDone}
}
