package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
)

// GeminiProvider implements the Gemini API using the official SDK
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, model: model}
}

// ID returns the provider identifier
func (p *GeminiProvider) ID() string {
	return "gemini"
}

// Stream sends a request and returns streaming events
func (p *GeminiProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	modelName := p.model
	if req.Model != "" {
		modelName = req.Model
	}

	model := client.GenerativeModel(modelName)
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			schema, err := schemaFromJSON(tool.InputSchema)
			if err != nil {
				logging.Warnf("skipping tool %s: bad schema: %v", tool.Name, err)
				continue
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schema,
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	history, last, err := p.buildHistory(req.Messages)
	if err != nil {
		client.Close()
		return nil, err
	}
	if len(last) == 0 {
		client.Close()
		return nil, fmt.Errorf("no message to send")
	}

	cs := model.StartChat()
	cs.History = history

	logging.Debugf("[gemini] request: model=%s history=%d tools=%d", modelName, len(history), len(req.Tools))

	iter := cs.SendMessageStream(ctx, last...)

	events := make(chan StreamEvent, 100)
	go func() {
		defer close(events)
		defer client.Close()
		p.handleStream(iter, events)
	}()
	return events, nil
}

// buildHistory converts stored messages to Gemini chat history. The
// final user or tool message is returned separately as the parts to
// send; everything before it becomes history.
func (p *GeminiProvider) buildHistory(msgs []db.Message) ([]*genai.Content, []genai.Part, error) {
	// FunctionResponse needs the function name; Gemini tool calls have
	// no ids of their own, so map the ids we minted back to names.
	callNames := make(map[string]string)
	for _, msg := range msgs {
		if msg.Role == "assistant" && len(msg.ToolCalls) > 0 {
			var toolCalls []db.ToolCall
			if err := json.Unmarshal(msg.ToolCalls, &toolCalls); err == nil {
				for _, tc := range toolCalls {
					callNames[tc.ID] = tc.Name
				}
			}
		}
	}

	var contents []*genai.Content
	for _, msg := range msgs {
		switch msg.Role {
		case "user":
			if msg.Content == "" {
				continue
			}
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})

		case "assistant":
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			if len(msg.ToolCalls) > 0 {
				var toolCalls []db.ToolCall
				if err := json.Unmarshal(msg.ToolCalls, &toolCalls); err == nil {
					for _, tc := range toolCalls {
						var args map[string]any
						if err := json.Unmarshal(tc.Input, &args); err != nil {
							args = map[string]any{}
						}
						parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: args})
					}
				}
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}

		case "tool":
			if len(msg.ToolResults) > 0 {
				var results []db.ToolResult
				if err := json.Unmarshal(msg.ToolResults, &results); err == nil {
					var parts []genai.Part
					for _, r := range results {
						name := callNames[r.ToolCallID]
						if name == "" {
							continue
						}
						parts = append(parts, genai.FunctionResponse{
							Name:     name,
							Response: map[string]any{"content": r.Content, "is_error": r.IsError},
						})
					}
					if len(parts) > 0 {
						contents = append(contents, &genai.Content{Role: "function", Parts: parts})
					}
				}
			}

		case "system":
			// Handled via SystemInstruction
			continue
		}
	}

	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("no messages to send")
	}
	last := contents[len(contents)-1]
	return contents[:len(contents)-1], last.Parts, nil
}

// handleStream processes the streaming response
func (p *GeminiProvider) handleStream(iter *genai.GenerateContentResponseIterator, events chan<- StreamEvent) {
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logging.Errorf("[gemini] stream error: %v", err)
			events <- StreamEvent{Type: EventTypeError, Error: err}
			return
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					if v != "" {
						events <- StreamEvent{Type: EventTypeText, Text: string(v)}
					}
				case genai.FunctionCall:
					input, err := json.Marshal(v.Args)
					if err != nil {
						input = []byte("{}")
					}
					events <- StreamEvent{
						Type: EventTypeToolCall,
						ToolCall: &db.ToolCall{
							ID:    "call_" + uuid.NewString(),
							Name:  v.Name,
							Input: input,
						},
					}
				}
			}
		}
	}

	events <- StreamEvent{Type: EventTypeDone}
}

// schemaFromJSON converts a JSON schema document to the Gemini schema
// type. Only the subset our tools use is mapped.
func schemaFromJSON(raw json.RawMessage) (*genai.Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return schemaFromMap(doc), nil
}

func schemaFromMap(doc map[string]any) *genai.Schema {
	s := &genai.Schema{Type: genaiType(doc["type"])}
	if desc, ok := doc["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, sub := range props {
			if subDoc, ok := sub.(map[string]any); ok {
				s.Properties[name] = schemaFromMap(subDoc)
			}
		}
	}
	if items, ok := doc["items"].(map[string]any); ok {
		s.Items = schemaFromMap(items)
	}
	if required, ok := doc["required"].([]any); ok {
		for _, r := range required {
			if str, ok := r.(string); ok {
				s.Required = append(s.Required, str)
			}
		}
	}
	return s
}

func genaiType(v any) genai.Type {
	t, _ := v.(string)
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
