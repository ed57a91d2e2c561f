// Package runner drives the agent loop: send the conversation to the
// model, execute the tools it asks for, feed the results back, repeat
// until the model answers in plain text.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/UH3135/cli-master/internal/ai"
	"github.com/UH3135/cli-master/internal/config"
	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
	"github.com/UH3135/cli-master/internal/tools"
)

// DefaultSystemPrompt is used when the caller does not provide one.
const DefaultSystemPrompt = `You are the CLI Master assistant, working inside a user's terminal.

## Working style (todo driven)
- For a complex request, break it into small tasks with the todo tool
  before answering. Work through them one at a time, marking each
  in_progress and then completed.
- Summarize current todo progress in your intermediate and final
  responses.
- For simple questions, answer directly without creating todos.

## Tool use
- Use the tools for any filesystem work. Do not guess file contents;
  read them.
- You may call several tools in one turn when that helps.
- If a tool reports that a path is blocked or outside the allowed
  paths, tell the user instead of retrying.

## Responses
- Be accurate and concise.`

// Runner executes agent conversations against one provider.
type Runner struct {
	config      *config.Config
	checkpoints *db.Checkpoints
	provider    ai.Provider
	tools       *tools.Registry
}

// New creates a runner.
func New(cfg *config.Config, checkpoints *db.Checkpoints, provider ai.Provider, toolRegistry *tools.Registry) *Runner {
	return &Runner{
		config:      cfg,
		checkpoints: checkpoints,
		provider:    provider,
		tools:       toolRegistry,
	}
}

// RunRequest describes one user turn.
type RunRequest struct {
	ThreadID string
	Input    string
	System   string // Optional system prompt override
}

// Run appends the user's input to the thread and starts the agent
// loop. Events stream on the returned channel until a done or error
// event closes the turn.
func (r *Runner) Run(ctx context.Context, req *RunRequest) (<-chan ai.StreamEvent, error) {
	if req.ThreadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("input is empty")
	}

	err := r.checkpoints.AppendMessage(req.ThreadID, db.Message{
		Role:    "user",
		Content: req.Input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	system := req.System
	if system == "" {
		system = DefaultSystemPrompt
	}
	if defs := r.tools.List(); len(defs) > 0 {
		names := make([]string, len(defs))
		for i, d := range defs {
			names[i] = d.Name
		}
		system += "\n\n## Available tools\nTool names are case-sensitive. These are your only tools: " + strings.Join(names, ", ")
	}

	resultCh := make(chan ai.StreamEvent, 100)
	go r.runLoop(ctx, req.ThreadID, system, resultCh)
	return resultCh, nil
}

func (r *Runner) runLoop(ctx context.Context, threadID, system string, resultCh chan<- ai.StreamEvent) {
	defer close(resultCh)

	maxIterations := r.config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 15
	}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		logging.Debugf("[runner] iteration %d", iteration)

		messages, err := r.checkpoints.Messages(threadID, 0)
		if err != nil {
			resultCh <- ai.StreamEvent{Type: ai.EventTypeError, Error: err}
			return
		}

		events, err := r.provider.Stream(ctx, &ai.ChatRequest{
			Messages:    messages,
			Tools:       r.tools.List(),
			System:      system,
			Temperature: r.config.Temperature,
			Model:       r.config.Model,
		})
		if err != nil {
			resultCh <- ai.StreamEvent{Type: ai.EventTypeError, Error: err}
			return
		}

		var assistantContent strings.Builder
		var toolCalls []db.ToolCall

		for event := range events {
			switch event.Type {
			case ai.EventTypeText:
				assistantContent.WriteString(event.Text)
				resultCh <- event

			case ai.EventTypeToolCall:
				toolCalls = append(toolCalls, *event.ToolCall)
				resultCh <- event

			case ai.EventTypeError:
				resultCh <- event
				return

			case ai.EventTypeDone:
				// End of this model turn, not of the run.
			}
		}

		if assistantContent.Len() > 0 || len(toolCalls) > 0 {
			var toolCallsJSON json.RawMessage
			if len(toolCalls) > 0 {
				toolCallsJSON, _ = json.Marshal(toolCalls)
			}
			err := r.checkpoints.AppendMessage(threadID, db.Message{
				Role:      "assistant",
				Content:   assistantContent.String(),
				ToolCalls: toolCallsJSON,
			})
			if err != nil {
				logging.Errorf("[runner] failed to save assistant message: %v", err)
			}
		}

		if len(toolCalls) == 0 {
			// Plain text response, the turn is complete.
			resultCh <- ai.StreamEvent{Type: ai.EventTypeDone}
			return
		}

		var toolResults []db.ToolResult
		for i := range toolCalls {
			tc := toolCalls[i]
			result := r.tools.Execute(ctx, &tc)

			resultCh <- ai.StreamEvent{
				Type:     ai.EventTypeToolResult,
				Text:     result.Content,
				ToolCall: &tc,
			}

			toolResults = append(toolResults, db.ToolResult{
				ToolCallID: tc.ID,
				Content:    result.Content,
				IsError:    result.IsError,
			})
		}

		toolResultsJSON, _ := json.Marshal(toolResults)
		err = r.checkpoints.AppendMessage(threadID, db.Message{
			Role:        "tool",
			ToolResults: toolResultsJSON,
		})
		if err != nil {
			logging.Errorf("[runner] failed to save tool results: %v", err)
		}
	}

	resultCh <- ai.StreamEvent{
		Type:  ai.EventTypeError,
		Error: fmt.Errorf("reached maximum iterations (%d)", maxIterations),
	}
}

// Chat runs one turn and returns the collected text response.
func (r *Runner) Chat(ctx context.Context, threadID, prompt string) (string, error) {
	events, err := r.Run(ctx, &RunRequest{ThreadID: threadID, Input: prompt})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for event := range events {
		switch event.Type {
		case ai.EventTypeText:
			b.WriteString(event.Text)
		case ai.EventTypeError:
			return b.String(), event.Error
		}
	}
	return b.String(), nil
}
