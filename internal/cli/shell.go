// Package cli implements the terminal interface: the cobra commands,
// the interactive shell, and the slash commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/UH3135/cli-master/internal/ai"
	"github.com/UH3135/cli-master/internal/config"
	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/researcher"
	"github.com/UH3135/cli-master/internal/runner"
	"github.com/UH3135/cli-master/internal/safepath"
)

// Shell is one interactive session.
type Shell struct {
	cfg         *config.Config
	provider    ai.Provider
	runner      *runner.Runner
	history     *db.History
	checkpoints *db.Checkpoints
	validator   *safepath.Validator
	commands    *commandSet

	threadID string
	reader   *bufio.Reader
	running  bool
}

// NewShell wires a shell over an already-initialized stack.
func NewShell(cfg *config.Config, provider ai.Provider, r *runner.Runner, history *db.History, checkpoints *db.Checkpoints, validator *safepath.Validator) *Shell {
	return &Shell{
		cfg:         cfg,
		provider:    provider,
		runner:      r,
		history:     history,
		checkpoints: checkpoints,
		validator:   validator,
		commands:    newCommandSet(),
		threadID:    "chat-" + uuid.NewString(),
		reader:      bufio.NewReader(os.Stdin),
		running:     true,
	}
}

// Run is the interactive read-eval loop.
func (s *Shell) Run(ctx context.Context) {
	color.New(color.Bold).Println("CLI Master")
	fmt.Printf("model: %s. Type a message, /help for commands, /exit to quit.\n\n", s.cfg.Model)

	for s.running {
		color.New(color.FgCyan).Print("> ")

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				color.Red("read error: %v", err)
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			s.commands.handle(s, line)
			continue
		}

		s.runTurn(ctx, line)
	}
}

// RunOnce handles a single non-interactive prompt.
func (s *Shell) RunOnce(ctx context.Context, prompt string) error {
	return s.runTurn(ctx, prompt)
}

func (s *Shell) runTurn(ctx context.Context, input string) error {
	if err := s.history.Append(input); err != nil {
		color.Red("failed to record history: %v", err)
	}

	events, err := s.runner.Run(ctx, &runner.RunRequest{
		ThreadID: s.threadID,
		Input:    input,
	})
	if err != nil {
		color.Red("error: %v", err)
		return err
	}

	var response strings.Builder
	green := color.New(color.FgGreen)
	for event := range events {
		switch event.Type {
		case ai.EventTypeText:
			response.WriteString(event.Text)
			green.Print(event.Text)

		case ai.EventTypeToolCall:
			color.Yellow("\n[tool: %s]", event.ToolCall.Name)

		case ai.EventTypeToolResult:
			preview := event.Text
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			color.New(color.Faint).Printf("%s\n", preview)

		case ai.EventTypeError:
			color.Red("\nerror: %v", event.Error)
			return event.Error
		}
	}
	fmt.Println()

	if response.Len() > 0 {
		if err := s.history.AppendAI(response.String()); err != nil {
			color.Red("failed to record history: %v", err)
		}
	}
	return nil
}

// cmdResearch runs the full research flow: clarify, plan, execute,
// report, save.
func (s *Shell) cmdResearch(topic string) error {
	if topic == "" {
		return fmt.Errorf("usage: /research <topic>")
	}

	ctx := context.Background()
	agent := researcher.NewAgent(researcher.NewSession(topic), s.provider, s.runner, s.validator, s.cfg.Model)

	questions, err := agent.GenerateQuestions(ctx)
	if err != nil {
		return err
	}

	var answers []string
	for _, q := range questions {
		color.Cyan("? %s", q)
		color.New(color.FgCyan).Print("> ")
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return err
		}
		answers = append(answers, strings.TrimSpace(line))
	}
	agent.SetAnswers(answers)

	plan, err := agent.GeneratePlan(ctx)
	if err != nil {
		return err
	}
	color.New(color.Bold).Println("Plan")
	for i, step := range plan {
		fmt.Printf("  %d. %s\n", i+1, step)
	}

	for i := range plan {
		color.Yellow("[%d/%d] %s", i+1, len(plan), plan[i])
		if _, err := agent.ExecuteStep(ctx, i); err != nil {
			color.Red("step failed: %v", err)
		}
	}

	report, err := agent.GenerateReport(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(report)

	path, err := agent.SaveReport(s.cfg.ReportsDir())
	if err != nil {
		return err
	}
	color.Green("report saved: %s", path)
	return nil
}
