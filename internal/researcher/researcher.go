// Package researcher runs multi-step investigations: clarify the
// topic, plan the steps, execute them with the agent's tools, then
// write a report.
package researcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/UH3135/cli-master/internal/ai"
	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
	"github.com/UH3135/cli-master/internal/runner"
	"github.com/UH3135/cli-master/internal/safepath"
)

// Phase of a research session
type Phase string

const (
	PhaseInit       Phase = "init"
	PhaseClarifying Phase = "clarifying"
	PhasePlanning   Phase = "planning"
	PhaseExecuting  Phase = "executing"
	PhaseReporting  Phase = "reporting"
	PhaseCompleted  Phase = "completed"
)

const (
	maxQuestions = 2
	maxPlanSteps = 5
)

const clarifyingPrompt = `You are a research assistant helping with a deep investigation.

The user has given a topic to investigate. Ask only one or two key
questions that sharpen the scope or direction of the investigation.

Rules:
- Produce at most two questions
- One line per question, numbered (1. 2.)
- Output only the questions, no commentary`

const planningPrompt = `You are a research assistant planning a codebase investigation.

Build an investigation plan from the topic and the extra answers.

Rules:
- Produce three to five concrete steps
- Each step must be doable with filesystem tools (grep, cat, tree)
- One line per step, numbered (1. 2. 3. ...)
- Output only the plan, no commentary`

const executePrompt = `Carry out the following investigation step:

%s

Current step: %s

Use the filesystem tools to investigate and summarize what you find in markdown.`

const reportPrompt = `You are a research assistant compiling findings into a report.

Write a markdown report with this structure:
1. Summary - the topic and key findings
2. Methodology - how the investigation was done
3. Findings - the detailed results
4. Conclusion - overall analysis and suggestions

Wrap code examples in code blocks. Be clear and readable.`

// Session holds the state of one research run
type Session struct {
	Topic     string
	Phase     Phase
	Questions []string
	Answers   []string
	Plan      []string
	Findings  []string
	Report    string
	CreatedAt time.Time
}

// NewSession starts a research session for a topic
func NewSession(topic string) *Session {
	return &Session{
		Topic:     topic,
		Phase:     PhaseInit,
		CreatedAt: time.Now(),
	}
}

// Context renders the session state for prompts
func (s *Session) Context() string {
	parts := []string{"Topic: " + s.Topic}

	if len(s.Questions) > 0 && len(s.Answers) > 0 {
		parts = append(parts, "\nAdditional information:")
		for i, q := range s.Questions {
			if i >= len(s.Answers) {
				break
			}
			parts = append(parts, "  Q: "+q, "  A: "+s.Answers[i])
		}
	}
	if len(s.Plan) > 0 {
		parts = append(parts, "\nInvestigation plan:")
		for i, step := range s.Plan {
			parts = append(parts, fmt.Sprintf("  %d. %s", i+1, step))
		}
	}
	return strings.Join(parts, "\n")
}

// Agent drives a research session. Plain completions (questions,
// plan, report) go straight to the provider; investigation steps run
// through the agent loop so they can use tools.
type Agent struct {
	session   *Session
	provider  ai.Provider
	runner    *runner.Runner
	validator *safepath.Validator
	model     string
}

// NewAgent creates a research agent for a session
func NewAgent(session *Session, provider ai.Provider, r *runner.Runner, validator *safepath.Validator, model string) *Agent {
	return &Agent{
		session:   session,
		provider:  provider,
		runner:    r,
		validator: validator,
		model:     model,
	}
}

// Session returns the session being driven
func (a *Agent) Session() *Session {
	return a.session
}

// GenerateQuestions produces the clarifying questions for the topic.
func (a *Agent) GenerateQuestions(ctx context.Context) ([]string, error) {
	content, err := a.complete(ctx, clarifyingPrompt, "Research topic: "+a.session.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	questions := parseNumbered(content, maxQuestions)
	if len(questions) == 0 && content != "" {
		questions = []string{content}
	}
	a.session.Questions = questions
	a.session.Phase = PhaseClarifying
	return questions, nil
}

// SetAnswers records the user's answers to the clarifying questions.
func (a *Agent) SetAnswers(answers []string) {
	a.session.Answers = answers
}

// GeneratePlan produces the investigation plan.
func (a *Agent) GeneratePlan(ctx context.Context) ([]string, error) {
	content, err := a.complete(ctx, planningPrompt, a.session.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	plan := parseNumbered(content, maxPlanSteps)
	if len(plan) == 0 && content != "" {
		plan = []string{content}
	}
	a.session.Plan = plan
	a.session.Phase = PhasePlanning
	return plan, nil
}

// ExecuteStep runs one plan step through the agent loop and records
// the finding.
func (a *Agent) ExecuteStep(ctx context.Context, stepIndex int) (string, error) {
	if stepIndex < 0 || stepIndex >= len(a.session.Plan) {
		return "", fmt.Errorf("no plan step %d", stepIndex)
	}

	step := a.session.Plan[stepIndex]
	a.session.Phase = PhaseExecuting

	prompt := fmt.Sprintf(executePrompt, a.session.Context(), step)
	threadID := "research-" + uuid.NewString()

	result, err := a.runner.Chat(ctx, threadID, prompt)
	if err != nil {
		return "", fmt.Errorf("step %d failed: %w", stepIndex+1, err)
	}

	a.session.Findings = append(a.session.Findings, fmt.Sprintf("### %s\n\n%s", step, result))
	return result, nil
}

// GenerateReport compiles the findings into the final report.
func (a *Agent) GenerateReport(ctx context.Context) (string, error) {
	a.session.Phase = PhaseReporting

	user := fmt.Sprintf("%s\n\n## Findings\n%s\n\nWrite the full report from the material above.",
		a.session.Context(), strings.Join(a.session.Findings, "\n\n"))

	report, err := a.complete(ctx, reportPrompt, user)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	a.session.Report = report
	a.session.Phase = PhaseCompleted
	return report, nil
}

// SaveReport writes the report under reportsDir. The target path goes
// through the access policy like any other write.
func (a *Agent) SaveReport(reportsDir string) (string, error) {
	if a.session.Report == "" {
		return "", fmt.Errorf("no report to save")
	}

	filename := fmt.Sprintf("research_%s_%s.md",
		a.session.CreatedAt.Format("20060102_150405"),
		sanitizeTopic(a.session.Topic))
	path := filepath.Join(reportsDir, filename)

	res, err := a.validator.Validate(path, safepath.OpWrite)
	if err != nil {
		return "", fmt.Errorf("cannot resolve report path: %w", err)
	}
	if !res.Allowed {
		return "", fmt.Errorf("report path rejected: %s", res.Reason)
	}

	if err := os.MkdirAll(filepath.Dir(res.NormalizedPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	if err := os.WriteFile(res.NormalizedPath, []byte(a.session.Report), 0o644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	logging.Infof("report saved: %s", res.NormalizedPath)
	return res.NormalizedPath, nil
}

// complete sends one system+user exchange to the provider and
// collects the text.
func (a *Agent) complete(ctx context.Context, system, user string) (string, error) {
	events, err := a.provider.Stream(ctx, &ai.ChatRequest{
		Messages: []db.Message{{Role: "user", Content: user}},
		System:   system,
		Model:    a.model,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for event := range events {
		switch event.Type {
		case ai.EventTypeText:
			b.WriteString(event.Text)
		case ai.EventTypeError:
			return "", event.Error
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// parseNumbered extracts lines that start with a number or bullet.
func parseNumbered(content string, limit int) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := rune(line[0])
		if !unicode.IsDigit(first) && !strings.HasPrefix(line, "-") {
			continue
		}
		cleaned := strings.TrimLeft(line, "0123456789.-) ")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned != "" {
			items = append(items, cleaned)
		}
		if len(items) >= limit {
			break
		}
	}
	return items
}

// sanitizeTopic turns a topic into a safe filename fragment.
func sanitizeTopic(topic string) string {
	if len(topic) > 30 {
		topic = topic[:30]
	}
	var b strings.Builder
	for _, r := range topic {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
