package researcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UH3135/cli-master/internal/ai"
	"github.com/UH3135/cli-master/internal/safepath"
)

// cannedProvider returns a fixed text response for every request.
type cannedProvider struct {
	response string
	requests []*ai.ChatRequest
}

func (p *cannedProvider) ID() string { return "canned" }

func (p *cannedProvider) Stream(ctx context.Context, req *ai.ChatRequest) (<-chan ai.StreamEvent, error) {
	p.requests = append(p.requests, req)
	events := make(chan ai.StreamEvent, 2)
	events <- ai.StreamEvent{Type: ai.EventTypeText, Text: p.response}
	events <- ai.StreamEvent{Type: ai.EventTypeDone}
	close(events)
	return events, nil
}

func TestGenerateQuestionsParsesNumberedLines(t *testing.T) {
	provider := &cannedProvider{response: "1. Focus on one directory?\n2. Code or architecture?\n3. A third question"}
	a := NewAgent(NewSession("auth flow"), provider, nil, nil, "test-model")

	questions, err := a.GenerateQuestions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected questions capped at 2, got %d", len(questions))
	}
	if questions[0] != "Focus on one directory?" {
		t.Errorf("numbering not stripped: %q", questions[0])
	}
	if a.Session().Phase != PhaseClarifying {
		t.Errorf("expected clarifying phase, got %s", a.Session().Phase)
	}
}

func TestGeneratePlanUsesAnswers(t *testing.T) {
	provider := &cannedProvider{response: "1. Map the tree\n2. Grep for handlers\n3. Read core files"}
	a := NewAgent(NewSession("auth flow"), provider, nil, nil, "test-model")
	a.Session().Questions = []string{"Scope?"}
	a.SetAnswers([]string{"just internal/"})

	plan, err := a.GeneratePlan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(plan))
	}
	if a.Session().Phase != PhasePlanning {
		t.Errorf("expected planning phase, got %s", a.Session().Phase)
	}

	sent := provider.requests[0].Messages[0].Content
	if !strings.Contains(sent, "just internal/") {
		t.Error("plan prompt should include the user's answers")
	}
}

func TestExecuteStepRejectsBadIndex(t *testing.T) {
	a := NewAgent(NewSession("t"), &cannedProvider{}, nil, nil, "m")
	a.Session().Plan = []string{"only step"}

	if _, err := a.ExecuteStep(context.Background(), 5); err == nil {
		t.Error("out of range step should fail")
	}
	if _, err := a.ExecuteStep(context.Background(), -1); err == nil {
		t.Error("negative step should fail")
	}
}

func TestGenerateReportCompletesSession(t *testing.T) {
	provider := &cannedProvider{response: "# Report\n\nall good"}
	a := NewAgent(NewSession("topic"), provider, nil, nil, "m")
	a.Session().Findings = []string{"### step\n\nfound things"}

	report, err := a.GenerateReport(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(report, "# Report") {
		t.Errorf("unexpected report: %q", report)
	}
	if a.Session().Phase != PhaseCompleted {
		t.Errorf("expected completed phase, got %s", a.Session().Phase)
	}

	sent := provider.requests[0].Messages[0].Content
	if !strings.Contains(sent, "found things") {
		t.Error("report prompt should include the findings")
	}
}

func TestSaveReportGoesThroughPolicy(t *testing.T) {
	work := t.TempDir()
	v := safepath.NewValidator(safepath.DefaultPolicy(work))

	a := NewAgent(NewSession("My Topic: details"), &cannedProvider{}, nil, v, "m")
	a.Session().Report = "# Done"

	path, err := a.SaveReport(filepath.Join(work, "reports"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "# Done" {
		t.Errorf("report not written: %q, %v", data, err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "research_") || !strings.HasSuffix(base, ".md") {
		t.Errorf("unexpected report filename: %s", base)
	}
	if strings.Contains(base, ":") {
		t.Errorf("filename should be sanitized: %s", base)
	}
}

func TestSaveReportOutsideWorkDirDenied(t *testing.T) {
	work := t.TempDir()
	v := safepath.NewValidator(safepath.DefaultPolicy(work))

	a := NewAgent(NewSession("topic"), &cannedProvider{}, nil, v, "m")
	a.Session().Report = "# Done"

	if _, err := a.SaveReport(filepath.Join(t.TempDir(), "reports")); err == nil {
		t.Error("saving outside the working dir should be denied")
	}
}

func TestSaveReportWithoutReport(t *testing.T) {
	a := NewAgent(NewSession("topic"), &cannedProvider{}, nil, nil, "m")
	if _, err := a.SaveReport(t.TempDir()); err == nil {
		t.Error("saving before generating should fail")
	}
}

func TestSessionContext(t *testing.T) {
	s := NewSession("topic")
	s.Questions = []string{"q1"}
	s.Answers = []string{"a1"}
	s.Plan = []string{"step one", "step two"}

	ctx := s.Context()
	for _, want := range []string{"Topic: topic", "Q: q1", "A: a1", "1. step one", "2. step two"} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
}
