package cli

import (
	"path/filepath"
	"testing"

	"github.com/UH3135/cli-master/internal/config"
	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
)

func newTestShell(t *testing.T) *Shell {
	t.Helper()
	logging.Disable()
	t.Cleanup(logging.Enable)

	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DefaultConfig()
	cfg.WorkingDir = t.TempDir()
	return NewShell(cfg, nil, nil, db.NewHistory(store), db.NewCheckpoints(store), nil)
}

func TestCommandSetHasCoreCommands(t *testing.T) {
	cs := newCommandSet()
	for _, name := range []string{"help", "history", "clear", "research", "exit"} {
		if _, ok := cs.commands[name]; !ok {
			t.Errorf("missing command /%s", name)
		}
	}
}

func TestCommandNamesSorted(t *testing.T) {
	cs := newCommandSet()
	names := cs.names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	s := newTestShell(t)
	if s.commands.handle(s, "/bogus") {
		t.Error("unknown command should report false")
	}
}

func TestHandleDispatchesWithArgs(t *testing.T) {
	s := newTestShell(t)
	called := ""
	s.commands.register("probe", "test probe", func(sh *Shell, args string) error {
		called = args
		return nil
	})

	if !s.commands.handle(s, "/probe some topic") {
		t.Fatal("registered command should be handled")
	}
	if called != "some topic" {
		t.Errorf("args not passed, got %q", called)
	}
}

func TestExitStopsShell(t *testing.T) {
	s := newTestShell(t)
	s.running = true

	s.commands.handle(s, "/exit")
	if s.running {
		t.Error("/exit should stop the shell")
	}
}

func TestClearWipesHistoryAndThread(t *testing.T) {
	s := newTestShell(t)

	if err := s.history.Append("hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.checkpoints.AppendMessage(s.threadID, db.Message{Role: "user", Content: "hello"}); err != nil {
		t.Fatal(err)
	}

	if !s.commands.handle(s, "/clear") {
		t.Fatal("/clear should be handled")
	}

	entries, err := s.history.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Error("history should be empty after /clear")
	}
	msgs, err := s.checkpoints.Messages(s.threadID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Error("thread should be empty after /clear")
	}
}

func TestResearchRequiresTopic(t *testing.T) {
	s := newTestShell(t)
	if err := s.cmdResearch(""); err == nil {
		t.Error("research without a topic should fail")
	}
}

func TestRootCmdFlags(t *testing.T) {
	cmd := RootCmd()
	if cmd.Use != "cli-master [prompt]" {
		t.Errorf("unexpected use line: %s", cmd.Use)
	}
	if cmd.Flags().Lookup("model") == nil {
		t.Error("missing --model flag")
	}
	if cmd.Flags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}
