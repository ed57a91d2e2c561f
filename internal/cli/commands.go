package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/UH3135/cli-master/internal/db"
)

// slashCommand is one interactive command.
type slashCommand struct {
	name        string
	description string
	handler     func(s *Shell, args string) error
}

// commandSet holds the slash commands for a shell.
type commandSet struct {
	commands map[string]slashCommand
}

func newCommandSet() *commandSet {
	cs := &commandSet{commands: make(map[string]slashCommand)}
	cs.register("help", "show available commands", (*Shell).cmdHelp)
	cs.register("history", "show this session's conversation", (*Shell).cmdHistory)
	cs.register("clear", "clear this session's history", (*Shell).cmdClear)
	cs.register("research", "run a deep investigation: /research <topic>", (*Shell).cmdResearch)
	cs.register("exit", "quit", (*Shell).cmdExit)
	return cs
}

func (cs *commandSet) register(name, description string, handler func(s *Shell, args string) error) {
	cs.commands[name] = slashCommand{name: name, description: description, handler: handler}
}

// handle dispatches a "/..." line. Returns true when the line was a
// known command.
func (cs *commandSet) handle(s *Shell, line string) bool {
	fields := strings.SplitN(strings.TrimPrefix(line, "/"), " ", 2)
	name := strings.ToLower(strings.TrimSpace(fields[0]))
	args := ""
	if len(fields) > 1 {
		args = strings.TrimSpace(fields[1])
	}

	cmd, ok := cs.commands[name]
	if !ok {
		color.Red("unknown command: %s", name)
		color.New(color.Faint).Println("use /help to list commands")
		return false
	}
	if err := cmd.handler(s, args); err != nil {
		color.Red("error: %v", err)
	}
	return true
}

// names returns the command names sorted.
func (cs *commandSet) names() []string {
	names := make([]string, 0, len(cs.commands))
	for name := range cs.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Shell) cmdHelp(string) error {
	bold := color.New(color.Bold)
	bold.Println("Available commands")
	for _, name := range s.commands.names() {
		cmd := s.commands.commands[name]
		fmt.Printf("  %s  %s\n", color.CyanString("/%-9s", cmd.name), cmd.description)
	}
	return nil
}

func (s *Shell) cmdHistory(string) error {
	entries, err := s.history.All()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		color.Yellow("history is empty")
		return nil
	}

	for i, e := range entries {
		role := color.GreenString("ai  ")
		if e.Role == db.RoleUser {
			role = color.CyanString("user")
		}
		fmt.Printf("%3d %s %s\n", i+1, role, e.Content)
	}
	return nil
}

func (s *Shell) cmdClear(string) error {
	if err := s.history.Clear(); err != nil {
		return err
	}
	if err := s.checkpoints.ClearThread(s.threadID); err != nil {
		return err
	}
	color.Green("history cleared")
	return nil
}

func (s *Shell) cmdExit(string) error {
	s.running = false
	color.Blue("bye")
	return nil
}
