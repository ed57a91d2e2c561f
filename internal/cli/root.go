package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/UH3135/cli-master/internal/ai"
	"github.com/UH3135/cli-master/internal/config"
	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
	"github.com/UH3135/cli-master/internal/runner"
	"github.com/UH3135/cli-master/internal/safepath"
	"github.com/UH3135/cli-master/internal/tools"
)

// Version is set at build time.
var Version = "dev"

// RootCmd builds the root command.
func RootCmd() *cobra.Command {
	var model string
	var configPath string

	cmd := &cobra.Command{
		Use:   "cli-master [prompt]",
		Short: "Terminal AI assistant with guarded filesystem access",
		Long: `cli-master is a terminal AI assistant. It can read, search, and edit
files through tools, with every path checked against an access policy
before anything touches the filesystem.

With no arguments it starts an interactive session. With a prompt it
answers once and exits.

Examples:
  cli-master
  cli-master "what does internal/runner do?"
  cli-master --model claude-sonnet-4-20250514`,
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Model = model
			}
			return run(cfg, args)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model to use (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(cfg *config.Config, args []string) error {
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to initialize data directory: %w", err)
	}

	// Keep the terminal clean; runtime logs go to a file.
	if _, err := logging.SetupFile(cfg.LogDir()); err != nil {
		logging.Disable()
	}

	store, err := db.NewSQLite(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	validator := safepath.Default(cfg.Policy())

	registry, _, err := tools.DefaultRegistry(validator, stdinConfirmer)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	checkpoints := db.NewCheckpoints(store)
	history := db.NewHistory(store)
	r := runner.New(cfg, checkpoints, provider, registry)
	shell := NewShell(cfg, provider, r, history, checkpoints, validator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		color.Yellow("\ninterrupted")
		cancel()
	}()

	if len(args) > 0 {
		return shell.RunOnce(ctx, strings.Join(args, " "))
	}
	shell.Run(ctx)
	return nil
}

func buildProvider(cfg *config.Config) (ai.Provider, error) {
	if cfg.FakeLLM {
		return ai.NewFakeProvider(), nil
	}
	provider, err := ai.ForModel(cfg.Model, config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, ANTHROPIC_API_KEY, or OPENAI_API_KEY)", err)
	}
	return provider, nil
}

// stdinConfirmer asks on the terminal before destructive actions.
func stdinConfirmer(prompt string) bool {
	color.Yellow("%s [y/N]", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
