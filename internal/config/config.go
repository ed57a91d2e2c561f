package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/UH3135/cli-master/internal/safepath"
)

// Config holds the application configuration
type Config struct {
	// Model selection. The provider is picked from the model name prefix.
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	// Execution settings
	MaxIterations int `yaml:"max_iterations"` // Safety limit for the agent loop (default: 15)

	// Session settings
	DataDir    string `yaml:"data_dir"`    // Where the database and logs live
	WorkingDir string `yaml:"working_dir"` // Root the agent may write under

	// Path access settings merged into the built-in policy
	Access AccessConfig `yaml:"access"`

	// FakeLLM short-circuits providers for offline runs.
	// Set via CLI_MASTER_FAKE_LLM=1, not the config file.
	FakeLLM bool `yaml:"-"`
}

// AccessConfig holds user extensions to the path access policy
type AccessConfig struct {
	ReadPaths          []string `yaml:"read_paths"`          // Extra read whitelist roots
	WritePaths         []string `yaml:"write_paths"`         // Extra write whitelist roots
	BlacklistPaths     []string `yaml:"blacklist_paths"`     // Extra blocked directories
	BlacklistPatterns  []string `yaml:"blacklist_patterns"`  // Extra blocked filename globs
	AllowAbsolutePaths *bool    `yaml:"allow_absolute_paths"`
	ConfirmDeletes     *bool    `yaml:"confirm_deletes"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &Config{
		Model:         "gemini-2.5-flash",
		Temperature:   0.2,
		MaxIterations: 15,
		DataDir:       DefaultDataDir(),
		WorkingDir:    wd,
	}
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cli-master"
	}
	return filepath.Join(home, ".cli-master")
}

// Load reads .env from the current directory, then config.yaml from the
// data directory, then applies environment overrides. A missing config
// file is not an error; defaults are used.
func Load() (*Config, error) {
	// Present in dev checkouts, absent everywhere else.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := filepath.Join(cfg.DataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.expandPaths()
	cfg.applyEnv()
	return cfg, nil
}

// LoadFrom loads config from a specific path
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.expandPaths()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.DataDir = expandHome(c.DataDir)
	c.WorkingDir = expandHome(c.WorkingDir)
	for i, p := range c.Access.ReadPaths {
		c.Access.ReadPaths[i] = expandHome(p)
	}
	for i, p := range c.Access.WritePaths {
		c.Access.WritePaths[i] = expandHome(p)
	}
	for i, p := range c.Access.BlacklistPaths {
		c.Access.BlacklistPaths[i] = expandHome(p)
	}
}

func (c *Config) applyEnv() {
	if model := os.Getenv("CLI_MASTER_MODEL"); model != "" {
		c.Model = model
	}
	if dir := os.Getenv("CLI_MASTER_DATA_DIR"); dir != "" {
		c.DataDir = expandHome(dir)
	}
	c.FakeLLM = os.Getenv("CLI_MASTER_FAKE_LLM") == "1"
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Policy assembles the path access policy: built-in defaults for the
// working directory, extended with the user's access settings.
func (c *Config) Policy() *safepath.Policy {
	b := safepath.NewBuilder(c.WorkingDir).
		AllowRead(c.Access.ReadPaths...).
		AllowWrite(c.Access.WritePaths...).
		BlacklistPaths(c.Access.BlacklistPaths...).
		BlacklistPatterns(c.Access.BlacklistPatterns...)
	if c.Access.AllowAbsolutePaths != nil {
		b.AllowAbsolutePaths(*c.Access.AllowAbsolutePaths)
	}
	if c.Access.ConfirmDeletes != nil {
		b.RequireDeleteConfirmation(*c.Access.ConfirmDeletes)
	}
	return b.Build()
}

// APIKey returns the API key for the given provider id, read from the
// environment. godotenv has already folded .env into the environment.
func APIKey(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

// Save writes the config to the data directory's config.yaml
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.DataDir, "config.yaml"), data, 0600)
}

// DBPath returns the path to the SQLite database
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "data", "cli-master.db")
}

// LogDir returns the directory runtime logs are written to
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ReportsDir returns the directory research reports are saved under
func (c *Config) ReportsDir() string {
	return filepath.Join(c.WorkingDir, "reports")
}

// EnsureDataDir creates the data directory if it doesn't exist
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(filepath.Join(c.DataDir, "data"), 0700)
}
