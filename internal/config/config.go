// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the engine configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Loop      LoopConfig      `toml:"loop"`
	Planner   PlannerConfig   `toml:"planner"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Search    SearchConfig    `toml:"search"`
	Bus       BusConfig       `toml:"bus"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Log       LogConfig       `toml:"log"`
}

// StorageConfig locates session storage on disk.
type StorageConfig struct {
	Root      string `toml:"root"`       // session directories live under here
	IndexPath string `toml:"index_path"` // sqlite catalog, defaults under root
}

// LoopConfig bounds loop execution.
type LoopConfig struct {
	MaxActions  int      `toml:"max_actions"`
	StepTimeout duration `toml:"step_timeout"`
}

// PlannerConfig selects the planning provider.
type PlannerConfig struct {
	Provider  string `toml:"provider"` // anthropic, openai, file
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`
	PlanPath  string `toml:"plan_path"` // for the file provider
}

// SandboxConfig controls code execution.
type SandboxConfig struct {
	Command []string `toml:"command"`
	Timeout duration `toml:"timeout"`
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	APIKeyEnv  string `toml:"api_key_env"`
	MaxResults int    `toml:"max_results"`
}

// BusConfig configures event mirroring to NATS.
type BusConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
}

// TelemetryConfig contains trace export settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// duration wraps time.Duration so TOML files can use "30s" style values.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Duration returns the wrapped value.
func (d duration) Duration() time.Duration { return time.Duration(d) }

// New creates a config with defaults.
func New() *Config {
	return &Config{
		Storage: StorageConfig{Root: defaultRoot()},
		Loop:    LoopConfig{MaxActions: 20, StepTimeout: duration(2 * time.Minute)},
		Planner: PlannerConfig{
			Provider:  "anthropic",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 4096,
		},
		Sandbox: SandboxConfig{Timeout: duration(30 * time.Second)},
		Search:  SearchConfig{APIKeyEnv: "TAVILY_API_KEY", MaxResults: 5},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stride"
	}
	return filepath.Join(home, ".stride", "sessions")
}

// IndexPath returns the sqlite catalog location, defaulting to a file
// next to the session directories.
func (c *Config) IndexPath() string {
	if c.Storage.IndexPath != "" {
		return c.Storage.IndexPath
	}
	return filepath.Join(c.Storage.Root, "sessions.db")
}

// PlannerAPIKey resolves the planner API key from the environment.
func (c *Config) PlannerAPIKey() string {
	return os.Getenv(c.Planner.APIKeyEnv)
}

// SearchAPIKey resolves the search API key from the environment.
func (c *Config) SearchAPIKey() string {
	return os.Getenv(c.Search.APIKeyEnv)
}

// LoadFile loads configuration from a TOML file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads stride.toml from the current directory if present,
// falling back to defaults.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	path := filepath.Join(cwd, "stride.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}
