// Package config loads planforge configuration from YAML with environment
// overrides. A .env file next to the working directory is honored before
// overrides are read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all planforge configuration.
type Config struct {
	// Paths for generated projects and diagnostics
	Paths PathsConfig `yaml:"paths"`

	// Build tool invocation settings
	Build BuildConfig `yaml:"build"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Drop-folder watcher
	Watch WatchConfig `yaml:"watch"`
}

// PathsConfig configures output locations.
type PathsConfig struct {
	// OutputDir is where project directories are allocated.
	OutputDir string `yaml:"output_dir"`

	// DiagnosticsDir receives raw model replies that failed to parse.
	DiagnosticsDir string `yaml:"diagnostics_dir"`
}

// BuildConfig configures subprocess execution for install/build tools.
type BuildConfig struct {
	// ToolTimeout bounds a single tool invocation (pip, npm, cargo, ...).
	// Installs can legitimately run for minutes.
	ToolTimeout string `yaml:"tool_timeout"`

	// MaxOutputBytes caps captured stdout/stderr per invocation.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`

	// GitInit controls repository initialization in produced projects.
	GitInit bool `yaml:"git_init"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"`
}

// WatchConfig configures the plan drop-folder watcher.
type WatchConfig struct {
	// Parallelism bounds concurrent applies.
	Parallelism int `yaml:"parallelism"`

	// DebounceMs is how long a file must be quiet before it is read.
	DebounceMs int `yaml:"debounce_ms"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			OutputDir:      "output",
			DiagnosticsDir: "output/.diagnostics",
		},
		Build: BuildConfig{
			ToolTimeout:    "10m",
			MaxOutputBytes: 1 << 20,
			GitInit:        true,
		},
		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
		},
		Watch: WatchConfig{
			Parallelism: 2,
			DebounceMs:  500,
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "planforge", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields
// defaults; environment overrides always apply.
func Load(path string) (*Config, error) {
	// Best-effort .env load so PLANFORGE_* vars can live alongside the
	// project; a missing .env is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies PLANFORGE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("PLANFORGE_OUTPUT_DIR"); dir != "" {
		c.Paths.OutputDir = dir
	}
	if dir := os.Getenv("PLANFORGE_DIAGNOSTICS_DIR"); dir != "" {
		c.Paths.DiagnosticsDir = dir
	}
	if v := os.Getenv("PLANFORGE_TOOL_TIMEOUT"); v != "" {
		c.Build.ToolTimeout = v
	}
	if v := os.Getenv("PLANFORGE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = b
		}
	}
	if v := os.Getenv("PLANFORGE_WATCH_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Watch.Parallelism = n
		}
	}
}

// GetToolTimeout returns the tool timeout as a duration.
func (c *Config) GetToolTimeout() time.Duration {
	d, err := time.ParseDuration(c.Build.ToolTimeout)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}
