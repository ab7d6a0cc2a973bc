// Package config loads and saves astscope workspace configuration
// from .astscope/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all astscope configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Workspace scanning
	Scanner ScannerConfig `yaml:"scanner"`

	// Symbol index storage
	Index IndexConfig `yaml:"index"`

	// Pattern rule evaluation
	Rules RulesConfig `yaml:"rules"`

	// Filesystem watching
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ScannerConfig controls workspace scanning.
type ScannerConfig struct {
	Workers        int      `yaml:"workers"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
	MaxFileBytes   int64    `yaml:"max_file_bytes"`
}

// IndexConfig controls the SQLite symbol index.
type IndexConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RulesConfig controls the Datalog pattern kernel.
type RulesConfig struct {
	// ExtraRulePaths are additional .mg files loaded after the
	// built-in pattern rules.
	ExtraRulePaths []string `yaml:"extra_rule_paths"`
	QueryTimeout   string   `yaml:"query_timeout"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_millis"`
}

// LoggingConfig controls categorized file logging. The keys mirror
// what internal/logging reads back from the same file.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "astscope",
		Version: "0.1.0",
		Scanner: ScannerConfig{
			Workers:      0, // 0 = auto (NumCPU, clamped)
			MaxFileBytes: 2 * 1024 * 1024,
			IgnorePatterns: []string{
				".git",
				".astscope",
				"node_modules",
				"vendor",
				"dist",
				"build",
				".next",
				"target",
				"bin",
				"obj",
				".venv",
				".cache",
			},
		},
		Index: IndexConfig{
			DatabasePath: filepath.Join(".astscope", "index.db"),
		},
		Rules: RulesConfig{
			QueryTimeout: "10s",
		},
		Watch: WatchConfig{
			DebounceMillis: 500,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".astscope", "config.yaml")
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
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

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASTSCOPE_SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scanner.Workers = n
		}
	}
	if v := os.Getenv("ASTSCOPE_MAX_FILE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Scanner.MaxFileBytes = n
		}
	}
	if v := os.Getenv("ASTSCOPE_DB"); v != "" {
		c.Index.DatabasePath = v
	}
	if v := os.Getenv("ASTSCOPE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// GetQueryTimeout parses the rules query timeout, defaulting to 10s.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Rules.QueryTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetDebounce returns the watch debounce interval, defaulting to 500ms.
func (c *Config) GetDebounce() time.Duration {
	if c.Watch.DebounceMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Scanner.Workers < 0 {
		return fmt.Errorf("scanner.workers must be >= 0, got %d", c.Scanner.Workers)
	}
	if c.Scanner.MaxFileBytes < 0 {
		return fmt.Errorf("scanner.max_file_bytes must be >= 0, got %d", c.Scanner.MaxFileBytes)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}
