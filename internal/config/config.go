// Package config loads defaults for the openjpeg command from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	openjpeg "github.com/ajroetker/go-openjpeg"
)

// Config holds command defaults. Command-line flags override it.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Decode  DecodeConfig  `yaml:"decode"`
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig controls how structured results are printed.
type OutputConfig struct {
	Format string `yaml:"format"` // json or yaml
}

// DecodeConfig mirrors openjpeg.DecodeOptions.
type DecodeConfig struct {
	Reduce  int `yaml:"reduce"`
	Layers  int `yaml:"layers"`
	Threads int `yaml:"threads"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Output:  OutputConfig{Format: "json"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/openjpeg/config.yaml or its home
// directory equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "openjpeg", "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies OPENJPEG_FORMAT, OPENJPEG_THREADS and
// OPENJPEG_LOG_LEVEL.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("OPENJPEG_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("OPENJPEG_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid OPENJPEG_THREADS %q: %w", v, err)
		}
		c.Decode.Threads = n
	}
	if v := os.Getenv("OPENJPEG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	c.Output.Format = strings.ToLower(c.Output.Format)
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", c.Output.Format)
	}
	if c.Decode.Reduce < 0 || c.Decode.Layers < 0 || c.Decode.Threads < 0 {
		return fmt.Errorf("decode settings must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// DecodeOptions converts the decode section.
func (c *Config) DecodeOptions() openjpeg.DecodeOptions {
	return openjpeg.DecodeOptions{
		Reduce:    c.Decode.Reduce,
		MaxLayers: c.Decode.Layers,
		Threads:   c.Decode.Threads,
	}
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
