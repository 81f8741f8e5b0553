// Package config loads workspace configuration from a YAML file with
// tolerant defaulting: a missing file or omitted keys fall back to the
// defaults, and flags may override the result.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a workspace session.
type Config struct {
	// Workspace is the root directory all artifacts are confined to.
	Workspace string `yaml:"workspace"`

	// Value is the initial engine value.
	Value int `yaml:"value"`

	// Budget is the initial budget. Must be non-negative.
	Budget int `yaml:"budget"`

	// MinNewEvents is the crystallization threshold.
	MinNewEvents int `yaml:"min_new_events"`

	// TailN is how many trailing history events packets carry.
	TailN int `yaml:"tail_n"`

	// CrystalsDir, PacketsDir, ExportsDir are workspace-relative.
	CrystalsDir string `yaml:"crystals_dir"`
	PacketsDir  string `yaml:"packets_dir"`
	ExportsDir  string `yaml:"exports_dir"`

	// Journal is an optional path to a SQLite journal database.
	// Empty disables journaling.
	Journal string `yaml:"journal"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Workspace:    "storage",
		Budget:       10,
		MinNewEvents: 5,
		TailN:        20,
		CrystalsDir:  "crystals",
		PacketsDir:   "packets",
		ExportsDir:   "exports",
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks invariants the engine depends on.
func (c Config) Validate() error {
	if c.Workspace == "" {
		return fmt.Errorf("config: workspace must not be empty")
	}
	if c.Budget < 0 {
		return fmt.Errorf("config: budget must be non-negative, got %d", c.Budget)
	}
	if c.MinNewEvents < 0 {
		return fmt.Errorf("config: min_new_events must be non-negative, got %d", c.MinNewEvents)
	}
	return nil
}
