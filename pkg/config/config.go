package config

import (
	"fmt"
	"os"
	"time"

	"github.com/taskmesh/tasksync/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config is the explicit configuration value the engine is constructed
// with. It is built once by the CLI and reused for every cycle in
// polling mode; nothing in pkg/engine reads process-wide state.
type Config struct {
	StateDir            string     `yaml:"stateDir"`
	Mode                types.Mode `yaml:"mode"`
	TombstoneTTLDays    int        `yaml:"tombstoneTtlDays"`
	DryRun              bool       `yaml:"dryRun"`
	PollIntervalMinutes int        `yaml:"pollIntervalMinutes"`
}

// Default returns the engine's baseline configuration: bidirectional
// sync, a 30-day tombstone TTL, live writes.
func Default() Config {
	return Config{
		StateDir:         ".task-sync",
		Mode:             types.ModeBidirectional,
		TombstoneTTLDays: 30,
		DryRun:           false,
	}
}

// TombstoneTTL returns the configured TTL as a time.Duration.
func (c Config) TombstoneTTL() time.Duration {
	return time.Duration(c.TombstoneTTLDays) * 24 * time.Hour
}

// PollInterval returns the configured poll interval, or zero if polling is
// disabled.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}

// LoadFile reads a YAML config file and merges it onto base, the same way
// a long-running sync daemon's declarative config is layered over defaults.
// Zero-value fields in the file are treated as "not set" and left at base's
// value; an absent file is not an error (defaults win outright).
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return base, fmt.Errorf("parse config file %s: %w", path, err)
	}

	merged := base
	if overlay.StateDir != "" {
		merged.StateDir = overlay.StateDir
	}
	if overlay.Mode != "" {
		merged.Mode = overlay.Mode
	}
	if overlay.TombstoneTTLDays != 0 {
		merged.TombstoneTTLDays = overlay.TombstoneTTLDays
	}
	if overlay.PollIntervalMinutes != 0 {
		merged.PollIntervalMinutes = overlay.PollIntervalMinutes
	}
	merged.DryRun = merged.DryRun || overlay.DryRun
	return merged, nil
}

// Validate checks the configuration is usable before the engine starts.
// Config errors are fatal and must be caught here, not mid-cycle.
func (c Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("stateDir must not be empty")
	}
	switch c.Mode {
	case types.ModeBidirectional, types.ModeAToBOnly, types.ModeMirror:
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	if c.TombstoneTTLDays <= 0 {
		return fmt.Errorf("tombstoneTtlDays must be positive, got %d", c.TombstoneTTLDays)
	}
	if c.PollIntervalMinutes < 0 {
		return fmt.Errorf("pollIntervalMinutes must not be negative, got %d", c.PollIntervalMinutes)
	}
	return nil
}
