// Package config defines the explicit configuration value the engine is
// constructed with, replacing any process-wide env-driven singleton. The
// CLI builds one Config from flags and an optional YAML file and passes
// the same value to every cycle in polling mode.
package config
