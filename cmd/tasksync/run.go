package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmesh/tasksync/pkg/config"
	"github.com/taskmesh/tasksync/pkg/engine"
	"github.com/taskmesh/tasksync/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run exactly one reconciliation cycle and exit",
	RunE:  runRun,
}

func init() {
	addEngineFlags(runCmd)
}

// addEngineFlags registers the flags shared by `run` and `watch`.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("state-dir", config.Default().StateDir, "Directory holding state.json, lock, and conflicts.log")
	cmd.Flags().String("mode", string(config.Default().Mode), "Sync mode: bidirectional, a-to-b-only, mirror")
	cmd.Flags().Bool("dry-run", false, "Compute actions but do not write to providers or persist state")
	cmd.Flags().Int("tombstone-ttl-days", config.Default().TombstoneTTLDays, "Days a tombstone is kept before pruning")
	cmd.Flags().String("config", "", "Optional YAML config file, merged under these flags")
	cmd.Flags().String("google-list-id", "@default", "Google Tasks list id")
	cmd.Flags().String("mstodo-list-id", "", "Microsoft To Do list id")
}

func loadEngineConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		cfg, err = config.LoadFile(path, cfg)
		if err != nil {
			return config.Config{}, err
		}
	}

	if v, _ := cmd.Flags().GetString("state-dir"); cmd.Flags().Changed("state-dir") {
		cfg.StateDir = v
	}
	if v, _ := cmd.Flags().GetString("mode"); cmd.Flags().Changed("mode") {
		cfg.Mode = types.Mode(v)
	}
	if v, _ := cmd.Flags().GetBool("dry-run"); v {
		cfg.DryRun = true
	}
	if v, _ := cmd.Flags().GetInt("tombstone-ttl-days"); cmd.Flags().Changed("tombstone-ttl-days") {
		cfg.TombstoneTTLDays = v
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadEngineConfig(cmd)
	if err != nil {
		return err
	}

	googleListID, _ := cmd.Flags().GetString("google-list-id")
	mstodoListID, _ := cmd.Flags().GetString("mstodo-list-id")
	providers, err := buildProviders(ctx, googleListID, mstodoListID)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	eng := engine.New(cfg, providers)
	report, err := eng.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation cycle failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}
