package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmesh/tasksync/pkg/types"
)

// printReport renders a SyncReport as a short human-readable summary. This
// stays deliberately thin: it's a rendering convenience for the CLI, not
// part of the reconciliation core the engine package tests.
func printReport(cmd *cobra.Command, r types.SyncReport) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "mode: %s  providers: %v  duration: %s  dryRun: %v\n", r.Mode, r.Providers, r.Duration, r.DryRun)
	if r.OldWatermark != nil {
		fmt.Fprintf(out, "watermark: %s -> %s\n", r.OldWatermark.Format("2006-01-02T15:04:05Z07:00"), r.NewWatermark.Format("2006-01-02T15:04:05Z07:00"))
	} else {
		fmt.Fprintf(out, "watermark: (first run) -> %s\n", r.NewWatermark.Format("2006-01-02T15:04:05Z07:00"))
	}

	fmt.Fprintf(out, "actions: %d (noop: %d)\n", len(r.Actions), r.NoopCount)
	for kind, count := range r.CountByKind() {
		fmt.Fprintf(out, "  %s: %d\n", kind, count)
	}

	if len(r.Conflicts) > 0 {
		fmt.Fprintf(out, "conflicts: %d\n", len(r.Conflicts))
		for _, c := range r.Conflicts {
			fmt.Fprintf(out, "  %s field=%s winner=%s overwritten=%v\n", c.CanonicalID, c.Field, c.Winner, c.Overwritten)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(out, "errors: %d\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(out, "  [%s] %s: %s\n", e.Stage, e.Provider, e.Message)
		}
	}
}
