package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskmesh/tasksync/pkg/engine"
	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/metrics"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run reconciliation cycles on a polling interval until interrupted",
	RunE:  runWatch,
}

func init() {
	addEngineFlags(watchCmd)
	watchCmd.Flags().Int("poll-interval-minutes", 5, "Minutes between reconciliation cycles")
	watchCmd.Flags().String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadEngineConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("poll-interval-minutes"); cmd.Flags().Changed("poll-interval-minutes") || cfg.PollIntervalMinutes == 0 {
		cfg.PollIntervalMinutes = v
	}
	if cfg.PollIntervalMinutes <= 0 {
		return fmt.Errorf("poll-interval-minutes must be positive for watch")
	}

	googleListID, _ := cmd.Flags().GetString("google-list-id")
	mstodoListID, _ := cmd.Flags().GetString("mstodo-list-id")
	providers, err := buildProviders(ctx, googleListID, mstodoListID)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go serveMetrics(addr)
	}

	eng := engine.New(cfg, providers)
	err = eng.RunPolling(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.WithComponent("cli").Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithComponent("cli").Error().Err(err).Msg("metrics server stopped")
	}
}
