package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/taskmesh/tasksync/pkg/config"
	"github.com/taskmesh/tasksync/pkg/lock"
	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/metrics"
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/store"
	"github.com/taskmesh/tasksync/pkg/types"
)

// Engine ties the reconciliation stages to one state directory and one
// ordered set of providers, and drives them through a single cycle at a
// time.
type Engine struct {
	cfg       config.Config
	providers []provider.Named
	store     *store.Store
	conflicts *store.ConflictLog
}

// New returns an Engine for the given configuration and providers.
// providers[0] is the source in a-to-b-only and mirror modes; in
// bidirectional mode order only breaks ties between equal updatedAt
// timestamps and picks which provider seeds a mapping with no baseline.
func New(cfg config.Config, providers []provider.Named) *Engine {
	return &Engine{
		cfg:       cfg,
		providers: providers,
		store:     store.New(cfg.StateDir),
		conflicts: store.NewConflictLog(cfg.StateDir),
	}
}

// RunOnce executes exactly one reconciliation cycle under the state
// directory's exclusion lock and returns the resulting SyncReport. A
// failure to acquire the lock (another cycle already running) is
// returned as lock.ErrHeld, not wrapped, so callers can distinguish it
// from a genuine cycle failure.
func (e *Engine) RunOnce(ctx context.Context) (types.SyncReport, error) {
	start := time.Now()
	var report types.SyncReport

	err := lock.Guard(e.cfg.StateDir, func() error {
		var runErr error
		report, runErr = e.runLocked(ctx, start)
		return runErr
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) runLocked(ctx context.Context, start time.Time) (types.SyncReport, error) {
	logger := log.WithComponent("engine")

	state, err := e.store.Load()
	if err != nil {
		return types.SyncReport{}, fmt.Errorf("engine: load state: %w", err)
	}

	oldWatermark := state.LastSyncAt
	ttl := e.cfg.TombstoneTTL()
	now := time.Now()
	pruned := state.PruneExpiredTombstones(ttl, now)
	if pruned > 0 {
		logger.Info().Int("pruned", pruned).Msg("expired tombstones pruned")
	}

	var since *time.Time
	if state.LastSyncAt != nil {
		since = state.LastSyncAt
	}
	snaps, collectErrs := collectSnapshots(ctx, e.providers, since)
	healthy := healthyProviders(e.providers, snaps)

	firstRun := len(state.Mappings) == 0 && state.LastSyncAt == nil
	if firstRun && len(healthy) >= 2 {
		runColdStart(state, healthy, snaps, now)
	}

	deleteActions, deleteErrs := runDeletionResolver(ctx, state, e.cfg.Mode, healthy, snaps, now, e.cfg.DryRun)

	ensureMappingsForObservedTasks(state, healthy, snaps)

	conflicts := runMergeAll(state, e.cfg.Mode, healthy, snaps, now)

	fanOutActions, fanOutErrs, noopCount := runFanOutAll(ctx, state, e.cfg.Mode, healthy, snaps, e.cfg.DryRun)

	state.LastSyncAt = &now

	if !e.cfg.DryRun {
		if err := e.conflicts.Append(conflicts, now); err != nil {
			logger.Warn().Err(err).Msg("failed to append conflict log")
		}
		if err := e.store.Save(state); err != nil {
			return types.SyncReport{}, fmt.Errorf("engine: save state: %w", err)
		}
	}

	actions := append(deleteActions, fanOutActions...)
	errs := append(collectErrs, deleteErrs...)
	errs = append(errs, fanOutErrs...)

	report := types.SyncReport{
		Mode:         e.cfg.Mode,
		Providers:    providerNames(e.providers),
		OldWatermark: oldWatermark,
		NewWatermark: &now,
		Actions:      actions,
		Conflicts:    conflicts,
		Errors:       errs,
		NoopCount:    noopCount,
		Duration:     time.Since(start),
		DryRun:       e.cfg.DryRun,
	}

	metrics.Record(report, len(state.Mappings), len(state.Tombstones))
	logger.Info().
		Int("actions", len(actions)).
		Int("conflicts", len(conflicts)).
		Int("errors", len(errs)).
		Dur("duration", report.Duration).
		Msg("cycle complete")

	return report, nil
}

func providerNames(providers []provider.Named) []types.ProviderName {
	out := make([]types.ProviderName, 0, len(providers))
	for _, p := range providers {
		out = append(out, p.Name)
	}
	return out
}

// RunPolling loops RunOnce at the configured poll interval until ctx is
// canceled, logging each cycle's report instead of returning it. Each
// iteration is independent: a failed cycle is logged and polling
// continues.
func (e *Engine) RunPolling(ctx context.Context) error {
	interval := e.cfg.PollInterval()
	if interval <= 0 {
		_, err := e.RunOnce(ctx)
		return err
	}

	logger := log.WithComponent("engine")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := e.RunOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("cycle failed")
		} else {
			logger.Info().Int("actions", len(report.Actions)).Msg("poll cycle complete")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
