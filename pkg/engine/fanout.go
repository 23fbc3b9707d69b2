package engine

import (
	"context"

	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/store"
	"github.com/taskmesh/tasksync/pkg/types"
)

// runFanOut writes one mapping's resolved canonical to every writable
// target provider. Writes are sequential per mapping: the
// mapping's byProvider is mutated in place as ids come back, so later
// targets in the same call always see the latest state.
func runFanOut(ctx context.Context, m *types.Mapping, targets []provider.Named, snaps map[types.ProviderName]*snapshot, state *store.State, dryRun bool) ([]types.Action, []types.SyncError, int) {
	var actions []types.Action
	var errs []types.SyncError
	noop := 0

	for _, p := range targets {
		id, has := m.ByProvider[p.Name]
		snap := snaps[p.Name]
		if snap == nil || !snap.healthy {
			continue // degraded provider: left untouched this cycle
		}

		if !has {
			if dryRun {
				actions = append(actions, types.Action{Kind: types.ActionCreate, CanonicalID: m.CanonicalID, Provider: p.Name})
				continue
			}
			created, err := p.Provider.UpsertTask(ctx, types.ProviderTask{Task: m.Canonical})
			if err != nil {
				errs = append(errs, types.SyncError{Stage: types.StageWrite, Provider: p.Name, Message: err.Error()})
				log.WithCanonicalID(m.CanonicalID).Error().Err(err).Str("provider", string(p.Name)).Msg("create failed")
				continue
			}
			state.UpsertProviderID(m.CanonicalID, p.Name, created.ID)
			actions = append(actions, types.Action{Kind: types.ActionCreate, CanonicalID: m.CanonicalID, Provider: p.Name, ProviderID: created.ID})
			continue
		}

		pt, stillThere := snap.indexByID[id]
		if !stillThere {
			if state.IsTombstoned(p.Name, id) {
				continue // delete-wins: do not resurrect a provider's own tombstoned id
			}
			if dryRun {
				actions = append(actions, types.Action{Kind: types.ActionRecreate, CanonicalID: m.CanonicalID, Provider: p.Name, ProviderID: id})
				continue
			}
			recreated, err := p.Provider.UpsertTask(ctx, types.ProviderTask{Task: m.Canonical})
			if err != nil {
				errs = append(errs, types.SyncError{Stage: types.StageWrite, Provider: p.Name, Message: err.Error()})
				log.WithCanonicalID(m.CanonicalID).Error().Err(err).Str("provider", string(p.Name)).Msg("recreate failed")
				continue
			}
			state.UpsertProviderID(m.CanonicalID, p.Name, recreated.ID)
			actions = append(actions, types.Action{Kind: types.ActionRecreate, CanonicalID: m.CanonicalID, Provider: p.Name, ProviderID: recreated.ID})
			continue
		}

		if tasksEqual(pt.Task, m.Canonical) {
			noop++
			continue
		}

		if dryRun {
			actions = append(actions, types.Action{Kind: types.ActionUpdate, CanonicalID: m.CanonicalID, Provider: p.Name, ProviderID: id})
			continue
		}
		updated, err := p.Provider.UpsertTask(ctx, types.ProviderTask{ID: id, Task: m.Canonical})
		if err != nil {
			errs = append(errs, types.SyncError{Stage: types.StageWrite, Provider: p.Name, Message: err.Error()})
			log.WithCanonicalID(m.CanonicalID).Error().Err(err).Str("provider", string(p.Name)).Msg("update failed")
			continue
		}
		state.UpsertProviderID(m.CanonicalID, p.Name, updated.ID)
		actions = append(actions, types.Action{Kind: types.ActionUpdate, CanonicalID: m.CanonicalID, Provider: p.Name, ProviderID: updated.ID})
	}

	return actions, errs, noop
}

// tasksEqual reports whether every mergeable field of a provider's current
// task already matches the resolved canonical, using the same semantic
// equality policy the merger itself uses so round-trip noise never causes
// a spurious update write.
func tasksEqual(current, canonical types.CanonicalTask) bool {
	for _, f := range types.MergeableFields {
		if !fieldEqual(f, fieldValue(f, current), fieldValue(f, canonical)) {
			return false
		}
	}
	return true
}

// runFanOutAll drives runFanOut for every mapping against the given
// sync mode's writable targets.
func runFanOutAll(ctx context.Context, state *store.State, mode types.Mode, providers []provider.Named, snaps map[types.ProviderName]*snapshot, dryRun bool) ([]types.Action, []types.SyncError, int) {
	targets := targetProviders(mode, providers)
	var actions []types.Action
	var errs []types.SyncError
	noop := 0
	for _, m := range state.Mappings {
		a, e, n := runFanOut(ctx, m, targets, snaps, state, dryRun)
		actions = append(actions, a...)
		errs = append(errs, e...)
		noop += n
	}
	return actions, errs, noop
}
