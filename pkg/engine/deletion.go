package engine

import (
	"context"
	"time"

	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/store"
	"github.com/taskmesh/tasksync/pkg/types"
)

// isSourceOnly reports whether p is immune to deletes (and any other
// write) in the given mode: provider[0] in a-to-b-only and mirror modes.
func isSourceOnly(mode types.Mode, providers []provider.Named, p types.ProviderName) bool {
	if mode == types.ModeBidirectional || len(providers) == 0 {
		return false
	}
	return providers[0].Name == p
}

// byName indexes providers for the propagation loop's DeleteTask calls.
func byName(providers []provider.Named) map[types.ProviderName]provider.Provider {
	out := make(map[types.ProviderName]provider.Provider, len(providers))
	for _, p := range providers {
		out[p.Name] = p.Provider
	}
	return out
}

// runDeletionResolver implements both deletion paths a provider can signal:
// (a) an explicit delete — the provider's incremental changes listing
// reports the id with status=deleted — which is trusted on its own; and
// (b) a silent disappearance — a mapping's provider id is simply absent
// from a healthy provider's full listing, which is only trusted once a
// stored canonical baseline exists and lastSyncAt is already set, i.e.
// never on the same cycle a mapping was just created (cold-start or a
// brand-new observed task can't yet have "gone missing" anywhere).
//
// Delete wins: once any non-immune provider shows a genuine deletion, the
// task is considered gone everywhere and the delete is propagated — by an
// actual DeleteTask call plus a tombstone — to every other non-immune
// provider still holding it. The immune source in a-to-b-only/mirror never
// originates and never receives a delete from the engine — a deletion
// observed there is logged and ignored outright, and a deletion
// propagating from elsewhere skips it, leaving its mapping entry
// untouched since fan-out never writes back to the immune source.
func runDeletionResolver(ctx context.Context, state *store.State, mode types.Mode, providers []provider.Named, snaps map[types.ProviderName]*snapshot, now time.Time, dryRun bool) ([]types.Action, []types.SyncError) {
	var actions []types.Action
	var errs []types.SyncError
	named := byName(providers)
	trustDisappearance := state.LastSyncAt != nil

	for _, m := range state.Mappings {
		genuine := false
		originatedAt := map[types.ProviderName]bool{}
		hasBaseline := !m.Canonical.UpdatedAt.IsZero() || m.Canonical.Title != ""
		for provName, id := range m.ByProvider {
			snap := snaps[provName]
			if snap == nil || !snap.healthy {
				continue
			}

			explicitDelete := false
			if pt, ok := snap.changesByID[id]; ok && pt.Task.Status == types.StatusDeleted {
				explicitDelete = true
			}
			if pt, ok := snap.indexByID[id]; ok && pt.Task.Status == types.StatusDeleted {
				explicitDelete = true
			}
			_, presentInFullListing := snap.indexByID[id]
			silentDisappearance := !presentInFullListing && trustDisappearance && hasBaseline

			if !explicitDelete && !silentDisappearance {
				continue
			}
			if isSourceOnly(mode, providers, provName) {
				log.WithCanonicalID(m.CanonicalID).Warn().
					Str("provider", string(provName)).
					Msg("delete observed on immune source provider, ignoring")
				continue
			}
			genuine = true
			originatedAt[provName] = true
		}
		if !genuine {
			continue
		}

		for provName, id := range m.ByProvider {
			if isSourceOnly(mode, providers, provName) {
				continue
			}

			if !originatedAt[provName] && !dryRun {
				if p, ok := named[provName]; ok {
					if err := p.DeleteTask(ctx, id); err != nil {
						errs = append(errs, types.SyncError{Stage: types.StageWrite, Provider: provName, Message: err.Error()})
						log.WithCanonicalID(m.CanonicalID).Error().Err(err).Str("provider", string(provName)).Msg("propagated delete failed")
						continue
					}
				}
			}

			state.AddTombstone(provName, id, now)
			state.DropProviderID(m.CanonicalID, provName)
			actions = append(actions, types.Action{
				Kind: types.ActionDelete, CanonicalID: m.CanonicalID, Provider: provName, ProviderID: id,
			})
			log.WithCanonicalID(m.CanonicalID).Info().Str("provider", string(provName)).Msg("task deleted, tombstoned")
		}
	}

	sweepOrphanMappings(state)
	return actions, errs
}

// sweepOrphanMappings removes every mapping whose byProvider has been
// emptied out, immediately, regardless of which path emptied it.
func sweepOrphanMappings(state *store.State) {
	var orphaned []string
	for _, m := range state.Mappings {
		if m.Empty() {
			orphaned = append(orphaned, m.CanonicalID)
		}
	}
	for _, id := range orphaned {
		state.RemoveMapping(id)
	}
}
