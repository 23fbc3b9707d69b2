package engine

import (
	"time"

	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/store"
	"github.com/taskmesh/tasksync/pkg/types"
)

// contender is one provider's current value for a single field, kept
// around long enough to resolve conflicts and name the losers.
type contender struct {
	provider  types.ProviderName
	value     any
	updatedAt time.Time
}

// mergeResult is what fieldLevelMerge produces for one mapping.
type mergeResult struct {
	canonical types.CanonicalTask
	conflicts []types.SyncConflict
}

// ensureMappingsForObservedTasks makes sure every task any healthy
// provider currently holds has a mapping before the field pass runs, so
// brand-new tasks get mapped instead of silently skipped.
func ensureMappingsForObservedTasks(state *store.State, providers []provider.Named, snaps map[types.ProviderName]*snapshot) {
	for _, p := range providers {
		snap := snaps[p.Name]
		if !snap.healthy {
			continue
		}
		for id := range snap.indexByID {
			if state.IsTombstoned(p.Name, id) {
				continue
			}
			state.EnsureMapping(p.Name, id)
		}
	}
}

// fieldLevelMerge computes the new canonical for one mapping by diffing
// each healthy provider's current view against the stored baseline and
// resolving per-field conflicts by last-write-wins.
//
// providers is passed in sync-mode order so that a tie between equal
// updatedAt timestamps, and the "no baseline yet" seed choice, both break
// deterministically on provider order rather than Go's unordered map
// iteration.
func fieldLevelMerge(m *types.Mapping, providers []provider.Named, snaps map[types.ProviderName]*snapshot, now time.Time) mergeResult {
	byProvTask := map[types.ProviderName]types.CanonicalTask{}
	var orderedPresent []types.ProviderName
	for _, p := range providers {
		snap := snaps[p.Name]
		id, ok := m.ByProvider[p.Name]
		if !ok || !snap.healthy {
			continue
		}
		pt, ok := snap.indexByID[id]
		if !ok {
			continue // absence is handled by the deletion resolver, not here
		}
		byProvTask[p.Name] = pt.Task
		orderedPresent = append(orderedPresent, p.Name)
	}

	hasBaseline := !m.Canonical.UpdatedAt.IsZero() || m.Canonical.Title != ""
	canonical := m.Canonical
	if !hasBaseline && len(orderedPresent) > 0 {
		canonical = byProvTask[orderedPresent[0]]
	}

	var conflicts []types.SyncConflict
	for _, f := range types.MergeableFields {
		baseline := fieldValue(f, canonical)

		var contenders []contender
		for _, name := range orderedPresent {
			task := byProvTask[name]
			v := fieldValue(f, task)
			if !fieldEqual(f, baseline, v) {
				contenders = append(contenders, contender{provider: name, value: v, updatedAt: task.UpdatedAt})
			}
		}

		switch len(contenders) {
		case 0:
			// keep baseline
		case 1:
			applyField(f, &canonical, contenders[0].value)
			canonical.UpdatedAt = contenders[0].updatedAt
		default:
			winner := pickWinner(contenders, orderedPresent)
			applyField(f, &canonical, winner.value)
			canonical.UpdatedAt = winner.updatedAt

			var names, overwritten []types.ProviderName
			for _, c := range contenders {
				names = append(names, c.provider)
				if c.provider != winner.provider {
					overwritten = append(overwritten, c.provider)
				}
			}
			conflicts = append(conflicts, types.SyncConflict{
				CanonicalID: m.CanonicalID,
				Field:       f,
				Providers:   names,
				Winner:      winner.provider,
				Overwritten: overwritten,
				At:          now,
			})
			log.WithCanonicalID(m.CanonicalID).Warn().
				Str("field", string(f)).
				Str("winner", string(winner.provider)).
				Msg("same-field conflict resolved by last-write-wins")
		}
	}

	return mergeResult{canonical: canonical, conflicts: conflicts}
}

// runMergeAll runs fieldLevelMerge for every mapping in state, applying
// each result back onto its mapping and collecting every conflict raised.
func runMergeAll(state *store.State, mode types.Mode, providers []provider.Named, snaps map[types.ProviderName]*snapshot, now time.Time) []types.SyncConflict {
	sources := sourceProviders(mode, providers)
	var conflicts []types.SyncConflict
	for _, m := range state.Mappings {
		result := fieldLevelMerge(m, sources, snaps, now)
		m.Canonical = result.canonical
		m.UpdatedAt = now
		conflicts = append(conflicts, result.conflicts...)
	}
	return conflicts
}

// pickWinner sorts contenders by updatedAt descending, ties broken by
// provider order, so equal timestamps never resolve arbitrarily.
func pickWinner(contenders []contender, order []types.ProviderName) contender {
	rank := make(map[types.ProviderName]int, len(order))
	for i, p := range order {
		rank[p] = i
	}

	best := contenders[0]
	for _, c := range contenders[1:] {
		if c.updatedAt.After(best.updatedAt) {
			best = c
			continue
		}
		if c.updatedAt.Equal(best.updatedAt) && rank[c.provider] < rank[best.provider] {
			best = c
		}
	}
	return best
}
