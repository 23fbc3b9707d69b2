package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/store"
	"github.com/taskmesh/tasksync/pkg/types"
)

// coldStartKey normalizes a task's title and notes into one dedup key.
// Case and surrounding whitespace are never significant for a first-run
// match: two providers rarely agree on capitalization.
func coldStartKey(t types.CanonicalTask) string {
	return strings.ToLower(strings.TrimSpace(t.Title)) + "\x00" + strings.ToLower(strings.TrimSpace(t.Notes))
}

// runColdStart groups every not-yet-mapped, non-deleted task across the
// healthy providers by (title, notes) and, for every group spanning two or
// more distinct providers, creates a single mapping linking them — so the
// very first cycle against two previously independent lists doesn't create
// a duplicate of everything already shared.
//
// It must run before ensureMappingsForObservedTasks, which would otherwise
// greedily claim every observed task into its own singleton mapping.
func runColdStart(state *store.State, providers []provider.Named, snaps map[types.ProviderName]*snapshot, now time.Time) {
	type candidate struct {
		provider types.ProviderName
		task     types.ProviderTask
	}
	groups := map[string][]candidate{}
	var keyOrder []string

	for _, p := range providers {
		snap := snaps[p.Name]
		if !snap.healthy {
			continue
		}
		for _, pt := range snap.all {
			if pt.Task.Status == types.StatusDeleted {
				continue
			}
			if state.IsTombstoned(p.Name, pt.ID) {
				continue
			}
			if _, mapped := state.FindMapping(p.Name, pt.ID); mapped {
				continue
			}
			key := coldStartKey(pt.Task)
			if key == "\x00" {
				continue // blank title+notes never dedups
			}
			if _, seen := groups[key]; !seen {
				keyOrder = append(keyOrder, key)
			}
			groups[key] = append(groups[key], candidate{provider: p.Name, task: pt})
		}
	}

	sort.Strings(keyOrder)
	for _, key := range keyOrder {
		members := groups[key]
		distinct := map[types.ProviderName]bool{}
		for _, c := range members {
			distinct[c.provider] = true
		}
		if len(distinct) < 2 {
			continue
		}

		byProvider := map[types.ProviderName]string{}
		var seed types.CanonicalTask
		seeded := false
		for _, c := range members {
			if _, dup := byProvider[c.provider]; dup {
				continue // only the first task per provider joins this group
			}
			byProvider[c.provider] = c.task.ID
			if !seeded {
				seed = c.task.Task
				seeded = true
			}
		}

		m := state.EnsureMapping(members[0].provider, members[0].task.ID)
		m.ByProvider = byProvider
		m.Canonical = seed
		m.UpdatedAt = now
		log.WithCanonicalID(m.CanonicalID).Info().Int("providers", len(byProvider)).Msg("cold-start matched task across providers")
	}
}
