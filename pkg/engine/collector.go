package engine

import (
	"context"
	"sync"
	"time"

	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/types"
)

// snapshot is one provider's view collected for this cycle. changes is the
// incremental since-watermark listing (its own index lets the deletion
// resolver see an explicit status=deleted even for an id the full listing
// no longer returns at all); all/indexByID is the authoritative full
// listing used everywhere else.
type snapshot struct {
	changes     []types.ProviderTask
	changesByID map[string]types.ProviderTask
	all         []types.ProviderTask
	indexByID   map[string]types.ProviderTask
	healthy     bool
}

// collectSnapshots concurrently fetches (changes-since-watermark, full-list)
// from every provider, tolerant to per-provider failure. A provider whose
// full list fails is marked unhealthy and excluded from this cycle's
// reconciliation so its mappings are left untouched.
func collectSnapshots(ctx context.Context, providers []provider.Named, since *time.Time) (map[types.ProviderName]*snapshot, []types.SyncError) {
	results := make(map[types.ProviderName]*snapshot, len(providers))
	var errs []types.SyncError
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range providers {
		p := p
		snap := &snapshot{}
		results[p.Name] = snap
		wg.Add(2)

		go func() {
			defer wg.Done()
			changes, err := p.Provider.ListTasks(ctx, since)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, types.SyncError{
					Stage: types.StageListChanges, Provider: p.Name, Message: err.Error(),
				})
				log.WithProvider(string(p.Name)).Warn().Err(err).Msg("listChanges failed")
				return
			}
			snap.changes = changes
			snap.changesByID = make(map[string]types.ProviderTask, len(changes))
			for _, t := range changes {
				snap.changesByID[t.ID] = t
			}
		}()

		go func() {
			defer wg.Done()
			all, err := p.Provider.ListTasks(ctx, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, types.SyncError{
					Stage: types.StageListAll, Provider: p.Name, Message: err.Error(),
				})
				log.WithProvider(string(p.Name)).Warn().Err(err).Msg("listAll failed, marking provider unhealthy for this cycle")
				return
			}
			snap.all = all
			snap.healthy = true
			snap.indexByID = make(map[string]types.ProviderTask, len(all))
			for _, t := range all {
				snap.indexByID[t.ID] = t
			}
		}()
	}

	wg.Wait()
	return results, errs
}

// healthyProviders returns the subset of providers whose full snapshot
// succeeded this cycle, in their original (sync-mode-significant) order.
func healthyProviders(providers []provider.Named, snaps map[types.ProviderName]*snapshot) []provider.Named {
	out := make([]provider.Named, 0, len(providers))
	for _, p := range providers {
		if snaps[p.Name].healthy {
			out = append(out, p)
		}
	}
	return out
}
