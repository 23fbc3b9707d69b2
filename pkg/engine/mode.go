package engine

import (
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/types"
)

// sourceProviders returns the providers whose edits are treated as
// contenders by the field-level merger. In bidirectional mode every
// provider sources; in a-to-b-only and mirror, only provider[0] does —
// the target sides are write-only and their own local edits never win a
// field, they are simply overwritten.
func sourceProviders(mode types.Mode, providers []provider.Named) []provider.Named {
	if mode == types.ModeBidirectional || len(providers) == 0 {
		return providers
	}
	return providers[:1]
}

// targetProviders returns the providers the fan-out writer is allowed to
// write to. In bidirectional mode that is every provider; otherwise it
// excludes the immune provider[0].
func targetProviders(mode types.Mode, providers []provider.Named) []provider.Named {
	if mode == types.ModeBidirectional || len(providers) == 0 {
		return providers
	}
	return providers[1:]
}
