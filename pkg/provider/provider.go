package provider

import (
	"context"
	"time"

	"github.com/taskmesh/tasksync/pkg/types"
)

// Provider is the abstract boundary every remote task provider implements.
// All network code — OAuth refresh, pagination, provider-specific field
// serialization (e.g. RRULE <-> Graph recurrence, rich-field notes
// encoding) — lives behind this interface and outside the engine.
type Provider interface {
	// ListTasks returns a full snapshot when since is nil, or an
	// incremental set (tasks modified at or after since) when it is set.
	// Returned tasks carry the provider's opaque id as ProviderTask.ID.
	ListTasks(ctx context.Context, since *time.Time) ([]types.ProviderTask, error)

	// UpsertTask creates a task when input.ID is empty, otherwise patches
	// the existing one. It returns the authoritative stored record,
	// including any server-assigned id.
	UpsertTask(ctx context.Context, input types.ProviderTask) (types.ProviderTask, error)

	// DeleteTask deletes the task with the given provider-local id. It is
	// idempotent from the engine's point of view: deleting an id that is
	// already gone is not an error.
	DeleteTask(ctx context.Context, id string) error
}

// Named pairs a Provider with the ProviderName the engine addresses it by
// in mappings, tombstones, and sync mode ordering.
type Named struct {
	Name     types.ProviderName
	Provider Provider
}
