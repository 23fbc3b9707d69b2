package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/tasksync/pkg/types"
)

// State wraps the persisted SyncState document with the mutation helpers
// the engine drives a cycle through. It is loaded once per cycle, mutated
// in place, and saved once at the end.
type State struct {
	*types.SyncState
}

// NewState returns an empty, current-schema state document.
func NewState() *State {
	return &State{SyncState: &types.SyncState{
		Version:    types.SchemaVersion,
		Mappings:   []*types.Mapping{},
		Tombstones: []types.Tombstone{},
	}}
}

// FindMapping returns the mapping holding (provider, id), if any.
func (s *State) FindMapping(provider types.ProviderName, id string) (*types.Mapping, bool) {
	for _, m := range s.Mappings {
		if pid, ok := m.ByProvider[provider]; ok && pid == id {
			return m, true
		}
	}
	return nil, false
}

// FindByCanonicalID returns the mapping with the given canonicalId, if any.
func (s *State) FindByCanonicalID(id string) (*types.Mapping, bool) {
	for _, m := range s.Mappings {
		if m.CanonicalID == id {
			return m, true
		}
	}
	return nil, false
}

// EnsureMapping is idempotent: it returns the existing mapping for
// (provider, id) if one exists, or inserts a fresh mapping (with a newly
// assigned canonicalId) linking that single provider id.
func (s *State) EnsureMapping(provider types.ProviderName, id string) *types.Mapping {
	if m, ok := s.FindMapping(provider, id); ok {
		return m
	}
	m := &types.Mapping{
		CanonicalID: uuid.NewString(),
		ByProvider:  map[types.ProviderName]string{provider: id},
		UpdatedAt:   time.Now(),
	}
	s.Mappings = append(s.Mappings, m)
	return m
}

// UpsertProviderID records a provider id on an existing mapping, invariant
// 1 (no (provider, id) aliasing) is the caller's responsibility to
// preserve by checking FindMapping first.
func (s *State) UpsertProviderID(canonicalID string, provider types.ProviderName, id string) {
	m, ok := s.FindByCanonicalID(canonicalID)
	if !ok {
		return
	}
	if m.ByProvider == nil {
		m.ByProvider = map[types.ProviderName]string{}
	}
	m.ByProvider[provider] = id
	m.UpdatedAt = time.Now()
}

// UpsertCanonicalSnapshot replaces a mapping's baseline canonical task.
func (s *State) UpsertCanonicalSnapshot(canonicalID string, canonical types.CanonicalTask) {
	m, ok := s.FindByCanonicalID(canonicalID)
	if !ok {
		return
	}
	m.Canonical = canonical
	m.UpdatedAt = time.Now()
}

// DropProviderID removes one provider's id from a mapping (e.g. after
// tombstoning an external delete), without removing the mapping itself.
func (s *State) DropProviderID(canonicalID string, provider types.ProviderName) {
	m, ok := s.FindByCanonicalID(canonicalID)
	if !ok {
		return
	}
	delete(m.ByProvider, provider)
	m.UpdatedAt = time.Now()
}

// RemoveMapping deletes the mapping with the given canonicalId (invariant
// 5: mappings with an empty byProvider are removed).
func (s *State) RemoveMapping(canonicalID string) {
	out := s.Mappings[:0]
	for _, m := range s.Mappings {
		if m.CanonicalID != canonicalID {
			out = append(out, m)
		}
	}
	s.Mappings = out
}

// AddTombstone records a tombstone, forbidding recreation of (provider, id)
// until it expires. Writing the same key again simply refreshes DeletedAt.
func (s *State) AddTombstone(provider types.ProviderName, id string, deletedAt time.Time) {
	for i, t := range s.Tombstones {
		if t.Provider == provider && t.ID == id {
			s.Tombstones[i].DeletedAt = deletedAt
			return
		}
	}
	s.Tombstones = append(s.Tombstones, types.Tombstone{
		Provider: provider, ID: id, DeletedAt: deletedAt,
	})
}

// IsTombstoned reports whether (provider, id) is currently tombstoned.
func (s *State) IsTombstoned(provider types.ProviderName, id string) bool {
	for _, t := range s.Tombstones {
		if t.Provider == provider && t.ID == id {
			return true
		}
	}
	return false
}

// PruneExpiredTombstones removes tombstones older than ttl as of now,
// returning how many were pruned.
func (s *State) PruneExpiredTombstones(ttl time.Duration, now time.Time) int {
	kept := s.Tombstones[:0]
	pruned := 0
	for _, t := range s.Tombstones {
		if t.Expired(now, ttl) {
			pruned++
			continue
		}
		kept = append(kept, t)
	}
	s.Tombstones = kept
	return pruned
}
