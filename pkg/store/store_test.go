package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmesh/tasksync/pkg/types"
)

func TestEnsureMappingIdempotent(t *testing.T) {
	s := NewState()

	m1 := s.EnsureMapping("google", "g1")
	m2 := s.EnsureMapping("google", "g1")

	assert.Same(t, m1, m2)
	assert.Len(t, s.Mappings, 1)
}

func TestEnsureMappingDistinctProviderIDs(t *testing.T) {
	s := NewState()

	m1 := s.EnsureMapping("google", "g1")
	m2 := s.EnsureMapping("mstodo", "m1")

	assert.NotEqual(t, m1.CanonicalID, m2.CanonicalID)
	assert.Len(t, s.Mappings, 2)
}

func TestTombstoneLifecycle(t *testing.T) {
	s := NewState()
	now := time.Now()

	assert.False(t, s.IsTombstoned("google", "g1"))
	s.AddTombstone("google", "g1", now)
	assert.True(t, s.IsTombstoned("google", "g1"))

	pruned := s.PruneExpiredTombstones(30*24*time.Hour, now)
	assert.Equal(t, 0, pruned)
	assert.True(t, s.IsTombstoned("google", "g1"))

	pruned = s.PruneExpiredTombstones(30*24*time.Hour, now.Add(31*24*time.Hour))
	assert.Equal(t, 1, pruned)
	assert.False(t, s.IsTombstoned("google", "g1"))
}

func TestRemoveMappingDropsEmptyByProvider(t *testing.T) {
	s := NewState()
	m := s.EnsureMapping("google", "g1")
	s.DropProviderID(m.CanonicalID, "google")
	s.RemoveMapping(m.CanonicalID)

	_, ok := s.FindByCanonicalID(m.CanonicalID)
	assert.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	s := NewState()
	m := s.EnsureMapping("google", "g1")
	s.UpsertCanonicalSnapshot(m.CanonicalID, types.CanonicalTask{Title: "Buy milk"})
	now := time.Now().UTC().Round(time.Second)
	s.LastSyncAt = &now

	require.NoError(t, st.Save(s))

	loaded, err := st.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Mappings, 1)
	assert.Equal(t, "Buy milk", loaded.Mappings[0].Canonical.Title)
	require.NotNil(t, loaded.LastSyncAt)
	assert.True(t, loaded.LastSyncAt.Equal(now))

	_, err = os.Stat(filepath.Join(dir, stateFileName+".bak"))
	assert.True(t, os.IsNotExist(err), "no .bak expected before a second save")

	require.NoError(t, st.Save(loaded))
	_, err = os.Stat(filepath.Join(dir, stateFileName+".bak"))
	assert.NoError(t, err, ".bak expected after a second save")
}

func TestLoadMissingFileYieldsEmptyState(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	s, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, types.SchemaVersion, s.Version)
	assert.Empty(t, s.Mappings)
	assert.Nil(t, s.LastSyncAt)
}

func TestLoadCorruptFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644))

	st := New(dir)
	_, err := st.Load()
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestLoadMigratesV0(t *testing.T) {
	dir := t.TempDir()
	v0 := `{"mappings":[{"canonicalId":"c1","byProvider":{"google":"g1"},"canonical":{"title":"x","status":"active","updatedAt":"2024-01-01T00:00:00Z"}}],"tombstones":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte(v0), 0o644))

	st := New(dir)
	s, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, types.SchemaVersion, s.Version)
	require.Len(t, s.Mappings, 1)
	assert.False(t, s.Mappings[0].UpdatedAt.IsZero())
}

func TestConflictLogAppend(t *testing.T) {
	dir := t.TempDir()
	cl := NewConflictLog(dir)

	err := cl.Append([]types.SyncConflict{
		{CanonicalID: "c1", Field: types.FieldTitle, Winner: "google"},
	}, time.Now())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, conflictLogName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"canonicalId":"c1"`)
}
