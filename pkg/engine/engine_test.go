package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/tasksync/pkg/config"
	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/provider/memsim"
	"github.com/taskmesh/tasksync/pkg/store"
	"github.com/taskmesh/tasksync/pkg/types"
)

const (
	provA types.ProviderName = "A"
	provB types.ProviderName = "B"
)

func newTestEngine(t *testing.T, mode types.Mode, a, b *memsim.Provider) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.StateDir = dir
	cfg.Mode = mode
	cfg.TombstoneTTLDays = 30
	providers := []provider.Named{
		{Name: provA, Provider: a},
		{Name: provB, Provider: b},
	}
	return New(cfg, providers), dir
}

func loadState(t *testing.T, dir string) *store.State {
	t.Helper()
	s, err := store.New(dir).Load()
	require.NoError(t, err)
	return s
}

// TestColdStartDedup verifies that two providers holding the same task
// under different ids, with empty state, produce a single mapping joining
// them in one cycle, with no create or delete actions.
func TestColdStartDedup(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	now := time.Now()
	a.Put("a1", types.CanonicalTask{Title: "Buy milk", Status: types.StatusActive, UpdatedAt: now})
	b.Put("b1", types.CanonicalTask{Title: "buy milk", Status: types.StatusActive, UpdatedAt: now})

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)
	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	state := loadState(t, dir)
	require.Len(t, state.Mappings, 1)
	m := state.Mappings[0]
	assert.Equal(t, "a1", m.ByProvider[provA])
	assert.Equal(t, "b1", m.ByProvider[provB])

	for _, act := range report.Actions {
		assert.NotEqual(t, types.ActionCreate, act.Kind)
		assert.NotEqual(t, types.ActionDelete, act.Kind)
	}
}

// TestDisjointFieldMerge verifies that when two providers each change a
// different field from the shared baseline, the merged canonical carries
// both changes and the cycle raises no conflicts.
func TestDisjointFieldMerge(t *testing.T) {
	a := memsim.New()
	b := memsim.New()

	t0 := time.Now().Add(-3 * time.Hour)
	t1 := time.Now().Add(-2 * time.Hour)
	t2 := time.Now().Add(-1 * time.Hour)

	a.Put("a1", types.CanonicalTask{Title: "T2", Notes: "n0", Status: types.StatusActive, UpdatedAt: t2})
	b.Put("b1", types.CanonicalTask{Title: "T", Notes: "n1", Status: types.StatusActive, UpdatedAt: t1})

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)

	seed := store.NewState()
	seed.Mappings = append(seed.Mappings, &types.Mapping{
		CanonicalID: "c1",
		ByProvider:  map[types.ProviderName]string{provA: "a1", provB: "b1"},
		Canonical:   types.CanonicalTask{Title: "T", Notes: "n0", Status: types.StatusActive, UpdatedAt: t0},
		UpdatedAt:   t0,
	})
	require.NoError(t, store.New(dir).Save(seed))

	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)

	state := loadState(t, dir)
	m := state.Mappings[0]
	assert.Equal(t, "T2", m.Canonical.Title)
	assert.Equal(t, "n1", m.Canonical.Notes)

	aTask, ok := a.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "T2", aTask.Title)
	assert.Equal(t, "n1", aTask.Notes)

	bTask, ok := b.Get("b1")
	require.True(t, ok)
	assert.Equal(t, "T2", bTask.Title)
	assert.Equal(t, "n1", bTask.Notes)
}

// TestSameFieldConflict verifies that when both providers change title
// from the same baseline, the later timestamp wins and one conflict
// record names the loser.
func TestSameFieldConflict(t *testing.T) {
	a := memsim.New()
	b := memsim.New()

	t0 := time.Now().Add(-3 * time.Hour)
	t1 := time.Now().Add(-2 * time.Hour)
	t2 := time.Now().Add(-1 * time.Hour)

	a.Put("a1", types.CanonicalTask{Title: "Ta", Status: types.StatusActive, UpdatedAt: t1})
	b.Put("b1", types.CanonicalTask{Title: "Tb", Status: types.StatusActive, UpdatedAt: t2})

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)

	seed := store.NewState()
	seed.Mappings = append(seed.Mappings, &types.Mapping{
		CanonicalID: "c1",
		ByProvider:  map[types.ProviderName]string{provA: "a1", provB: "b1"},
		Canonical:   types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: t0},
		UpdatedAt:   t0,
	})
	require.NoError(t, store.New(dir).Save(seed))

	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Conflicts, 1)
	conflict := report.Conflicts[0]
	assert.Equal(t, types.FieldTitle, conflict.Field)
	assert.Equal(t, provB, conflict.Winner)
	assert.Equal(t, []types.ProviderName{provA}, conflict.Overwritten)

	state := loadState(t, dir)
	assert.Equal(t, "Tb", state.Mappings[0].Canonical.Title)

	aTask, _ := a.Get("a1")
	bTask, _ := b.Get("b1")
	assert.Equal(t, "Tb", aTask.Title)
	assert.Equal(t, "Tb", bTask.Title)
}

// TestExternalDeletionWithBaseline verifies that when b1 vanishes from
// provider B's listing, the cycle tombstones both sides and issues a
// delete to the remaining side.
func TestExternalDeletionWithBaseline(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	now := time.Now()
	a.Put("a1", types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: now})
	// b1 is intentionally absent from b's listing this cycle.

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)

	past := now.Add(-time.Hour)
	seed := store.NewState()
	seed.LastSyncAt = &past
	seed.Mappings = append(seed.Mappings, &types.Mapping{
		CanonicalID: "c1",
		ByProvider:  map[types.ProviderName]string{provA: "a1", provB: "b1"},
		Canonical:   types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: past},
		UpdatedAt:   past,
	})
	require.NoError(t, store.New(dir).Save(seed))

	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	var sawDeleteToA bool
	for _, act := range report.Actions {
		if act.Kind == types.ActionDelete && act.Provider == provA {
			sawDeleteToA = true
		}
	}
	assert.True(t, sawDeleteToA, "expected a delete fanned out to provider A")

	state := loadState(t, dir)
	assert.Empty(t, state.Mappings, "mapping should be swept once byProvider is empty")
	assert.True(t, state.IsTombstoned(provA, "a1"))
	assert.True(t, state.IsTombstoned(provB, "b1"))
	assert.Equal(t, 0, a.Len(), "a1 should have been deleted from provider A")
}

// TestCompletionIsNotDeletion verifies that a status=completed change
// propagates as an update, never a delete.
func TestCompletionIsNotDeletion(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	t0 := time.Now().Add(-time.Hour)
	tNew := time.Now()

	a.Put("a1", types.CanonicalTask{Title: "T", Status: types.StatusCompleted, UpdatedAt: tNew})
	b.Put("b1", types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: t0})

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)
	seed := store.NewState()
	seed.Mappings = append(seed.Mappings, &types.Mapping{
		CanonicalID: "c1",
		ByProvider:  map[types.ProviderName]string{provA: "a1", provB: "b1"},
		Canonical:   types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: t0},
		UpdatedAt:   t0,
	})
	require.NoError(t, store.New(dir).Save(seed))

	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	for _, act := range report.Actions {
		assert.NotEqual(t, types.ActionDelete, act.Kind)
	}

	bTask, ok := b.Get("b1")
	require.True(t, ok)
	assert.Equal(t, types.StatusCompleted, bTask.Status)
}

// TestGracefulDegradation verifies that when one provider fails listAll,
// the other still reconciles and the failure is recorded as a SyncError,
// not a fatal cycle error.
func TestGracefulDegradation(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	b.FailListAll = assertErr{"boom"}

	now := time.Now()
	a.Put("a1", types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: now})

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)

	// Seed a non-nil lastSyncAt so the incremental listChanges call (which
	// passes a non-nil `since`) is distinguishable from the full listAll
	// call memsim's FailListAll guards, and only the latter fails.
	past := now.Add(-time.Hour)
	seed := store.NewState()
	seed.LastSyncAt = &past
	require.NoError(t, store.New(dir).Save(seed))

	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, provB, report.Errors[0].Provider)
	assert.Equal(t, types.StageListAll, report.Errors[0].Stage)
}

// TestIdempotence verifies that a second cycle with no external changes
// and no degraded providers emits only noops.
func TestIdempotence(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	now := time.Now()
	a.Put("a1", types.CanonicalTask{Title: "Same task", Status: types.StatusActive, UpdatedAt: now})
	b.Put("b1", types.CanonicalTask{Title: "same task", Status: types.StatusActive, UpdatedAt: now})

	eng, _ := newTestEngine(t, types.ModeBidirectional, a, b)
	_, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	second, err := eng.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Actions)
	assert.Empty(t, second.Conflicts)
}

// TestMonotonicWatermark verifies that lastSyncAt never regresses across
// cycles.
func TestMonotonicWatermark(t *testing.T) {
	a := memsim.New()
	b := memsim.New()

	eng, _ := newTestEngine(t, types.ModeBidirectional, a, b)
	first, err := eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first.NewWatermark)

	second, err := eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second.NewWatermark)
	assert.True(t, !second.NewWatermark.Before(*first.NewWatermark))
}

// TestTombstoneSuppression verifies that a tombstoned (provider, id) is
// never recreated on a later cycle, even once the mapping it used to
// belong to is gone.
func TestTombstoneSuppression(t *testing.T) {
	a := memsim.New()
	b := memsim.New()

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)
	seed := store.NewState()
	seed.AddTombstone(provA, "a1", time.Now())
	require.NoError(t, store.New(dir).Save(seed))

	a.Put("a1", types.CanonicalTask{Title: "resurrected?", Status: types.StatusActive, UpdatedAt: time.Now()})

	_, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	state := loadState(t, dir)
	assert.Empty(t, state.Mappings, "tombstoned id must not be (re)mapped")
}

// TestColdStartNotRetriggeredAfterMappingsEmptied verifies that once
// lastSyncAt is set, an empty mappings list alone is not enough to
// re-enter cold-start dedup: two same-titled tasks observed after that
// point are independent tasks, not a first-run match, and get their own
// singleton mappings instead of being joined into one.
func TestColdStartNotRetriggeredAfterMappingsEmptied(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	now := time.Now()
	a.Put("a1", types.CanonicalTask{Title: "Buy milk", Status: types.StatusActive, UpdatedAt: now})
	b.Put("b1", types.CanonicalTask{Title: "buy milk", Status: types.StatusActive, UpdatedAt: now})

	eng, dir := newTestEngine(t, types.ModeBidirectional, a, b)
	past := now.Add(-time.Hour)
	seed := store.NewState()
	seed.LastSyncAt = &past
	require.NoError(t, store.New(dir).Save(seed))

	_, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	state := loadState(t, dir)
	require.Len(t, state.Mappings, 2, "a prior cycle already happened, so matching tasks must not be cold-start-deduped")
}

// TestOneWaySourceNeverWritten verifies that in a-to-b-only mode the
// source provider is never written to: a local edit on the target is
// overwritten back to the source's value, and no write action ever
// targets the source provider.
func TestOneWaySourceNeverWritten(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	now := time.Now()
	a.Put("a1", types.CanonicalTask{Title: "From A", Status: types.StatusActive, UpdatedAt: now})

	eng, dir := newTestEngine(t, types.ModeAToBOnly, a, b)
	_, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	state := loadState(t, dir)
	require.Len(t, state.Mappings, 1)
	b1 := state.Mappings[0].ByProvider[provB]
	bTask, ok := b.Get(b1)
	require.True(t, ok)
	assert.Equal(t, "From A", bTask.Title)

	// Edit the target directly, as if a user changed it there.
	bTask.Title = "Edited on B"
	bTask.UpdatedAt = now.Add(time.Hour)
	b.Put(b1, bTask)

	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	for _, act := range report.Actions {
		assert.NotEqual(t, provA, act.Provider, "source provider must never be written to")
	}

	state = loadState(t, dir)
	assert.Equal(t, "From A", state.Mappings[0].Canonical.Title, "target's edit must not win a field")
	bTask, ok = b.Get(b1)
	require.True(t, ok)
	assert.Equal(t, "From A", bTask.Title, "target's local edit must be overwritten back to the source's value")
}

// TestOneWayDeleteSuppressedAndRecreated verifies that in a-to-b-only
// mode a deletion observed on the non-source provider is suppressed
// (tombstoned locally, not propagated as a delete to the source) and the
// task is recreated on the target rather than removed from the source.
func TestOneWayDeleteSuppressedAndRecreated(t *testing.T) {
	a := memsim.New()
	b := memsim.New()
	a.Put("a1", types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: time.Now()})
	// b1 is intentionally absent: simulates a deletion on the target side.

	eng, dir := newTestEngine(t, types.ModeAToBOnly, a, b)
	past := time.Now().Add(-time.Hour)
	seed := store.NewState()
	seed.LastSyncAt = &past
	seed.Mappings = append(seed.Mappings, &types.Mapping{
		CanonicalID: "c1",
		ByProvider:  map[types.ProviderName]string{provA: "a1", provB: "b1"},
		Canonical:   types.CanonicalTask{Title: "T", Status: types.StatusActive, UpdatedAt: past},
		UpdatedAt:   past,
	})
	require.NoError(t, store.New(dir).Save(seed))

	report, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	for _, act := range report.Actions {
		assert.NotEqual(t, provA, act.Provider, "source provider must never be written to, including deletes")
	}

	state := loadState(t, dir)
	require.Len(t, state.Mappings, 1, "mapping survives: provider A's entry was never touched")
	assert.Equal(t, "a1", state.Mappings[0].ByProvider[provA])
	assert.True(t, state.IsTombstoned(provB, "b1"), "the vanished target id is tombstoned, not propagated as a source delete")

	newB, hasB := state.Mappings[0].ByProvider[provB]
	require.True(t, hasB, "the task must be recreated on the target rather than left missing")
	bTask, ok := b.Get(newB)
	require.True(t, ok)
	assert.Equal(t, "T", bTask.Title)
}

// assertErr is a trivial error for FailListAll injection.
type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
