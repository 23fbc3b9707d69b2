package types

import "time"

// ProviderName identifies a remote task provider participating in a sync
// (e.g. "google", "mstodo"). It is also the key used in Mapping.ByProvider
// and Tombstone.Provider.
type ProviderName string

// TaskStatus is the lifecycle state of a CanonicalTask.
type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusCompleted TaskStatus = "completed"
	StatusDeleted   TaskStatus = "deleted"
)

// Importance mirrors the three-level importance scale both Google Tasks and
// Microsoft To Do expose (lossily, in opposite directions from each other).
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// Step is one ordered checklist entry of a CanonicalTask.
type Step struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// CanonicalTask is the engine's merged logical view of one task. It is the
// baseline every provider snapshot is diffed against (pkg/engine field
// merger) and the shape every provider adapter must translate to and from.
type CanonicalTask struct {
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	DueAt      *time.Time `json:"dueAt,omitempty"`
	DueTime    string     `json:"dueTime,omitempty"` // "HH:MM", empty if unset
	Status     TaskStatus `json:"status"`
	Reminder   *time.Time `json:"reminder,omitempty"`
	Recurrence string     `json:"recurrence,omitempty"` // opaque rule string
	Categories []string   `json:"categories,omitempty"`
	Importance Importance `json:"importance,omitempty"`
	Steps      []Step     `json:"steps,omitempty"`
	StartAt    *time.Time `json:"startAt,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FieldName enumerates the CanonicalTask fields the field-level merger
// resolves independently. Keeping this as a closed, compile-time-checked
// list (rather than reflecting over struct tags) prevents a typo from
// silently dropping a field out of conflict resolution.
type FieldName string

const (
	FieldTitle      FieldName = "title"
	FieldNotes      FieldName = "notes"
	FieldDueAt      FieldName = "dueAt"
	FieldDueTime    FieldName = "dueTime"
	FieldStatus     FieldName = "status"
	FieldReminder   FieldName = "reminder"
	FieldRecurrence FieldName = "recurrence"
	FieldCategories FieldName = "categories"
	FieldImportance FieldName = "importance"
	FieldSteps      FieldName = "steps"
	FieldStartAt    FieldName = "startAt"
)

// MergeableFields is every field the field-level merger diffs and resolves.
// updatedAt itself is derived, not diffed, so it is excluded.
var MergeableFields = []FieldName{
	FieldTitle, FieldNotes, FieldDueAt, FieldDueTime, FieldStatus,
	FieldReminder, FieldRecurrence, FieldCategories, FieldImportance,
	FieldSteps, FieldStartAt,
}

// ProviderTask is a CanonicalTask as observed from one provider, carrying
// that provider's opaque id alongside it.
type ProviderTask struct {
	Provider ProviderName
	ID       string
	Task     CanonicalTask
}

// Mapping is the central identity record: one per logical task, linking a
// stable canonicalId to the per-provider ids and holding the last
// successfully reconciled baseline used for three-way diffs.
type Mapping struct {
	CanonicalID string                  `json:"canonicalId"`
	ByProvider  map[ProviderName]string `json:"byProvider"`
	Canonical   CanonicalTask           `json:"canonical"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// HasProvider reports whether the mapping currently holds an id for p.
func (m *Mapping) HasProvider(p ProviderName) bool {
	_, ok := m.ByProvider[p]
	return ok
}

// Empty reports whether the mapping has lost every provider side.
func (m *Mapping) Empty() bool {
	return len(m.ByProvider) == 0
}

// Tombstone forbids (re)creation of a specific provider-id until it expires.
type Tombstone struct {
	Provider  ProviderName `json:"provider"`
	ID        string       `json:"id"`
	DeletedAt time.Time    `json:"deletedAt"`
}

// Expired reports whether this tombstone is older than ttl as of now.
func (t Tombstone) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.DeletedAt) > ttl
}

// Key identifies the (provider, id) pair a tombstone guards.
type TombstoneKey struct {
	Provider ProviderName
	ID       string
}

func (t Tombstone) Key() TombstoneKey {
	return TombstoneKey{Provider: t.Provider, ID: t.ID}
}

// SchemaVersion is the current SyncState on-disk schema version.
const SchemaVersion = 1

// SyncState is the single logical document persisted to state.json.
type SyncState struct {
	Version    int         `json:"version"`
	LastSyncAt *time.Time  `json:"lastSyncAt,omitempty"`
	Mappings   []*Mapping  `json:"mappings"`
	Tombstones []Tombstone `json:"tombstones"`
}

// Mode selects which providers source changes and which only receive them.
type Mode string

const (
	// ModeBidirectional: every healthy provider is both source and target.
	ModeBidirectional Mode = "bidirectional"
	// ModeAToBOnly: provider[0] sources only; never written back to.
	ModeAToBOnly Mode = "a-to-b-only"
	// ModeMirror: provider[0] is authoritative and is never written to.
	ModeMirror Mode = "mirror"
)

// ActionKind is the kind of write the fan-out writer executed.
type ActionKind string

const (
	ActionCreate   ActionKind = "create"
	ActionUpdate   ActionKind = "update"
	ActionRecreate ActionKind = "recreate"
	ActionDelete   ActionKind = "delete"
	ActionNoop     ActionKind = "noop"
)

// Action records one write the fan-out writer (or deletion resolver)
// executed against a single provider for a single mapping.
type Action struct {
	Kind        ActionKind   `json:"kind"`
	CanonicalID string       `json:"canonicalId"`
	Provider    ProviderName `json:"provider"`
	ProviderID  string       `json:"providerId,omitempty"`
}

// ErrorStage classifies where a SyncError originated.
type ErrorStage string

const (
	StageListChanges ErrorStage = "listChanges"
	StageListAll     ErrorStage = "listAll"
	StageWrite       ErrorStage = "write"
)

// SyncError is one recorded, non-fatal failure from a cycle.
type SyncError struct {
	Stage    ErrorStage   `json:"stage"`
	Provider ProviderName `json:"provider"`
	Message  string       `json:"message"`
}

// SyncConflict records a true same-field conflict the field-level merger
// resolved by last-write-wins, for audit purposes (conflicts.log).
type SyncConflict struct {
	CanonicalID string         `json:"canonicalId"`
	Field       FieldName      `json:"field"`
	Providers   []ProviderName `json:"providers"`
	Winner      ProviderName   `json:"winner"`
	Overwritten []ProviderName `json:"overwritten"`
	At          time.Time      `json:"at"`
}

// SyncReport is the structured result of one cycle, returned by the
// orchestrator regardless of whether individual providers degraded.
type SyncReport struct {
	Mode         Mode           `json:"mode"`
	Providers    []ProviderName `json:"providers"`
	OldWatermark *time.Time     `json:"oldWatermark,omitempty"`
	NewWatermark *time.Time     `json:"newWatermark,omitempty"`
	Actions      []Action       `json:"actions"`
	Conflicts    []SyncConflict `json:"conflicts"`
	Errors       []SyncError    `json:"errors"`
	NoopCount    int            `json:"noopCount"`
	Duration     time.Duration  `json:"duration"`
	DryRun       bool           `json:"dryRun"`
}

// CountByKind tallies executed (non-noop) actions by kind, for metrics.
func (r *SyncReport) CountByKind() map[ActionKind]int {
	out := make(map[ActionKind]int)
	for _, a := range r.Actions {
		out[a.Kind]++
	}
	return out
}
