package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/taskmesh/tasksync/pkg/log"
	"github.com/taskmesh/tasksync/pkg/types"
)

// ErrCorruptState is returned by Load when state.json exists but cannot be
// parsed. A malformed file is fatal and is never silently wiped.
var ErrCorruptState = errors.New("store: state file is corrupt")

const stateFileName = "state.json"

// Store persists one SyncState document to a state directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory must already exist.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (st *Store) path() string    { return filepath.Join(st.dir, stateFileName) }
func (st *Store) tmpPath() string { return filepath.Join(st.dir, stateFileName+".tmp") }
func (st *Store) bakPath() string { return filepath.Join(st.dir, stateFileName+".bak") }

// Load reads state.json, migrating a v0 (no version field) document to the
// current schema in memory. A missing file yields an empty default state.
func (st *Store) Load() (*State, error) {
	data, err := os.ReadFile(st.path())
	if os.IsNotExist(err) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read: %w", err)
	}

	var raw struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	var doc types.SyncState
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	if raw.Version == nil {
		migrateV0ToV1(&doc)
		log.WithComponent("store").Info().Msg("migrated state document from schema v0 to v1")
	}
	if doc.Mappings == nil {
		doc.Mappings = []*types.Mapping{}
	}
	if doc.Tombstones == nil {
		doc.Tombstones = []types.Tombstone{}
	}
	return &State{SyncState: &doc}, nil
}

// migrateV0ToV1 fills defaults for the pre-schema-version document shape:
// a present version field, normalized byProvider maps, and updatedAt
// timestamps. Migration only reads the source; Save persists v1.
func migrateV0ToV1(doc *types.SyncState) {
	doc.Version = types.SchemaVersion
	for _, m := range doc.Mappings {
		if m.ByProvider == nil {
			m.ByProvider = map[types.ProviderName]string{}
		}
		if m.UpdatedAt.IsZero() {
			m.UpdatedAt = m.Canonical.UpdatedAt
		}
	}
}

// Save crash-atomically persists state: serialize to a sibling temp file,
// best-effort back up the current file, then atomically rename the temp
// file onto the target path. I/O failures here are fatal for the cycle:
// no partial state is ever published.
func (st *Store) Save(state *State) error {
	state.Version = types.SchemaVersion

	data, err := json.MarshalIndent(state.SyncState, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	if err := os.WriteFile(st.tmpPath(), data, 0o644); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}

	if err := backup(st.path(), st.bakPath()); err != nil {
		log.WithComponent("store").Warn().Err(err).Msg("failed to write .bak sibling, continuing")
	}

	if err := os.Rename(st.tmpPath(), st.path()); err != nil {
		return fmt.Errorf("store: atomic rename: %w", err)
	}
	return nil
}

// backup best-effort copies the current state file to path.bak. Absence
// of the source file (first save ever) is not an error.
func backup(src, dst string) error {
	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
