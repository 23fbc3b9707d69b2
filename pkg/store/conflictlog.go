package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/taskmesh/tasksync/pkg/types"
)

const conflictLogName = "conflicts.log"

// ConflictLog appends JSON-lines conflict records to conflicts.log. It is
// append-only; the engine never reads it back, and a write failure must
// not abort the cycle.
type ConflictLog struct {
	path string
}

// NewConflictLog returns a ConflictLog rooted at dir.
func NewConflictLog(dir string) *ConflictLog {
	return &ConflictLog{path: filepath.Join(dir, conflictLogName)}
}

// Append writes one line per conflict, each wrapped with its timestamp.
// Best-effort: an I/O error here is logged by the caller and does not
// propagate as a cycle failure.
func (c *ConflictLog) Append(conflicts []types.SyncConflict, at time.Time) error {
	if len(conflicts) == 0 {
		return nil
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("conflictlog: open: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, conflict := range conflicts {
		conflict.At = at
		if err := enc.Encode(conflict); err != nil {
			return fmt.Errorf("conflictlog: encode: %w", err)
		}
	}
	return nil
}
