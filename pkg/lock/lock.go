package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/taskmesh/tasksync/pkg/log"
)

// ErrHeld is returned by Acquire when another live process holds the lock.
var ErrHeld = errors.New("lock: another run in progress")

const fileName = "lock"

// fileState is the JSON shape persisted to the lock file.
type fileState struct {
	PID int       `json:"pid"`
	At  time.Time `json:"at"`
}

// Lock is a file-based mutual exclusion guard over a state directory.
type Lock struct {
	path string
}

// New returns a Lock for the given state directory. The directory must
// already exist.
func New(stateDir string) *Lock {
	return &Lock{path: filepath.Join(stateDir, fileName)}
}

// Acquire attempts exclusive creation of the lock file. If the file already
// exists, it inspects the recorded holder: if that pid is no longer alive,
// or the file is unparsable, it overwrites the lock (stale-lock recovery).
// Otherwise it returns ErrHeld.
func (l *Lock) Acquire() error {
	if err := l.tryCreate(); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return fmt.Errorf("lock: create: %w", err)
	}

	existing, err := readFile(l.path)
	if err != nil {
		log.WithComponent("lock").Warn().Err(err).Msg("lock file unparsable, recovering stale lock")
		return l.forceWrite()
	}

	if processAlive(existing.PID) {
		return ErrHeld
	}

	log.WithComponent("lock").Warn().
		Int("stale_pid", existing.PID).
		Time("held_since", existing.At).
		Msg("recovering stale lock from dead process")
	return l.forceWrite()
}

// Release best-effort removes the lock file. Errors are ignored: a failed
// unlink does not corrupt state, it only risks a future stale-lock
// recovery, which Acquire already handles.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		log.WithComponent("lock").Warn().Err(err).Msg("failed to release lock file")
	}
}

// Guard acquires the lock, runs fn, and releases the lock on every return
// path (including panic), the way every engine cycle scopes its lock
// acquisition around a single reconciliation pass.
func Guard(stateDir string, fn func() error) error {
	l := New(stateDir)
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

func (l *Lock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	state := fileState{PID: os.Getpid(), At: time.Now()}
	enc := json.NewEncoder(f)
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("lock: write: %w", err)
	}
	return nil
}

func (l *Lock) forceWrite() error {
	state := fileState{PID: os.Getpid(), At: time.Now()}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("lock: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("lock: overwrite: %w", err)
	}
	return nil
}

func readFile(path string) (fileState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileState{}, err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fileState{}, err
	}
	return state, nil
}

// processAlive reports whether pid refers to a live process. Signal 0
// performs no action but still reports ESRCH for a dead or nonexistent
// pid, the standard liveness check on unix.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return !errors.Is(err, os.ErrProcessDone) && !errors.Is(err, syscall.ESRCH)
}
