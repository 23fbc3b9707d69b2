package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	require.NoError(t, l.Acquire())
	_, err := os.Stat(filepath.Join(dir, fileName))
	require.NoError(t, err)

	l.Release()
	_, err = os.Stat(filepath.Join(dir, fileName))
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()
	first := New(dir)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := New(dir)
	err := second.Acquire()
	assert.ErrorIs(t, err, ErrHeld)
}

func TestAcquireRecoversStaleLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, fileName)

	// pid 999999 is extremely unlikely to be alive.
	stale := fileState{PID: 999999, At: time.Now().Add(-time.Hour)}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	l := New(dir)
	require.NoError(t, l.Acquire())
	l.Release()
}

func TestAcquireRecoversUnparsableLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, fileName)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	l := New(dir)
	require.NoError(t, l.Acquire())
	l.Release()
}

func TestGuardReleasesOnError(t *testing.T) {
	dir := t.TempDir()
	boom := assert.AnError

	err := Guard(dir, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	l := New(dir)
	require.NoError(t, l.Acquire())
	l.Release()
}
