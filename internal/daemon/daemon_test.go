package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agent-tui/agent-tuid/internal/session"
)

func TestAcquireLockRejectsSecondHolder(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "agent-tui.lock")

	first, err := AcquireLock(lockPath)
	require.NoError(t, err)
	defer first.Release()

	_, err = AcquireLock(lockPath)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireLockReleasedAllowsReacquire(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "agent-tui.lock")

	first, err := AcquireLock(lockPath)
	require.NoError(t, err)
	first.Release()

	second, err := AcquireLock(lockPath)
	require.NoError(t, err)
	second.Release()
}

func TestRemoveStaleSocketNoopsWhenAbsent(t *testing.T) {
	require.NoError(t, RemoveStaleSocket(filepath.Join(t.TempDir(), "missing.sock")))
}

func TestSupervisorShutdownKillsAllSessions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	manager := session.NewManagerWithLimit(4)
	_, _, err := manager.Spawn(session.SpawnParams{Command: "/bin/sh", Args: []string{"-c", "sleep 2"}, Cols: 80, Rows: 24})
	require.NoError(t, err)

	sup := New(manager, nil)
	require.False(t, sup.Done())
	sup.RequestShutdown()
	require.True(t, sup.Done())

	sup.Shutdown()
	require.Empty(t, manager.List())
}
