package ptyhandle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnWriteReadKill(t *testing.T) {
	h, err := Spawn(Config{Command: "/bin/sh", Args: []string{"-c", "printf hello"}, Cols: 80, Rows: 24})
	require.NoError(t, err)
	defer h.Kill()

	deadline := time.Now().Add(2 * time.Second)
	buf := make([]byte, 4096)
	var collected []byte
	for time.Now().Before(deadline) {
		n, rerr := h.TryRead(buf, 50*time.Millisecond)
		require.NoError(t, rerr)
		if n > 0 {
			collected = append(collected, buf[:n]...)
		}
		if len(collected) > 0 {
			break
		}
	}
	require.Contains(t, string(collected), "hello")
}

func TestSpawnNotFound(t *testing.T) {
	_, err := Spawn(Config{Command: "/no/such/binary-xyz", Cols: 80, Rows: 24})
	require.Error(t, err)
	spawnErr, ok := err.(*SpawnError)
	require.True(t, ok)
	require.Equal(t, SpawnNotFound, spawnErr.Kind)
}

func TestKillIdempotent(t *testing.T) {
	h, err := Spawn(Config{Command: "/bin/sh", Args: []string{"-c", "sleep 5"}, Cols: 80, Rows: 24})
	require.NoError(t, err)
	require.NoError(t, h.Kill())
	require.NoError(t, h.Kill())
	require.False(t, h.IsRunning())
}

func TestResize(t *testing.T) {
	h, err := Spawn(Config{Command: "/bin/sh", Args: []string{"-c", "sleep 1"}, Cols: 80, Rows: 24})
	require.NoError(t, err)
	defer h.Kill()
	require.NoError(t, h.Resize(100, 40))
	cols, rows := h.Size()
	require.Equal(t, uint16(100), cols)
	require.Equal(t, uint16(40), rows)
}
