package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agent-tui/agent-tuid/internal/metrics"
	"github.com/agent-tui/agent-tuid/internal/rpc"
	"github.com/agent-tui/agent-tuid/internal/session"
	"github.com/agent-tui/agent-tuid/internal/transport/line"
	"github.com/agent-tui/agent-tuid/internal/usecase"
)

func newTestDaemon(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	exec := usecase.New(session.NewManagerWithLimit(4))
	router := rpc.NewRouter(exec, metrics.New(), "test", "deadbeef", nil)

	sockPath := filepath.Join(t.TempDir(), "agent-tui.sock")
	srv, err := line.New(sockPath, router, nil)
	require.NoError(t, err)

	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return sockPath
}

func TestCallPingSucceeds(t *testing.T) {
	sockPath := newTestDaemon(t)
	c := New(TransportUnix, sockPath)

	var result map[string]any
	err := c.Call(context.Background(), "ping", nil, &result)
	require.NoError(t, err)
	require.NotEmpty(t, result)
}

func TestCallUnknownMethodReturnsStandardError(t *testing.T) {
	sockPath := newTestDaemon(t)
	c := New(TransportUnix, sockPath)

	err := c.Call(context.Background(), "not_a_real_method", nil, nil)
	require.Error(t, err)
	var clientErr *Error
	require.ErrorAs(t, err, &clientErr)
	require.Equal(t, rpc.CodeMethodNotFound, clientErr.Code)
}

func TestCallSpawnAndKillRoundTrip(t *testing.T) {
	sockPath := newTestDaemon(t)
	c := New(TransportUnix, sockPath)

	var spawned struct {
		SessionID string `json:"session_id"`
	}
	err := c.Call(context.Background(), "spawn", map[string]any{
		"command": "/bin/sh", "args": []string{"-c", "sleep 2"}, "cols": 80, "rows": 24,
	}, &spawned)
	require.NoError(t, err)
	require.NotEmpty(t, spawned.SessionID)

	err = c.Call(context.Background(), "kill", map[string]any{"session": spawned.SessionID}, nil)
	require.NoError(t, err)
}

func TestCallDoesNotRetryNonRetryableDomainError(t *testing.T) {
	sockPath := newTestDaemon(t)
	c := New(TransportUnix, sockPath).WithMaxRetries(5)

	start := time.Now()
	err := c.Call(context.Background(), "kill", map[string]any{"session": "does-not-exist"}, nil)
	require.Error(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond, "a non-retryable error must not back off")
}

func TestDialUnreachableSocketFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.sock")
	c := New(TransportUnix, missing)
	err := c.Call(context.Background(), "ping", nil, nil)
	require.Error(t, err)
}
