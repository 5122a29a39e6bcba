package ws

import (
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/agent-tui/agent-tuid/internal/config"
	"github.com/agent-tui/agent-tuid/internal/metrics"
	"github.com/agent-tui/agent-tuid/internal/rpc"
	"github.com/agent-tui/agent-tuid/internal/session"
	"github.com/agent-tui/agent-tuid/internal/usecase"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	exec := usecase.New(session.NewManagerWithLimit(4))
	router := rpc.NewRouter(exec, metrics.New(), "test", "deadbeef", nil)

	cfg := &config.Config{WSListen: "127.0.0.1:0", WSMaxConnections: 4}
	srv, err := New(cfg, router, nil)
	require.NoError(t, err)

	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, "ws://" + srv.Addr().String() + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWSServerRespondsToPing(t *testing.T) {
	_, url := newTestServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(rpc.Request{JSONRPC: "2.0", ID: 1, Method: "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp rpc.Response
	require.NoError(t, conn.ReadJSON(&resp))
	require.Nil(t, resp.Error)
	require.Equal(t, uint64(1), resp.ID)
}

func TestWSServerRejectsBinaryFrames(t *testing.T) {
	_, url := newTestServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.CloseProtocolError, closeErr.Code)
}

func TestWSServerClosesAfterTooManyParseErrors(t *testing.T) {
	_, url := newTestServer(t)
	conn := dial(t, url)

	for i := 0; i < maxParseErrors; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		require.NoError(t, err, "expected a parse-error response before the close frame")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestWriteStateFileWritesDiscoverableAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	statePath := t.TempDir() + "/api.json"
	require.NoError(t, srv.WriteStateFile(statePath))

	b, err := os.ReadFile(statePath)
	require.NoError(t, err)
	require.Contains(t, string(b), srv.Addr().String())
}
