package line

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

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

	sockPath := filepath.Join(t.TempDir(), "agent-tui.sock")
	srv, err := New(sockPath, router, nil)
	require.NoError(t, err)

	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, sockPath
}

func dial(t *testing.T, sockPath string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("unix", sockPath, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLineServerRespondsToPing(t *testing.T) {
	_, sockPath := newTestServer(t)
	conn := dial(t, sockPath)

	req, _ := json.Marshal(rpc.Request{JSONRPC: "2.0", ID: 1, Method: "ping"})
	_, err := conn.Write(append(req, '\n'))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)

	var resp rpc.Response
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.Nil(t, resp.Error)
	require.Equal(t, uint64(1), resp.ID)
}

func TestLineServerRejectsOversizedFrame(t *testing.T) {
	_, sockPath := newTestServer(t)
	conn := dial(t, sockPath)

	huge := make([]byte, maxFrameSize+1024)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := conn.Write(huge)
	require.NoError(t, err)
	_, err = conn.Write([]byte("\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	var resp rpc.Response
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, rpc.CodeParseError, resp.Error.Code)
}
