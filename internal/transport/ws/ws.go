// Package ws implements the daemon's WebSocket transport: a
// loopback-by-default HTTP server upgrading to WebSocket, one RPC
// exchange per text frame, and a JSON state file so clients can discover
// the bound address without scraping stdout. It serves only its own TCP
// listener; no Tailscale listener is attached to it.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agent-tui/agent-tuid/internal/config"
	"github.com/agent-tui/agent-tuid/internal/rpc"
)

const (
	recvTimeout      = 60 * time.Second
	sendTimeout      = 15 * time.Second
	maxParseErrors   = 3
	shutdownDrainMax = 2 * time.Second

	// closeProtocolViolation rejects a frame type the wire protocol
	// doesn't use (binary frames); closeTooManyParseErrors rejects a
	// connection that keeps sending invalid JSON. Distinct codes so a
	// client can tell "you sent the wrong kind of frame" from "you sent
	// garbage repeatedly".
	closeProtocolViolation  = websocket.CloseProtocolError
	closeTooManyParseErrors = websocket.ClosePolicyViolation
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the WS transport: an HTTP server plus a bounded semaphore
// limiting concurrent upgraded connections.
type Server struct {
	cfg    *config.Config
	router *rpc.Router
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
	limits     chan struct{}

	shuttingDown atomic.Bool
	statePath    string
}

// New builds a Server bound to cfg.WSListen (loopback by default — the
// caller decides separately whether to additionally bind a tsnet
// listener, since that requires a connected tailnet.Client).
func New(cfg *config.Config, router *rpc.Router, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", cfg.WSListen)
	if err != nil {
		return nil, fmt.Errorf("ws: listen on %s: %w", cfg.WSListen, err)
	}

	s := &Server{
		cfg:      cfg,
		router:   router,
		logger:   logger,
		listener: ln,
		limits:   make(chan struct{}, cfg.WSMaxConnections),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	s.httpServer = &http.Server{Handler: mux}

	return s, nil
}

// Addr returns the bound TCP address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// WriteStateFile atomically writes {pid, ws_url, ui_url, listen,
// started_at} to path, creating parent directories and restricting
// permissions to the owner since the state file can reveal a loopback
// port an unrelated local process could connect to.
func (s *Server) WriteStateFile(path string) error {
	s.statePath = path
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	addr := s.listener.Addr().String()
	payload := stateFile{
		PID:       os.Getpid(),
		WSURL:     "ws://" + addr + "/ws",
		UIURL:     "http://" + addr + "/",
		Listen:    addr,
		StartedAt: time.Now().Unix(),
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

type stateFile struct {
	PID       int    `json:"pid"`
	WSURL     string `json:"ws_url"`
	UIURL     string `json:"ui_url"`
	Listen    string `json:"listen"`
	StartedAt int64  `json:"started_at"`
}

// Serve runs the HTTP server until Close is called.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close removes the state file, then shuts the HTTP server down, waiting
// up to shutdownDrainMax for it to stop and tear down the listener.
func (s *Server) Close() error {
	s.shuttingDown.Store(true)
	time.Sleep(50 * time.Millisecond) // let an in-flight upgrade finish acquiring its slot cleanly
	if s.statePath != "" {
		os.Remove(s.statePath)
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDrainMax)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	select {
	case s.limits <- struct{}{}:
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"too many websocket connections"}`))
		return
	}
	defer func() { <-s.limits }()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	s.handleConn(conn)
}

func (s *Server) handleConn(conn *websocket.Conn) {
	defer conn.Close()

	parseErrors := 0
	for {
		if s.shuttingDown.Load() {
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(sendTimeout))
			return
		}

		conn.SetReadDeadline(time.Now().Add(recvTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeProtocolViolation, "binary frames are not supported"), time.Now().Add(sendTimeout))
			return
		case websocket.PingMessage:
			conn.WriteControl(websocket.PongMessage, data, time.Now().Add(sendTimeout))
			continue
		case websocket.PongMessage:
			continue
		case websocket.CloseMessage:
			return
		}

		var req rpc.Request
		if err := json.Unmarshal(data, &req); err != nil {
			resp := rpc.Response{JSONRPC: "2.0", Error: &rpc.Error{Code: rpc.CodeParseError, Message: "Parse error: " + err.Error()}}
			if !s.writeJSON(conn, resp) {
				return
			}
			parseErrors++
			if parseErrors >= maxParseErrors {
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeTooManyParseErrors, "too many parse errors"), time.Now().Add(sendTimeout))
				return
			}
			continue
		}
		parseErrors = 0

		resp, stream := s.router.Dispatch(req)
		if !s.writeJSON(conn, resp) {
			return
		}
		if stream != nil {
			s.runStream(conn, stream)
			return
		}
	}
}

// runStream drains a streaming method into the connection via a
// single-writer pump: RPC streaming loops run synchronously on this
// goroutine since each connection serves exactly one in-flight call at
// a time, so no separate outbound-queue goroutine is needed here.
func (s *Server) runStream(conn *websocket.Conn, stream rpc.StreamFunc) {
	send := func(event any) error {
		conn.SetWriteDeadline(time.Now().Add(sendTimeout))
		return conn.WriteJSON(event)
	}
	stream(send)
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) bool {
	conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	return conn.WriteJSON(v) == nil
}
