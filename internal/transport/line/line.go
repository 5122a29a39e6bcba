// Package line implements the local transport: a Unix domain socket
// serving newline-delimited JSON-RPC frames over a fixed-size worker
// pool, one connection per accepted client.
package line

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/agent-tui/agent-tuid/internal/rpc"
)

const (
	// MaxWorkers bounds how many connections are served concurrently;
	// anything beyond this queues on the accept channel, and a
	// connection accepted while that channel is full is closed.
	MaxWorkers = 64
	// QueueCapacity is the buffered channel depth between the accept
	// loop and the worker pool.
	QueueCapacity = 128

	maxFrameSize  = 4 << 20 // 4 MiB
	readTimeout   = 60 * time.Second
	writeTimeout  = 30 * time.Second
	acceptBackoff = 50 * time.Millisecond
)

// Server serves the line transport over one Unix socket.
type Server struct {
	router   *rpc.Router
	logger   *slog.Logger
	listener net.Listener

	connCh  chan net.Conn
	wg      sync.WaitGroup
	closing chan struct{}
	once    sync.Once
}

// New binds a Unix socket at socketPath, removing a stale one first.
func New(socketPath string, router *rpc.Router, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := removeStaleSocket(socketPath); err != nil {
		return nil, err
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}
	return &Server{
		router:   router,
		logger:   logger,
		listener: ln,
		connCh:   make(chan net.Conn, QueueCapacity),
		closing:  make(chan struct{}),
	}, nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// Addr returns the bound socket's address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve runs the accept loop and worker pool until Close is called.
func (s *Server) Serve() error {
	for i := 0; i < MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				close(s.connCh)
				s.wg.Wait()
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				time.Sleep(acceptBackoff)
				continue
			}
			return err
		}

		select {
		case s.connCh <- conn:
		case <-s.closing:
			conn.Close()
		default:
			s.logger.Warn("worker queue full, dropping connection")
			conn.Close()
		}
	}
}

func (s *Server) worker() {
	defer s.wg.Done()
	for conn := range s.connCh {
		s.handleConn(conn)
	}
}

// handleConn reads one line-delimited request at a time, dispatches it,
// and writes back one line-delimited response, mirroring the daemon's
// read-timeout/write-timeout/size-limit error handling: a frame over
// maxFrameSize or an unparseable frame gets a parse-error response (size
// limit then closes the connection, parse error continues), any other
// I/O failure closes it silently.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, 64*1024)
	writer := bufio.NewWriter(conn)

	for {
		select {
		case <-s.closing:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		line, err := readLine(reader, maxFrameSize)
		if err != nil {
			if errors.Is(err, errFrameTooLarge) {
				s.writeResponse(conn, writer, rpc.Response{JSONRPC: "2.0", Error: &rpc.Error{Code: rpc.CodeParseError, Message: err.Error()}})
				return
			}
			return
		}
		if len(line) == 0 {
			continue
		}

		var req rpc.Request
		if jsonErr := json.Unmarshal(line, &req); jsonErr != nil {
			s.writeResponse(conn, writer, rpc.Response{JSONRPC: "2.0", Error: &rpc.Error{Code: rpc.CodeParseError, Message: "invalid JSON: " + jsonErr.Error()}})
			continue
		}

		resp, stream := s.router.Dispatch(req)
		if !s.writeResponse(conn, writer, resp) {
			return
		}
		if stream != nil {
			s.runStream(conn, writer, stream)
			return
		}
	}
}

func (s *Server) runStream(conn net.Conn, writer *bufio.Writer, stream rpc.StreamFunc) {
	send := func(event any) error {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		b, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := writer.Write(append(b, '\n')); err != nil {
			return err
		}
		return writer.Flush()
	}
	stream(send)
}

func (s *Server) writeResponse(conn net.Conn, writer *bufio.Writer, resp rpc.Response) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	b, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "error", err)
		return false
	}
	if _, err := writer.Write(append(b, '\n')); err != nil {
		return false
	}
	return writer.Flush() == nil
}

var errFrameTooLarge = errors.New("request exceeds maximum frame size")

// readLine reads up to the next '\n', erroring if more than limit bytes
// are consumed first.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	out := append([]byte(nil), line...)
	for errors.Is(err, bufio.ErrBufferFull) {
		if len(out) > limit {
			// drain the rest of the oversized line so the connection
			// can be closed cleanly instead of left mid-frame.
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = r.ReadSlice('\n')
			}
			return nil, errFrameTooLarge
		}
		line, err = r.ReadSlice('\n')
		out = append(out, line...)
	}
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		return nil, errFrameTooLarge
	}
	return trimNewline(out), nil
}

func trimNewline(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

// Close stops the accept loop and waits for in-flight connections'
// workers to drain, then removes the socket file.
func (s *Server) Close() error {
	s.once.Do(func() { close(s.closing) })
	err := s.listener.Close()
	s.wg.Wait()
	os.Remove(s.listener.Addr().String())
	return err
}
