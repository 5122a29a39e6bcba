// Package daemon runs the supervisor loop: single-instance locking,
// stale socket cleanup, signal-triggered graceful shutdown, and the
// ordered teardown of sessions and transports on the way out.
package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/agent-tui/agent-tuid/internal/session"
)

// ErrAlreadyRunning is returned by AcquireLock when another daemon
// instance already holds the lock file.
var ErrAlreadyRunning = errors.New("daemon: another instance is already running")

const shutdownDrainTimeout = 5 * time.Second

// Lock is the single-instance guard: an exclusive, non-blocking flock
// on a sibling file next to the transport socket, holding the PID.
type Lock struct {
	file *os.File
	path string
}

// AcquireLock opens (or creates) lockPath and takes an exclusive
// non-blocking flock, writing the current PID on success.
func AcquireLock(lockPath string) (*Lock, error) {
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("daemon: open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("daemon: flock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("daemon: truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("daemon: write pid: %w", err)
	}

	return &Lock{file: f, path: lockPath}, nil
}

// Release closes the lock file and removes it from disk.
func (l *Lock) Release() {
	l.file.Close()
	os.Remove(l.path)
}

// RemoveStaleSocket deletes a leftover socket file from a prior daemon
// process that did not shut down cleanly.
func RemoveStaleSocket(socketPath string) error {
	if _, err := os.Stat(socketPath); err == nil {
		return os.Remove(socketPath)
	}
	return nil
}

// Transport is anything the supervisor starts and stops around the
// session manager's lifetime — the line and WS servers both satisfy it.
type Transport interface {
	Serve() error
	Close() error
}

// Supervisor owns the shutdown flag, an active-connection counter, and
// the session manager every transport's router ultimately acts on.
type Supervisor struct {
	logger      *slog.Logger
	manager     *session.Manager
	shutdown    atomic.Bool
	connections atomic.Int64
}

// New builds a supervisor bound to manager.
func New(manager *session.Manager, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{manager: manager, logger: logger}
}

// Done reports whether shutdown has been requested; wired into
// rpc.NewRouter so streaming loops notice it between ticks.
func (s *Supervisor) Done() bool { return s.shutdown.Load() }

// RequestShutdown sets the shutdown flag, same as a received signal.
func (s *Supervisor) RequestShutdown() { s.shutdown.Store(true) }

// ConnectionOpened/ConnectionClosed adjust the connection count that the
// drain-wait step of Shutdown polls. Neither the line nor the WS
// transport calls them, so the count stays at zero and that step returns
// at once.
func (s *Supervisor) ConnectionOpened() { s.connections.Add(1) }
func (s *Supervisor) ConnectionClosed() { s.connections.Add(-1) }

// WatchSignals spawns the goroutine that flips the shutdown flag on
// SIGINT/SIGTERM, logging which signal triggered it.
func (s *Supervisor) WatchSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-ch
		s.logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
		s.shutdown.Store(true)
	}()
}

// Shutdown runs the five-step sequence: callers have already stopped
// accepting new connections by the time this is called (each
// Transport.Close does that); this then waits, up to
// shutdownDrainTimeout, for the connection count to reach zero, kills
// every session, and reports completion. The transports
// themselves are closed by the caller before or after this, since they
// own their own listener lifecycle.
func (s *Supervisor) Shutdown() {
	s.logger.Info("shutting down daemon")

	s.logger.Info("waiting for active connections to complete", "count", s.connections.Load())
	deadline := time.Now().Add(shutdownDrainTimeout)
	for s.connections.Load() > 0 {
		if time.Now().After(deadline) {
			s.logger.Warn("shutdown timeout, forcing close")
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	s.logger.Info("cleaning up sessions")
	for _, info := range s.manager.List() {
		if err := s.manager.Kill(info.ID); err != nil {
			s.logger.Warn("failed to kill session during shutdown", "session_id", info.ID, "error", err)
		}
	}

	s.logger.Info("daemon shutdown complete")
}
