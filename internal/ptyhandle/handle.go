// Package ptyhandle wraps a single pseudo-terminal-backed child process.
//
// A Handle owns the master side of a PTY and the child process attached to
// its slave side. It exposes only the primitives a terminal emulator needs
// to drive a child: blocking writes, non-blocking reads with a timeout,
// resize, and kill. Everything above "bytes in, bytes out" (grid state,
// scrollback, VOM) lives one layer up in package term and package session.
package ptyhandle

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// SpawnErrorKind classifies why starting a child under a PTY failed.
type SpawnErrorKind int

const (
	SpawnOther SpawnErrorKind = iota
	SpawnNotFound
	SpawnPermissionDenied
)

func (k SpawnErrorKind) String() string {
	switch k {
	case SpawnNotFound:
		return "not_found"
	case SpawnPermissionDenied:
		return "permission_denied"
	default:
		return "other"
	}
}

// SpawnError is returned by Spawn when the child could not be started.
type SpawnError struct {
	Kind   SpawnErrorKind
	Reason string
}

func (e *SpawnError) Error() string {
	return "pty spawn failed: " + e.Reason
}

// classifySpawnError inspects an exec/pty error and buckets it the way
// the spec's error taxonomy requires: NotFound, PermissionDenied, or Other.
func classifySpawnError(err error) *SpawnError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		if errors.Is(pathErr.Err, os.ErrPermission) {
			return &SpawnError{Kind: SpawnPermissionDenied, Reason: msg}
		}
		if errors.Is(pathErr.Err, os.ErrNotExist) {
			return &SpawnError{Kind: SpawnNotFound, Reason: msg}
		}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &SpawnError{Kind: SpawnNotFound, Reason: msg}
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "no such file"):
		return &SpawnError{Kind: SpawnNotFound, Reason: msg}
	case strings.Contains(lower, "permission denied"):
		return &SpawnError{Kind: SpawnPermissionDenied, Reason: msg}
	default:
		return &SpawnError{Kind: SpawnOther, Reason: msg}
	}
}

// OpError wraps a non-spawn PTY operation failure with the operation name.
type OpError struct {
	Operation string
	Reason    string
}

func (e *OpError) Error() string {
	return e.Operation + ": " + e.Reason
}

// Config describes how to spawn a command under a controlling PTY.
type Config struct {
	Command string
	Args    []string
	Cwd     string
	Env     []string // overlay applied on top of os.Environ()
	Cols    uint16
	Rows    uint16
}

// Handle is a live PTY-backed child process.
type Handle struct {
	mu      sync.Mutex
	master  *os.File
	cmd     *exec.Cmd
	cols    uint16
	rows    uint16
	killed  bool
	waitErr error
	waited  bool
}

// Spawn starts cfg.Command under a new controlling PTY of the requested
// size. On failure the returned error is always a *SpawnError.
func Spawn(cfg Config) (*Handle, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Cwd
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	// Give the child its own session so it becomes the controlling
	// process of the PTY it inherits (required for job control inside it).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: cfg.Rows, Cols: cfg.Cols})
	if err != nil {
		return nil, classifySpawnError(err)
	}

	return &Handle{
		master: master,
		cmd:    cmd,
		cols:   cfg.Cols,
		rows:   cfg.Rows,
	}, nil
}

// Write blocks until all of p has been written to the PTY master.
func (h *Handle) Write(p []byte) error {
	h.mu.Lock()
	master := h.master
	h.mu.Unlock()
	if master == nil {
		return &OpError{Operation: "write", Reason: "pty not open"}
	}
	_, err := master.Write(p)
	if err != nil {
		return &OpError{Operation: "write", Reason: err.Error()}
	}
	return nil
}

// TryRead performs a single non-blocking-ish read bounded by timeout. It
// returns 0 (not an error) when no data arrived within the timeout, which
// callers MUST treat as "would block", not as a failure. EAGAIN/EWOULDBLOCK
// from the kernel are folded into that same zero-without-error case.
func (h *Handle) TryRead(buf []byte, timeout time.Duration) (int, error) {
	h.mu.Lock()
	master := h.master
	h.mu.Unlock()
	if master == nil {
		return 0, &OpError{Operation: "read", Reason: "pty not open"}
	}

	if timeout > 0 {
		_ = master.SetReadDeadline(time.Now().Add(timeout))
		defer master.SetReadDeadline(time.Time{})
	}

	n, err := master.Read(buf)
	if err != nil {
		if err == io.EOF {
			return n, nil
		}
		if isTimeoutOrWouldBlock(err) {
			return 0, nil
		}
		return n, &OpError{Operation: "read", Reason: err.Error()}
	}
	return n, nil
}

func isTimeoutOrWouldBlock(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "resource temporarily unavailable")
}

// Resize updates the PTY window size.
func (h *Handle) Resize(cols, rows uint16) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.master == nil {
		return &OpError{Operation: "resize", Reason: "pty not open"}
	}
	if err := pty.Setsize(h.master, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return &OpError{Operation: "resize", Reason: err.Error()}
	}
	h.cols, h.rows = cols, rows
	return nil
}

// Size returns the last-applied PTY dimensions.
func (h *Handle) Size() (cols, rows uint16) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cols, h.rows
}

// Kill sends SIGTERM, waits for exit, and releases the master fd. It is
// idempotent: calling it more than once is a no-op after the first call.
func (h *Handle) Kill() error {
	h.mu.Lock()
	if h.killed {
		h.mu.Unlock()
		return nil
	}
	h.killed = true
	cmd := h.cmd
	master := h.master
	h.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			h.mu.Lock()
			h.waitErr = cmd.Wait()
			h.waited = true
			h.mu.Unlock()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = cmd.Process.Kill()
			<-done
		}
	}
	if master != nil {
		_ = master.Close()
	}
	return nil
}

// IsRunning reports whether the child process has not yet exited.
func (h *Handle) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return false
	}
	if h.killed && h.waited {
		return false
	}
	// Signal(0) probes liveness without affecting the process.
	err := h.cmd.Process.Signal(syscall.Signal(0))
	return err == nil
}

// PID returns the child process id, or 0 if never started.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}
