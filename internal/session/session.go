// Package session owns the per-PTY state the rest of the daemon acts
// on: the child process handle, its terminal emulator, the VOM element
// cache, and the bounded recording/trace/error queues layered on top.
package session

import (
	"strings"
	"time"

	"github.com/agent-tui/agent-tuid/internal/apperr"
	"github.com/agent-tui/agent-tuid/internal/keymap"
	"github.com/agent-tui/agent-tuid/internal/ptyhandle"
	"github.com/agent-tui/agent-tuid/internal/streamring"
	"github.com/agent-tui/agent-tuid/internal/term"
	"github.com/agent-tui/agent-tuid/internal/vom"
)

type modifierState struct {
	ctrl, alt, shift, meta bool
}

func (m *modifierState) set(name string, value bool) {
	switch strings.ToLower(name) {
	case "ctrl", "control":
		m.ctrl = value
	case "alt":
		m.alt = value
	case "shift":
		m.shift = value
	case "meta", "cmd", "command", "win", "super":
		m.meta = value
	}
}

type recordingState struct {
	isRecording bool
	startTime   time.Time
	frames      []RecordingFrame
}

type traceState struct {
	isTracing bool
	startTime time.Time
	entries   []TraceEntry
}

type errorState struct {
	entries []ErrorEntry
}

// Session is one spawned PTY child plus everything derived from it:
// emulated screen state, a live output stream, and the classification
// cache a snapshot/click/fill call resolves refs against.
type Session struct {
	ID        string
	Command   string
	CreatedAt time.Time

	pty   *ptyhandle.Handle
	term  *term.Emulator
	ring  *streamring.Ring
	cols  int
	rows  int

	modifiers modifierState
	recording recordingState
	trace     traceState
	errors    errorState

	elementsRevision uint64
	elements         []vom.Component
	lastRefs         vom.RefMap
}

func newSession(id, command string, pty *ptyhandle.Handle, cols, rows int) *Session {
	return &Session{
		ID:        id,
		Command:   command,
		CreatedAt: time.Now().UTC(),
		pty:       pty,
		term:      term.New(cols, rows),
		ring:      streamring.New(streamring.MinWindow),
		cols:      cols,
		rows:      rows,
		trace:     traceState{startTime: time.Now()},
		recording: recordingState{startTime: time.Now()},
	}
}

// PID returns the child process id, or 0 if the PTY has not spawned one.
func (s *Session) PID() int { return s.pty.PID() }

// IsRunning reports whether the child process is still alive.
func (s *Session) IsRunning() bool { return s.pty.IsRunning() }

// Size returns the current terminal grid dimensions.
func (s *Session) Size() (cols, rows int) { return s.term.Size() }

// Stream returns the ring buffer attach_stream/live_preview_stream
// subscribers read from.
func (s *Session) Stream() *streamring.Ring { return s.ring }

// Revision returns the terminal emulator's change counter, used by the
// "stable" wait predicate to detect when the screen stops changing.
func (s *Session) Revision() uint64 { return s.term.Revision() }

// Update drains every byte currently buffered by the PTY into the
// terminal emulator and the stream ring, non-blocking. EAGAIN/EWOULDBLOCK
// are swallowed here per the propagation policy; only genuine I/O
// failures are returned.
func (s *Session) Update() error {
	buf := make([]byte, 4096)
	for {
		n, err := s.pty.TryRead(buf, 10*time.Millisecond)
		if err != nil {
			return apperr.Wrap(apperr.PtyRead, err)
		}
		if n == 0 {
			if !s.pty.IsRunning() {
				s.ring.MarkClosed()
			}
			return nil
		}
		s.term.Feed(buf[:n])
		s.ring.Write(buf[:n])
		s.addRecordingFrame(s.term.ScreenText())
	}
}

// ScreenText returns the plain-text rendered grid.
func (s *Session) ScreenText() string { return s.term.ScreenText() }

// ScreenRender returns the ANSI-re-rendered grid.
func (s *Session) ScreenRender() string { return s.term.ScreenRender() }

// Cursor returns the emulator's current cursor state.
func (s *Session) Cursor() vom.CursorPosition {
	c := s.term.Cursor()
	return vom.CursorPosition{Row: c.Row, Col: c.Col, Visible: c.Visible}
}

// DetectElements re-runs the VOM pipeline if the screen changed since
// the last call and returns the classified (unfiltered) components. The
// result is cached until the emulator's revision counter next advances.
func (s *Session) DetectElements() []vom.Component {
	rev := s.term.Revision()
	if rev == s.elementsRevision && s.elements != nil {
		return s.elements
	}
	clusters := vom.ClusterGrid(s.term.Grid())
	s.elements = vom.Classify(clusters, s.Cursor(), vom.DefaultClassifyOptions())
	s.elementsRevision = rev
	return s.elements
}

// CachedElements returns the last classified components without
// re-running classification.
func (s *Session) CachedElements() []vom.Component { return s.elements }

// Snapshot runs detect_elements then formats an accessibility tree,
// remembering its ref map so a later click/fill/assert can resolve a
// ref string this call handed out.
func (s *Session) Snapshot(options vom.SnapshotOptions) vom.AccessibilitySnapshot {
	components := s.DetectElements()
	snap := vom.FormatSnapshot(components, options)
	s.lastRefs = snap.Refs
	return snap
}

// ResolveRef looks up a ref string (any of @eN / ref=eN / eN) against the
// most recent Snapshot call's ref map.
func (s *Session) ResolveRef(arg string) (vom.ElementRef, error) {
	ref, ok := vom.ParseRef(arg)
	if !ok {
		return vom.ElementRef{}, apperr.New(apperr.ElementNotFound, "not a valid element reference: "+arg)
	}
	elem, ok := s.lastRefs.Get(ref)
	if !ok {
		return vom.ElementRef{}, apperr.New(apperr.ElementNotFound, arg)
	}
	return elem, nil
}

// Keystroke maps a symbolic key name to its byte sequence and writes it.
func (s *Session) Keystroke(key string) error {
	seq, err := keymap.ToEscapeSequence(key)
	if err != nil {
		return apperr.New(apperr.InvalidKey, key)
	}
	return s.ptyWriteErr(seq)
}

// Keydown marks a modifier key held; only modifier names are accepted.
func (s *Session) Keydown(key string) error {
	if !keymap.IsModifierName(key) {
		return apperr.New(apperr.InvalidKey, key+": only modifier keys can be held")
	}
	s.modifiers.set(key, true)
	return nil
}

// Keyup releases a held modifier key.
func (s *Session) Keyup(key string) error {
	if !keymap.IsModifierName(key) {
		return apperr.New(apperr.InvalidKey, key+": only modifier keys can be released")
	}
	s.modifiers.set(key, false)
	return nil
}

// TypeText writes literal text to the PTY, unlike Keystroke which maps
// a symbolic name.
func (s *Session) TypeText(text string) error {
	return s.ptyWriteErr([]byte(text))
}

// Click locates ref in the last snapshot and sends SPACE for a checkbox
// or ENTER for anything else.
func (s *Session) Click(ref string) error {
	if err := s.Update(); err != nil {
		return err
	}
	s.DetectElements()

	elem, err := s.ResolveRef(ref)
	if err != nil {
		return err
	}

	if elem.Role == "checkbox" {
		return s.ptyWriteErr([]byte(" "))
	}
	return s.ptyWriteErr([]byte("\r"))
}

func (s *Session) ptyWriteErr(data []byte) error {
	if err := s.pty.Write(data); err != nil {
		return apperr.Wrap(apperr.PtyWrite, err)
	}
	return nil
}

// Resize reflows both the PTY and the emulator to new dimensions.
func (s *Session) Resize(cols, rows int) error {
	if err := s.pty.Resize(uint16(cols), uint16(rows)); err != nil {
		return apperr.Wrap(apperr.PtyResize, err)
	}
	s.term.Resize(cols, rows)
	s.cols, s.rows = cols, rows
	return nil
}

// Kill terminates the child process.
func (s *Session) Kill() error {
	if err := s.pty.Kill(); err != nil {
		return apperr.Wrap(apperr.PtyWrite, err)
	}
	s.ring.MarkClosed()
	return nil
}

// PtyWrite writes raw bytes to the PTY, bypassing keystroke mapping.
func (s *Session) PtyWrite(data []byte) error { return s.ptyWriteErr(data) }

// PtyTryRead performs a single non-blocking read directly off the PTY.
func (s *Session) PtyTryRead(buf []byte, timeout time.Duration) (int, error) {
	n, err := s.pty.TryRead(buf, timeout)
	if err != nil {
		return 0, apperr.Wrap(apperr.PtyRead, err)
	}
	return n, nil
}

// StartRecording begins capturing screen_text frames on every Update.
func (s *Session) StartRecording() {
	s.recording.isRecording = true
	s.recording.startTime = time.Now()
	s.recording.frames = nil
	s.recording.frames = pushBounded(s.recording.frames, RecordingFrame{Screen: s.term.ScreenText()}, MaxRecordingFrames)
}

// StopRecording ends the recording and returns the captured frames.
func (s *Session) StopRecording() []RecordingFrame {
	s.recording.isRecording = false
	frames := s.recording.frames
	s.recording.frames = nil
	return frames
}

func (s *Session) addRecordingFrame(screen string) {
	if !s.recording.isRecording {
		return
	}
	elapsed := uint64(time.Since(s.recording.startTime).Milliseconds())
	s.recording.frames = pushBounded(s.recording.frames, RecordingFrame{TimestampMs: elapsed, Screen: screen}, MaxRecordingFrames)
}

// RecordingStatus reports whether recording is active, how many frames
// have accumulated, and for how long.
func (s *Session) RecordingStatus() RecordingStatus {
	status := RecordingStatus{IsRecording: s.recording.isRecording, FrameCount: len(s.recording.frames)}
	if s.recording.isRecording {
		status.DurationMs = uint64(time.Since(s.recording.startTime).Milliseconds())
	}
	return status
}

// StartTrace begins logging actions via AddTraceEntry.
func (s *Session) StartTrace() {
	s.trace.isTracing = true
	s.trace.startTime = time.Now()
	s.trace.entries = nil
}

// StopTrace ends tracing without discarding accumulated entries.
func (s *Session) StopTrace() { s.trace.isTracing = false }

// IsTracing reports whether tracing is currently active.
func (s *Session) IsTracing() bool { return s.trace.isTracing }

// TraceEntries returns the last count trace entries (all of them if
// count <= 0 or greater than what's buffered).
func (s *Session) TraceEntries(count int) []TraceEntry { return lastN(s.trace.entries, count) }

// AddTraceEntry records one dispatched action while tracing is active;
// it is a no-op otherwise.
func (s *Session) AddTraceEntry(action, details string) {
	if !s.trace.isTracing {
		return
	}
	elapsed := uint64(time.Since(s.trace.startTime).Milliseconds())
	entry := TraceEntry{TimestampMs: elapsed, Action: action, Details: details, HasDetails: details != ""}
	s.trace.entries = pushBounded(s.trace.entries, entry, MaxTraceEntries)
}

// ErrorEntries returns the last count recorded session errors.
func (s *Session) ErrorEntries(count int) []ErrorEntry { return lastN(s.errors.entries, count) }

// AddError records a session-level error independent of the RPC error
// envelope returned to the caller.
func (s *Session) AddError(message, source string) {
	entry := ErrorEntry{Timestamp: time.Now().UTC().Format(time.RFC3339), Message: message, Source: source}
	s.errors.entries = pushBounded(s.errors.entries, entry, MaxErrorEntries)
}

// ErrorCount reports how many errors are currently buffered.
func (s *Session) ErrorCount() int { return len(s.errors.entries) }

// ClearErrors empties the error log.
func (s *Session) ClearErrors() { s.errors.entries = nil }

// ClearConsole resets the terminal emulator, as if the screen were
// cleared (console use case).
func (s *Session) ClearConsole() { s.term.Feed([]byte("\x1bc")) }
