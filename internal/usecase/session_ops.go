package usecase

import (
	"errors"
	"strings"
	"time"

	"github.com/agent-tui/agent-tuid/internal/apperr"
	"github.com/agent-tui/agent-tuid/internal/ptyhandle"
	"github.com/agent-tui/agent-tuid/internal/session"
	"github.com/agent-tui/agent-tuid/internal/vom"
)

// SpawnInput requests a new PTY-backed session.
type SpawnInput struct {
	ID      string
	Command string
	Args    []string
	Cwd     string
	Env     []string
	Cols    int
	Rows    int
}

// SpawnOutput is the result of a successful Spawn.
type SpawnOutput struct {
	SessionID string
	PID       int
}

const (
	defaultCols = 80
	defaultRows = 24
)

// Spawn starts a new session, classifying PTY failures into the
// not-found/permission-denied/other buckets a client can branch on.
func (e *Executor) Spawn(in SpawnInput) (SpawnOutput, error) {
	cols, rows := in.Cols, in.Rows
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}

	id, pid, err := e.Manager.Spawn(session.SpawnParams{
		ID:      in.ID,
		Command: in.Command,
		Args:    in.Args,
		Cwd:     in.Cwd,
		Env:     in.Env,
		Cols:    uint16(cols),
		Rows:    uint16(rows),
	})
	if err != nil {
		var spawnErr *ptyhandle.SpawnError
		var appErr *apperr.Error
		if errors.As(err, &appErr) && errors.As(appErr.Cause, &spawnErr) {
			switch spawnErr.Kind {
			case ptyhandle.SpawnNotFound:
				return SpawnOutput{}, apperr.New(apperr.PtySpawn, "command not found: "+in.Command).WithContext("command", in.Command)
			case ptyhandle.SpawnPermissionDenied:
				return SpawnOutput{}, apperr.New(apperr.PtySpawn, "permission denied: "+in.Command).WithContext("command", in.Command)
			}
		}
		return SpawnOutput{}, err
	}
	return SpawnOutput{SessionID: id, PID: pid}, nil
}

// KillInput targets a session to terminate.
type KillInput struct {
	SessionID string
}

// KillOutput confirms the kill.
type KillOutput struct {
	SessionID string
	Success   bool
}

func (e *Executor) Kill(in KillInput) (KillOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return KillOutput{}, err
	}
	if err := e.Manager.Kill(sess.ID); err != nil {
		return KillOutput{}, err
	}
	return KillOutput{SessionID: sess.ID, Success: true}, nil
}

// SessionsOutput lists every session the manager tracks.
type SessionsOutput struct {
	Sessions      []session.Info
	ActiveSession string
}

func (e *Executor) Sessions() SessionsOutput {
	return SessionsOutput{
		Sessions:      e.Manager.List(),
		ActiveSession: e.Manager.ActiveSessionID(),
	}
}

// RestartInput targets a session to replace in place.
type RestartInput struct {
	SessionID string
}

// RestartOutput reports the old and new identities.
type RestartOutput struct {
	OldSessionID string
	NewSessionID string
	Command      string
	PID          int
}

// Restart kills the resolved session and spawns a replacement with the
// same command and terminal size, carrying no cwd/env/args forward
// since the daemon has no record of the originals once the child exits.
func (e *Executor) Restart(in RestartInput) (RestartOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return RestartOutput{}, err
	}
	oldID := sess.ID
	command := sess.Command
	cols, rows := sess.Size()

	if err := e.Manager.Kill(oldID); err != nil {
		return RestartOutput{}, err
	}

	newID, pid, err := e.Manager.Spawn(session.SpawnParams{
		Command: command,
		Cols:    uint16(cols),
		Rows:    uint16(rows),
	})
	if err != nil {
		return RestartOutput{}, err
	}

	return RestartOutput{OldSessionID: oldID, NewSessionID: newID, Command: command, PID: pid}, nil
}

// AttachInput names the session to make active.
type AttachInput struct {
	SessionID string
}

// AttachOutput confirms the switch.
type AttachOutput struct {
	SessionID string
	Success   bool
	Message   string
}

func (e *Executor) Attach(in AttachInput) (AttachOutput, error) {
	sess, err := e.Manager.Get(in.SessionID)
	if err != nil {
		return AttachOutput{}, err
	}
	if !sess.IsRunning() {
		return AttachOutput{}, apperr.New(apperr.SessionNotFound, sess.ID+" (session not running)")
	}
	if err := e.Manager.SetActive(sess.ID); err != nil {
		return AttachOutput{}, err
	}
	return AttachOutput{SessionID: sess.ID, Success: true, Message: "Now attached to session " + sess.ID}, nil
}

// ResizeInput requests a new terminal size for a session.
type ResizeInput struct {
	SessionID string
	Cols      int
	Rows      int
}

// ResizeOutput confirms the new dimensions.
type ResizeOutput struct {
	SessionID string
	Success   bool
	Cols      int
	Rows      int
}

func (e *Executor) Resize(in ResizeInput) (ResizeOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return ResizeOutput{}, err
	}
	if err := sess.Resize(in.Cols, in.Rows); err != nil {
		return ResizeOutput{}, err
	}
	return ResizeOutput{SessionID: sess.ID, Success: true, Cols: in.Cols, Rows: in.Rows}, nil
}

// CleanupInput selects which sessions to tear down.
type CleanupInput struct {
	All bool
}

// CleanupFailure records one session that failed to clean up.
type CleanupFailure struct {
	SessionID string
	Error     string
}

// CleanupOutput reports what was cleaned and what wasn't.
type CleanupOutput struct {
	Cleaned  []string
	Failures []CleanupFailure
}

// Cleanup kills either every session (All) or every non-active session,
// never failing the whole operation over one session's kill error.
func (e *Executor) Cleanup(in CleanupInput) CleanupOutput {
	activeID := e.Manager.ActiveSessionID()
	out := CleanupOutput{}
	for _, info := range e.Manager.List() {
		if !in.All && info.ID == activeID {
			continue
		}
		if err := e.Manager.Kill(info.ID); err != nil {
			out.Failures = append(out.Failures, CleanupFailure{SessionID: info.ID, Error: err.Error()})
			continue
		}
		out.Cleaned = append(out.Cleaned, info.ID)
	}
	return out
}

// AssertInput names a condition to check against a session's state.
type AssertInput struct {
	SessionID     string
	ConditionType string // "text" or "session"
	Value         string
}

// AssertOutput reports whether the condition held.
type AssertOutput struct {
	Passed    bool
	Condition string
}

func (e *Executor) Assert(in AssertInput) (AssertOutput, error) {
	condition := in.ConditionType + ":" + in.Value
	switch strings.ToLower(in.ConditionType) {
	case "text":
		sess, err := e.resolve(in.SessionID)
		if err != nil {
			return AssertOutput{}, err
		}
		if err := sess.Update(); err != nil {
			return AssertOutput{}, err
		}
		return AssertOutput{Passed: strings.Contains(sess.ScreenText(), in.Value), Condition: condition}, nil
	case "session":
		for _, info := range e.Manager.List() {
			if info.ID == in.Value && info.Running {
				return AssertOutput{Passed: true, Condition: condition}, nil
			}
		}
		return AssertOutput{Passed: false, Condition: condition}, nil
	default:
		return AssertOutput{}, apperr.New(apperr.InvalidParams, "unknown condition_type: "+in.ConditionType)
	}
}

// SnapshotInput selects a session and how to render its tree.
type SnapshotInput struct {
	SessionID       string
	InteractiveOnly bool
	IncludeCursor   bool
	StripANSI       bool
}

// SnapshotOutput is the rendered accessibility tree plus refs and stats.
type SnapshotOutput struct {
	SessionID string
	Screen    string
	Snapshot  vom.AccessibilitySnapshot
	Cursor    *vom.CursorPosition
}

func (e *Executor) Snapshot(in SnapshotInput) (SnapshotOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return SnapshotOutput{}, err
	}
	if err := sess.Update(); err != nil {
		return SnapshotOutput{}, err
	}

	snap := sess.Snapshot(vom.SnapshotOptions{InteractiveOnly: in.InteractiveOnly})

	screen := sess.ScreenRender()
	if in.StripANSI {
		screen = sess.ScreenText()
	}

	out := SnapshotOutput{SessionID: sess.ID, Screen: screen, Snapshot: snap}
	if in.IncludeCursor {
		cur := sess.Cursor()
		out.Cursor = &cur
	}
	return out, nil
}

// WaitInput polls a session against a predicate up to a deadline. Text
// is shorthand for Condition "text:<value>"; when Condition is set it
// takes precedence, supporting "text:<substring>", "element:<ref>", and
// "stable" (no grid-revision change for stabilityWindow).
type WaitInput struct {
	SessionID string
	Text      string
	Condition string
	TimeoutMs int
}

// WaitOutput reports whether the predicate matched before the timeout.
type WaitOutput struct {
	Found     bool
	ElapsedMs int64
}

const (
	defaultWaitTimeout = 5 * time.Second
	stabilityWindow    = 200 * time.Millisecond
	waitPollInterval   = 20 * time.Millisecond
)

func (e *Executor) Wait(in WaitInput) (WaitOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return WaitOutput{}, err
	}

	condition := in.Condition
	if condition == "" {
		condition = "text:" + in.Text
	}
	predicate, predErr := compileWaitPredicate(sess, condition)
	if predErr != nil {
		return WaitOutput{}, predErr
	}

	timeout := defaultWaitTimeout
	if in.TimeoutMs > 0 {
		timeout = time.Duration(in.TimeoutMs) * time.Millisecond
	}

	start := time.Now()
	deadline := start.Add(timeout)
	var stableSince time.Time
	var lastRevision uint64
	haveRevision := false

	for {
		if err := sess.Update(); err != nil {
			return WaitOutput{}, err
		}

		matched, revision := predicate(lastRevision, haveRevision, stableSince)
		if matched {
			return WaitOutput{Found: true, ElapsedMs: time.Since(start).Milliseconds()}, nil
		}
		if revision != lastRevision || !haveRevision {
			lastRevision = revision
			haveRevision = true
			stableSince = time.Now()
		}

		if time.Now().After(deadline) {
			return WaitOutput{Found: false, ElapsedMs: time.Since(start).Milliseconds()},
				apperr.New(apperr.WaitTimeout, "condition not met within timeout").WithContext("condition", condition)
		}
		time.Sleep(waitPollInterval)
	}
}

// waitPredicate reports whether the condition currently holds, given the
// revision observed on the previous poll (for the "stable" condition)
// and the revision as of this poll.
type waitPredicate func(lastRevision uint64, haveRevision bool, stableSince time.Time) (matched bool, revision uint64)

func compileWaitPredicate(sess *session.Session, condition string) (waitPredicate, error) {
	kind, value, _ := strings.Cut(condition, ":")
	switch kind {
	case "text":
		return func(uint64, bool, time.Time) (bool, uint64) {
			return strings.Contains(sess.ScreenText(), value), 0
		}, nil
	case "element":
		return func(uint64, bool, time.Time) (bool, uint64) {
			_, err := resolveElement(sess, value)
			return err == nil, 0
		}, nil
	case "stable":
		return func(lastRevision uint64, haveRevision bool, stableSince time.Time) (bool, uint64) {
			rev := sess.Revision()
			if haveRevision && rev == lastRevision {
				return time.Since(stableSince) >= stabilityWindow, rev
			}
			return false, rev
		}, nil
	default:
		return nil, apperr.New(apperr.InvalidParams, "unknown wait condition: "+condition)
	}
}

// KeystrokeInput sends one named key (optionally modifier-prefixed).
type KeystrokeInput struct {
	SessionID string
	Key       string
}

func (e *Executor) Keystroke(in KeystrokeInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	return sess.Keystroke(in.Key)
}

// TypeInput sends literal text to a session's PTY.
type TypeInput struct {
	SessionID string
	Text      string
}

func (e *Executor) Type(in TypeInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	return sess.TypeText(in.Text)
}

// KeydownInput/KeyupInput hold a modifier key down or release it.
type KeydownInput struct {
	SessionID string
	Key       string
}
type KeyupInput struct {
	SessionID string
	Key       string
}

func (e *Executor) Keydown(in KeydownInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	return sess.Keydown(in.Key)
}

func (e *Executor) Keyup(in KeyupInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	return sess.Keyup(in.Key)
}

// PtyWriteInput sends raw bytes straight to a session's PTY, bypassing
// keymap translation entirely.
type PtyWriteInput struct {
	SessionID string
	Data      []byte
}

func (e *Executor) PtyWrite(in PtyWriteInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	return sess.PtyWrite(in.Data)
}

// PtyReadInput polls for raw PTY output without going through the
// terminal emulator, for callers that want the byte stream directly.
type PtyReadInput struct {
	SessionID string
	MaxBytes  int
	TimeoutMs int
}

// PtyReadOutput is the bytes read, base64-agnostic at this layer.
type PtyReadOutput struct {
	Data []byte
}

const defaultPtyReadChunk = 4096

func (e *Executor) PtyRead(in PtyReadInput) (PtyReadOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return PtyReadOutput{}, err
	}
	size := in.MaxBytes
	if size <= 0 {
		size = defaultPtyReadChunk
	}
	timeout := 10 * time.Millisecond
	if in.TimeoutMs > 0 {
		timeout = time.Duration(in.TimeoutMs) * time.Millisecond
	}
	buf := make([]byte, size)
	n, err := sess.PtyTryRead(buf, timeout)
	if err != nil {
		return PtyReadOutput{}, err
	}
	return PtyReadOutput{Data: buf[:n]}, nil
}

// RecordStart/RecordStop/RecordStatus drive a session's frame recorder.
type RecordInput struct {
	SessionID string
}

func (e *Executor) RecordStart(in RecordInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	sess.StartRecording()
	return nil
}

func (e *Executor) RecordStop(in RecordInput) ([]session.RecordingFrame, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.StopRecording(), nil
}

func (e *Executor) RecordStatus(in RecordInput) (session.RecordingStatus, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return session.RecordingStatus{}, err
	}
	return sess.RecordingStatus(), nil
}

// TraceStart/TraceStop/TraceEntries drive a session's action tracer.
type TraceInput struct {
	SessionID string
	Count     int
}

func (e *Executor) TraceStart(in TraceInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	sess.StartTrace()
	return nil
}

func (e *Executor) TraceStop(in TraceInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	sess.StopTrace()
	return nil
}

func (e *Executor) TraceEntries(in TraceInput) ([]session.TraceEntry, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.TraceEntries(in.Count), nil
}

// ConsoleClearInput clears a session's emulated screen (not its scrollback
// ring, which keeps the bytes for anyone still reading from an older
// cursor).
type ConsoleClearInput struct {
	SessionID string
}

func (e *Executor) ConsoleClear(in ConsoleClearInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	sess.ClearConsole()
	return nil
}

// ErrorsInput requests a session's rolling error log.
type ErrorsInput struct {
	SessionID string
	Count     int
}

func (e *Executor) Errors(in ErrorsInput) ([]session.ErrorEntry, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.ErrorEntries(in.Count), nil
}
