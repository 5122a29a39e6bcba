package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agent-tui/agent-tuid/internal/session"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return New(session.NewManagerWithLimit(8))
}

func spawnShell(t *testing.T, e *Executor, args []string) string {
	t.Helper()
	out, err := e.Spawn(SpawnInput{Command: "/bin/sh", Args: args, Cols: 80, Rows: 24})
	require.NoError(t, err)
	t.Cleanup(func() { e.Kill(KillInput{SessionID: out.SessionID}) })
	return out.SessionID
}

func waitForScreen(t *testing.T, e *Executor, id, contains string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := e.Snapshot(SnapshotInput{SessionID: id, StripANSI: true})
		require.NoError(t, err)
		if contains == "" || strings.Contains(snap.Screen, contains) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSpawnAndSessionsRoundTrip(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	out := e.Sessions()
	require.Len(t, out.Sessions, 1)
	require.Equal(t, id, out.ActiveSession)
}

func TestSpawnUnknownCommandFails(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.Spawn(SpawnInput{Command: "/no/such/binary", Cols: 80, Rows: 24})
	require.Error(t, err)
}

func TestKillDeregistersSession(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	out, err := e.Kill(KillInput{SessionID: id})
	require.NoError(t, err)
	require.True(t, out.Success)

	require.Empty(t, e.Sessions().Sessions)
}

func TestAttachRequiresRunningSession(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	out, err := e.Attach(AttachInput{SessionID: id})
	require.NoError(t, err)
	require.True(t, out.Success)
}

func TestResizeUpdatesSessionDimensions(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	out, err := e.Resize(ResizeInput{SessionID: id, Cols: 120, Rows: 40})
	require.NoError(t, err)
	require.Equal(t, 120, out.Cols)
	require.Equal(t, 40, out.Rows)
}

func TestCleanupKillsNonActiveOnly(t *testing.T) {
	e := newTestExecutor(t)
	active := spawnShell(t, e, []string{"-c", "sleep 2"})
	other := spawnShell(t, e, []string{"-c", "sleep 2"})
	_, attachErr := e.Attach(AttachInput{SessionID: active})
	require.NoError(t, attachErr)

	out := e.Cleanup(CleanupInput{All: false})
	require.Contains(t, out.Cleaned, other)
	require.NotContains(t, out.Cleaned, active)
}

func TestAssertTextConditionMatchesScreen(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "printf hello-world; sleep 2"})
	waitForScreen(t, e, id, "hello-world")

	out, err := e.Assert(AssertInput{SessionID: id, ConditionType: "text", Value: "hello-world"})
	require.NoError(t, err)
	require.True(t, out.Passed)
}

func TestAssertSessionConditionChecksRunning(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	out, err := e.Assert(AssertInput{SessionID: id, ConditionType: "session", Value: id})
	require.NoError(t, err)
	require.True(t, out.Passed)
}

func TestWaitTimesOutWhenTextNeverAppears(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	_, err := e.Wait(WaitInput{SessionID: id, Text: "never-appears-xyz", TimeoutMs: 150})
	require.Error(t, err)
}

func TestKeystrokeAndTypeWriteToPty(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "cat"})

	require.NoError(t, e.Type(TypeInput{SessionID: id, Text: "hi"}))
	require.NoError(t, e.Keystroke(KeystrokeInput{SessionID: id, Key: "enter"}))
}

func TestRecordingLifecycleThroughExecutor(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 1"})

	require.NoError(t, e.RecordStart(RecordInput{SessionID: id}))
	status, err := e.RecordStatus(RecordInput{SessionID: id})
	require.NoError(t, err)
	require.True(t, status.IsRecording)

	frames, err := e.RecordStop(RecordInput{SessionID: id})
	require.NoError(t, err)
	require.NotEmpty(t, frames)
}

func TestFindFiltersByRole(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	out, err := e.Find(FindInput{SessionID: id, Role: "button"})
	require.NoError(t, err)
	require.Equal(t, len(out.Elements), out.Count)
	for _, el := range out.Elements {
		require.Equal(t, "button", el.Role)
	}
}

func TestToggleOnNonCheckboxFails(t *testing.T) {
	e := newTestExecutor(t)
	id := spawnShell(t, e, []string{"-c", "sleep 2"})

	snap, err := e.Snapshot(SnapshotInput{SessionID: id})
	require.NoError(t, err)
	if snap.Snapshot.Stats.Total == 0 {
		t.Skip("no classified elements on a bare shell prompt")
	}
	for ref, el := range snap.Snapshot.Refs.Refs {
		if el.Role == "checkbox" || el.Role == "radio" {
			continue
		}
		_, err := e.Toggle(ToggleInput{SessionID: id, Ref: ref})
		require.Error(t, err)
		return
	}
}
