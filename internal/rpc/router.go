package rpc

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/agent-tui/agent-tuid/internal/metrics"
	"github.com/agent-tui/agent-tuid/internal/usecase"
)

// Router is the method-name -> use-case dispatch table. It holds no
// per-connection state; one Router instance serves every connection.
type Router struct {
	exec    *usecase.Executor
	metrics *metrics.Daemon
	version string
	commit  string
	done    func() bool

	requestShutdown func()
}

// NewRouter binds a Router to the use-case executor and the daemon's
// shared metrics counters. done reports whether the supervisor's
// shutdown flag has been set; streaming loops poll it every tick.
func NewRouter(exec *usecase.Executor, m *metrics.Daemon, version, commit string, done func() bool) *Router {
	if done == nil {
		done = func() bool { return false }
	}
	return &Router{exec: exec, metrics: m, version: version, commit: commit, done: done, requestShutdown: func() {}}
}

// SetShutdownRequester wires the callback the "shutdown" method invokes
// once it has acknowledged the request. Optional: a router with none
// set just acknowledges without tripping the supervisor's flag, which
// is harmless for tests that dispatch "shutdown" without a supervisor.
func (r *Router) SetShutdownRequester(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	r.requestShutdown = fn
}

// StreamFunc drives a streaming method after its initial response has
// been written. send pushes one framed event; the loop exits when send
// returns an error (write failure / connection closed) or the router's
// shutdown flag trips.
type StreamFunc func(send func(event any) error)

// Dispatch resolves and runs one request, recording metrics as it goes.
// When the request's session resolves, it also hands that session a
// trace entry (kept only while the session's trace is started) and, on
// failure, an error entry; session-less requests leave no trace or
// error entry anywhere. The second return
// value is non-nil only for the two streaming methods, and must be
// invoked by the transport immediately after writing the returned
// response.
func (r *Router) Dispatch(req Request) (Response, StreamFunc) {
	r.metrics.RecordRequest()
	start := time.Now()

	if req.Method == "screen" {
		return standardError(req.ID, CodeMethodNotFound,
			"Method 'screen' is deprecated. Use 'snapshot' with strip_ansi=true instead."), nil
	}

	entry, ok := methodTable[req.Method]
	if !ok {
		r.metrics.RecordError()
		return standardError(req.ID, CodeMethodNotFound, "Method not found: "+req.Method), nil
	}

	if entry.stream != nil {
		resp, streamFn := entry.stream(r, req)
		r.trace(req, resp, start)
		return resp, streamFn
	}

	resp := entry.handler(r, req)
	r.trace(req, resp, start)
	return resp, nil
}

func (r *Router) trace(req Request, resp Response, start time.Time) {
	elapsed := time.Since(start).Milliseconds()

	sess, err := r.exec.Manager.Resolve(paramSessionID(req.Params))
	if err != nil {
		return
	}
	sess.AddTraceEntry(req.Method, "elapsed_ms="+strconv.FormatInt(elapsed, 10))
	if resp.Error != nil {
		r.metrics.RecordError()
		sess.AddError(resp.Error.Message, req.Method)
	}
}

type sessionIDParams struct {
	Session string `json:"session"`
}

func paramSessionID(raw json.RawMessage) string {
	var p sessionIDParams
	_ = decodeParams(raw, &p)
	return p.Session
}

type handlerFunc func(*Router, Request) Response
type streamFunc func(*Router, Request) (Response, StreamFunc)

var methodTable map[string]struct {
	handler handlerFunc
	stream  streamFunc
}

func init() {
	methodTable = make(map[string]struct {
		handler handlerFunc
		stream  streamFunc
	}, 64)
	register := func(name string, h handlerFunc) {
		entry := methodTable[name]
		entry.handler = h
		methodTable[name] = entry
	}
	registerStream := func(name string, s streamFunc) {
		entry := methodTable[name]
		entry.stream = s
		methodTable[name] = entry
	}

	register("ping", handlePing)
	register("health", handleHealth)
	register("metrics", handleMetrics)
	register("shutdown", handleShutdown)
	register("spawn", handleSpawn)
	register("kill", handleKill)
	register("restart", handleRestart)
	register("sessions", handleSessions)
	register("resize", handleResize)
	register("attach", handleAttach)
	register("cleanup", handleCleanup)
	register("assert", handleAssert)
	register("snapshot", handleSnapshot)
	register("click", handleClick)
	register("dbl_click", handleDblClick)
	register("fill", handleFill)
	register("find", handleFind)
	register("count", handleCount)
	register("scroll", handleScroll)
	register("scroll_into_view", handleScrollIntoView)
	register("get_text", handleGetText)
	register("get_value", handleGetValue)
	register("is_visible", handleIsVisible)
	register("is_focused", handleIsFocused)
	register("is_enabled", handleIsEnabled)
	register("is_checked", handleIsChecked)
	register("get_focused", handleGetFocused)
	register("get_title", handleGetTitle)
	register("focus", handleFocus)
	register("clear", handleClear)
	register("select_all", handleSelectAll)
	register("toggle", handleToggle)
	register("select", handleSelect)
	register("multiselect", handleMultiselect)
	register("keystroke", handleKeystroke)
	register("keydown", handleKeydown)
	register("keyup", handleKeyup)
	register("type", handleType)
	register("wait", handleWait)
	register("record_start", handleRecordStart)
	register("record_stop", handleRecordStop)
	register("record_status", handleRecordStatus)
	register("trace", handleTrace)
	register("console", handleConsole)
	register("errors", handleErrors)
	register("pty_read", handlePtyRead)
	register("pty_write", handlePtyWrite)

	registerStream("attach_stream", streamAttach)
	registerStream("live_preview_stream", streamLivePreview)
}

func handlePing(r *Router, req Request) Response {
	return success(req.ID, map[string]any{"pong": true})
}

func handleHealth(r *Router, req Request) Response {
	snap := r.metrics.Read(r.exec.Manager.SessionCount())
	status := "healthy"
	return success(req.ID, map[string]any{
		"status":             status,
		"pid":                os.Getpid(),
		"uptime_ms":          snap.UptimeMs,
		"session_count":      snap.SessionCount,
		"version":            r.version,
		"commit":             r.commit,
		"active_connections": snap.ActiveConnections,
		"total_requests":     snap.RequestsTotal,
		"error_count":        snap.ErrorsTotal,
	})
}

func handleMetrics(r *Router, req Request) Response {
	snap := r.metrics.Read(r.exec.Manager.SessionCount())
	return success(req.ID, snap)
}

func handleShutdown(r *Router, req Request) Response {
	r.requestShutdown()
	return success(req.ID, map[string]any{"acknowledged": true})
}

type spawnParams struct {
	ID      string   `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Cwd     string   `json:"cwd"`
	Env     []string `json:"env"`
	Cols    int      `json:"cols"`
	Rows    int      `json:"rows"`
}

const (
	minCols, maxCols = 10, 500
	minRows, maxRows = 2, 200
)

func clamp(v, min, max int) int {
	if v == 0 {
		return v
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func handleSpawn(r *Router, req Request) Response {
	var p spawnParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if p.Command == "" {
		p.Command = "bash"
	}
	p.Cols = clamp(p.Cols, minCols, maxCols)
	p.Rows = clamp(p.Rows, minRows, maxRows)

	out, err := r.exec.Spawn(usecase.SpawnInput{
		ID: p.ID, Command: p.Command, Args: p.Args, Cwd: p.Cwd, Env: p.Env, Cols: p.Cols, Rows: p.Rows,
	})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"session_id": out.SessionID, "pid": out.PID})
}

func handleKill(r *Router, req Request) Response {
	out, err := r.exec.Kill(usecase.KillInput{SessionID: paramSessionID(req.Params)})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleRestart(r *Router, req Request) Response {
	out, err := r.exec.Restart(usecase.RestartInput{SessionID: paramSessionID(req.Params)})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleSessions(r *Router, req Request) Response {
	return success(req.ID, r.exec.Sessions())
}

type resizeParams struct {
	Session string `json:"session"`
	Cols    int    `json:"cols"`
	Rows    int    `json:"rows"`
}

func handleResize(r *Router, req Request) Response {
	var p resizeParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	out, err := r.exec.Resize(usecase.ResizeInput{
		SessionID: p.Session, Cols: clamp(p.Cols, minCols, maxCols), Rows: clamp(p.Rows, minRows, maxRows),
	})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleAttach(r *Router, req Request) Response {
	out, err := r.exec.Attach(usecase.AttachInput{SessionID: paramSessionID(req.Params)})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

type cleanupParams struct {
	All bool `json:"all"`
}

func handleCleanup(r *Router, req Request) Response {
	var p cleanupParams
	_ = decodeParams(req.Params, &p)
	return success(req.ID, r.exec.Cleanup(usecase.CleanupInput{All: p.All}))
}

type assertParams struct {
	Session       string `json:"session"`
	Type          string `json:"type"`
	ConditionType string `json:"condition_type"`
	Value         string `json:"value"`
}

func handleAssert(r *Router, req Request) Response {
	var p assertParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if p.ConditionType == "" {
		p.ConditionType = p.Type
	}
	out, err := r.exec.Assert(usecase.AssertInput{SessionID: p.Session, ConditionType: p.ConditionType, Value: p.Value})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

type snapshotParams struct {
	Session         string `json:"session"`
	InteractiveOnly bool   `json:"interactive_only"`
	IncludeCursor   bool   `json:"include_cursor"`
	StripANSI       bool   `json:"strip_ansi"`
}

func handleSnapshot(r *Router, req Request) Response {
	var p snapshotParams
	_ = decodeParams(req.Params, &p)
	out, err := r.exec.Snapshot(usecase.SnapshotInput{
		SessionID: p.Session, InteractiveOnly: p.InteractiveOnly, IncludeCursor: p.IncludeCursor, StripANSI: p.StripANSI,
	})
	if err != nil {
		return domainError(req.ID, err)
	}
	result := map[string]any{
		"session_id": out.SessionID,
		"screen":     out.Screen,
		"tree":       out.Snapshot.Tree,
		"stats":      out.Snapshot.Stats,
	}
	if out.Cursor != nil {
		result["cursor"] = out.Cursor
	}
	return success(req.ID, result)
}

type refParams struct {
	Session string `json:"session"`
	Ref     string `json:"ref"`
}

func handleClick(r *Router, req Request) Response {
	var p refParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Click(usecase.ClickInput{SessionID: p.Session, Ref: p.Ref}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

func handleDblClick(r *Router, req Request) Response {
	var p refParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.DoubleClick(usecase.DoubleClickInput{SessionID: p.Session, Ref: p.Ref}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

type fillParams struct {
	Session string `json:"session"`
	Ref     string `json:"ref"`
	Value   string `json:"value"`
}

func handleFill(r *Router, req Request) Response {
	var p fillParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Fill(usecase.FillInput{SessionID: p.Session, Ref: p.Ref, Value: p.Value}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true, "ref": p.Ref})
}

type findParams struct {
	Session string `json:"session"`
	Role    string `json:"role"`
	Name    string `json:"name"`
	Exact   bool   `json:"exact"`
	Text    string `json:"text"`
	Focused bool   `json:"focused"`
	Nth     *int   `json:"nth"`
}

func handleFind(r *Router, req Request) Response {
	var p findParams
	_ = decodeParams(req.Params, &p)
	in := usecase.FindInput{SessionID: p.Session, Role: p.Role, Name: p.Name, NameExact: p.Exact, Text: p.Text, Focused: p.Focused}
	if p.Nth != nil {
		in.HasNth, in.Nth = true, *p.Nth
	}
	out, err := r.exec.Find(in)
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

type countParams struct {
	Session string `json:"session"`
	Role    string `json:"role"`
	Name    string `json:"name"`
	Text    string `json:"text"`
}

func handleCount(r *Router, req Request) Response {
	var p countParams
	_ = decodeParams(req.Params, &p)
	out, err := r.exec.Count(usecase.CountInput{SessionID: p.Session, Role: p.Role, Name: p.Name, Text: p.Text})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

type scrollParams struct {
	Session   string `json:"session"`
	Direction string `json:"direction"`
	Amount    int    `json:"amount"`
}

func handleScroll(r *Router, req Request) Response {
	var p scrollParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	out, err := r.exec.Scroll(usecase.ScrollInput{SessionID: p.Session, Direction: p.Direction, Amount: p.Amount})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleScrollIntoView(r *Router, req Request) Response {
	var p refParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	out, err := r.exec.ScrollIntoView(usecase.ScrollIntoViewInput{SessionID: p.Session, Ref: p.Ref})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func elementRefInput(req Request) (usecase.ElementRefInput, *Response) {
	var p refParams
	if err := decodeParams(req.Params, &p); err != nil {
		resp := standardError(req.ID, CodeInvalidParams, err.Error())
		return usecase.ElementRefInput{}, &resp
	}
	return usecase.ElementRefInput{SessionID: p.Session, Ref: p.Ref}, nil
}

func handleGetText(r *Router, req Request) Response {
	in, errResp := elementRefInput(req)
	if errResp != nil {
		return *errResp
	}
	out, err := r.exec.GetText(in)
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleGetValue(r *Router, req Request) Response {
	in, errResp := elementRefInput(req)
	if errResp != nil {
		return *errResp
	}
	out, err := r.exec.GetValue(in)
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleIsVisible(r *Router, req Request) Response {
	in, errResp := elementRefInput(req)
	if errResp != nil {
		return *errResp
	}
	out, err := r.exec.IsVisible(in)
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleIsFocused(r *Router, req Request) Response {
	in, errResp := elementRefInput(req)
	if errResp != nil {
		return *errResp
	}
	out, err := r.exec.IsFocused(in)
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleIsEnabled(r *Router, req Request) Response {
	in, errResp := elementRefInput(req)
	if errResp != nil {
		return *errResp
	}
	out, err := r.exec.IsEnabled(in)
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleIsChecked(r *Router, req Request) Response {
	in, errResp := elementRefInput(req)
	if errResp != nil {
		return *errResp
	}
	out, err := r.exec.IsChecked(in)
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleGetFocused(r *Router, req Request) Response {
	out, err := r.exec.GetFocused(paramSessionID(req.Params))
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleGetTitle(r *Router, req Request) Response {
	out, err := r.exec.GetTitle(paramSessionID(req.Params))
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleFocus(r *Router, req Request) Response {
	var p refParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Focus(usecase.FocusInput{SessionID: p.Session, Ref: p.Ref}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

func handleClear(r *Router, req Request) Response {
	var p refParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Clear(usecase.ClearInput{SessionID: p.Session, Ref: p.Ref}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

func handleSelectAll(r *Router, req Request) Response {
	var p refParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.SelectAll(usecase.SelectAllInput{SessionID: p.Session, Ref: p.Ref}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

type toggleParams struct {
	Session string `json:"session"`
	Ref     string `json:"ref"`
	State   *bool  `json:"state"`
}

func handleToggle(r *Router, req Request) Response {
	var p toggleParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	out, err := r.exec.Toggle(usecase.ToggleInput{SessionID: p.Session, Ref: p.Ref, State: p.State})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true, "ref": p.Ref, "checked": out.Checked})
}

type selectParams struct {
	Session string `json:"session"`
	Ref     string `json:"ref"`
	Option  string `json:"option"`
}

func handleSelect(r *Router, req Request) Response {
	var p selectParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Select(usecase.SelectInput{SessionID: p.Session, Ref: p.Ref, Option: p.Option}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true, "ref": p.Ref, "option": p.Option})
}

type multiselectParams struct {
	Session string   `json:"session"`
	Ref     string   `json:"ref"`
	Options []string `json:"options"`
}

func handleMultiselect(r *Router, req Request) Response {
	var p multiselectParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if len(p.Options) == 0 {
		return standardError(req.ID, CodeInvalidParams, "Options array cannot be empty")
	}
	out, err := r.exec.Multiselect(usecase.MultiselectInput{SessionID: p.Session, Ref: p.Ref, Options: p.Options})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true, "ref": p.Ref, "selected_options": out.SelectedOptions})
}

type keyParams struct {
	Session string `json:"session"`
	Key     string `json:"key"`
}

func handleKeystroke(r *Router, req Request) Response {
	var p keyParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Keystroke(usecase.KeystrokeInput{SessionID: p.Session, Key: p.Key}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

func handleKeydown(r *Router, req Request) Response {
	var p keyParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Keydown(usecase.KeydownInput{SessionID: p.Session, Key: p.Key}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

func handleKeyup(r *Router, req Request) Response {
	var p keyParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Keyup(usecase.KeyupInput{SessionID: p.Session, Key: p.Key}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

type typeParams struct {
	Session string `json:"session"`
	Text    string `json:"text"`
}

func handleType(r *Router, req Request) Response {
	var p typeParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	if err := r.exec.Type(usecase.TypeInput{SessionID: p.Session, Text: p.Text}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

type waitParams struct {
	Session   string `json:"session"`
	Text      string `json:"text"`
	Condition string `json:"condition"`
	TimeoutMs int    `json:"timeout_ms"`
}

func handleWait(r *Router, req Request) Response {
	var p waitParams
	_ = decodeParams(req.Params, &p)
	out, err := r.exec.Wait(usecase.WaitInput{SessionID: p.Session, Text: p.Text, Condition: p.Condition, TimeoutMs: p.TimeoutMs})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, out)
}

func handleRecordStart(r *Router, req Request) Response {
	sid := paramSessionID(req.Params)
	if err := r.exec.RecordStart(usecase.RecordInput{SessionID: sid}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true})
}

func handleRecordStop(r *Router, req Request) Response {
	sid := paramSessionID(req.Params)
	frames, err := r.exec.RecordStop(usecase.RecordInput{SessionID: sid})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"frames": frames})
}

func handleRecordStatus(r *Router, req Request) Response {
	sid := paramSessionID(req.Params)
	status, err := r.exec.RecordStatus(usecase.RecordInput{SessionID: sid})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, status)
}

type countedParams struct {
	Session string `json:"session"`
	Count   int    `json:"count"`
}

func handleTrace(r *Router, req Request) Response {
	var p countedParams
	_ = decodeParams(req.Params, &p)
	entries, err := r.exec.TraceEntries(usecase.TraceInput{SessionID: p.Session, Count: p.Count})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"entries": entries})
}

// handleConsole returns the trace and error queues together for
// human-facing debugging, with no buffer of its own. The two lists are
// returned side by side; they are not merged into one time order.
func handleConsole(r *Router, req Request) Response {
	var p countedParams
	_ = decodeParams(req.Params, &p)
	sid := p.Session

	trace, err := r.exec.TraceEntries(usecase.TraceInput{SessionID: sid, Count: p.Count})
	if err != nil {
		return domainError(req.ID, err)
	}
	errs, err := r.exec.Errors(usecase.ErrorsInput{SessionID: sid, Count: p.Count})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"trace": trace, "errors": errs})
}

func handleErrors(r *Router, req Request) Response {
	var p countedParams
	_ = decodeParams(req.Params, &p)
	entries, err := r.exec.Errors(usecase.ErrorsInput{SessionID: p.Session, Count: p.Count})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"entries": entries})
}

type ptyReadParams struct {
	Session   string `json:"session"`
	MaxBytes  int    `json:"max_bytes"`
	TimeoutMs int    `json:"timeout_ms"`
}

func handlePtyRead(r *Router, req Request) Response {
	var p ptyReadParams
	_ = decodeParams(req.Params, &p)
	out, err := r.exec.PtyRead(usecase.PtyReadInput{SessionID: p.Session, MaxBytes: p.MaxBytes, TimeoutMs: p.TimeoutMs})
	if err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{
		"data":       base64.StdEncoding.EncodeToString(out.Data),
		"bytes_read": len(out.Data),
	})
}

type ptyWriteParams struct {
	Session string `json:"session"`
	Data    string `json:"data"`
}

func handlePtyWrite(r *Router, req Request) Response {
	var p ptyWriteParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error())
	}
	data, decErr := base64.StdEncoding.DecodeString(p.Data)
	if decErr != nil {
		return standardError(req.ID, CodeInvalidParams, "data must be base64-encoded: "+decErr.Error())
	}
	if err := r.exec.PtyWrite(usecase.PtyWriteInput{SessionID: p.Session, Data: data}); err != nil {
		return domainError(req.ID, err)
	}
	return success(req.ID, map[string]any{"success": true, "bytes_written": len(data)})
}
