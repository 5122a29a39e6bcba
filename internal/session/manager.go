package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agent-tui/agent-tuid/internal/apperr"
	"github.com/agent-tui/agent-tuid/internal/ptyhandle"
)

// SpawnParams names a new session's PTY child. ID is optional; when
// empty a fresh 8-character id is generated.
type SpawnParams struct {
	ID      string
	Command string
	Args    []string
	Cwd     string
	Env     []string
	Cols    uint16
	Rows    uint16
}

// Manager owns every live Session. Its lock ordering is fixed: the
// sessions map, then the active pointer, then (if a caller needs to
// touch one session's fields) that session's own mutex — never the
// reverse, or two callers resolving different sessions can deadlock.
type Manager struct {
	mu            sync.RWMutex
	sessions      map[string]*entry
	activeMu      sync.RWMutex
	active        string
	persistence   *Persistence
	maxSessions   int
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// NewManager builds a manager with DefaultMaxSessions and sweeps stale
// persisted sessions left by a prior daemon process.
func NewManager() *Manager {
	return NewManagerWithLimit(DefaultMaxSessions)
}

// NewManagerWithLimit builds a manager capped at maxSessions concurrent
// children.
func NewManagerWithLimit(maxSessions int) *Manager {
	p := NewPersistence()
	if _, err := p.CleanupStale(); err != nil {
		_ = err // best-effort; persistence is not authoritative
	}
	return &Manager{
		sessions:    make(map[string]*entry),
		persistence: p,
		maxSessions: maxSessions,
	}
}

func generateSessionID() string {
	return uuid.New().String()[:8]
}

// limitReachedErr names the configured cap in the message itself, not
// just in the context, so a caller inspecting only the error text still
// learns the limit.
func (m *Manager) limitReachedErr() error {
	return apperr.New(apperr.SessionLimitReached, fmt.Sprintf("session limit reached (max %d)", m.maxSessions)).
		WithContext("max_sessions", m.maxSessions)
}

// Spawn starts a new PTY child and registers it as the active session.
func (m *Manager) Spawn(p SpawnParams) (id string, pid int, err error) {
	m.mu.RLock()
	count := len(m.sessions)
	m.mu.RUnlock()
	if count >= m.maxSessions {
		return "", 0, m.limitReachedErr()
	}

	id = p.ID
	if id == "" {
		id = generateSessionID()
	}

	pty, err := ptyhandle.Spawn(ptyhandle.Config{
		Command: p.Command,
		Args:    p.Args,
		Cwd:     p.Cwd,
		Env:     p.Env,
		Cols:    p.Cols,
		Rows:    p.Rows,
	})
	if err != nil {
		return "", 0, apperr.Wrap(apperr.PtySpawn, err)
	}
	pid = pty.PID()

	sess := newSession(id, p.Command, pty, int(p.Cols), int(p.Rows))

	m.mu.Lock()
	// Re-check under the write lock: the RLock check above only rules
	// out spawning when the cap was already exceeded before the PTY
	// spawn started. Concurrent callers can all pass that check and all
	// reach here, so the cap that actually matters is this one.
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		_ = pty.Kill()
		return "", 0, m.limitReachedErr()
	}
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		_ = pty.Kill()
		return "", 0, apperr.New(apperr.SessionAlreadyExists, id)
	}
	m.sessions[id] = &entry{session: sess}
	m.mu.Unlock()

	m.activeMu.Lock()
	m.active = id
	m.activeMu.Unlock()

	persisted := PersistedSession{
		ID:        id,
		Command:   p.Command,
		PID:       pid,
		CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		Cols:      int(p.Cols),
		Rows:      int(p.Rows),
	}
	if err := m.persistence.AddSession(persisted); err != nil {
		sess.AddError(err.Error(), "persistence")
	}

	return id, pid, nil
}

// Get returns the session registered under id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.SessionNotFound, id)
	}
	return e.session, nil
}

// Active returns the most recently spawned or set_active session.
func (m *Manager) Active() (*Session, error) {
	m.activeMu.RLock()
	id := m.active
	m.activeMu.RUnlock()
	if id == "" {
		return nil, apperr.New(apperr.NoActiveSession, "no active session")
	}
	return m.Get(id)
}

// Resolve returns the session named by id, or the active session when
// id is empty.
func (m *Manager) Resolve(id string) (*Session, error) {
	if id != "" {
		return m.Get(id)
	}
	return m.Active()
}

// SetActive makes id the active session for calls that omit session_id.
func (m *Manager) SetActive(id string) error {
	m.mu.RLock()
	_, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return apperr.New(apperr.SessionNotFound, id)
	}
	m.activeMu.Lock()
	m.active = id
	m.activeMu.Unlock()
	return nil
}

// List summarizes every registered session. A session whose mutex
// cannot be acquired within 100ms (another call is mid-operation on it)
// is reported as locked rather than blocking the whole listing.
func (m *Manager) List() []Info {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	entries := make([]*entry, 0, len(m.sessions))
	for id, e := range m.sessions {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	infos := make([]Info, len(ids))
	for i, e := range entries {
		if !tryLock(&e.mu, 100*time.Millisecond) {
			infos[i] = Info{ID: ids[i], Command: "(locked)", Running: true, Cols: 80, Rows: 24}
			continue
		}
		sess := e.session
		cols, rows := sess.Size()
		infos[i] = Info{
			ID:        sess.ID,
			Command:   sess.Command,
			PID:       sess.PID(),
			Running:   sess.IsRunning(),
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
			Cols:      cols,
			Rows:      rows,
		}
		e.mu.Unlock()
	}
	return infos
}

// Kill terminates and deregisters a session.
func (m *Manager) Kill(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return apperr.New(apperr.SessionNotFound, id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.activeMu.Lock()
	if m.active == id {
		m.active = ""
	}
	m.activeMu.Unlock()

	e.mu.Lock()
	err := e.session.Kill()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.persistence.RemoveSession(id); err != nil {
		e.session.AddError(err.Error(), "persistence")
	}
	return nil
}

// SessionCount reports how many sessions are currently registered.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ActiveSessionID returns the active session's id, or "" if none.
func (m *Manager) ActiveSessionID() string {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()
	return m.active
}

// tryLock attempts to acquire mu within timeout via polling, returning
// false on expiry rather than blocking indefinitely (or leaking a
// goroutine still waiting on the lock after we give up on it).
func tryLock(mu *sync.Mutex, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if mu.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
