package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/agent-tui/agent-tuid/internal/apperr"
)

const persistenceLockTimeout = 5 * time.Second

// PersistedSession is the on-disk roster entry for one spawned session,
// used to sweep stale sessions left behind by a killed daemon process.
type PersistedSession struct {
	ID        string `json:"id"`
	Command   string `json:"command"`
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
}

// Persistence reads and writes the session roster at
// ~/.agent-tui/sessions.json, guarded by a sibling .json.lock file so
// two daemon processes never interleave writes.
type Persistence struct {
	path     string
	lockPath string
}

// NewPersistence resolves the roster path under $HOME (or /tmp if HOME
// is unset).
func NewPersistence() *Persistence {
	home := os.Getenv("HOME")
	if home == "" {
		home = "/tmp"
	}
	dir := filepath.Join(home, ".agent-tui")
	path := filepath.Join(dir, "sessions.json")
	return &Persistence{path: path, lockPath: path + ".lock"}
}

func persistenceErr(op string, err error) *apperr.Error {
	return apperr.Wrap(apperr.Persistence, err).WithContext("operation", op)
}

func (p *Persistence) ensureDir() error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return persistenceErr("create_dir", err)
	}
	return nil
}

// acquireLock opens the lock file and blocks (with exponential backoff,
// capped at 5s total) until an exclusive, non-blocking flock succeeds.
// The caller must close the returned file to release the lock.
func (p *Persistence) acquireLock() (*os.File, error) {
	if err := p.ensureDir(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p.lockPath, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, persistenceErr("open_lock", err)
	}

	deadline := time.Now().Add(persistenceLockTimeout)
	backoff := time.Millisecond
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return f, nil
		}
		if err != syscall.EWOULDBLOCK && err != syscall.EAGAIN {
			f.Close()
			return nil, persistenceErr("flock", err)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, apperr.New(apperr.Persistence, "lock acquisition timed out after 5 seconds").WithContext("operation", "acquire_lock")
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 100*time.Millisecond {
			backoff = 100 * time.Millisecond
		}
	}
}

func (p *Persistence) loadUnlocked() []PersistedSession {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	var sessions []PersistedSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil
	}
	return sessions
}

func (p *Persistence) saveUnlocked(sessions []PersistedSession) error {
	tmpPath := p.path + ".tmp"
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return persistenceErr("write_json", err)
	}
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return persistenceErr("create_temp", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return persistenceErr("rename", err)
	}
	return nil
}

// Load returns the persisted roster, falling back to an unlocked read
// (and an empty slice on any corruption) rather than failing callers
// that merely want a best-effort view.
func (p *Persistence) Load() []PersistedSession {
	lock, err := p.acquireLock()
	if err != nil {
		return p.loadUnlocked()
	}
	defer lock.Close()
	return p.loadUnlocked()
}

// Save overwrites the roster atomically (write to a temp file, then
// rename).
func (p *Persistence) Save(sessions []PersistedSession) error {
	lock, err := p.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Close()
	return p.saveUnlocked(sessions)
}

// AddSession upserts one entry into the roster by id.
func (p *Persistence) AddSession(s PersistedSession) error {
	lock, err := p.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Close()

	sessions := p.loadUnlocked()
	filtered := sessions[:0]
	for _, existing := range sessions {
		if existing.ID != s.ID {
			filtered = append(filtered, existing)
		}
	}
	filtered = append(filtered, s)
	return p.saveUnlocked(filtered)
}

// RemoveSession deletes one entry from the roster by id.
func (p *Persistence) RemoveSession(id string) error {
	lock, err := p.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Close()

	sessions := p.loadUnlocked()
	filtered := sessions[:0]
	for _, existing := range sessions {
		if existing.ID != id {
			filtered = append(filtered, existing)
		}
	}
	return p.saveUnlocked(filtered)
}

// CleanupStale drops roster entries whose pid no longer corresponds to
// a live process (a daemon that crashed without killing its children's
// roster entries), returning how many were removed.
func (p *Persistence) CleanupStale() (int, error) {
	lock, err := p.acquireLock()
	if err != nil {
		return 0, err
	}
	defer lock.Close()

	sessions := p.loadUnlocked()
	var active []PersistedSession
	cleaned := 0
	for _, s := range sessions {
		if isProcessRunning(s.PID) {
			active = append(active, s)
		} else {
			cleaned++
		}
	}
	if err := p.saveUnlocked(active); err != nil {
		return 0, err
	}
	return cleaned, nil
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
