// Package usecase implements the daemon's request-level operations: the
// layer between the RPC router and the session/VOM primitives. Each
// operation resolves a target session, performs one focused action or
// query, and returns a plain result struct or an *apperr.Error — no
// JSON-RPC or transport concerns leak in here.
package usecase

import (
	"time"

	"github.com/agent-tui/agent-tuid/internal/apperr"
	"github.com/agent-tui/agent-tuid/internal/session"
	"github.com/agent-tui/agent-tuid/internal/vom"
)

// Executor holds the session manager every use case acts against.
type Executor struct {
	Manager *session.Manager
}

// New builds an Executor bound to manager.
func New(manager *session.Manager) *Executor {
	return &Executor{Manager: manager}
}

func (e *Executor) resolve(sessionID string) (*session.Session, error) {
	return e.Manager.Resolve(sessionID)
}

// resolveElement refreshes the session's ref map against its current
// screen and resolves ref against it, the same two-step a human
// operator does: look at a fresh snapshot, then act on an `eN` from it.
func resolveElement(sess *session.Session, ref string) (vom.ElementRef, error) {
	sess.Snapshot(vom.SnapshotOptions{})
	return sess.ResolveRef(ref)
}

func wrongType(ref, role, want string) error {
	return apperr.New(apperr.WrongElementType, ref+": role "+role+" is not "+want).
		WithContext("ref", ref).
		WithContext("role", role)
}

const dblClickDelay = 50 * time.Millisecond
