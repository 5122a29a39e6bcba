// Package metrics tracks daemon-wide counters the health/metrics use
// cases report from. Everything here
// is a plain atomic counter — no registry, no labels, no export format —
// since the daemon has exactly one process to describe and no scraping
// pipeline in front of it.
package metrics

import (
	"sync/atomic"
	"time"
)

// Daemon holds the atomic counters for one daemon process lifetime.
type Daemon struct {
	requestsTotal     atomic.Int64
	errorsTotal       atomic.Int64
	lockTimeouts      atomic.Int64
	poisonRecoveries  atomic.Int64
	activeConnections atomic.Int64
	startedAt         time.Time
}

// New starts a fresh counter set with its uptime clock running.
func New() *Daemon {
	return &Daemon{startedAt: time.Now()}
}

func (d *Daemon) RecordRequest()          { d.requestsTotal.Add(1) }
func (d *Daemon) RecordError()            { d.errorsTotal.Add(1) }
func (d *Daemon) RecordLockTimeout()      { d.lockTimeouts.Add(1) }
func (d *Daemon) RecordPoisonRecovery()   { d.poisonRecoveries.Add(1) }
func (d *Daemon) ConnectionOpened()       { d.activeConnections.Add(1) }
func (d *Daemon) ConnectionClosed()       { d.activeConnections.Add(-1) }

// Snapshot is the point-in-time values a health/metrics use case reports.
type Snapshot struct {
	RequestsTotal     int64
	ErrorsTotal       int64
	LockTimeouts      int64
	PoisonRecoveries  int64
	ActiveConnections int64
	UptimeMs          int64
	SessionCount      int
}

// Read takes a snapshot, stamping SessionCount from the caller since
// metrics has no reference to the session manager and shouldn't need one
// just to answer how many sessions are open.
func (d *Daemon) Read(sessionCount int) Snapshot {
	return Snapshot{
		RequestsTotal:     d.requestsTotal.Load(),
		ErrorsTotal:       d.errorsTotal.Load(),
		LockTimeouts:      d.lockTimeouts.Load(),
		PoisonRecoveries:  d.poisonRecoveries.Load(),
		ActiveConnections: d.activeConnections.Load(),
		UptimeMs:          time.Since(d.startedAt).Milliseconds(),
		SessionCount:      sessionCount,
	}
}
