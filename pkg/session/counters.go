// Package session tracks per-session activity counters fed by external
// input-capture sources (keyboard, pointer). Counters only ever grow; the
// aggregator reads them through a single consistent snapshot.
package session

import (
	"sync"
	"time"
)

// Counters is the mutable activity state for one session. Many producers may
// increment concurrently; all mutation and reading happens under one mutex so
// a snapshot can never observe a torn combination of counts.
type Counters struct {
	mu          sync.Mutex
	keyEvents   uint64
	clickEvents uint64
	moveEvents  uint64
	start       time.Time
}

// Snapshot is a consistent read of all counters plus elapsed session time.
type Snapshot struct {
	KeyEvents   uint64
	ClickEvents uint64
	MoveEvents  uint64
	Elapsed     time.Duration
}

func newCounters(now time.Time) *Counters {
	return &Counters{start: now}
}

// AddKeyEvents records n key presses.
func (c *Counters) AddKeyEvents(n uint64) {
	c.mu.Lock()
	c.keyEvents += n
	c.mu.Unlock()
}

// AddClickEvents records n pointer clicks.
func (c *Counters) AddClickEvents(n uint64) {
	c.mu.Lock()
	c.clickEvents += n
	c.mu.Unlock()
}

// AddMoveEvents records n pointer movements.
func (c *Counters) AddMoveEvents(n uint64) {
	c.mu.Lock()
	c.moveEvents += n
	c.mu.Unlock()
}

// Snapshot reads all three counters and the elapsed time in one critical
// section. Counters are not reset: counts are monotonic for the session
// lifetime.
func (c *Counters) Snapshot(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		KeyEvents:   c.keyEvents,
		ClickEvents: c.clickEvents,
		MoveEvents:  c.moveEvents,
		Elapsed:     now.Sub(c.start),
	}
}

// Manager owns the counter aggregates for all live sessions. Sessions are
// created on first touch and persist for the process lifetime.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Counters
	now      func() time.Time
}

// NewManager creates an empty session manager using wall-clock time.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Counters), now: time.Now}
}

// NewManagerWithClock creates a manager with an injectable clock for tests.
func NewManagerWithClock(now func() time.Time) *Manager {
	return &Manager{sessions: make(map[string]*Counters), now: now}
}

// Get returns the counters for the session id, creating them at first use.
func (m *Manager) Get(id string) *Counters {
	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[id]; ok {
		return c
	}
	c = newCounters(m.now())
	m.sessions[id] = c
	return c
}

// Snapshot takes a consistent snapshot of the named session.
func (m *Manager) Snapshot(id string) Snapshot {
	return m.Get(id).Snapshot(m.now())
}
