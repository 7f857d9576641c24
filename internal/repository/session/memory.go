// Package session stores TTL-bound conversational memory. Two backends:
// an in-process map with per-session locking, and Redis JSON documents for
// deployments that need sessions to survive restarts.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// Memory is an in-process session store. The map mutex guards only lookup,
// insert and delete; each session carries its own lock, so read-modify-write
// on one session never blocks another.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	mu      sync.Mutex
	session domain.Session
}

// NewMemory creates an in-process session store with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memoryEntry),
	}
}

// WithClock overrides the time source. Tests only.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Create starts a new session with a fresh identifier.
func (m *Memory) Create(_ context.Context, metadata map[string]string) (domain.Session, error) {
	now := m.now()
	s := domain.Session{
		ID:        domain.NewSessionID(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Metadata:  metadata,
	}

	m.mu.Lock()
	m.sessions[s.ID] = &memoryEntry{session: s}
	m.mu.Unlock()

	return cloneSession(s), nil
}

// Get returns a session by id. Reading an expired session deletes it and
// reports not-found, identical to a session that never existed.
func (m *Memory) Get(_ context.Context, id string) (domain.Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Expired(m.now()) {
		m.delete(id)
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return cloneSession(e.session), nil
}

// Touch slides a session's expiration forward by the full TTL without
// modifying its history. Called once per incoming message, so sessions stay
// alive even when an exchange records no turns.
func (m *Memory) Touch(_ context.Context, id string) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	if e.session.Expired(now) {
		m.delete(id)
		return domain.ErrSessionNotFound
	}

	e.session.UpdatedAt = now
	e.session.ExpiresAt = now.Add(m.ttl)
	return nil
}

// AppendTurns appends turns to a session and slides its expiration forward
// by the full TTL from the access time.
func (m *Memory) AppendTurns(_ context.Context, id string, turns ...domain.Turn) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	if e.session.Expired(now) {
		m.delete(id)
		return domain.ErrSessionNotFound
	}

	e.session.Turns = append(e.session.Turns, turns...)
	e.session.UpdatedAt = now
	e.session.ExpiresAt = now.Add(m.ttl)
	return nil
}

func (m *Memory) delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// cloneSession copies the turn slice so callers cannot mutate stored state.
func cloneSession(s domain.Session) domain.Session {
	s.Turns = append([]domain.Turn(nil), s.Turns...)
	return s
}
