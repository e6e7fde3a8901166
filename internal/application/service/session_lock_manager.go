package service

import (
	"context"
	"sync"
)

// LockMode selects how a second turn for the same session is handled
type LockMode string

const (
	// LockModeReject fails a concurrent turn immediately with a turn-in-progress conflict
	LockModeReject LockMode = "reject"
	// LockModeQueue makes a concurrent turn wait until the running turn finishes
	LockModeQueue LockMode = "queue"
)

// IsValid validates the lock mode
func (m LockMode) IsValid() bool {
	return m == LockModeReject || m == LockModeQueue
}

// SessionLockManager serializes turns per session.
// Each session gets a one-slot channel; entries are dropped once nobody holds or waits on them.
type SessionLockManager struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	slot chan struct{}
	refs int // holders + waiters
}

// NewSessionLockManager creates an empty lock manager
func NewSessionLockManager() *SessionLockManager {
	return &SessionLockManager{
		locks: make(map[string]*sessionLock),
	}
}

// TryAcquire takes the session's lock without waiting.
// Returns false if another turn holds it.
func (m *SessionLockManager) TryAcquire(sessionID string) (release func(), ok bool) {
	l := m.ref(sessionID)
	select {
	case l.slot <- struct{}{}:
		return m.releaser(sessionID, l), true
	default:
		m.unref(sessionID, l)
		return nil, false
	}
}

// Acquire waits for the session's lock or until ctx is done
func (m *SessionLockManager) Acquire(ctx context.Context, sessionID string) (release func(), err error) {
	l := m.ref(sessionID)
	select {
	case l.slot <- struct{}{}:
		return m.releaser(sessionID, l), nil
	case <-ctx.Done():
		m.unref(sessionID, l)
		return nil, ctx.Err()
	}
}

func (m *SessionLockManager) ref(sessionID string) *sessionLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.locks[sessionID]
	if !exists {
		l = &sessionLock{slot: make(chan struct{}, 1)}
		m.locks[sessionID] = l
	}
	l.refs++
	return l
}

func (m *SessionLockManager) unref(sessionID string, l *sessionLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.locks, sessionID)
	}
}

// releaser returns an idempotent release func for a held lock
func (m *SessionLockManager) releaser(sessionID string, l *sessionLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.slot
			m.unref(sessionID, l)
		})
	}
}
