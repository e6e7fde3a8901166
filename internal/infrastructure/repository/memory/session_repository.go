// Package memory holds in-process store implementations.
// They keep nothing across restarts and suit tests and one-shot CLI runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
)

type sessionEntry struct {
	session session.Session
	log     []*session.Delivery
}

// SessionRepository is an in-memory repository.SessionRepository.
// It applies the same append and status checks as the SQLite store.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionRepository creates an empty in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*sessionEntry),
	}
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID().String()]; exists {
		return fmt.Errorf("session %s already exists: %w", s.ID(), repository.ErrConflict)
	}
	r.sessions[s.ID().String()] = &sessionEntry{session: *s}
	return nil
}

func (r *SessionRepository) LoadSession(ctx context.Context, id model.SessionID) (*session.Session, []*session.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.sessions[id.String()]
	if !exists {
		return nil, nil, fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	s := entry.session
	history := make([]*session.Delivery, len(entry.log))
	copy(history, entry.log)
	return &s, history, nil
}

func (r *SessionRepository) AppendDelivery(ctx context.Context, id model.SessionID, d *session.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.sessions[id.String()]
	if !exists {
		return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	if !entry.session.IsActive() {
		return fmt.Errorf("session %s is %s: %w", id, entry.session.Status(), repository.ErrConflict)
	}

	progress, err := session.ReplayHistory(entry.log)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	if d.LineIndex != progress.LineIndex || d.Attempt != progress.NextAttempt() {
		return fmt.Errorf("delivery for line %d attempt %d, expected line %d attempt %d: %w",
			d.LineIndex, d.Attempt, progress.LineIndex, progress.NextAttempt(), repository.ErrConflict)
	}

	rec := *d
	entry.log = append(entry.log, &rec)
	return nil
}

func (r *SessionRepository) UpdateSession(ctx context.Context, id model.SessionID, update repository.SessionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.sessions[id.String()]
	if !exists {
		return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	if !entry.session.IsActive() {
		return fmt.Errorf("session %s is %s: %w", id, entry.session.Status(), repository.ErrConflict)
	}

	s := &entry.session
	idx, retry := s.CurrentLineIndex(), s.RetryCount()
	status, summary := s.Status(), s.SummaryFeedback()
	completedAt := s.CompletedAt()
	if update.CurrentLineIndex != nil {
		idx = *update.CurrentLineIndex
	}
	if update.RetryCount != nil {
		retry = *update.RetryCount
	}
	if update.Status != nil {
		status = *update.Status
	}
	if update.SummaryFeedback != nil {
		summary = *update.SummaryFeedback
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		completedAt = &t
	}
	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.UpdatedAt()
	}

	next := session.ReconstructSession(s.ID(), s.UserID(), s.SceneID(), idx, status, retry, summary,
		s.CreatedAt(), updatedAt, completedAt)
	if pinned := s.Scene(); pinned != nil {
		if err := next.PinScene(pinned); err != nil {
			return fmt.Errorf("session %s: %w", id, err)
		}
	}
	entry.session = *next
	return nil
}
