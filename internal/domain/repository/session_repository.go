package repository

import (
	"context"
	"errors"
	"time"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
)

// Gateway errors. Adapters wrap these with %w so callers can use errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// SessionUpdate carries the mutable session fields written after a turn.
// Nil fields are left unchanged.
type SessionUpdate struct {
	CurrentLineIndex *int
	RetryCount       *int
	Status           *model.SessionStatus
	SummaryFeedback  *string
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}

// UpdateFromSession builds a full SessionUpdate from the session's current fields
func UpdateFromSession(s *session.Session) SessionUpdate {
	idx := s.CurrentLineIndex()
	retry := s.RetryCount()
	status := s.Status()
	summary := s.SummaryFeedback()
	return SessionUpdate{
		CurrentLineIndex: &idx,
		RetryCount:       &retry,
		Status:           &status,
		SummaryFeedback:  &summary,
		CompletedAt:      s.CompletedAt(),
		UpdatedAt:        s.UpdatedAt(),
	}
}

// SessionRepository is the session state gateway.
// The delivery log it stores is the single source of truth for session progress.
type SessionRepository interface {
	// CreateSession persists a new session, including its pinned scene
	CreateSession(ctx context.Context, s *session.Session) error

	// LoadSession returns the session, with the scene pinned at creation, and its
	// ordered delivery history. Returns ErrNotFound if absent.
	LoadSession(ctx context.Context, id model.SessionID) (*session.Session, []*session.Delivery, error)

	// AppendDelivery appends a record to the session's log.
	// Returns ErrConflict if the record's line index is not the next expected index,
	// the (line index, attempt) pair already exists, or the session is not active.
	AppendDelivery(ctx context.Context, id model.SessionID, d *session.Delivery) error

	// UpdateSession writes the given session fields.
	// Returns ErrNotFound if absent and ErrConflict if the session is no longer active.
	UpdateSession(ctx context.Context, id model.SessionID, update SessionUpdate) error
}
