package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
)

// Session represents a user rehearsing one scene.
// Session is an aggregate root; only the rehearsal use case mutates it.
type Session struct {
	id               model.SessionID
	userID           string
	sceneID          string
	currentLineIndex int
	status           model.SessionStatus
	retryCount       int
	summaryFeedback  string
	createdAt        time.Time
	updatedAt        time.Time
	completedAt      *time.Time

	// scene is the script pinned when the session started; nil for sessions stored without one
	scene *scene.Scene
}

// NewSession creates a new active session positioned at the first line
func NewSession(userID, sceneID string) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if strings.TrimSpace(sceneID) == "" {
		return nil, fmt.Errorf("scene ID cannot be empty")
	}

	now := time.Now().UTC()
	return &Session{
		id:        model.NewSessionID(),
		userID:    userID,
		sceneID:   sceneID,
		status:    model.SessionStatusActive,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructSession reconstructs a Session from stored data
func ReconstructSession(
	id model.SessionID,
	userID string,
	sceneID string,
	currentLineIndex int,
	status model.SessionStatus,
	retryCount int,
	summaryFeedback string,
	createdAt time.Time,
	updatedAt time.Time,
	completedAt *time.Time,
) *Session {
	return &Session{
		id:               id,
		userID:           userID,
		sceneID:          sceneID,
		currentLineIndex: currentLineIndex,
		status:           status,
		retryCount:       retryCount,
		summaryFeedback:  summaryFeedback,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
		completedAt:      completedAt,
	}
}

func (s *Session) ID() model.SessionID         { return s.id }
func (s *Session) UserID() string              { return s.userID }
func (s *Session) SceneID() string             { return s.sceneID }
func (s *Session) CurrentLineIndex() int       { return s.currentLineIndex }
func (s *Session) Status() model.SessionStatus { return s.status }
func (s *Session) RetryCount() int             { return s.retryCount }
func (s *Session) SummaryFeedback() string     { return s.summaryFeedback }
func (s *Session) CreatedAt() time.Time        { return s.createdAt }
func (s *Session) UpdatedAt() time.Time        { return s.updatedAt }
func (s *Session) CompletedAt() *time.Time     { return s.completedAt }

// Scene returns the pinned scene, or nil when none was pinned
func (s *Session) Scene() *scene.Scene { return s.scene }

// PinScene fixes the script this session rehearses for its whole lifetime.
// Later changes to the scene store do not reach a pinned session.
func (s *Session) PinScene(sc *scene.Scene) error {
	if sc == nil {
		return fmt.Errorf("scene cannot be nil")
	}
	if sc.ID() != s.sceneID {
		return fmt.Errorf("scene %s does not belong to session for scene %s", sc.ID(), s.sceneID)
	}
	s.scene = sc
	return nil
}

// IsActive reports whether the session still accepts deliveries
func (s *Session) IsActive() bool {
	return s.status == model.SessionStatusActive
}

// Advance moves to the given line index and clears the retry counter.
// The index never moves backwards.
func (s *Session) Advance(next int) error {
	if next < s.currentLineIndex {
		return fmt.Errorf("line index cannot move backwards: %d -> %d", s.currentLineIndex, next)
	}
	s.currentLineIndex = next
	s.retryCount = 0
	s.touch()
	return nil
}

// RecordRetry increments the retry counter for the current line
func (s *Session) RecordRetry() {
	s.retryCount++
	s.touch()
}

// Complete marks the session completed with the given summary
func (s *Session) Complete(summary string) error {
	if err := s.transition(model.SessionStatusCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	s.summaryFeedback = summary
	s.completedAt = &now
	return nil
}

// Abandon marks the session abandoned
func (s *Session) Abandon() error {
	return s.transition(model.SessionStatusAbandoned)
}

// Reconcile replaces the progress counters with values replayed from the delivery log
func (s *Session) Reconcile(p Progress) {
	s.currentLineIndex = p.LineIndex
	s.retryCount = p.RetryCount
}

func (s *Session) transition(next model.SessionStatus) error {
	if !s.status.CanTransitionTo(next) {
		return fmt.Errorf("invalid session status transition: %s -> %s", s.status, next)
	}
	s.status = next
	s.touch()
	return nil
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}
