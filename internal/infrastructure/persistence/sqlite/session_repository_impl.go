package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	scenedoc "github.com/YoshitsuguKoike/rehearsal/internal/adapter/gateway/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
	"github.com/YoshitsuguKoike/rehearsal/internal/infrastructure/transaction"
)

const timeLayout = time.RFC3339Nano

// SessionRepositoryImpl implements repository.SessionRepository with SQLite
type SessionRepositoryImpl struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-based session repository
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// getDB returns the transaction from context if present
func (r *SessionRepositoryImpl) getDB(ctx context.Context) dbExecutor {
	if tx, ok := transaction.GetTxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// CreateSession persists a new session together with its pinned scene document
func (r *SessionRepositoryImpl) CreateSession(ctx context.Context, s *session.Session) error {
	var document []byte
	if sc := s.Scene(); sc != nil {
		var err error
		if document, err = scenedoc.Encode(sc); err != nil {
			return fmt.Errorf("encode pinned scene: %w", err)
		}
	}

	query := `
		INSERT INTO sessions (id, user_id, scene_id, current_line_index, status, retry_count,
			summary_feedback, created_at, updated_at, completed_at, scene_document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.getDB(ctx).ExecContext(ctx, query,
		s.ID().String(),
		s.UserID(),
		s.SceneID(),
		s.CurrentLineIndex(),
		s.Status().String(),
		s.RetryCount(),
		s.SummaryFeedback(),
		s.CreatedAt().Format(timeLayout),
		s.UpdatedAt().Format(timeLayout),
		formatNullableTime(s.CompletedAt()),
		string(document),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("session %s already exists: %w", s.ID(), repository.ErrConflict)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// LoadSession returns the session and its delivery log in append order
func (r *SessionRepositoryImpl) LoadSession(ctx context.Context, id model.SessionID) (*session.Session, []*session.Delivery, error) {
	db := r.getDB(ctx)

	query := `
		SELECT user_id, scene_id, current_line_index, status, retry_count,
			summary_feedback, created_at, updated_at, completed_at, scene_document
		FROM sessions WHERE id = ?
	`
	var (
		userID, sceneID, status, summary, createdAt, updatedAt, document string
		lineIndex, retryCount                                            int
		completedAt                                                      sql.NullString
	)
	err := db.QueryRowContext(ctx, query, id.String()).Scan(
		&userID, &sceneID, &lineIndex, &status, &retryCount,
		&summary, &createdAt, &updatedAt, &completedAt, &document,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query session: %w", err)
	}

	st, err := model.ParseSessionStatus(status)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", id, err)
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parse created_at: %w", err)
	}
	updated, err := time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parse updated_at: %w", err)
	}
	completed, err := parseNullableTime(completedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parse completed_at: %w", err)
	}

	sess := session.ReconstructSession(id, userID, sceneID, lineIndex, st, retryCount, summary, created, updated, completed)
	if document != "" {
		sc, err := scenedoc.Decode([]byte(document))
		if err != nil {
			return nil, nil, fmt.Errorf("session %s: decode pinned scene: %w", id, err)
		}
		if err := sess.PinScene(sc); err != nil {
			return nil, nil, fmt.Errorf("session %s: %w", id, err)
		}
	}

	history, err := r.loadDeliveries(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	return sess, history, nil
}

func (r *SessionRepositoryImpl) loadDeliveries(ctx context.Context, db dbExecutor, id model.SessionID) ([]*session.Delivery, error) {
	query := `
		SELECT id, line_index, attempt, speaker, text, score, verdict, feedback, fallback, created_at
		FROM deliveries WHERE session_id = ? ORDER BY seq ASC
	`
	rows, err := db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var history []*session.Delivery
	for rows.Next() {
		var (
			rawID, speaker, text, verdict, createdAt string
			lineIndex, attempt                       int
			score                                    sql.NullFloat64
			feedback                                 sql.NullString
			fallback                                 bool
		)
		if err := rows.Scan(&rawID, &lineIndex, &attempt, &speaker, &text, &score, &verdict, &feedback, &fallback, &createdAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}

		deliveryID, err := model.NewDeliveryIDFromString(rawID)
		if err != nil {
			return nil, fmt.Errorf("delivery %s: %w", rawID, err)
		}
		role, err := scene.ParseSpeakerRole(speaker)
		if err != nil {
			return nil, fmt.Errorf("delivery %s: %w", rawID, err)
		}
		v, err := session.ParseVerdict(verdict)
		if err != nil {
			return nil, fmt.Errorf("delivery %s: %w", rawID, err)
		}
		created, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("delivery %s: parse created_at: %w", rawID, err)
		}

		d := &session.Delivery{
			ID:        deliveryID,
			SessionID: id,
			LineIndex: lineIndex,
			Attempt:   attempt,
			Speaker:   role,
			Text:      text,
			Verdict:   v,
			Fallback:  fallback,
			CreatedAt: created,
		}
		if score.Valid {
			s := score.Float64
			d.Score = &s
		}
		if feedback.Valid {
			f := feedback.String
			d.Feedback = &f
		}
		history = append(history, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return history, nil
}

// AppendDelivery appends d to the session's log.
// The record must carry the next expected (line index, attempt) pair and the
// session must still be active; otherwise ErrConflict is returned.
func (r *SessionRepositoryImpl) AppendDelivery(ctx context.Context, id model.SessionID, d *session.Delivery) error {
	db := r.getDB(ctx)

	var status string
	err := db.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, id.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query session status: %w", err)
	}
	if status != model.SessionStatusActive.String() {
		return fmt.Errorf("session %s is %s: %w", id, status, repository.ErrConflict)
	}

	seq, nextLine, nextAttempt, err := r.nextPosition(ctx, db, id)
	if err != nil {
		return err
	}
	if d.LineIndex != nextLine || d.Attempt != nextAttempt {
		return fmt.Errorf("delivery for line %d attempt %d, expected line %d attempt %d: %w",
			d.LineIndex, d.Attempt, nextLine, nextAttempt, repository.ErrConflict)
	}

	query := `
		INSERT INTO deliveries (id, session_id, seq, line_index, attempt, speaker, text, score,
			verdict, feedback, fallback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var score sql.NullFloat64
	if d.Score != nil {
		score = sql.NullFloat64{Float64: *d.Score, Valid: true}
	}
	var feedback sql.NullString
	if d.Feedback != nil {
		feedback = sql.NullString{String: *d.Feedback, Valid: true}
	}

	_, err = db.ExecContext(ctx, query,
		d.ID.String(),
		id.String(),
		seq,
		d.LineIndex,
		d.Attempt,
		d.Speaker.String(),
		d.Text,
		score,
		d.Verdict.String(),
		feedback,
		d.Fallback,
		d.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("line %d attempt %d already recorded: %w", d.LineIndex, d.Attempt, repository.ErrConflict)
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// nextPosition derives the next sequence number and expected (line, attempt) from the last record
func (r *SessionRepositoryImpl) nextPosition(ctx context.Context, db dbExecutor, id model.SessionID) (seq, line, attempt int, err error) {
	query := `
		SELECT seq, line_index, attempt, verdict FROM deliveries
		WHERE session_id = ? ORDER BY seq DESC LIMIT 1
	`
	var lastSeq, lastLine, lastAttempt int
	var lastVerdict string
	err = db.QueryRowContext(ctx, query, id.String()).Scan(&lastSeq, &lastLine, &lastAttempt, &lastVerdict)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, 0, 1, nil
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query last delivery: %w", err)
	}

	if session.Verdict(lastVerdict).ResolvesLine() {
		return lastSeq + 1, lastLine + 1, 1, nil
	}
	return lastSeq + 1, lastLine, lastAttempt + 1, nil
}

// UpdateSession writes the non-nil fields of update to an active session
func (r *SessionRepositoryImpl) UpdateSession(ctx context.Context, id model.SessionID, update repository.SessionUpdate) error {
	db := r.getDB(ctx)

	sets := []string{"updated_at = ?"}
	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	args := []interface{}{updatedAt.Format(timeLayout)}

	if update.CurrentLineIndex != nil {
		sets = append(sets, "current_line_index = ?")
		args = append(args, *update.CurrentLineIndex)
	}
	if update.RetryCount != nil {
		sets = append(sets, "retry_count = ?")
		args = append(args, *update.RetryCount)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, update.Status.String())
	}
	if update.SummaryFeedback != nil {
		sets = append(sets, "summary_feedback = ?")
		args = append(args, *update.SummaryFeedback)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, update.CompletedAt.Format(timeLayout))
	}
	args = append(args, id.String(), model.SessionStatusActive.String())

	query := fmt.Sprintf("UPDATE sessions SET %s WHERE id = ? AND status = ?", strings.Join(sets, ", "))
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var status string
	err = db.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, id.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query session status: %w", err)
	}
	return fmt.Errorf("session %s is %s: %w", id, status, repository.ErrConflict)
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(timeLayout), Valid: true}
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
