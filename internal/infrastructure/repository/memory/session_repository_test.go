package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
)

func newSession(t *testing.T, repo *SessionRepository) *session.Session {
	s, err := session.NewSession("user-1", "bakery")
	require.NoError(t, err)
	require.NoError(t, repo.CreateSession(context.Background(), s))
	return s
}

func TestSessionRepository_LoadReturnsCopies(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	s := newSession(t, repo)

	loaded, _, err := repo.LoadSession(ctx, s.ID())
	require.NoError(t, err)
	require.NoError(t, loaded.Advance(3))

	again, _, err := repo.LoadSession(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, again.CurrentLineIndex())
	assert.Len(t, repo.sessions, 1)
}

func TestSessionRepository_AppendChecksPosition(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	s := newSession(t, repo)

	d, err := session.NewHumanDelivery(s.ID(), 0, 1, "hi", 0.2, session.VerdictRetry, nil)
	require.NoError(t, err)
	require.NoError(t, repo.AppendDelivery(ctx, s.ID(), d))

	dup, err := session.NewHumanDelivery(s.ID(), 0, 1, "hi", 0.2, session.VerdictRetry, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.AppendDelivery(ctx, s.ID(), dup), repository.ErrConflict)

	skip := session.NewAIDelivery(s.ID(), 1, "Is it?", false)
	assert.ErrorIs(t, repo.AppendDelivery(ctx, s.ID(), skip), repository.ErrConflict)

	next, err := session.NewHumanDelivery(s.ID(), 0, 2, "good morning", 1, session.VerdictAccepted, nil)
	require.NoError(t, err)
	require.NoError(t, repo.AppendDelivery(ctx, s.ID(), next))

	_, history, err := repo.LoadSession(ctx, s.ID())
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSessionRepository_InactiveSessionRejectsWrites(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	s := newSession(t, repo)

	abandoned := model.SessionStatusAbandoned
	require.NoError(t, repo.UpdateSession(ctx, s.ID(), repository.SessionUpdate{Status: &abandoned}))

	d := session.NewAIDelivery(s.ID(), 0, "Hello", false)
	assert.ErrorIs(t, repo.AppendDelivery(ctx, s.ID(), d), repository.ErrConflict)

	idx := 1
	assert.ErrorIs(t, repo.UpdateSession(ctx, s.ID(), repository.SessionUpdate{CurrentLineIndex: &idx}), repository.ErrConflict)
}

func TestSessionRepository_MissingSession(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	id := model.NewSessionID()

	_, _, err := repo.LoadSession(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.AppendDelivery(ctx, id, session.NewAIDelivery(id, 0, "x", false)), repository.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateSession(ctx, id, repository.SessionUpdate{}), repository.ErrNotFound)
}

func TestSessionRepository_UpdateCompletion(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	s := newSession(t, repo)

	require.NoError(t, s.Advance(2))
	require.NoError(t, s.Complete("done"))
	require.NoError(t, repo.UpdateSession(ctx, s.ID(), repository.UpdateFromSession(s)))

	loaded, _, err := repo.LoadSession(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, loaded.Status())
	assert.Equal(t, "done", loaded.SummaryFeedback())
	assert.NotNil(t, loaded.CompletedAt())
	assert.Equal(t, 2, loaded.CurrentLineIndex())
}

func TestSessionRepository_KeepsPinnedScene(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	sc, err := scene.NewScene("bakery", "The Bakery", "", nil,
		[]scene.Line{{Speaker: scene.SpeakerHuman, Text: "Good morning."}}, scene.Settings{})
	require.NoError(t, err)
	s, err := session.NewSession("user-1", "bakery")
	require.NoError(t, err)
	require.NoError(t, s.PinScene(sc))
	require.NoError(t, repo.CreateSession(ctx, s))

	idx := 1
	require.NoError(t, repo.UpdateSession(ctx, s.ID(), repository.SessionUpdate{CurrentLineIndex: &idx}))

	loaded, _, err := repo.LoadSession(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.CurrentLineIndex())
	assert.Same(t, sc, loaded.Scene())
}
