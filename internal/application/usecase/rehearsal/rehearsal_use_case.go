// Package rehearsal implements the turn-taking orchestrator.
//
// Every operation loads the session and its delivery log, replays the log to
// find the current line, drives the state machine as far as it can without
// the actor, and returns the suspended state. The log is the only source of
// truth: in-memory state changes only after the gateway confirms a write.
package rehearsal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/service"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/service/matcher"
)

// Default rehearsal rules applied when a scene does not override them
const (
	DefaultAcceptanceThreshold = 0.8
	DefaultMaxRetries          = 2
	DefaultHistoryWindow       = 6
)

// Config holds engine-wide rehearsal settings
type Config struct {
	Defaults scene.Rules
	LockMode service.LockMode
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Defaults: scene.Rules{
			AcceptanceThreshold: DefaultAcceptanceThreshold,
			MaxRetries:          DefaultMaxRetries,
			HistoryWindow:       DefaultHistoryWindow,
		},
		LockMode: service.LockModeReject,
	}
}

// RehearsalUseCase orchestrates rehearsal sessions
type RehearsalUseCase struct {
	sessionRepo repository.SessionRepository
	sceneRepo   repository.SceneRepository
	txManager   output.TransactionManager
	locks       *service.SessionLockManager
	matcher     *matcher.Matcher
	responder   *service.PersonaResponder
	coach       *service.CoachFeedbackGenerator
	config      Config
	logger      app.Logger
}

// NewRehearsalUseCase creates a new RehearsalUseCase
func NewRehearsalUseCase(
	sessionRepo repository.SessionRepository,
	sceneRepo repository.SceneRepository,
	txManager output.TransactionManager,
	locks *service.SessionLockManager,
	m *matcher.Matcher,
	responder *service.PersonaResponder,
	coach *service.CoachFeedbackGenerator,
	config Config,
	logger app.Logger,
) *RehearsalUseCase {
	if logger == nil {
		logger = app.GetLogger()
	}
	if locks == nil {
		locks = service.NewSessionLockManager()
	}
	if m == nil {
		m = matcher.NewDefault()
	}
	if responder == nil {
		responder = service.NewPersonaResponder(nil, nil, service.DefaultPersonaResponderConfig(), logger)
	}
	if coach == nil {
		coach = service.NewCoachFeedbackGenerator(nil, nil, service.DefaultCoachConfig(), logger)
	}
	if !config.LockMode.IsValid() {
		config.LockMode = service.LockModeReject
	}
	if config.Defaults.AcceptanceThreshold <= 0 || config.Defaults.AcceptanceThreshold > 1 {
		config.Defaults.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	if config.Defaults.MaxRetries < 0 {
		config.Defaults.MaxRetries = DefaultMaxRetries
	}
	if config.Defaults.HistoryWindow < 0 {
		config.Defaults.HistoryWindow = DefaultHistoryWindow
	}

	return &RehearsalUseCase{
		sessionRepo: sessionRepo,
		sceneRepo:   sceneRepo,
		txManager:   txManager,
		locks:       locks,
		matcher:     m,
		responder:   responder,
		coach:       coach,
		config:      config,
		logger:      logger,
	}
}

// StartSession creates a session and speaks any AI lines that precede the actor's first cue
func (uc *RehearsalUseCase) StartSession(ctx context.Context, in dto.StartSessionInput) (*dto.StartSessionOutput, error) {
	sc, err := uc.loadScene(ctx, in.SceneID)
	if err != nil {
		return nil, err
	}

	sess, err := session.NewSession(strings.TrimSpace(in.UserID), sc.ID())
	if err != nil {
		return nil, model.NewConfigurationError("invalid session request", err)
	}
	if err := sess.PinScene(sc); err != nil {
		return nil, model.NewConfigurationError("invalid session request", err)
	}

	release, err := uc.lock(ctx, sess.ID())
	if err != nil {
		return nil, err
	}
	defer release()

	if err := uc.sessionRepo.CreateSession(ctx, sess); err != nil {
		return nil, model.NewPersistenceError("create session", err)
	}
	uc.logger.Info("session %s started: user=%s scene=%s lines=%d", sess.ID(), sess.UserID(), sc.ID(), sc.Len())

	tc := &turnContext{sess: sess, scene: sc, rules: sc.Resolve(uc.config.Defaults)}
	out := &dto.StartSessionOutput{}

	spoken, err := uc.advance(ctx, tc)
	out.AILines = spoken.lines
	out.Notices = spoken.notices
	if err != nil {
		if !errors.Is(err, model.ErrSessionAbandoned) {
			return nil, err
		}
		tc = uc.reloadAfterAbandon(ctx, tc)
	}

	out.State = uc.stateOutput(tc)
	return out, nil
}

// SubmitDelivery evaluates the actor's transcript for the current line.
// A concurrent submission for the same session is rejected with ErrTurnInProgress
// (or queued, depending on the lock mode).
func (uc *RehearsalUseCase) SubmitDelivery(ctx context.Context, in dto.SubmitDeliveryInput) (*dto.SubmitDeliveryOutput, error) {
	id, err := parseSessionID(in.SessionID)
	if err != nil {
		return nil, err
	}

	release, err := uc.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	tc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkActive(tc.sess); err != nil {
		return nil, err
	}

	out := &dto.SubmitDeliveryOutput{}

	// Crash recovery: speak AI lines left pending by an interrupted turn before evaluating
	spoken, err := uc.resumePending(ctx, tc)
	out.AILines = append(out.AILines, spoken.lines...)
	out.Notices = append(out.Notices, spoken.notices...)
	if err != nil {
		return nil, err
	}
	if err := checkActive(tc.sess); err != nil {
		return nil, err
	}

	idx := tc.sess.CurrentLineIndex()
	if in.LineIndex != nil && *in.LineIndex != idx {
		return nil, model.ErrLineResolved.WithCause(
			fmt.Errorf("delivery for line %d, but session %s is awaiting line %d", *in.LineIndex, id, idx))
	}

	line, _ := tc.scene.Line(idx)
	delivery, notices, err := uc.evaluate(ctx, tc, line, in.Transcript)
	if err != nil {
		return nil, err
	}
	out.Delivery = uc.deliveryDTO(tc.scene, delivery)
	out.Notices = append(out.Notices, notices...)

	if delivery.Verdict.ResolvesLine() {
		spoken, err := uc.advance(ctx, tc)
		out.AILines = append(out.AILines, spoken.lines...)
		out.Notices = append(out.Notices, spoken.notices...)
		if err != nil {
			if !errors.Is(err, model.ErrSessionAbandoned) {
				return nil, err
			}
			tc = uc.reloadAfterAbandon(ctx, tc)
		}
	}

	out.State = uc.stateOutput(tc)
	return out, nil
}

// ResumeSession speaks partner lines left pending by an interrupted turn and
// completes a session whose log already covers the whole scene.
// A session already awaiting the actor is returned unchanged.
func (uc *RehearsalUseCase) ResumeSession(ctx context.Context, sessionID string) (*dto.ResumeSessionOutput, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	release, err := uc.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	tc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkActive(tc.sess); err != nil {
		return nil, err
	}

	out := &dto.ResumeSessionOutput{}
	spoken, err := uc.resumePending(ctx, tc)
	out.AILines = spoken.lines
	out.Notices = spoken.notices
	if err != nil {
		if !errors.Is(err, model.ErrSessionAbandoned) {
			return nil, err
		}
		tc = uc.reloadAfterAbandon(ctx, tc)
	}

	out.State = uc.stateOutput(tc)
	return out, nil
}

// GetSessionState returns the session's suspended state without changing it
func (uc *RehearsalUseCase) GetSessionState(ctx context.Context, sessionID string) (*dto.SessionStateOutput, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	tc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	state := uc.stateOutput(tc)
	return &state, nil
}

// AbandonSession marks the session abandoned.
// It does not wait for an in-flight turn; that turn discards its pending record.
func (uc *RehearsalUseCase) AbandonSession(ctx context.Context, sessionID string) (*dto.SessionStateOutput, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	tc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkActive(tc.sess); err != nil {
		return nil, err
	}

	next := *tc.sess
	if err := next.Abandon(); err != nil {
		return nil, model.ErrSessionAbandoned.WithCause(err)
	}
	status := next.Status()
	update := repository.SessionUpdate{Status: &status, UpdatedAt: next.UpdatedAt()}
	if err := uc.sessionRepo.UpdateSession(ctx, id, update); err != nil {
		return nil, uc.mapRepositoryError(ctx, id, "abandon session", err)
	}
	*tc.sess = next
	uc.logger.Info("session %s abandoned at line %d", id, next.CurrentLineIndex())

	state := uc.stateOutput(tc)
	return &state, nil
}

// ListDeliveries returns the session's ordered delivery log
func (uc *RehearsalUseCase) ListDeliveries(ctx context.Context, sessionID string) (*dto.ListDeliveriesOutput, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	tc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &dto.ListDeliveriesOutput{
		SessionID:  id.String(),
		Deliveries: make([]dto.DeliveryDTO, 0, len(tc.history)),
	}
	for _, d := range tc.history {
		out.Deliveries = append(out.Deliveries, uc.deliveryDTO(tc.scene, d))
	}
	return out, nil
}

// ListScenes lists scenes available to rehearse
func (uc *RehearsalUseCase) ListScenes(ctx context.Context) ([]dto.SceneSummaryDTO, error) {
	summaries, err := uc.sceneRepo.ListScenes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	out := make([]dto.SceneSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.SceneSummaryDTO{ID: s.ID, Title: s.Title, Lines: s.Lines, ActorLines: s.ActorLines})
	}
	return out, nil
}

// lock takes the per-session turn lock according to the configured mode
func (uc *RehearsalUseCase) lock(ctx context.Context, id model.SessionID) (func(), error) {
	if uc.config.LockMode == service.LockModeQueue {
		release, err := uc.locks.Acquire(ctx, id.String())
		if err != nil {
			return nil, model.ErrTurnInProgress.WithCause(err)
		}
		return release, nil
	}

	release, ok := uc.locks.TryAcquire(id.String())
	if !ok {
		return nil, model.ErrTurnInProgress
	}
	return release, nil
}

func (uc *RehearsalUseCase) loadScene(ctx context.Context, sceneID string) (*scene.Scene, error) {
	sc, err := uc.sceneRepo.GetScene(ctx, sceneID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.ErrSceneNotFound.WithCause(err)
		case model.IsConfigurationError(err):
			return nil, err
		default:
			return nil, model.NewPersistenceError(fmt.Sprintf("load scene %s", sceneID), err)
		}
	}
	return sc, nil
}

// resumePending drives the state machine when the session is not waiting for the actor
func (uc *RehearsalUseCase) resumePending(ctx context.Context, tc *turnContext) (spokenLines, error) {
	if session.DetermineTurn(tc.scene, tc.sess.CurrentLineIndex()).Phase == session.PhaseAwaitingUserDelivery {
		return spokenLines{}, nil
	}
	uc.logger.Warn("session %s resumed at line %d with pending partner lines", tc.sess.ID(), tc.sess.CurrentLineIndex())
	return uc.advance(ctx, tc)
}

// reloadAfterAbandon re-reads a session abandoned mid-turn so the returned state reflects it
func (uc *RehearsalUseCase) reloadAfterAbandon(ctx context.Context, tc *turnContext) *turnContext {
	fresh, err := uc.load(ctx, tc.sess.ID())
	if err != nil {
		uc.logger.Warn("reload abandoned session %s: %v", tc.sess.ID(), err)
		return tc
	}
	return fresh
}

func parseSessionID(raw string) (model.SessionID, error) {
	id, err := model.NewSessionIDFromString(strings.TrimSpace(raw))
	if err != nil {
		return model.SessionID{}, model.ErrSessionNotFound.WithCause(err)
	}
	return id, nil
}

func checkActive(s *session.Session) error {
	switch s.Status() {
	case model.SessionStatusCompleted:
		return model.ErrSessionCompleted
	case model.SessionStatusAbandoned:
		return model.ErrSessionAbandoned
	default:
		return nil
	}
}
