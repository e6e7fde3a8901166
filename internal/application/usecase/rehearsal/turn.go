package rehearsal

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/service"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
)

// turnContext is everything one operation knows about a session.
// sess and history only change after a confirmed write.
type turnContext struct {
	sess    *session.Session
	scene   *scene.Scene
	history []*session.Delivery
	rules   scene.Rules
}

// spokenLines collects partner lines spoken during one call
type spokenLines struct {
	lines   []dto.DeliveryDTO
	notices []dto.Notice
}

// load reads the session, its scene and log, and reconciles counters with the log
func (uc *RehearsalUseCase) load(ctx context.Context, id model.SessionID) (*turnContext, error) {
	sess, history, err := uc.sessionRepo.LoadSession(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrSessionNotFound.WithCause(err)
		}
		return nil, model.NewPersistenceError(fmt.Sprintf("load session %s", id), err)
	}

	// Sessions stored without a pinned scene fall back to the scene store
	sc := sess.Scene()
	if sc == nil {
		sc, err = uc.loadScene(ctx, sess.SceneID())
		if err != nil {
			return nil, err
		}
	}

	progress, err := session.ReplayHistory(history)
	if err != nil {
		return nil, model.NewPersistenceError(fmt.Sprintf("delivery log of session %s is inconsistent", id), err)
	}
	if progress.LineIndex > sc.Len() {
		return nil, model.NewPersistenceError(
			fmt.Sprintf("delivery log of session %s runs past the end of scene %s", id, sc.ID()), nil)
	}
	if progress.LineIndex != sess.CurrentLineIndex() || progress.RetryCount != sess.RetryCount() {
		uc.logger.Warn("session %s row lags its delivery log (line %d retry %d, log says line %d retry %d); using the log",
			id, sess.CurrentLineIndex(), sess.RetryCount(), progress.LineIndex, progress.RetryCount)
		sess.Reconcile(progress)
	}

	return &turnContext{
		sess:    sess,
		scene:   sc,
		history: history,
		rules:   sc.Resolve(uc.config.Defaults),
	}, nil
}

// advance speaks consecutive AI lines until the actor is cued or the scene ends
func (uc *RehearsalUseCase) advance(ctx context.Context, tc *turnContext) (spokenLines, error) {
	var out spokenLines
	for tc.sess.IsActive() {
		turn := session.DetermineTurn(tc.scene, tc.sess.CurrentLineIndex())
		switch turn.Phase {
		case session.PhaseGeneratingAIReply:
			conv := session.BuildConversation(tc.scene, tc.history, turn.LineIndex, tc.rules.HistoryWindow)
			res := uc.responder.Respond(ctx, conv)
			d := session.NewAIDelivery(tc.sess.ID(), turn.LineIndex, res.Text, res.Fallback)

			completed, err := uc.record(ctx, tc, d)
			if err != nil {
				return out, err
			}
			out.lines = append(out.lines, uc.deliveryDTO(tc.scene, d))
			if res.IsUnavailable() {
				out.notices = append(out.notices, dto.Notice{
					Code:      dto.NoticeAIPartnerUnavailable,
					Message:   "AI partner unavailable, showing scripted line",
					LineIndex: intPtr(turn.LineIndex),
				})
			}
			if completed {
				out.notices = append(out.notices, sceneCompleteNotice())
				return out, nil
			}

		case session.PhaseSceneComplete:
			// Only reachable when an earlier call wrote the last record but not the completion
			if err := uc.complete(ctx, tc); err != nil {
				return out, err
			}
			out.notices = append(out.notices, sceneCompleteNotice())
			return out, nil

		default:
			return out, nil
		}
	}
	return out, nil
}

// evaluate scores the transcript, writes the human record and reports degraded outcomes
func (uc *RehearsalUseCase) evaluate(ctx context.Context, tc *turnContext, line scene.Line, transcript string) (*session.Delivery, []dto.Notice, error) {
	score, err := uc.matcher.Compare(transcript, line.Text)
	if err != nil {
		uc.logger.Warn("scoring line %d of session %s failed, scoring 0: %v", line.Index, tc.sess.ID(), err)
		score = 0
	}

	retryCount := tc.sess.RetryCount()
	outcome := session.Evaluate(score, tc.rules.AcceptanceThreshold, retryCount, tc.rules.MaxRetries)
	missing, extra := uc.matcher.Diff(transcript, line.Text)
	attempt := retryCount + 1

	fb := uc.coach.Feedback(ctx, service.FeedbackRequest{
		CharacterName: tc.scene.Character(scene.SpeakerHuman).Name,
		Line:          line,
		Transcript:    transcript,
		Score:         score,
		Threshold:     tc.rules.AcceptanceThreshold,
		Verdict:       outcome.Verdict,
		Attempt:       attempt,
		Missing:       missing,
		Extra:         extra,
	})

	d, err := session.NewHumanDelivery(tc.sess.ID(), line.Index, attempt, transcript, score, outcome.Verdict, fb.Feedback)
	if err != nil {
		return nil, nil, fmt.Errorf("build delivery record: %w", err)
	}

	completed, err := uc.record(ctx, tc, d)
	if err != nil {
		return nil, nil, err
	}
	uc.logger.Info("session %s line %d attempt %d: %s (score %.2f)", tc.sess.ID(), line.Index, attempt, outcome.Verdict, score)

	var notices []dto.Notice
	switch outcome.Verdict {
	case session.VerdictRetry:
		notices = append(notices, dto.Notice{
			Code:      dto.NoticeRetryNeeded,
			Message:   fmt.Sprintf("Retry needed: %d of %d retries used", retryCount+1, tc.rules.MaxRetries),
			LineIndex: intPtr(line.Index),
		})
	case session.VerdictAutoAccepted:
		notices = append(notices, dto.Notice{
			Code:      dto.NoticeAutoAccepted,
			Message:   "Retries exhausted, moving on to the next line",
			LineIndex: intPtr(line.Index),
		})
	}
	if fb.Unavailable {
		notices = append(notices, dto.Notice{
			Code:      dto.NoticeFeedbackUnavailable,
			Message:   "Coaching feedback unavailable for this delivery",
			LineIndex: intPtr(line.Index),
		})
	}
	if completed {
		notices = append(notices, sceneCompleteNotice())
	}
	return d, notices, nil
}

// record appends d and moves the session in one transaction.
// Reaching the end of the scene completes the session in the same write.
func (uc *RehearsalUseCase) record(ctx context.Context, tc *turnContext, d *session.Delivery) (completed bool, err error) {
	next := *tc.sess
	if d.Verdict.ResolvesLine() {
		if err := next.Advance(d.LineIndex + 1); err != nil {
			return false, fmt.Errorf("advance session %s: %w", next.ID(), err)
		}
		if session.DetermineTurn(tc.scene, next.CurrentLineIndex()).Phase == session.PhaseSceneComplete {
			summary := uc.coach.Summarize(ctx, service.SummaryRequest{
				Scene:   tc.scene,
				History: append(slices.Clone(tc.history), d),
			})
			if err := next.Complete(summary); err != nil {
				return false, fmt.Errorf("complete session %s: %w", next.ID(), err)
			}
			completed = true
		}
	} else {
		next.RecordRetry()
	}

	update := sessionUpdate(&next, completed)
	err = uc.txManager.InTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.sessionRepo.AppendDelivery(txCtx, next.ID(), d); err != nil {
			return fmt.Errorf("append delivery: %w", err)
		}
		if err := uc.sessionRepo.UpdateSession(txCtx, next.ID(), update); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, uc.mapRepositoryError(ctx, next.ID(), fmt.Sprintf("record line %d attempt %d", d.LineIndex, d.Attempt), err)
	}

	*tc.sess = next
	tc.history = append(tc.history, d)
	if completed {
		uc.logger.Info("session %s completed", next.ID())
	}
	return completed, nil
}

// complete finishes a session whose log already covers every line
func (uc *RehearsalUseCase) complete(ctx context.Context, tc *turnContext) error {
	next := *tc.sess
	summary := uc.coach.Summarize(ctx, service.SummaryRequest{Scene: tc.scene, History: tc.history})
	if err := next.Complete(summary); err != nil {
		return fmt.Errorf("complete session %s: %w", next.ID(), err)
	}

	update := sessionUpdate(&next, true)
	err := uc.txManager.InTransaction(ctx, func(txCtx context.Context) error {
		return uc.sessionRepo.UpdateSession(txCtx, next.ID(), update)
	})
	if err != nil {
		return uc.mapRepositoryError(ctx, next.ID(), "complete session", err)
	}

	*tc.sess = next
	uc.logger.Info("session %s completed on resume", next.ID())
	return nil
}

// mapRepositoryError turns gateway errors into rehearsal errors.
// A conflict is explained by re-reading the session: an abandon that landed
// mid-turn means the pending record was discarded.
func (uc *RehearsalUseCase) mapRepositoryError(ctx context.Context, id model.SessionID, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.ErrSessionNotFound.WithCause(err)
	case errors.Is(err, repository.ErrConflict):
		current, _, loadErr := uc.sessionRepo.LoadSession(ctx, id)
		if loadErr == nil {
			switch current.Status() {
			case model.SessionStatusAbandoned:
				uc.logger.Info("session %s was abandoned during %s; pending record discarded", id, op)
				return model.ErrSessionAbandoned.WithCause(err)
			case model.SessionStatusCompleted:
				return model.ErrSessionCompleted.WithCause(err)
			}
		}
		return model.ErrLineResolved.WithCause(fmt.Errorf("%s: %w", op, err))
	default:
		return model.NewPersistenceError(op, err)
	}
}

// sessionUpdate writes progress counters, plus the terminal fields when completing.
// Status is left alone otherwise so a concurrent abandon is never overwritten.
func sessionUpdate(s *session.Session, completed bool) repository.SessionUpdate {
	idx := s.CurrentLineIndex()
	retry := s.RetryCount()
	update := repository.SessionUpdate{
		CurrentLineIndex: &idx,
		RetryCount:       &retry,
		UpdatedAt:        s.UpdatedAt(),
	}
	if completed {
		status := s.Status()
		summary := s.SummaryFeedback()
		update.Status = &status
		update.SummaryFeedback = &summary
		update.CompletedAt = s.CompletedAt()
	}
	return update
}

func sceneCompleteNotice() dto.Notice {
	return dto.Notice{Code: dto.NoticeSceneComplete, Message: "Scene complete"}
}

func intPtr(i int) *int {
	return &i
}
