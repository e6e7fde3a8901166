package rehearsal

import (
	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
)

func (uc *RehearsalUseCase) stateOutput(tc *turnContext) dto.SessionStateOutput {
	s := tc.sess
	turn := session.DetermineTurn(tc.scene, s.CurrentLineIndex())

	out := dto.SessionStateOutput{
		SessionID:        s.ID().String(),
		UserID:           s.UserID(),
		SceneID:          s.SceneID(),
		SceneTitle:       tc.scene.Title(),
		Status:           s.Status().String(),
		Phase:            turn.Phase.String(),
		NextAction:       string(turn.NextAction()),
		CurrentLineIndex: s.CurrentLineIndex(),
		TotalLines:       tc.scene.Len(),
		RetryCount:       s.RetryCount(),
		SummaryFeedback:  s.SummaryFeedback(),
		CreatedAt:        s.CreatedAt(),
		UpdatedAt:        s.UpdatedAt(),
		CompletedAt:      s.CompletedAt(),
	}

	switch {
	case s.Status() == model.SessionStatusCompleted:
		out.Phase = session.PhaseSceneComplete.String()
		out.NextAction = string(session.NextActionNone)
	case !s.IsActive():
		out.NextAction = string(session.NextActionNone)
	case turn.Phase == session.PhaseSceneComplete:
		// Every line is logged but the completion was never written
		out.NextAction = string(session.NextActionResume)
	case turn.Phase == session.PhaseAwaitingUserDelivery:
		line, _ := tc.scene.Line(turn.LineIndex)
		out.CurrentLine = lineDTO(tc.scene, line)
		out.AttemptsRemaining = tc.rules.MaxRetries - s.RetryCount() + 1
	}
	return out
}

func (uc *RehearsalUseCase) deliveryDTO(sc *scene.Scene, d *session.Delivery) dto.DeliveryDTO {
	return dto.DeliveryDTO{
		ID:        d.ID.String(),
		LineIndex: d.LineIndex,
		Attempt:   d.Attempt,
		Speaker:   d.Speaker.String(),
		Character: sc.Character(d.Speaker).Name,
		Text:      d.Text,
		Score:     d.Score,
		Verdict:   d.Verdict.String(),
		Feedback:  d.Feedback,
		Fallback:  d.Fallback,
		CreatedAt: d.CreatedAt,
	}
}

func lineDTO(sc *scene.Scene, l scene.Line) *dto.LineDTO {
	return &dto.LineDTO{
		Index:     l.Index,
		Speaker:   l.Speaker.String(),
		Character: sc.Character(l.Speaker).Name,
		Text:      l.Text,
	}
}
