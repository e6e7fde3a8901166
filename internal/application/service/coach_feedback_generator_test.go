package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
)

func fastCoachConfig() CoachConfig {
	cfg := DefaultCoachConfig()
	cfg.Backoff = time.Millisecond
	cfg.Timeout = time.Second
	return cfg
}

func feedbackRequest(verdict session.Verdict, score float64) FeedbackRequest {
	return FeedbackRequest{
		CharacterName: "Ann",
		Line:          scene.Line{Index: 0, Speaker: scene.SpeakerHuman, Text: "To be or not to be"},
		Transcript:    "to be or maybe not",
		Score:         score,
		Threshold:     0.8,
		Verdict:       verdict,
		Attempt:       3,
		Missing:       []string{"to", "be"},
		Extra:         []string{"maybe"},
	}
}

func failingGateway() *output.MockGenerationGateway {
	return &output.MockGenerationGateway{
		GenerateFunc: func(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
			return nil, errors.New("upstream down")
		},
	}
}

func TestCoach_Feedback_AcceptedWithCoaching(t *testing.T) {
	gw := output.NewMockGenerationGateway("Lovely pacing; lean into 'not'.")
	c := NewCoachFeedbackGenerator(gw, nil, fastCoachConfig(), nil)

	res := c.Feedback(context.Background(), feedbackRequest(session.VerdictAccepted, 0.92))

	require.NotNil(t, res.Feedback)
	assert.Equal(t, "Accepted (92%). Lovely pacing; lean into 'not'.", *res.Feedback)
	assert.False(t, res.Unavailable)

	history := gw.History()
	require.Len(t, history, 1)
	assert.Equal(t, 0.0, history[0].Temperature, "Coaching should run at temperature 0")
}

func TestCoach_Feedback_AcceptedGenerationFails(t *testing.T) {
	c := NewCoachFeedbackGenerator(failingGateway(), nil, fastCoachConfig(), nil)

	res := c.Feedback(context.Background(), feedbackRequest(session.VerdictAccepted, 0.92))

	assert.Nil(t, res.Feedback, "Accepted line with failed coaching has no feedback")
	assert.True(t, res.Unavailable)
	assert.Error(t, res.Err)
}

func TestCoach_Feedback_RetryAlwaysExplains(t *testing.T) {
	c := NewCoachFeedbackGenerator(failingGateway(), nil, fastCoachConfig(), nil)

	res := c.Feedback(context.Background(), feedbackRequest(session.VerdictRetry, 0.54))

	require.NotNil(t, res.Feedback)
	assert.Equal(t, `Retry needed (54%, 80% to pass). Missed: "to", "be". Added: "maybe".`, *res.Feedback)
	assert.True(t, res.Unavailable)
}

func TestCoach_Feedback_AutoAccepted(t *testing.T) {
	c := NewCoachFeedbackGenerator(nil, nil, fastCoachConfig(), nil)

	res := c.Feedback(context.Background(), feedbackRequest(session.VerdictAutoAccepted, 0.5))

	require.NotNil(t, res.Feedback)
	assert.Contains(t, *res.Feedback, "Moving on after 3 attempts (50%, 80% to pass).")
	assert.Contains(t, *res.Feedback, `Missed: "to", "be".`)
	assert.False(t, res.Unavailable)
}

func TestCoach_Feedback_WithoutGateway(t *testing.T) {
	c := NewCoachFeedbackGenerator(nil, nil, fastCoachConfig(), nil)

	res := c.Feedback(context.Background(), feedbackRequest(session.VerdictAccepted, 1))

	require.NotNil(t, res.Feedback)
	assert.Equal(t, "Accepted (100%).", *res.Feedback)
}

func TestCoach_Feedback_OrderOnlyMismatch(t *testing.T) {
	c := NewCoachFeedbackGenerator(nil, nil, fastCoachConfig(), nil)
	req := feedbackRequest(session.VerdictRetry, 0.75)
	req.Missing, req.Extra = nil, nil

	res := c.Feedback(context.Background(), req)

	require.NotNil(t, res.Feedback)
	assert.Contains(t, *res.Feedback, "check the word order")
}

func summaryHistory(t *testing.T) []*session.Delivery {
	t.Helper()
	id := model.NewSessionID()
	mk := func(line, attempt int, score float64, v session.Verdict) *session.Delivery {
		d, err := session.NewHumanDelivery(id, line, attempt, "x", score, v, nil)
		require.NoError(t, err)
		return d
	}
	return []*session.Delivery{
		mk(0, 1, 0.9, session.VerdictAccepted),
		session.NewAIDelivery(id, 1, "y", true),
		mk(2, 1, 0.4, session.VerdictRetry),
		mk(2, 2, 0.5, session.VerdictRetry),
		mk(2, 3, 0.5, session.VerdictAutoAccepted),
	}
}

func TestComputeSummaryStats(t *testing.T) {
	stats := ComputeSummaryStats(summaryHistory(t))

	assert.Equal(t, 2, stats.HumanLines)
	assert.Equal(t, 1, stats.FirstTake)
	assert.Equal(t, 2, stats.Retries)
	assert.Equal(t, 1, stats.AutoAccepted)
	assert.Equal(t, 1, stats.FallbackLines)
	assert.InDelta(t, 0.7, stats.MeanScore, 1e-9)
}

func TestCoach_Summarize(t *testing.T) {
	want := "Scene complete: 2 lines delivered, 1 on the first take, 2 retries, 1 auto-accepted. " +
		"Average match 70%. 1 partner line used the scripted text."

	t.Run("Deterministic only", func(t *testing.T) {
		c := NewCoachFeedbackGenerator(nil, nil, fastCoachConfig(), nil)
		assert.Equal(t, want, c.Summarize(context.Background(), SummaryRequest{History: summaryHistory(t)}))
	})

	t.Run("With coaching paragraph", func(t *testing.T) {
		c := NewCoachFeedbackGenerator(output.NewMockGenerationGateway("Keep going."), nil, fastCoachConfig(), nil)
		assert.Equal(t, want+"\n\nKeep going.", c.Summarize(context.Background(), SummaryRequest{History: summaryHistory(t)}))
	})

	t.Run("Coaching fails", func(t *testing.T) {
		c := NewCoachFeedbackGenerator(failingGateway(), nil, fastCoachConfig(), nil)
		assert.Equal(t, want, c.Summarize(context.Background(), SummaryRequest{History: summaryHistory(t)}))
	})
}
