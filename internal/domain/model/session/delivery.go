package session

import (
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
)

// Verdict classifies the outcome of a delivery
type Verdict string

const (
	VerdictAccepted     Verdict = "accepted"
	VerdictRetry        Verdict = "retry"
	VerdictAutoAccepted Verdict = "auto-accepted"
	VerdictAIGenerated  Verdict = "ai-generated"
)

// String returns the string representation
func (v Verdict) String() string {
	return string(v)
}

// IsValid validates the verdict
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictAccepted, VerdictRetry, VerdictAutoAccepted, VerdictAIGenerated:
		return true
	default:
		return false
	}
}

// ResolvesLine reports whether a record with this verdict completes its line
func (v Verdict) ResolvesLine() bool {
	return v != VerdictRetry
}

// ParseVerdict converts a stored string into a Verdict
func ParseVerdict(value string) (Verdict, error) {
	v := Verdict(value)
	if !v.IsValid() {
		return "", fmt.Errorf("unknown verdict: %q", value)
	}
	return v, nil
}

// Delivery is an append-only record of one processed line attempt.
// Fields are exported for the persistence adapters; records are never mutated after append.
type Delivery struct {
	ID        model.DeliveryID
	SessionID model.SessionID
	LineIndex int
	Attempt   int // 1-based attempt number for this line
	Speaker   scene.SpeakerRole
	Text      string
	Score     *float64 // nil for AI-spoken lines
	Verdict   Verdict
	Feedback  *string // nil when feedback is absent
	Fallback  bool    // AI line uses the scripted text because generation failed
	CreatedAt time.Time
}

// NewHumanDelivery creates a record for an evaluated actor transcript
func NewHumanDelivery(sessionID model.SessionID, lineIndex, attempt int, transcript string, score float64, verdict Verdict, feedback *string) (*Delivery, error) {
	if verdict == VerdictAIGenerated || !verdict.IsValid() {
		return nil, fmt.Errorf("invalid verdict for human delivery: %q", verdict)
	}
	if attempt < 1 {
		return nil, fmt.Errorf("attempt must be at least 1, got %d", attempt)
	}
	s := score
	return &Delivery{
		ID:        model.NewDeliveryID(),
		SessionID: sessionID,
		LineIndex: lineIndex,
		Attempt:   attempt,
		Speaker:   scene.SpeakerHuman,
		Text:      transcript,
		Score:     &s,
		Verdict:   verdict,
		Feedback:  feedback,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewAIDelivery creates a record for a generated (or templated) AI line
func NewAIDelivery(sessionID model.SessionID, lineIndex int, text string, fallback bool) *Delivery {
	return &Delivery{
		ID:        model.NewDeliveryID(),
		SessionID: sessionID,
		LineIndex: lineIndex,
		Attempt:   1,
		Speaker:   scene.SpeakerAI,
		Text:      text,
		Verdict:   VerdictAIGenerated,
		Fallback:  fallback,
		CreatedAt: time.Now().UTC(),
	}
}

// FeedbackText returns the feedback or "" when absent
func (d *Delivery) FeedbackText() string {
	if d.Feedback == nil {
		return ""
	}
	return *d.Feedback
}
