package session

import (
	"fmt"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
)

// Phase is a state of the turn-taking state machine
type Phase string

const (
	PhaseAwaitingUserDelivery Phase = "awaiting_user_delivery"
	PhaseGeneratingAIReply    Phase = "generating_ai_reply"
	PhaseEvaluating           Phase = "evaluating"
	PhaseSceneComplete        Phase = "scene_complete"
)

// String returns the string representation
func (p Phase) String() string {
	return string(p)
}

// NextAction tells the caller what it has to do to make progress
type NextAction string

const (
	NextActionSubmitDelivery NextAction = "submit_delivery"
	NextActionResume         NextAction = "resume" // partner lines are pending; resume the session to speak them
	NextActionNone           NextAction = "none"
)

// TurnState is a state-machine position: a phase plus the line it concerns
type TurnState struct {
	Phase     Phase
	LineIndex int
}

// String returns a compact representation such as "awaiting_user_delivery(2)"
func (t TurnState) String() string {
	if t.Phase == PhaseSceneComplete {
		return string(t.Phase)
	}
	return fmt.Sprintf("%s(%d)", t.Phase, t.LineIndex)
}

// NextAction derives the caller-facing marker for this state.
// A state is only observed at GeneratingAIReply when an earlier turn stopped
// before speaking the partner line, so the caller has to resume it.
func (t TurnState) NextAction() NextAction {
	switch t.Phase {
	case PhaseAwaitingUserDelivery:
		return NextActionSubmitDelivery
	case PhaseGeneratingAIReply:
		return NextActionResume
	default:
		return NextActionNone
	}
}

// DetermineTurn returns the state for line i of the scene
func DetermineTurn(sc *scene.Scene, i int) TurnState {
	line, ok := sc.Line(i)
	if !ok {
		return TurnState{Phase: PhaseSceneComplete, LineIndex: sc.Len()}
	}
	switch line.Speaker {
	case scene.SpeakerAI:
		return TurnState{Phase: PhaseGeneratingAIReply, LineIndex: i}
	case scene.SpeakerHuman:
		return TurnState{Phase: PhaseAwaitingUserDelivery, LineIndex: i}
	default:
		// NewScene rejects unknown roles, so this is unreachable for validated scenes
		panic(fmt.Sprintf("unknown speaker role %q at line %d", line.Speaker, i))
	}
}

// EvaluationOutcome is the result of evaluating a transcript against the current line
type EvaluationOutcome struct {
	Verdict Verdict
	Advance bool // true when the line is resolved and the machine moves to DetermineTurn(i+1)
}

// Evaluate applies the acceptance policy.
// retryCount is the number of retry records already written for the line.
func Evaluate(score, threshold float64, retryCount, maxRetries int) EvaluationOutcome {
	switch {
	case score >= threshold:
		return EvaluationOutcome{Verdict: VerdictAccepted, Advance: true}
	case retryCount < maxRetries:
		return EvaluationOutcome{Verdict: VerdictRetry, Advance: false}
	default:
		return EvaluationOutcome{Verdict: VerdictAutoAccepted, Advance: true}
	}
}
