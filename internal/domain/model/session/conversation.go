package session

import (
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
)

// Exchange is one resolved line in the rolling window
type Exchange struct {
	LineIndex int
	Speaker   scene.SpeakerRole
	Character string
	Text      string
}

// ConversationState is the per-call view the persona responder works from.
// It is rebuilt from the session and its delivery log on every call and never persisted.
type ConversationState struct {
	Persona     scene.Character
	Partner     scene.Character
	SceneTitle  string
	SceneBrief  string
	Window      []Exchange
	CurrentLine scene.Line
}

// BuildConversation reconstructs the rolling window of the last k resolved deliveries.
// Retry attempts are dropped; the accepted (or auto-accepted) take of a line stands for it.
func BuildConversation(sc *scene.Scene, history []*Delivery, current int, k int) ConversationState {
	line, _ := sc.Line(current)
	state := ConversationState{
		Persona:     sc.Character(scene.SpeakerAI),
		Partner:     sc.Character(scene.SpeakerHuman),
		SceneTitle:  sc.Title(),
		SceneBrief:  sc.Description(),
		CurrentLine: line,
	}
	if k <= 0 {
		return state
	}

	resolved := make([]Exchange, 0, len(history))
	for _, d := range history {
		if !d.Verdict.ResolvesLine() || d.LineIndex >= current {
			continue
		}
		resolved = append(resolved, Exchange{
			LineIndex: d.LineIndex,
			Speaker:   d.Speaker,
			Character: sc.Character(d.Speaker).Name,
			Text:      d.Text,
		})
	}
	if len(resolved) > k {
		resolved = resolved[len(resolved)-k:]
	}
	state.Window = resolved
	return state
}
