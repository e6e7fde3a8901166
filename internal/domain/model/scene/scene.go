package scene

import (
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/service/matcher"
)

// SpeakerRole is the closed set of speakers a scene line can belong to
type SpeakerRole string

const (
	SpeakerHuman SpeakerRole = "human"
	SpeakerAI    SpeakerRole = "ai"
)

// String returns the string representation
func (r SpeakerRole) String() string {
	return string(r)
}

// IsValid validates the speaker role
func (r SpeakerRole) IsValid() bool {
	switch r {
	case SpeakerHuman, SpeakerAI:
		return true
	default:
		return false
	}
}

// ParseSpeakerRole converts a raw value (as found in scene files) into a SpeakerRole
func ParseSpeakerRole(value string) (SpeakerRole, error) {
	role := SpeakerRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("unknown speaker role %q (expected human or ai)", value)
	}
	return role, nil
}

// Character is one of the two parts in a scene
type Character struct {
	Role    SpeakerRole
	Name    string
	Persona string // Static character description; required for the AI part
}

// Line is a single scripted line
type Line struct {
	Index   int
	Speaker SpeakerRole
	Text    string
	Intent  string // Optional stage direction for AI-spoken lines
}

// Settings holds scene-level overrides. Nil fields fall back to engine defaults.
type Settings struct {
	AcceptanceThreshold *float64
	MaxRetries          *int
	HistoryWindow       *int
}

// Rules are the resolved rehearsal parameters for a scene
type Rules struct {
	AcceptanceThreshold float64
	MaxRetries          int
	HistoryWindow       int
}

// Scene is an immutable, ordered two-character script
type Scene struct {
	id          string
	title       string
	description string
	human       Character
	ai          Character
	lines       []Line
	settings    Settings
}

// NewScene validates the inputs and builds a Scene.
// Line indexes are assigned from position; any index on the input is ignored.
func NewScene(id, title, description string, characters []Character, lines []Line, settings Settings) (*Scene, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.NewConfigurationError("scene ID is required", nil)
	}
	if len(lines) == 0 {
		return nil, model.NewConfigurationError(fmt.Sprintf("scene %s has no lines", id), nil)
	}

	s := &Scene{
		id:          id,
		title:       title,
		description: description,
		settings:    settings,
	}

	if len(characters) > 2 {
		return nil, model.NewConfigurationError(
			fmt.Sprintf("scene %s has %d characters; only two-character scenes are supported", id, len(characters)), nil)
	}
	var haveHuman, haveAI bool
	for _, c := range characters {
		switch c.Role {
		case SpeakerHuman:
			if haveHuman {
				return nil, model.NewConfigurationError(fmt.Sprintf("scene %s declares two human characters", id), nil)
			}
			haveHuman = true
			s.human = c
		case SpeakerAI:
			if haveAI {
				return nil, model.NewConfigurationError(fmt.Sprintf("scene %s declares two ai characters", id), nil)
			}
			haveAI = true
			s.ai = c
		default:
			return nil, model.NewConfigurationError(
				fmt.Sprintf("scene %s: character %q has unknown speaker role %q", id, c.Name, c.Role), nil)
		}
	}
	if !haveHuman {
		s.human = Character{Role: SpeakerHuman, Name: "Actor"}
	}
	if !haveAI {
		s.ai = Character{Role: SpeakerAI, Name: "Partner"}
	}

	s.lines = make([]Line, len(lines))
	for i, l := range lines {
		if !l.Speaker.IsValid() {
			return nil, model.NewConfigurationError(
				fmt.Sprintf("scene %s line %d: unknown speaker role %q", id, i, l.Speaker), nil)
		}
		if strings.TrimSpace(l.Text) == "" {
			return nil, model.NewConfigurationError(fmt.Sprintf("scene %s line %d: text is empty", id, i), nil)
		}
		if n := len(matcher.Normalize(l.Text)); n > matcher.DefaultMaxTokens {
			return nil, model.NewConfigurationError(
				fmt.Sprintf("scene %s line %d: %d words, a line can be scored up to %d", id, i, n, matcher.DefaultMaxTokens), nil)
		}
		l.Index = i
		s.lines[i] = l
	}

	if t := settings.AcceptanceThreshold; t != nil && (*t <= 0 || *t > 1) {
		return nil, model.NewConfigurationError(
			fmt.Sprintf("scene %s: acceptance_threshold must be in (0, 1], got %v", id, *t), nil)
	}
	if r := settings.MaxRetries; r != nil && *r < 0 {
		return nil, model.NewConfigurationError(fmt.Sprintf("scene %s: max_retries must be >= 0, got %d", id, *r), nil)
	}
	if w := settings.HistoryWindow; w != nil && *w < 0 {
		return nil, model.NewConfigurationError(fmt.Sprintf("scene %s: history_window must be >= 0, got %d", id, *w), nil)
	}

	return s, nil
}

func (s *Scene) ID() string          { return s.id }
func (s *Scene) Title() string       { return s.title }
func (s *Scene) Description() string { return s.description }
func (s *Scene) Settings() Settings  { return s.settings }

// Len returns the number of lines
func (s *Scene) Len() int {
	return len(s.lines)
}

// Line returns the line at index i
func (s *Scene) Line(i int) (Line, bool) {
	if i < 0 || i >= len(s.lines) {
		return Line{}, false
	}
	return s.lines[i], true
}

// Lines returns a copy of all lines
func (s *Scene) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Character returns the character playing the given role
func (s *Scene) Character(role SpeakerRole) Character {
	if role == SpeakerAI {
		return s.ai
	}
	return s.human
}

// Resolve merges scene overrides onto the engine defaults
func (s *Scene) Resolve(defaults Rules) Rules {
	rules := defaults
	if s.settings.AcceptanceThreshold != nil {
		rules.AcceptanceThreshold = *s.settings.AcceptanceThreshold
	}
	if s.settings.MaxRetries != nil {
		rules.MaxRetries = *s.settings.MaxRetries
	}
	if s.settings.HistoryWindow != nil {
		rules.HistoryWindow = *s.settings.HistoryWindow
	}
	return rules
}

// CountBySpeaker returns how many lines each role speaks
func (s *Scene) CountBySpeaker() (human, ai int) {
	for _, l := range s.lines {
		switch l.Speaker {
		case SpeakerHuman:
			human++
		case SpeakerAI:
			ai++
		}
	}
	return human, ai
}
