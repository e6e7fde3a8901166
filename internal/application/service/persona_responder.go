package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
)

// ResponseMode selects how AI-spoken lines are produced
type ResponseMode string

const (
	// ResponseModeGenerated asks the model to voice the scripted line in character
	ResponseModeGenerated ResponseMode = "generated"
	// ResponseModeScripted always speaks the canonical scripted text
	ResponseModeScripted ResponseMode = "scripted"
)

// IsValid validates the response mode
func (m ResponseMode) IsValid() bool {
	return m == ResponseModeGenerated || m == ResponseModeScripted
}

// PersonaResponderConfig holds generation parameters for AI lines
type PersonaResponderConfig struct {
	Mode        ResponseMode
	Timeout     time.Duration // Per-attempt deadline
	Retries     int           // Attempts after the first one
	Backoff     time.Duration // Base delay for exponential backoff
	MaxTokens   int
	Temperature float64
}

// DefaultPersonaResponderConfig returns default configuration
func DefaultPersonaResponderConfig() PersonaResponderConfig {
	return PersonaResponderConfig{
		Mode:        ResponseModeGenerated,
		Timeout:     30 * time.Second,
		Retries:     2,
		Backoff:     250 * time.Millisecond,
		MaxTokens:   200,
		Temperature: 0.7,
	}
}

// ResponseResult is the text the AI partner speaks for a line
type ResponseResult struct {
	Text     string
	Fallback bool  // Text is the scripted line because generation failed
	Attempts int   // Generation attempts made (0 in scripted mode)
	Err      error // Last generation error when Fallback is set
}

// PersonaResponder produces in-character AI lines
type PersonaResponder struct {
	gateway output.GenerationGateway
	limiter *GenerationLimiter
	config  PersonaResponderConfig
	logger  app.Logger
}

// NewPersonaResponder creates a responder. A nil gateway behaves like scripted mode.
func NewPersonaResponder(gateway output.GenerationGateway, limiter *GenerationLimiter, config PersonaResponderConfig, logger app.Logger) *PersonaResponder {
	if logger == nil {
		logger = app.GetLogger()
	}
	if !config.Mode.IsValid() {
		config.Mode = ResponseModeGenerated
	}
	return &PersonaResponder{
		gateway: gateway,
		limiter: limiter,
		config:  config,
		logger:  logger,
	}
}

// Respond returns the AI partner's line for conv.CurrentLine.
// It never fails: exhausted retries degrade to the scripted text with Fallback set.
func (r *PersonaResponder) Respond(ctx context.Context, conv session.ConversationState) ResponseResult {
	scripted := conv.CurrentLine.Text
	if r.config.Mode == ResponseModeScripted || r.gateway == nil {
		return ResponseResult{Text: scripted}
	}

	req := output.GenerationRequest{
		System:      buildPersonaSystemPrompt(conv),
		Messages:    []output.GenerationMessage{{Role: output.RoleUser, Content: buildPersonaUserPrompt(conv)}},
		MaxTokens:   r.config.MaxTokens,
		Temperature: r.config.Temperature,
		Timeout:     r.config.Timeout,
	}

	call := generationCall{
		gateway: r.gateway,
		limiter: r.limiter,
		retries: r.config.Retries,
		backoff: r.config.Backoff,
	}
	clean := func(s string) string { return cleanPersonaOutput(s, conv.Persona.Name) }
	text, attempts, err := call.run(ctx, req, clean, func(attempt int, err error) {
		r.logger.Debug("persona generation attempt %d for line %d failed: %v", attempt, conv.CurrentLine.Index, err)
	})
	if err != nil {
		slots := r.limiter.Stats()
		r.logger.Warn("AI partner unavailable for line %d after %d attempts (%d/%d generation slots busy), using scripted line: %v",
			conv.CurrentLine.Index, attempts, slots.Current, slots.Max, err)
		return ResponseResult{Text: scripted, Fallback: true, Attempts: attempts, Err: err}
	}

	return ResponseResult{Text: text, Attempts: attempts}
}

// IsUnavailable reports whether a fallback was caused by the backend rather than by cancellation
func (res ResponseResult) IsUnavailable() bool {
	return res.Fallback && !errors.Is(res.Err, context.Canceled)
}

func buildPersonaSystemPrompt(conv session.ConversationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a character in a rehearsed scene", conv.Persona.Name)
	if conv.SceneTitle != "" {
		fmt.Fprintf(&b, " titled %q", conv.SceneTitle)
	}
	b.WriteString(".\n")
	if conv.Persona.Persona != "" {
		fmt.Fprintf(&b, "Character: %s\n", conv.Persona.Persona)
	}
	if conv.SceneBrief != "" {
		fmt.Fprintf(&b, "Scene: %s\n", conv.SceneBrief)
	}
	fmt.Fprintf(&b, "Your scene partner is %s, played by an actor who is rehearsing.\n", conv.Partner.Name)
	b.WriteString("Rules:\n")
	b.WriteString("- Stay in character and never mention that this is a rehearsal or that you are an AI.\n")
	b.WriteString("- Say the scripted line's meaning in your own voice, keeping it close to the script.\n")
	b.WriteString("- Do not contradict anything you said earlier in the scene.\n")
	b.WriteString("- Reply with the spoken line only: no name prefix, quotes, or stage directions.\n")
	return b.String()
}

func buildPersonaUserPrompt(conv session.ConversationState) string {
	var b strings.Builder
	if len(conv.Window) > 0 {
		b.WriteString("Scene so far:\n")
		for _, ex := range conv.Window {
			fmt.Fprintf(&b, "%s: %s\n", ex.Character, ex.Text)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Scripted line for %s: %s\n", conv.Persona.Name, conv.CurrentLine.Text)
	if conv.CurrentLine.Intent != "" {
		fmt.Fprintf(&b, "Intent: %s\n", conv.CurrentLine.Intent)
	}
	fmt.Fprintf(&b, "Now speak as %s.", conv.Persona.Name)
	return b.String()
}

// cleanPersonaOutput trims model output down to the spoken line
func cleanPersonaOutput(text, personaName string) string {
	text = strings.TrimSpace(text)
	if personaName != "" {
		prefix := personaName + ":"
		if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			text = strings.TrimSpace(text[len(prefix):])
		}
	}
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		if len(text) >= len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			text = strings.TrimSpace(text[len(q[0]) : len(text)-len(q[1])])
			break
		}
	}
	return text
}
