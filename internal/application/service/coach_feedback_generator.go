package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
)

// CoachConfig holds generation parameters for coaching notes
type CoachConfig struct {
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	MaxTokens int
}

// DefaultCoachConfig returns default configuration
func DefaultCoachConfig() CoachConfig {
	return CoachConfig{
		Timeout:   30 * time.Second,
		Retries:   1,
		Backoff:   250 * time.Millisecond,
		MaxTokens: 160,
	}
}

// FeedbackRequest describes one evaluated delivery
type FeedbackRequest struct {
	CharacterName string
	Line          scene.Line
	Transcript    string
	Score         float64
	Threshold     float64
	Verdict       session.Verdict
	Attempt       int
	Missing       []string
	Extra         []string
}

// FeedbackResult is the coaching note attached to a delivery record
type FeedbackResult struct {
	Feedback    *string // nil when feedback is absent
	Unavailable bool    // Model coaching was requested but could not be generated
	Err         error
}

// SummaryRequest describes a finished session
type SummaryRequest struct {
	Scene   *scene.Scene
	History []*session.Delivery
}

// SummaryStats are the deterministic figures of a session summary
type SummaryStats struct {
	HumanLines    int
	FirstTake     int
	Retries       int
	AutoAccepted  int
	MeanScore     float64
	FallbackLines int
}

// CoachFeedbackGenerator writes per-delivery coaching and end-of-scene summaries.
// Every note starts with a deterministic verdict header so model text never
// contradicts the verdict. Model coaching runs at temperature 0.
type CoachFeedbackGenerator struct {
	gateway output.GenerationGateway
	limiter *GenerationLimiter
	config  CoachConfig
	logger  app.Logger
}

// NewCoachFeedbackGenerator creates a generator. A nil gateway disables model coaching.
func NewCoachFeedbackGenerator(gateway output.GenerationGateway, limiter *GenerationLimiter, config CoachConfig, logger app.Logger) *CoachFeedbackGenerator {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &CoachFeedbackGenerator{
		gateway: gateway,
		limiter: limiter,
		config:  config,
		logger:  logger,
	}
}

// Feedback builds the note for an evaluated delivery.
// Retry and auto-accepted records always get the mismatch note; an accepted
// record whose coaching fails gets no feedback at all.
func (c *CoachFeedbackGenerator) Feedback(ctx context.Context, req FeedbackRequest) FeedbackResult {
	parts := []string{verdictHeader(req)}
	if req.Verdict != session.VerdictAccepted {
		parts = append(parts, mismatchNote(req.Missing, req.Extra))
	}

	if c.gateway == nil {
		return FeedbackResult{Feedback: joinFeedback(parts)}
	}

	coaching, err := c.coach(ctx, req)
	if err != nil {
		c.logger.Warn("coach feedback unavailable for line %d: %v", req.Line.Index, err)
		if req.Verdict == session.VerdictAccepted {
			return FeedbackResult{Unavailable: true, Err: err}
		}
		return FeedbackResult{Feedback: joinFeedback(parts), Unavailable: true, Err: err}
	}

	parts = append(parts, coaching)
	return FeedbackResult{Feedback: joinFeedback(parts)}
}

// Summarize returns the session summary stored on completion
func (c *CoachFeedbackGenerator) Summarize(ctx context.Context, req SummaryRequest) string {
	stats := ComputeSummaryStats(req.History)
	summary := formatSummary(stats)

	if c.gateway == nil || stats.HumanLines == 0 {
		return summary
	}

	gen := output.GenerationRequest{
		System:      coachSystemPrompt,
		Messages:    []output.GenerationMessage{{Role: output.RoleUser, Content: buildSummaryPrompt(req, stats)}},
		MaxTokens:   c.config.MaxTokens * 2,
		Temperature: 0,
		Timeout:     c.config.Timeout,
	}
	paragraph, _, err := c.call().run(ctx, gen, strings.TrimSpace, nil)
	if err != nil {
		c.logger.Warn("session summary coaching unavailable: %v", err)
		return summary
	}
	return summary + "\n\n" + paragraph
}

// ComputeSummaryStats derives the summary figures from a delivery log
func ComputeSummaryStats(history []*session.Delivery) SummaryStats {
	var stats SummaryStats
	var total float64
	for _, d := range history {
		switch d.Verdict {
		case session.VerdictRetry:
			stats.Retries++
		case session.VerdictAccepted, session.VerdictAutoAccepted:
			stats.HumanLines++
			if d.Attempt == 1 && d.Verdict == session.VerdictAccepted {
				stats.FirstTake++
			}
			if d.Verdict == session.VerdictAutoAccepted {
				stats.AutoAccepted++
			}
			if d.Score != nil {
				total += *d.Score
			}
		case session.VerdictAIGenerated:
			if d.Fallback {
				stats.FallbackLines++
			}
		}
	}
	if stats.HumanLines > 0 {
		stats.MeanScore = total / float64(stats.HumanLines)
	}
	return stats
}

func (c *CoachFeedbackGenerator) coach(ctx context.Context, req FeedbackRequest) (string, error) {
	gen := output.GenerationRequest{
		System:      coachSystemPrompt,
		Messages:    []output.GenerationMessage{{Role: output.RoleUser, Content: buildCoachPrompt(req)}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: 0,
		Timeout:     c.config.Timeout,
	}
	text, _, err := c.call().run(ctx, gen, strings.TrimSpace, func(attempt int, err error) {
		c.logger.Debug("coach generation attempt %d for line %d failed: %v", attempt, req.Line.Index, err)
	})
	return text, err
}

func (c *CoachFeedbackGenerator) call() generationCall {
	return generationCall{
		gateway: c.gateway,
		limiter: c.limiter,
		retries: c.config.Retries,
		backoff: c.config.Backoff,
	}
}

const coachSystemPrompt = "You are an acting coach giving brief notes during a line rehearsal. " +
	"Comment on accuracy against the script, pacing and emphasis in at most two sentences. " +
	"Do not restate the score or decide whether the line passed; that has already been decided."

func buildCoachPrompt(req FeedbackRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Character: %s\n", req.CharacterName)
	fmt.Fprintf(&b, "Scripted line: %s\n", req.Line.Text)
	fmt.Fprintf(&b, "Actor said: %s\n", req.Transcript)
	fmt.Fprintf(&b, "Outcome: %s\n", req.Verdict)
	if len(req.Missing) > 0 {
		fmt.Fprintf(&b, "Missing words: %s\n", strings.Join(req.Missing, ", "))
	}
	if len(req.Extra) > 0 {
		fmt.Fprintf(&b, "Added words: %s\n", strings.Join(req.Extra, ", "))
	}
	b.WriteString("Give your note.")
	return b.String()
}

func buildSummaryPrompt(req SummaryRequest, stats SummaryStats) string {
	var b strings.Builder
	if req.Scene != nil {
		fmt.Fprintf(&b, "Scene: %s\n", req.Scene.Title())
	}
	fmt.Fprintf(&b, "Lines: %d, first take: %d, retries: %d, auto-accepted: %d, mean match: %s\n",
		stats.HumanLines, stats.FirstTake, stats.Retries, stats.AutoAccepted, percent(stats.MeanScore))
	b.WriteString("Lines that needed retries:\n")
	for _, d := range req.History {
		if d.Verdict == session.VerdictRetry {
			fmt.Fprintf(&b, "- line %d attempt %d: %q\n", d.LineIndex, d.Attempt, d.Text)
		}
	}
	b.WriteString("Write one short paragraph of encouragement and what to practise next.")
	return b.String()
}

func verdictHeader(req FeedbackRequest) string {
	switch req.Verdict {
	case session.VerdictAccepted:
		return fmt.Sprintf("Accepted (%s).", percent(req.Score))
	case session.VerdictRetry:
		return fmt.Sprintf("Retry needed (%s, %s to pass).", percent(req.Score), percent(req.Threshold))
	case session.VerdictAutoAccepted:
		return fmt.Sprintf("Moving on after %d attempts (%s, %s to pass).", req.Attempt, percent(req.Score), percent(req.Threshold))
	default:
		return ""
	}
}

func mismatchNote(missing, extra []string) string {
	if len(missing) == 0 && len(extra) == 0 {
		return "The words match the script; check the word order."
	}
	var notes []string
	if len(missing) > 0 {
		notes = append(notes, "Missed: "+quoteWords(missing)+".")
	}
	if len(extra) > 0 {
		notes = append(notes, "Added: "+quoteWords(extra)+".")
	}
	return strings.Join(notes, " ")
}

func formatSummary(s SummaryStats) string {
	if s.HumanLines == 0 {
		return "Scene complete. The scene had no lines for you to deliver."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Scene complete: %d %s delivered, %d on the first take", s.HumanLines, plural(s.HumanLines, "line", "lines"), s.FirstTake)
	if s.Retries > 0 {
		fmt.Fprintf(&b, ", %d %s", s.Retries, plural(s.Retries, "retry", "retries"))
	}
	if s.AutoAccepted > 0 {
		fmt.Fprintf(&b, ", %d auto-accepted", s.AutoAccepted)
	}
	fmt.Fprintf(&b, ". Average match %s.", percent(s.MeanScore))
	if s.FallbackLines > 0 {
		fmt.Fprintf(&b, " %d partner %s used the scripted text.", s.FallbackLines, plural(s.FallbackLines, "line", "lines"))
	}
	return b.String()
}

func joinFeedback(parts []string) *string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	s := strings.Join(out, " ")
	return &s
}

func quoteWords(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return strings.Join(quoted, ", ")
}

func percent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
