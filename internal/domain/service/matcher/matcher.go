// Package matcher scores how closely a delivered transcript follows a scripted line.
//
// The score blends two token-level F1 measures over normalized text:
// an order-sensitive one built on the longest common subsequence, and an
// order-insensitive one built on the multiset intersection. OrderTolerance
// slides between them, so word-order slips cost at most (1-OrderTolerance)
// of the difference. Scoring never samples or calls out; identical inputs
// always produce the identical score.
package matcher

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultOrderTolerance weighs order-sensitive and order-insensitive similarity equally
	DefaultOrderTolerance = 0.5

	// DefaultMaxTokens bounds the quadratic LCS table
	DefaultMaxTokens = 512
)

var (
	ErrInvalidUTF8   = errors.New("text is not valid UTF-8")
	ErrTooManyTokens = errors.New("text exceeds token limit")
)

// Config controls similarity scoring
type Config struct {
	OrderTolerance float64 // 0 = strict word order, 1 = order ignored
	MaxTokens      int
}

// Matcher is the delivery matcher. It is stateless and safe for concurrent use.
type Matcher struct {
	orderTolerance float64
	maxTokens      int
}

// New creates a Matcher; out-of-range values fall back to defaults
func New(cfg Config) *Matcher {
	tol := cfg.OrderTolerance
	if tol < 0 || tol > 1 || math.IsNaN(tol) {
		tol = DefaultOrderTolerance
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Matcher{orderTolerance: tol, maxTokens: maxTokens}
}

// NewDefault creates a Matcher with default settings
func NewDefault() *Matcher {
	return New(Config{OrderTolerance: DefaultOrderTolerance, MaxTokens: DefaultMaxTokens})
}

// OrderTolerance returns the configured tolerance
func (m *Matcher) OrderTolerance() float64 {
	return m.orderTolerance
}

// Score returns the similarity in [0, 1]. Comparison errors score 0.
func (m *Matcher) Score(transcript, expected string) float64 {
	score, err := m.Compare(transcript, expected)
	if err != nil {
		return 0
	}
	return score
}

// Compare returns the similarity in [0, 1] or the reason it could not be computed.
// An empty or whitespace-only transcript always scores 0.
func (m *Matcher) Compare(transcript, expected string) (float64, error) {
	if strings.TrimSpace(transcript) == "" {
		return 0, nil
	}
	if !utf8.ValidString(transcript) || !utf8.ValidString(expected) {
		return 0, ErrInvalidUTF8
	}

	got := Normalize(transcript)
	want := Normalize(expected)
	if len(got) > m.maxTokens || len(want) > m.maxTokens {
		return 0, fmt.Errorf("%w: %d/%d tokens, limit %d", ErrTooManyTokens, len(got), len(want), m.maxTokens)
	}

	switch {
	case len(want) == 0 && len(got) == 0:
		// Both lines are pure punctuation ("...", "!"); any non-blank delivery matches
		return 1, nil
	case len(want) == 0 || len(got) == 0:
		return 0, nil
	}

	total := float64(len(got) + len(want))
	ordered := 2 * float64(lcs(got, want)) / total
	unordered := 2 * float64(overlap(got, want)) / total

	score := ordered + m.orderTolerance*(unordered-ordered)
	return round4(clamp01(score)), nil
}

// Diff lists expected words the transcript missed and words it added, in order of appearance.
func (m *Matcher) Diff(transcript, expected string) (missing, extra []string) {
	got := Normalize(transcript)
	want := Normalize(expected)

	remaining := counts(got)
	for _, w := range want {
		if remaining[w] > 0 {
			remaining[w]--
			continue
		}
		missing = append(missing, w)
	}

	wanted := counts(want)
	for _, g := range got {
		if wanted[g] > 0 {
			wanted[g]--
			continue
		}
		extra = append(extra, g)
	}
	return missing, extra
}

// lcs returns the length of the longest common token subsequence
func lcs(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// overlap returns the size of the multiset intersection
func overlap(a, b []string) int {
	bc := counts(b)
	n := 0
	for _, t := range a {
		if bc[t] > 0 {
			bc[t]--
			n++
		}
	}
	return n
}

func counts(tokens []string) map[string]int {
	c := make(map[string]int, len(tokens))
	for _, t := range tokens {
		c[t]++
	}
	return c
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
