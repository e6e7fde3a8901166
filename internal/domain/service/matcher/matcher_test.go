package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"Punctuation and case", "Hello, World!", []string{"hello", "world"}},
		{"Contraction joined", "Don't stop", []string{"dont", "stop"}},
		{"Curly apostrophe joined", "Don’t stop", []string{"dont", "stop"}},
		{"Full-width letters", "ＨＥＬＬＯ", []string{"hello"}},
		{"Whitespace collapsed", "  to   be\tor\nnot ", []string{"to", "be", "or", "not"}},
		{"Dash separates", "well-known", []string{"well", "known"}},
		{"Symbols only", "... !?", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher_Score(t *testing.T) {
	m := NewDefault()

	tests := []struct {
		name       string
		transcript string
		expected   string
		want       float64
	}{
		{"Exact match", "To be or not to be.", "To be or not to be.", 1},
		{"Case and punctuation ignored", "to be, or NOT to be", "To be or not to be.", 1},
		{"Contraction spelled without apostrophe", "I dont know", "I don't know.", 1},
		{"Empty transcript", "", "Hello there.", 0},
		{"Whitespace-only transcript", "   \t\n", "Hello there.", 0},
		{"Two swapped words", "world hello", "hello world", 0.75},
		{"Missing trailing words", "to be or not", "to be or not to be", 0.8},
		{"Nothing in common", "completely different", "hello world", 0},
		{"Punctuation-only line delivered", "...", "...", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.Score(tt.transcript, tt.expected), 1e-9)
		})
	}
}

func TestMatcher_OrderTolerance(t *testing.T) {
	strict := New(Config{OrderTolerance: 0})
	loose := New(Config{OrderTolerance: 1})

	assert.InDelta(t, 0.5, strict.Score("world hello", "hello world"), 1e-9)
	assert.InDelta(t, 1.0, loose.Score("world hello", "hello world"), 1e-9)
}

func TestMatcher_New_InvalidConfigFallsBack(t *testing.T) {
	m := New(Config{OrderTolerance: 2, MaxTokens: -1})
	assert.Equal(t, DefaultOrderTolerance, m.OrderTolerance())
	assert.Equal(t, DefaultMaxTokens, m.maxTokens)
}

func TestMatcher_Compare_Errors(t *testing.T) {
	t.Run("Invalid UTF-8", func(t *testing.T) {
		m := NewDefault()
		score, err := m.Compare("bad \xff bytes", "bad bytes")
		require.ErrorIs(t, err, ErrInvalidUTF8)
		assert.Zero(t, score)
		assert.Zero(t, m.Score("bad \xff bytes", "bad bytes"))
	})

	t.Run("Too many tokens", func(t *testing.T) {
		m := New(Config{OrderTolerance: 0.5, MaxTokens: 3})
		score, err := m.Compare("one two three four", "one two three four")
		require.ErrorIs(t, err, ErrTooManyTokens)
		assert.Zero(t, score)
	})
}

func TestMatcher_Score_Deterministic(t *testing.T) {
	m := NewDefault()
	transcript := "Friends, Romans, countrymen, lend me your ears"
	expected := "Friends, Romans, countrymen, lend me your ears; I come to bury Caesar"

	first := m.Score(transcript, expected)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, m.Score(transcript, expected))
	}
	assert.Greater(t, first, 0.0)
	assert.Less(t, first, 1.0)
}

func TestMatcher_Score_Bounds(t *testing.T) {
	m := NewDefault()
	inputs := []string{"", "a", "a a a a", "b a", strings.Repeat("word ", 50), "ＡＢＣ", "!!!"}
	for _, a := range inputs {
		for _, b := range inputs {
			s := m.Score(a, b)
			assert.GreaterOrEqual(t, s, 0.0, "score(%q, %q)", a, b)
			assert.LessOrEqual(t, s, 1.0, "score(%q, %q)", a, b)
		}
	}
}

func TestMatcher_Diff(t *testing.T) {
	m := NewDefault()

	missing, extra := m.Diff("to be or maybe not", "To be or not to be")
	assert.Equal(t, []string{"to", "be"}, missing)
	assert.Equal(t, []string{"maybe"}, extra)

	missing, extra = m.Diff("Hello world", "hello, world!")
	assert.Empty(t, missing)
	assert.Empty(t, extra)
}
