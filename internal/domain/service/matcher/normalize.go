package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize reduces a line to comparable tokens.
// NFKC folds compatibility forms (full-width letters, ligatures), case is folded,
// apostrophes are dropped inside words ("don't" -> "dont"), and every other
// punctuation or symbol rune separates tokens.
func Normalize(text string) []string {
	text = norm.NFKC.String(text)
	text = cases.Fold().String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case isApostrophe(r):
			// joined: contractions compare equal with or without the mark
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', 'ʼ', '`':
		return true
	default:
		return false
	}
}
