package resolver

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const minKeywordRunes = 4

// Normalize folds case and width, drops punctuation and collapses whitespace.
func Normalize(s string) string {
	// Caser is stateful, build one per call
	s = cases.Fold().String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		switch {
		case r == '\'' || r == '\u2019':
			// "what's" folds to "whats"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// keywords returns the distinct tokens of a normalized string longer than three runes.
func keywords(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		if utf8.RuneCountInString(tok) >= minKeywordRunes {
			set[tok] = struct{}{}
		}
	}
	return set
}
