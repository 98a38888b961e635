package resolver

import "strings"

type MatchRule string

const (
	MatchExact     MatchRule = "exact"
	MatchSubstring MatchRule = "substring"
	MatchKeywords  MatchRule = "keywords"
)

// keyword overlap must reach 60% of the smaller keyword set
const (
	overlapNumerator   = 6
	overlapDenominator = 10
)

// matchPair tests one pair's question against the query, both already
// normalized, in exact, substring, keyword order.
func matchPair(query, question string) (MatchRule, bool) {
	if query == "" || question == "" {
		return "", false
	}
	if query == question {
		return MatchExact, true
	}
	if strings.Contains(query, question) || strings.Contains(question, query) {
		return MatchSubstring, true
	}
	if keywordOverlap(keywords(query), keywords(question)) {
		return MatchKeywords, true
	}
	return "", false
}

func keywordOverlap(a, b map[string]struct{}) bool {
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	if len(smaller) == 0 {
		return false
	}
	overlap := 0
	for tok := range smaller {
		if _, ok := larger[tok]; ok {
			overlap++
		}
	}
	return overlap*overlapDenominator >= len(smaller)*overlapNumerator
}
