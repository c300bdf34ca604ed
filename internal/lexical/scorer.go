package lexical

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var tokenSeparator = regexp.MustCompile(`[\s、。！？\n]+`)

// Tokenize splits query text on whitespace and ideographic punctuation and
// drops tokens of a single rune. Japanese inquiry text has no reliable word
// segmentation, so downstream scoring uses substring containment rather than
// exact token equality.
func Tokenize(text string) []string {
	raw := tokenSeparator.Split(text, -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if utf8.RuneCountInString(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Score returns the fraction of query tokens contained in the candidate
// text, rounded to two decimals. Always in [0,1]; zero tokens score 0.
func Score(queryText, candidateText string) float64 {
	return ScoreTokens(Tokenize(queryText), candidateText)
}

// ScoreTokens scores a pre-tokenized query against one candidate. Rankers
// tokenize once per query and call this per corpus item.
func ScoreTokens(tokens []string, candidateText string) float64 {
	if len(tokens) == 0 {
		return 0
	}

	matched := 0
	for _, t := range tokens {
		if strings.Contains(candidateText, t) {
			matched++
		}
	}

	return Round(float64(matched) / float64(len(tokens)))
}

// Round rounds a score to two decimals so ranked results compare the way
// they are displayed.
func Round(score float64) float64 {
	return math.Round(score*100) / 100
}
