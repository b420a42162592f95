// Package tokenizer approximates token counts for billing and usage fields.
// The backend does not report usage, so the gateway estimates it from text
// length: dense scripts (CJK) carry roughly one token per character while
// Latin text averages about four characters per token.
package tokenizer

import (
	"math"
	"unicode"
)

const (
	latinCharsPerToken = 4.0
	denseCharsPerToken = 1.5
)

var denseRanges = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

// Estimate returns an approximate token count for text. Empty text is zero;
// any non-empty text estimates to at least one token.
func Estimate(text string) int {
	if text == "" {
		return 0
	}

	var latin, dense int
	for _, r := range text {
		if unicode.IsOneOf(denseRanges, r) {
			dense++
		} else {
			latin++
		}
	}

	tokens := float64(latin)/latinCharsPerToken + float64(dense)/denseCharsPerToken
	return int(math.Ceil(tokens))
}
