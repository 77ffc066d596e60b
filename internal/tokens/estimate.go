// Package tokens estimates prompt sizes for collaborator calls.
package tokens

import "unicode/utf8"

// EstimateTokens provides a rough token count estimate for text.
// Uses ~4 characters per token; characters rather than bytes so Cyrillic
// text is not counted double.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// EstimateAll sums EstimateTokens over texts.
func EstimateAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += EstimateTokens(t)
	}
	return total
}
