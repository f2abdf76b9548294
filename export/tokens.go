package export

import "unicode/utf8"

// estimateTokens approximates an LLM token count as runes / 3, rounding a
// non-empty text up to at least one token.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}
