package debug

import "math"

// EstimateTokens approximates the token cost of text: CJK code points cost
// half a token, everything else a quarter, rounded up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var cost float64
	for _, r := range text {
		if isCJK(r) {
			cost += 0.5
		} else {
			cost += 0.25
		}
	}
	return int(math.Ceil(cost))
}

func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}
