package pipeline

import (
	"strings"
	"unicode"
)

// Tokens that disqualify a question before any external call is made. This
// filters the natural-language input, not the generated SQL; it is a cheap
// heuristic gate, not a security boundary.
var denylist = []string{"drop", "delete", "truncate", ";", "--", "union"}

// ValidateQuestion applies the local input rules in order and reports the
// first failure. Pure; no side effects.
func ValidateQuestion(question string) (bool, string) {
	runes := []rune(question)
	if len(runes) < 3 {
		return false, "Please ask a more detailed question"
	}

	special := 0
	for _, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '?' || r == '.' || r == ',':
		case unicode.IsSpace(r):
		default:
			special++
		}
	}
	if float64(special) > float64(len(runes))*0.3 {
		return false, "Your question contains too many special characters. Please rephrase it."
	}

	lowered := strings.ToLower(question)
	for _, token := range denylist {
		if strings.Contains(lowered, token) {
			return false, "Invalid question format. Please ask a natural language question."
		}
	}
	return true, ""
}
