package sentence

import "strings"

// Common refusal openings from chat-tuned models
var refusalPatterns = []string{
	"i'm sorry, but i can't",
	"i cannot help with that",
	"i can't assist with that",
	"i'm unable to help with that",
	"i apologize, but i cannot",
	"i'm not able to assist",
	"i cannot provide",
	"i cannot generate",
	"i'm sorry, i cannot",
	"as an ai",
}

// RefusalReason returns the matched refusal pattern, or "" when text does not
// look like a refusal. Only text without a JSON array is checked, since
// sentences may legitimately quote these phrases.
func RefusalReason(text string) string {
	if strings.Contains(text, "[") {
		return ""
	}
	lower := strings.ToLower(text)
	for _, pattern := range refusalPatterns {
		if strings.Contains(lower, pattern) {
			return pattern
		}
	}
	return ""
}
