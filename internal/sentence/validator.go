// Package sentence turns raw model output into accepted example sentences.
package sentence

import (
	"strings"

	"github.com/lamim/vocabforge/pkg/models"
)

// clausePunctuation may legally follow an adverb or end a clause
const clausePunctuation = ".,;:!?)"

// auxiliaries may follow a sentence-final adverb ("the data shown above is correct")
var auxiliaries = map[string]bool{
	"is": true, "are": true, "was": true, "were": true,
	"has": true, "have": true, "will": true, "can": true,
	"could": true, "should": true, "would": true, "may": true, "might": true,
}

// IsAcceptable reports whether sentence uses lemma in the grammatical role of pos.
//
// Only adverbs, prepositions and adjectives get a lexical check, based on
// what follows the first case-insensitive occurrence of the lemma. Every
// other code is accepted as soon as the lemma occurs. Later occurrences are
// never inspected.
func IsAcceptable(sentence, lemma string, pos models.POS) bool {
	s := strings.ToLower(sentence)
	l := strings.ToLower(lemma)
	if l == "" {
		return false
	}

	idx := strings.Index(s, l)
	if idx == -1 {
		return false
	}
	after := strings.TrimSpace(s[idx+len(l):])

	switch pos {
	case models.POSAdverb:
		if after == "" || startsWithPunctuation(after) {
			return true
		}
		return auxiliaries[strings.Fields(after)[0]]

	case models.POSPreposition, models.POSAdjective:
		return after != "" && !startsWithPunctuation(after)

	default:
		return true
	}
}

func startsWithPunctuation(s string) bool {
	return s != "" && strings.IndexByte(clausePunctuation, s[0]) >= 0
}
