package prompt

import (
	"strings"

	"github.com/lamim/vocabforge/pkg/models"
)

// Instruction templates use {lemma} and {LEMMA} placeholders.
// Adjective, adverb and preposition carry a negative example because the
// model confuses them with each other most often.
var posInstructions = map[models.POS]string{
	models.POSNoun: `NOUN: "{lemma}" must be a thing/subject/object. ✓ "The {lemma} failed." ✓ "Check the {lemma}."`,

	models.POSVerb: `VERB: "{lemma}" must be the action. ✓ "We {lemma} daily." ✓ "They will {lemma} it."`,

	models.POSAdjective: `ADJECTIVE: "{lemma}" must come BEFORE a noun to describe it. ✓ "The {LEMMA} report shows..." ✓ "An {LEMMA} issue occurred." ✗ WRONG: "It is {lemma}." (no noun after)`,

	models.POSAdverb: `ADVERB: "{lemma}" must be at the END of a sentence or clause, followed by ONLY a period, comma, or nothing. NO WORDS can follow "{lemma}". ✓ CORRECT: "See the notes above." ✓ CORRECT: "As mentioned above, we fixed it." ✓ CORRECT: "The data shown above is correct." ✗ WRONG: "above the table" ✗ WRONG: "above all else" ✗ WRONG: "above other priorities" - If ANY word follows "{lemma}", it becomes a preposition!`,

	models.POSPreposition: `PREPOSITION: "{lemma}" MUST have a noun/object immediately after. ✓ "{LEMMA} the baseline, we see..." ✓ "Located {LEMMA} the header." ✗ WRONG: "Listed {LEMMA}." (no object = adverb)`,

	models.POSConjunction: `CONJUNCTION: "{lemma}" connects two clauses or words. ✓ "Fast {LEMMA} reliable." ✓ "Test {LEMMA} deploy."`,

	models.POSPronoun: `PRONOUN: "{lemma}" replaces a noun. ✓ "{LEMMA} works well." ✓ "Give it to {LEMMA}."`,

	models.POSArticle: `ARTICLE: "{lemma}" comes before a noun. ✓ "{LEMMA} system runs." ✓ "This is {LEMMA} update."`,

	models.POSDeterminer: `DETERMINER: "{lemma}" identifies which noun. ✓ "{LEMMA} tests passed." ✓ "Check {LEMMA} file."`,

	models.POSNumber: `MODAL: "{lemma}" shows possibility/obligation before a verb. ✓ "We {LEMMA} deploy." ✓ "It {LEMMA} work."`,

	models.POSInterjection: `INTERJECTION: "{lemma}" is an exclamation. ✓ "{LEMMA}! It worked." ✓ "{LEMMA}, that is great."`,

	models.POSNegation: `NEGATION: "{lemma}" is a contraction suffix that attaches to verbs. Use common contractions like "don't", "can't", "won't", "shouldn't", "isn't", "aren't", "doesn't", "haven't", "wasn't", "couldn't". ✓ "The test doesn't pass." ✓ "We can't deploy yet." ✓ "It isn't working." ✗ NEVER write "{lemma}" as a separate word.`,

	models.POSInfinitive: `INFINITIVE MARKER: "{lemma}" before base verb. ✓ "Need {LEMMA} test." ✓ "Ready {LEMMA} go."`,

	models.POSExistential: `EXISTENTIAL: "{lemma}" in "there is/are" patterns. ✓ "{LEMMA} is a bug." ✓ "{LEMMA} are options."`,

	models.POSGenitive: `POSSESSIVE: "{lemma}" shows ownership. ✓ "The team{LEMMA} code." ✓ "Module{LEMMA} status."`,
}

// Instruction returns the usage instruction for a word in its grammatical role
func Instruction(lemma string, pos models.POS) string {
	r := strings.NewReplacer("{lemma}", lemma, "{LEMMA}", strings.ToUpper(lemma))
	tmpl, ok := posInstructions[pos]
	if !ok {
		return r.Replace(`Use "{lemma}" as ` + string(pos) + ".")
	}
	return r.Replace(tmpl)
}

// Complexity levels steer sentence length and vocabulary by frequency rank
const (
	LevelSimple   = "simple"
	LevelModerate = "moderate"
	LevelAdvanced = "advanced"
)

// Complexity maps a corpus rank to a level and its writing guidance
func Complexity(rank int) (level, description string) {
	switch {
	case rank <= 1000:
		return LevelSimple, "Use simple, everyday language. Short sentences (10-15 words). Common vocabulary."
	case rank <= 3000:
		return LevelModerate, "Use moderate complexity. Standard professional sentences (15-20 words). Mix common and specific vocabulary."
	default:
		return LevelAdvanced, "Use advanced language appropriate for educated professionals. Complex sentences (20-25 words). Technical or specialized vocabulary is acceptable."
	}
}
