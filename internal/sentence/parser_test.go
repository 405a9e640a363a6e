package sentence

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/lamim/vocabforge/pkg/models"
)

func testParser() *Parser {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewParser(DefaultMaxSentences, DefaultMinLength, logger, nil)
}

var batchWords = []models.WordInfo{
	{ID: 11, Lemma: "deploy", POS: models.POSVerb, Rank: 1200},
	{ID: 12, Lemma: "pipeline", POS: models.POSNoun, Rank: 2400},
	{ID: 13, Lemma: "above", POS: models.POSAdverb, Rank: 600},
}

const wellFormed = `[
  {"lemma": "deploy", "pos": "v", "sentences": [
    "We deploy the service every Friday.",
    "They will deploy the patch tonight.",
    "Teams deploy through the shared pipeline."
  ]},
  {"lemma": "pipeline", "pos": "n", "sentences": [
    "The pipeline failed on the lint step.",
    "Check the pipeline logs for errors.",
    "Our pipeline runs in eight minutes."
  ]},
  {"lemma": "above", "pos": "r", "sentences": [
    "See the deployment notes above.",
    "As mentioned above, the build is green.",
    "The metrics shown above are stable."
  ]}
]`

func TestParse_RoundTrip(t *testing.T) {
	results, err := testParser().Parse(wellFormed, batchWords)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, r := range results {
		if len(r.Sentences) != 2 {
			t.Errorf("result %d (%s) has %d sentences, want 2", i, r.Lemma, len(r.Sentences))
		}
		if r.WordID != batchWords[i].ID || r.POS != batchWords[i].POS {
			t.Errorf("result %d resolved to id=%d pos=%s, want id=%d pos=%s",
				i, r.WordID, r.POS, batchWords[i].ID, batchWords[i].POS)
		}
	}

	// Model order is preserved
	if results[0].Sentences[0] != "We deploy the service every Friday." {
		t.Errorf("unexpected first sentence: %q", results[0].Sentences[0])
	}
}

func TestParse_ProseAroundArray(t *testing.T) {
	raw := "Sure! Here are the sentences you asked for:\n\n" + wellFormed + "\n\nLet me know if you need more."

	results, err := testParser().Parse(raw, batchWords)
	if err != nil {
		t.Fatalf("Parse failed on prose-wrapped array: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestParse_MarkdownAndThinkTags(t *testing.T) {
	raw := "<think>The user wants JSON [{not this}]</think>\n```json\n" + wellFormed + "\n```"

	results, err := testParser().Parse(raw, batchWords)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestParse_NoArray(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"I'm sorry, I cannot produce that list.",
		`{"lemma": "deploy", "sentences": ["We deploy daily at noon."]}`,
		`[{"lemma": "deploy", "sentences": ["We deploy daily at noon."]`,
	}

	for _, in := range inputs {
		_, err := testParser().Parse(in, batchWords)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformedResponse", in, err)
		}
	}
}

func TestParse_ZeroUsableResultsIsMalformed(t *testing.T) {
	raw := `[{"lemma": "above", "pos": "r", "sentences": ["Located above the rack.", "short"]}]`

	_, err := testParser().Parse(raw, batchWords)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestParse_SkipsBadElements(t *testing.T) {
	raw := `[
		"not an object",
		42,
		{"pos": "v", "sentences": ["We deploy on Mondays now."]},
		{"lemma": "deploy", "sentences": []},
		{"lemma": "deploy", "sentences": {"a": "b"}},
		{"lemma": "pipeline", "sentences": "The pipeline is blocked again."},
		{"lemma": "pipeline", "sentences": ["The pipeline is duplicated here."]},
		{"lemma": "unknown", "sentences": ["An unknown word appears here."]},
		{"lemma": "above", "sentences": [7, "Refer to the chart above.", null]}
	]`

	results, err := testParser().Parse(raw, batchWords)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}

	if results[0].Lemma != "pipeline" || len(results[0].Sentences) != 1 ||
		results[0].Sentences[0] != "The pipeline is blocked again." {
		t.Errorf("scalar sentences value not coerced: %+v", results[0])
	}
	if results[1].Lemma != "above" || results[1].Sentences[0] != "Refer to the chart above." {
		t.Errorf("unexpected above result: %+v", results[1])
	}
}

func TestParse_AuthoritativePOS(t *testing.T) {
	// The model claims "above" is a preposition; the batch says adverb, so
	// the adverb rule applies and the prepositional sentence is rejected.
	raw := `[{"lemma": "ABOVE", "pos": "i", "sentences": [
		"Mount the sensor above the door.",
		"The values listed above are final."
	]}]`

	results, err := testParser().Parse(raw, batchWords)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].POS != models.POSAdverb || results[0].Lemma != "above" {
		t.Errorf("expected authoritative adverb 'above', got %+v", results[0])
	}
	if len(results[0].Sentences) != 1 || results[0].Sentences[0] != "The values listed above are final." {
		t.Errorf("unexpected sentences: %v", results[0].Sentences)
	}
}

func TestParse_SameLemmaDifferentPOS(t *testing.T) {
	words := []models.WordInfo{
		{ID: 1, Lemma: "above", POS: models.POSPreposition},
		{ID: 2, Lemma: "above", POS: models.POSAdverb},
	}
	raw := `[
		{"lemma": "above", "pos": "r", "sentences": ["See the summary above."]},
		{"lemma": "above", "pos": "i", "sentences": ["Above the fold, we show alerts."]}
	]`

	results, err := testParser().Parse(raw, words)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].WordID != 2 || results[1].WordID != 1 {
		t.Errorf("advisory pos should disambiguate: got ids %d, %d", results[0].WordID, results[1].WordID)
	}
}

func TestParse_SanitizesLiteralNewlines(t *testing.T) {
	raw := "Result: [{\"lemma\": \"deploy\", \"sentences\": [\"We deploy\nevery single day.\"]}]"

	results, err := testParser().Parse(raw, batchWords)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 1 || results[0].Sentences[0] != "We deploy\nevery single day." {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestWithMaxSentences(t *testing.T) {
	p := testParser().WithMaxSentences(1)
	results, err := p.Parse(wellFormed, batchWords)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, r := range results {
		if len(r.Sentences) != 1 {
			t.Errorf("%s: got %d sentences, want 1", r.Lemma, len(r.Sentences))
		}
	}

	// Raising the limit above the configured cap has no effect
	if got := testParser().WithMaxSentences(5).maxSentences; got != DefaultMaxSentences {
		t.Errorf("maxSentences = %d, want %d", got, DefaultMaxSentences)
	}
}

func TestParse_MinLengthCountsCharacters(t *testing.T) {
	words := []models.WordInfo{{ID: 21, Lemma: "naïve", POS: models.POSNoun, Rank: 9000}}
	// 10 characters (12 bytes) is kept, 8 characters (11 bytes) is too short
	raw := `[{"lemma": "naïve", "pos": "n", "sentences": ["naïve café", "naïve éé"]}]`

	results, err := testParser().Parse(raw, words)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(results) != 1 || len(results[0].Sentences) != 1 || results[0].Sentences[0] != "naïve café" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestParse_Refusal(t *testing.T) {
	_, err := testParser().Parse("I'm sorry, but I can't help with generating that content.", batchWords)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if !strings.Contains(err.Error(), "model refused") {
		t.Errorf("error should name the refusal, got %v", err)
	}
}

func TestRefusalReason(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"As an AI language model, I cannot do this.", "as an ai"},
		{"Here you go: plain prose without a refusal.", ""},
		{`[{"lemma": "cannot", "sentences": ["I cannot provide the logs yet."]}]`, ""},
	}
	for _, tt := range tests {
		if got := RefusalReason(tt.text); got != tt.want {
			t.Errorf("RefusalReason(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
