package util

import (
	"encoding/json"
	"testing"
)

func TestObjectArrayCandidates(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst string
	}{
		{
			name:      "plain array",
			input:     `[{"lemma": "run"}]`,
			wantFirst: `[{"lemma": "run"}]`,
		},
		{
			name:      "prose around array",
			input:     "Here you go:\n[{\"lemma\": \"run\"}]\nHope this helps!",
			wantFirst: `[{"lemma": "run"}]`,
		},
		{
			name:      "markdown fence",
			input:     "```json\n[{\"lemma\": \"run\"}]\n```",
			wantFirst: `[{"lemma": "run"}]`,
		},
		{
			name:      "brackets inside strings",
			input:     `note [{"lemma": "a]b", "sentences": ["x [y] z"]}] trailing ]`,
			wantFirst: `[{"lemma": "a]b", "sentences": ["x [y] z"]}]`,
		},
		{
			name:      "array of strings before objects",
			input:     `["skip"] then [ {"lemma": "run"} ]`,
			wantFirst: `[ {"lemma": "run"} ]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ObjectArrayCandidates(tt.input)
			if len(got) == 0 {
				t.Fatalf("ObjectArrayCandidates(%q) returned no candidates", tt.input)
			}
			if got[0] != tt.wantFirst {
				t.Errorf("first candidate = %q, want %q", got[0], tt.wantFirst)
			}
			var v []map[string]any
			if err := json.Unmarshal([]byte(got[0]), &v); err != nil {
				t.Errorf("first candidate is not valid JSON: %v", err)
			}
		})
	}
}

func TestObjectArrayCandidates_None(t *testing.T) {
	inputs := []string{
		"",
		"I cannot help with that.",
		`{"lemma": "run"}`,
		`["a", "b"]`,
	}
	for _, in := range inputs {
		if got := ObjectArrayCandidates(in); len(got) != 0 {
			t.Errorf("ObjectArrayCandidates(%q) = %v, want none", in, got)
		}
	}
}

func TestObjectArrayCandidates_GreedyFallback(t *testing.T) {
	// Unbalanced quote breaks bracket matching; the greedy span is still offered
	input := `[{"lemma": "run", "sentences": ["ok"]}, {"lemma": "x}]`
	got := ObjectArrayCandidates(input)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(got), got)
	}
	if got[0] != input {
		t.Errorf("greedy candidate = %q, want whole input", got[0])
	}
}

func TestSanitizeJSON(t *testing.T) {
	input := "[{\"sentences\": [\"line one\nline two\"]}]"
	out := SanitizeJSON(input)

	var v []map[string]any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("sanitized JSON failed to parse: %v\n%s", err, out)
	}

	// Newlines outside strings are untouched
	if got := SanitizeJSON("[\n1\n]"); got != "[\n1\n]" {
		t.Errorf("SanitizeJSON changed structural whitespace: %q", got)
	}
}
