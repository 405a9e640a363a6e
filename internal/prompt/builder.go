// Package prompt assembles the batch prompt sent to the LLM.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lamim/vocabforge/internal/util"
	"github.com/lamim/vocabforge/pkg/models"
)

// ErrNoWords is returned when a prompt is requested for an empty batch
var ErrNoWords = errors.New("no words to build a prompt for")

// maxStyleExamples limits how many theme examples are quoted in a prompt
const maxStyleExamples = 3

// DefaultTemplate is the built-in batch prompt
const DefaultTemplate = `You are a linguistics expert creating example sentences for English learners.

PROFESSIONAL CONTEXT: {{.Context}}
{{if .Examples}}
STYLE REFERENCE (match the tone, do not reuse these sentences):
{{range .Examples}}- {{.}}
{{end}}{{end}}
TASK: Generate exactly {{.SentencesPerWord}} sentences for each word below. Each sentence MUST use the word in the EXACT grammatical role specified.

=== WORDS TO PROCESS ===
{{range .Words}}
Word: "{{.Lemma}}"
Part of Speech: {{.POSName}} ({{.POSCode}})
Level: {{.Level}}. {{.LevelDescription}}
Instruction: {{.Instruction}}
{{end}}
=== OUTPUT FORMAT ===
Return ONLY a JSON array. No explanations, no markdown:
[{"lemma": "word", "pos": "x", "sentences": [{{.SentencePlaceholders}}]}]`

// wordBlock is the per-word data exposed to the template
type wordBlock struct {
	Lemma            string
	POSName          string
	POSCode          string
	Level            string
	LevelDescription string
	Instruction      string
}

// Builder renders batch prompts from a text/template
type Builder struct {
	template string
}

// NewBuilder creates a builder; an empty template selects DefaultTemplate
func NewBuilder(template string) *Builder {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	return &Builder{template: template}
}

// Build renders one prompt covering every word of the batch
func (b *Builder) Build(words []models.WordInfo, theme models.Theme, sentencesPerWord int) (string, error) {
	if len(words) == 0 {
		return "", ErrNoWords
	}
	if sentencesPerWord < 1 {
		sentencesPerWord = 1
	}

	blocks := make([]wordBlock, 0, len(words))
	for _, w := range words {
		level, desc := Complexity(w.Rank)
		blocks = append(blocks, wordBlock{
			Lemma:            w.Lemma,
			POSName:          w.POS.Name(),
			POSCode:          string(w.POS),
			Level:            level,
			LevelDescription: desc,
			Instruction:      Instruction(w.Lemma, w.POS),
		})
	}

	examples := theme.Examples
	if len(examples) > maxStyleExamples {
		examples = examples[:maxStyleExamples]
	}

	out, err := util.RenderTemplate(b.template, map[string]interface{}{
		"Context":              strings.TrimSpace(theme.Context),
		"Examples":             examples,
		"SentencesPerWord":     sentencesPerWord,
		"Words":                blocks,
		"SentencePlaceholders": placeholders(sentencesPerWord),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%q", fmt.Sprintf("sentence%d", i+1))
	}
	return strings.Join(parts, ", ")
}
