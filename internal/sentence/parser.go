package sentence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/lamim/vocabforge/internal/metrics"
	"github.com/lamim/vocabforge/internal/util"
	"github.com/lamim/vocabforge/pkg/models"
)

// ErrMalformedResponse is returned when no usable JSON array can be recovered
var ErrMalformedResponse = errors.New("malformed model response")

const (
	// DefaultMaxSentences is how many accepted sentences are kept per word
	DefaultMaxSentences = 2
	// DefaultMinLength is the shortest sentence (in characters, after trimming) worth keeping
	DefaultMinLength = 10

	previewLength = 300
)

// element is one decoded item of the model's array. Every field is kept raw
// so that presence and type are checked explicitly.
type element map[string]json.RawMessage

// Parser extracts GenerationResults from raw completion text
type Parser struct {
	maxSentences int
	minLength    int
	logger       *slog.Logger
	metrics      *metrics.Collector
}

// NewParser creates a parser; non-positive limits select the defaults
func NewParser(maxSentences, minLength int, logger *slog.Logger, m *metrics.Collector) *Parser {
	if maxSentences < 1 {
		maxSentences = DefaultMaxSentences
	}
	if minLength < 1 {
		minLength = DefaultMinLength
	}
	return &Parser{
		maxSentences: maxSentences,
		minLength:    minLength,
		logger:       logger.With("component", "parser"),
		metrics:      m,
	}
}

// WithMaxSentences returns a copy that keeps at most min(n, current limit) sentences
func (p *Parser) WithMaxSentences(n int) *Parser {
	cp := *p
	if n > 0 && n < cp.maxSentences {
		cp.maxSentences = n
	}
	return &cp
}

// Parse decodes raw completion text into results for the expected words.
// Words without any accepted sentence are omitted. An empty result is
// reported as ErrMalformedResponse so callers can retry.
func (p *Parser) Parse(raw string, expected []models.WordInfo) ([]models.GenerationResult, error) {
	text := util.StripThinkTags(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	items, err := decodeArray(text)
	if err != nil {
		if reason := RefusalReason(text); reason != "" {
			return nil, fmt.Errorf("%w: model refused (%q)", ErrMalformedResponse, reason)
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrMalformedResponse, err, util.TruncateString(text, previewLength))
	}

	idx := newWordIndex(expected)
	results := make([]models.GenerationResult, 0, len(items))

	for i, item := range items {
		lemma, ok := item.stringField("lemma")
		if !ok || strings.TrimSpace(lemma) == "" {
			p.logger.Debug("Skipping element without lemma", "index", i)
			continue
		}

		candidates, ok := item.sentences()
		if !ok || len(candidates) == 0 {
			p.logger.Debug("Skipping element without sentences", "index", i, "lemma", lemma)
			continue
		}

		advisory, _ := item.stringField("pos")
		word, found, duplicate := idx.claim(lemma, advisory)
		if !found {
			p.logger.Debug("Skipping unexpected lemma", "lemma", lemma, "pos", advisory)
			continue
		}
		if duplicate {
			p.logger.Debug("Skipping duplicate element", "lemma", lemma, "pos", word.POS)
			continue
		}

		accepted := p.filter(candidates, word)
		if len(accepted) == 0 {
			p.logger.Debug("No sentence passed validation", "lemma", word.Lemma, "pos", word.POS)
			continue
		}

		results = append(results, models.GenerationResult{
			WordID:    word.ID,
			Lemma:     word.Lemma,
			POS:       word.POS,
			Sentences: accepted,
		})
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no usable sentences in %d elements", ErrMalformedResponse, len(items))
	}
	return results, nil
}

func (p *Parser) filter(candidates []string, word models.WordInfo) []string {
	accepted := make([]string, 0, p.maxSentences)
	for _, c := range candidates {
		s := strings.TrimSpace(c)
		if utf8.RuneCountInString(s) < p.minLength {
			continue
		}
		if !IsAcceptable(s, word.Lemma, word.POS) {
			p.metrics.RecordRejectedSentence(string(word.POS))
			p.logger.Debug("Filtered sentence", "lemma", word.Lemma, "pos", word.POS, "sentence", s)
			continue
		}
		accepted = append(accepted, s)
		if len(accepted) == p.maxSentences {
			break
		}
	}
	return accepted
}

// decodeArray tries a direct decode, then each array-of-objects candidate
// found in the text, with and without newline repair.
func decodeArray(text string) ([]element, error) {
	if items, err := decodeElements(text); err == nil {
		return items, nil
	}

	for _, candidate := range util.ObjectArrayCandidates(text) {
		if items, err := decodeElements(candidate); err == nil {
			return items, nil
		}
		if items, err := decodeElements(util.SanitizeJSON(candidate)); err == nil {
			return items, nil
		}
	}

	return nil, errors.New("no JSON array found")
}

// decodeElements decodes a JSON array, dropping items that are not objects
func decodeElements(s string) ([]element, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}

	items := make([]element, 0, len(raw))
	for _, r := range raw {
		if !bytes.HasPrefix(bytes.TrimSpace(r), []byte("{")) {
			continue
		}
		var el element
		if err := json.Unmarshal(r, &el); err != nil {
			continue
		}
		items = append(items, el)
	}
	return items, nil
}

func (e element) stringField(key string) (string, bool) {
	raw, ok := e[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// sentences accepts either a single string or a list; non-string list items are dropped
func (e element) sentences() ([]string, bool) {
	raw, ok := e["sentences"]
	if !ok {
		return nil, false
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return nil, false
		}
		return []string{single}, true
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	return out, true
}

// wordIndex resolves decoded lemmas to the batch's authoritative words
type wordIndex struct {
	byLemma map[string][]int
	words   []models.WordInfo
	claimed []bool
}

func newWordIndex(words []models.WordInfo) *wordIndex {
	idx := &wordIndex{
		byLemma: make(map[string][]int, len(words)),
		words:   words,
		claimed: make([]bool, len(words)),
	}
	for i, w := range words {
		key := lemmaKey(w.Lemma)
		idx.byLemma[key] = append(idx.byLemma[key], i)
	}
	return idx
}

// claim picks the expected word for a decoded lemma. The model's pos is only
// used to choose between several expected entries sharing one lemma.
func (w *wordIndex) claim(lemma, advisoryPOS string) (word models.WordInfo, found, duplicate bool) {
	positions := w.byLemma[lemmaKey(lemma)]
	if len(positions) == 0 {
		return models.WordInfo{}, false, false
	}

	pick := -1
	hint := models.POS(strings.ToLower(strings.TrimSpace(advisoryPOS)))
	for _, i := range positions {
		if !w.claimed[i] && w.words[i].POS == hint {
			pick = i
			break
		}
	}
	if pick == -1 {
		for _, i := range positions {
			if !w.claimed[i] {
				pick = i
				break
			}
		}
	}
	if pick == -1 {
		return w.words[positions[0]], true, true
	}

	w.claimed[pick] = true
	return w.words[pick], true, false
}

func lemmaKey(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
