package models

import (
	"fmt"
	"sort"
	"strings"
)

// POS is a single-letter part-of-speech code from the COCA corpus schema
type POS string

const (
	POSArticle      POS = "a"
	POSConjunction  POS = "c"
	POSDeterminer   POS = "d"
	POSExistential  POS = "e"
	POSGenitive     POS = "g"
	POSPreposition  POS = "i"
	POSAdjective    POS = "j"
	POSNumber       POS = "m"
	POSNoun         POS = "n"
	POSPronoun      POS = "p"
	POSAdverb       POS = "r"
	POSInfinitive   POS = "t"
	POSInterjection POS = "u"
	POSVerb         POS = "v"
	POSNegation     POS = "x"
)

// POSInfo describes a part-of-speech code for display purposes
type POSInfo struct {
	Code        POS    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

var posTable = map[POS]POSInfo{
	POSArticle:      {POSArticle, "Article", "the, a, your", "#E3F2FD"},
	POSConjunction:  {POSConjunction, "Conjunction", "if, because, whereas", "#FFF3E0"},
	POSDeterminer:   {POSDeterminer, "Determiner", "this, most, either", "#E8F5E9"},
	POSExistential:  {POSExistential, "Existential", "there", "#F3E5F5"},
	POSGenitive:     {POSGenitive, "Genitive", "'", "#FBE9E7"},
	POSPreposition:  {POSPreposition, "Preposition", "with, instead, except", "#E0F7FA"},
	POSAdjective:    {POSAdjective, "Adjective", "shy, risky, tender", "#FFFDE7"},
	POSNumber:       {POSNumber, "Number", "seven, fifth, two-thirds", "#F1F8E9"},
	POSNoun:         {POSNoun, "Noun", "bulb, tolerance, slot", "#E8EAF6"},
	POSPronoun:      {POSPronoun, "Pronoun", "we, somebody, mine", "#FCE4EC"},
	POSAdverb:       {POSAdverb, "Adverb", "up, seldom, fortunately", "#EFEBE9"},
	POSInfinitive:   {POSInfinitive, "Infinitive", "to + infinitive", "#ECEFF1"},
	POSInterjection: {POSInterjection, "Interjection", "yeah, hi, wow", "#FFF8E1"},
	POSVerb:         {POSVerb, "Verb", "modify, scan, govern", "#E1F5FE"},
	POSNegation:     {POSNegation, "Negation", "not, n't", "#FFEBEE"},
}

// ParsePOS normalizes and validates a part-of-speech code
func ParsePOS(s string) (POS, error) {
	p := POS(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := posTable[p]; !ok {
		return "", fmt.Errorf("unknown part-of-speech code %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the 15 known codes
func (p POS) Valid() bool {
	_, ok := posTable[p]
	return ok
}

// Name returns the human-readable name, or the raw code for unknown values
func (p POS) Name() string {
	if info, ok := posTable[p]; ok {
		return info.Name
	}
	return string(p)
}

// Info returns display metadata for the code
func (p POS) Info() (POSInfo, bool) {
	info, ok := posTable[p]
	return info, ok
}

// AllPOS returns every known code sorted alphabetically
func AllPOS() []POSInfo {
	out := make([]POSInfo, 0, len(posTable))
	for _, info := range posTable {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
