package util

import (
	"regexp"
	"strings"
)

// Precompiled regex patterns for performance (compiled once at package init)
var (
	jsonCodeBlockRegex     = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	objectArrayStartRegex  = regexp.MustCompile(`\[\s*\{`)
	greedyObjectArrayRegex = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
)

// ObjectArrayCandidates returns substrings of s shaped like a JSON array of
// objects, in the order a caller should try to decode them. Fenced code
// blocks are searched before the surrounding text. For each source the
// bracket-matched array starting at the first "[{" comes first, followed by
// the greedy span up to the last "}]".
func ObjectArrayCandidates(s string) []string {
	sources := make([]string, 0, 2)
	if matches := jsonCodeBlockRegex.FindStringSubmatch(s); len(matches) > 1 {
		sources = append(sources, strings.TrimSpace(matches[1]))
	}
	sources = append(sources, s)

	seen := make(map[string]bool)
	var candidates []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			candidates = append(candidates, c)
		}
	}

	for _, src := range sources {
		loc := objectArrayStartRegex.FindStringIndex(src)
		if loc == nil {
			continue
		}
		if end := findMatchingBracket(src, loc[0], '[', ']'); end != -1 {
			add(src[loc[0] : end+1])
		}
		add(greedyObjectArrayRegex.FindString(src))
	}

	return candidates
}

// findMatchingBracket finds the matching closing bracket for an opening bracket
// using proper bracket matching that handles escaped quotes and strings
// Returns -1 if no matching bracket is found
func findMatchingBracket(s string, startPos int, openChar, closeChar byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := startPos; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// SanitizeJSON escapes literal newlines that models emit inside string values
func SanitizeJSON(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			result.WriteByte(ch)
			escaped = false
			continue
		}

		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString && (ch == '\n' || ch == '\r'):
			result.WriteString("\\n")
			if ch == '\r' && i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			continue
		}

		result.WriteByte(ch)
	}

	return result.String()
}
