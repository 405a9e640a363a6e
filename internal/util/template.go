package util

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// forbiddenDirectives could be abused by user-supplied templates
var forbiddenDirectives = []string{"{{call", "{{define", "{{template", "{{block"}

// templateCache holds parsed templates keyed by their source text
var templateCache sync.Map

// RenderTemplate renders a template string with the given data.
// Parsed templates are cached, so repeated renders of the same prompt skip parsing.
func RenderTemplate(tmpl string, data map[string]interface{}) (string, error) {
	t, err := parseCached(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func parseCached(tmpl string) (*template.Template, error) {
	if cached, ok := templateCache.Load(tmpl); ok {
		return cached.(*template.Template), nil
	}

	for _, directive := range forbiddenDirectives {
		if strings.Contains(tmpl, directive) {
			return nil, fmt.Errorf("template contains forbidden directive: %s", directive)
		}
	}

	t, err := template.New("prompt").
		Option("missingkey=error").
		Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	actual, _ := templateCache.LoadOrStore(tmpl, t)
	return actual.(*template.Template), nil
}

// ClearTemplateCache drops every cached template
func ClearTemplateCache() {
	templateCache.Range(func(key, _ any) bool {
		templateCache.Delete(key)
		return true
	})
}

// TruncateString truncates a string to maxLen runes (Unicode-safe)
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
