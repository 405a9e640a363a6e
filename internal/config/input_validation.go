package config

import (
	"fmt"
	"net/url"
	"regexp"
	"unicode"
)

const (
	// MaxModelNameLength is the maximum allowed length for model names
	MaxModelNameLength = 100

	// MaxThemeContextLength bounds the domain paragraph copied into every prompt
	MaxThemeContextLength = 4000

	// MaxThemeNameLength bounds theme display names
	MaxThemeNameLength = 100

	// MaxExampleLength bounds a single theme example sentence
	MaxExampleLength = 300

	// MaxTemplateSize is the maximum allowed size for template content
	MaxTemplateSize = 50 * 1024 // 50KB
)

var themeKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)

// ValidateInputs performs additional validation on user-controllable fields
// that end up in prompts, file names and outbound URLs.
func (c *Config) ValidateInputs() error {
	if err := validateBaseURL(c.Ollama.Host); err != nil {
		return err
	}
	if err := validateModelName(c.Ollama.Model); err != nil {
		return err
	}

	if len(c.Generation.PromptTemplate) > MaxTemplateSize {
		return fmt.Errorf("generation.prompt_template exceeds maximum size of %d bytes (got %d)",
			MaxTemplateSize, len(c.Generation.PromptTemplate))
	}

	for key, theme := range c.Themes {
		if err := validateTheme(key, theme); err != nil {
			return err
		}
	}

	return nil
}

// validateModelName checks model name for security issues
func validateModelName(modelName string) error {
	if len(modelName) > MaxModelNameLength {
		return fmt.Errorf("ollama.model exceeds maximum length of %d (got %d)",
			MaxModelNameLength, len(modelName))
	}
	if containsControlChars(modelName) {
		return fmt.Errorf("ollama.model contains invalid control characters")
	}
	return nil
}

// validateBaseURL checks that the Ollama host is properly formatted
func validateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("ollama.host is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("ollama.host must use http or https scheme (got %s)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("ollama.host must have a host")
	}
	return nil
}

// validateTheme checks a theme key and its text fields.
// Theme keys become checkpoint file names, so they are restricted to [a-z0-9_].
func validateTheme(key string, theme ThemeConfig) error {
	if !themeKeyRegex.MatchString(key) {
		return fmt.Errorf("theme key %q must match %s", key, themeKeyRegex.String())
	}
	if len(theme.DisplayName) > MaxThemeNameLength {
		return fmt.Errorf("themes.%s.display_name exceeds maximum length of %d", key, MaxThemeNameLength)
	}
	if containsControlChars(theme.DisplayName) {
		return fmt.Errorf("themes.%s.display_name contains invalid control characters", key)
	}
	if len(theme.Context) > MaxThemeContextLength {
		return fmt.Errorf("themes.%s.context exceeds maximum length of %d (got %d)",
			key, MaxThemeContextLength, len(theme.Context))
	}
	if containsControlChars(theme.Context) {
		return fmt.Errorf("themes.%s.context contains invalid control characters", key)
	}
	for i, ex := range theme.Examples {
		if len(ex) > MaxExampleLength {
			return fmt.Errorf("themes.%s.examples[%d] exceeds maximum length of %d", key, i, MaxExampleLength)
		}
		if containsControlChars(ex) {
			return fmt.Errorf("themes.%s.examples[%d] contains invalid control characters", key, i)
		}
	}
	return nil
}

// containsControlChars checks if a string contains control characters
// (excluding newlines, tabs, and carriage returns which are acceptable)
func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
