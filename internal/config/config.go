package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lamim/vocabforge/pkg/models"
)

// Config represents the complete application configuration
type Config struct {
	Ollama     OllamaConfig           `toml:"ollama"`
	Generation GenerationConfig       `toml:"generation"`
	Database   DatabaseConfig         `toml:"database"`
	Server     ServerConfig           `toml:"server"`
	Logging    LoggingConfig          `toml:"logging"`
	Schedule   ScheduleConfig         `toml:"schedule"`
	Themes     map[string]ThemeConfig `toml:"themes"`
}

// OllamaConfig describes the local LLM endpoint
type OllamaConfig struct {
	Host               string  `toml:"host"`
	Model              string  `toml:"model"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	Temperature        float64 `toml:"temperature"`
	TopP               float64 `toml:"top_p"`
	NumPredict         int     `toml:"num_predict"`
	RateLimitPerMinute int     `toml:"rate_limit_per_minute"` // 0 = unlimited
	BaseRetryDelayMs   int     `toml:"base_retry_delay_ms"`
}

// GenerationConfig holds batch workflow settings
type GenerationConfig struct {
	BatchSize         int    `toml:"batch_size"`
	SentencesPerWord  int    `toml:"sentences_per_word"`
	MaxRetries        int    `toml:"max_retries"`
	RankMin           int    `toml:"rank_min"`
	RankMax           int    `toml:"rank_max"`
	BatchDelayMs      int    `toml:"batch_delay_ms"`
	CheckpointDir     string `toml:"checkpoint_dir"`
	MaxKeptSentences  int    `toml:"max_kept_sentences"`
	MinSentenceLength int    `toml:"min_sentence_length"`
	PromptTemplate    string `toml:"prompt_template"` // Optional override of the built-in prompt
}

// DatabaseConfig points at the SQLite corpus
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	ListenAddr         string   `toml:"listen_addr"`
	CORSOrigins        []string `toml:"cors_origins"`
	ShutdownTimeoutSec int      `toml:"shutdown_timeout_seconds"`
}

// LoggingConfig controls console verbosity and the JSON log directory
type LoggingConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// ScheduleConfig enables periodic fill-gap runs while serving
type ScheduleConfig struct {
	Enabled bool     `toml:"enabled"`
	Spec    string   `toml:"spec"`
	Themes  []string `toml:"themes"`
}

// ThemeConfig is the TOML form of a theme; missing fields fall back to the built-in theme
type ThemeConfig struct {
	DisplayName string   `toml:"display_name"`
	Emoji       string   `toml:"emoji"`
	Description string   `toml:"description"`
	Context     string   `toml:"context"`
	Examples    []string `toml:"examples"`
}

const (
	// MaxBatchSize is the largest batch accepted by a single prompt
	MaxBatchSize = 100
	// MaxSentencesPerWord is the largest number of sentences requested per word
	MaxSentencesPerWord = 5
	// MaxRetries caps the generation retry budget
	MaxRetries = 10
)

// Timeout returns the transport timeout for generation requests
func (o OllamaConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// BaseRetryDelay returns the first backoff delay of the retry loop
func (o OllamaConfig) BaseRetryDelay() time.Duration {
	return time.Duration(o.BaseRetryDelayMs) * time.Millisecond
}

// BatchDelay returns the pause inserted between batches
func (g GenerationConfig) BatchDelay() time.Duration {
	return time.Duration(g.BatchDelayMs) * time.Millisecond
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Ollama.Host == "" {
		return fmt.Errorf("ollama.host is required")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama.model is required")
	}
	if c.Ollama.TimeoutSeconds < 1 {
		return fmt.Errorf("ollama.timeout_seconds must be at least 1")
	}
	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		return fmt.Errorf("ollama.temperature must be between 0 and 2 (got %.2f)", c.Ollama.Temperature)
	}
	if c.Ollama.TopP < 0 || c.Ollama.TopP > 1 {
		return fmt.Errorf("ollama.top_p must be between 0 and 1 (got %.2f)", c.Ollama.TopP)
	}
	if c.Ollama.NumPredict < 1 {
		return fmt.Errorf("ollama.num_predict must be at least 1")
	}
	if c.Ollama.RateLimitPerMinute < 0 {
		return fmt.Errorf("ollama.rate_limit_per_minute must not be negative")
	}

	g := c.Generation
	if g.BatchSize < 1 || g.BatchSize > MaxBatchSize {
		return fmt.Errorf("generation.batch_size must be between 1 and %d (got %d)", MaxBatchSize, g.BatchSize)
	}
	if g.SentencesPerWord < 1 || g.SentencesPerWord > MaxSentencesPerWord {
		return fmt.Errorf("generation.sentences_per_word must be between 1 and %d (got %d)", MaxSentencesPerWord, g.SentencesPerWord)
	}
	if g.MaxRetries < 1 || g.MaxRetries > MaxRetries {
		return fmt.Errorf("generation.max_retries must be between 1 and %d (got %d)", MaxRetries, g.MaxRetries)
	}
	if g.RankMin < 1 {
		return fmt.Errorf("generation.rank_min must be at least 1")
	}
	if g.RankMax < g.RankMin {
		return fmt.Errorf("generation.rank_max (%d) must not be below rank_min (%d)", g.RankMax, g.RankMin)
	}
	if g.BatchDelayMs < 0 {
		return fmt.Errorf("generation.batch_delay_ms must not be negative")
	}
	if g.MaxKeptSentences < 1 || g.MaxKeptSentences > MaxSentencesPerWord {
		return fmt.Errorf("generation.max_kept_sentences must be between 1 and %d (got %d)", MaxSentencesPerWord, g.MaxKeptSentences)
	}
	if g.MinSentenceLength < 1 {
		return fmt.Errorf("generation.min_sentence_length must be at least 1")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %s)", c.Logging.Level)
	}

	for key, theme := range c.Themes {
		if theme.DisplayName == "" {
			return fmt.Errorf("themes.%s.display_name is required", key)
		}
		if strings.TrimSpace(theme.Context) == "" {
			return fmt.Errorf("themes.%s.context is required", key)
		}
	}

	if c.Schedule.Enabled {
		if c.Schedule.Spec == "" {
			return fmt.Errorf("schedule.spec is required when schedule.enabled=true")
		}
		if len(c.Schedule.Themes) == 0 {
			return fmt.Errorf("schedule.themes must list at least one theme")
		}
		for _, key := range c.Schedule.Themes {
			if _, ok := c.Themes[key]; !ok {
				return fmt.Errorf("schedule.themes references unknown theme %q", key)
			}
		}
	}

	return nil
}

// Theme resolves a theme key into the model used by the generation pipeline
func (c *Config) Theme(key string) (models.Theme, bool) {
	tc, ok := c.Themes[key]
	if !ok {
		return models.Theme{}, false
	}
	return models.Theme{
		Key:         key,
		DisplayName: tc.DisplayName,
		Emoji:       tc.Emoji,
		Description: tc.Description,
		Context:     tc.Context,
		Examples:    append([]string(nil), tc.Examples...),
	}, true
}

// ThemeKeys returns configured theme keys in sorted order
func (c *Config) ThemeKeys() []string {
	keys := make([]string, 0, len(c.Themes))
	for k := range c.Themes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AllThemes returns every configured theme sorted by key
func (c *Config) AllThemes() []models.Theme {
	keys := c.ThemeKeys()
	out := make([]models.Theme, 0, len(keys))
	for _, k := range keys {
		t, _ := c.Theme(k)
		out = append(out, t)
	}
	return out
}
