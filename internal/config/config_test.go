package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Ollama.Host != DefaultOllamaHost {
		t.Errorf("Ollama.Host = %s, want %s", cfg.Ollama.Host, DefaultOllamaHost)
	}
	if cfg.Generation.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.Generation.BatchSize)
	}
	if cfg.Generation.MaxKeptSentences != 2 {
		t.Errorf("MaxKeptSentences = %d, want 2", cfg.Generation.MaxKeptSentences)
	}
	if got := len(cfg.Themes); got != 5 {
		t.Errorf("expected 5 built-in themes, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"batch size too large", func(c *Config) { c.Generation.BatchSize = 101 }, "batch_size"},
		{"sentences too many", func(c *Config) { c.Generation.SentencesPerWord = 6 }, "sentences_per_word"},
		{"inverted rank range", func(c *Config) { c.Generation.RankMin = 10; c.Generation.RankMax = 5 }, "rank_max"},
		{"temperature out of range", func(c *Config) { c.Ollama.Temperature = 3 }, "temperature"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"theme without context", func(c *Config) {
			c.Themes["empty"] = ThemeConfig{DisplayName: "Empty"}
		}, "themes.empty.context"},
		{"schedule unknown theme", func(c *Config) {
			c.Schedule.Enabled = true
			c.Schedule.Themes = []string{"nope"}
		}, "unknown theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndThemeMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[ollama]
host = "http://gpu-box:11434"
model = "llama3.1:8b"

[generation]
batch_size = 20
sentences_per_word = 4

[themes.devops]
display_name = "Platform Engineering"

[themes.data_science]
display_name = "Data Science"
context = "You are generating example sentences for a data scientist."
examples = ["The model overfits the training data."]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Ollama.Host != "http://gpu-box:11434" {
		t.Errorf("Ollama.Host = %s", cfg.Ollama.Host)
	}
	if cfg.Generation.BatchSize != 20 || cfg.Generation.SentencesPerWord != 4 {
		t.Errorf("generation overrides not applied: %+v", cfg.Generation)
	}
	if cfg.Generation.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries default not applied: %d", cfg.Generation.MaxRetries)
	}

	devops, ok := cfg.Theme("devops")
	if !ok {
		t.Fatal("devops theme missing")
	}
	if devops.DisplayName != "Platform Engineering" {
		t.Errorf("devops display name = %s", devops.DisplayName)
	}
	if !strings.Contains(devops.Context, "DevOps Engineer") {
		t.Error("devops context should fall back to the built-in text")
	}

	if _, ok := cfg.Theme("data_science"); !ok {
		t.Error("custom theme should be loaded")
	}
	if got := len(cfg.ThemeKeys()); got != 6 {
		t.Errorf("expected 6 themes, got %d", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://10.0.0.5:11434")
	t.Setenv("BATCH_SIZE", "25")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ollama.Host != "http://10.0.0.5:11434" {
		t.Errorf("OLLAMA_HOST not applied: %s", cfg.Ollama.Host)
	}
	if cfg.Generation.BatchSize != 25 {
		t.Errorf("BATCH_SIZE not applied: %d", cfg.Generation.BatchSize)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("BATCH_SIZE", "lots")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric BATCH_SIZE")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestThemeReturnsCopy(t *testing.T) {
	cfg := Default()
	theme, _ := cfg.Theme("qa_manager")
	theme.Examples[0] = "mutated"

	again, _ := cfg.Theme("qa_manager")
	if again.Examples[0] == "mutated" {
		t.Error("Theme should not expose the config's example slice")
	}
}
