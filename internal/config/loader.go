package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Load reads the TOML configuration, applies .env and environment overrides,
// fills defaults and validates the result. An empty path yields the defaults.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.ValidateInputs(); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyEnv lets deployment environments override the file without editing it
func applyEnv(cfg *Config) error {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.Host = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_SIZE must be an integer: %w", err)
		}
		cfg.Generation.BatchSize = n
	}
	return nil
}

// applyDefaults sets default values for optional configuration fields.
// TOML cannot distinguish 0 from unset, so zero values are treated as unset.
func applyDefaults(cfg *Config) {
	o := &cfg.Ollama
	if o.Host == "" {
		o.Host = DefaultOllamaHost
	}
	if o.Model == "" {
		o.Model = DefaultOllamaModel
	}
	if o.TimeoutSeconds == 0 {
		o.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.TopP == 0 {
		o.TopP = DefaultTopP
	}
	if o.NumPredict == 0 {
		o.NumPredict = DefaultNumPredict
	}
	if o.BaseRetryDelayMs == 0 {
		o.BaseRetryDelayMs = DefaultBaseRetryDelayMs
	}

	g := &cfg.Generation
	if g.BatchSize == 0 {
		g.BatchSize = DefaultBatchSize
	}
	if g.SentencesPerWord == 0 {
		g.SentencesPerWord = DefaultSentencesPerWord
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = DefaultMaxRetries
	}
	if g.RankMin == 0 {
		g.RankMin = DefaultRankMin
	}
	if g.RankMax == 0 {
		g.RankMax = DefaultRankMax
	}
	if g.BatchDelayMs == 0 {
		g.BatchDelayMs = DefaultBatchDelayMs
	}
	if g.CheckpointDir == "" {
		g.CheckpointDir = DefaultCheckpointDir
	}
	if g.MaxKeptSentences == 0 {
		g.MaxKeptSentences = DefaultMaxKeptSentences
	}
	if g.MinSentenceLength == 0 {
		g.MinSentenceLength = DefaultMinSentenceLength
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.ShutdownTimeoutSec == 0 {
		cfg.Server.ShutdownTimeoutSec = DefaultShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = DefaultLogDir
	}
	if cfg.Schedule.Spec == "" {
		cfg.Schedule.Spec = DefaultScheduleSpec
	}

	// Built-in themes are always present; TOML entries override field by field
	if cfg.Themes == nil {
		cfg.Themes = make(map[string]ThemeConfig)
	}
	for key, builtin := range DefaultThemes() {
		custom, ok := cfg.Themes[key]
		if !ok {
			cfg.Themes[key] = builtin
			continue
		}
		if custom.DisplayName == "" {
			custom.DisplayName = builtin.DisplayName
		}
		if custom.Emoji == "" {
			custom.Emoji = builtin.Emoji
		}
		if custom.Description == "" {
			custom.Description = builtin.Description
		}
		if custom.Context == "" {
			custom.Context = builtin.Context
		}
		if len(custom.Examples) == 0 {
			custom.Examples = builtin.Examples
		}
		cfg.Themes[key] = custom
	}
}
