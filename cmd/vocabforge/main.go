package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/lamim/vocabforge/internal/api"
	"github.com/lamim/vocabforge/internal/checkpoint"
	"github.com/lamim/vocabforge/internal/config"
	"github.com/lamim/vocabforge/internal/generation"
	"github.com/lamim/vocabforge/internal/metrics"
	"github.com/lamim/vocabforge/internal/prompt"
	"github.com/lamim/vocabforge/internal/sentence"
	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/internal/writer"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vocabforge",
		Short: "VocabForge - themed example sentences for English vocabulary",
		Long: `VocabForge generates professional, theme-specific example sentences
for the most frequent English words using a local Ollama model, stores them
in SQLite and serves them over a REST API.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newCheckpointCmd())
	rootCmd.AddCommand(newOllamaCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the components shared by the subcommands
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	logFile     *os.File
	metrics     *metrics.Collector
	store       *store.Store
	ollama      *api.Client
	gen         *generation.Client
	checkpoints *checkpoint.Manager
}

// loadConfig reads --config. The default path may be absent, in which case
// built-in defaults and environment overrides apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newApp loads configuration and logging. Overrides from command-line flags
// are applied before validation and before any client is built. openStore
// additionally opens and migrates the database.
func newApp(cmd *cobra.Command, openStore bool, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		for _, override := range overrides {
			override(cfg)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	level, err := writer.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	logger, logFile, err := writer.SetupLogger(cfg.Logging.Dir, level)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		logFile:     logFile,
		metrics:     metrics.NewCollector(logger),
		checkpoints: checkpoint.NewManager(cfg.Generation.CheckpointDir, logger),
	}

	a.ollama = api.NewClient(cfg.Ollama, logger, a.metrics)
	parser := sentence.NewParser(cfg.Generation.MaxKeptSentences, cfg.Generation.MinSentenceLength, logger, a.metrics)
	a.gen = generation.NewClient(a.ollama, prompt.NewBuilder(cfg.Generation.PromptTemplate), parser, cfg.Ollama.BaseRetryDelay(), logger)

	if openStore {
		st, err := store.Open(cmd.Context(), cfg.Database.Path, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.store = st
	}

	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}
	if a.logFile != nil {
		_ = a.logFile.Sync()
		_ = a.logFile.Close()
	}
}

// requireModel fails fast when Ollama is down or the model is missing
func (a *app) requireModel(ctx context.Context) error {
	if !a.gen.CheckConnection(ctx) {
		return fmt.Errorf("cannot connect to Ollama at %s (is `ollama serve` running?)", a.gen.Host())
	}
	ok, err := a.gen.HasModel(ctx, a.gen.Model())
	if err != nil {
		return fmt.Errorf("failed to list Ollama models: %w", err)
	}
	if !ok {
		return fmt.Errorf("model %s is not installed (run `ollama pull %s`)", a.gen.Model(), a.gen.Model())
	}
	return nil
}
