package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lamim/vocabforge/internal/config"
	"github.com/lamim/vocabforge/internal/jobs"
	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/internal/workflow"
	"github.com/lamim/vocabforge/pkg/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type generateFlags struct {
	themes     []string
	all        bool
	rankMin    int
	rankMax    int
	batchSize  int
	sentences  int
	model      string
	retries    int
	limit      int
	regenerate bool
	resume     bool
}

// apply overrides the configuration with every flag that was set
func (f generateFlags) apply(cfg *config.Config) {
	g := &cfg.Generation
	if f.rankMin > 0 {
		g.RankMin = f.rankMin
	}
	if f.rankMax > 0 {
		g.RankMax = f.rankMax
	}
	if f.batchSize > 0 {
		g.BatchSize = f.batchSize
	}
	if f.sentences > 0 {
		g.SentencesPerWord = f.sentences
	}
	if f.retries > 0 {
		g.MaxRetries = f.retries
	}
	if f.model != "" {
		cfg.Ollama.Model = f.model
	}
}

// selection returns the word query for one theme
func (f generateFlags) selection(theme string, g config.GenerationConfig) store.Selection {
	return store.Selection{
		Theme:      theme,
		RankMin:    g.RankMin,
		RankMax:    g.RankMax,
		Regenerate: f.regenerate,
		Limit:      f.limit,
	}
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sentences for a rank range",
		Long: `Generate themed example sentences for every word in a rank range.
Words that already have sentences for the theme are skipped unless
--regenerate is set. Interrupted runs continue from the checkpoint with
--resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, f)
		},
	}

	cmd.Flags().StringSliceVarP(&f.themes, "theme", "t", []string{"qa_manager"}, "Theme key(s) to generate")
	cmd.Flags().BoolVar(&f.all, "all-themes", false, "Generate every configured theme")
	cmd.Flags().IntVar(&f.rankMin, "rank-min", 0, "First rank (default from config)")
	cmd.Flags().IntVar(&f.rankMax, "rank-max", 0, "Last rank, inclusive (default from config)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Words per prompt (default from config)")
	cmd.Flags().IntVar(&f.sentences, "sentences", 0, "Sentences requested per word (default from config)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Ollama model (default from config)")
	cmd.Flags().IntVar(&f.retries, "retries", 0, "Attempts per batch (default from config)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum words per theme, 0 for no limit")
	cmd.Flags().BoolVar(&f.regenerate, "regenerate", false, "Replace existing sentences")
	cmd.Flags().BoolVar(&f.resume, "resume", false, "Continue from the theme checkpoint")

	return cmd
}

func runGenerate(cmd *cobra.Command, f generateFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if f.limit < 0 {
		return fmt.Errorf("--limit must not be negative (got %d)", f.limit)
	}

	a, err := newApp(cmd, true, f.apply)
	if err != nil {
		return err
	}
	defer a.close()

	g := a.cfg.Generation

	keys := f.themes
	if f.all {
		keys = a.cfg.ThemeKeys()
	}
	themes := make([]models.Theme, 0, len(keys))
	for _, key := range keys {
		theme, ok := a.cfg.Theme(key)
		if !ok {
			return fmt.Errorf("unknown theme %q (available: %v)", key, a.cfg.ThemeKeys())
		}
		themes = append(themes, theme)
	}

	if err := a.requireModel(ctx); err != nil {
		return err
	}

	a.logger.Info("VocabForge starting",
		"version", Version,
		"model", a.gen.Model(),
		"themes", keys,
		"rank_min", g.RankMin,
		"rank_max", g.RankMax,
		"batch_size", g.BatchSize,
		"max_retries", g.MaxRetries,
		"limit", f.limit)

	wf := workflow.New(a.gen, a.store, a.checkpoints, a.metrics, a.logger)
	registry := jobs.NewStore()

	for _, theme := range themes {
		words, err := a.store.SelectForGeneration(ctx, f.selection(theme.Key, g))
		if err != nil {
			return err
		}
		if len(words) == 0 {
			a.logger.Info("Nothing to generate", "theme", theme.Key)
			continue
		}

		job, err := registry.Create(theme.Key, a.gen.Model(), len(words), g.BatchSize)
		if err != nil {
			return err
		}

		bar := progressbar.Default(int64(job.TotalBatches), theme.DisplayName)
		final, err := wf.Run(ctx, job, words, workflow.Options{
			Theme:            theme,
			BatchSize:        g.BatchSize,
			SentencesPerWord: g.SentencesPerWord,
			MaxRetries:       g.MaxRetries,
			Resume:           f.resume,
			BatchDelay:       g.BatchDelay(),
			OnProgress: func(snap *models.BatchJob) {
				if snap.TotalBatches > 0 {
					bar.ChangeMax(snap.TotalBatches)
				}
				_ = bar.Set(snap.CurrentBatch)
			},
		})
		_ = bar.Finish()

		if errors.Is(err, context.Canceled) {
			a.logger.Warn("Generation interrupted, rerun with --resume to continue",
				"theme", theme.Key,
				"checkpoint_dir", a.checkpoints.Dir())
			return fmt.Errorf("generation interrupted")
		}
		if err != nil && !errors.Is(err, workflow.ErrNoWords) {
			return fmt.Errorf("generation failed: %w", err)
		}

		printSummary(final)
	}

	a.logger.Info("All done! 🎉")
	return nil
}

func printSummary(job *models.BatchJob) {
	if job == nil {
		return
	}
	fmt.Println()
	fmt.Printf("Theme:            %s\n", job.Theme)
	fmt.Printf("Status:           %s\n", job.Status)
	fmt.Printf("Words processed:  %d / %d\n", job.ProcessedCount, job.TotalWords)
	fmt.Printf("Failed batches:   %d\n", job.FailedBatches)
	fmt.Printf("Elapsed:          %s\n", (time.Duration(job.ElapsedSeconds * float64(time.Second))).Round(time.Second))
	fmt.Printf("Words per minute: %.1f\n", job.WordsPerMinute)
	for _, e := range job.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}
