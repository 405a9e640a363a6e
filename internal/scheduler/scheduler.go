// Package scheduler submits periodic fill-gap generation jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lamim/vocabforge/internal/config"
	"github.com/lamim/vocabforge/internal/jobs"
	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/internal/workflow"
	"github.com/lamim/vocabforge/pkg/models"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// WordSelector picks the words a theme still needs
type WordSelector interface {
	SelectForGeneration(ctx context.Context, sel store.Selection) ([]models.WordInfo, error)
}

// Submitter starts background jobs
type Submitter interface {
	Submit(words []models.WordInfo, model string, opts workflow.Options) (*models.BatchJob, error)
}

// Scheduler runs one fill-gap job per configured theme on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	cfg      *config.Config
	words    WordSelector
	jobs     Submitter
	model    string
	inflight singleflight.Group
	logger   *slog.Logger
}

// New validates the schedule and creates a stopped scheduler
func New(cfg *config.Config, words WordSelector, submitter Submitter, model string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(cfg.Schedule.Spec); err != nil {
		return nil, fmt.Errorf("invalid schedule spec %q: %w", cfg.Schedule.Spec, err)
	}
	for _, key := range cfg.Schedule.Themes {
		if _, ok := cfg.Theme(key); !ok {
			return nil, fmt.Errorf("schedule references unknown theme %q", key)
		}
	}

	return &Scheduler{
		cron:   cron.New(),
		spec:   cfg.Schedule.Spec,
		cfg:    cfg,
		words:  words,
		jobs:   submitter,
		model:  model,
		logger: logger.With("component", "scheduler"),
	}, nil
}

// Start registers the schedule and starts the cron loop. Ticks use ctx for
// word selection.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		_, _, _ = s.inflight.Do("fill", func() (any, error) {
			s.RunOnce(ctx)
			return nil, nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "spec", s.spec, "themes", s.cfg.Schedule.Themes)
	return nil
}

// Stop halts the cron loop and waits for a running tick to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunOnce submits a fill-gap job for every scheduled theme that has pending
// words and no active job. It returns the submitted jobs.
func (s *Scheduler) RunOnce(ctx context.Context) []*models.BatchJob {
	g := s.cfg.Generation
	var submitted []*models.BatchJob

	for _, key := range s.cfg.Schedule.Themes {
		if ctx.Err() != nil {
			return submitted
		}
		theme, ok := s.cfg.Theme(key)
		if !ok {
			continue
		}

		words, err := s.words.SelectForGeneration(ctx, store.Selection{
			Theme:   key,
			RankMin: g.RankMin,
			RankMax: g.RankMax,
		})
		if err != nil {
			s.logger.Error("Failed to select words", "theme", key, "error", err)
			continue
		}
		if len(words) == 0 {
			s.logger.Debug("Theme is complete", "theme", key)
			continue
		}

		job, err := s.jobs.Submit(words, s.model, workflow.Options{
			Theme:            theme,
			BatchSize:        g.BatchSize,
			SentencesPerWord: g.SentencesPerWord,
			MaxRetries:       g.MaxRetries,
			Resume:           true,
			BatchDelay:       g.BatchDelay(),
		})
		if errors.Is(err, jobs.ErrThemeBusy) {
			s.logger.Info("Skipping theme with active job", "theme", key)
			continue
		}
		if err != nil {
			s.logger.Error("Failed to submit scheduled job", "theme", key, "error", err)
			continue
		}

		s.logger.Info("Scheduled job submitted", "theme", key, "job_id", job.ID, "words", len(words))
		submitted = append(submitted, job)
	}

	return submitted
}
