package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lamim/vocabforge/internal/workflow"
	"github.com/lamim/vocabforge/pkg/models"
)

// Executor runs one job to completion
type Executor interface {
	Run(ctx context.Context, job *models.BatchJob, words []models.WordInfo, opts workflow.Options) (*models.BatchJob, error)
}

// Runner executes submitted jobs on background goroutines and mirrors their
// progress into the Store
type Runner struct {
	ctx    context.Context
	store  *Store
	exec   Executor
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRunner creates a runner. Jobs are cancelled when ctx is done.
func NewRunner(ctx context.Context, store *Store, exec Executor, logger *slog.Logger) *Runner {
	return &Runner{
		ctx:    ctx,
		store:  store,
		exec:   exec,
		logger: logger.With("component", "jobs"),
	}
}

// Store returns the job store the runner writes to
func (r *Runner) Store() *Store { return r.store }

// Submit registers a job for words and starts it. The returned snapshot is
// the pending job; poll the Store for progress.
func (r *Runner) Submit(words []models.WordInfo, model string, opts workflow.Options) (*models.BatchJob, error) {
	job, err := r.store.Create(opts.Theme.Key, model, len(words), opts.BatchSize)
	if err != nil {
		return nil, err
	}

	onProgress := opts.OnProgress
	opts.OnProgress = func(snap *models.BatchJob) {
		if err := r.store.Update(snap); err != nil {
			r.logger.Warn("Failed to update job", "job_id", snap.ID, "error", err)
		}
		if onProgress != nil {
			onProgress(snap)
		}
	}

	r.logger.Info("Job submitted",
		"job_id", job.ID,
		"theme", job.Theme,
		"total_words", job.TotalWords,
		"total_batches", job.TotalBatches)

	r.wg.Add(1)
	go func(job *models.BatchJob) {
		defer r.wg.Done()
		r.execute(job, words, opts)
	}(job.Clone())

	return job, nil
}

func (r *Runner) execute(job *models.BatchJob, words []models.WordInfo, opts workflow.Options) {
	defer func() {
		if p := recover(); p != nil {
			r.fail(job, fmt.Errorf("panic: %v", p))
		}
	}()

	final, err := r.exec.Run(r.ctx, job, words, opts)
	switch {
	case err == nil, errors.Is(err, workflow.ErrNoWords):
	case final == nil:
		r.fail(job, err)
		return
	default:
		r.logger.Warn("Job stopped", "job_id", job.ID, "error", err)
	}

	if final != nil {
		if uerr := r.store.Update(final); uerr != nil {
			r.logger.Warn("Failed to store final job state", "job_id", job.ID, "error", uerr)
		}
		r.logger.Info("Job finished",
			"job_id", final.ID,
			"status", final.Status,
			"processed", final.ProcessedCount,
			"failed_batches", final.FailedBatches)
	}
}

func (r *Runner) fail(job *models.BatchJob, err error) {
	r.logger.Error("Job failed", "job_id", job.ID, "error", err)
	now := time.Now()
	job.Status = models.JobFailed
	job.CompletedAt = &now
	job.Errors = append(job.Errors, err.Error())
	if uerr := r.store.Update(job); uerr != nil {
		r.logger.Warn("Failed to store job failure", "job_id", job.ID, "error", uerr)
	}
}

// Wait blocks until every submitted job has returned
func (r *Runner) Wait() {
	r.wg.Wait()
}
