// Package workflow drives sentence generation over a rank-ordered word list
// in sequential batches, persisting results, batch logs and a resumable
// checkpoint after every batch.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lamim/vocabforge/internal/checkpoint"
	"github.com/lamim/vocabforge/internal/metrics"
	"github.com/lamim/vocabforge/pkg/models"
)

// DefaultBatchDelay is the pause between consecutive batches
const DefaultBatchDelay = 500 * time.Millisecond

// ErrNoWords is returned when there is nothing left to process
var ErrNoWords = errors.New("no words to generate")

// Generator produces sentences for one batch of words
type Generator interface {
	GenerateBatch(ctx context.Context, words []models.WordInfo, theme models.Theme, sentencesPerWord int, maxRetries int) ([]models.GenerationResult, error)
	Model() string
}

// SentenceStore persists accepted sentences and batch logs
type SentenceStore interface {
	ReplaceSentences(ctx context.Context, wordID int64, theme string, sentences []string) error
	AppendGenerationLog(ctx context.Context, entry models.GenerationLog) (int64, error)
}

// CheckpointStore keeps one resumable cursor per theme
type CheckpointStore interface {
	Load(theme string) (*models.Checkpoint, error)
	Save(cp *models.Checkpoint) error
	Delete(theme string) error
}

// ProgressFunc receives a snapshot of the job after every state change
type ProgressFunc func(job *models.BatchJob)

// Options configure a single run
type Options struct {
	Theme            models.Theme
	BatchSize        int
	SentencesPerWord int
	MaxRetries       int
	Resume           bool
	BatchDelay       time.Duration
	OnProgress       ProgressFunc
}

// Workflow runs batch generation jobs
type Workflow struct {
	gen         Generator
	store       SentenceStore
	checkpoints CheckpointStore
	metrics     *metrics.Collector
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a workflow. checkpoints may be nil to disable resume support.
func New(gen Generator, store SentenceStore, checkpoints CheckpointStore, m *metrics.Collector, logger *slog.Logger) *Workflow {
	return &Workflow{
		gen:         gen,
		store:       store,
		checkpoints: checkpoints,
		metrics:     m,
		logger:      logger.With("component", "workflow"),
		now:         time.Now,
	}
}

// run holds the mutable state of one Run call
type run struct {
	job     *models.BatchJob
	cp      *models.Checkpoint
	opts    Options
	started time.Time
	covered int
	// processed counts words that got sentences during this call;
	// job.ProcessedCount also includes words from a resumed checkpoint.
	processed int
}

// Run processes words in contiguous batches of opts.BatchSize. A failed
// batch is logged and skipped; the run continues with the next one. The
// returned job is completed when at least one batch succeeded, failed
// otherwise. Cancelling ctx stops the run after the current batch and keeps
// the checkpoint for a later resume.
func (w *Workflow) Run(ctx context.Context, job *models.BatchJob, words []models.WordInfo, opts Options) (*models.BatchJob, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.SentencesPerWord <= 0 {
		return nil, fmt.Errorf("sentences per word must be positive, got %d", opts.SentencesPerWord)
	}
	if job == nil {
		job = &models.BatchJob{CreatedAt: w.now()}
	}

	r := &run{job: job, opts: opts, started: w.now()}
	job.Theme = opts.Theme.Key
	job.Model = w.gen.Model()
	job.BatchSize = opts.BatchSize

	remaining := words
	r.cp = w.resumePoint(opts)
	if r.cp != nil {
		remaining = checkpoint.RemainingWords(words, r.cp)
		r.covered = len(words) - len(remaining)
		job.ProcessedCount = r.cp.ProcessedCount
		for _, e := range r.cp.Errors {
			job.Errors = append(job.Errors, e.Message)
		}
		w.logger.Info("Resuming from checkpoint",
			"theme", opts.Theme.Key,
			"last_batch", r.cp.LastBatchIndex,
			"last_word_id", r.cp.LastProcessedWordID,
			"skipped", r.covered,
			"remaining", len(remaining))
	} else {
		// TotalWords is the size of the first selection; fill-gap resumes
		// select fewer words and keep it.
		r.cp = &models.Checkpoint{Theme: opts.Theme.Key, Model: job.Model, TotalWords: len(words)}
	}

	job.TotalWords = len(words)
	batches := chunk(remaining, opts.BatchSize)
	job.TotalBatches = r.cp.LastBatchIndex + len(batches)
	job.CurrentBatch = r.cp.LastBatchIndex
	job.Progress = percent(r.covered, job.TotalWords)

	if len(batches) == 0 {
		w.finish(r, models.JobCompleted)
		return job.Clone(), ErrNoWords
	}

	startedAt := r.started
	job.StartedAt = &startedAt
	job.Status = models.JobProcessing
	w.notify(r)

	w.metrics.JobStarted()
	defer w.metrics.JobFinished()

	w.logger.Info("Starting batch generation",
		"theme", opts.Theme.Key,
		"model", job.Model,
		"words", len(remaining),
		"batches", len(batches),
		"batch_size", opts.BatchSize)

	succeeded := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return w.interrupt(r, err)
		}

		number := r.cp.LastBatchIndex + 1
		job.CurrentBatch = number
		w.notify(r)

		ok, err := w.processBatch(ctx, r, number, batch)
		if err != nil {
			// Only cancellation surfaces as an error from processBatch.
			return w.interrupt(r, err)
		}
		if ok {
			succeeded++
		}

		r.covered += len(batch)
		r.cp.LastBatchIndex = number
		r.cp.LastProcessedWordID = batch[len(batch)-1].ID
		r.cp.ProcessedCount = job.ProcessedCount
		w.saveCheckpoint(r.cp)

		w.updateProgress(r)
		w.notify(r)

		if i < len(batches)-1 && opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return w.interrupt(r, ctx.Err())
			case <-time.After(opts.BatchDelay):
			}
		}
	}

	status := models.JobCompleted
	if succeeded == 0 {
		status = models.JobFailed
	}
	w.finish(r, status)

	if w.checkpoints != nil {
		if err := w.checkpoints.Delete(opts.Theme.Key); err != nil {
			w.logger.Warn("Failed to delete checkpoint", "theme", opts.Theme.Key, "error", err)
		}
	}

	w.logger.Info("Batch generation finished",
		"theme", opts.Theme.Key,
		"status", job.Status,
		"processed", job.ProcessedCount,
		"total_words", job.TotalWords,
		"failed_batches", job.FailedBatches,
		"duration", time.Duration(job.ElapsedSeconds*float64(time.Second)))

	return job.Clone(), nil
}

// processBatch generates and stores one batch. It reports whether the batch
// succeeded; the error is non-nil only when ctx was cancelled mid-batch.
func (w *Workflow) processBatch(ctx context.Context, r *run, number int, batch []models.WordInfo) (bool, error) {
	theme := r.opts.Theme.Key
	start := w.now()

	results, err := w.gen.GenerateBatch(ctx, batch, r.opts.Theme, r.opts.SentencesPerWord, r.opts.MaxRetries)
	if err != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}

	stored := 0
	if err == nil {
		for _, res := range results {
			if len(res.Sentences) == 0 {
				continue
			}
			if serr := w.store.ReplaceSentences(ctx, res.WordID, theme, res.Sentences); serr != nil {
				err = fmt.Errorf("failed to store sentences for %q: %w", res.Lemma, serr)
				break
			}
			stored++
		}
	}

	duration := w.now().Sub(start)
	r.processed += stored
	r.job.ProcessedCount += stored

	// A store cut short by cancellation leaves the checkpoint at the previous
	// batch so a resume retries every word of this one.
	if err != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}

	entry := models.GenerationLog{
		BatchNumber:     number,
		WordsProcessed:  len(batch),
		Theme:           theme,
		Model:           r.job.Model,
		Status:          models.BatchCompleted,
		DurationSeconds: duration.Seconds(),
		StartWordID:     batch[0].ID,
		EndWordID:       batch[len(batch)-1].ID,
	}

	if err != nil {
		msg := fmt.Sprintf("Batch %d failed: %v", number, err)
		entry.Status = models.BatchFailed
		entry.WordsProcessed = stored
		entry.Errors = err.Error()
		r.job.FailedBatches++
		r.job.Errors = append(r.job.Errors, msg)
		r.cp.Errors = append(r.cp.Errors, models.CheckpointError{
			BatchIndex: number,
			Message:    msg,
			Timestamp:  w.now(),
		})
		w.logger.Error("Batch failed",
			"batch", number,
			"words", len(batch),
			"theme", theme,
			"status", entry.Status,
			"duration", duration,
			"error", err)
	} else {
		w.logger.Info("Batch completed",
			"batch", number,
			"words", len(batch),
			"accepted", stored,
			"theme", theme,
			"status", entry.Status,
			"duration", duration)
		for _, wi := range missing(batch, results) {
			w.logger.Debug("Word needs regeneration", "lemma", wi.Lemma, "pos", wi.POS, "word_id", wi.ID)
		}
	}

	// The log record is written even if the caller cancels during the batch.
	if _, lerr := w.store.AppendGenerationLog(context.WithoutCancel(ctx), entry); lerr != nil {
		w.logger.Warn("Failed to append generation log", "batch", number, "error", lerr)
	}
	w.metrics.RecordBatch(theme, duration, err == nil, stored)

	return err == nil, nil
}

func (w *Workflow) resumePoint(opts Options) *models.Checkpoint {
	if !opts.Resume || w.checkpoints == nil {
		return nil
	}
	cp, err := w.checkpoints.Load(opts.Theme.Key)
	if err != nil {
		w.logger.Warn("Ignoring unreadable checkpoint", "theme", opts.Theme.Key, "error", err)
		return nil
	}
	if cp == nil {
		w.logger.Info("No checkpoint found, starting from the beginning", "theme", opts.Theme.Key)
		return nil
	}
	if err := checkpoint.ValidateCheckpoint(cp, opts.Theme.Key); err != nil {
		w.logger.Warn("Ignoring checkpoint", "theme", opts.Theme.Key, "error", err)
		return nil
	}
	return cp
}

func (w *Workflow) saveCheckpoint(cp *models.Checkpoint) {
	if w.checkpoints == nil {
		return
	}
	if err := w.checkpoints.Save(cp); err != nil {
		w.logger.Warn("Failed to save checkpoint", "theme", cp.Theme, "error", err)
	}
}

func (w *Workflow) updateProgress(r *run) {
	elapsed := w.now().Sub(r.started).Seconds()
	r.job.ElapsedSeconds = round2(elapsed)
	r.job.Progress = percent(r.covered, r.job.TotalWords)

	var wps float64
	if elapsed > 0 {
		wps = float64(r.processed) / elapsed
	}
	r.job.WordsPerMinute = round2(wps * 60)

	r.job.ETASeconds = 0
	if wps > 0 {
		r.job.ETASeconds = round2(float64(r.job.TotalWords-r.covered) / wps)
	}
}

func (w *Workflow) finish(r *run, status models.JobStatus) {
	w.updateProgress(r)
	completed := w.now()
	r.job.CompletedAt = &completed
	r.job.Status = status
	r.job.FinalCount = r.job.ProcessedCount
	r.job.ETASeconds = 0
	w.notify(r)
}

// interrupt marks the job failed and leaves the checkpoint in place
func (w *Workflow) interrupt(r *run, err error) (*models.BatchJob, error) {
	r.job.Errors = append(r.job.Errors, fmt.Sprintf("interrupted: %v", err))
	w.finish(r, models.JobFailed)
	w.logger.Warn("Batch generation interrupted",
		"theme", r.opts.Theme.Key,
		"last_batch", r.cp.LastBatchIndex,
		"processed", r.job.ProcessedCount)
	return r.job.Clone(), err
}

func (w *Workflow) notify(r *run) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(r.job.Clone())
	}
}

// chunk splits words into contiguous slices of at most size elements
func chunk(words []models.WordInfo, size int) [][]models.WordInfo {
	var out [][]models.WordInfo
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		out = append(out, words[start:end])
	}
	return out
}

// missing returns the batch words that received no sentences
func missing(batch []models.WordInfo, results []models.GenerationResult) []models.WordInfo {
	got := make(map[int64]bool, len(results))
	for _, r := range results {
		if len(r.Sentences) > 0 {
			got[r.WordID] = true
		}
	}
	var out []models.WordInfo
	for _, w := range batch {
		if !got[w.ID] {
			out = append(out, w)
		}
	}
	return out
}

func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
