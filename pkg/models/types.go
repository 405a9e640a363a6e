package models

import "time"

// WordInfo is the immutable view of a corpus word handed to the generation pipeline
type WordInfo struct {
	ID    int64  `json:"id"`
	Lemma string `json:"lemma"`
	POS   POS    `json:"pos"`
	Rank  int    `json:"rank"`
}

// Theme is a professional-domain context bundle that steers sentence subject matter
type Theme struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"name"`
	Emoji       string   `json:"emoji,omitempty"`
	Description string   `json:"description,omitempty"`
	Context     string   `json:"context"`
	Examples    []string `json:"examples,omitempty"`
}

// GenerationResult holds the accepted sentences for one word of a batch
type GenerationResult struct {
	WordID    int64    `json:"word_id"`
	Lemma     string   `json:"lemma"`
	POS       POS      `json:"pos"`
	Sentences []string `json:"sentences"`
}

// JobStatus is the lifecycle state of a batch generation run
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// BatchJob tracks a workflow run from creation to completion
type BatchJob struct {
	ID             string     `json:"job_id"`
	Status         JobStatus  `json:"status"`
	Theme          string     `json:"theme"`
	Model          string     `json:"model"`
	TotalWords     int        `json:"total_words"`
	ProcessedCount int        `json:"processed"`
	Progress       float64    `json:"progress"`
	CurrentBatch   int        `json:"current_batch"`
	TotalBatches   int        `json:"total_batches"`
	BatchSize      int        `json:"batch_size"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	ETASeconds     float64    `json:"eta_seconds"`
	WordsPerMinute float64    `json:"words_per_minute"`
	FailedBatches  int        `json:"failed_batches"`
	FinalCount     int        `json:"final_count"`
	Errors         []string   `json:"errors"`
}

// Clone returns a deep copy safe to hand to other goroutines
func (j *BatchJob) Clone() *BatchJob {
	if j == nil {
		return nil
	}
	c := *j
	c.Errors = append([]string(nil), j.Errors...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// BatchStatus is the outcome recorded for a single batch
type BatchStatus string

const (
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// GenerationLog is the append-only record written once per processed batch
type GenerationLog struct {
	ID              int64       `json:"id"`
	BatchNumber     int         `json:"batch_number"`
	WordsProcessed  int         `json:"words_processed"`
	Theme           string      `json:"theme"`
	Model           string      `json:"model"`
	Status          BatchStatus `json:"status"`
	DurationSeconds float64     `json:"duration_seconds"`
	StartWordID     int64       `json:"start_word_id"`
	EndWordID       int64       `json:"end_word_id"`
	Errors          string      `json:"errors,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}
