package models

import "time"

// Checkpoint is the durable cursor of a batch run for one theme
type Checkpoint struct {
	Theme               string            `json:"theme"`
	Model               string            `json:"model"`
	LastBatchIndex      int               `json:"last_batch"`
	LastProcessedWordID int64             `json:"last_word_id"`
	ProcessedCount      int               `json:"processed"`
	TotalWords          int               `json:"total_words,omitempty"`
	Errors              []CheckpointError `json:"errors"`
	CreatedAt           time.Time         `json:"created_at"`
	LastSavedAt         time.Time         `json:"timestamp"`
}

// CheckpointError records a failed batch carried across resumes
type CheckpointError struct {
	BatchIndex int       `json:"batch"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
