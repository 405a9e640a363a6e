package checkpoint

import (
	"fmt"

	"github.com/lamim/vocabforge/pkg/models"
)

// ValidateCheckpoint verifies the checkpoint belongs to the requested theme
func ValidateCheckpoint(cp *models.Checkpoint, theme string) error {
	if cp.Theme != theme {
		return fmt.Errorf("checkpoint theme mismatch: checkpoint is for %q, resume requested %q", cp.Theme, theme)
	}
	if cp.LastBatchIndex < 0 || cp.ProcessedCount < 0 {
		return fmt.Errorf("checkpoint has negative counters")
	}
	return nil
}

// RemainingWords drops every word up to and including the checkpoint cursor.
// The cursor is located by position in the rank-ordered list; if the cursor
// word is no longer selected (fill-gap mode hides finished words), words with
// an id at or below the cursor are dropped instead.
func RemainingWords(words []models.WordInfo, cp *models.Checkpoint) []models.WordInfo {
	if cp == nil || cp.LastProcessedWordID == 0 {
		return words
	}

	for i, w := range words {
		if w.ID == cp.LastProcessedWordID {
			return words[i+1:]
		}
	}

	remaining := make([]models.WordInfo, 0, len(words))
	for _, w := range words {
		if w.ID > cp.LastProcessedWordID {
			remaining = append(remaining, w)
		}
	}
	return remaining
}

// GetProgressPercentage returns how much of total the checkpoint has covered
func GetProgressPercentage(cp *models.Checkpoint, total int) float64 {
	if total <= 0 {
		return 0.0
	}
	pct := float64(cp.ProcessedCount) / float64(total) * 100.0
	if pct > 100 {
		pct = 100
	}
	return pct
}
