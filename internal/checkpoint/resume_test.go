package checkpoint

import (
	"testing"

	"github.com/lamim/vocabforge/pkg/models"
)

func wordsWithIDs(ids ...int64) []models.WordInfo {
	out := make([]models.WordInfo, len(ids))
	for i, id := range ids {
		out[i] = models.WordInfo{ID: id, Lemma: "w", POS: models.POSNoun, Rank: i + 1}
	}
	return out
}

func ids(words []models.WordInfo) []int64 {
	out := make([]int64, len(words))
	for i, w := range words {
		out[i] = w.ID
	}
	return out
}

func TestRemainingWords(t *testing.T) {
	tests := []struct {
		name   string
		words  []models.WordInfo
		cursor int64
		want   []int64
	}{
		{"no checkpoint cursor", wordsWithIDs(1, 2, 3), 0, []int64{1, 2, 3}},
		{"cursor present", wordsWithIDs(1, 2, 3, 4), 2, []int64{3, 4}},
		{"cursor is last", wordsWithIDs(1, 2, 3), 3, []int64{}},
		{"cursor by position not id order", wordsWithIDs(10, 4, 7, 2), 4, []int64{7, 2}},
		{"cursor absent falls back to id", wordsWithIDs(3, 5, 8, 9), 6, []int64{8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(RemainingWords(tt.words, &models.Checkpoint{LastProcessedWordID: tt.cursor}))
			if len(got) != len(tt.want) {
				t.Fatalf("RemainingWords = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("RemainingWords = %v, want %v", got, tt.want)
				}
			}
		})
	}

	if got := RemainingWords(wordsWithIDs(1, 2), nil); len(got) != 2 {
		t.Errorf("nil checkpoint should keep every word, got %d", len(got))
	}
}

func TestValidateCheckpoint(t *testing.T) {
	cp := &models.Checkpoint{Theme: "devops", LastBatchIndex: 2}
	if err := ValidateCheckpoint(cp, "devops"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateCheckpoint(cp, "qa_manager"); err == nil {
		t.Error("expected theme mismatch error")
	}
	if err := ValidateCheckpoint(&models.Checkpoint{Theme: "devops", ProcessedCount: -1}, "devops"); err == nil {
		t.Error("expected error for negative counters")
	}
}

func TestGetProgressPercentage(t *testing.T) {
	cp := &models.Checkpoint{ProcessedCount: 25}
	if got := GetProgressPercentage(cp, 100); got != 25.0 {
		t.Errorf("GetProgressPercentage = %v, want 25", got)
	}
	if got := GetProgressPercentage(cp, 0); got != 0.0 {
		t.Errorf("GetProgressPercentage with zero total = %v, want 0", got)
	}
	if got := GetProgressPercentage(&models.Checkpoint{ProcessedCount: 200}, 100); got != 100.0 {
		t.Errorf("GetProgressPercentage should cap at 100, got %v", got)
	}
}
