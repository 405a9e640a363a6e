package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/lamim/vocabforge/internal/api"
	"github.com/lamim/vocabforge/internal/checkpoint"
	"github.com/lamim/vocabforge/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testTheme = models.Theme{Key: "qa_manager", DisplayName: "QA Manager", Context: "software testing"}

func testWords(n int) []models.WordInfo {
	words := make([]models.WordInfo, n)
	for i := range words {
		words[i] = models.WordInfo{
			ID:    int64(i + 1),
			Lemma: fmt.Sprintf("word%d", i+1),
			POS:   models.POSNoun,
			Rank:  i + 1,
		}
	}
	return words
}

// fakeGenerator answers every word with two sentences unless fail says otherwise
type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	seen    []int64
	fail    func(call int) error
	onCall  func(call int)
	results func(words []models.WordInfo) []models.GenerationResult
}

func (g *fakeGenerator) Model() string { return "test-model" }

func (g *fakeGenerator) GenerateBatch(ctx context.Context, words []models.WordInfo, theme models.Theme, n int, retries int) ([]models.GenerationResult, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	for _, w := range words {
		g.seen = append(g.seen, w.ID)
	}
	g.mu.Unlock()

	if g.onCall != nil {
		g.onCall(call)
	}
	if g.fail != nil {
		if err := g.fail(call); err != nil {
			return nil, err
		}
	}
	if g.results != nil {
		return g.results(words), nil
	}
	out := make([]models.GenerationResult, len(words))
	for i, w := range words {
		out[i] = models.GenerationResult{
			WordID:    w.ID,
			Lemma:     w.Lemma,
			POS:       w.POS,
			Sentences: []string{"The " + w.Lemma + " was reviewed.", "Every " + w.Lemma + " passed."},
		}
	}
	return out, nil
}

type memStore struct {
	mu        sync.Mutex
	sentences map[int64][]string
	logs      []models.GenerationLog
	failWord  int64
	onReplace func(ctx context.Context, wordID int64) error
}

func newMemStore() *memStore {
	return &memStore{sentences: make(map[int64][]string)}
}

func (s *memStore) ReplaceSentences(ctx context.Context, wordID int64, theme string, sentences []string) error {
	if s.onReplace != nil {
		if err := s.onReplace(ctx, wordID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if wordID == s.failWord {
		return errors.New("disk full")
	}
	s.sentences[wordID] = append([]string(nil), sentences...)
	return nil
}

func (s *memStore) AppendGenerationLog(ctx context.Context, entry models.GenerationLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return int64(len(s.logs)), nil
}

func (s *memStore) statuses() []models.BatchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BatchStatus, len(s.logs))
	for i, l := range s.logs {
		out[i] = l.Status
	}
	return out
}

func baseOptions() Options {
	return Options{
		Theme:            testTheme,
		BatchSize:        2,
		SentencesPerWord: 3,
		MaxRetries:       1,
	}
}

func TestRun_FailedBatchDoesNotAbort(t *testing.T) {
	gen := &fakeGenerator{fail: func(call int) error {
		if call == 2 {
			return fmt.Errorf("generation failed after 1 attempts: %w", api.ErrServiceUnavailable)
		}
		return nil
	}}
	store := newMemStore()
	cps := checkpoint.NewManager(t.TempDir(), testLogger())
	wf := New(gen, store, cps, nil, testLogger())

	job, err := wf.Run(context.Background(), nil, testWords(10), baseOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if job.Status != models.JobCompleted {
		t.Errorf("Status = %s, want completed", job.Status)
	}
	want := []models.BatchStatus{models.BatchCompleted, models.BatchFailed, models.BatchCompleted, models.BatchCompleted, models.BatchCompleted}
	got := store.statuses()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("batch statuses = %v, want %v", got, want)
	}
	if job.ProcessedCount != 8 || job.FinalCount != 8 {
		t.Errorf("ProcessedCount = %d, FinalCount = %d, want 8", job.ProcessedCount, job.FinalCount)
	}
	if job.FailedBatches != 1 || len(job.Errors) != 1 {
		t.Errorf("FailedBatches = %d, Errors = %v", job.FailedBatches, job.Errors)
	}
	if job.TotalBatches != 5 || job.CurrentBatch != 5 {
		t.Errorf("TotalBatches = %d, CurrentBatch = %d", job.TotalBatches, job.CurrentBatch)
	}
	if job.Progress != 100 {
		t.Errorf("Progress = %v, want 100", job.Progress)
	}
	if job.CompletedAt == nil || job.StartedAt == nil {
		t.Error("expected start and completion timestamps")
	}

	failed := store.logs[1]
	if failed.StartWordID != 3 || failed.EndWordID != 4 || failed.Errors == "" {
		t.Errorf("failed log = %+v", failed)
	}

	cp, err := cps.Load(testTheme.Key)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cp != nil {
		t.Error("checkpoint should be deleted after a finished run")
	}
}

func TestRun_AllBatchesFailed(t *testing.T) {
	gen := &fakeGenerator{fail: func(int) error { return api.ErrServiceUnavailable }}
	wf := New(gen, newMemStore(), nil, nil, testLogger())

	job, err := wf.Run(context.Background(), nil, testWords(4), baseOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != models.JobFailed {
		t.Errorf("Status = %s, want failed", job.Status)
	}
	if job.FailedBatches != 2 {
		t.Errorf("FailedBatches = %d, want 2", job.FailedBatches)
	}
}

func TestRun_ResumeMatchesUninterruptedRun(t *testing.T) {
	words := testWords(10)

	full := New(&fakeGenerator{}, newMemStore(), nil, nil, testLogger())
	want, err := full.Run(context.Background(), nil, words, baseOptions())
	if err != nil {
		t.Fatalf("uninterrupted Run() error = %v", err)
	}

	cps := checkpoint.NewManager(t.TempDir(), testLogger())
	store := newMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeGenerator{onCall: func(call int) {
		if call == 2 {
			cancel()
		}
	}}
	job, err := New(first, store, cps, nil, testLogger()).Run(ctx, nil, words, baseOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("interrupted Run() error = %v, want context.Canceled", err)
	}
	if job.Status != models.JobFailed {
		t.Errorf("interrupted Status = %s, want failed", job.Status)
	}

	cp, err := cps.Load(testTheme.Key)
	if err != nil || cp == nil {
		t.Fatalf("expected checkpoint after interruption, got %v, %v", cp, err)
	}
	if cp.LastBatchIndex != 2 || cp.LastProcessedWordID != 4 || cp.ProcessedCount != 4 {
		t.Errorf("checkpoint = %+v", cp)
	}

	second := &fakeGenerator{}
	opts := baseOptions()
	opts.Resume = true
	resumed, err := New(second, store, cps, nil, testLogger()).Run(context.Background(), nil, words, opts)
	if err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}

	if resumed.ProcessedCount != want.ProcessedCount {
		t.Errorf("resumed ProcessedCount = %d, uninterrupted = %d", resumed.ProcessedCount, want.ProcessedCount)
	}
	if len(second.seen) != 6 || second.seen[0] != 5 {
		t.Errorf("resumed run saw word ids %v, want 5..10", second.seen)
	}
	if resumed.TotalBatches != 5 {
		t.Errorf("TotalBatches = %d, want 5", resumed.TotalBatches)
	}
	last := store.logs[len(store.logs)-1]
	if last.BatchNumber != 5 {
		t.Errorf("last batch number = %d, want 5", last.BatchNumber)
	}
	if len(store.sentences) != 10 {
		t.Errorf("stored sentences for %d words, want 10", len(store.sentences))
	}
}

func TestRun_CancelDuringStoreKeepsCheckpoint(t *testing.T) {
	cps := checkpoint.NewManager(t.TempDir(), testLogger())
	store := newMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	store.onReplace = func(ctx context.Context, wordID int64) error {
		if wordID == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	_, err := New(&fakeGenerator{}, store, cps, nil, testLogger()).Run(ctx, nil, testWords(10), baseOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	cp, err := cps.Load(testTheme.Key)
	if err != nil || cp == nil {
		t.Fatalf("expected checkpoint after interruption, got %v, %v", cp, err)
	}
	if cp.LastBatchIndex != 1 || cp.LastProcessedWordID != 2 || cp.ProcessedCount != 2 {
		t.Errorf("checkpoint = %+v, want batch 1 ending at word 2", cp)
	}
	if cp.TotalWords != 10 {
		t.Errorf("checkpoint TotalWords = %d, want 10", cp.TotalWords)
	}

	store.onReplace = nil
	second := &fakeGenerator{}
	opts := baseOptions()
	opts.Resume = true
	resumed, err := New(second, store, cps, nil, testLogger()).Run(context.Background(), nil, testWords(10), opts)
	if err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}
	if len(second.seen) != 8 || second.seen[0] != 3 {
		t.Errorf("resumed run saw word ids %v, want 3..10", second.seen)
	}
	if len(store.sentences) != 10 {
		t.Errorf("stored sentences for %d words, want 10", len(store.sentences))
	}
	if resumed.ProcessedCount != 10 {
		t.Errorf("ProcessedCount = %d, want 10", resumed.ProcessedCount)
	}
}

func TestRun_ResumeInFillGapMode(t *testing.T) {
	cps := checkpoint.NewManager(t.TempDir(), testLogger())
	if err := cps.Save(&models.Checkpoint{Theme: testTheme.Key, LastBatchIndex: 2, LastProcessedWordID: 4, ProcessedCount: 4}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// words 1..4 already have sentences and are no longer selected
	words := testWords(10)[4:]
	gen := &fakeGenerator{}
	opts := baseOptions()
	opts.Resume = true

	job, err := New(gen, newMemStore(), cps, nil, testLogger()).Run(context.Background(), nil, words, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gen.seen) != 6 {
		t.Errorf("generator saw %d words, want 6", len(gen.seen))
	}
	if job.ProcessedCount != 10 {
		t.Errorf("ProcessedCount = %d, want 10", job.ProcessedCount)
	}
}

type staticCheckpoints struct {
	cp      *models.Checkpoint
	saved   int
	deleted bool
}

func (s *staticCheckpoints) Load(string) (*models.Checkpoint, error) { return s.cp, nil }
func (s *staticCheckpoints) Save(*models.Checkpoint) error { s.saved++; return nil }
func (s *staticCheckpoints) Delete(string) error { s.deleted = true; return nil }

func TestRun_IgnoresCheckpointForOtherTheme(t *testing.T) {
	cps := &staticCheckpoints{cp: &models.Checkpoint{Theme: "devops", LastProcessedWordID: 8, ProcessedCount: 8}}
	gen := &fakeGenerator{}
	opts := baseOptions()
	opts.Resume = true

	job, err := New(gen, newMemStore(), cps, nil, testLogger()).Run(context.Background(), nil, testWords(4), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gen.seen) != 4 {
		t.Errorf("generator saw %d words, want all 4", len(gen.seen))
	}
	if job.ProcessedCount != 4 {
		t.Errorf("ProcessedCount = %d, want 4", job.ProcessedCount)
	}
	if cps.saved != 2 || !cps.deleted {
		t.Errorf("saved = %d, deleted = %v", cps.saved, cps.deleted)
	}
}

func TestRun_StorageFailureFailsBatch(t *testing.T) {
	store := newMemStore()
	store.failWord = 3
	wf := New(&fakeGenerator{}, store, nil, nil, testLogger())

	job, err := wf.Run(context.Background(), nil, testWords(4), baseOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := store.statuses(); got[1] != models.BatchFailed {
		t.Errorf("batch 2 status = %s, want failed", got[1])
	}
	if job.Status != models.JobCompleted || job.ProcessedCount != 2 {
		t.Errorf("Status = %s, ProcessedCount = %d", job.Status, job.ProcessedCount)
	}
}

func TestRun_PartialResultsCountOnlyAcceptedWords(t *testing.T) {
	gen := &fakeGenerator{results: func(words []models.WordInfo) []models.GenerationResult {
		return []models.GenerationResult{{WordID: words[0].ID, Lemma: words[0].Lemma, Sentences: []string{"Only the first word."}}}
	}}
	store := newMemStore()

	job, err := New(gen, store, nil, nil, testLogger()).Run(context.Background(), nil, testWords(6), Options{
		Theme: testTheme, BatchSize: 3, SentencesPerWord: 2, MaxRetries: 1,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.ProcessedCount != 2 {
		t.Errorf("ProcessedCount = %d, want 2", job.ProcessedCount)
	}
	if store.logs[0].WordsProcessed != 3 {
		t.Errorf("WordsProcessed = %d, want batch size 3", store.logs[0].WordsProcessed)
	}
}

func TestRun_ProgressSnapshots(t *testing.T) {
	var snaps []*models.BatchJob
	opts := baseOptions()
	opts.OnProgress = func(j *models.BatchJob) { snaps = append(snaps, j) }

	_, err := New(&fakeGenerator{}, newMemStore(), nil, nil, testLogger()).Run(context.Background(), &models.BatchJob{ID: "job-1"}, testWords(4), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(snaps) == 0 {
		t.Fatal("no progress snapshots")
	}
	if snaps[0].Status != models.JobProcessing {
		t.Errorf("first snapshot status = %s", snaps[0].Status)
	}
	last := snaps[len(snaps)-1]
	if last.ID != "job-1" || last.Status != models.JobCompleted || last.Progress != 100 {
		t.Errorf("last snapshot = %+v", last)
	}

	// snapshots are copies
	snaps[0].Errors = append(snaps[0].Errors, "mutated")
	if len(last.Errors) != 0 {
		t.Error("snapshot shares state with later snapshots")
	}
}

func TestRun_NoWords(t *testing.T) {
	job, err := New(&fakeGenerator{}, newMemStore(), nil, nil, testLogger()).Run(context.Background(), nil, nil, baseOptions())
	if !errors.Is(err, ErrNoWords) {
		t.Fatalf("Run() error = %v, want ErrNoWords", err)
	}
	if job.Status != models.JobCompleted {
		t.Errorf("Status = %s", job.Status)
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	wf := New(&fakeGenerator{}, newMemStore(), nil, nil, testLogger())
	if _, err := wf.Run(context.Background(), nil, testWords(1), Options{Theme: testTheme, SentencesPerWord: 1}); err == nil {
		t.Error("expected error for zero batch size")
	}
}

func TestChunk(t *testing.T) {
	got := chunk(testWords(5), 2)
	if len(got) != 3 || len(got[2]) != 1 || got[2][0].ID != 5 {
		t.Errorf("chunk() = %v", got)
	}
	if chunk(nil, 3) != nil {
		t.Error("chunk(nil) should be nil")
	}
}
