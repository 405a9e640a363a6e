// Package jobs tracks batch generation runs in memory and executes them in
// the background.
package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lamim/vocabforge/pkg/models"
)

var (
	// ErrNotFound is returned for unknown job ids
	ErrNotFound = errors.New("job not found")
	// ErrThemeBusy is returned when a theme already has an active job
	ErrThemeBusy = errors.New("theme already has an active job")
)

// DefaultListLimit is used when List receives a non-positive limit
const DefaultListLimit = 20

// Store is a thread-safe job registry. All reads return copies.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*models.BatchJob
	now  func() time.Time
}

// NewStore creates an empty job store
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*models.BatchJob),
		now:  time.Now,
	}
}

// Create registers a pending job for theme. It fails with ErrThemeBusy when
// another pending or processing job exists for the same theme.
func (s *Store) Create(theme, model string, totalWords, batchSize int) (*models.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.Theme == theme && !j.Status.Terminal() {
			return nil, ErrThemeBusy
		}
	}

	job := &models.BatchJob{
		ID:         uuid.NewString(),
		Status:     models.JobPending,
		Theme:      theme,
		Model:      model,
		TotalWords: totalWords,
		BatchSize:  batchSize,
		CreatedAt:  s.now(),
		Errors:     []string{},
	}
	if batchSize > 0 {
		job.TotalBatches = (totalWords + batchSize - 1) / batchSize
	}
	s.jobs[job.ID] = job
	return job.Clone(), nil
}

// Get returns a snapshot of the job
func (s *Store) Get(id string) (*models.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// Update replaces the stored job with a copy of job
func (s *Store) Update(job *models.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	c := job.Clone()
	if c.Errors == nil {
		c.Errors = []string{}
	}
	s.jobs[job.ID] = c
	return nil
}

// List returns up to limit jobs, newest first, optionally filtered by
// status. The second value is the number of jobs in the store.
func (s *Store) List(status models.JobStatus, limit int) ([]*models.BatchJob, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	out := make([]*models.BatchJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if status != "" && j.Status != status {
			continue
		}
		out = append(out, j.Clone())
	}
	total := len(s.jobs)
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total
}

// ActiveForTheme returns the pending or processing job for theme, if any
func (s *Store) ActiveForTheme(theme string) (*models.BatchJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, j := range s.jobs {
		if j.Theme == theme && !j.Status.Terminal() {
			return j.Clone(), true
		}
	}
	return nil, false
}
