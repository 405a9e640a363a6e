package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lamim/vocabforge/internal/api"
	"github.com/lamim/vocabforge/internal/jobs"
	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/internal/workflow"
	"github.com/lamim/vocabforge/pkg/models"
	"golang.org/x/sync/errgroup"
)

const defaultTheme = "qa_manager"

// BatchRequest starts a background generation job
type BatchRequest struct {
	Theme            string  `json:"theme"`
	WordIDs          []int64 `json:"word_ids" validate:"omitempty,dive,gte=1"`
	RankMin          int     `json:"rank_min" validate:"gte=0"`
	RankMax          int     `json:"rank_max" validate:"gte=0"`
	BatchSize        int     `json:"batch_size" validate:"gte=0,lte=100"`
	SentencesPerWord int     `json:"sentences_per_word" validate:"gte=0,lte=5"`
	Regenerate       bool    `json:"regenerate"`
	Resume           bool    `json:"resume"`
}

// SingleRequest generates sentences for one word synchronously
type SingleRequest struct {
	WordID         int64  `json:"word_id" validate:"required,gte=1"`
	Theme          string `json:"theme"`
	SentencesCount int    `json:"sentences_count" validate:"gte=0,lte=5"`
}

func (s *Server) applyBatchDefaults(req *BatchRequest) {
	g := s.cfg.Generation
	if req.Theme == "" {
		req.Theme = defaultTheme
	}
	if req.RankMin == 0 {
		req.RankMin = g.RankMin
	}
	if req.RankMax == 0 {
		req.RankMax = g.RankMax
	}
	if req.BatchSize == 0 {
		req.BatchSize = g.BatchSize
	}
	if req.SentencesPerWord == 0 {
		req.SentencesPerWord = g.SentencesPerWord
	}
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, validationMessage(err), nil)
		return
	}
	s.applyBatchDefaults(&req)
	if req.RankMin > req.RankMax {
		s.respondError(w, r, http.StatusBadRequest, "rank_min must not exceed rank_max", nil)
		return
	}

	theme, ok := s.cfg.Theme(req.Theme)
	if !ok {
		s.invalidTheme(w, r)
		return
	}
	if active, busy := s.jobs.ActiveForTheme(theme.Key); busy {
		s.respondError(w, r, http.StatusConflict, "theme "+theme.Key+" already has an active job "+active.ID, nil)
		return
	}
	if !s.gen.CheckConnection(r.Context()) {
		s.respondError(w, r, http.StatusServiceUnavailable, "Ollama service is not available", nil)
		return
	}

	words, err := s.store.SelectForGeneration(r.Context(), store.Selection{
		Theme:      theme.Key,
		RankMin:    req.RankMin,
		RankMax:    req.RankMax,
		Regenerate: req.Regenerate,
		WordIDs:    req.WordIDs,
	})
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to select words", err)
		return
	}
	if len(words) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]any{
			"status":  "no_work",
			"message": "No words to generate. All words in range already have sentences for this theme.",
			"theme":   theme.Key,
		})
		return
	}

	job, err := s.runner.Submit(words, s.gen.Model(), workflow.Options{
		Theme:            theme,
		BatchSize:        req.BatchSize,
		SentencesPerWord: req.SentencesPerWord,
		MaxRetries:       s.cfg.Generation.MaxRetries,
		Resume:           req.Resume,
		BatchDelay:       s.cfg.Generation.BatchDelay(),
	})
	if errors.Is(err, jobs.ErrThemeBusy) {
		s.respondError(w, r, http.StatusConflict, "theme "+theme.Key+" already has an active job", nil)
		return
	}
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to start job", err)
		return
	}

	s.respondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, err := s.jobs.Get(id)
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "job "+id+" not found", nil)
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", jobs.DefaultListLimit)
	if err != nil || limit < 1 {
		s.respondError(w, r, http.StatusBadRequest, "limit must be a positive integer", err)
		return
	}

	status := models.JobStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.JobPending, models.JobProcessing, models.JobCompleted, models.JobFailed:
	default:
		s.respondError(w, r, http.StatusBadRequest, "status must be one of pending, processing, completed, failed", nil)
		return
	}

	list, total := s.jobs.List(status, limit)
	s.respondJSON(w, http.StatusOK, map[string]any{"jobs": list, "total": total})
}

func (s *Server) handleGenerateSingle(w http.ResponseWriter, r *http.Request) {
	var req SingleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, validationMessage(err), nil)
		return
	}
	if req.Theme == "" {
		req.Theme = defaultTheme
	}
	if req.SentencesCount == 0 {
		req.SentencesCount = s.cfg.Generation.SentencesPerWord
	}

	ctx := r.Context()
	word, err := s.store.GetWord(ctx, req.WordID, req.Theme)
	if err != nil {
		s.respondStoreError(w, r, "word with id "+strconv.FormatInt(req.WordID, 10)+" not found", err)
		return
	}
	theme, ok := s.cfg.Theme(req.Theme)
	if !ok {
		s.invalidTheme(w, r)
		return
	}
	if !s.gen.CheckConnection(ctx) {
		s.respondError(w, r, http.StatusServiceUnavailable, "Ollama service is not available", nil)
		return
	}

	results, err := s.gen.GenerateBatch(ctx, []models.WordInfo{word.Info()}, theme, req.SentencesCount, s.cfg.Generation.MaxRetries)
	if err != nil || len(results) == 0 || len(results[0].Sentences) == 0 {
		s.respondError(w, r, http.StatusInternalServerError, "failed to generate sentences", err)
		return
	}

	if err := s.store.ReplaceSentences(ctx, word.ID, theme.Key, results[0].Sentences); err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to store sentences", err)
		return
	}

	updated, err := s.store.GetWord(ctx, word.ID, theme.Key)
	if err != nil {
		s.respondStoreError(w, r, "word not found", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"word_id":      word.ID,
		"lemma":        word.Lemma,
		"pos":          word.POS,
		"theme":        theme.Key,
		"sentences":    updated.Sentences,
		"generated_at": time.Now().UTC(),
	})
}

func (s *Server) handleDeleteSentences(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "wordID"), 10, 64)
	if err != nil || id < 1 {
		s.respondError(w, r, http.StatusBadRequest, "word id must be a positive integer", nil)
		return
	}
	theme := r.URL.Query().Get("theme")
	if theme != "" && !s.knownTheme(theme) {
		s.invalidTheme(w, r)
		return
	}

	n, err := s.store.DeleteSentences(r.Context(), id, theme)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to delete sentences", err)
		return
	}

	resp := map[string]any{"word_id": id, "deleted": n, "theme": nil}
	if theme != "" {
		resp["theme"] = theme
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", store.DefaultLogLimit)
	if err != nil || limit < 1 {
		s.respondError(w, r, http.StatusBadRequest, "limit must be a positive integer", err)
		return
	}

	logs, err := s.store.ListGenerationLogs(r.Context(), limit, r.URL.Query().Get("theme"))
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to fetch generation logs", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (s *Server) handleOllamaStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.gen.CheckConnection(ctx) {
		s.respondJSON(w, http.StatusOK, map[string]any{
			"status":  "disconnected",
			"host":    s.gen.Host(),
			"message": "Cannot connect to Ollama. Ensure Ollama is running.",
		})
		return
	}

	installed, err := s.gen.ListModels(ctx)
	if err != nil {
		s.respondJSON(w, http.StatusOK, map[string]any{
			"status": "error",
			"host":   s.gen.Host(),
			"error":  err.Error(),
		})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":           "connected",
		"host":             s.gen.Host(),
		"current_model":    s.gen.Model(),
		"model_available":  api.ModelAvailable(installed, s.gen.Model()),
		"available_models": installed,
	})
}

// handleHealth probes the database and the LLM endpoint concurrently. Only a
// database failure makes the service unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var (
		dbErr     error
		connected bool
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		dbErr = s.store.Ping(ctx)
		return nil
	})
	g.Go(func() error {
		connected = s.gen.CheckConnection(ctx)
		return nil
	})
	_ = g.Wait()

	resp := map[string]any{
		"status":   "ok",
		"database": "ok",
		"ollama":   "connected",
		"jobs":     len(s.activeJobs()),
	}
	status := http.StatusOK
	if dbErr != nil {
		resp["status"] = "degraded"
		resp["database"] = dbErr.Error()
		status = http.StatusServiceUnavailable
	}
	if !connected {
		resp["ollama"] = "disconnected"
	}
	s.respondJSON(w, status, resp)
}

func (s *Server) activeJobs() []*models.BatchJob {
	list, _ := s.jobs.List(models.JobProcessing, 1000)
	return list
}
