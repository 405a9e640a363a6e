// Package httpapi exposes the vocabulary store and generation jobs over a
// JSON REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/lamim/vocabforge/internal/config"
	"github.com/lamim/vocabforge/internal/jobs"
	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/internal/workflow"
	"github.com/lamim/vocabforge/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WordStore is the persistence surface used by the handlers
type WordStore interface {
	ListWords(ctx context.Context, f store.WordFilter) (*store.WordPage, error)
	GetWord(ctx context.Context, id int64, theme string) (*store.Word, error)
	GetWordsByLemma(ctx context.Context, lemma string, pos models.POS, theme string) ([]store.Word, error)
	GetWordsByRank(ctx context.Context, rank int, theme string) ([]store.Word, error)
	Stats(ctx context.Context, theme string) (*store.Stats, error)
	SelectForGeneration(ctx context.Context, sel store.Selection) ([]models.WordInfo, error)
	ReplaceSentences(ctx context.Context, wordID int64, theme string, sentences []string) error
	DeleteSentences(ctx context.Context, wordID int64, theme string) (int, error)
	ListGenerationLogs(ctx context.Context, limit int, theme string) ([]models.GenerationLog, error)
	Ping(ctx context.Context) error
}

// Generator is the LLM-backed sentence generator
type Generator interface {
	GenerateBatch(ctx context.Context, words []models.WordInfo, theme models.Theme, sentencesPerWord int, maxRetries int) ([]models.GenerationResult, error)
	CheckConnection(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	Model() string
	Host() string
}

// JobSubmitter starts background generation jobs
type JobSubmitter interface {
	Submit(words []models.WordInfo, model string, opts workflow.Options) (*models.BatchJob, error)
}

// Server holds the handler dependencies
type Server struct {
	cfg      *config.Config
	store    WordStore
	gen      Generator
	jobs     *jobs.Store
	runner   JobSubmitter
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer wires the API handlers
func NewServer(cfg *config.Config, st WordStore, gen Generator, jobStore *jobs.Store, runner JobSubmitter, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		gen:      gen,
		jobs:     jobStore,
		runner:   runner,
		validate: validator.New(),
		logger:   logger.With("component", "httpapi"),
	}
}

// Router builds the chi router with all routes mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(s.cfg.Server.CORSOrigins))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/words", func(r chi.Router) {
			r.Get("/", s.handleListWords)
			r.Get("/stats", s.handleStats)
			r.Get("/pos-types", s.handlePOSTypes)
			r.Get("/themes", s.handleThemes)
			r.Get("/by-lemma/{lemma}", s.handleWordsByLemma)
			r.Get("/rank/{rank}", s.handleWordsByRank)
			r.Get("/{id}", s.handleGetWord)
		})
		r.Route("/generate", func(r chi.Router) {
			r.Post("/batch", s.handleStartBatch)
			r.Get("/status/{jobID}", s.handleJobStatus)
			r.Get("/jobs", s.handleListJobs)
			r.Post("/single", s.handleGenerateSingle)
			r.Delete("/sentences/{wordID}", s.handleDeleteSentences)
			r.Get("/logs", s.handleLogs)
			r.Get("/ollama/status", s.handleOllamaStatus)
		})
	})

	return r
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		"status_code", status,
		"path", r.URL.Path,
		"method", r.Method,
		"request_id", chimiddleware.GetReqID(r.Context()),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Log(r.Context(), level, message, attrs...)
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// respondStoreError maps store.ErrNotFound to 404 and everything else to 500
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, notFound string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, r, http.StatusNotFound, notFound, nil)
		return
	}
	s.respondError(w, r, http.StatusInternalServerError, "internal server error", err)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// validationMessage flattens validator errors into a single readable line
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "gte", "min":
			parts = append(parts, fe.Field()+" must be >= "+fe.Param())
		case "lte", "max":
			parts = append(parts, fe.Field()+" must be <= "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New(name + " must be a boolean")
	}
	return &v, nil
}

func (s *Server) knownTheme(key string) bool {
	_, ok := s.cfg.Theme(key)
	return ok
}

func (s *Server) invalidTheme(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, http.StatusBadRequest,
		"invalid theme, available: "+strings.Join(s.cfg.ThemeKeys(), ", "), nil)
}

// cors allows the configured origins; "*" allows any origin
func cors(origins []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || slices.Contains(origins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Add("Vary", "Origin")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
