package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lamim/vocabforge/internal/prompt"
	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/pkg/models"
)

// Corpus rank bounds for rank lookups
const (
	minRank = 1
	maxRank = 5000
)

type wordResponse struct {
	store.Word
	Sentences       []store.Sentence `json:"sentences"`
	POSName         string           `json:"pos_name"`
	POSDescription  string           `json:"pos_description,omitempty"`
	ComplexityLevel string           `json:"complexity_level,omitempty"`
}

func newWordResponse(w store.Word, detailed bool) wordResponse {
	resp := wordResponse{Word: w, Sentences: w.Sentences, POSName: w.POS.Name()}
	if resp.Sentences == nil {
		resp.Sentences = []store.Sentence{}
	}
	if detailed {
		if info, ok := w.POS.Info(); ok {
			resp.POSDescription = info.Description
		}
		resp.ComplexityLevel, _ = prompt.Complexity(w.Rank)
	}
	return resp
}

func wordResponses(words []store.Word) []wordResponse {
	out := make([]wordResponse, len(words))
	for i, w := range words {
		out[i] = newWordResponse(w, false)
	}
	return out
}

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		s.respondError(w, r, http.StatusBadRequest, "page must be a positive integer", err)
		return
	}
	perPage, err := queryInt(r, "per_page", 50)
	if err != nil || perPage < 1 || perPage > store.MaxPerPage {
		s.respondError(w, r, http.StatusBadRequest, "per_page must be between 1 and 10000", err)
		return
	}
	rankMin, err := queryInt(r, "rank_min", 1)
	if err != nil || rankMin < 1 {
		s.respondError(w, r, http.StatusBadRequest, "rank_min must be a positive integer", err)
		return
	}
	rankMax, err := queryInt(r, "rank_max", 5050)
	if err != nil || rankMax < 1 {
		s.respondError(w, r, http.StatusBadRequest, "rank_max must be a positive integer", err)
		return
	}
	hasSentences, err := queryBool(r, "has_sentences")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var pos models.POS
	if raw := q.Get("pos"); raw != "" {
		pos, err = models.ParsePOS(raw)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}

	sortBy := q.Get("sort_by")
	switch sortBy {
	case "", store.SortRank, store.SortAlpha, store.SortAlphaDesc:
	default:
		s.respondError(w, r, http.StatusBadRequest, "sort_by must be one of rank, alpha, alpha_desc", nil)
		return
	}

	filter := store.WordFilter{
		Page:         page,
		PerPage:      perPage,
		Search:       q.Get("search"),
		POS:          pos,
		RankMin:      rankMin,
		RankMax:      rankMax,
		Theme:        q.Get("theme"),
		HasSentences: hasSentences,
		SortBy:       sortBy,
	}

	result, err := s.store.ListWords(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to list words", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"words": wordResponses(result.Words),
		"pagination": map[string]any{
			"page":        result.Page,
			"per_page":    result.PerPage,
			"total":       result.Total,
			"total_pages": result.TotalPages,
			"has_next":    result.HasNext,
			"has_prev":    result.HasPrev,
		},
		"filters": map[string]any{
			"search":        filter.Search,
			"pos":           filter.POS,
			"rank_min":      filter.RankMin,
			"rank_max":      filter.RankMax,
			"theme":         filter.Theme,
			"has_sentences": filter.HasSentences,
		},
	})
}

type posStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

type themeStat struct {
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	Words     int    `json:"words_generated"`
	Sentences int    `json:"sentences_generated"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	theme := r.URL.Query().Get("theme")
	st, err := s.store.Stats(r.Context(), theme)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to compute stats", err)
		return
	}

	byPOS := make(map[models.POS]posStat, len(st.ByPOS))
	for code, n := range st.ByPOS {
		info, _ := code.Info()
		byPOS[code] = posStat{Name: code.Name(), Count: n, Color: info.Color}
	}

	byTheme := make(map[string]themeStat, len(st.ByTheme))
	for key, tc := range st.ByTheme {
		ts := themeStat{Name: key, Emoji: "📝", Words: tc.Words, Sentences: tc.Sentences}
		if t, ok := s.cfg.Theme(key); ok {
			ts.Name = t.DisplayName
			if t.Emoji != "" {
				ts.Emoji = t.Emoji
			}
		}
		byTheme[key] = ts
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"total_words":         st.TotalWords,
		"words_generated":     st.WordsGenerated,
		"words_pending":       st.WordsPending,
		"total_sentences":     st.TotalSentences,
		"generation_progress": st.Progress,
		"by_pos":              byPOS,
		"by_theme":            byTheme,
		"current_theme":       theme,
	})
}

func (s *Server) handlePOSTypes(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"pos_types": models.AllPOS()})
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"themes": s.cfg.AllThemes()})
}

func (s *Server) handleGetWord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		s.respondError(w, r, http.StatusBadRequest, "word id must be a positive integer", nil)
		return
	}

	word, err := s.store.GetWord(r.Context(), id, r.URL.Query().Get("theme"))
	if err != nil {
		s.respondStoreError(w, r, "word with id "+strconv.FormatInt(id, 10)+" not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, newWordResponse(*word, true))
}

func (s *Server) handleWordsByLemma(w http.ResponseWriter, r *http.Request) {
	lemma := chi.URLParam(r, "lemma")

	var pos models.POS
	if raw := r.URL.Query().Get("pos"); raw != "" {
		p, err := models.ParsePOS(raw)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		pos = p
	}

	words, err := s.store.GetWordsByLemma(r.Context(), lemma, pos, r.URL.Query().Get("theme"))
	if err != nil {
		s.respondStoreError(w, r, "word '"+lemma+"' not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"words": wordResponses(words), "count": len(words)})
}

func (s *Server) handleWordsByRank(w http.ResponseWriter, r *http.Request) {
	rank, err := strconv.Atoi(chi.URLParam(r, "rank"))
	if err != nil || rank < minRank || rank > maxRank {
		s.respondError(w, r, http.StatusBadRequest, "rank must be between 1 and 5000", nil)
		return
	}

	words, err := s.store.GetWordsByRank(r.Context(), rank, r.URL.Query().Get("theme"))
	if err != nil {
		s.respondStoreError(w, r, "no word found at rank "+strconv.Itoa(rank), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"words": wordResponses(words), "rank": rank, "count": len(words)})
}
