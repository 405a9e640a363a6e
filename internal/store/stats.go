package store

import (
	"context"
	"fmt"
	"math"

	"github.com/Masterminds/squirrel"
	"github.com/lamim/vocabforge/pkg/models"
)

// ThemeCount summarizes stored sentences for one theme
type ThemeCount struct {
	Words     int `json:"words_generated"`
	Sentences int `json:"sentences_generated"`
}

// Stats is the corpus coverage summary
type Stats struct {
	TotalWords     int                   `json:"total_words"`
	WordsGenerated int                   `json:"words_generated"`
	WordsPending   int                   `json:"words_pending"`
	TotalSentences int                   `json:"total_sentences"`
	Progress       float64               `json:"generation_progress"`
	ByPOS          map[models.POS]int    `json:"by_pos"`
	ByTheme        map[string]ThemeCount `json:"by_theme"`
	Theme          string                `json:"current_theme,omitempty"`
}

func (s *Store) count(ctx context.Context, q squirrel.SelectBuilder) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

// Stats reports coverage overall, or for theme when set
func (s *Store) Stats(ctx context.Context, theme string) (*Stats, error) {
	st := &Stats{
		ByPOS:   make(map[models.POS]int),
		ByTheme: make(map[string]ThemeCount),
		Theme:   theme,
	}

	var err error
	if st.TotalWords, err = s.count(ctx, s.sb.Select("COUNT(*)").From("words")); err != nil {
		return nil, err
	}
	if st.WordsGenerated, err = s.count(ctx, s.sb.Select("COUNT(*)").From("words").Where(hasSentences(theme))); err != nil {
		return nil, err
	}

	sentences := s.sb.Select("COUNT(*)").From("sentences")
	if theme != "" {
		sentences = sentences.Where(squirrel.Eq{"theme": theme})
	}
	if st.TotalSentences, err = s.count(ctx, sentences); err != nil {
		return nil, err
	}

	if err := s.posCounts(ctx, st.ByPOS); err != nil {
		return nil, err
	}
	if err := s.themeCounts(ctx, st.ByTheme); err != nil {
		return nil, err
	}

	st.WordsPending = st.TotalWords - st.WordsGenerated
	if st.TotalWords > 0 {
		st.Progress = math.Round(float64(st.WordsGenerated)/float64(st.TotalWords)*10000) / 100
	}
	return st, nil
}

func (s *Store) posCounts(ctx context.Context, out map[models.POS]int) error {
	query, args, err := s.sb.Select("pos", "COUNT(*)").From("words").GroupBy("pos").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to count by pos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pos string
			n   int
		)
		if err := rows.Scan(&pos, &n); err != nil {
			return fmt.Errorf("failed to scan pos count: %w", err)
		}
		out[models.POS(pos)] = n
	}
	return rows.Err()
}

func (s *Store) themeCounts(ctx context.Context, out map[string]ThemeCount) error {
	query, args, err := s.sb.Select("theme", "COUNT(DISTINCT word_id)", "COUNT(*)").
		From("sentences").GroupBy("theme").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to count by theme: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			theme string
			tc    ThemeCount
		)
		if err := rows.Scan(&theme, &tc.Words, &tc.Sentences); err != nil {
			return fmt.Errorf("failed to scan theme count: %w", err)
		}
		out[theme] = tc
	}
	return rows.Err()
}
