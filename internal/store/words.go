package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lamim/vocabforge/pkg/models"
)

// MaxPerPage caps ListWords page sizes
const MaxPerPage = 10000

// Word is a corpus entry with its frequency statistics
type Word struct {
	ID         int64      `json:"id"`
	Rank       int        `json:"rank"`
	Lemma      string     `json:"lemma"`
	POS        models.POS `json:"pos"`
	Freq       int64      `json:"freq"`
	PerMil     float64    `json:"per_mil"`
	Range      int        `json:"range"`
	Dispersion float64    `json:"dispersion"`
	CreatedAt  time.Time  `json:"created_at"`
	Sentences  []Sentence `json:"sentences,omitempty"`
}

// Info returns the pipeline view of the word
func (w Word) Info() models.WordInfo {
	return models.WordInfo{ID: w.ID, Lemma: w.Lemma, POS: w.POS, Rank: w.Rank}
}

// Sort orders for ListWords
const (
	SortRank      = "rank"
	SortAlpha     = "alpha"
	SortAlphaDesc = "alpha_desc"
)

// WordFilter narrows ListWords. Zero values disable the corresponding filter.
type WordFilter struct {
	Page         int
	PerPage      int
	Search       string
	POS          models.POS
	RankMin      int
	RankMax      int
	Theme        string
	HasSentences *bool
	SortBy       string
}

// WordPage is one page of ListWords output
type WordPage struct {
	Words      []Word `json:"words"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
}

// Selection describes the words a generation run should cover
type Selection struct {
	Theme      string
	RankMin    int
	RankMax    int
	Regenerate bool
	WordIDs    []int64
	Limit      int
}

var wordColumns = []string{
	"words.id", "words.rank", "words.lemma", "words.pos", "words.freq",
	"words.per_mil", "words.range_count", "words.dispersion", "words.created_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWord(r rowScanner) (Word, error) {
	var (
		w       Word
		pos     string
		created string
	)
	if err := r.Scan(&w.ID, &w.Rank, &w.Lemma, &pos, &w.Freq, &w.PerMil, &w.Range, &w.Dispersion, &created); err != nil {
		return Word{}, err
	}
	w.POS = models.POS(pos)
	w.CreatedAt = parseTime(created)
	return w, nil
}

func (s *Store) queryWords(ctx context.Context, q squirrel.SelectBuilder) ([]Word, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var words []Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate words: %w", err)
	}
	return words, nil
}

// hasSentences builds an EXISTS clause, restricted to theme when set
func hasSentences(theme string) squirrel.Sqlizer {
	if theme == "" {
		return squirrel.Expr("EXISTS (SELECT 1 FROM sentences s WHERE s.word_id = words.id)")
	}
	return squirrel.Expr("EXISTS (SELECT 1 FROM sentences s WHERE s.word_id = words.id AND s.theme = ?)", theme)
}

func lacksSentences(theme string) squirrel.Sqlizer {
	if theme == "" {
		return squirrel.Expr("NOT EXISTS (SELECT 1 FROM sentences s WHERE s.word_id = words.id)")
	}
	return squirrel.Expr("NOT EXISTS (SELECT 1 FROM sentences s WHERE s.word_id = words.id AND s.theme = ?)", theme)
}

// likeEscaper makes LIKE wildcards in user input match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListWords returns a filtered, sorted page of words with their sentences attached
func (s *Store) ListWords(ctx context.Context, f WordFilter) (*WordPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 50
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}

	where := squirrel.And{}
	if f.Search != "" {
		where = append(where, squirrel.Expr(`LOWER(words.lemma) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(f.Search))+"%"))
	}
	if f.POS != "" {
		where = append(where, squirrel.Eq{"words.pos": strings.ToLower(string(f.POS))})
	}
	if f.RankMin > 0 {
		where = append(where, squirrel.GtOrEq{"words.rank": f.RankMin})
	}
	if f.RankMax > 0 {
		where = append(where, squirrel.LtOrEq{"words.rank": f.RankMax})
	}
	if f.HasSentences != nil {
		if *f.HasSentences {
			where = append(where, hasSentences(f.Theme))
		} else {
			where = append(where, lacksSentences(f.Theme))
		}
	}

	countQuery, countArgs, err := s.sb.Select("COUNT(*)").From("words").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count words: %w", err)
	}

	q := s.sb.Select(wordColumns...).From("words").Where(where)
	switch f.SortBy {
	case SortAlpha:
		q = q.OrderBy("words.lemma ASC", "words.id ASC")
	case SortAlphaDesc:
		q = q.OrderBy("words.lemma DESC", "words.id ASC")
	default:
		q = q.OrderBy("words.rank ASC", "words.id ASC")
	}
	q = q.Offset(uint64((f.Page - 1) * f.PerPage)).Limit(uint64(f.PerPage))

	words, err := s.queryWords(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.attachSentences(ctx, words, f.Theme); err != nil {
		return nil, err
	}

	totalPages := (total + f.PerPage - 1) / f.PerPage
	return &WordPage{
		Words:      words,
		Page:       f.Page,
		PerPage:    f.PerPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    f.Page*f.PerPage < total,
		HasPrev:    f.Page > 1,
	}, nil
}

// GetWord returns the word with id and its sentences, optionally for one theme
func (s *Store) GetWord(ctx context.Context, id int64, theme string) (*Word, error) {
	query, args, err := s.sb.Select(wordColumns...).From("words").Where(squirrel.Eq{"words.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	w, err := scanWord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("word %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word %d: %w", id, err)
	}

	words := []Word{w}
	if err := s.attachSentences(ctx, words, theme); err != nil {
		return nil, err
	}
	return &words[0], nil
}

// GetWordsByLemma returns every POS entry for lemma (case-insensitive)
func (s *Store) GetWordsByLemma(ctx context.Context, lemma string, pos models.POS, theme string) ([]Word, error) {
	q := s.sb.Select(wordColumns...).From("words").
		Where(squirrel.Eq{"LOWER(words.lemma)": strings.ToLower(lemma)}).
		OrderBy("words.rank ASC", "words.id ASC")
	if pos != "" {
		q = q.Where(squirrel.Eq{"words.pos": strings.ToLower(string(pos))})
	}

	words, err := s.queryWords(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word %q: %w", lemma, ErrNotFound)
	}
	if err := s.attachSentences(ctx, words, theme); err != nil {
		return nil, err
	}
	return words, nil
}

// GetWordsByRank returns the words sharing a frequency rank
func (s *Store) GetWordsByRank(ctx context.Context, rank int, theme string) ([]Word, error) {
	q := s.sb.Select(wordColumns...).From("words").
		Where(squirrel.Eq{"words.rank": rank}).
		OrderBy("words.id ASC")

	words, err := s.queryWords(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("rank %d: %w", rank, ErrNotFound)
	}
	if err := s.attachSentences(ctx, words, theme); err != nil {
		return nil, err
	}
	return words, nil
}

// InsertWords adds corpus entries, ignoring (lemma, pos) pairs already present.
// It returns the number of rows actually inserted.
func (s *Store) InsertWords(ctx context.Context, words []Word) (int, error) {
	if len(words) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, w := range words {
			query, args, err := s.sb.Insert("words").
				Options("OR IGNORE").
				Columns("rank", "lemma", "pos", "freq", "per_mil", "range_count", "dispersion", "created_at").
				Values(w.Rank, w.Lemma, string(w.POS), w.Freq, w.PerMil, w.Range, w.Dispersion, now).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build insert: %w", err)
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to insert word %q: %w", w.Lemma, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// SelectForGeneration returns the words a run should process, ordered by rank then id.
// Without Regenerate, words that already have sentences for the theme are skipped.
func (s *Store) SelectForGeneration(ctx context.Context, sel Selection) ([]models.WordInfo, error) {
	q := s.sb.Select("words.id", "words.lemma", "words.pos", "words.rank").From("words")
	if sel.RankMin > 0 {
		q = q.Where(squirrel.GtOrEq{"words.rank": sel.RankMin})
	}
	if sel.RankMax > 0 {
		q = q.Where(squirrel.LtOrEq{"words.rank": sel.RankMax})
	}
	if len(sel.WordIDs) > 0 {
		q = q.Where(squirrel.Eq{"words.id": sel.WordIDs})
	}
	if !sel.Regenerate {
		q = q.Where(lacksSentences(sel.Theme))
	}
	q = q.OrderBy("words.rank ASC", "words.id ASC")
	if sel.Limit > 0 {
		q = q.Limit(uint64(sel.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build selection query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select words: %w", err)
	}
	defer rows.Close()

	var out []models.WordInfo
	for rows.Next() {
		var (
			w   models.WordInfo
			pos string
		)
		if err := rows.Scan(&w.ID, &w.Lemma, &pos, &w.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		w.POS = models.POS(pos)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate words: %w", err)
	}
	return out, nil
}
