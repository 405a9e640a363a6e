package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lamim/vocabforge/pkg/models"
)

// Sentence is one stored example sentence
type Sentence struct {
	ID        int64     `json:"id"`
	WordID    int64     `json:"word_id"`
	Theme     string    `json:"theme"`
	Text      string    `json:"sentence_text"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportRow is a word with its sentences for a single theme
type ExportRow struct {
	Rank      int
	Lemma     string
	POS       models.POS
	Sentences []string
}

// ReplaceSentences swaps the word's sentences for theme in one transaction
func (s *Store) ReplaceSentences(ctx context.Context, wordID int64, theme string, sentences []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		del, args, err := s.sb.Delete("sentences").
			Where(squirrel.Eq{"word_id": wordID, "theme": theme}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, del, args...); err != nil {
			return fmt.Errorf("failed to delete sentences for word %d: %w", wordID, err)
		}

		if len(sentences) == 0 {
			return nil
		}

		now := formatTime(time.Now())
		ins := s.sb.Insert("sentences").Columns("word_id", "theme", "sentence", "sentence_order", "created_at")
		for i, text := range sentences {
			ins = ins.Values(wordID, theme, text, i, now)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert sentences for word %d: %w", wordID, err)
		}
		return nil
	})
}

// DeleteSentences removes a word's sentences, for every theme when theme is empty.
// It returns the number of rows removed.
func (s *Store) DeleteSentences(ctx context.Context, wordID int64, theme string) (int, error) {
	where := squirrel.Eq{"word_id": wordID}
	if theme != "" {
		where["theme"] = theme
	}
	query, args, err := s.sb.Delete("sentences").Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sentences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

// SentencesForWords groups sentences by word id, ordered by sentence position
func (s *Store) SentencesForWords(ctx context.Context, wordIDs []int64, theme string) (map[int64][]Sentence, error) {
	out := make(map[int64][]Sentence, len(wordIDs))
	if len(wordIDs) == 0 {
		return out, nil
	}

	where := squirrel.Eq{"word_id": wordIDs}
	if theme != "" {
		where["theme"] = theme
	}
	query, args, err := s.sb.Select("id", "word_id", "theme", "sentence", "sentence_order", "created_at").
		From("sentences").
		Where(where).
		OrderBy("word_id ASC", "theme ASC", "sentence_order ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st      Sentence
			created string
		)
		if err := rows.Scan(&st.ID, &st.WordID, &st.Theme, &st.Text, &st.Order, &created); err != nil {
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}
		st.CreatedAt = parseTime(created)
		out[st.WordID] = append(out[st.WordID], st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sentences: %w", err)
	}
	return out, nil
}

func (s *Store) attachSentences(ctx context.Context, words []Word, theme string) error {
	if len(words) == 0 {
		return nil
	}
	ids := make([]int64, len(words))
	for i, w := range words {
		ids[i] = w.ID
	}
	byWord, err := s.SentencesForWords(ctx, ids, theme)
	if err != nil {
		return err
	}
	for i := range words {
		words[i].Sentences = byWord[words[i].ID]
	}
	return nil
}

// ExportRows returns every word with sentences for theme, in rank order
func (s *Store) ExportRows(ctx context.Context, theme string) ([]ExportRow, error) {
	q := s.sb.Select(wordColumns...).From("words").
		Where(hasSentences(theme)).
		OrderBy("words.rank ASC", "words.id ASC")

	words, err := s.queryWords(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.attachSentences(ctx, words, theme); err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(words))
	for _, w := range words {
		row := ExportRow{Rank: w.Rank, Lemma: w.Lemma, POS: w.POS}
		for _, st := range w.Sentences {
			row.Sentences = append(row.Sentences, st.Text)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
