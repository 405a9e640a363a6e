package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lamim/vocabforge/pkg/models"
)

// DefaultLogLimit is used when ListGenerationLogs receives a non-positive limit
const DefaultLogLimit = 100

// AppendGenerationLog records one batch outcome and returns its id
func (s *Store) AppendGenerationLog(ctx context.Context, entry models.GenerationLog) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	query, args, err := s.sb.Insert("generation_log").
		Columns("batch_number", "words_processed", "theme", "model", "status",
			"duration_seconds", "start_word_id", "end_word_id", "errors", "created_at").
		Values(entry.BatchNumber, entry.WordsProcessed, entry.Theme, entry.Model, string(entry.Status),
			entry.DurationSeconds, entry.StartWordID, entry.EndWordID, entry.Errors, formatTime(entry.CreatedAt)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to append generation log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read log id: %w", err)
	}
	return id, nil
}

// ListGenerationLogs returns the newest log entries first
func (s *Store) ListGenerationLogs(ctx context.Context, limit int, theme string) ([]models.GenerationLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	q := s.sb.Select("id", "batch_number", "words_processed", "theme", "model", "status",
		"duration_seconds", "start_word_id", "end_word_id", "errors", "created_at").
		From("generation_log").
		OrderBy("id DESC").
		Limit(uint64(limit))
	if theme != "" {
		q = q.Where(squirrel.Eq{"theme": theme})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation logs: %w", err)
	}
	defer rows.Close()

	logs := []models.GenerationLog{}
	for rows.Next() {
		var (
			l       models.GenerationLog
			status  string
			created string
		)
		if err := rows.Scan(&l.ID, &l.BatchNumber, &l.WordsProcessed, &l.Theme, &l.Model, &status,
			&l.DurationSeconds, &l.StartWordID, &l.EndWordID, &l.Errors, &created); err != nil {
			return nil, fmt.Errorf("failed to scan generation log: %w", err)
		}
		l.Status = models.BatchStatus(status)
		l.CreatedAt = parseTime(created)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generation logs: %w", err)
	}
	return logs, nil
}
