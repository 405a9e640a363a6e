// Package writer exports study material and sets up process logging.
package writer

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/pkg/models"
)

// Format is an export file format
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// CSVSentenceColumns is the number of sentence columns in CSV exports
const CSVSentenceColumns = 2

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSONL, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want jsonl or csv)", s)
	}
}

// Record is one exported word
type Record struct {
	Rank      int        `json:"rank"`
	Lemma     string     `json:"lemma"`
	POS       models.POS `json:"pos"`
	POSName   string     `json:"pos_name"`
	Theme     string     `json:"theme"`
	Sentences []string   `json:"sentences"`
}

// RecordWriter encodes records to an underlying stream
type RecordWriter interface {
	Write(rec Record) error
	// Flush writes any buffered data
	Flush() error
}

// RowSource supplies the words to export
type RowSource interface {
	ExportRows(ctx context.Context, theme string) ([]store.ExportRow, error)
}

type jsonlWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter writes one JSON object per line
func NewJSONLWriter(w io.Writer) RecordWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &jsonlWriter{w: bw, enc: enc}
}

func (j *jsonlWriter) Write(rec Record) error {
	if rec.Sentences == nil {
		rec.Sentences = []string{}
	}
	if err := j.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

func (j *jsonlWriter) Flush() error {
	return j.w.Flush()
}

type csvWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter writes rank, lemma, pos and the first two sentences per row
func NewCSVWriter(w io.Writer) RecordWriter {
	return &csvWriter{w: csv.NewWriter(w)}
}

func (c *csvWriter) Write(rec Record) error {
	if !c.wroteHeader {
		header := []string{"rank", "lemma", "pos"}
		for i := 1; i <= CSVSentenceColumns; i++ {
			header = append(header, "sentence_"+strconv.Itoa(i))
		}
		if err := c.w.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		c.wroteHeader = true
	}

	row := []string{strconv.Itoa(rec.Rank), rec.Lemma, string(rec.POS)}
	for i := 0; i < CSVSentenceColumns; i++ {
		var s string
		if i < len(rec.Sentences) {
			s = rec.Sentences[i]
		}
		row = append(row, s)
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

func (c *csvWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// NewRecordWriter returns the writer for format
func NewRecordWriter(format Format, w io.Writer) (RecordWriter, error) {
	switch format {
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Export writes every word with sentences for theme, in rank order, and
// returns the number of records written
func Export(ctx context.Context, src RowSource, theme string, format Format, out io.Writer) (int, error) {
	rw, err := NewRecordWriter(format, out)
	if err != nil {
		return 0, err
	}

	rows, err := src.ExportRows(ctx, theme)
	if err != nil {
		return 0, fmt.Errorf("failed to load export rows: %w", err)
	}

	for _, r := range rows {
		rec := Record{
			Rank:      r.Rank,
			Lemma:     r.Lemma,
			POS:       r.POS,
			POSName:   r.POS.Name(),
			Theme:     theme,
			Sentences: r.Sentences,
		}
		if err := rw.Write(rec); err != nil {
			return 0, err
		}
	}

	if err := rw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(rows), nil
}

// ExportFile writes the export to path atomically via a temp file and rename
func ExportFile(ctx context.Context, src RowSource, theme string, format Format, path string, logger *slog.Logger) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}

	n, err := Export(ctx, src, theme, format, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close export file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return 0, err
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return 0, fmt.Errorf("failed to rename export file: %w", err)
	}

	logger.Info("Exported study material", "theme", theme, "format", format, "path", path, "words", n)
	return n, nil
}
