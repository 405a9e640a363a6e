// Package corpus loads COCA-style word frequency CSV files into the word store.
package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// Columns is the number of fields in a COCA frequency row:
// rank, lemma, PoS, freq, perMil, %caps, %allC, range, disp, then eight
// genre counts and eight genre per-million values.
const Columns = 25

// DefaultBatchSize is the number of rows inserted per transaction
const DefaultBatchSize = 500

// WordSink receives parsed words
type WordSink interface {
	InsertWords(ctx context.Context, words []store.Word) (int, error)
}

// Stats summarizes an import
type Stats struct {
	Rows     int `json:"total_rows"`
	Inserted int `json:"inserted"`
	Existing int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

// Importer parses CSV rows and writes them to a sink in batches
type Importer struct {
	sink      WordSink
	batchSize int
	logger    *slog.Logger
}

// NewImporter creates an importer. batchSize <= 0 uses DefaultBatchSize.
func NewImporter(sink WordSink, batchSize int, logger *slog.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{
		sink:      sink,
		batchSize: batchSize,
		logger:    logger.With("component", "corpus"),
	}
}

// ImportFile opens path and imports it
func (im *Importer) ImportFile(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads a CSV with a header row. Short rows and rows with an unknown
// part-of-speech code are skipped; (lemma, pos) pairs already stored are left
// unchanged.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return &Stats{}, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	stats := &Stats{}
	batch := make([]store.Word, 0, im.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.sink.InsertWords(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to insert words: %w", err)
		}
		stats.Inserted += n
		stats.Existing += len(batch) - n
		batch = batch[:0]
		im.logger.Debug("Inserted corpus batch", "inserted", stats.Inserted, "rows", stats.Rows)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return stats, fmt.Errorf("failed to read corpus: %w", err)
			}
			im.logger.Warn("Skipping unreadable row", "line", perr.Line, "error", err)
			stats.Rows++
			stats.Invalid++
			continue
		}
		stats.Rows++

		w, err := ParseRow(row)
		if err != nil {
			im.logger.Warn("Skipping row", "row", stats.Rows, "error", err)
			stats.Invalid++
			continue
		}
		batch = append(batch, w)

		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	im.logger.Info("Corpus import complete",
		"rows", stats.Rows,
		"inserted", stats.Inserted,
		"skipped", stats.Existing,
		"invalid", stats.Invalid)
	return stats, nil
}

// ParseRow converts one CSV record into a word. Numeric fields that fail to
// parse become zero, matching the source data's blank cells.
func ParseRow(row []string) (store.Word, error) {
	if len(row) < Columns {
		return store.Word{}, fmt.Errorf("expected %d columns, got %d", Columns, len(row))
	}

	lemma := norm.NFC.String(strings.TrimSpace(row[1]))
	if lemma == "" {
		return store.Word{}, errors.New("empty lemma")
	}

	pos, err := models.ParsePOS(row[2])
	if err != nil {
		return store.Word{}, err
	}

	rank := parseInt(row[0])
	if rank <= 0 {
		return store.Word{}, fmt.Errorf("invalid rank %q for %q", row[0], lemma)
	}

	return store.Word{
		Rank:       rank,
		Lemma:      lemma,
		POS:        pos,
		Freq:       int64(parseFloat(row[3])),
		PerMil:     parseFloat(row[4]),
		Range:      parseInt(row[7]),
		Dispersion: parseFloat(row[8]),
	}, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	return int(parseFloat(s))
}
