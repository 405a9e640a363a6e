package corpus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

const header = "rank,lemma,PoS,freq,perMil,%caps,%allC,range,disp,blog,web,TVM,spok,fic,mag,news,acad,blogPM,webPM,TVMPM,spokPM,ficPM,magPM,newsPM,acadPM\n"

func row(rank, lemma, pos string) string {
	return rank + "," + lemma + "," + pos + ",50074257,50480.71,0.12,0.01,20,0.99" + strings.Repeat(",100", 8) + strings.Repeat(",1.5", 8) + "\n"
}

func TestParseRow(t *testing.T) {
	fields := strings.Split(strings.TrimSpace(row("7", "  Cafe ", "N")), ",")

	w, err := ParseRow(fields)
	require.NoError(t, err)
	assert.Equal(t, 7, w.Rank)
	assert.Equal(t, "Cafe", w.Lemma)
	assert.Equal(t, models.POSNoun, w.POS)
	assert.Equal(t, int64(50074257), w.Freq)
	assert.InDelta(t, 50480.71, w.PerMil, 0.001)
	assert.Equal(t, 20, w.Range)
	assert.InDelta(t, 0.99, w.Dispersion, 0.001)
}

func TestParseRow_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
	}{
		{"short row", []string{"1", "the", "a"}},
		{"unknown pos", strings.Split(strings.TrimSpace(row("1", "the", "z")), ",")},
		{"empty lemma", strings.Split(strings.TrimSpace(row("1", " ", "a")), ",")},
		{"bad rank", strings.Split(strings.TrimSpace(row("x", "the", "a")), ",")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRow(tt.fields)
			assert.Error(t, err)
		})
	}
}

func TestParseRow_NormalizesLemma(t *testing.T) {
	decomposed := "cafe\u0301"
	fields := strings.Split(strings.TrimSpace(row("1", decomposed, "n")), ",")
	w, err := ParseRow(fields)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", w.Lemma)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "vocab.db"), testLogger())
	require.NoError(t, err)
	defer s.Close()

	csvData := header +
		row("1", "the", "a") +
		row("2", "be", "v") +
		"3,short,row\n" +
		row("4", "above", "i") +
		row("4", "above", "r") +
		row("5", "nope", "q")

	im := NewImporter(s, 2, testLogger())
	stats, err := im.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Rows)
	assert.Equal(t, 4, stats.Inserted)
	assert.Equal(t, 2, stats.Invalid)
	assert.Equal(t, 0, stats.Existing)

	// re-importing is idempotent
	stats, err = im.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 4, stats.Existing)

	words, err := s.GetWordsByLemma(ctx, "above", "", "")
	require.NoError(t, err)
	assert.Len(t, words, 2)
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "coca.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+row("1", "the", "a")), 0644))

	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "vocab.db"), testLogger())
	require.NoError(t, err)
	defer s.Close()

	stats, err := NewImporter(s, 0, testLogger()).ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	_, err = NewImporter(s, 0, testLogger()).ImportFile(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestImport_EmptyInput(t *testing.T) {
	stats, err := NewImporter(nil, 0, testLogger()).Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Rows)
}

func TestImport_SkipsMalformedCSVRow(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "vocab.db"), testLogger())
	require.NoError(t, err)
	defer s.Close()

	csvData := header + row("1", "the", "a") + row("2", `no"pe`, "n") + row("3", "test", "n")
	stats, err := NewImporter(s, 0, testLogger()).Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Invalid)
}

func TestImport_ReaderErrorStops(t *testing.T) {
	broken := io.MultiReader(
		strings.NewReader(header+row("1", "the", "a")),
		iotest.ErrReader(errors.New("input/output error")),
	)

	done := make(chan error, 1)
	go func() {
		_, err := NewImporter(nil, 0, testLogger()).Import(context.Background(), broken)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input/output error")
	case <-time.After(5 * time.Second):
		t.Fatal("Import did not return after a reader error")
	}
}
