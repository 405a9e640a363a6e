package writer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lamim/vocabforge/internal/store"
	"github.com/lamim/vocabforge/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSource struct {
	rows []store.ExportRow
	err  error
}

func (f *fakeSource) ExportRows(ctx context.Context, theme string) ([]store.ExportRow, error) {
	return f.rows, f.err
}

var sampleRows = []store.ExportRow{
	{Rank: 1, Lemma: "the", POS: models.POSArticle, Sentences: []string{"The build passed.", "The release is ready."}},
	{Rank: 3, Lemma: "above", POS: models.POSPreposition, Sentences: []string{"Coverage is above the target, \"finally\"."}},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jsonl", FormatJSONL, false},
		{" CSV ", FormatCSV, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestExport_JSONL(t *testing.T) {
	var buf bytes.Buffer
	n, err := Export(context.Background(), &fakeSource{rows: sampleRows}, "qa_manager", FormatJSONL, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Export() = %d records, want 2", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var rec Record
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if rec.Lemma != "above" || rec.POSName != "Preposition" || rec.Theme != "qa_manager" || len(rec.Sentences) != 1 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestExport_CSV(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Export(context.Background(), &fakeSource{rows: sampleRows}, "qa_manager", FormatCSV, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(records))
	}
	if strings.Join(records[0], ",") != "rank,lemma,pos,sentence_1,sentence_2" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][3] != "Coverage is above the target, \"finally\"." || records[2][4] != "" {
		t.Errorf("row = %v", records[2])
	}
}

func TestExport_SourceError(t *testing.T) {
	_, err := Export(context.Background(), &fakeSource{err: errors.New("db closed")}, "qa_manager", FormatJSONL, &bytes.Buffer{})
	if err == nil {
		t.Error("expected error")
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "qa.jsonl")

	n, err := ExportFile(context.Background(), &fakeSource{rows: sampleRows}, "qa_manager", FormatJSONL, path, testLogger())
	if err != nil {
		t.Fatalf("ExportFile() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ExportFile() = %d", n)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be removed")
	}

	_, err = ExportFile(context.Background(), &fakeSource{err: errors.New("boom")}, "qa_manager", FormatCSV, filepath.Join(dir, "bad.csv"), testLogger())
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.csv")); !os.IsNotExist(err) {
		t.Error("failed export should not leave a file")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetupLogger_WritesDebugToFile(t *testing.T) {
	dir := t.TempDir()
	logger, f, err := SetupLogger(dir, slog.LevelError)
	if err != nil {
		t.Fatalf("SetupLogger() error = %v", err)
	}

	logger.With("component", "test").Debug("file only", "batch", 1)
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "file only" || entry["component"] != "test" {
		t.Errorf("unexpected log entry %v", entry)
	}
}

func TestSetupLogger_NoDir(t *testing.T) {
	logger, f, err := SetupLogger("", slog.LevelInfo)
	if err != nil || logger == nil || f != nil {
		t.Errorf("SetupLogger(\"\") = %v, %v, %v", logger, f, err)
	}
}
