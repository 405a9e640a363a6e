package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lamim/vocabforge/pkg/models"
)

const (
	filePrefix = "checkpoint_"
	fileSuffix = ".json"
)

var themeKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Manager stores one checkpoint file per theme in a directory
type Manager struct {
	dir    string
	mu     sync.Mutex // serializes disk writes
	logger *slog.Logger
}

// NewManager creates a new checkpoint manager rooted at dir
func NewManager(dir string, logger *slog.Logger) *Manager {
	return &Manager{
		dir:    dir,
		logger: logger.With("component", "checkpoint"),
	}
}

// Dir returns the checkpoint directory
func (m *Manager) Dir() string { return m.dir }

// Path returns the checkpoint file path for a theme
func (m *Manager) Path(theme string) (string, error) {
	if !themeKeyRegex.MatchString(theme) {
		return "", fmt.Errorf("invalid theme key for checkpoint: %q", theme)
	}
	return filepath.Join(m.dir, filePrefix+theme+fileSuffix), nil
}

// Save writes the checkpoint atomically (temp file + rename)
func (m *Manager) Save(cp *models.Checkpoint) error {
	path, err := m.Path(cp.Theme)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.LastSavedAt = now

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint saved",
		"theme", cp.Theme,
		"batch", cp.LastBatchIndex,
		"last_word_id", cp.LastProcessedWordID)
	return nil
}

// Load returns the checkpoint for theme, or nil when there is none.
// Unreadable or theme-mismatched files count as no checkpoint.
func (m *Manager) Load(theme string) (*models.Checkpoint, error) {
	path, err := m.Path(theme)
	if err != nil {
		return nil, err
	}

	cp, err := readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		m.logger.Warn("Ignoring unreadable checkpoint", "path", path, "error", err)
		return nil, nil
	}

	if err := ValidateCheckpoint(cp, theme); err != nil {
		m.logger.Warn("Ignoring checkpoint", "path", path, "error", err)
		return nil, nil
	}

	return cp, nil
}

// Delete removes the checkpoint for theme; a missing file is not an error
func (m *Manager) Delete(theme string) error {
	path, err := m.Path(theme)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint deleted", "theme", theme)
	return nil
}

// List returns every readable checkpoint in the directory sorted by theme
func (m *Manager) List() ([]*models.Checkpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var out []*models.Checkpoint
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		cp, err := readFile(filepath.Join(m.dir, name))
		if err != nil {
			m.logger.Warn("Skipping unreadable checkpoint", "file", name, "error", err)
			continue
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Theme < out[j].Theme })
	return out, nil
}

func readFile(path string) (*models.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}
