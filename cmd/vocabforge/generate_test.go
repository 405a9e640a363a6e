package main

import (
	"testing"

	"github.com/lamim/vocabforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFlags_Apply(t *testing.T) {
	cfg := config.Default()
	f := generateFlags{model: "llama3.1:8b", retries: 5, batchSize: 7, rankMin: 100, rankMax: 200, sentences: 2}
	f.apply(cfg)

	assert.Equal(t, "llama3.1:8b", cfg.Ollama.Model)
	assert.Equal(t, 5, cfg.Generation.MaxRetries)
	assert.Equal(t, 7, cfg.Generation.BatchSize)
	assert.Equal(t, 100, cfg.Generation.RankMin)
	assert.Equal(t, 200, cfg.Generation.RankMax)
	assert.Equal(t, 2, cfg.Generation.SentencesPerWord)
	require.NoError(t, cfg.Validate())
}

func TestGenerateFlags_ApplyKeepsConfigDefaults(t *testing.T) {
	cfg := config.Default()
	want := *config.Default()
	generateFlags{}.apply(cfg)

	assert.Equal(t, want.Ollama.Model, cfg.Ollama.Model)
	assert.Equal(t, want.Generation, cfg.Generation)
}

func TestGenerateFlags_ApplyRejectedByValidation(t *testing.T) {
	cfg := config.Default()
	generateFlags{retries: config.MaxRetries + 1}.apply(cfg)
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	generateFlags{rankMin: 500, rankMax: 10}.apply(cfg)
	assert.Error(t, cfg.Validate())
}

func TestGenerateFlags_Selection(t *testing.T) {
	cfg := config.Default()
	f := generateFlags{limit: 25, regenerate: true}
	sel := f.selection("devops", cfg.Generation)

	assert.Equal(t, "devops", sel.Theme)
	assert.Equal(t, 25, sel.Limit)
	assert.True(t, sel.Regenerate)
	assert.Equal(t, cfg.Generation.RankMin, sel.RankMin)
	assert.Equal(t, cfg.Generation.RankMax, sel.RankMax)
}
