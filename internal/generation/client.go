// Package generation composes prompt building, the LLM call and response
// parsing into one retryable batch operation.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/lamim/vocabforge/internal/api"
	"github.com/lamim/vocabforge/internal/prompt"
	"github.com/lamim/vocabforge/internal/sentence"
	"github.com/lamim/vocabforge/pkg/models"
)

// LLM is the subset of the Ollama client used for generation and health checks
type LLM interface {
	Generate(ctx context.Context, prompt string) (*api.GenerateResponse, error)
	ListModels(ctx context.Context) ([]string, error)
	CheckConnection(ctx context.Context) bool
	HasModel(ctx context.Context, name string) (bool, error)
	Model() string
	Host() string
}

// Client generates example sentences for whole batches of words
type Client struct {
	llm       LLM
	builder   *prompt.Builder
	parser    *sentence.Parser
	baseDelay time.Duration
	logger    *slog.Logger
}

// NewClient creates a generation client. baseDelay is the wait before the
// second attempt; it doubles for every attempt after that.
func NewClient(llm LLM, builder *prompt.Builder, parser *sentence.Parser, baseDelay time.Duration, logger *slog.Logger) *Client {
	return &Client{
		llm:       llm,
		builder:   builder,
		parser:    parser,
		baseDelay: baseDelay,
		logger:    logger.With("component", "generation"),
	}
}

// Model returns the model used for generation
func (c *Client) Model() string { return c.llm.Model() }

// Host returns the LLM endpoint
func (c *Client) Host() string { return c.llm.Host() }

// CheckConnection probes the LLM endpoint
func (c *Client) CheckConnection(ctx context.Context) bool {
	return c.llm.CheckConnection(ctx)
}

// ListModels lists models installed on the endpoint
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return c.llm.ListModels(ctx)
}

// HasModel reports whether the named model is installed
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	return c.llm.HasModel(ctx, name)
}

// GenerateBatch builds one prompt for all words, calls the model and parses
// the answer. Transport failures and responses without a usable sentence are
// retried up to maxRetries attempts in total; the last error is returned
// wrapping api.ErrServiceUnavailable or sentence.ErrMalformedResponse.
func (c *Client) GenerateBatch(
	ctx context.Context,
	words []models.WordInfo,
	theme models.Theme,
	sentencesPerWord int,
	maxRetries int,
) ([]models.GenerationResult, error) {
	text, err := c.builder.Build(words, theme, sentencesPerWord)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	attempts := max(1, maxRetries)
	parser := c.parser.WithMaxSentences(sentencesPerWord)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Warn("Retrying batch generation",
				"attempt", attempt+1,
				"max_attempts", attempts,
				"backoff", delay,
				"theme", theme.Key,
				"words", len(words),
				"error", lastErr)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		results, err := c.attempt(ctx, parser, text, words)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("generation failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, parser *sentence.Parser, text string, words []models.WordInfo) ([]models.GenerationResult, error) {
	resp, err := c.llm.Generate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}

	results, err := parser.Parse(resp.Response, words)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Batch parsed",
		"words", len(words),
		"accepted_words", len(results),
		"completion_tokens", resp.EvalCount)
	return results, nil
}

// backoff returns baseDelay * 2^(attempt-1) with ±10% jitter
func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
	jitter := time.Duration(float64(d) * 0.1 * (2*rand.Float64() - 1))
	return d + jitter
}

func retryable(err error) bool {
	return api.IsRetryable(err) || errors.Is(err, sentence.ErrMalformedResponse)
}
