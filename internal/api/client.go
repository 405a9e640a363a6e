// Package api is the HTTP transport to an Ollama endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lamim/vocabforge/internal/config"
	"github.com/lamim/vocabforge/internal/metrics"
)

const (
	// maxErrorBodyBytes bounds how much of an error body is copied into messages
	maxErrorBodyBytes = 2048
	// maxPooledBody keeps oversized prompt buffers out of the pool
	maxPooledBody = 64 * 1024
)

// requestBodies reuses JSON request buffers across generate calls
var requestBodies = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Client sends generate and tags requests to Ollama. A single request per
// call; retries are the caller's decision.
type Client struct {
	httpClient      *http.Client
	rateLimiterPool *RateLimiterPool
	cfg             config.OllamaConfig
	baseURL         string
	logger          *slog.Logger
	metrics         *metrics.Collector
}

// NewClient creates a new Ollama client
func NewClient(cfg config.OllamaConfig, logger *slog.Logger, m *metrics.Collector) *Client {
	logger = logger.With("component", "ollama")
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		rateLimiterPool: NewRateLimiterPool(logger),
		cfg:             cfg,
		baseURL:         strings.TrimRight(cfg.Host, "/"),
		logger:          logger,
		metrics:         m,
	}
}

// Host returns the configured endpoint
func (c *Client) Host() string { return c.baseURL }

// Model returns the configured model name
func (c *Client) Model() string { return c.cfg.Model }

// Generate sends one non-streaming completion request and returns the raw text
func (c *Client) Generate(ctx context.Context, prompt string) (*GenerateResponse, error) {
	waitStart := time.Now()
	if err := c.rateLimiterPool.Wait(ctx, c.baseURL+":"+c.cfg.Model, c.cfg.RateLimitPerMinute); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	c.metrics.RecordRateLimiterWait(time.Since(waitStart))

	req := GenerateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: GenerateOptions{
			Temperature: c.cfg.Temperature,
			TopP:        c.cfg.TopP,
			NumPredict:  c.cfg.NumPredict,
		},
	}

	buf := requestBodies.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		if buf.Cap() <= maxPooledBody {
			requestBodies.Put(buf)
		}
	}()
	if err := json.NewEncoder(buf).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var resp GenerateResponse
	err := c.do(ctx, http.MethodPost, "/api/generate", buf, &resp)
	if err != nil {
		c.metrics.RecordLLMRequest(c.cfg.Model, time.Since(start), "transport_error")
		return nil, err
	}
	c.metrics.RecordLLMRequest(c.cfg.Model, time.Since(start), "success")

	c.logger.Debug("Generate completed",
		"model", resp.Model,
		"duration", time.Since(start),
		"prompt_tokens", resp.PromptEvalCount,
		"completion_tokens", resp.EvalCount,
		"response_length", len(resp.Response))

	return &resp, nil
}

// ListModels returns the names of locally installed models
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var tags TagsResponse
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// CheckConnection reports whether the endpoint answers the tags call
func (c *Client) CheckConnection(ctx context.Context) bool {
	if _, err := c.ListModels(ctx); err != nil {
		c.logger.Warn("Ollama connection check failed", "host", c.baseURL, "error", err)
		return false
	}
	return true
}

// HasModel reports whether name is installed. "qwen2.5" matches "qwen2.5:14b"
// and vice versa since tags are compared by their base name.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	installed, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	return ModelAvailable(installed, name), nil
}

// ModelAvailable matches a requested model against installed names
func ModelAvailable(installed []string, name string) bool {
	base := modelBase(name)
	for _, m := range installed {
		if m == name || modelBase(m) == base {
			return true
		}
	}
	return false
}

func modelBase(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &APIError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
		}
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &APIError{
			Message:    fmt.Sprintf("failed to read response: %v", err),
			StatusCode: httpResp.StatusCode,
			Retryable:  true,
		}
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		if len(msg) > maxErrorBodyBytes {
			msg = msg[:maxErrorBodyBytes]
		}
		return &APIError{
			Message:    msg,
			StatusCode: httpResp.StatusCode,
			Retryable:  isStatusCodeRetryable(httpResp.StatusCode),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{
			Message:    fmt.Sprintf("failed to parse response: %v", err),
			StatusCode: httpResp.StatusCode,
			Retryable:  true,
		}
	}
	return nil
}
