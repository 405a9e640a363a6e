package api

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options GenerateOptions `json:"options"`
}

// GenerateOptions are the sampling options understood by Ollama
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

// GenerateResponse is a non-streaming /api/generate reply
type GenerateResponse struct {
	Model              string `json:"model"`
	CreatedAt          string `json:"created_at"`
	Response           string `json:"response"`
	Done               bool   `json:"done"`
	DoneReason         string `json:"done_reason,omitempty"`
	TotalDuration      int64  `json:"total_duration,omitempty"`
	PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
	EvalCount          int    `json:"eval_count,omitempty"`
	EvalDurationNanos  int64  `json:"eval_duration,omitempty"`
	LoadDurationNanos  int64  `json:"load_duration,omitempty"`
	PromptEvalDuration int64  `json:"prompt_eval_duration,omitempty"`
}

// TagsResponse is the reply of GET /api/tags
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one locally installed model
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// ErrorResponse is Ollama's error body
type ErrorResponse struct {
	Error string `json:"error"`
}
