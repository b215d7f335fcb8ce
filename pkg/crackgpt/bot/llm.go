// Package bot – llm.go implements the Ollama chat-completion client with
// per-attempt timeouts and a bounded retry loop. The router surfaces
// ErrInferenceUnavailable to the user as a single apologetic reply.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrInferenceUnavailable reports that the backend failed after the
// configured number of attempts.
var ErrInferenceUnavailable = errors.New("inference backend unavailable")

// ChatMessage is a message in the Ollama chat format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the Ollama /api/chat request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatResponse is the Ollama /api/chat response (non-streaming).
type chatResponse struct {
	Model   string      `json:"model"`
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`

	// Usage stats (when done=true).
	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
}

// OllamaClient handles communication with the Ollama server.
type OllamaClient struct {
	baseURL     string
	model       string
	timeout     time.Duration
	maxAttempts int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewOllamaClient creates a client from config.
func NewOllamaClient(cfg OllamaConfig, logger *slog.Logger) *OllamaClient {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	return &OllamaClient{
		baseURL:     baseURL,
		model:       cfg.Model,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		// Per-attempt deadlines come from the context; no client timeout.
		httpClient: &http.Client{},
		logger:     logger.With("component", "llm"),
	}
}

// Complete sends the transcript to the model and returns the generated
// text. Each attempt gets its own timeout; timeouts and transient failures
// are retried with a short linear backoff. After the attempts are exhausted
// the error wraps ErrInferenceUnavailable.
func (c *OllamaClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := c.chat(attemptCtx, messages)
		cancel()

		if err == nil && text != "" {
			return text, nil
		}
		if err == nil {
			err = fmt.Errorf("empty response from model")
		}
		lastErr = err

		c.logger.Warn("chat completion attempt failed",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"error", err,
		)

		// Stop retrying once the caller is gone.
		if ctx.Err() != nil {
			break
		}

		if attempt < c.maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
			}
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrInferenceUnavailable, c.maxAttempts, lastErr)
}

// chat performs one /api/chat call.
func (c *OllamaClient) chat(ctx context.Context, messages []ChatMessage) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	content := strings.TrimSpace(chatResp.Message.Content)

	c.logger.Debug("chat completion done",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_eval", chatResp.PromptEvalCount,
		"eval", chatResp.EvalCount,
	)

	return content, nil
}

// Ping checks whether the Ollama server is reachable. Used for a log-only
// startup check, never fatal.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned %d", resp.StatusCode)
	}

	return nil
}
