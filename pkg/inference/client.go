// Package inference wraps the outbound call to the external text-analysis
// service. It owns prompt construction, response envelope stripping, JSON
// parsing, and timeout/error translation; it persists nothing itself.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cterrors "github.com/openredress/casetriage/pkg/errors"
	"github.com/openredress/casetriage/pkg/logging"
)

// Config holds the inference service connection settings. All values come
// from deployment configuration, none are business logic.
type Config struct {
	// Endpoint is the chat-completions URL of the inference service.
	Endpoint string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model is the model identifier requested from the service.
	Model string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens bounds the completion length.
	MaxTokens int

	// Timeout bounds each outbound call when the caller's context carries no
	// deadline of its own.
	Timeout time.Duration
}

// DefaultConfig returns a Config with conservative defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:    "http://localhost:8000/v1/chat/completions",
		Model:       "triage-classifier",
		Temperature: 0.2,
		MaxTokens:   1024,
		Timeout:     30 * time.Second,
	}
}

// Client is an HTTP client for an OpenAI-compatible completion endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a new inference client.
func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger.With(logging.F("component", "inference_client")),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// completionRequest is the outbound request body.
type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionResponse is the subset of the response body the client reads.
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt and returns the raw completion text. Network
// errors, timeouts, and non-2xx responses are all translated into
// ErrClassificationUnavailable so callers can fall back deterministically.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	// Apply the configured timeout only if the parent context has no deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []completionMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("inference call failed", logging.Err(err))
		return "", fmt.Errorf("%w: %v", cterrors.ErrClassificationUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", cterrors.ErrClassificationUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("inference service returned error status",
			logging.F("status", resp.StatusCode),
		)
		return "", fmt.Errorf("%w: status %d", cterrors.ErrClassificationUnavailable, resp.StatusCode)
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response envelope: %v", cterrors.ErrClassificationUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", cterrors.ErrClassificationUnavailable)
	}

	return parsed.Choices[0].Message.Content, nil
}
