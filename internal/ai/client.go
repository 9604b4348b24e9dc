package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

// ErrMissingCredential is returned by NewClient when no API key is configured.
var ErrMissingCredential = errors.New("ai api key is not configured")

// StatusError is a non-success HTTP response from the completion endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the response is a rate limit.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// AttemptObserver is notified after every attempt with its outcome label
// ("success", "transport_error", "rate_limited", "http_error").
type AttemptObserver func(outcome string)

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
	logger     *zap.Logger
	sleep      Sleeper
	observe    AttemptObserver
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithSleeper overrides how backoff waits are performed.
func WithSleeper(s Sleeper) Option {
	return func(cl *Client) { cl.sleep = s }
}

// WithAttemptObserver registers a per-attempt callback.
func WithAttemptObserver(o AttemptObserver) Option {
	return func(cl *Client) { cl.observe = o }
}

// NewClient validates configuration before any network call is made.
func NewClient(cfg config.AIConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	if cfg.APIURL == "" {
		return nil, errors.New("ai api url is not configured")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		sleep:      sleepContext,
		observe:    func(string) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt and returns the first choice, trimmed. Transport
// failures and 429 responses are retried up to MaxAttempts in total, waiting
// 2^attempt backoff units before the next attempt. Other statuses fail at once.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		body, err := c.send(ctx, payload)
		if err == nil {
			c.observe("success")
			return extractSuggestion(body)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		var statusErr *StatusError
		switch {
		case errors.As(err, &statusErr) && statusErr.Retryable():
			c.observe("rate_limited")
		case errors.As(err, &statusErr):
			c.observe("http_error")
			return "", err
		default:
			c.observe("transport_error")
		}
		lastErr = err

		if attempt == c.cfg.MaxAttempts {
			break
		}
		wait := c.cfg.BackoffUnit * time.Duration(1<<attempt)
		c.logger.Warn("completion attempt failed; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

// GetSuggestion passes an arbitrary prompt through to Complete.
func (c *Client) GetSuggestion(ctx context.Context, prompt string) (string, error) {
	return c.Complete(ctx, prompt)
}

func (c *Client) send(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	c.logger.Debug("completion response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func extractSuggestion(body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
