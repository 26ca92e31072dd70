// Package provider adapts the upstream OpenAI-compatible generation API
// into one normalized result type per capability. Each call runs under a
// per-capability bounded wait so a hung upstream is cancelled and
// surfaced as ErrTimeout instead of tripping the host's own deadline.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the OpenAI API root
	DefaultBaseURL = "https://api.openai.com/v1"

	// StoryModel is the chat model used for story text
	StoryModel = "gpt-4.1-mini"
	// ImageModel is the image generation model
	ImageModel = "gpt-image-1"
	// SpeechModel is the text-to-speech model
	SpeechModel = "gpt-4o-mini-tts"

	// DefaultVoice is used when the caller picks no narration voice
	DefaultVoice = "alloy"
	// DefaultImageSize is the cover illustration size
	DefaultImageSize = "1024x1024"

	// StoryTemperature matches the creative-writing setting the product
	// has always shipped with.
	StoryTemperature = 0.9

	maxRetries     = 2
	initialBackoff = 500 * time.Millisecond
)

var (
	// ErrTimeout is returned when the bounded wait for an upstream call
	// expires. It maps to 504, a retryable condition for the caller.
	ErrTimeout = errors.New("upstream generation timed out")

	// ErrMalformed is returned when the upstream reports success but the
	// response carries no usable payload.
	ErrMalformed = errors.New("upstream returned no usable payload")
)

// Timeouts holds the bounded wait per capability.
type Timeouts struct {
	Story  time.Duration
	Image  time.Duration
	Speech time.Duration
}

// DefaultTimeouts keeps every capability under the usual 30s edge ceiling.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Story:  20 * time.Second,
		Image:  28 * time.Second,
		Speech: 20 * time.Second,
	}
}

// Client is the shared upstream API client. It is constructed once at
// process start and injected; nothing looks it up ambiently.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeouts   Timeouts
}

// NewClient creates a new generation API client
func NewClient(apiKey string) *Client {
	return NewClientWithOptions(apiKey, DefaultBaseURL, DefaultTimeouts())
}

// NewClientWithOptions creates a client with a custom base URL and timeouts
func NewClientWithOptions(apiKey, baseURL string, timeouts Timeouts) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	def := DefaultTimeouts()
	if timeouts.Story <= 0 {
		timeouts.Story = def.Story
	}
	if timeouts.Image <= 0 {
		timeouts.Image = def.Image
	}
	if timeouts.Speech <= 0 {
		timeouts.Speech = def.Speech
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		// No client-level timeout: each call carries its own deadline.
		httpClient: &http.Client{},
		timeouts:   timeouts,
	}
}

// APIError represents an error response from the upstream API. The
// status code is the upstream's own, so the orchestrator can forward it.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("upstream API error (%d): %s - %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("upstream API error (%d): %s", e.StatusCode, e.Message)
}

// IsRateLimitError checks if the error is a rate limit error
func (e *APIError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError checks if the error is a server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// isRetryableError checks if an error should be retried
func isRetryableError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimitError() || apiErr.IsServerError()
	}
	return false
}

// apiErrorBody is the upstream error envelope
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// postJSON sends a JSON request and returns the raw response body.
// Retries on 429/5xx with capped backoff; the context deadline bounds
// the whole sequence, attempts included.
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", wrapContextErr(ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		respBody, contentType, err := c.doRequest(ctx, path, body)
		if err == nil {
			return respBody, contentType, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, "", err
		}
	}

	return nil, "", fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// doRequest performs a single HTTP request against the upstream API
func (c *Client) doRequest(ctx context.Context, path string, body []byte) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", wrapContextErr(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", wrapContextErr(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody apiErrorBody
		if err := json.Unmarshal(respBody, &errBody); err == nil && errBody.Error.Message != "" {
			return nil, "", &APIError{
				StatusCode: resp.StatusCode,
				Message:    errBody.Error.Message,
				Type:       errBody.Error.Type,
				Code:       errBody.Error.Code,
			}
		}
		msg := string(respBody)
		if len(msg) > 400 {
			msg = msg[:400]
		}
		return nil, "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	return respBody, resp.Header.Get("Content-Type"), nil
}

// wrapContextErr converts deadline expiry into ErrTimeout so callers can
// tell a cancelled slow upstream apart from a hard failure.
func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("request failed: %w", err)
}
