package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gryt-terminal/internal/chat"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 30 * time.Second

	sendPath        = "/api/chat/send"
	validateKeyPath = "/api/auth/validate-access-key"
	submitKeyPath   = "/api/keys/submit"
)

// Interface compliance check.
var _ chat.Sender = (*Client)(nil)

// Client talks to the GRYT backend. Every request carries a timeout so a
// stalled backend can never leave the composer disabled forever.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the backend base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken sets the bearer token sent on chat requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a backend [Client].
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after access-key validation.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Error is a declared-failure response from the backend, carrying the
// server-provided message when one was present.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("api: request failed with status %d", e.StatusCode)
}

// SendMessage posts a chat message and returns the assistant reply text. An
// empty reply means the backend answered without a response field; callers
// decide the fallback.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (string, error) {
	req := struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}{Message: message, SessionID: sessionID}

	var resp struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, sendPath, req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// ValidateAccessKey exchanges an access key for a bearer token.
func (c *Client) ValidateAccessKey(ctx context.Context, accessKey string) (string, error) {
	req := struct {
		AccessKey string `json:"accessKey"`
	}{AccessKey: accessKey}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, validateKeyPath, req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// SubmitAPIKey forwards a user-supplied API key with an optional description.
func (c *Client) SubmitAPIKey(ctx context.Context, apiKey, description string) error {
	req := struct {
		APIKey      string `json:"apiKey"`
		Description string `json:"description,omitempty"`
	}{APIKey: apiKey, Description: description}

	return c.post(ctx, submitKeyPath, req, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseHTTPError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: failed to decode response: %w", err)
	}
	return nil
}

func parseHTTPError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
