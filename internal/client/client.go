// Package client is a typed HTTP client for the TubeDesk REST API. It keeps
// the caller's bearer tokens and refreshes the access token once when the
// server answers 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tubedesk/backend/internal/models"
)

// APIError is a decoded failure envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokens seeds the client with previously issued tokens.
func WithTokens(tokens models.TokenPair) Option {
	return func(c *Client) { c.tokens = tokens }
}

// WithTokenListener registers fn to be called whenever the stored tokens change.
func WithTokenListener(fn func(models.TokenPair)) Option {
	return func(c *Client) { c.onTokens = fn }
}

// Client talks to a TubeDesk backend (or the same-origin proxy).
type Client struct {
	baseURL  string
	http     *http.Client
	onTokens func(models.TokenPair)

	mu     sync.Mutex
	tokens models.TokenPair
}

// New builds a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the currently stored tokens.
func (c *Client) Tokens() models.TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// SetTokens replaces the stored tokens.
func (c *Client) SetTokens(tokens models.TokenPair) {
	c.mu.Lock()
	c.tokens = tokens
	listener := c.onTokens
	c.mu.Unlock()

	if listener != nil {
		listener(tokens)
	}
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.AccessToken
}

type request struct {
	method string
	path   string
	body   any
	out    any
	authed bool
}

func (c *Client) do(ctx context.Context, req request) error {
	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	resp, err := c.send(ctx, req, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && req.authed && c.Tokens().RefreshToken != "" {
		resp.Body.Close()
		if _, err := c.Refresh(ctx); err != nil {
			return err
		}
		if resp, err = c.send(ctx, req, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	return decode(resp, req.out)
}

func (c *Client) send(ctx context.Context, req request, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.authed {
		if token := c.accessToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	return resp, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decode(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(data, &env) == nil {
			if env.Error != "" {
				apiErr.Code = env.Error
			}
			apiErr.Message = env.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
