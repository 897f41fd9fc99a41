// Package transport is the single HTTP entry point to the review API.
// It attaches the bearer token, encodes bodies and turns every failure into
// a *Error so callers handle exactly one error shape.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrBadMultipart is returned when a multipart request is given a body that is not a *Multipart.
var ErrBadMultipart = errors.New("transport: multipart body must be *Multipart")

// Config holds client configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.com/api.
	BaseURL string

	// Tokens supplies the bearer token. Defaults to an empty in-memory store.
	Tokens TokenStore

	HTTPClient *http.Client

	// Timeout is used when HTTPClient is nil.
	Timeout time.Duration

	// RateLimit caps outgoing requests per second. Zero disables it.
	RateLimit float64
	Burst     int

	UserAgent string

	Logger *zap.Logger
}

// Client is the REST transport.
type Client struct {
	baseURL    string
	tokens     TokenStore
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *zap.Logger
}

// New creates a transport client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transport: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("transport: invalid BaseURL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// Tokens returns the token store used for the Authorization header.
func (c *Client) Tokens() TokenStore { return c.tokens }

/*
Request performs one API call and returns the raw JSON body.

body is JSON-encoded unless isMultipart is set, in which case it must be
a *Multipart and is sent unmodified. An empty 2xx body returns (nil, nil).
Every error is a *Error, except ErrBadMultipart for a misuse by the caller.
*/
func (c *Client) Request(ctx context.Context, method, path string, body any, isMultipart bool) (json.RawMessage, error) {
	var (
		reader      io.Reader
		contentType string
	)
	switch {
	case isMultipart:
		mp, ok := body.(*Multipart)
		if !ok || mp == nil {
			return nil, ErrBadMultipart
		}
		reader, contentType = mp.Body, mp.ContentType
	case body != nil:
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		reader, contentType = bytes.NewReader(b), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, networkError(err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	token, err := c.tokens.Token()
	if err != nil {
		c.logger.Warn("reading auth token failed", zap.Error(err))
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, networkError(err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method), zap.String("path", path),
			zap.String("request_id", requestID), zap.Error(err))
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindApplication
		if resp.StatusCode == http.StatusUnauthorized {
			kind = KindUnauthorized
		}
		return nil, &Error{Kind: kind, Message: errorMessage(raw), status: resp.StatusCode}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, networkError(fmt.Errorf("malformed JSON response (status %d)", resp.StatusCode))
	}
	return raw, nil
}

// Get issues a GET with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.Request(ctx, http.MethodGet, path, nil, false)
}

func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, path, body, false)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPatch, path, body, false)
}

func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPut, path, body, false)
}

func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, false)
}

// Upload sends a multipart body.
func (c *Client) Upload(ctx context.Context, method, path string, body *Multipart) (json.RawMessage, error) {
	return c.Request(ctx, method, path, body, true)
}

// Decode unmarshals a response body into T. A body that does not match T
// is reported like any other unreadable response.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, networkError(fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}

// errorMessage pulls a user-facing message out of an error body. The API
// uses {"error": "..."}, {"message": "..."} or {"error": {"message": "..."}}.
func errorMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return fallbackMessage
	}
	for _, path := range []string{"error", "message", "error.message"} {
		r := gjson.GetBytes(raw, path)
		if r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	return fallbackMessage
}
