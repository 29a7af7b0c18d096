// Package api is a typed client for the voting backend HTTP API.
//
// Calls are one-shot: a failure is returned to the caller and never retried.
package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the voting backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for baseURL whose requests time out after timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a Client that sends requests through hc.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// BaseURL returns the backend address the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call.
type request struct {
	reason string
	method string
	path   string
	query  url.Values
	token  string

	contentType string
	body        io.Reader
}

func (r *request) withJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &Error{Reason: r.reason, Kind: ErrTransport, Err: err}
	}
	r.contentType = "application/json"
	r.body = bytes.NewReader(data)
	return nil
}

func (r *request) withForm(values url.Values) {
	r.contentType = "application/x-www-form-urlencoded"
	r.body = strings.NewReader(values.Encode())
}

// do sends req and decodes a successful response body into out, unless out is nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return &Error{Reason: req.reason, Kind: ErrTransport, Err: err}
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Debug("api request failed", "method", req.method, "path", req.path, "error", err)
		return &Error{Reason: req.reason, Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("api request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Reason:     req.reason,
			Kind:       ErrStatus,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Reason: req.reason, Kind: ErrDecode, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
