// Package fetch performs the HTTP GET and JSON decode shared by the API
// clients, classifying every failure into a fetch Error.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MEKXH/funbot/internal/version"
)

const (
	DefaultTimeout   = 15 * time.Second
	maxResponseBytes = 1024 * 1024
	maxErrorBodySize = 1024
)

// Client fetches JSON documents from public APIs.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient returns a client with the given request timeout.
// A non-positive timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTP(&http.Client{Timeout: timeout})
}

// NewClientWithHTTP wraps an existing http.Client, e.g. one from httptest.
func NewClientWithHTTP(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		http:      hc,
		userAgent: version.UserAgent(),
	}
}

// GetJSON requests rawURL and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return RequestFailed("%v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return RequestFailed("%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return RequestFailed("unexpected status %d", resp.StatusCode)
		}
		return RequestFailed("unexpected status %d: %s", resp.StatusCode, msg)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return RequestFailed("read response: %v", err)
	}
	if len(body) > maxResponseBytes {
		return RequestFailed("response too large (over %d bytes)", maxResponseBytes)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return ResponseEmpty("The returned json was empty!")
	}

	if err := json.Unmarshal(body, v); err != nil {
		return InvalidJSON("Invalid JSON content: %v", err)
	}
	return nil
}
