// Package transport is the network collaborator of the pipeline: one form
// submission at a time, plus the credits lookup and overlay downloads.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxBodySize caps response bodies read into memory.
const maxBodySize = 64 << 20

// Response is the raw outcome of a submission.
type Response struct {
	StatusCode int
	Body       []byte
}

type Client struct {
	client *http.Client
	log    *zap.Logger
}

// NewClient wraps client; nil selects a client with the given timeout.
func NewClient(client *http.Client, timeout time.Duration, log *zap.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{client: client, log: log}
}

// Submit posts form to endpoint. Any HTTP status is returned as a Response;
// an error means no status was received.
func (c *Client) Submit(ctx context.Context, endpoint string, form url.Values, header http.Header) (*Response, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, endpoint string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.log.Debug("request finished",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("cost", time.Since(start)))

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Fetch downloads an overlay asset. Non-200 statuses are errors.
func (c *Client) Fetch(ctx context.Context, assetURL string) ([]byte, error) {
	resp, err := c.Get(ctx, assetURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", assetURL, resp.StatusCode)
	}
	return resp.Body, nil
}

// Credits is the body of a successful credits lookup.
type Credits struct {
	Credits int `json:"credits"`
}

// DecodeCredits parses a credits body.
func DecodeCredits(body []byte) (*Credits, error) {
	var c Credits
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("decode credits: %w", err)
	}
	return &c, nil
}
