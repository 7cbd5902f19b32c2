// Package client talks to a running chartmeta HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/chartmeta/internal/adapters/http/api"
	"github.com/okian/chartmeta/internal/domain/types"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultPollInterval = 200 * time.Millisecond
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPollInterval sets how often WaitForRows polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.poll = d
		}
	}
}

// Client wraps http.Client with the API routes.
type Client struct {
	base string
	http *http.Client
	poll time.Duration
}

// New creates a client for the API at baseURL, e.g. "http://localhost:9080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: baseURL,
		http: &http.Client{Timeout: defaultTimeout},
		poll: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitSong queues a song batch.
func (c *Client) SubmitSong(ctx context.Context, song string, levels map[string]int) (api.Submission, error) {
	var sub api.Submission
	body := map[string]any{"levels": levels}
	err := c.do(ctx, http.MethodPost, "/v1/songs/"+url.PathEscape(song), body, http.StatusAccepted, &sub)
	return sub, err
}

// Results lists stored rows for song; an empty song lists all.
func (c *Client) Results(ctx context.Context, song string, limit int) ([]types.Row, error) {
	q := url.Values{}
	if song != "" {
		q.Set("song", song)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Rows []types.Row `json:"rows"`
	}
	path := "/v1/results"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// WaitForRows polls Results until at least n rows exist for song.
func (c *Client) WaitForRows(ctx context.Context, song string, n int) ([]types.Row, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		rows, err := c.Results(ctx, song, 0)
		if err != nil {
			return nil, err
		}
		if len(rows) >= n {
			return rows, nil
		}
		select {
		case <-ctx.Done():
			return rows, fmt.Errorf("%w: have %d of %d: %w", ErrTimeout, len(rows), n, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %s %s: %d %s", ErrStatus, method, path, resp.StatusCode, e.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
