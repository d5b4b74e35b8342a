// Package client talks to the eventscore HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/eventscore/internal/app"
	"github.com/okian/eventscore/internal/batch"
	"github.com/okian/eventscore/internal/domain/report"
)

const defaultTimeout = 30 * time.Second

// ErrStatus reports an unexpected HTTP status from the API.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the API error body of a failed request.
type StatusError struct {
	Code    int
	Kind    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, e.Kind, e.Message)
}

// Is reports ErrStatus as the sentinel for every StatusError.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Ack is the response to a run submission.
type Ack struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Events    int    `json:"events"`
}

// Client wraps http.Client with the API base URL.
type Client struct {
	base string
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts a batch as a new run.
func (c *Client) Submit(ctx context.Context, b *batch.Batch) (Ack, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return Ack{}, fmt.Errorf("marshal batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/runs", bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", b.IdempotencyKey)
	}

	var ack Ack
	if _, err := c.do(req, &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}

// Run fetches the progress of a run. retryAfter is non-zero while the
// server signals a rate-limit cool-down.
func (c *Client) Run(ctx context.Context, id string) (view service.RunView, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/runs/"+url.PathEscape(id), http.NoBody)
	if err != nil {
		return service.RunView{}, 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(req, &view)
	if err != nil {
		return service.RunView{}, 0, err
	}
	if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
		retryAfter = time.Duration(secs) * time.Second
	}
	return view, retryAfter, nil
}

// Report fetches the JSON report of a run.
func (c *Client) Report(ctx context.Context, id string) (report.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/runs/"+url.PathEscape(id)+"/report?format=json", http.NoBody)
	if err != nil {
		return report.Report{}, fmt.Errorf("create request: %w", err)
	}
	var rep report.Report
	if _, err := c.do(req, &rep); err != nil {
		return report.Report{}, err
	}
	return rep, nil
}

// Wait polls a run until it finishes or ctx ends. A server cool-down longer
// than interval stretches the next poll.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration) (service.RunView, error) {
	for {
		view, retryAfter, err := c.Run(ctx, id)
		if err != nil {
			return service.RunView{}, err
		}
		if view.FinishedAt != nil {
			return view, nil
		}

		timer := time.NewTimer(max(interval, retryAfter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return view, fmt.Errorf("wait for run %s: %w", id, ctx.Err())
		case <-timer.C:
		}
	}
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) == nil {
			se.Kind, se.Message = body.Code, body.Message
		}
		return resp, se
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
