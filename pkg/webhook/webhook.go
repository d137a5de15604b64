// Package webhook posts haplog reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ccollicutt/haplog/pkg/output"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// DefaultRetryDelay is the pause before the first retry. It doubles on each
// further attempt.
const DefaultRetryDelay = 500 * time.Millisecond

// RunIDHeader carries the report ID so receivers can drop duplicate deliveries.
const RunIDHeader = "X-Haplog-Run-ID"

// maxResponseBody caps how much of the receiver's reply is kept.
const maxResponseBody = 1 << 20

// Client delivers reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a webhook client.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{}}
}

// SendOptions configures one delivery.
type SendOptions struct {
	URL     string
	Token   string        // sent as a bearer token when set
	Timeout time.Duration // per attempt, DefaultTimeout when zero

	// Retries is how many extra attempts follow a transport error or a 5xx.
	Retries    int
	RetryDelay time.Duration
}

// Response describes the outcome of the last delivery attempt.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Attempts   int
	Error      error
}

// Success reports whether the receiver answered with a 2xx status.
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// errRetryable marks failures worth another attempt.
var errRetryable = errors.New("retryable")

// Send posts the report as JSON. Failures are reported in Response.Error,
// never returned, so one broken receiver does not stop the others.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	defer func() { resp.Duration = time.Since(start) }()

	payload, err := json.Marshal(report)
	if err != nil {
		resp.Error = fmt.Errorf("failed to marshal report: %w", err)
		return resp
	}

	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	for attempt := range max(opts.Retries, 0) + 1 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				resp.Error = fmt.Errorf("gave up after %d attempts: %w", attempt, ctx.Err())
				return resp
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp.Attempts = attempt + 1
		resp.StatusCode, resp.Body, resp.Error = c.post(ctx, report.ID.String(), payload, opts)
		if !errors.Is(resp.Error, errRetryable) {
			break
		}
	}
	return resp
}

// post performs one attempt.
func (c *Client) post(ctx context.Context, runID string, payload []byte, opts SendOptions) (int, string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "haplog-webhook")
	req.Header.Set(RunIDHeader, runID)
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w: %w", errRetryable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return httpResp.StatusCode, "", fmt.Errorf("failed to read response: %w", err)
	}

	switch code := httpResp.StatusCode; {
	case code >= 500:
		return code, string(body), fmt.Errorf("webhook returned status %d: %w", code, errRetryable)
	case code >= 400:
		return code, string(body), fmt.Errorf("webhook returned status %d", code)
	default:
		return code, string(body), nil
	}
}
