// Package webhook posts run reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ccollicutt/gnsstage/pkg/config"
	"github.com/ccollicutt/gnsstage/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// Client sends run reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Headers carrying the run counts, so receivers can route on them without
// decoding the body.
const (
	HeaderSource      = "X-Gnsstage-Source"
	HeaderPositions   = "X-Gnsstage-Positions"
	HeaderSkipped     = "X-Gnsstage-Skipped"
	HeaderFrames      = "X-Gnsstage-Frames"
	HeaderInterrupted = "X-Gnsstage-Interrupted"
)

// maxResponseBody caps how much of a receiver's reply is kept.
const maxResponseBody = 1 << 20

// NewRequest builds the POST for report. The body is the JSON report and the
// headers repeat its position, skip and frame counts.
func NewRequest(ctx context.Context, report *output.Report, opts SendOptions) (*http.Request, error) {
	// Marshal report to JSON
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gnsstage-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	// Run counts
	req.Header.Set(HeaderSource, report.Metadata.Source)
	req.Header.Set(HeaderPositions, strconv.Itoa(report.Summary.Positions))
	req.Header.Set(HeaderSkipped, strconv.Itoa(report.Summary.Skipped))
	if report.Summary.FramesRendered > 0 {
		req.Header.Set(HeaderFrames, strconv.Itoa(report.Summary.FramesRendered))
	}
	if report.Metadata.Interrupted {
		req.Header.Set(HeaderInterrupted, "true")
	}
	return req, nil
}

// Send posts a run report to a webhook endpoint. Failures are returned in the
// Response, never as a panic or a separate error.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	defer func() { resp.Duration = time.Since(start) }()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := NewRequest(ctx, report, opts)
	if err != nil {
		resp.Error = err
		return resp
	}

	// Send request
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		return resp
	}
	defer httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		return resp
	}
	resp.Body = string(body)

	// Check status
	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp
}

// PingTimeout bounds a reachability check.
const PingTimeout = 5 * time.Second

// Ping sends a HEAD request to the endpoint. Any HTTP status counts as
// reachable, so only transport failures set Response.Error.
func (c *Client) Ping(ctx context.Context, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	defer func() { resp.Duration = time.Since(start) }()

	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, opts.URL, nil)
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		return resp
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		return resp
	}
	httpResp.Body.Close()
	resp.StatusCode = httpResp.StatusCode
	return resp
}

// ShouldFire reports whether a webhook with trigger fires for a run.
// An empty trigger behaves like on_skips.
func ShouldFire(trigger config.WebhookTrigger, hasSkips bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasSkips
	}
}

// Name labels a webhook by its name, or by its URL when unnamed.
func Name(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

// Result is the outcome of one configured webhook.
type Result struct {
	Name     string
	Fired    bool
	Response *Response
}

// SendAll posts report to every webhook whose trigger matches. Failures are
// reported in the results and never abort the remaining sends.
func (c *Client) SendAll(ctx context.Context, hooks []config.WebhookConfig, report *output.Report) []Result {
	results := make([]Result, 0, len(hooks))
	for _, wh := range hooks {
		name := Name(wh)

		// Skip hooks whose trigger does not match this run
		if !ShouldFire(wh.Trigger, report.HasSkips()) {
			results = append(results, Result{Name: name})
			continue
		}

		resp := c.Send(ctx, report, SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})
		results = append(results, Result{Name: name, Fired: true, Response: resp})
	}
	return results
}
