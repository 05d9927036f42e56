// Package httpclient is the retrying HTTP client wrapper shared by the
// telemetry emitter's batch POST to <endpoint>/v1/events/batch and the
// worker-facing monitorclient's single-event POST to <endpoint>/v1/events.
// The emitter disables the wrapper's own retry (WithRetries(0, 0)) because
// retry ownership there belongs to pkg/retry and the spool absorbs what
// retries cannot; the monitor client keeps a small built-in retry because a
// short-lived worker script has no spool to fall back to.
package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultBaseBackoff = 250 * time.Millisecond
	defaultMaxBackoff  = 5 * time.Second
)

// Client wraps *http.Client with bounded, jittered retries for transient
// transport errors and retryable status codes.
type Client struct {
	hc          *http.Client
	logger      *slog.Logger
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		if t > 0 {
			c.hc.Timeout = t
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetries sets how many times a failed request is retried (0 disables
// retrying) and the base backoff between attempts.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
		if backoff > 0 {
			c.baseBackoff = backoff
		}
	}
}

// WithTransport overrides the underlying round tripper, primarily for
// tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.hc.Transport = rt
	}
}

// New builds a Client with sane defaults: 10s timeout, retries disabled.
func New(opts ...Option) *Client {
	c := &Client{
		hc:          &http.Client{Timeout: defaultTimeout},
		logger:      slog.Default(),
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes req, retrying transient failures up to the configured retry
// count. The request body must be replayable (a body built from a
// bytes.Reader, as http.NewRequest arranges) for retries to re-send it.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := c.rewind(req); err != nil {
				return resp, err
			}
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return resp, err
			}
			c.logger.Debug("retrying request",
				"method", req.Method, "url", req.URL.Redacted(), "attempt", attempt)
		}

		resp, err = c.hc.Do(req.WithContext(ctx))
		if !c.shouldRetry(resp, err) || attempt >= c.retries {
			return resp, err
		}
		if resp != nil {
			drainAndClose(resp.Body)
		}
	}
}

func (c *Client) rewind(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}

func (c *Client) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return isTransientError(err)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff returns the jittered delay before the attempt-th retry,
// doubling from the base and capped at maxBackoff. Jitter spreads
// concurrent retriers over half the window.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseBackoff << (attempt - 1)
	if d > c.maxBackoff || d <= 0 {
		d = c.maxBackoff
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half+1)))
}

func isTransientError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// Connection refused, reset, DNS hiccups: all worth one more try.
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(b, 64<<10))
	_ = b.Close()
}
