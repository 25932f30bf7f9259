package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	glog "github.com/spcent/autoreload/log"
)

// DefaultMaxBody caps how much of a response body GetText reads.
const DefaultMaxBody = 64 << 10

// Middleware defines a function that wraps request execution.
type Middleware func(next RoundTripperFunc) RoundTripperFunc

// RoundTripperFunc is a functional form of http.RoundTripper-like function.
type RoundTripperFunc func(req *http.Request) (*http.Response, error)

// Logging returns a middleware that logs request duration and results at debug level.
func Logging(logger glog.StructuredLogger) Middleware {
	return func(next RoundTripperFunc) RoundTripperFunc {
		return func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next(req)
			fields := glog.Fields{
				"method":   req.Method,
				"url":      req.URL.String(),
				"duration": time.Since(start).String(),
			}
			if err != nil {
				fields["error"] = err
				logger.DebugCtx(req.Context(), "http request failed", fields)
			} else {
				fields["status"] = resp.StatusCode
				logger.DebugCtx(req.Context(), "http request done", fields)
			}
			return resp, err
		}
	}
}

// Client is a thin wrapper around http.Client with a middleware chain.
// It never retries: callers that poll own their own schedule.
type Client struct {
	client      *http.Client
	maxBody     int64
	middlewares []Middleware
}

// Option defines a functional option for Client
type Option func(*Client)

// WithTimeout sets the client timeout. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithMiddleware adds middleware to the client.
func WithMiddleware(mw Middleware) Option {
	return func(c *Client) { c.middlewares = append(c.middlewares, mw) }
}

// WithTransport sets a custom transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.client.Transport = transport
	}
}

// WithMaxBody limits the number of body bytes GetText returns.
func WithMaxBody(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// New creates a new Client with provided options.
func New(opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{},
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req through the middleware chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	final := RoundTripperFunc(c.client.Do)
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		final = c.middlewares[i](final)
	}
	return final(req)
}

// GetText performs a GET request and returns the status code and the body as text.
// A non-nil error means the request never produced a response (or the body
// could not be read); HTTP error statuses are reported through the status code.
func (c *Client) GetText(ctx context.Context, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, string(body), nil
}
