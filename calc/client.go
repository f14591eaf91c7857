// Package calc implements a client for the downstream calculation service.
//
// The service exposes a single endpoint accepting a JSON body of the form
// {"file": <name>, "product": <any>} and answering with a JSON body whose shape
// is of no concern to this package: it is returned verbatim to the caller.
package calc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultURL     = "http://container2-service:90/sum"
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrCommunication indicates the service could not be reached, or did not
	// answer within the timeout.
	ErrCommunication = errors.New("communication error")

	// ErrInvalidResponse indicates the service answered with a body that is
	// not valid JSON.
	ErrInvalidResponse = errors.New("invalid response")
)

type options struct {
	url       string
	timeout   time.Duration
	rateLimit float64
	transport http.RoundTripper
}

type Option func(*options)

func WithURL(value string) Option {
	return func(o *options) {
		o.url = value
	}
}

func WithTimeout(value time.Duration) Option {
	return func(o *options) {
		o.timeout = value
	}
}

// WithRateLimit throttles requests on our side, at most value requests per
// second. Zero or less means no throttling.
func WithRateLimit(value float64) Option {
	return func(o *options) {
		o.rateLimit = value
	}
}

func WithTransport(value http.RoundTripper) Option {
	return func(o *options) {
		o.transport = value
	}
}

// Client performs calculation requests. It never retries: each call to
// Calculate issues exactly one HTTP request, or none if the request context
// is done before the limiter lets it through.
type Client struct {
	opts    options
	http    *http.Client
	limiter *rate.Limiter
}

func New(opts ...Option) *Client {
	var c Client
	c.opts.url = DefaultURL
	c.opts.timeout = DefaultTimeout
	for _, o := range opts {
		o(&c.opts)
	}
	if c.opts.timeout <= 0 {
		c.opts.timeout = DefaultTimeout
	}
	c.http = &http.Client{
		Timeout:   c.opts.timeout,
		Transport: c.opts.transport,
	}
	if c.opts.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.opts.rateLimit), 1)
	}
	return &c
}

// URL returns the endpoint requests are sent to.
func (c *Client) URL() string {
	return c.opts.url
}

type request struct {
	File    string          `json:"file"`
	Product json.RawMessage `json:"product"`
}

// Calculate sends file and product to the service and returns its JSON
// response body unchanged. The HTTP status code is not interpreted.
func (c *Client) Calculate(ctx context.Context, file string, product json.RawMessage) (json.RawMessage, error) {
	body, err := json.Marshal(request{File: file, Product: product})
	if err != nil {
		return nil, fmt.Errorf("could not encode request for %q: %w", file, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrCommunication)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not build request to %q: %w", c.opts.url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	response, err := c.http.Do(req)
	if response != nil && response.Body != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrCommunication)
	}
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %v: %w", err, ErrCommunication)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("status %d, body %.40q: %w", response.StatusCode, raw, ErrInvalidResponse)
	}
	return raw, nil
}
