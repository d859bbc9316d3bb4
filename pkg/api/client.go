package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"statusmon/pkg/log"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultHealthPath     = "/api/health"
	DefaultProbeTimeout   = 3 * time.Second
	DefaultRequestTimeout = 10 * time.Second

	contentTypeJSON = "application/json"
)

// Reachability reports the last known state of the backend.
type Reachability interface {
	Online() bool
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	HealthPath     string
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
}

// Options customizes a single Request. Headers override the defaults.
type Options struct {
	Method  string
	Headers map[string]string
	Body    []byte
	// JSON, when set, is marshaled and sent as the body instead of Body.
	JSON any
}

// Client calls the backend API, refusing to do so while it is known offline.
type Client struct {
	baseURL        string
	healthPath     string
	probeTimeout   time.Duration
	requestTimeout time.Duration
	reachability   Reachability
	client         *retryablehttp.Client
}

// NewClient creates a client for cfg.BaseURL gated by reachability.
func NewClient(cfg Config, reachability Reachability) *Client {
	if cfg.HealthPath == "" {
		cfg.HealthPath = DefaultHealthPath
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		healthPath:     cfg.HealthPath,
		probeTimeout:   cfg.ProbeTimeout,
		requestTimeout: cfg.RequestTimeout,
		reachability:   reachability,
		client:         newTransport(),
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Probe issues a single health check against the backend. It ignores the
// reachability flag.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if resp != nil {
			closeBody(resp)
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return newHTTPError(resp)
	}
	return nil
}

// Request calls <base><endpoint> and decodes the JSON response into result.
// It returns ErrOffline without any I/O when the backend is known offline,
// and *HTTPError for non-2xx responses. A nil result discards the body.
func (c *Client) Request(ctx context.Context, endpoint string, opts *Options, result any) error {
	if !c.reachability.Online() {
		return ErrOffline
	}
	if opts == nil {
		opts = &Options{}
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body interface{}
	switch {
	case opts.JSON != nil:
		encoded, err := json.Marshal(opts.JSON)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = encoded
	case len(opts.Body) > 0:
		body = opts.Body
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if resp != nil {
			closeBody(resp)
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return newHTTPError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrRequestFailed, err)
	}
	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: parse response: %w", ErrRequestFailed, err)
	}
	return nil
}

// newTransport builds the underlying HTTP client. Retries are disabled; the
// next scheduled probe is the only retry mechanism.
func newTransport() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.CheckRetry = noRetryPolicy
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, _ int) {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Msg("Backend request")
	}
	client.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		log.Debug().
			Str("url", resp.Request.URL.String()).
			Int("status", resp.StatusCode).
			Msg("Backend response")
	}
	return client
}

// noRetryPolicy never retries and never turns a response into an error, so
// status codes reach the caller unchanged.
func noRetryPolicy(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close response body")
	}
}
