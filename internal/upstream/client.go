// Package upstream issues the HTTP requests the fetchers depend on.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/metrics"
)

// MaxTimeout bounds every request regardless of what the caller asks for.
const MaxTimeout = 30 * time.Second

// Request is one GET against an upstream.
type Request struct {
	URL     string
	Headers http.Header
	Timeout time.Duration
}

// Response is the status and full body of a completed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 200 response.
func (r Response) OK() bool { return r.StatusCode == http.StatusOK }

// Client performs upstream requests. Implementations may return transport errors;
// a non-200 status is not an error.
type Client interface {
	Get(ctx context.Context, req Request) (Response, error)
}

// Options configures an HTTPClient.
type Options struct {
	UserAgent    string
	HostInterval time.Duration
	MaxBodyBytes int64
	Metrics      *metrics.Collector
	Logger       *slog.Logger
	Transport    http.RoundTripper
}

// HTTPClient is the production Client: a shared http.Client with a cookie jar,
// a per-host rate limiter and a body size cap.
type HTTPClient struct {
	client  *http.Client
	limiter *HostRateLimiter
	ua      string
	maxBody int64
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewHTTPClient returns the production Client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("upstream: cookie jar: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 << 20
	}
	return &HTTPClient{
		client: &http.Client{
			Jar:       jar,
			Transport: opts.Transport,
			Timeout:   MaxTimeout,
		},
		limiter: NewHostRateLimiter(opts.HostInterval),
		ua:      opts.UserAgent,
		maxBody: opts.MaxBodyBytes,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}, nil
}

// Get issues one GET. Non-200 answers are returned, not reported as errors.
func (c *HTTPClient) Get(ctx context.Context, r Request) (Response, error) {
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" {
		return Response{}, fmt.Errorf("upstream: invalid url %q", r.URL)
	}

	timeout := r.Timeout
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.WaitForHost(ctx, u.Host); err != nil {
		return Response{}, fmt.Errorf("upstream: rate limit %s: %w", u.Host, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("upstream: build request: %w", err)
	}
	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(u.Host, 0)
		return Response{}, fmt.Errorf("upstream: get %s: %w", redact(u), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	c.metrics.RecordUpstream(u.Host, resp.StatusCode)
	if err != nil && !errors.Is(err, io.EOF) {
		return Response{}, fmt.Errorf("upstream: read %s: %w", redact(u), err)
	}

	c.logger.Debug("upstream response",
		"host", u.Host,
		"status", resp.StatusCode,
		"bytes", len(body),
		"took", time.Since(start),
	)
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// redact hides query values so proxy keys never reach the logs.
func redact(u *url.URL) string {
	c := *u
	if c.RawQuery != "" {
		q := c.Query()
		for k := range q {
			q.Set(k, "xxx")
		}
		c.RawQuery = q.Encode()
	}
	return c.String()
}
