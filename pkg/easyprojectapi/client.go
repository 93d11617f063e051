// Package easyprojectapi is a client for the EasyProject (Redmine-compatible)
// REST API. Reads go through an optional response cache, every request
// through an optional rate limiter, and writes clear the whole cache.
package easyprojectapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"easyproject-mcp/server/internal/cache"
)

const (
	DefaultAPIKeyHeader = "X-Redmine-API-Key"
	DefaultTimeout      = 30 * time.Second

	instrumentationName = "easyproject-mcp/server/pkg/easyprojectapi"
)

// Limiter gates outbound requests. Acquire blocks until a request may be sent.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	UserAgent    string
	Timeout      time.Duration

	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client

	// Cache stores raw read responses. Nil disables caching.
	Cache cache.Cache

	// Limiter gates every request. Nil disables rate limiting.
	Limiter Limiter

	MeterProvider metric.MeterProvider
	Logger        zerolog.Logger
}

// Client is safe for concurrent use. The cache and limiter it was built with
// are shared, never copied.
type Client struct {
	baseURL      *url.URL
	apiKey       string
	apiKeyHeader string
	userAgent    string
	httpClient   *http.Client
	cache        cache.Cache
	limiter      Limiter
	log          zerolog.Logger

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base URL %q must be absolute", opts.BaseURL)
	}
	if opts.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	header := opts.APIKeyHeader
	if header == "" {
		header = DefaultAPIKeyHeader
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	provider := opts.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	requests, err := meter.Int64Counter(
		"easyproject.http.requests",
		metric.WithDescription("Requests sent to the EasyProject API"),
	)
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram(
		"easyproject.http.duration",
		metric.WithDescription("EasyProject API request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Client{
		baseURL:      u,
		apiKey:       opts.APIKey,
		apiKeyHeader: header,
		userAgent:    opts.UserAgent,
		httpClient:   httpClient,
		cache:        opts.Cache,
		limiter:      opts.Limiter,
		log:          opts.Logger.With().Str("component", "easyprojectapi").Logger(),
		requests:     requests,
		duration:     duration,
	}, nil
}

// do sends one request and returns the decoded JSON body. An empty 2xx body
// is returned as {}. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (jx.Raw, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, errors.Wrapf(err, "%s %s", method, path)
		}
	}

	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.apiKeyHeader, c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(ctx, method, "transport_error", time.Since(start))
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	c.record(ctx, method, strconv.Itoa(resp.StatusCode), elapsed)

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("upstream request")

	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: read response body", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}

	return decodeBody(data)
}

// decodeBody validates a success body. Whitespace-only bodies become {}.
func decodeBody(data []byte) (jx.Raw, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return jx.Raw("{}"), nil
	}
	if err := jx.DecodeBytes(trimmed).Validate(); err != nil {
		return nil, &DecodeError{Body: string(data), Err: err}
	}
	return jx.Raw(trimmed), nil
}

func (c *Client) record(ctx context.Context, method, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.status", status),
	)
	if c.requests != nil {
		c.requests.Add(ctx, 1, attrs)
	}
	if c.duration != nil {
		c.duration.Record(ctx, d.Seconds(), attrs)
	}
}
