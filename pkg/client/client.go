// Package client fetches search result pages from the upstream storefront
// API with retries, metrics, and an optional shared Redis page store.
package client

import (
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/storefront-feed/pkg/cache"
	"github.com/Sternrassler/storefront-feed/pkg/logging"
	"github.com/Sternrassler/storefront-feed/pkg/pagination"
)

// Prometheus metrics for upstream operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_upstream_requests_total",
		Help: "Total upstream search requests by source and status",
	}, []string{"source", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_upstream_request_duration_seconds",
		Help:    "Upstream search request duration in seconds by source",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"source"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_upstream_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_upstream_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_upstream_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// maxBodyBytes bounds a single page response.
const maxBodyBytes = 4 << 20

// Item is one search result row. Kind-specific fields are optional.
type Item struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl,omitempty"`
	// BoothID is the owning booth of a product.
	BoothID    string            `json:"boothId,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ItemID returns the item's ID, for telemetry.
func ItemID(it Item) string {
	return it.ID
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the storefront API root, e.g. "https://api.example.com".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// Retry overrides the per-class retry configuration when set.
	Retry *RetryConfig

	// PageStore, when set, is consulted before the upstream and filled
	// after successful fetches.
	PageStore *cache.PageStore

	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
}

// DefaultConfig returns a default configuration for baseURL.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   10 * time.Second,
	}
}

// Client fetches result pages from the storefront search API. It
// implements pagination.PageFetcher[Item].
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	store      *cache.PageStore
	retry      retrier
	config     Config
	logger     zerolog.Logger
}

var _ pagination.PageFetcher[Item] = (*Client)(nil)

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := logging.NewLogger("storefront-client")

	configFor := RetryConfigForErrorClass
	if cfg.Retry != nil {
		override := *cfg.Retry
		configFor = func(ErrorClass) RetryConfig { return override }
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		store:      cfg.PageStore,
		retry:      retrier{configFor: configFor, logger: logger},
		config:     cfg,
		logger:     logger,
	}, nil
}

// FetchPage fetches one page of q.
func (c *Client) FetchPage(ctx context.Context, page, size int, q pagination.Query) (pagination.Page[Item], error) {
	source := q.Source().String()
	key := q.PageKey(page, size)

	if c.store != nil {
		stored, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			var p pagination.Page[Item]
			if err := json.Unmarshal(stored.Data, &p); err == nil {
				c.logger.Debug().Str("key", key.String()).Msg("Page store hit")
				return p, nil
			}
			c.logger.Warn().Str("key", key.String()).Msg("Discarding undecodable stored page")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Page store get error")
		}
	}

	endpoint := c.pageURL(page, size, q)
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	err := c.retry.do(ctx, func() error {
		var attemptErr error
		body, attemptErr = c.get(ctx, source, endpoint)
		return attemptErr
	}, classifyError)
	if err != nil {
		return pagination.Page[Item]{}, err
	}

	var p pagination.Page[Item]
	if err := json.Unmarshal(body, &p); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return pagination.Page[Item]{}, &StorefrontError{
			StatusCode: http.StatusOK,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid page body",
			Err:        err,
		}
	}

	if c.store != nil {
		if err := c.store.Set(ctx, key, body); err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to store page")
		}
	}

	c.logger.Debug().
		Str("source", source).
		Int("page", page).
		Int("rows", len(p.Rows)).
		Msg("Fetched page")
	return p, nil
}

// get performs one request attempt and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, source, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(source, "network_error").Inc()
		c.logger.Warn().Err(err).Str("source", source).Msg("HTTP request failed")
		return nil, err
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(source, strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		c.logger.Warn().
			Str("source", source).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Storefront request error")
		return nil, &StorefrontError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// pageURL builds {base}/v1/search/{kind}s with the query parameters.
func (c *Client) pageURL(page, size int, q pagination.Query) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/search/" + string(q.Kind) + "s"

	params := url.Values{}
	params.Set("mode", string(q.Mode))
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	for name, value := range map[string]string{
		"q":     q.Keyword,
		"image": q.ImageRef,
		"sort":  q.Sort,
		"scope": q.ScopeID,
	} {
		if value != "" {
			params.Set(name, value)
		}
	}
	u.RawQuery = params.Encode()
	return u.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.retry.logger = logger
}
