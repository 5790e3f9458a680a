// Package client provides the HTTP transport that feeds the loaders: rate
// limiting, retries, conditional requests against a Redis response cache and
// decoding of envelope bodies.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pageload/pkg/cache"
	"github.com/Sternrassler/pageload/pkg/logging"
	"github.com/Sternrassler/pageload/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_http_requests_total",
		Help: "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pageload_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_http_errors_total",
		Help: "Total HTTP errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_http_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pageload_http_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_http_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Client performs GET requests against one base URL.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	quota      *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is prepended to every endpoint (REQUIRED).
	BaseURL string

	// UserAgent header sent with every request (REQUIRED).
	UserAgent string

	// Redis enables the response cache when set.
	Redis *redis.Client

	// CacheNamespace prefixes cache keys (default: cache.DefaultNamespace).
	CacheNamespace string

	// Revalidate sends conditional requests for cached entries instead of
	// serving them without contacting the origin.
	Revalidate bool

	// RateLimit is the number of requests per second, 0 disables limiting.
	RateLimit float64

	// Burst is the rate limiter bucket size.
	Burst int

	// TrackQuota shares the server-announced quota (RateLimit-* headers)
	// through Redis and delays requests when it runs low. Requires Redis.
	TrackQuota bool

	// Quota thresholds, zero values use ratelimit.DefaultThresholds.
	Quota ratelimit.Thresholds

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Retry configures retries of server, rate limit and network errors.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:    baseURL,
		UserAgent:  userAgent,
		Revalidate: true,
		RateLimit:  10,
		Burst:      5,
		TrackQuota: true,
		Quota:      ratelimit.DefaultThresholds(),
		Timeout:    30 * time.Second,
		Retry:      DefaultRetryConfig(),
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := logging.NewLogger("http-client")

	var cacheManager *cache.Manager
	var quota *ratelimit.Tracker
	if cfg.Redis != nil {
		cacheManager = cache.NewManagerWithNamespace(cfg.Redis, cfg.CacheNamespace)
		if cfg.TrackQuota {
			namespace := cfg.CacheNamespace
			if namespace == "" {
				namespace = cache.DefaultNamespace
			}
			thresholds := cfg.Quota
			if thresholds == (ratelimit.Thresholds{}) {
				thresholds = ratelimit.DefaultThresholds()
			}
			quota = ratelimit.NewTracker(cfg.Redis, namespace, thresholds, logger.With().Str("subcomponent", "quota").Logger())
		}
	} else {
		logger.Debug().Msg("No Redis client configured, response cache disabled")
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		limiter:    rate.NewLimiter(limit, burst),
		quota:      quota,
		cache:      cacheManager,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Do performs req with rate limiting, caching and retries.
// 4xx answers are returned as-is; exhausted 5xx/429/network failures are
// returned as errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Local rate limit
	if err := c.limiter.Wait(ctx); err != nil {
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	// Step 1b: Shared server quota
	if c.quota != nil {
		if err := c.quota.Wait(ctx); err != nil {
			requestsTotal.WithLabelValues(endpoint, "quota_blocked").Inc()
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
	}

	// Step 2: Cache lookup
	cacheKey := cache.Key{Endpoint: endpoint, Query: req.URL.Query()}
	cachedEntry := c.lookup(ctx, req, cacheKey)
	if cachedEntry != nil {
		if !c.config.Revalidate {
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving cached response")
			requestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return cache.ToResponse(cachedEntry, req), nil
		}
		if cache.Conditional(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 3: Headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 4: Execute with retries
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing request")

	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger.With().Str("endpoint", endpoint).Logger(), func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if c.quota != nil {
			if err := c.quota.UpdateFromHeaders(ctx, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update quota state")
			}
		}

		if resp.StatusCode < 400 {
			return nil
		}

		httpErr := newHTTPError(resp)
		errorsTotal.WithLabelValues(string(httpErr.ErrorClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(httpErr.ErrorClass)).
			Msg("Request error")

		if !shouldRetry(httpErr.ErrorClass) {
			// Final answer, the caller decodes the body
			return nil
		}
		httpErr.Body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		resp = nil
		return httpErr
	})
	if retryErr != nil {
		return nil, retryErr
	}

	// Step 5: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		if cachedEntry == nil {
			return nil, &HTTPError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassServer,
				Message:    "not modified without cached entry",
			}
		}
		cache.NotModified.Inc()
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")

		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.Touch(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache expiry")
				}
			}
		}
		return cache.ToResponse(cachedEntry, req), nil
	}

	// Step 6: Store successful answers
	if resp.StatusCode == http.StatusOK && c.cache != nil {
		c.store(ctx, endpoint, cacheKey, resp)
	}

	return resp, nil
}

// lookup returns the cached entry for key, or nil.
func (c *Client) lookup(ctx context.Context, req *http.Request, key cache.Key) *cache.Entry {
	if c.cache == nil || req.Method != http.MethodGet {
		return nil
	}
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn().Err(err).Str("endpoint", key.Endpoint).Msg("Cache get error")
		}
		return nil
	}
	return entry
}

// store writes a 200 answer to the cache, restoring its body for the caller.
func (c *Client) store(ctx context.Context, endpoint string, key cache.Key, resp *http.Response) {
	entry, err := cache.FromResponse(resp)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}
	if entry.TTL() <= 0 {
		return
	}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}
	c.logger.Debug().
		Str("endpoint", endpoint).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// Get performs a GET request to endpoint relative to the base URL.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the response cache, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
