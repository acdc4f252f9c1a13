// Package client provides the tracking service batch client: one remote
// TrackV2 query per chunk of identifiers, parsed into records aligned with
// request order.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/tracking-scanner/pkg/cache"
	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for tracking queries.
var (
	trackingQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_queries_total",
		Help: "Total tracking chunk queries by outcome",
	}, []string{"status"})

	trackingQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracking_query_duration_seconds",
		Help:    "Tracking chunk query duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	trackingQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_query_errors_total",
		Help: "Total tracking chunk query errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the production USPS Web Tools endpoint.
const DefaultBaseURL = "http://production.shippingapis.com/ShippingAPI.dll"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// ErrorClass represents a classification of chunk failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents responses that could not be decoded.
	ErrorClassParse ErrorClass = "parse"

	// ErrorClassService represents a root <Error> document from the service.
	ErrorClassService ErrorClass = "service"
)

// Client queries the tracking service in chunks.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the ShippingAPI endpoint.
	BaseURL string

	// UserID is the Web Tools USERID credential (REQUIRED).
	UserID string

	// UserAgent header sent with every request.
	UserAgent string

	// ChunkSize is the maximum number of identifiers per query.
	ChunkSize int

	// Timeout per HTTP request.
	Timeout time.Duration

	// RequestsPerSecond paces outgoing queries of this client when Limiter
	// is nil. 0 disables pacing.
	RequestsPerSecond float64

	// Limiter, when set, paces every client built with it and overrides
	// RequestsPerSecond.
	Limiter *rate.Limiter

	// Cache for raw responses. Nil disables caching.
	Cache    *cache.Manager
	CacheTTL time.Duration
}

// DefaultConfig returns a default configuration for the given credential.
func DefaultConfig(userID string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserID:    userID,
		UserAgent: "tracking-scanner/0.1.0",
		ChunkSize: 10,
		Timeout:   30 * time.Second,
		CacheTTL:  24 * time.Hour,
	}
}

// NewLimiter returns a limiter allowing rps queries per second with a burst
// of one, or nil when rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// New creates a new tracking client.
func New(cfg Config) (*Client, error) {
	if cfg.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk_size must be >= 1 (got %d)", cfg.ChunkSize)
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %v)", cfg.RequestsPerSecond)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewLimiter(cfg.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		cache:   cfg.Cache,
		config:  cfg,
		logger:  log.With().Str("component", "tracking-client").Logger(),
	}, nil
}

// Track queries the tracking service for ids and returns one record per
// recognized identifier, in request order. A failure loses the whole chunk.
func (c *Client) Track(ctx context.Context, ids []string) (tracking.Batch, error) {
	if len(ids) == 0 {
		return tracking.Batch{}, nil
	}
	if len(ids) > c.config.ChunkSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, len(ids), c.config.ChunkSize)
	}

	startTime := time.Now()
	defer func() {
		trackingQueryDuration.Observe(time.Since(startTime).Seconds())
	}()

	key := cache.Key{IDs: ids}
	if batch, ok := c.fromCache(ctx, key); ok {
		trackingQueriesTotal.WithLabelValues("cached").Inc()
		return batch, nil
	}

	body, err := c.fetch(ctx, ids)
	if err != nil {
		c.recordError(err)
		return nil, err
	}

	batch, err := decodeResponse(body, ids)
	if err != nil {
		c.recordError(err)
		c.logger.Warn().
			Err(err).
			Str("first_id", ids[0]).
			Int("chunk_size", len(ids)).
			Msg("Tracking response rejected")
		return nil, err
	}

	trackingQueriesTotal.WithLabelValues("ok").Inc()
	c.toCache(ctx, key, body)

	c.logger.Debug().
		Str("first_id", ids[0]).
		Int("requested", len(ids)).
		Int("records", len(batch)).
		Dur("duration", time.Since(startTime)).
		Msg("Tracking chunk queried")

	return batch, nil
}

// fetch issues the TrackV2 request and returns the raw body.
func (c *Client) fetch(ctx context.Context, ids []string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &RemoteResponseError{
				ErrorClass: ErrorClassNetwork,
				Message:    "wait for request slot",
				Err:        err,
			}
		}
	}

	payload, err := encodeRequest(c.config.UserID, ids)
	if err != nil {
		return nil, err
	}

	target, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	query := target.Query()
	query.Set("API", "TrackV2")
	query.Set("XML", payload)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("first_id", ids[0]).Msg("HTTP request failed")
		return nil, &RemoteResponseError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if class := classifyStatus(resp.StatusCode); class != "" {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		c.logger.Warn().
			Str("first_id", ids[0]).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Tracking request error")
		return nil, &RemoteResponseError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RemoteResponseError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return body, nil
}

func (c *Client) fromCache(ctx context.Context, key cache.Key) (tracking.Batch, bool) {
	if c.cache == nil {
		return nil, false
	}

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Msg("Cache get error")
		}
		return nil, false
	}

	batch, err := decodeResponse(data, key.IDs)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Cached response no longer decodes, dropping it")
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}

	c.logger.Debug().Str("first_id", key.IDs[0]).Msg("Tracking chunk served from cache")
	return batch, true
}

func (c *Client) toCache(ctx context.Context, key cache.Key, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.config.CacheTTL); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
	}
}

func (c *Client) recordError(err error) {
	class := classOf(err)
	if class == "" {
		class = "other"
	}
	trackingQueryErrorsTotal.WithLabelValues(string(class)).Inc()
	trackingQueriesTotal.WithLabelValues("error").Inc()
}

// classifyStatus maps an HTTP status to an error class; "" means success.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 300:
		// unfollowed redirects count as client errors
		return ErrorClassClient
	default:
		return ""
	}
}

// ChunkSize returns the configured maximum chunk size.
func (c *Client) ChunkSize() int {
	return c.config.ChunkSize
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
