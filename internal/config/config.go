package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/tracking-scanner/pkg/client"
	"github.com/Sternrassler/tracking-scanner/pkg/logging"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Defaults applied by Load.
const (
	DefaultAPIURL      = client.DefaultBaseURL
	DefaultWorkers     = 4
	DefaultChunkSize   = 10
	DefaultHTTPTimeout = 30 * time.Second
	DefaultCacheTTL    = 24 * time.Hour
)

// Config is the complete process configuration.
type Config struct {
	// Scan
	Template            string
	Workers             int
	ChunkSize           int
	AbortOnStorageError bool
	FilterInclude       []string
	FilterExclude       []string

	// Tracking service
	UserID            string
	APIURL            string
	RequestsPerSecond float64 // process-wide, shared by all workers
	HTTPTimeout       time.Duration

	// Storage
	StoreBackend         string
	DatabaseURL          string
	DatabaseMaxOpenConns int
	DatabaseMaxIdleConns int
	RedisURL             string
	CacheTTL             time.Duration

	// Observability
	LogLevel    string
	LogPretty   bool
	MetricsAddr string
}

// Load reads the configuration from the environment. It does not validate.
func Load() Config {
	return Config{
		Template:            GetEnvStr("TRACKING_TEMPLATE", ""),
		Workers:             GetEnvInt("WORKERS", DefaultWorkers),
		ChunkSize:           GetEnvInt("CHUNK_SIZE", DefaultChunkSize),
		AbortOnStorageError: GetEnvBool("ABORT_ON_STORAGE_ERROR", false),
		FilterInclude:       ParseCommaSeparatedList(GetEnvStr("FILTER_INCLUDE", "")),
		FilterExclude:       ParseCommaSeparatedList(GetEnvStr("FILTER_EXCLUDE", "")),

		UserID:            GetEnvStr("USPS_USER_ID", ""),
		APIURL:            GetEnvStr("USPS_API_URL", DefaultAPIURL),
		RequestsPerSecond: GetEnvFloat("REQUESTS_PER_SECOND", 0),
		HTTPTimeout:       GetEnvDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),

		StoreBackend:         strings.ToLower(GetEnvStr("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:          GetEnvStr("DATABASE_URL", ""),
		DatabaseMaxOpenConns: GetEnvInt("DATABASE_MAX_OPEN_CONNS", 4),
		DatabaseMaxIdleConns: GetEnvInt("DATABASE_MAX_IDLE_CONNS", 2),
		RedisURL:             GetEnvStr("REDIS_URL", ""),
		CacheTTL:             GetEnvDuration("CACHE_TTL", DefaultCacheTTL),

		LogLevel:    GetEnvStr("LOG_LEVEL", string(logging.LevelInfo)),
		LogPretty:   GetEnvBool("LOG_PRETTY", false),
		MetricsAddr: GetEnvStr("METRICS_ADDR", ""),
	}
}

// Validate reports every invalid setting at once. The template itself is
// parsed when the scan starts.
func (c Config) Validate() error {
	var errs []error

	if c.Template == "" {
		errs = append(errs, errors.New("TRACKING_TEMPLATE is required"))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("USPS_USER_ID is required"))
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("USPS_API_URL %q is not an absolute URL", c.APIURL))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("WORKERS must be >= 1 (got %d)", c.Workers))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be >= 1 (got %d)", c.ChunkSize))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("REQUESTS_PER_SECOND must be >= 0 (got %v)", c.RequestsPerSecond))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive (got %s)", c.HTTPTimeout))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be >= 0 (got %s)", c.CacheTTL))
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
		if c.DatabaseMaxOpenConns < 1 {
			errs = append(errs, fmt.Errorf("DATABASE_MAX_OPEN_CONNS must be >= 1 (got %d)", c.DatabaseMaxOpenConns))
		}
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of postgres, redis, memory", c.StoreBackend))
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether a Redis connection is needed, for the store or
// for the response cache.
func (c Config) UsesRedis() bool {
	return c.StoreBackend == BackendRedis || (c.RedisURL != "" && c.CacheTTL > 0)
}

// String renders the configuration with credentials masked.
func (c Config) String() string {
	return fmt.Sprintf(
		"template=%s workers=%d chunk_size=%d user_id=%s api_url=%s store=%s database_url=%s redis_url=%s cache_ttl=%s",
		c.Template, c.Workers, c.ChunkSize, mask(c.UserID), c.APIURL,
		c.StoreBackend, maskURL(c.DatabaseURL), maskURL(c.RedisURL), c.CacheTTL,
	)
}

// mask keeps the first two characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 2 {
		return "***"
	}
	return s[:2] + "***"
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
