// Command tracking-scanner walks a tracking-number template, queries the
// USPS TrackV2 service for every identifier and stores the matching records.
//
// Configuration is read from the environment; see internal/config.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/tracking-scanner/internal/config"
	"github.com/Sternrassler/tracking-scanner/pkg/cache"
	"github.com/Sternrassler/tracking-scanner/pkg/client"
	"github.com/Sternrassler/tracking-scanner/pkg/filter"
	"github.com/Sternrassler/tracking-scanner/pkg/logging"
	"github.com/Sternrassler/tracking-scanner/pkg/metrics"
	"github.com/Sternrassler/tracking-scanner/pkg/pipeline"
	"github.com/Sternrassler/tracking-scanner/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.Setup(logging.Config{
		Level:  level,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		stop()
		log.Fatal().Err(err).Msg("Scan failed")
	}
}

// run wires the components described by cfg and executes one scan. The
// elapsed time is written to out even when the run fails part way.
func run(ctx context.Context, cfg config.Config, out io.Writer) error {
	logger := logging.NewLogger("main")
	logger.Info().Stringer("config", cfg).Msg("Starting tracking-scanner")

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, logging.NewLogger("metrics"))
		if _, err := srv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		var err error
		redisClient, err = newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info().Str("addr", redisClient.Options().Addr).Msg("Connected to Redis")
	}

	st, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		return err
	}

	clientCfg := clientConfig(cfg, redisClient)
	factory := func() (pipeline.Tracker, error) {
		c, err := client.New(clientCfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	orch, err := pipeline.New(pipeline.Config{
		Template:            cfg.Template,
		Workers:             cfg.Workers,
		ChunkSize:           cfg.ChunkSize,
		AbortOnStorageError: cfg.AbortOnStorageError,
	}, factory, buildPredicate(cfg), st)
	if err != nil {
		_ = st.Close()
		return err
	}

	report, err := orch.Run(ctx)
	if report != nil {
		fmt.Fprintf(out, "Elapsed: %s\n", report.Elapsed.Round(time.Millisecond))
	}
	return err
}

// newRedisClient accepts both redis:// URLs and plain host:port addresses.
func newRedisClient(ctx context.Context, raw string) (*redis.Client, error) {
	opts, err := redisOptions(raw)
	if err != nil {
		return nil, err
	}

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return c, nil
}

func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

// openStore creates the backend selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg config.Config, redisClient *redis.Client) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pgCfg := store.DefaultPostgresConfig(cfg.DatabaseURL)
		pgCfg.MaxOpenConns = cfg.DatabaseMaxOpenConns
		pgCfg.MaxIdleConns = cfg.DatabaseMaxIdleConns
		return store.OpenPostgres(ctx, pgCfg)
	case config.BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis backend selected without a redis connection")
		}
		return store.NewRedisStore(redisClient), nil
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func clientConfig(cfg config.Config, redisClient *redis.Client) client.Config {
	c := client.DefaultConfig(cfg.UserID)
	c.BaseURL = cfg.APIURL
	c.ChunkSize = cfg.ChunkSize
	c.Timeout = cfg.HTTPTimeout
	c.Limiter = client.NewLimiter(cfg.RequestsPerSecond)
	c.CacheTTL = cfg.CacheTTL
	if redisClient != nil && cfg.CacheTTL > 0 {
		c.Cache = cache.NewManager(redisClient)
	}
	return c
}

func buildPredicate(cfg config.Config) filter.Predicate {
	if len(cfg.FilterInclude) == 0 && len(cfg.FilterExclude) == 0 {
		return filter.AcceptAll
	}
	return filter.DetailsFilter{
		Include: cfg.FilterInclude,
		Exclude: cfg.FilterExclude,
	}
}
