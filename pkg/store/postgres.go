package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	insertRecordQuery = `
		INSERT INTO trackings (id, summary, details)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	selectRecordQuery = `SELECT id, summary, details FROM trackings WHERE id = $1`
	countRecordsQuery = `SELECT COUNT(*) FROM trackings`
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPostgresConfig returns pool defaults for databaseURL. The single
// writer needs few connections.
func DefaultPostgresConfig(databaseURL string) PostgresConfig {
	return PostgresConfig{
		DatabaseURL:     databaseURL,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// PostgresStore keeps records in the trackings table.
type PostgresStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenPostgres connects to PostgreSQL and verifies the connection.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL cannot be empty")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an open database handle. The store takes
// ownership of db and closes it on Close.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.With().Str("component", "postgres-store").Logger(),
	}
}

// EnsureSchema applies the embedded migrations.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if err := runMigrations(ctx, s.db, s.logger); err != nil {
		return &StorageError{Backend: BackendPostgres, Op: "ensure schema", Err: err}
	}
	return nil
}

// InsertBatch implements Store with one transaction per batch and
// ON CONFLICT DO NOTHING per row.
func (s *PostgresStore) InsertBatch(ctx context.Context, batch tracking.Batch) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	inserted, err := s.insertBatch(ctx, batch)
	observeBatch(BackendPostgres, len(batch), inserted, err)
	if err != nil {
		return 0, err
	}

	s.logger.Debug().
		Int("batch_size", len(batch)).
		Int("inserted", inserted).
		Msg("Batch committed")

	return inserted, nil
}

func (s *PostgresStore) insertBatch(ctx context.Context, batch tracking.Batch) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StorageError{Backend: BackendPostgres, Op: "begin transaction", Err: err}
	}

	defer func() {
		_ = tx.Rollback() // Safe to call even after commit
	}()

	inserted := 0
	for _, r := range batch {
		res, err := tx.ExecContext(ctx, insertRecordQuery, r.ID, r.Summary, r.Details)
		if err != nil {
			return 0, &StorageError{Backend: BackendPostgres, Op: "insert " + r.ID, Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &StorageError{Backend: BackendPostgres, Op: "rows affected", Err: err}
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Backend: BackendPostgres, Op: "commit", Err: err}
	}

	return inserted, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (tracking.Record, bool, error) {
	var r tracking.Record
	err := s.db.QueryRowContext(ctx, selectRecordQuery, id).Scan(&r.ID, &r.Summary, &r.Details)
	if errors.Is(err, sql.ErrNoRows) {
		return tracking.Record{}, false, nil
	}
	if err != nil {
		return tracking.Record{}, false, &StorageError{Backend: BackendPostgres, Op: "get", Err: err}
	}
	return r, true, nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countRecordsQuery).Scan(&n); err != nil {
		return 0, &StorageError{Backend: BackendPostgres, Op: "count", Err: err}
	}
	return n, nil
}

// Close closes the database connection pool.
// This method is safe to call multiple times.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
