package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Redis keys for record storage.
const (
	RedisKeyRecordPrefix = "tracking:record:"
	RedisKeyIndex        = "tracking:ids"
)

// insertIfAbsent writes each record hash only when its key does not exist
// yet. KEYS[1] is the id index, KEYS[2..] the record keys; ARGV holds
// (id, summary, details) triples in the same order. The script runs
// atomically on the server.
var insertIfAbsent = redis.NewScript(`
local inserted = 0
for i = 2, #KEYS do
  local base = (i - 2) * 3
  if redis.call('EXISTS', KEYS[i]) == 0 then
    redis.call('HSET', KEYS[i], 'summary', ARGV[base + 2], 'details', ARGV[base + 3])
    redis.call('SADD', KEYS[1], ARGV[base + 1])
    inserted = inserted + 1
  end
end
return inserted
`)

// RedisStore keeps each record as a hash under tracking:record:<id>.
type RedisStore struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a store on redisClient. The caller keeps
// ownership of the client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		logger: log.With().Str("component", "redis-store").Logger(),
	}
}

// RecordKey returns the Redis key of id.
func RecordKey(id string) string {
	return RedisKeyRecordPrefix + id
}

// EnsureSchema verifies the connection; Redis needs no schema.
func (s *RedisStore) EnsureSchema(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return &StorageError{Backend: BackendRedis, Op: "ping", Err: err}
	}
	return nil
}

// InsertBatch implements Store with an explicit exists check and
// conditional write per record, executed as one script.
func (s *RedisStore) InsertBatch(ctx context.Context, batch tracking.Batch) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(batch)+1)
	args := make([]interface{}, 0, len(batch)*3)
	keys = append(keys, RedisKeyIndex)
	for _, r := range batch {
		keys = append(keys, RecordKey(r.ID))
		args = append(args, r.ID, r.Summary, r.Details)
	}

	n, err := insertIfAbsent.Run(ctx, s.redis, keys, args...).Int64()
	if err != nil {
		err = &StorageError{Backend: BackendRedis, Op: "insert batch", Err: err}
		observeBatch(BackendRedis, len(batch), 0, err)
		return 0, err
	}

	observeBatch(BackendRedis, len(batch), int(n), nil)
	s.logger.Debug().
		Int("batch_size", len(batch)).
		Int64("inserted", n).
		Msg("Batch written")

	return int(n), nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (tracking.Record, bool, error) {
	fields, err := s.redis.HGetAll(ctx, RecordKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return tracking.Record{}, false, &StorageError{Backend: BackendRedis, Op: "get", Err: err}
	}
	if len(fields) == 0 {
		return tracking.Record{}, false, nil
	}

	summary, ok := fields["summary"]
	if !ok {
		return tracking.Record{}, false, &StorageError{
			Backend: BackendRedis,
			Op:      "get",
			Err:     fmt.Errorf("record %s has no summary field", id),
		}
	}
	return tracking.Record{ID: id, Summary: summary, Details: fields["details"]}, true, nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := s.redis.SCard(ctx, RedisKeyIndex).Result()
	if err != nil {
		return 0, &StorageError{Backend: BackendRedis, Op: "count", Err: err}
	}
	return n, nil
}

// Close implements Store. The Redis client belongs to the caller.
func (s *RedisStore) Close() error {
	return nil
}
