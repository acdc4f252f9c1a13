package store

import (
	"context"
	"testing"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_InsertBatch(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.EnsureSchema(ctx))

	n, err := s.InsertBatch(ctx, testBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "Arrived FRANCE", mr.HGet(RecordKey("EW005251410US"), "details"))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRedisStore_IgnoresConflicts(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	_, err := s.InsertBatch(ctx, tracking.Batch{{ID: "A", Summary: "first", Details: "1"}})
	require.NoError(t, err)

	n, err := s.InsertBatch(ctx, tracking.Batch{
		{ID: "A", Summary: "second", Details: "2"},
		{ID: "B", Summary: "b"},
		{ID: "C", Summary: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r, ok, err := s.Get(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", r.Summary)
	assert.Equal(t, "1", r.Details)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRedisStore_EmptyDetails(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	_, err := s.InsertBatch(ctx, tracking.Batch{{ID: "A", Summary: "no events"}})
	require.NoError(t, err)

	r, ok, err := s.Get(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tracking.Record{ID: "A", Summary: "no events"}, r)
}

func TestRedisStore_GetMissing(t *testing.T) {
	s, _ := newRedisStore(t)

	_, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.InsertBatch(ctx, testBatch())
	assert.ErrorIs(t, err, ErrStorage)

	assert.ErrorIs(t, s.EnsureSchema(ctx), ErrStorage)
}

func TestNewRedisStore_NilClient(t *testing.T) {
	assert.Panics(t, func() { NewRedisStore(nil) })
}
