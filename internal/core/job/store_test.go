package job

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rds "trackerscraper/internal/platform/redis"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.InitPending(ctx, Task{ID: "j1", Request: validReq}))
	j, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, "p1", j.PlayerID)

	require.NoError(t, s.SetProcessing(ctx, "j1"))
	require.NoError(t, s.Complete(ctx, "j1", StatusCompleted, Result{Opponents: 7}))

	j, err = s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, 7, j.Result.Opponents)
}

func TestMemoryStoreUnknownJob(t *testing.T) {
	s := NewMemoryStore(0)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetProcessing(context.Background(), "nope"), ErrNotFound)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.InitPending(ctx, Task{ID: fmt.Sprintf("j%d", i), Request: validReq}))
	}

	_, err := s.Get(ctx, "j0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "j2")
	assert.NoError(t, err)
}

// fakeCache stands in for redis: JSON values with their TTLs plus published messages.
type fakeCache struct {
	values    map[string][]byte
	ttls      map[string]time.Duration
	published []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) CacheGet(_ context.Context, key string, dest interface{}) error {
	b, ok := c.values[key]
	if !ok {
		return rds.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *fakeCache) CacheSet(_ context.Context, key string, val interface{}, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.values[key] = b
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Publish(_ context.Context, channel, msg string) error {
	c.published = append(c.published, channel+"="+msg)
	return nil
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := NewRedisStore(cache)

	require.NoError(t, s.InitPending(ctx, Task{ID: "j1", Request: validReq}))
	assert.Equal(t, 10*time.Minute, cache.ttls["job:j1"])

	require.NoError(t, s.SetProcessing(ctx, "j1"))
	assert.Equal(t, 10*time.Minute, cache.ttls["job:j1"])

	require.NoError(t, s.Complete(ctx, "j1", StatusCompleted, Result{Opponents: 4, Truncated: true}))
	assert.Equal(t, time.Hour, cache.ttls["job:j1"])

	j, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, "p1", j.PlayerID)
	require.NotNil(t, j.FinishedAt)
	assert.Equal(t, 4, j.Result.Opponents)
	assert.True(t, j.Result.Truncated)

	assert.Equal(t, []string{"job:j1=pending", "job:j1=processing", "job:j1=completed"}, cache.published)
}

func TestRedisStoreFailedJobKeepsLongTTL(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := NewRedisStore(cache)

	require.NoError(t, s.InitPending(ctx, Task{ID: "j2", Request: validReq}))
	require.NoError(t, s.Complete(ctx, "j2", StatusFailed, Result{Error: "profile failed to load"}))

	assert.Equal(t, time.Hour, cache.ttls["job:j2"])
	j, err := s.Get(ctx, "j2")
	require.NoError(t, err)
	assert.Equal(t, "profile failed to load", j.Result.Error)
}

func TestRedisStoreUnknownJob(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(newFakeCache())

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetProcessing(ctx, "nope"), ErrNotFound)
	assert.ErrorIs(t, s.Complete(ctx, "nope", StatusCompleted, Result{}), ErrNotFound)
}

func TestRecordTTL(t *testing.T) {
	tests := []struct {
		status Status
		want   time.Duration
	}{
		{StatusPending, 10 * time.Minute},
		{StatusProcessing, 10 * time.Minute},
		{StatusCompleted, time.Hour},
		{StatusFailed, time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ttl(tt.status), string(tt.status))
	}
}
