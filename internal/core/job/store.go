package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rds "trackerscraper/internal/platform/redis"
)

var ErrNotFound = errors.New("job not found")

// Store keeps job records for the status API. Record failures never affect a job.
type Store interface {
	InitPending(ctx context.Context, t Task) error
	SetProcessing(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID string, status Status, res Result) error
	Get(ctx context.Context, jobID string) (*Job, error)
}

func newRecord(t Task) Job {
	return Job{JobID: t.ID, PlayerID: t.PlayerID, Status: StatusPending, AcceptedAt: t.AcceptedAt}
}

func finish(j *Job, status Status, res Result) {
	now := time.Now()
	j.Status = status
	j.FinishedAt = &now
	j.Result = &res
}

// MemoryStore keeps the most recent records in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	limit int
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 256
	}
	return &MemoryStore{jobs: make(map[string]*Job), limit: limit}
}

func (s *MemoryStore) InitPending(_ context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := newRecord(t)
	s.jobs[t.ID] = &rec
	s.order = append(s.order, t.ID)
	for len(s.order) > s.limit {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) SetProcessing(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	j.Status = StatusProcessing
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, jobID string, status Status, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	finish(j, status, res)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	cp := *j
	return &cp, nil
}

// RecordCache is the slice of *redis.Service the record store needs.
type RecordCache interface {
	CacheGet(ctx context.Context, key string, dest interface{}) error
	CacheSet(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Publish(ctx context.Context, channel, msg string) error
}

// RedisStore keeps records in redis with a TTL and publishes an update on every write.
type RedisStore struct{ redis RecordCache }

func NewRedisStore(redis RecordCache) *RedisStore { return &RedisStore{redis: redis} }

func (s *RedisStore) InitPending(ctx context.Context, t Task) error {
	return s.save(ctx, newRecord(t))
}

func (s *RedisStore) SetProcessing(ctx context.Context, jobID string) error {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	j.Status = StatusProcessing
	return s.save(ctx, *j)
}

func (s *RedisStore) Complete(ctx context.Context, jobID string, status Status, res Result) error {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	finish(j, status, res)
	return s.save(ctx, *j)
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(jobID), &j); err != nil {
		if errors.Is(err, rds.ErrMiss) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return nil, err
	}
	return &j, nil
}

func (s *RedisStore) save(ctx context.Context, j Job) error {
	if err := s.redis.CacheSet(ctx, key(j.JobID), j, ttl(j.Status)); err != nil {
		return err
	}
	_ = s.redis.Publish(ctx, key(j.JobID), string(j.Status))
	return nil
}

func key(id string) string { return "job:" + id }

func ttl(s Status) time.Duration {
	if s == StatusCompleted || s == StatusFailed {
		return time.Hour
	}
	return 10 * time.Minute
}
