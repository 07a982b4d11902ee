package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowStore counts hits per key inside a fixed window.
type WindowStore interface {
	// Incr records one hit and returns the count in the current window and
	// when that window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, rounded up to a second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait.Round(time.Second)
}

// FixedWindow allows Limit hits per key in each Window.
type FixedWindow struct {
	store  WindowStore
	limit  int
	window time.Duration
}

func NewFixedWindow(store WindowStore, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		store:  store,
		limit:  limit,
		window: window,
	}
}

func (fw *FixedWindow) Limit() int {
	return fw.limit
}

func (fw *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := fw.store.Incr(ctx, key, fw.window)
	if err != nil {
		return Decision{Allowed: true, Limit: fw.limit, Remaining: fw.limit}, err
	}

	remaining := fw.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(fw.limit),
		Limit:     fw.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

type windowCounter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process. Expired windows are dropped by Sweep.
type MemoryStore struct {
	counters map[string]*windowCounter
	now      func() time.Time
	mutex    sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	counter, ok := s.counters[key]
	if !ok || !now.Before(counter.resetAt) {
		counter = &windowCounter{resetAt: now.Add(window)}
		s.counters[key] = counter
	}
	counter.count++

	return counter.count, counter.resetAt, nil
}

func (s *MemoryStore) Sweep() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, counter := range s.counters {
		if !now.Before(counter.resetAt) {
			delete(s.counters, key)
		}
	}
}

// StartSweep runs Sweep every interval until ctx is done.
func (s *MemoryStore) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// RedisStore shares counters between instances. The key expires with the
// window so the first INCR of a new window starts from zero.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := fmt.Sprintf("%s:%s", s.prefix, key)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.PTTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit pipeline: %w", err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}

	return incr.Val(), time.Now().Add(remaining), nil
}
