package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Per-user chat actions.
const (
	ActionSendMessage = "send_message"
	ActionCreateChat  = "create_chat"
)

// Policy describes a token bucket: Burst tokens, Refill tokens added every Interval.
type Policy struct {
	Burst    int
	Refill   int
	Interval time.Duration
}

// DefaultPolicies are the chat action limits.
var DefaultPolicies = map[string]Policy{
	// 10 messages per minute
	ActionSendMessage: {Burst: 10, Refill: 1, Interval: 6 * time.Second},
	// 5 new conversations per hour
	ActionCreateChat: {Burst: 5, Refill: 1, Interval: 12 * time.Minute},
}

var fallbackPolicy = Policy{Burst: 20, Refill: 1, Interval: 3 * time.Second}

type TokenBucket struct {
	tokens     int
	policy     Policy
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

func NewTokenBucket(policy Policy, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     policy.Burst,
		policy:     policy,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes a token if one is available. When none is, it returns the
// wait until the next refill.
func (tb *TokenBucket) Allow(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastUsed = now

	intervals := int(now.Sub(tb.lastRefill) / tb.policy.Interval)
	if intervals > 0 {
		tb.tokens += intervals * tb.policy.Refill
		if tb.tokens > tb.policy.Burst {
			tb.tokens = tb.policy.Burst
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(intervals) * tb.policy.Interval)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	return false, tb.lastRefill.Add(tb.policy.Interval).Sub(now)
}

func (tb *TokenBucket) Tokens() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.tokens
}

func (tb *TokenBucket) idleSince(now time.Time) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return now.Sub(tb.lastUsed)
}

// ActionLimiter keeps one token bucket per (user, action).
type ActionLimiter struct {
	buckets  map[string]*TokenBucket
	policies map[string]Policy
	now      func() time.Time
	mutex    sync.RWMutex
}

func NewActionLimiter(policies map[string]Policy) *ActionLimiter {
	if policies == nil {
		policies = DefaultPolicies
	}
	return &ActionLimiter{
		buckets:  make(map[string]*TokenBucket),
		policies: policies,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (rl *ActionLimiter) WithClock(now func() time.Time) *ActionLimiter {
	rl.now = now
	return rl
}

func (rl *ActionLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			policy, ok := rl.policies[action]
			if !ok {
				policy = fallbackPolicy
			}
			bucket = NewTokenBucket(policy, now)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow(now)
}

// Status returns the remaining and maximum tokens for a user action. An
// untouched action reports a full bucket.
func (rl *ActionLimiter) Status(userID, action string) (tokens int, burst int) {
	rl.mutex.RLock()
	bucket, exists := rl.buckets[userID+":"+action]
	rl.mutex.RUnlock()

	if !exists {
		policy, ok := rl.policies[action]
		if !ok {
			policy = fallbackPolicy
		}
		return policy.Burst, policy.Burst
	}

	return bucket.Tokens(), bucket.policy.Burst
}

// Cleanup drops buckets idle for longer than maxIdle.
func (rl *ActionLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, bucket := range rl.buckets {
		if bucket.idleSince(now) > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *ActionLimiter) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(maxIdle)
			}
		}
	}()
}
