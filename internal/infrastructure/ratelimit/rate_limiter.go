package ratelimit

import (
	"sync"
	"time"
)

const (
	ActionSendMessage = "send_message"
	ActionTyping      = "typing"
	ActionMarkRead    = "mark_read"
)

// Policy describes a bucket: Burst tokens, one token back every Refill.
type Policy struct {
	Burst  int
	Refill time.Duration
}

var defaultPolicies = map[string]Policy{
	ActionSendMessage: {Burst: 10, Refill: 6 * time.Second}, // 10 per minute
	ActionTyping:      {Burst: 30, Refill: 2 * time.Second},
	ActionMarkRead:    {Burst: 20, Refill: 3 * time.Second},
}

var fallbackPolicy = Policy{Burst: 20, Refill: 3 * time.Second}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     int
	policy     Policy
	lastRefill time.Time
	lastUsed   time.Time
}

func (b *tokenBucket) take(now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if refills := int(now.Sub(b.lastRefill) / b.policy.Refill); refills > 0 {
		b.tokens += refills
		if b.tokens > b.policy.Burst {
			b.tokens = b.policy.Burst
		}
		b.lastRefill = b.lastRefill.Add(time.Duration(refills) * b.policy.Refill)
	}
	b.lastUsed = now

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}
	return false, b.lastRefill.Add(b.policy.Refill).Sub(now)
}

// RateLimiter keeps one token bucket per (user, action).
type RateLimiter struct {
	mu       sync.RWMutex
	buckets  map[string]*tokenBucket
	policies map[string]Policy
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithPolicies(defaultPolicies)
}

func NewRateLimiterWithPolicies(policies map[string]Policy) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*tokenBucket),
		policies: policies,
		now:      time.Now,
	}
}

// Allow consumes a token for the user's action. When none is left it
// reports how long until the next one.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			policy, ok := rl.policies[action]
			if !ok {
				policy = fallbackPolicy
			}
			bucket = &tokenBucket{tokens: policy.Burst, policy: policy, lastRefill: now}
			rl.buckets[key] = bucket
		}
		rl.mu.Unlock()
	}

	return bucket.take(now)
}

// Cleanup drops buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		idle := now.Sub(bucket.lastUsed)
		bucket.mu.Unlock()
		if idle > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine runs Cleanup every interval until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-done:
				return
			}
		}
	}()
}
