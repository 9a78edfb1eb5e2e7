package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// API key tiers and their per-minute request allowances.
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// TierLimit returns the requests-per-minute allowance for a tier.
// Unknown tiers get the free allowance.
func TierLimit(tier string) int {
	switch tier {
	case TierPro:
		return 1000
	case TierEnterprise:
		return 5000
	default:
		return 60
	}
}

// RateLimiter keeps one token bucket per caller key. Buckets refill at the
// caller's per-minute rate and allow a burst of one full minute. Idle
// buckets are dropped after ttl so the map cannot grow without bound.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	done     chan struct{}
	stop     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates the registry and starts its cleanup loop.
// Call Stop on shutdown.
func NewRateLimiter(ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether the caller identified by key may proceed under a
// perMinute allowance. The first sighting of a key creates its bucket.
func (rl *RateLimiter) Allow(key string, perMinute int) bool {
	if perMinute <= 0 {
		perMinute = TierLimit(TierFree)
	}

	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// Stop terminates the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	interval := rl.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.ttl)
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if v.lastSeen.Before(cutoff) {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
