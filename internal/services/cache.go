package services

import (
	"strings"
	"sync"
	"time"

	"github.com/codescanai/codescan/internal/models"
)

// TTLCache is the in-memory store behind incremental scanning. Entries
// expire after a fixed TTL; a janitor goroutine sweeps expired entries so
// an idle server does not hold results forever.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	done    chan struct{}
	stop    sync.Once
}

type cacheEntry struct {
	result    *models.AnalysisResult
	expiresAt time.Time
}

// NewTTLCache creates the cache and starts its janitor.
// Call Stop on shutdown.
func NewTTLCache(ttl time.Duration) *TTLCache {
	c := &TTLCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		done:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get returns a copy of the cached result, so callers can mutate what they
// receive without corrupting the stored entry.
func (c *TTLCache) Get(key string) (*models.AnalysisResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.result.Clone(), true
}

// Set stores a copy of result under key with the configured TTL.
func (c *TTLCache) Set(key string, result *models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		result:    result.Clone(),
		expiresAt: time.Now().Add(c.ttl),
	}
}

// DeletePrefix removes every entry whose key starts with prefix and
// returns how many were removed. An empty prefix clears everything.
func (c *TTLCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until
// the janitor sweeps them.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop terminates the janitor. Safe to call more than once.
func (c *TTLCache) Stop() {
	c.stop.Do(func() { close(c.done) })
}

func (c *TTLCache) janitor() {
	interval := c.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
