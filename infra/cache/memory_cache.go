package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/presale/pkg/cache"
	"github.com/amirasaad/presale/pkg/progress"
	"github.com/google/uuid"
)

// MemoryCache implements cache.ProgressCache using in-memory storage.
type MemoryCache struct {
	entries map[uuid.UUID]*cacheEntry
	mu      sync.RWMutex
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	summary   progress.Summary
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache with a background sweeper.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanup(5 * time.Minute)
	return c
}

// Get retrieves a summary from cache.
func (c *MemoryCache) Get(_ context.Context, roundID uuid.UUID) (*progress.Summary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[roundID]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, nil
	}
	s := entry.summary
	return &s, nil
}

// Set stores a summary with TTL.
func (c *MemoryCache) Set(_ context.Context, roundID uuid.UUID, summary *progress.Summary, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[roundID] = &cacheEntry{summary: *summary, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes a summary from cache.
func (c *MemoryCache) Delete(_ context.Context, roundID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, roundID)
	return nil
}

// Close stops the background sweeper.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// cleanup removes expired entries from cache
func (c *MemoryCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

var _ cache.ProgressCache = (*MemoryCache)(nil)
