package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/models"
)

type entry struct {
	dataset   *models.TrackingDataset
	expiresAt time.Time
	lastUsed  time.Time
}

// MemoryCache is an in-process DatasetCache with TTL expiry, LRU eviction at
// capacity, and a background janitor for expired entries.
type MemoryCache struct {
	items   map[string]*entry
	mutex   sync.RWMutex
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
	logger  *zap.Logger
	cleanup *time.Ticker
	stopCh  chan struct{}
}

func NewMemoryCache(maxSize int, ttl time.Duration, logger *zap.Logger) *MemoryCache {
	c := &MemoryCache{
		items:   make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	c.cleanup = time.NewTicker(1 * time.Minute)
	go c.cleanupExpired()

	return c
}

func (c *MemoryCache) Get(ctx context.Context, source string) (*models.TrackingDataset, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.items[source]
	if !exists {
		c.misses++
		return nil, ErrCacheMiss
	}

	if time.Now().After(e.expiresAt) {
		delete(c.items, source)
		c.misses++
		return nil, ErrCacheMiss
	}

	e.lastUsed = time.Now()
	c.hits++
	return e.dataset, nil
}

func (c *MemoryCache) Set(ctx context.Context, source string, ds *models.TrackingDataset) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.items) >= c.maxSize {
		c.evictLRU()
	}

	c.items[source] = &entry{
		dataset:   ds,
		expiresAt: time.Now().Add(c.ttl),
		lastUsed:  time.Now(),
	}

	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, source string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, source)
	return nil
}

func (c *MemoryCache) Stats(ctx context.Context) (*Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return &Stats{
		Entries: len(c.items),
		Hits:    c.hits,
		Misses:  c.misses,
	}, nil
}

func (c *MemoryCache) Close() error {
	if c.cleanup != nil {
		c.cleanup.Stop()
	}
	close(c.stopCh)
	return nil
}

// evictLRU removes the least recently used entry. Caller holds the lock.
func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.items {
		if oldestKey == "" || e.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastUsed
		}
	}

	if oldestKey != "" {
		c.logger.Debug("Evicting cached dataset", zap.String("source", oldestKey))
		delete(c.items, oldestKey)
	}
}

func (c *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-c.cleanup.C:
			c.mutex.Lock()
			now := time.Now()
			for key, e := range c.items {
				if now.After(e.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopCh:
			return
		}
	}
}
