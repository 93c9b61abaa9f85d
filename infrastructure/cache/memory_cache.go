// Package cache provides the cache backends used by the repository layer.
// This file implements the in-process TTL store with lazy expiration, an
// explicitly owned periodic sweep and optional LRU bounds.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"filing-backend/application/ports"
	apperrors "filing-backend/pkg/errors"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often the active sweep runs when none is configured.
const DefaultSweepInterval = 60 * time.Second

// ErrClosed is returned by a MemoryCache after Destroy.
var ErrClosed = errors.New("cache destroyed")

// MemoryCacheConfig bounds the in-process cache. Zero values mean unbounded.
type MemoryCacheConfig struct {
	MaxItems      int
	MaxMemory     int64
	SweepInterval time.Duration
}

// MemoryCache provides an in-memory cache with per-entry TTL.
//
// Expired entries are removed lazily by any Get/Has that finds them and
// actively by the sweep started with Start. Both use the same rule: an
// entry is expired once now is strictly after its expiry. When MaxItems or
// MaxMemory are set, the least recently used entries are evicted to make room.
//
// The cache is safe for concurrent use. The sweep goroutine is owned by
// whoever called Start and must be stopped with Stop or Destroy.
type MemoryCache struct {
	mu          sync.Mutex
	items       map[string]*cacheItem
	lruList     *list.List
	maxItems    int
	maxMemory   int64
	currentSize int64
	closed      bool

	// Statistics
	hits        int64
	misses      int64
	evictions   int64
	expirations int64

	sweepInterval time.Duration
	sweepMu       sync.Mutex
	stopCh        chan struct{}
	doneCh        chan struct{}

	now    func() time.Time
	logger *zap.Logger
}

// cacheItem represents a single cached entry. A zero expiry never expires.
type cacheItem struct {
	key        string
	value      []byte
	size       int64
	expiry     time.Time
	lruElement *list.Element
}

// MemoryOption customises a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a new in-memory cache. The sweep is not running
// until Start is called.
func NewMemoryCache(config MemoryCacheConfig, logger *zap.Logger, opts ...MemoryOption) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}

	c := &MemoryCache{
		items:         make(map[string]*cacheItem),
		lruList:       list.New(),
		maxItems:      config.MaxItems,
		maxMemory:     config.MaxMemory,
		sweepInterval: config.SweepInterval,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, apperrors.NewCacheError("get", ErrClosed)
	}

	item, ok := c.liveItem(key)
	if !ok {
		c.misses++
		return nil, false, nil
	}

	c.lruList.MoveToFront(item.lruElement)
	c.hits++

	// Return a copy to prevent external modifications
	value := make([]byte, len(item.value))
	copy(value, item.value)

	return value, true, nil
}

// Has reports whether key holds a live value. Like Get, it evicts an
// expired entry it finds.
func (c *MemoryCache) Has(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, apperrors.NewCacheError("has", ErrClosed)
	}

	_, ok := c.liveItem(key)
	return ok, nil
}

// Set stores a value in the cache. ttl <= 0 stores it until deleted.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return apperrors.NewCacheError("set", ErrClosed)
	}

	itemSize := int64(len(key) + len(value))

	if c.maxMemory > 0 && itemSize > c.maxMemory {
		c.logger.Warn("Item too large for cache",
			zap.String("key", key),
			zap.Int64("size", itemSize),
			zap.Int64("max_memory", c.maxMemory),
		)
		// Dropping the old value keeps the key from serving stale data.
		if existing, ok := c.items[key]; ok {
			c.removeItem(existing)
		}
		return nil
	}

	if existing, ok := c.items[key]; ok {
		c.removeItem(existing)
	}

	for c.overCapacity(itemSize) && c.lruList.Len() > 0 {
		oldest := c.lruList.Back()
		c.removeItem(oldest.Value.(*cacheItem))
		c.evictions++
	}

	item := &cacheItem{
		key:   key,
		value: make([]byte, len(value)),
		size:  itemSize,
	}
	copy(item.value, value)
	if ttl > 0 {
		item.expiry = c.now().Add(ttl)
	}

	item.lruElement = c.lruList.PushFront(item)
	c.items[key] = item
	c.currentSize += itemSize

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return apperrors.NewCacheError("delete", ErrClosed)
	}

	if item, ok := c.items[key]; ok {
		c.removeItem(item)
	}
	return nil
}

// DeletePattern removes all keys matching pattern. The pattern is compiled
// before the lock is taken so an invalid pattern fails without side effects.
func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	compiled, err := CompilePattern(pattern)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return apperrors.NewCacheError("delete_pattern", ErrClosed)
	}

	if compiled.Literal() {
		if item, ok := c.items[compiled.Prefix()]; ok {
			c.removeItem(item)
		}
		return nil
	}

	toDelete := make([]*cacheItem, 0)
	for key, item := range c.items {
		if compiled.Match(key) {
			toDelete = append(toDelete, item)
		}
	}
	for _, item := range toDelete {
		c.removeItem(item)
	}

	c.logger.Debug("Deleted cache entries by pattern",
		zap.String("pattern", pattern),
		zap.Int("count", len(toDelete)),
	)
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return apperrors.NewCacheError("clear", ErrClosed)
	}

	c.reset()
	return nil
}

// Start launches the periodic sweep. Calling Start on a running cache is a no-op.
func (c *MemoryCache) Start() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	if c.stopCh != nil {
		return
	}

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.sweepLoop(c.sweepInterval, c.stopCh, c.doneCh)
}

// Stop halts the sweep and waits for its goroutine to exit. Entries are kept.
func (c *MemoryCache) Stop() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	if c.stopCh == nil {
		return
	}

	close(c.stopCh)
	<-c.doneCh
	c.stopCh = nil
	c.doneCh = nil
}

// Destroy stops the sweep and releases all entries. Later calls fail with ErrClosed.
func (c *MemoryCache) Destroy() {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	c.closed = true
}

// Running reports whether the sweep goroutine is active.
func (c *MemoryCache) Running() bool {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	return c.stopCh != nil
}

// EvictExpired removes every expired entry and returns how many it removed.
// The sweep calls it on each tick.
func (c *MemoryCache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	toRemove := make([]*cacheItem, 0)
	for _, item := range c.items {
		if item.expiredAt(now) {
			toRemove = append(toRemove, item)
		}
	}
	for _, item := range toRemove {
		c.removeItem(item)
	}
	c.expirations += int64(len(toRemove))

	return len(toRemove)
}

func (c *MemoryCache) sweepLoop(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if n := c.EvictExpired(); n > 0 {
				c.logger.Debug("Cleaned up expired cache items",
					zap.Int("count", n),
				)
			}
		}
	}
}

// liveItem returns the entry for key, evicting it first if expired.
// Must be called with lock held.
func (c *MemoryCache) liveItem(key string) (*cacheItem, bool) {
	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if item.expiredAt(c.now()) {
		c.removeItem(item)
		c.expirations++
		return nil, false
	}
	return item, true
}

func (c *MemoryCache) overCapacity(incoming int64) bool {
	if c.maxItems > 0 && len(c.items) >= c.maxItems {
		return true
	}
	return c.maxMemory > 0 && c.currentSize+incoming > c.maxMemory
}

// removeItem removes an item from the cache (must be called with lock held)
func (c *MemoryCache) removeItem(item *cacheItem) {
	if item.lruElement != nil {
		c.lruList.Remove(item.lruElement)
	}
	delete(c.items, item.key)
	c.currentSize -= item.size
}

func (c *MemoryCache) reset() {
	c.items = make(map[string]*cacheItem)
	c.lruList.Init()
	c.currentSize = 0
}

func (i *cacheItem) expiredAt(now time.Time) bool {
	return !i.expiry.IsZero() && now.After(i.expiry)
}

// Stats returns a snapshot of cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := float64(0)
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Items:       len(c.items),
		Size:        c.currentSize,
		HitRate:     hitRate,
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Items       int
	Size        int64
	HitRate     float64
}

var _ ports.Cache = (*MemoryCache)(nil)
