package cache

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"parsemill/internal/domain"
	"parsemill/internal/port"
)

// Tiered walks its tiers fastest-first. A hit in a slower tier promotes the
// value into every faster tier before returning; writes go through to every
// tier; a failing tier is logged and skipped so the others keep serving.
// All operations serialize on one instance mutex.
type Tiered struct {
	mu         sync.Mutex
	tiers      []port.Tier
	defaultTTL time.Duration
	hits       atomic.Uint64
	misses     atomic.Uint64
	promotions atomic.Uint64
}

func NewTiered(defaultTTL time.Duration, tiers ...port.Tier) *Tiered {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Tiered{tiers: tiers, defaultTTL: defaultTTL}
}

// Get returns the cached value for key, consulting tiers fastest-first.
// A miss across all tiers is (nil, false); tier errors degrade to misses.
func (c *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, tier := range c.tiers {
		value, found, err := tier.Get(ctx, key)
		if err != nil {
			log.Printf("cache: %s tier get failed, skipping: %v", tier.Name(), err)
			continue
		}
		if !found {
			continue
		}
		c.hits.Add(1)
		if i > 0 {
			c.promote(ctx, key, value, i)
		}
		return value, true
	}
	c.misses.Add(1)
	return nil, false
}

// promote copies a value found in tier i into every faster tier, restarting
// its TTL where the tier has one.
func (c *Tiered) promote(ctx context.Context, key string, value []byte, foundAt int) {
	for j := 0; j < foundAt; j++ {
		if err := c.tiers[j].Set(ctx, key, value, c.defaultTTL); err != nil {
			log.Printf("cache: promote to %s tier failed: %v", c.tiers[j].Name(), err)
			continue
		}
	}
	c.promotions.Add(1)
}

// Set writes the value through every tier. Per-tier failures are logged and
// skipped, never aborting writes to the remaining tiers.
func (c *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tier := range c.tiers {
		if err := tier.Set(ctx, key, value, ttl); err != nil {
			log.Printf("cache: %s tier set failed, skipping: %v", tier.Name(), err)
		}
	}
}

// GetResult is Get plus decoding. A value that no longer decodes is treated
// as a miss.
func (c *Tiered) GetResult(ctx context.Context, key string) (*domain.Result, bool) {
	value, found := c.Get(ctx, key)
	if !found {
		return nil, false
	}
	r, err := DecodeResult(value)
	if err != nil {
		log.Printf("cache: decoding entry %s failed, treating as miss: %v", key, err)
		return nil, false
	}
	return r, true
}

// SetResult is Set plus encoding. Encoding failure is logged and dropped;
// caching is never allowed to fail a parse.
func (c *Tiered) SetResult(ctx context.Context, key string, r *domain.Result, ttl time.Duration) {
	value, err := EncodeResult(r)
	if err != nil {
		log.Printf("cache: encoding entry %s failed, skipping write: %v", key, err)
		return
	}
	c.Set(ctx, key, value, ttl)
}

func (c *Tiered) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tier := range c.tiers {
		if err := tier.Delete(ctx, key); err != nil {
			log.Printf("cache: %s tier delete failed: %v", tier.Name(), err)
		}
	}
}

func (c *Tiered) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tier := range c.tiers {
		if err := tier.Clear(ctx); err != nil {
			log.Printf("cache: %s tier clear failed: %v", tier.Name(), err)
		}
	}
}

func (c *Tiered) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Promotions: c.promotions.Load(),
		Tiers:      make([]domain.TierStats, 0, len(c.tiers)),
	}
	for _, tier := range c.tiers {
		stats.Tiers = append(stats.Tiers, tier.Stats())
	}
	return stats
}

// Close shuts every tier down, returning the first error encountered.
func (c *Tiered) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, tier := range c.tiers {
		if err := tier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
