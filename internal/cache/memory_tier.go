package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"parsemill/internal/domain"
)

const MemoryTierName = "memory"

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryTierConfig bounds the in-process tier by entry count and TTL.
type MemoryTierConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// MemoryTier is the fastest cache level: a count-bounded LRU whose entries
// also expire after a TTL. Expiry is lazy: a stale entry is discarded on read
// and reported as a miss even though it was still physically present.
type MemoryTier struct {
	cfg       MemoryTierConfig
	lru       *lru.Cache[string, memoryEntry]
	sizeBytes atomic.Int64
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	now       func() time.Time
}

func NewMemoryTier(cfg MemoryTierConfig) (*MemoryTier, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	t := &MemoryTier{cfg: cfg, now: time.Now}
	c, err := lru.NewWithEvict[string, memoryEntry](cfg.MaxEntries, func(_ string, e memoryEntry) {
		t.evictions.Add(1)
		t.sizeBytes.Add(-int64(len(e.value)))
	})
	if err != nil {
		return nil, err
	}
	t.lru = c
	return t, nil
}

func (t *MemoryTier) Name() string { return MemoryTierName }

func (t *MemoryTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := t.lru.Get(key)
	if !ok {
		t.misses.Add(1)
		return nil, false, nil
	}
	if t.now().After(e.expiresAt) {
		t.lru.Remove(key)
		t.misses.Add(1)
		return nil, false, nil
	}
	t.hits.Add(1)
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a value. A non-positive ttl falls back to the configured default.
func (t *MemoryTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.cfg.TTL
	}
	if prev, ok := t.lru.Peek(key); ok {
		t.sizeBytes.Add(-int64(len(prev.value)))
	}
	v := append([]byte(nil), value...)
	t.lru.Add(key, memoryEntry{value: v, expiresAt: t.now().Add(ttl)})
	t.sizeBytes.Add(int64(len(v)))
	return nil
}

func (t *MemoryTier) Delete(_ context.Context, key string) error {
	t.lru.Remove(key)
	return nil
}

func (t *MemoryTier) Clear(_ context.Context) error {
	t.lru.Purge()
	return nil
}

func (t *MemoryTier) Stats() domain.TierStats {
	return domain.TierStats{
		Tier:      MemoryTierName,
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Evictions: t.evictions.Load(),
		Entries:   t.lru.Len(),
		SizeBytes: t.sizeBytes.Load(),
	}
}

func (t *MemoryTier) Close() error {
	t.lru.Purge()
	return nil
}
