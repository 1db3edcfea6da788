package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"parsemill/internal/domain"
)

const DiskTierName = "disk"

// Record key prefixes: k:<key> maps a cache key to its insertion stamp,
// e:<stamp><key> holds the value. Stamps are big-endian and monotonic, so
// iterating the e: prefix visits entries oldest-insertion-first.
var (
	keyPrefix   = []byte("k:")
	entryPrefix = []byte("e:")
)

const gcInterval = 5 * time.Minute

// DiskTierConfig bounds the persistent tier by total value bytes.
type DiskTierConfig struct {
	Dir            string
	SizeLimitBytes int64
}

func DefaultDiskTierConfig(dir string) DiskTierConfig {
	return DiskTierConfig{
		Dir:            dir,
		SizeLimitBytes: 512 << 20,
	}
}

// DiskTier is the persistent cache level, backed by badger. It has no TTL;
// when the byte cap is exceeded the oldest-by-insertion entries are evicted
// until the tier fits again.
type DiskTier struct {
	cfg DiskTierConfig
	db  *badger.DB

	seq       atomic.Uint64
	sizeBytes atomic.Int64
	entries   atomic.Int64
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	mu     sync.RWMutex
	closed bool
	stopGC chan struct{}
	doneGC chan struct{}
}

func NewDiskTier(cfg DiskTierConfig) (*DiskTier, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("disk tier: directory is required")
	}
	if cfg.SizeLimitBytes <= 0 {
		cfg.SizeLimitBytes = DefaultDiskTierConfig("").SizeLimitBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("disk tier: create directory: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("disk tier: open badger: %w", err)
	}

	t := &DiskTier{
		cfg:    cfg,
		db:     db,
		stopGC: make(chan struct{}),
		doneGC: make(chan struct{}),
	}
	t.seq.Store(uint64(time.Now().UnixNano()))

	if err := t.loadCounters(); err != nil {
		db.Close()
		return nil, fmt.Errorf("disk tier: scan existing entries: %w", err)
	}
	go t.gcLoop()
	return t, nil
}

// loadCounters rebuilds size and entry counters from what survived restart.
func (t *DiskTier) loadCounters() error {
	return t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = entryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var size int64
		var count int64
		for it.Rewind(); it.Valid(); it.Next() {
			size += it.Item().ValueSize()
			count++
		}
		t.sizeBytes.Store(size)
		t.entries.Store(count)
		return nil
	})
}

func (t *DiskTier) Name() string { return DiskTierName }

func (t *DiskTier) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

func (t *DiskTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	if t.isClosed() {
		return nil, false, domain.ErrCacheClosed
	}

	var value []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stampKey(key))
		if err != nil {
			return err
		}
		stamp, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entry, err := txn.Get(entryKey(stamp, key))
		if err != nil {
			return err
		}
		value, err = entry.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		t.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("disk tier get: %w", err)
	}
	t.hits.Add(1)
	return value, true, nil
}

// Set stores a value; ttl is ignored, this tier is bounded by bytes only.
func (t *DiskTier) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if t.isClosed() {
		return domain.ErrCacheClosed
	}

	var sizeDelta, entryDelta int64
	err := t.db.Update(func(txn *badger.Txn) error {
		// Replacing an existing key retires its old record first.
		if item, err := txn.Get(stampKey(key)); err == nil {
			oldStamp, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if old, err := txn.Get(entryKey(oldStamp, key)); err == nil {
				sizeDelta -= old.ValueSize()
				entryDelta--
				if err := txn.Delete(entryKey(oldStamp, key)); err != nil {
					return err
				}
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		stamp := make([]byte, 8)
		binary.BigEndian.PutUint64(stamp, t.seq.Add(1))
		if err := txn.Set(stampKey(key), stamp); err != nil {
			return err
		}
		if err := txn.Set(entryKey(stamp, key), value); err != nil {
			return err
		}
		sizeDelta += int64(len(value))
		entryDelta++
		return nil
	})
	if err != nil {
		return fmt.Errorf("disk tier set: %w", err)
	}
	t.sizeBytes.Add(sizeDelta)
	t.entries.Add(entryDelta)

	return t.evictOverflow()
}

// evictOverflow removes oldest-by-insertion entries until under the byte cap.
func (t *DiskTier) evictOverflow() error {
	for t.sizeBytes.Load() > t.cfg.SizeLimitBytes {
		var victimEntry []byte
		var victimKey string
		var victimSize int64

		err := t.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = entryPrefix
			it := txn.NewIterator(opts)
			defer it.Close()

			it.Rewind()
			if !it.Valid() {
				return badger.ErrKeyNotFound
			}
			item := it.Item()
			victimEntry = item.KeyCopy(nil)
			victimKey = string(victimEntry[len(entryPrefix)+8:])
			victimSize = item.ValueSize()
			return nil
		})
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("disk tier evict scan: %w", err)
		}

		// A concurrent writer may have evicted the same victim already; only
		// adjust counters when this transaction did the delete.
		deleted := false
		err = t.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(victimEntry); err == badger.ErrKeyNotFound {
				return nil
			} else if err != nil {
				return err
			}
			if err := txn.Delete(victimEntry); err != nil {
				return err
			}
			if err := txn.Delete(stampKey(victimKey)); err != nil {
				return err
			}
			deleted = true
			return nil
		})
		if err != nil {
			return fmt.Errorf("disk tier evict: %w", err)
		}
		if deleted {
			t.sizeBytes.Add(-victimSize)
			t.entries.Add(-1)
			t.evictions.Add(1)
		}
	}
	return nil
}

func (t *DiskTier) Delete(_ context.Context, key string) error {
	if t.isClosed() {
		return domain.ErrCacheClosed
	}

	var sizeDelta, entryDelta int64
	err := t.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(stampKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		stamp, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if old, err := txn.Get(entryKey(stamp, key)); err == nil {
			sizeDelta -= old.ValueSize()
			entryDelta--
		}
		if err := txn.Delete(entryKey(stamp, key)); err != nil {
			return err
		}
		return txn.Delete(stampKey(key))
	})
	if err != nil {
		return fmt.Errorf("disk tier delete: %w", err)
	}
	t.sizeBytes.Add(sizeDelta)
	t.entries.Add(entryDelta)
	return nil
}

func (t *DiskTier) Clear(_ context.Context) error {
	if t.isClosed() {
		return domain.ErrCacheClosed
	}
	if err := t.db.DropAll(); err != nil {
		return fmt.Errorf("disk tier clear: %w", err)
	}
	t.sizeBytes.Store(0)
	t.entries.Store(0)
	return nil
}

func (t *DiskTier) Stats() domain.TierStats {
	return domain.TierStats{
		Tier:      DiskTierName,
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Evictions: t.evictions.Load(),
		Entries:   int(t.entries.Load()),
		SizeBytes: t.sizeBytes.Load(),
	}
}

func (t *DiskTier) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.stopGC)
	<-t.doneGC
	return t.db.Close()
}

// gcLoop reclaims badger value-log space left behind by evictions.
func (t *DiskTier) gcLoop() {
	defer close(t.doneGC)
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopGC:
			return
		case <-ticker.C:
			for {
				if err := t.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

func stampKey(key string) []byte {
	return append(append([]byte(nil), keyPrefix...), key...)
}

func entryKey(stamp []byte, key string) []byte {
	b := make([]byte, 0, len(entryPrefix)+len(stamp)+len(key))
	b = append(b, entryPrefix...)
	b = append(b, stamp...)
	b = append(b, key...)
	return b
}

// badgerLogger routes badger's own logging through the process logger,
// dropping info/debug noise.
type badgerLogger struct{}

func (bl *badgerLogger) Errorf(format string, args ...interface{}) {
	log.Printf("cache.disk: badger error: "+format, args...)
}

func (bl *badgerLogger) Warningf(format string, args ...interface{}) {
	log.Printf("cache.disk: badger warning: "+format, args...)
}

func (bl *badgerLogger) Infof(string, ...interface{}) {}

func (bl *badgerLogger) Debugf(string, ...interface{}) {}
