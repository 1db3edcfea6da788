package port

import (
	"context"
	"time"

	"parsemill/internal/domain"
)

// Tier is one level of the tiered result cache. A miss is reported through
// the found flag, not an error; errors mean the tier itself misbehaved.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores a value. Tiers without expiry semantics ignore ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats() domain.TierStats
	Close() error
}
