// Package ranking orders areas by a party's vote share, caches the ordering
// and slices it into pages.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/pkg/logger"
	"github.com/okian/partystats/pkg/metrics"
)

// DefaultTTL keeps key lists for 30 days. Results of a past election do not change.
const DefaultTTL = 30 * 24 * time.Hour

// Backend stores opaque values with an expiry.
type Backend interface {
	// Get returns found=false for missing or expired keys.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Computer produces a full descending ranking key list.
type Computer interface {
	OrderedCodes(ctx context.Context, unit area.Unit, electionCode, partyID string) ([]string, error)
}

// KeyCache is a cache-aside store of descending ranking key lists.
type KeyCache struct {
	backend  Backend
	computer Computer
	ttl      time.Duration
	flight   *inflight
	logger   logger.Logger
}

// Option applies a configuration option to the KeyCache.
type Option func(*KeyCache)

// WithTTL sets how long key lists stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *KeyCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCoalescing makes concurrent misses for one key wait on a single
// computation instead of each recomputing it.
func WithCoalescing(enabled bool) Option {
	return func(c *KeyCache) {
		if enabled {
			c.flight = newInflight()
		} else {
			c.flight = nil
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *KeyCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewKeyCache creates a KeyCache. Coalescing is on unless disabled.
func NewKeyCache(backend Backend, computer Computer, opts ...Option) *KeyCache {
	c := &KeyCache{
		backend:  backend,
		computer: computer,
		ttl:      DefaultTTL,
		flight:   newInflight(),
		logger:   logger.Get().Named("keycache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for one election, party and unit.
func Key(electionCode, partyID string, unit area.Unit) string {
	return fmt.Sprintf("ranking:%s:%s:%s:popularity", electionCode, partyID, unit)
}

// Keys returns the descending key list, computing and storing it on a miss.
// The returned slice must not be modified.
func (c *KeyCache) Keys(ctx context.Context, electionCode, partyID string, unit area.Unit) ([]string, error) {
	key := Key(electionCode, partyID, unit)

	raw, found, err := c.backend.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheError("get")
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if found {
		var keys []string
		if err := json.Unmarshal(raw, &keys); err == nil && keys != nil {
			metrics.RecordCacheHit(unit.String())
			return keys, nil
		}
		c.logger.Warn(ctx, "discarding malformed cached key list", logger.String("key", key))
	}
	metrics.RecordCacheMiss(unit.String())

	compute := func(ctx context.Context) ([]string, error) {
		return c.recompute(ctx, key, electionCode, partyID, unit)
	}
	if c.flight == nil {
		return compute(ctx)
	}
	keys, shared, err := c.flight.do(ctx, key, compute)
	if shared {
		metrics.RecordCacheCoalesced(unit.String())
	}
	return keys, err
}

// Refresh recomputes and stores a key list regardless of what is cached.
func (c *KeyCache) Refresh(ctx context.Context, electionCode, partyID string, unit area.Unit) (int, error) {
	keys, err := c.recompute(ctx, Key(electionCode, partyID, unit), electionCode, partyID, unit)
	return len(keys), err
}

func (c *KeyCache) recompute(ctx context.Context, key, electionCode, partyID string, unit area.Unit) ([]string, error) {
	start := time.Now()
	keys, err := c.computer.OrderedCodes(ctx, unit, electionCode, partyID)
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", key, err)
	}
	if keys == nil {
		keys = []string{}
	}
	elapsed := time.Since(start)
	metrics.RecordRankingRecompute(unit.String(), float64(elapsed.Milliseconds()), len(keys))

	value, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		metrics.RecordCacheError("set")
		return nil, fmt.Errorf("write %s: %w", key, err)
	}
	c.logger.Debug(ctx, "ranking key list computed",
		logger.String("key", key),
		logger.Int("size", len(keys)),
		logger.Duration("took", elapsed),
	)
	return keys, nil
}
