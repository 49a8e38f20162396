package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxEntries = 50000
	defaultTTL        = 30 * 24 * time.Hour
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process cache backed by an expirable LRU. The LRU drops the
// least recently used key when full; each entry additionally carries the
// expiry requested by Set, which may be shorter than the LRU's own TTL.
type Memory struct {
	lru        *expirable.LRU[string, entry]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// MemoryOption applies a configuration option to Memory.
type MemoryOption func(*Memory)

// WithMaxEntries bounds the number of stored keys. Zero keeps the default.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithTTL sets the longest lifetime any entry can have. Zero keeps the default.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now for per-entry expiry, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		maxEntries: defaultMaxEntries,
		ttl:        defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lru = expirable.NewLRU[string, entry](m.maxEntries, nil, m.ttl)
	return m
}

// Get implements Cache.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Cache.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl > m.ttl {
		ttl = m.ttl
	}
	m.lru.Add(key, entry{value: append([]byte(nil), value...), expiresAt: m.now().Add(ttl)})
	return nil
}

// Len implements Cache.
func (m *Memory) Len(context.Context) (int, error) {
	now := m.now()
	n := 0
	for _, e := range m.lru.Values() {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n, nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
