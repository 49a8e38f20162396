// Package cache provides the key-value stores that hold computed ranking key lists.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Cache stores opaque values with an expiry.
type Cache interface {
	// Get returns found=false for missing or expired keys.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)
	Close() error
}

// Purger is implemented by backends that keep expired entries around until
// they are explicitly removed.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// New opens the named backend. dsn is only used by the sqlite backend; maxEntries
// and ttl only bound the memory backend.
func New(backend, dsn string, maxEntries int, ttl time.Duration) (Cache, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(WithMaxEntries(maxEntries), WithTTL(ttl)), nil
	case BackendSQLite:
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
