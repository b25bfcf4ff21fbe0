// Package kv provides the key-value persistence capability used by the
// checkout core: draft cache, payment sessions and the last order
// summary. Values are opaque bytes; entries may carry a TTL.
package kv

import (
	"context"
	"time"
)

// Store is a byte-oriented key-value store with optional expiry.
// Get returns domain.ErrNotFound for missing or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
