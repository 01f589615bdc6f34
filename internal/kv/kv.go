// Package kv defines the key-value backend boundary the cache layer is built
// on, plus the backends that implement it.
package kv

import (
	"context"
	"time"
)

// Page is one page of a prefix listing.
type Page struct {
	// Keys holds the keys found in this page. Order is unspecified.
	Keys []string
	// Cursor resumes the listing when Complete is false. Opaque to callers.
	Cursor string
	// Complete reports that the listing has covered the whole prefix.
	Complete bool
}

// Backend is a remote (or in-process) key-value store with TTL support and
// cursor-driven prefix listing. All methods may block on network I/O and
// honor context cancellation.
type Backend interface {
	// Get returns the value for key, or found=false when absent.
	Get(ctx context.Context, key string) (val []byte, found bool, err error)
	// Set stores val under key. A ttl > 0 makes the backend itself reclaim
	// the key after that duration.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns up to limit keys sharing prefix, resuming from cursor
	// ("" starts a new listing).
	List(ctx context.Context, prefix, cursor string, limit int) (Page, error)
}
