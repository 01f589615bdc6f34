package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mkuzmin/lavka/internal/kv"
	"github.com/mkuzmin/lavka/internal/telemetry"
)

// envelope is the stored form of every cache entry: the payload plus the
// metadata needed for logical expiration and diagnostics. HitCount and
// LastHit are best-effort and never consulted for correctness.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	HitCount  int64           `json:"hit_count"`
	LastHit   *time.Time      `json:"last_hit,omitempty"`
}

// Cached wraps a value read through the cache.
type Cached[T any] struct {
	Data      T
	FromCache bool
	CachedAt  time.Time
	ExpiresAt time.Time
}

// Store wraps a kv.Backend with the envelope codec and the binding failure
// semantics: no backend or codec error ever reaches a caller. Reads degrade
// to misses, writes and deletes to no-ops; everything is logged and counted.
type Store struct {
	backend kv.Backend
	metrics *telemetry.Metrics // nil disables counters
	now     func() time.Time
}

// NewStore creates a Store over the given backend. metrics may be nil.
func NewStore(backend kv.Backend, metrics *telemetry.Metrics) *Store {
	return &Store{backend: backend, metrics: metrics, now: time.Now}
}

// Backend exposes the underlying key-value backend for listing operations.
func (s *Store) Backend() kv.Backend { return s.backend }

// Get fetches and decodes the entry under key. Absent, expired, malformed,
// and erroring entries all come back as a miss. Expired and malformed
// entries are opportunistically deleted.
func Get[T any](ctx context.Context, s *Store, key string) (Cached[T], bool) {
	var zero Cached[T]
	ns := Namespace(key)

	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		s.fail(ctx, "get", key, err)
		return zero, false
	}
	if !found {
		s.miss(ns)
		return zero, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.LogAttrs(ctx, slog.LevelWarn, "malformed cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		s.Delete(ctx, key)
		s.miss(ns)
		return zero, false
	}

	now := s.now()
	if !env.ExpiresAt.After(now) {
		// Logically expired but not yet reclaimed by the backend.
		s.Delete(ctx, key)
		s.miss(ns)
		return zero, false
	}

	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		slog.LogAttrs(ctx, slog.LevelWarn, "malformed cache payload",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		s.Delete(ctx, key)
		s.miss(ns)
		return zero, false
	}

	s.touch(ctx, key, env, now)
	s.hit(ns)
	return Cached[T]{Data: data, FromCache: true, CachedAt: env.CachedAt, ExpiresAt: env.ExpiresAt}, true
}

// Set encodes data into an envelope and writes it with ttl as both the
// logical expiry and the backend's own TTL. Errors are swallowed.
func Set[T any](ctx context.Context, s *Store, key string, data T, ttl time.Duration) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.fail(ctx, "encode", key, err)
		return
	}

	now := s.now()
	raw, err := json.Marshal(envelope{
		Data:      payload,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		s.fail(ctx, "encode", key, err)
		return
	}

	if err := s.backend.Set(ctx, key, raw, ttl); err != nil {
		s.fail(ctx, "set", key, err)
	}
}

// Delete removes a single key, swallowing errors; residual entries expire
// by TTL.
func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.fail(ctx, "delete", key, err)
	}
}

// DropExpired deletes the entry under key if its envelope is logically
// expired or unreadable, reporting whether a delete happened. Used by the
// background janitor; live entries are left untouched.
func (s *Store) DropExpired(ctx context.Context, key string) bool {
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil || !found {
		return false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.ExpiresAt.After(s.now()) {
		return false
	}
	s.Delete(ctx, key)
	return true
}

// touch refreshes best-effort hit metadata, rewriting the envelope with its
// remaining TTL. A lost update or failed write here is harmless.
func (s *Store) touch(ctx context.Context, key string, env envelope, now time.Time) {
	env.HitCount++
	env.LastHit = &now
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	remaining := env.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return
	}
	if err := s.backend.Set(ctx, key, raw, remaining); err != nil {
		s.fail(ctx, "touch", key, err)
	}
}

func (s *Store) hit(namespace string) {
	if s.metrics != nil {
		s.metrics.CacheHits.WithLabelValues(namespace).Inc()
	}
}

func (s *Store) miss(namespace string) {
	if s.metrics != nil {
		s.metrics.CacheMisses.WithLabelValues(namespace).Inc()
	}
}

func (s *Store) fail(ctx context.Context, op, key string, err error) {
	slog.LogAttrs(ctx, slog.LevelWarn, "cache backend error",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
	if s.metrics != nil {
		s.metrics.CacheErrors.WithLabelValues(op).Inc()
	}
}
