package kv

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned for every operation while the breaker is open.
// The cache layer treats it like any other backend error: reads become
// misses, writes become no-ops.
var ErrBreakerOpen = errors.New("kv: circuit breaker open")

// BreakerConfig holds circuit breaker parameters for a backend.
type BreakerConfig struct {
	ErrorThreshold float64       // error rate in the window that trips the breaker
	MinSamples     int           // minimum operations before the breaker can open
	WindowSeconds  int           // sliding window duration in seconds (max 60)
	OpenTimeout    time.Duration // time in open state before a probe is allowed
}

// DefaultBreakerConfig returns sensible defaults for a cache backend: trip
// fast, probe often -- an unavailable cache should cost misses, not latency.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ErrorThreshold: 0.5,
		MinSamples:     5,
		WindowSeconds:  30,
		OpenTimeout:    10 * time.Second,
	}
}

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// winBucket holds error and total counts for a 1-second slot.
type winBucket struct {
	errors int
	total  int
}

// Breaker wraps a Backend, short-circuiting calls to a failing store so that
// each request degrades in nanoseconds instead of waiting out a timeout.
// Get, Set, Delete, and List share one failure window: they all hit the same
// remote service.
type Breaker struct {
	inner Backend
	cfg   BreakerConfig

	mu       sync.Mutex
	state    breakerState
	openedAt time.Time
	probing  bool
	buckets  [60]winBucket
	size     int
	head     int
	headTime int64
}

// WithBreaker wraps backend with a circuit breaker.
func WithBreaker(backend Backend, cfg BreakerConfig) *Breaker {
	size := cfg.WindowSeconds
	if size <= 0 || size > 60 {
		size = 60
	}
	return &Breaker{inner: backend, cfg: cfg, size: size}
}

// State returns "closed", "open", or "half_open", for diagnostics.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Get delegates to the inner backend unless the breaker is open.
func (b *Breaker) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !b.allow() {
		return nil, false, ErrBreakerOpen
	}
	val, found, err := b.inner.Get(ctx, key)
	b.record(err)
	return val, found, err
}

// Set delegates to the inner backend unless the breaker is open.
func (b *Breaker) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if !b.allow() {
		return ErrBreakerOpen
	}
	err := b.inner.Set(ctx, key, val, ttl)
	b.record(err)
	return err
}

// Delete delegates to the inner backend unless the breaker is open.
func (b *Breaker) Delete(ctx context.Context, key string) error {
	if !b.allow() {
		return ErrBreakerOpen
	}
	err := b.inner.Delete(ctx, key)
	b.record(err)
	return err
}

// List delegates to the inner backend unless the breaker is open.
func (b *Breaker) List(ctx context.Context, prefix, cursor string, limit int) (Page, error) {
	if !b.allow() {
		return Page{}, ErrBreakerOpen
	}
	page, err := b.inner.List(ctx, prefix, cursor, limit)
	b.record(err)
	return page, err
}

// allow reports whether an operation may proceed, transitioning open ->
// half-open after the open timeout and admitting exactly one probe.
func (b *Breaker) allow() bool {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if now.Sub(b.openedAt) >= b.cfg.OpenTimeout {
			b.state = stateHalfOpen
			b.probing = true
			return true
		}
		return false
	case stateHalfOpen:
		if !b.probing {
			b.probing = true
			return true
		}
		return false
	}
	return false
}

// record feeds the operation outcome into the window and updates state.
func (b *Breaker) record(err error) {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(now.Unix())
	b.buckets[b.head].total++
	if err != nil {
		b.buckets[b.head].errors++
	}

	switch b.state {
	case stateClosed:
		if err == nil {
			return
		}
		rate, samples := b.errorRate()
		if samples >= b.cfg.MinSamples && rate >= b.cfg.ErrorThreshold {
			b.state = stateOpen
			b.openedAt = now
		}
	case stateHalfOpen:
		b.probing = false
		if err != nil {
			b.state = stateOpen
			b.openedAt = now
			return
		}
		b.state = stateClosed
		b.reset()
	}
}

// advance moves the window head to the current second, clearing stale buckets.
func (b *Breaker) advance(nowSec int64) {
	if b.headTime == 0 {
		b.headTime = nowSec
		return
	}
	gap := nowSec - b.headTime
	if gap <= 0 {
		return
	}
	clear := min(int(gap), b.size)
	for i := range clear {
		b.buckets[(b.head+1+i)%b.size] = winBucket{}
	}
	b.head = (b.head + int(gap)) % b.size
	b.headTime = nowSec
}

func (b *Breaker) errorRate() (rate float64, samples int) {
	var errs, total int
	for i := range b.size {
		errs += b.buckets[i].errors
		total += b.buckets[i].total
	}
	if total == 0 {
		return 0, 0
	}
	return float64(errs) / float64(total), total
}

func (b *Breaker) reset() {
	for i := range b.size {
		b.buckets[i] = winBucket{}
	}
	b.head = 0
	b.headTime = 0
}
