package kv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

// entry wraps a stored value with its expiration time. Expiry is checked on
// read; otter's own write-TTL is the second reclamation mechanism.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process W-TinyLFU backend backed by otter. It keeps a
// separate key index so that List can paginate deterministically, which
// otter's eviction-ordered iteration cannot.
type Memory struct {
	cache *otter.Cache[string, entry]

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemory creates an in-memory backend with the given max entry count and
// default TTL for entries stored without an explicit one.
func NewMemory(maxSize int, defaultTTL time.Duration) (*Memory, error) {
	c, err := otter.New[string, entry](&otter.Options[string, entry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, entry](defaultTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Memory{cache: c, keys: make(map[string]struct{})}, nil
}

// Get retrieves a value if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		m.forget(key)
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		m.cache.Invalidate(key)
		m.forget(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

// Set stores a value with a per-entry TTL (ttl <= 0 means no logical expiry
// here; otter's default TTL still applies).
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	exp := time.Now().Add(ttl)
	if ttl <= 0 {
		exp = time.Now().Add(24 * time.Hour)
	}
	m.cache.Set(key, entry{data: val, expiresAt: exp})
	m.mu.Lock()
	m.keys[key] = struct{}{}
	m.mu.Unlock()
	return nil
}

// Delete removes a value.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.cache.Invalidate(key)
	m.forget(key)
	return nil
}

// List pages through keys sharing prefix in lexicographic order. The cursor
// is the last key of the previous page. Keys evicted by otter since they were
// indexed are dropped from the index as they are encountered.
func (m *Memory) List(_ context.Context, prefix, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = 1000
	}

	m.mu.Lock()
	matched := make([]string, 0, limit)
	for k := range m.keys {
		if strings.HasPrefix(k, prefix) && k > cursor {
			matched = append(matched, k)
		}
	}
	m.mu.Unlock()
	sort.Strings(matched)

	page := Page{}
	for _, k := range matched {
		if _, ok := m.cache.GetIfPresent(k); !ok {
			m.forget(k)
			continue
		}
		page.Keys = append(page.Keys, k)
		if len(page.Keys) == limit {
			break
		}
	}

	if len(page.Keys) < limit {
		page.Complete = true
	} else {
		page.Cursor = page.Keys[len(page.Keys)-1]
	}
	return page, nil
}

func (m *Memory) forget(key string) {
	m.mu.Lock()
	delete(m.keys, key)
	m.mu.Unlock()
}
