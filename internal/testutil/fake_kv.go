// Package testutil provides shared test fakes.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mkuzmin/lavka/internal/kv"
)

// ErrInjected is returned by FakeKV when failure injection is armed.
var ErrInjected = errors.New("injected backend error")

// FakeKV is an in-memory kv.Backend for testing with failure injection and
// operation counters. Values are stored as-is; TTLs are recorded but never
// enforced, so tests control expiry explicitly.
type FakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration

	// Failure injection. Fail* makes every call of that kind return
	// ErrInjected; FailDeleteKeys fails only the named keys.
	FailGet        bool
	FailSet        bool
	FailDelete     bool
	FailList       bool
	FailDeleteKeys map[string]bool

	// Operation counters.
	Gets    int
	Sets    int
	Deletes int
	Lists   int
}

// NewFakeKV returns an empty FakeKV.
func NewFakeKV() *FakeKV {
	return &FakeKV{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

// Get implements kv.Backend.
func (f *FakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Gets++
	if f.FailGet {
		return nil, false, ErrInjected
	}
	val, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, true, nil
}

// Set implements kv.Backend.
func (f *FakeKV) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sets++
	if f.FailSet {
		return ErrInjected
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	f.data[key] = cp
	f.ttls[key] = ttl
	return nil
}

// Delete implements kv.Backend.
func (f *FakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deletes++
	if f.FailDelete || f.FailDeleteKeys[key] {
		return ErrInjected
	}
	delete(f.data, key)
	delete(f.ttls, key)
	return nil
}

// List implements kv.Backend with sorted cursor paging, matching the memory
// backend's behavior.
func (f *FakeKV) List(_ context.Context, prefix, cursor string, limit int) (kv.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lists++
	if f.FailList {
		return kv.Page{}, ErrInjected
	}

	matched := make([]string, 0, len(f.data))
	for key := range f.data {
		if strings.HasPrefix(key, prefix) && key > cursor {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
		return kv.Page{Keys: matched, Cursor: matched[len(matched)-1]}, nil
	}
	return kv.Page{Keys: matched, Complete: true}, nil
}

// Len reports the number of stored keys.
func (f *FakeKV) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

// Has reports whether key is stored.
func (f *FakeKV) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// Put stores a raw value directly, bypassing counters and injection.
func (f *FakeKV) Put(key string, val []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = val
}

// TTL returns the ttl recorded by the last Set for key.
func (f *FakeKV) TTL(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttls[key]
}
