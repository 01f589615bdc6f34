package kv

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := NewMemory(10_000, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMemoryRoundtrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMemory(t)

	if err := m.Set(ctx, "a", []byte("one"), time.Minute); err != nil {
		t.Fatal(err)
	}

	val, found, err := m.Get(ctx, "a")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if string(val) != "one" {
		t.Errorf("val = %q", val)
	}

	_, found, err = m.Get(ctx, "missing")
	if err != nil || found {
		t.Errorf("absent key: found=%v err=%v", found, err)
	}
}

func TestMemoryDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMemory(t)

	m.Set(ctx, "a", []byte("one"), time.Minute)
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := m.Get(ctx, "a"); found {
		t.Error("deleted key still present")
	}
	// Deleting an absent key is not an error.
	if err := m.Delete(ctx, "a"); err != nil {
		t.Errorf("double delete: %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMemory(t)

	m.Set(ctx, "short", []byte("x"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found, _ := m.Get(ctx, "short"); found {
		t.Error("expired key still readable")
	}

	// Expired keys drop out of listings too.
	page, err := m.List(ctx, "", "", 100)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range page.Keys {
		if k == "short" {
			t.Error("expired key still listed")
		}
	}
}

func TestMemoryListPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMemory(t)

	for i := 0; i < 25; i++ {
		m.Set(ctx, fmt.Sprintf("search:k%02d", i), []byte("x"), time.Minute)
	}
	m.Set(ctx, "category:1", []byte("x"), time.Minute)

	var all []string
	cursor := ""
	pages := 0
	for {
		page, err := m.List(ctx, "search:", cursor, 10)
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, page.Keys...)
		pages++
		if page.Complete {
			break
		}
		cursor = page.Cursor
	}

	if len(all) != 25 {
		t.Errorf("listed %d keys, want 25", len(all))
	}
	if pages < 3 {
		t.Errorf("pages = %d, want at least 3", pages)
	}
	seen := map[string]bool{}
	for _, k := range all {
		if seen[k] {
			t.Errorf("key %q listed twice", k)
		}
		seen[k] = true
	}
	if seen["category:1"] {
		t.Error("non-matching key listed")
	}
}

func TestMemoryListEmptyPrefix(t *testing.T) {
	t.Parallel()
	m := newTestMemory(t)

	page, err := m.List(context.Background(), "nope:", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Keys) != 0 || !page.Complete {
		t.Errorf("page = %+v, want empty and complete", page)
	}
}
