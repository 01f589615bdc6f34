package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mkuzmin/lavka/internal/testutil"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// fakeClock returns a Store over fake whose clock starts at base and can be
// advanced by tests.
func newClockedStore(fake *testutil.FakeKV, base time.Time) (*Store, *time.Time) {
	now := base
	s := NewStore(fake, nil)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStoreRoundtrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := testutil.NewFakeKV()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newClockedStore(fake, base)

	Set(ctx, s, "category:1:listings", payload{Name: "bikes", Count: 3}, 5*time.Minute)

	got, ok := Get[payload](ctx, s, "category:1:listings")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if !got.FromCache {
		t.Error("FromCache = false on a hit")
	}
	if got.Data.Name != "bikes" || got.Data.Count != 3 {
		t.Errorf("data = %+v", got.Data)
	}
	if !got.CachedAt.Equal(base) {
		t.Errorf("CachedAt = %v, want %v", got.CachedAt, base)
	}
	if want := base.Add(5 * time.Minute); !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}
	if ttl := fake.TTL("category:1:listings"); ttl != 5*time.Minute {
		t.Errorf("backend ttl = %v, want 5m", ttl)
	}
}

func TestStoreMissOnAbsent(t *testing.T) {
	t.Parallel()
	s := NewStore(testutil.NewFakeKV(), nil)

	if _, ok := Get[payload](context.Background(), s, "category:9:listings"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestStoreLogicalExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := testutil.NewFakeKV()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, now := newClockedStore(fake, base)

	Set(ctx, s, "user:5:profile", payload{Name: "ann"}, time.Minute)

	// One second before expiry: still a hit.
	*now = base.Add(59 * time.Second)
	if _, ok := Get[payload](ctx, s, "user:5:profile"); !ok {
		t.Fatal("expected hit before expiry")
	}

	// At expiry: miss, and the entry is reclaimed even though the backend
	// TTL has not fired (the fake never enforces TTLs).
	*now = base.Add(time.Minute)
	if _, ok := Get[payload](ctx, s, "user:5:profile"); ok {
		t.Fatal("expected miss at logical expiry")
	}
	if fake.Has("user:5:profile") {
		t.Error("expired entry not deleted")
	}
}

func TestStoreMalformedEnvelope(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := testutil.NewFakeKV()
	s := NewStore(fake, nil)

	fake.Put("search:v2x:results", []byte("{not json"))

	if _, ok := Get[payload](ctx, s, "search:v2x:results"); ok {
		t.Fatal("expected miss for malformed envelope")
	}
	if fake.Has("search:v2x:results") {
		t.Error("malformed entry not deleted")
	}
}

func TestStoreMalformedPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := testutil.NewFakeKV()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newClockedStore(fake, base)

	// Valid envelope, payload of the wrong shape for the requested type.
	env, _ := json.Marshal(envelope{
		Data:      json.RawMessage(`"a string"`),
		CachedAt:  base,
		ExpiresAt: base.Add(time.Hour),
	})
	fake.Put("categories:all", env)

	if _, ok := Get[payload](ctx, s, "categories:all"); ok {
		t.Fatal("expected miss for mismatched payload")
	}
	if fake.Has("categories:all") {
		t.Error("mismatched entry not deleted")
	}
}

func TestStoreBackendErrorsDegrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := testutil.NewFakeKV()
	s := NewStore(fake, nil)

	Set(ctx, s, "user:1:profile", payload{Name: "bob"}, time.Minute)

	fake.FailGet = true
	if _, ok := Get[payload](ctx, s, "user:1:profile"); ok {
		t.Fatal("expected miss when backend read fails")
	}
	fake.FailGet = false

	// A failing write must be a silent no-op.
	fake.FailSet = true
	Set(ctx, s, "user:2:profile", payload{Name: "eve"}, time.Minute)
	fake.FailSet = false
	if fake.Has("user:2:profile") {
		t.Error("failed set left an entry behind")
	}

	// A failing delete is swallowed too.
	fake.FailDelete = true
	s.Delete(ctx, "user:1:profile")
}

func TestStoreHitCountTouch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := testutil.NewFakeKV()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, now := newClockedStore(fake, base)

	Set(ctx, s, "category:2:listings", payload{Name: "books"}, 10*time.Minute)

	*now = base.Add(time.Minute)
	for i := 0; i < 3; i++ {
		if _, ok := Get[payload](ctx, s, "category:2:listings"); !ok {
			t.Fatal("expected hit")
		}
	}

	raw, _, _ := fake.Get(ctx, "category:2:listings")
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	if env.HitCount != 3 {
		t.Errorf("hit count = %d, want 3", env.HitCount)
	}
	if env.LastHit == nil || !env.LastHit.Equal(base.Add(time.Minute)) {
		t.Errorf("last hit = %v", env.LastHit)
	}
	// The rewrite must not extend the logical expiry.
	if want := base.Add(10 * time.Minute); !env.ExpiresAt.Equal(want) {
		t.Errorf("touch moved expiry to %v, want %v", env.ExpiresAt, want)
	}
}

func TestStoreDropExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := testutil.NewFakeKV()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, now := newClockedStore(fake, base)

	Set(ctx, s, "user:1:profile", payload{}, time.Minute)
	Set(ctx, s, "user:2:profile", payload{}, time.Hour)
	fake.Put("user:3:profile", []byte("garbage"))

	*now = base.Add(2 * time.Minute)

	if !s.DropExpired(ctx, "user:1:profile") {
		t.Error("expired entry not dropped")
	}
	if s.DropExpired(ctx, "user:2:profile") {
		t.Error("live entry dropped")
	}
	if !s.DropExpired(ctx, "user:3:profile") {
		t.Error("unreadable entry not dropped")
	}
	if s.DropExpired(ctx, "user:4:profile") {
		t.Error("absent key reported as dropped")
	}
	if !fake.Has("user:2:profile") {
		t.Error("live entry missing after sweep")
	}
}
