package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKeyPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"category listings", CategoryListingsKey(42), "category:42:listings"},
		{"search results", SearchResultsKey("v2abc123"), "search:v2abc123:results"},
		{"categories", CategoriesKey(), "categories:all"},
		{"user profile", UserProfileKey(777), "user:777:profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("key = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestKeyDeterministic(t *testing.T) {
	t.Parallel()

	a := Key(NSCategory, "7", "listings")
	b := Key(NSCategory, "7", "listings")
	if a != b {
		t.Errorf("same inputs gave %q and %q", a, b)
	}
}

func TestKeyEscapesDelimiter(t *testing.T) {
	t.Parallel()

	// A part containing the delimiter must not produce the same key as
	// separate parts.
	forged := Key(NSUser, "1:profile")
	honest := Key(NSUser, "1", "profile")
	if forged == honest {
		t.Fatalf("forged part collided with honest key %q", honest)
	}
	if want := "user:1%3Aprofile"; forged != want {
		t.Errorf("escaped key = %q, want %q", forged, want)
	}

	// Escaping itself must be injective: a part with a literal "%3A" cannot
	// collide with a part containing ":".
	if Key(NSUser, "1%3Ax") == Key(NSUser, "1:x") {
		t.Error("percent escaping is not injective")
	}
}

func TestSearchPrefixCoversSearchKeys(t *testing.T) {
	t.Parallel()

	key := SearchResultsKey("v2deadbeef")
	if !strings.HasPrefix(key, SearchPrefix) {
		t.Errorf("search key %q not under prefix %q", key, SearchPrefix)
	}
	if strings.HasPrefix(CategoryListingsKey(1), SearchPrefix) {
		t.Error("category key matched the search prefix")
	}
}

func TestNamespace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"category:42:listings", "category"},
		{"search:v2x:results", "search"},
		{"categories:all", "categories"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		if got := Namespace(tt.key); got != tt.want {
			t.Errorf("Namespace(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestTTLPolicyDefaults(t *testing.T) {
	t.Parallel()

	p := DefaultTTLPolicy()
	tests := []struct {
		namespace string
		want      time.Duration
	}{
		{NSCategory, 5 * time.Minute},
		{NSCategories, time.Hour},
		{NSSearch, 10 * time.Minute},
		{NSUser, 15 * time.Minute},
		{"unknown", 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := p.For(tt.namespace); got != tt.want {
			t.Errorf("For(%q) = %v, want %v", tt.namespace, got, tt.want)
		}
	}
}
