package cache

import (
	"strings"
	"testing"

	lavka "github.com/mkuzmin/lavka/internal"
)

func TestHashSearchParamsDeterministic(t *testing.T) {
	t.Parallel()

	p := lavka.SearchParams{Query: "bike", CategoryID: 3, MinPriceCents: 1000, Sort: lavka.SortPriceAsc}
	first := HashSearchParams(p)
	for i := 0; i < 10; i++ {
		if got := HashSearchParams(p); got != first {
			t.Fatalf("hash changed between calls: %q vs %q", got, first)
		}
	}
}

func TestHashSearchParamsZeroDefaultEquivalence(t *testing.T) {
	t.Parallel()

	// Omitted fields and explicitly zero-valued fields must hash identically,
	// as must values that normalize to the same filter set.
	tests := []struct {
		name string
		a, b lavka.SearchParams
	}{
		{
			"explicit zero vs omitted",
			lavka.SearchParams{Query: "bike"},
			lavka.SearchParams{Query: "bike", CategoryID: 0, MinPriceCents: 0, MaxPriceCents: 0, Offset: 0},
		},
		{
			"default limit vs explicit default",
			lavka.SearchParams{Query: "bike"},
			lavka.SearchParams{Query: "bike", Limit: 20},
		},
		{
			"query whitespace trimmed",
			lavka.SearchParams{Query: "  bike "},
			lavka.SearchParams{Query: "bike"},
		},
		{
			"limit clamped to cap",
			lavka.SearchParams{Limit: 500},
			lavka.SearchParams{Limit: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ha, hb := HashSearchParams(tt.a), HashSearchParams(tt.b)
			if ha != hb {
				t.Errorf("hashes differ: %q vs %q", ha, hb)
			}
		})
	}
}

func TestHashSearchParamsDistinguishesFields(t *testing.T) {
	t.Parallel()

	base := lavka.SearchParams{Query: "bike"}
	variants := []lavka.SearchParams{
		{Query: "bikes"},
		{Query: "bike", CategoryID: 1},
		{Query: "bike", MinPriceCents: 100},
		{Query: "bike", MaxPriceCents: 100},
		{Query: "bike", Sort: lavka.SortPriceDesc},
		{Query: "bike", Limit: 50},
		{Query: "bike", Offset: 20},
		{Query: "bike", UserID: 9},
		{Query: "bike", Status: lavka.StatusSold},
	}

	baseHash := HashSearchParams(base)
	seen := map[string]int{baseHash: -1}
	for i, v := range variants {
		h := HashSearchParams(v)
		if h == baseHash {
			t.Errorf("variant %d hashed same as base", i)
		}
		if prev, dup := seen[h]; dup {
			t.Errorf("variants %d and %d collided", prev, i)
		}
		seen[h] = i
	}
}

func TestHashSearchParamsQueryCannotForgeFields(t *testing.T) {
	t.Parallel()

	// The query is length-prefixed, so embedding the canonical delimiter
	// cannot impersonate another field.
	a := lavka.SearchParams{Query: "bike|cat=1"}
	b := lavka.SearchParams{Query: "bike", CategoryID: 1}
	if HashSearchParams(a) == HashSearchParams(b) {
		t.Error("crafted query collided with a structured filter")
	}
}

func TestHashSearchParamsSchemeTag(t *testing.T) {
	t.Parallel()

	h := HashSearchParams(lavka.SearchParams{})
	if !strings.HasPrefix(h, "v2") {
		t.Errorf("hash %q missing scheme tag", h)
	}
}
