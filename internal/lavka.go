// Package lavka defines domain types and interfaces for the Lavka marketplace
// backend. This package has no project imports -- it is the dependency root.
package lavka

import (
	"context"
	"strings"
	"time"
)

// --- Listings ---

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	StatusActive  ListingStatus = "active"
	StatusPaused  ListingStatus = "paused"
	StatusSold    ListingStatus = "sold"
	StatusDeleted ListingStatus = "deleted"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusSold, StatusDeleted:
		return true
	}
	return false
}

// Listing is a single marketplace item offered by a Telegram user.
type Listing struct {
	ID          string        `json:"id"`
	CategoryID  int64         `json:"category_id"`
	UserID      int64         `json:"user_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	PriceCents  int64         `json:"price_cents"`
	Status      ListingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// --- Categories ---

// Category is a node in the (two-level) marketplace category tree.
type Category struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Position int    `json:"position"`
	Active   bool   `json:"active"`
}

// --- Users ---

// UserProfile is the denormalized, read-optimized view of a marketplace user.
// ListingCount is derived from the listings table at read time.
type UserProfile struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	DisplayName  string    `json:"display_name"`
	Rating       float64   `json:"rating"`
	ListingCount int       `json:"listing_count"`
	JoinedAt     time.Time `json:"joined_at"`
}

// --- Search ---

// Sort modes accepted by SearchParams.Sort.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// SearchParams holds the optional filters of a listing search. The zero value
// of every field means "not set", so an omitted filter and an explicitly
// defaulted one are indistinguishable -- cache keys rely on that.
type SearchParams struct {
	Query         string        `json:"q,omitempty"`
	CategoryID    int64         `json:"category_id,omitempty"`
	MinPriceCents int64         `json:"min_price,omitempty"`
	MaxPriceCents int64         `json:"max_price,omitempty"`
	Sort          string        `json:"sort,omitempty"`
	Limit         int           `json:"limit,omitempty"`
	Offset        int           `json:"offset,omitempty"`
	UserID        int64         `json:"user_id,omitempty"`
	Status        ListingStatus `json:"status,omitempty"`
}

// Normalize trims free text and clamps pagination to sane bounds.
// Callers hash and query the normalized form so equivalent filter sets
// resolve to the same cache entry.
func (p SearchParams) Normalize() SearchParams {
	p.Query = strings.TrimSpace(p.Query)
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// --- Read views ---

// CategoryListings is the cached page of listings for one category.
type CategoryListings struct {
	Listings []Listing `json:"listings"`
	Total    int       `json:"total"`
}

// SearchResult is the cached result page for one search filter set.
type SearchResult struct {
	Listings []Listing `json:"listings"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the request ID from context, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}
