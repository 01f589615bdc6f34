// Package storage defines the source-of-truth persistence interfaces for the
// marketplace. The cache layer is always reconstructible from these stores.
package storage

import (
	"context"

	lavka "github.com/mkuzmin/lavka/internal"
)

// ListingStore manages listing persistence and the read queries that back
// the cache's fetch-on-miss callbacks.
type ListingStore interface {
	CreateListing(ctx context.Context, l *lavka.Listing) error
	GetListing(ctx context.Context, id string) (*lavka.Listing, error)
	UpdateListing(ctx context.Context, l *lavka.Listing) error
	DeleteListing(ctx context.Context, id string) error
	// ListingsByCategory returns the active listings of a category, newest
	// first, with the total count of the category's active listings.
	ListingsByCategory(ctx context.Context, categoryID int64, limit, offset int) (*lavka.CategoryListings, error)
	// SearchListings runs the filtered search over normalized params.
	SearchListings(ctx context.Context, p lavka.SearchParams) (*lavka.SearchResult, error)
}

// CategoryStore manages category persistence.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *lavka.Category) error
	GetCategory(ctx context.Context, id int64) (*lavka.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*lavka.Category, error)
	UpdateCategory(ctx context.Context, c *lavka.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	// ListActiveCategories returns active categories ordered by position.
	ListActiveCategories(ctx context.Context) ([]lavka.Category, error)
}

// UserStore manages user profile persistence.
type UserStore interface {
	UpsertUserProfile(ctx context.Context, p *lavka.UserProfile) error
	// GetUserProfile returns the denormalized profile view, including the
	// user's current active listing count.
	GetUserProfile(ctx context.Context, userID int64) (*lavka.UserProfile, error)
}

// Store combines all storage interfaces.
type Store interface {
	ListingStore
	CategoryStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
