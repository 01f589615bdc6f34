package cache

import (
	"context"
	"time"

	lavka "github.com/mkuzmin/lavka/internal"
)

// Market is the typed per-entity façade over the generic store: one
// read/write pair per namespace, so handlers never touch raw keys or blobs.
type Market struct {
	store *Store
	ttl   TTLPolicy
}

// NewMarket creates the façade with the given TTL policy.
func NewMarket(store *Store, ttl TTLPolicy) *Market {
	return &Market{store: store, ttl: ttl}
}

// Store returns the underlying generic store (for the coordinator and admin
// tooling).
func (m *Market) Store() *Store { return m.store }

// CategoryListings returns the cached listing page for a category.
func (m *Market) CategoryListings(ctx context.Context, categoryID int64) (Cached[lavka.CategoryListings], bool) {
	return Get[lavka.CategoryListings](ctx, m.store, CategoryListingsKey(categoryID))
}

// SetCategoryListings caches a category's listing page. ttl <= 0 applies the
// namespace default.
func (m *Market) SetCategoryListings(ctx context.Context, categoryID int64, v lavka.CategoryListings, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttl.For(NSCategory)
	}
	Set(ctx, m.store, CategoryListingsKey(categoryID), v, ttl)
}

// SearchResults returns the cached result page for a search filter set.
func (m *Market) SearchResults(ctx context.Context, p lavka.SearchParams) (Cached[lavka.SearchResult], bool) {
	return Get[lavka.SearchResult](ctx, m.store, SearchResultsKey(HashSearchParams(p)))
}

// SetSearchResults caches a search result page under the params' hash.
func (m *Market) SetSearchResults(ctx context.Context, p lavka.SearchParams, v lavka.SearchResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttl.For(NSSearch)
	}
	Set(ctx, m.store, SearchResultsKey(HashSearchParams(p)), v, ttl)
}

// Categories returns the cached active category list.
func (m *Market) Categories(ctx context.Context) (Cached[[]lavka.Category], bool) {
	return Get[[]lavka.Category](ctx, m.store, CategoriesKey())
}

// SetCategories caches the active category list.
func (m *Market) SetCategories(ctx context.Context, v []lavka.Category, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttl.For(NSCategories)
	}
	Set(ctx, m.store, CategoriesKey(), v, ttl)
}

// UserProfile returns the cached profile view for a user.
func (m *Market) UserProfile(ctx context.Context, userID int64) (Cached[lavka.UserProfile], bool) {
	return Get[lavka.UserProfile](ctx, m.store, UserProfileKey(userID))
}

// SetUserProfile caches a user's profile view.
func (m *Market) SetUserProfile(ctx context.Context, userID int64, v lavka.UserProfile, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttl.For(NSUser)
	}
	Set(ctx, m.store, UserProfileKey(userID), v, ttl)
}
