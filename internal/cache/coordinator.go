package cache

import (
	"context"
)

// ListingEvent describes a committed listing mutation (create, update,
// delete, or status transition).
type ListingEvent struct {
	ID         string
	CategoryID int64
	UserID     int64
}

// CategoryEvent describes a committed category mutation.
type CategoryEvent struct {
	ID       int64
	ParentID *int64
}

// Coordinator maps committed domain mutations to the cache keys and prefixes
// that must be dropped. Callers invoke it strictly after their own commit to
// the source of truth; firing earlier risks a stale read repopulating the
// cache with pre-write data.
type Coordinator struct {
	store *Store
	bulk  *Invalidator
}

// NewCoordinator creates a Coordinator over the given store and invalidator.
func NewCoordinator(store *Store, bulk *Invalidator) *Coordinator {
	return &Coordinator{store: store, bulk: bulk}
}

// OnListingChange invalidates everything a listing write can make stale: the
// listing's category page, the whole search namespace, and the owner's
// profile view (its listing count changed).
//
// The search namespace is dropped wholesale because selecting the affected
// query results would require a reverse index of cached queries per listing.
// Hit ratio is traded for a provably correct rule.
func (c *Coordinator) OnListingChange(ctx context.Context, ev ListingEvent) {
	c.store.Delete(ctx, CategoryListingsKey(ev.CategoryID))
	c.bulk.InvalidateByPrefix(ctx, SearchPrefix)
	c.store.Delete(ctx, UserProfileKey(ev.UserID))
}

// OnCategoryChange invalidates the category tree and the category's own
// listing page. When the category has a parent, the parent's page is dropped
// too: a parent's listing view may roll up child-category listings.
func (c *Coordinator) OnCategoryChange(ctx context.Context, ev CategoryEvent) {
	c.store.Delete(ctx, CategoriesKey())
	c.store.Delete(ctx, CategoryListingsKey(ev.ID))
	if ev.ParentID != nil {
		c.store.Delete(ctx, CategoryListingsKey(*ev.ParentID))
	}
}

// OnUserChange invalidates the user's profile view only.
func (c *Coordinator) OnUserChange(ctx context.Context, userID int64) {
	c.store.Delete(ctx, UserProfileKey(userID))
}
