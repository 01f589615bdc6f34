// Package app holds the application services composing storage and cache.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	lavka "github.com/mkuzmin/lavka/internal"
	"github.com/mkuzmin/lavka/internal/cache"
	"github.com/mkuzmin/lavka/internal/storage"
	"github.com/mkuzmin/lavka/internal/telemetry"
)

// Opts controls a single cached read.
type Opts struct {
	// TTL overrides the namespace default for the repopulating set. <= 0
	// keeps the default.
	TTL time.Duration
	// BypassCache forces the read to the source of truth. The result still
	// repopulates the cache.
	BypassCache bool
}

// Catalog is the read-through service: reads consult the cache façade and
// fall back to storage, writes commit to storage and then notify the
// invalidation coordinator. The cache can fail or disappear entirely without
// affecting any return value here.
type Catalog struct {
	store  storage.Store
	cache  *cache.Market
	inval  *cache.Coordinator
	tracer trace.Tracer
}

// NewCatalog wires the service. All collaborators are passed explicitly;
// there is no package-level state.
func NewCatalog(store storage.Store, market *cache.Market, inval *cache.Coordinator) *Catalog {
	return &Catalog{
		store:  store,
		cache:  market,
		inval:  inval,
		tracer: telemetry.Tracer("lavka/catalog"),
	}
}

// --- Reads ---

// Categories returns the active category tree, cache-first.
func (c *Catalog) Categories(ctx context.Context, opts Opts) (cache.Cached[[]lavka.Category], error) {
	if !opts.BypassCache {
		if res, ok := c.cache.Categories(ctx); ok {
			return res, nil
		}
	}
	cats, err := c.store.ListActiveCategories(ctx)
	if err != nil {
		return cache.Cached[[]lavka.Category]{}, err
	}
	c.cache.SetCategories(ctx, cats, opts.TTL)
	return cache.Cached[[]lavka.Category]{Data: cats}, nil
}

// CategoryListings returns the first page of a category's active listings,
// cache-first. The category page cache is unpaginated by design: only the
// default page is cached, deeper pages always hit storage.
func (c *Catalog) CategoryListings(ctx context.Context, categoryID int64, opts Opts) (cache.Cached[lavka.CategoryListings], error) {
	if !opts.BypassCache {
		if res, ok := c.cache.CategoryListings(ctx, categoryID); ok {
			return res, nil
		}
	}
	page, err := c.store.ListingsByCategory(ctx, categoryID, 0, 0)
	if err != nil {
		return cache.Cached[lavka.CategoryListings]{}, err
	}
	c.cache.SetCategoryListings(ctx, categoryID, *page, opts.TTL)
	return cache.Cached[lavka.CategoryListings]{Data: *page}, nil
}

// Search returns a page of listings matching the filter set, cache-first.
func (c *Catalog) Search(ctx context.Context, p lavka.SearchParams, opts Opts) (cache.Cached[lavka.SearchResult], error) {
	p = p.Normalize()

	ctx, span := c.tracer.Start(ctx, "catalog.search")
	defer span.End()

	if !opts.BypassCache {
		if res, ok := c.cache.SearchResults(ctx, p); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return res, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err := c.store.SearchListings(ctx, p)
	if err != nil {
		return cache.Cached[lavka.SearchResult]{}, err
	}
	c.cache.SetSearchResults(ctx, p, *result, opts.TTL)
	return cache.Cached[lavka.SearchResult]{Data: *result}, nil
}

// UserProfile returns the denormalized profile view, cache-first.
func (c *Catalog) UserProfile(ctx context.Context, userID int64, opts Opts) (cache.Cached[lavka.UserProfile], error) {
	if !opts.BypassCache {
		if res, ok := c.cache.UserProfile(ctx, userID); ok {
			return res, nil
		}
	}
	profile, err := c.store.GetUserProfile(ctx, userID)
	if err != nil {
		return cache.Cached[lavka.UserProfile]{}, err
	}
	c.cache.SetUserProfile(ctx, userID, *profile, opts.TTL)
	return cache.Cached[lavka.UserProfile]{Data: *profile}, nil
}

// GetListing reads a single listing straight from storage; individual
// listings are not cached.
func (c *Catalog) GetListing(ctx context.Context, id string) (*lavka.Listing, error) {
	return c.store.GetListing(ctx, id)
}

// --- Writes ---
// Every write commits to storage first and notifies the coordinator only
// after the commit returned, so a racing read cannot repopulate the cache
// with pre-write data.

// CreateListing validates, persists, and returns a new listing.
func (c *Catalog) CreateListing(ctx context.Context, l *lavka.Listing) error {
	if l.Title == "" || l.CategoryID == 0 || l.UserID == 0 || l.PriceCents < 0 {
		return lavka.ErrBadRequest
	}
	if _, err := c.store.GetCategory(ctx, l.CategoryID); err != nil {
		return err
	}

	l.ID = uuid.Must(uuid.NewV7()).String()
	if l.Status == "" {
		l.Status = lavka.StatusActive
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	if err := c.store.CreateListing(ctx, l); err != nil {
		return err
	}
	c.inval.OnListingChange(ctx, listingEvent(l))
	return nil
}

// UpdateListing applies new field values to an existing listing. When the
// listing moved between categories, both the old and the new category pages
// are invalidated.
func (c *Catalog) UpdateListing(ctx context.Context, l *lavka.Listing) error {
	prev, err := c.store.GetListing(ctx, l.ID)
	if err != nil {
		return err
	}
	if l.Status != "" && !l.Status.Valid() {
		return lavka.ErrBadRequest
	}
	if l.Status == "" {
		l.Status = prev.Status
	}
	l.UserID = prev.UserID
	if l.CategoryID == 0 {
		l.CategoryID = prev.CategoryID
	}
	l.UpdatedAt = time.Now().UTC()

	if err := c.store.UpdateListing(ctx, l); err != nil {
		return err
	}
	c.inval.OnListingChange(ctx, listingEvent(l))
	if prev.CategoryID != l.CategoryID {
		c.inval.OnListingChange(ctx, listingEvent(prev))
	}
	return nil
}

// SetListingStatus transitions a listing's lifecycle state.
func (c *Catalog) SetListingStatus(ctx context.Context, id string, status lavka.ListingStatus) (*lavka.Listing, error) {
	if !status.Valid() {
		return nil, lavka.ErrBadRequest
	}
	l, err := c.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Status = status
	l.UpdatedAt = time.Now().UTC()
	if err := c.store.UpdateListing(ctx, l); err != nil {
		return nil, err
	}
	c.inval.OnListingChange(ctx, listingEvent(l))
	return l, nil
}

// DeleteListing removes a listing permanently.
func (c *Catalog) DeleteListing(ctx context.Context, id string) error {
	l, err := c.store.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.DeleteListing(ctx, id); err != nil {
		return err
	}
	c.inval.OnListingChange(ctx, listingEvent(l))
	return nil
}

// CreateCategory persists a new category.
func (c *Catalog) CreateCategory(ctx context.Context, cat *lavka.Category) error {
	if cat.Name == "" || cat.Slug == "" {
		return lavka.ErrBadRequest
	}
	if err := c.store.CreateCategory(ctx, cat); err != nil {
		return err
	}
	c.inval.OnCategoryChange(ctx, cache.CategoryEvent{ID: cat.ID, ParentID: cat.ParentID})
	return nil
}

// UpdateCategory updates an existing category.
func (c *Catalog) UpdateCategory(ctx context.Context, cat *lavka.Category) error {
	if err := c.store.UpdateCategory(ctx, cat); err != nil {
		return err
	}
	c.inval.OnCategoryChange(ctx, cache.CategoryEvent{ID: cat.ID, ParentID: cat.ParentID})
	return nil
}

// DeleteCategory removes a category.
func (c *Catalog) DeleteCategory(ctx context.Context, id int64) error {
	cat, err := c.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	c.inval.OnCategoryChange(ctx, cache.CategoryEvent{ID: cat.ID, ParentID: cat.ParentID})
	return nil
}

// SaveUserProfile upserts a user's profile fields.
func (c *Catalog) SaveUserProfile(ctx context.Context, p *lavka.UserProfile) error {
	if p.UserID == 0 {
		return lavka.ErrBadRequest
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	if err := c.store.UpsertUserProfile(ctx, p); err != nil {
		return err
	}
	c.inval.OnUserChange(ctx, p.UserID)
	return nil
}

func listingEvent(l *lavka.Listing) cache.ListingEvent {
	return cache.ListingEvent{ID: l.ID, CategoryID: l.CategoryID, UserID: l.UserID}
}
