package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	lavka "github.com/mkuzmin/lavka/internal"
	"github.com/mkuzmin/lavka/internal/app"
	"github.com/mkuzmin/lavka/internal/cache"
)

// cachedResponse wraps a catalog read result with cache provenance.
type cachedResponse struct {
	Data      any        `json:"data"`
	Cached    bool       `json:"cached"`
	CachedAt  *time.Time `json:"cached_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// writeCached sets the X-Cache header and renders the standard read envelope.
func writeCached[T any](w http.ResponseWriter, res cache.Cached[T]) {
	out := cachedResponse{Data: res.Data, Cached: res.FromCache}
	if res.FromCache {
		w.Header().Set("X-Cache", "hit")
		out.CachedAt = &res.CachedAt
		out.ExpiresAt = &res.ExpiresAt
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	writeJSON(w, http.StatusOK, out)
}

// readOpts builds the per-request cache options: ?fresh=1 bypasses the cache,
// and ?ttl=<seconds> overrides the namespace TTL when the request carries the
// admin key.
func (s *server) readOpts(r *http.Request) app.Opts {
	opts := app.Opts{BypassCache: r.URL.Query().Get("fresh") == "1"}
	if raw := r.URL.Query().Get("ttl"); raw != "" && s.adminOK(r) {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			opts.TTL = time.Duration(secs) * time.Second
		}
	}
	return opts
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// --- Reads ---

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Catalog.Categories(r.Context(), s.readOpts(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, res)
}

func (s *server) handleCategoryListings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid category id"))
		return
	}
	res, err := s.deps.Catalog.CategoryListings(r.Context(), id, s.readOpts(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, res)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := lavka.SearchParams{
		Query: q.Get("q"),
		Sort:  q.Get("sort"),
	}
	p.CategoryID, _ = strconv.ParseInt(q.Get("category"), 10, 64)
	p.MinPriceCents, _ = strconv.ParseInt(q.Get("min_price"), 10, 64)
	p.MaxPriceCents, _ = strconv.ParseInt(q.Get("max_price"), 10, 64)
	p.UserID, _ = strconv.ParseInt(q.Get("user"), 10, 64)
	p.Limit, _ = strconv.Atoi(q.Get("limit"))
	p.Offset, _ = strconv.Atoi(q.Get("offset"))
	if status := q.Get("status"); status != "" {
		p.Status = lavka.ListingStatus(status)
		if !p.Status.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid status"))
			return
		}
	}

	res, err := s.deps.Catalog.Search(r.Context(), p, s.readOpts(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, res)
}

func (s *server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}
	res, err := s.deps.Catalog.UserProfile(r.Context(), id, s.readOpts(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, res)
}

func (s *server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.deps.Catalog.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// --- Writes ---

type listingRequest struct {
	CategoryID  int64  `json:"category_id"`
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Status      string `json:"status"`
}

func (s *server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l := &lavka.Listing{
		CategoryID:  req.CategoryID,
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Status:      lavka.ListingStatus(req.Status),
	}
	if err := s.deps.Catalog.CreateListing(r.Context(), l); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l := &lavka.Listing{
		ID:          chi.URLParam(r, "id"),
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Status:      lavka.ListingStatus(req.Status),
	}
	if err := s.deps.Catalog.UpdateListing(r.Context(), l); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *server) handleListingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := s.deps.Catalog.SetListingStatus(r.Context(), chi.URLParam(r, "id"), lavka.ListingStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteListing(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	ParentID *int64 `json:"parent_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Position int    `json:"position"`
	Active   *bool  `json:"active"`
}

func (s *server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat := &lavka.Category{
		ParentID: req.ParentID,
		Name:     req.Name,
		Slug:     req.Slug,
		Position: req.Position,
		Active:   req.Active == nil || *req.Active,
	}
	if err := s.deps.Catalog.CreateCategory(r.Context(), cat); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid category id"))
		return
	}
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat := &lavka.Category{
		ID:       id,
		ParentID: req.ParentID,
		Name:     req.Name,
		Slug:     req.Slug,
		Position: req.Position,
		Active:   req.Active == nil || *req.Active,
	}
	if err := s.deps.Catalog.UpdateCategory(r.Context(), cat); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid category id"))
		return
	}
	if err := s.deps.Catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSaveUserProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}
	var req struct {
		Username    string  `json:"username"`
		DisplayName string  `json:"display_name"`
		Rating      float64 `json:"rating"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p := &lavka.UserProfile{
		UserID:      id,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Rating:      req.Rating,
	}
	if err := s.deps.Catalog.SaveUserProfile(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
