// Package server implements the HTTP transport layer for the lavka catalog.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkuzmin/lavka/internal/app"
	"github.com/mkuzmin/lavka/internal/cache"
	"github.com/mkuzmin/lavka/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Catalog        *app.Catalog
	Invalidator    *cache.Invalidator
	Store          *cache.Store       // backend access for admin key inspection
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	Metrics        *telemetry.Metrics // nil = no metrics middleware
	MetricsHandler http.Handler       // nil = no /metrics endpoint
	AdminKey       string             // empty = admin endpoints disabled
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Public catalog API
	r.Route("/v1", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/{id}/listings", s.handleCategoryListings)
		r.Get("/search", s.handleSearch)
		r.Get("/users/{id}/profile", s.handleUserProfile)
		r.Put("/users/{id}", s.handleSaveUserProfile)

		r.Post("/listings", s.handleCreateListing)
		r.Get("/listings/{id}", s.handleGetListing)
		r.Put("/listings/{id}", s.handleUpdateListing)
		r.Post("/listings/{id}/status", s.handleListingStatus)
		r.Delete("/listings/{id}", s.handleDeleteListing)

		r.Post("/categories", s.handleCreateCategory)
		r.Put("/categories/{id}", s.handleUpdateCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)
	})

	// Cache administration (key required)
	if deps.AdminKey != "" {
		r.Route("/admin/cache", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Post("/purge", s.handleCachePurge)
			r.Get("/keys", s.handleCacheKeys)
			r.Get("/entry", s.handleCacheEntry)
		})
	}

	return r
}

type server struct {
	deps Deps
}
