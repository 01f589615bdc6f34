package server

import (
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/mkuzmin/lavka/internal/cache"
)

// handleCachePurge drops cache entries. The request names either an exact key
// or a prefix; prefix purges run the paged bulk invalidator.
func (s *server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key    string `json:"key"`
		Prefix string `json:"prefix"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch {
	case req.Prefix != "":
		s.deps.Invalidator.InvalidateByPrefix(r.Context(), req.Prefix)
	case req.Key != "":
		s.deps.Store.Delete(r.Context(), req.Key)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse("key or prefix required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCacheKeys lists cache keys under a prefix, one page per call.
func (s *server) handleCacheKeys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	cursor := q.Get("cursor")
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	page, err := s.deps.Store.Backend().List(r.Context(), prefix, cursor, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Keys     []string `json:"keys"`
		Cursor   string   `json:"cursor,omitempty"`
		Complete bool     `json:"complete"`
	}{page.Keys, page.Cursor, page.Complete})
}

// handleCacheEntry returns the raw stored envelope for a key, with the data
// payload elided to its top-level shape. gjson reads the envelope fields
// without committing to any payload type.
func (s *server) handleCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("key required"))
		return
	}

	raw, found, err := s.deps.Store.Backend().Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse("not found"))
		return
	}

	env := gjson.ParseBytes(raw)
	writeJSON(w, http.StatusOK, struct {
		Key       string `json:"key"`
		Namespace string `json:"namespace"`
		CachedAt  string `json:"cached_at"`
		ExpiresAt string `json:"expires_at"`
		HitCount  int64  `json:"hit_count"`
		LastHit   string `json:"last_hit,omitempty"`
		DataBytes int    `json:"data_bytes"`
	}{
		Key:       key,
		Namespace: cache.Namespace(key),
		CachedAt:  env.Get("cached_at").String(),
		ExpiresAt: env.Get("expires_at").String(),
		HitCount:  env.Get("hit_count").Int(),
		LastHit:   env.Get("last_hit").String(),
		DataBytes: len(env.Get("data").Raw),
	})
}
