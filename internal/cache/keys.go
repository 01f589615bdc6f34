// Package cache implements the read-through cache and cascading invalidation
// layer between the request handlers and the SQLite source of truth. It is
// strictly a performance layer: every value it holds is reconstructible, and
// no error it encounters is ever surfaced to a caller.
package cache

import (
	"strconv"
	"strings"
	"time"
)

// Key namespaces. A namespace is the leading segment of a key and is never
// reused for a different payload shape -- prefix invalidation depends on it.
const (
	NSCategory   = "category"   // category:{categoryID}:listings
	NSSearch     = "search"     // search:{paramHash}:results
	NSCategories = "categories" // categories:all
	NSUser       = "user"       // user:{userID}:profile
)

// SearchPrefix covers every cached search result regardless of hash scheme.
const SearchPrefix = NSSearch + ":"

// partEscaper encodes the key delimiter inside parts. Numeric IDs and base-36
// hash fragments pass through untouched; anything else cannot forge a key in
// another namespace.
var partEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Key builds a namespaced cache key: namespace + ":" + part + ":" + part...
// Same inputs always produce the same key.
func Key(namespace string, parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		if strings.ContainsAny(p, ":%") {
			p = partEscaper.Replace(p)
		}
		b.WriteString(p)
	}
	return b.String()
}

// CategoryListingsKey returns the key for a category's cached listing page.
func CategoryListingsKey(categoryID int64) string {
	return Key(NSCategory, strconv.FormatInt(categoryID, 10), "listings")
}

// SearchResultsKey returns the key for a cached search result page.
func SearchResultsKey(paramHash string) string {
	return Key(NSSearch, paramHash, "results")
}

// CategoriesKey returns the key for the full active category list.
func CategoriesKey() string {
	return Key(NSCategories, "all")
}

// UserProfileKey returns the key for a user's cached profile view.
func UserProfileKey(userID int64) string {
	return Key(NSUser, strconv.FormatInt(userID, 10), "profile")
}

// Namespace returns the leading segment of a key, for metric labels.
func Namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// TTLPolicy holds the default time-to-live per namespace, applied whenever a
// caller does not override the TTL on set.
type TTLPolicy struct {
	Listings   time.Duration
	Categories time.Duration
	Search     time.Duration
	Profile    time.Duration
	Default    time.Duration
}

// DefaultTTLPolicy returns the stock TTLs: listings 5m, categories 1h,
// search 10m, profiles 15m, 5m for anything unrecognized.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Listings:   5 * time.Minute,
		Categories: time.Hour,
		Search:     10 * time.Minute,
		Profile:    15 * time.Minute,
		Default:    5 * time.Minute,
	}
}

// For returns the TTL for a namespace.
func (p TTLPolicy) For(namespace string) time.Duration {
	switch namespace {
	case NSCategory:
		return p.Listings
	case NSCategories:
		return p.Categories
	case NSSearch:
		return p.Search
	case NSUser:
		return p.Profile
	default:
		return p.Default
	}
}
