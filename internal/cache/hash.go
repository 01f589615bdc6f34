package cache

import (
	"fmt"
	"hash/fnv"
	"strconv"

	lavka "github.com/mkuzmin/lavka/internal"
)

// hashScheme tags the digest algorithm inside the key fragment. Bump it when
// the canonical form or digest changes so new keys can never collide with
// entries written under an older scheme.
const hashScheme = "v2"

// HashSearchParams canonicalizes a search filter set and digests it into a
// short key fragment. Deterministic and order-independent: an omitted field
// and an explicitly zero-valued field produce the same fragment, since every
// field canonicalizes through its zero value.
//
// The digest is 64-bit FNV-1a, base-36 encoded. Distinct filter sets collide
// only with negligible probability at marketplace scale; equal filter sets
// always agree.
func HashSearchParams(p lavka.SearchParams) string {
	p = p.Normalize()

	// Fixed field order; the free-text query is length-prefixed so a crafted
	// query cannot impersonate the other fields.
	canonical := fmt.Sprintf("q=%d:%s|cat=%d|min=%d|max=%d|sort=%s|limit=%d|offset=%d|user=%d|status=%s",
		len(p.Query), p.Query, p.CategoryID, p.MinPriceCents, p.MaxPriceCents,
		p.Sort, p.Limit, p.Offset, p.UserID, p.Status)

	h := fnv.New64a()
	h.Write([]byte(canonical))
	return hashScheme + strconv.FormatUint(h.Sum64(), 36)
}
