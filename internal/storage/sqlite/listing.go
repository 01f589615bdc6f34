package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	lavka "github.com/mkuzmin/lavka/internal"
)

// CreateListing inserts a new listing.
func (s *Store) CreateListing(ctx context.Context, l *lavka.Listing) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO listings (id, category_id, user_id, title, description, price_cents, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CategoryID, l.UserID, l.Title, l.Description, l.PriceCents,
		string(l.Status), timeStr(l.CreatedAt), timeStr(l.UpdatedAt),
	)
	return err
}

// GetListing retrieves a listing by ID.
func (s *Store) GetListing(ctx context.Context, id string) (*lavka.Listing, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, category_id, user_id, title, description, price_cents, status, created_at, updated_at
		 FROM listings WHERE id = ?`, id,
	)
	return scanListing(row)
}

// UpdateListing updates an existing listing.
func (s *Store) UpdateListing(ctx context.Context, l *lavka.Listing) error {
	result, err := s.write.ExecContext(ctx,
		`UPDATE listings SET category_id=?, title=?, description=?, price_cents=?, status=?, updated_at=?
		 WHERE id=?`,
		l.CategoryID, l.Title, l.Description, l.PriceCents, string(l.Status),
		timeStr(l.UpdatedAt), l.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "listing")
}

// DeleteListing removes a listing.
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "listing")
}

// ListingsByCategory returns a page of a category's active listings, newest
// first, plus the category's total active count.
func (s *Store) ListingsByCategory(ctx context.Context, categoryID int64, limit, offset int) (*lavka.CategoryListings, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	err := s.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE category_id = ? AND status = ?`,
		categoryID, string(lavka.StatusActive),
	).Scan(&total)
	if err != nil {
		return nil, err
	}

	rows, err := s.read.QueryContext(ctx,
		`SELECT id, category_id, user_id, title, description, price_cents, status, created_at, updated_at
		 FROM listings WHERE category_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		categoryID, string(lavka.StatusActive), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings, err := collectListings(rows)
	if err != nil {
		return nil, err
	}
	return &lavka.CategoryListings{Listings: listings, Total: total}, nil
}

// SearchListings runs the filtered listing search. Params are normalized
// before querying so the result matches what was hashed for the cache key.
func (s *Store) SearchListings(ctx context.Context, p lavka.SearchParams) (*lavka.SearchResult, error) {
	p = p.Normalize()

	where := []string{"status = ?"}
	status := p.Status
	if status == "" {
		status = lavka.StatusActive
	}
	args := []any{string(status)}

	if p.Query != "" {
		where = append(where, "(title LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(p.Query) + "%"
		args = append(args, pattern, pattern)
	}
	if p.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, p.CategoryID)
	}
	if p.MinPriceCents > 0 {
		where = append(where, "price_cents >= ?")
		args = append(args, p.MinPriceCents)
	}
	if p.MaxPriceCents > 0 {
		where = append(where, "price_cents <= ?")
		args = append(args, p.MaxPriceCents)
	}
	if p.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, p.UserID)
	}

	var order string
	switch p.Sort {
	case lavka.SortPriceAsc:
		order = "price_cents ASC, created_at DESC"
	case lavka.SortPriceDesc:
		order = "price_cents DESC, created_at DESC"
	default:
		order = "created_at DESC"
	}

	cond := strings.Join(where, " AND ")

	var total int
	err := s.read.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM listings WHERE "+cond, args...,
	).Scan(&total)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT id, category_id, user_id, title, description, price_cents, status, created_at, updated_at
		 FROM listings WHERE %s ORDER BY %s LIMIT ? OFFSET ?`, cond, order)
	rows, err := s.read.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings, err := collectListings(rows)
	if err != nil {
		return nil, err
	}
	return &lavka.SearchResult{
		Listings: listings,
		Total:    total,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}, nil
}

// escapeLike neutralizes LIKE wildcards in user input. SQLite's LIKE is
// case-insensitive for ASCII, which is the behavior search wants.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

func collectListings(rows *sql.Rows) ([]lavka.Listing, error) {
	listings := []lavka.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func scanListing(sc scanner) (*lavka.Listing, error) {
	var l lavka.Listing
	var status, createdAt, updatedAt string
	err := sc.Scan(&l.ID, &l.CategoryID, &l.UserID, &l.Title, &l.Description,
		&l.PriceCents, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	l.Status = lavka.ListingStatus(status)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}

// --- Shared scan helpers ---

type scanner interface {
	Scan(dest ...any) error
}

// notFoundErr translates sql.ErrNoRows to lavka.ErrNotFound.
func notFoundErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return lavka.ErrNotFound
	}
	return err
}

func checkRowsAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, lavka.ErrNotFound)
	}
	return nil
}

// timeStr stores timestamps as RFC3339 UTC so lexicographic ORDER BY is
// chronological.
func timeStr(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
