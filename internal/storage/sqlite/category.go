package sqlite

import (
	"context"
	"database/sql"

	lavka "github.com/mkuzmin/lavka/internal"
)

// CreateCategory inserts a new category and fills in the assigned ID.
func (s *Store) CreateCategory(ctx context.Context, c *lavka.Category) error {
	result, err := s.write.ExecContext(ctx,
		`INSERT INTO categories (parent_id, name, slug, position, active)
		 VALUES (?, ?, ?, ?, ?)`,
		nullInt64(c.ParentID), c.Name, c.Slug, c.Position, boolToInt(c.Active),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetCategory retrieves a category by ID.
func (s *Store) GetCategory(ctx context.Context, id int64) (*lavka.Category, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, parent_id, name, slug, position, active FROM categories WHERE id = ?`, id,
	)
	return scanCategory(row)
}

// GetCategoryBySlug retrieves a category by its unique slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*lavka.Category, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, parent_id, name, slug, position, active FROM categories WHERE slug = ?`, slug,
	)
	return scanCategory(row)
}

// UpdateCategory updates an existing category.
func (s *Store) UpdateCategory(ctx context.Context, c *lavka.Category) error {
	result, err := s.write.ExecContext(ctx,
		`UPDATE categories SET parent_id=?, name=?, slug=?, position=?, active=? WHERE id=?`,
		nullInt64(c.ParentID), c.Name, c.Slug, c.Position, boolToInt(c.Active), c.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "category")
}

// DeleteCategory removes a category.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "category")
}

// ListActiveCategories returns all active categories ordered by position,
// then name for a stable tie-break.
func (s *Store) ListActiveCategories(ctx context.Context) ([]lavka.Category, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, parent_id, name, slug, position, active
		 FROM categories WHERE active = 1 ORDER BY position, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []lavka.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func scanCategory(sc scanner) (*lavka.Category, error) {
	var c lavka.Category
	var parent sql.NullInt64
	var active int
	err := sc.Scan(&c.ID, &parent, &c.Name, &c.Slug, &c.Position, &active)
	if err != nil {
		return nil, notFoundErr(err)
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	c.Active = active != 0
	return &c, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
