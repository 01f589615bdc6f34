package sqlite

import (
	"context"

	lavka "github.com/mkuzmin/lavka/internal"
)

// UpsertUserProfile inserts or replaces a user's stored profile fields.
// ListingCount is derived at read time and not persisted.
func (s *Store) UpsertUserProfile(ctx context.Context, p *lavka.UserProfile) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO users (user_id, username, display_name, rating, joined_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   username = excluded.username,
		   display_name = excluded.display_name,
		   rating = excluded.rating`,
		p.UserID, p.Username, p.DisplayName, p.Rating, timeStr(p.JoinedAt),
	)
	return err
}

// GetUserProfile returns the denormalized profile view: stored fields plus
// the user's current active listing count.
func (s *Store) GetUserProfile(ctx context.Context, userID int64) (*lavka.UserProfile, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT u.user_id, u.username, u.display_name, u.rating, u.joined_at,
		        (SELECT COUNT(*) FROM listings l WHERE l.user_id = u.user_id AND l.status = ?)
		 FROM users u WHERE u.user_id = ?`,
		string(lavka.StatusActive), userID,
	)

	var p lavka.UserProfile
	var joinedAt string
	err := row.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.Rating, &joinedAt, &p.ListingCount)
	if err != nil {
		return nil, notFoundErr(err)
	}
	p.JoinedAt = parseTime(joinedAt)
	return &p, nil
}
