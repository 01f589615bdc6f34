// Package config provides configuration loading and database bootstrapping.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lavka "github.com/mkuzmin/lavka/internal"
	"github.com/mkuzmin/lavka/internal/storage"
)

// Bootstrap seeds the category tree and demo users from the config file.
// Seeding is idempotent: a category whose slug already exists and a user whose
// profile already exists are skipped, so restarts never duplicate or clobber
// rows.
func Bootstrap(ctx context.Context, cfg *Config, store storage.Store) error {
	for _, entry := range cfg.Categories {
		if entry.Slug == "" || entry.Name == "" {
			return fmt.Errorf("category seed needs name and slug: %+v", entry)
		}

		existing, err := store.GetCategoryBySlug(ctx, entry.Slug)
		if err != nil && !errors.Is(err, lavka.ErrNotFound) {
			return err
		}
		if existing != nil {
			continue
		}

		var parentID *int64
		if entry.ParentSlug != "" {
			parent, err := store.GetCategoryBySlug(ctx, entry.ParentSlug)
			if err != nil {
				return fmt.Errorf("category %q: parent %q: %w", entry.Slug, entry.ParentSlug, err)
			}
			parentID = &parent.ID
		}

		cat := &lavka.Category{
			ParentID: parentID,
			Name:     entry.Name,
			Slug:     entry.Slug,
			Position: entry.Position,
			Active:   true,
		}
		if err := store.CreateCategory(ctx, cat); err != nil {
			return err
		}
		slog.Info("bootstrapped category", "slug", entry.Slug, "id", cat.ID)
	}

	for _, entry := range cfg.Users {
		if entry.UserID == 0 {
			return fmt.Errorf("user seed needs user_id: %+v", entry)
		}

		if _, err := store.GetUserProfile(ctx, entry.UserID); err == nil {
			continue
		} else if !errors.Is(err, lavka.ErrNotFound) {
			return err
		}

		p := &lavka.UserProfile{
			UserID:      entry.UserID,
			Username:    entry.Username,
			DisplayName: entry.DisplayName,
			JoinedAt:    time.Now().UTC(),
		}
		if err := store.UpsertUserProfile(ctx, p); err != nil {
			return err
		}
		slog.Info("bootstrapped user", "user_id", entry.UserID, "username", entry.Username)
	}
	return nil
}
