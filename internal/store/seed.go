package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/model"
	"inkwell/internal/util"
)

// demoPost is a sample article seeded into an empty database.
type demoPost struct {
	title    string
	subtitle string
	body     string
	imgURL   string
}

var demoPosts = []demoPost{
	{
		title:    "The Life of Cactus",
		subtitle: "Who knew that cacti lived such interesting lives.",
		body:     "Cacti are remarkable survivors. Their thick stems store water for months at a time, and their spines are leaves reshaped by millions of years of drought.\n\nGive one a sunny windowsill and it will quietly outlive every other plant you own.",
		imgURL:   "https://images.unsplash.com/photo-1530482054429-cc491f61333b",
	},
	{
		title:    "Top 15 Things to do When You are Bored",
		subtitle: "Are you bored? Don't know what to do? Try these!",
		body:     "Boredom is an invitation. Start with a walk, end with a project you never expected to finish.\n\n1. Walk somewhere new\n2. Write a letter by hand\n3. Cook something you cannot pronounce",
		imgURL:   "https://images.unsplash.com/photo-1497032628192-86f99bcd76bc",
	},
}

// SeedDemo inserts sample posts authored by the admin when seeding is
// enabled and the posts table is empty. It is a no-op when posts exist or
// when no admin account has been registered yet.
func SeedDemo(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		return nil
	}

	queries := New(db)

	count, err := queries.CountPosts(ctx)
	if err != nil {
		return fmt.Errorf("counting posts: %w", err)
	}
	if count > 0 {
		slog.Info("posts already exist, skipping demo seed")
		return nil
	}

	admin, err := firstAdmin(ctx, queries)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Info("no admin account yet, skipping demo seed")
			return nil
		}
		return fmt.Errorf("finding admin: %w", err)
	}

	now := time.Now()
	for _, dp := range demoPosts {
		post, err := queries.CreatePost(ctx, CreatePostParams{
			AuthorID:  admin.ID,
			Title:     dp.title,
			Subtitle:  dp.subtitle,
			Slug:      util.Slugify(dp.title),
			Date:      now.Format(model.PostDateFormat),
			Body:      dp.body,
			ImgURL:    dp.imgURL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("seeding post %q: %w", dp.title, err)
		}
		slog.Info("seeded demo post", "id", post.ID, "title", post.Title)
	}

	return nil
}

// firstAdmin returns the admin account, or sql.ErrNoRows when none exists.
func firstAdmin(ctx context.Context, q *Queries) (model.User, error) {
	const query = `
SELECT id, email, password_hash, role, name, created_at, updated_at, last_login_at
FROM users WHERE role = ? ORDER BY id ASC LIMIT 1`
	var u model.User
	err := scanUser(q.db.QueryRowContext(ctx, query, model.RoleAdmin), &u)
	return u, err
}
