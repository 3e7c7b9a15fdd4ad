// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides SQLite persistence: connection setup, embedded
// goose migrations, and typed queries over the users, posts, comments,
// and events tables.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"inkwell/internal/model"
)

// DBTX is the subset of *sql.DB / *sql.Tx used by Queries.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries exposes typed CRUD operations per entity.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given database or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// =============================================================================
// USERS
// =============================================================================

const createUser = `
INSERT INTO users (email, password_hash, role, name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, email, password_hash, role, name, created_at, updated_at, last_login_at
`

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user. A duplicate email surfaces as
// ErrDuplicateEmail; the insert is atomic either way.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email, arg.PasswordHash, arg.Role, arg.Name, arg.CreatedAt, arg.UpdatedAt)
	var u model.User
	err := scanUser(row, &u)
	if err != nil {
		return model.User{}, mapUserConflict(err)
	}
	return u, nil
}

const getUserByEmail = `
SELECT id, email, password_hash, role, name, created_at, updated_at, last_login_at
FROM users WHERE email = ?
`

// GetUserByEmail fetches a user by email. Returns sql.ErrNoRows when absent.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email), &u)
	return u, err
}

const getUserByID = `
SELECT id, email, password_hash, role, name, created_at, updated_at, last_login_at
FROM users WHERE id = ?
`

// GetUserByID fetches a user by ID. Returns sql.ErrNoRows when absent.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := scanUser(q.db.QueryRowContext(ctx, getUserByID, id), &u)
	return u, err
}

// CountUsers returns the total number of registered users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountUsersByRole returns the number of users with the given role.
func (q *Queries) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n)
	return n, err
}

// UpdateUserLastLoginParams holds the fields for UpdateUserLastLogin.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin stamps the user's last successful login time.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`, arg.LastLoginAt, arg.ID)
	return err
}

// UpdateUserPasswordParams holds the fields for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces the user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

func scanUser(row *sql.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
}

// =============================================================================
// POSTS
// =============================================================================

const postColumns = `id, author_id, title, subtitle, slug, date, body, img_url, created_at, updated_at`

const createPost = `
INSERT INTO posts (author_id, title, subtitle, slug, date, body, img_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + postColumns

// CreatePostParams holds the fields for CreatePost.
type CreatePostParams struct {
	AuthorID  int64
	Title     string
	Subtitle  string
	Slug      string
	Date      string
	Body      string
	ImgURL    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePost inserts a new post. A duplicate title or slug surfaces as
// ErrDuplicateTitle.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (model.BlogPost, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.AuthorID, arg.Title, arg.Subtitle, arg.Slug, arg.Date, arg.Body, arg.ImgURL,
		arg.CreatedAt, arg.UpdatedAt)
	var p model.BlogPost
	if err := scanPost(row, &p); err != nil {
		return model.BlogPost{}, mapPostConflict(err)
	}
	return p, nil
}

const updatePost = `
UPDATE posts
SET author_id = ?, title = ?, subtitle = ?, slug = ?, body = ?, img_url = ?, updated_at = ?
WHERE id = ?
RETURNING ` + postColumns

// UpdatePostParams holds the fields for UpdatePost. The publication date is
// immutable; authorship is reassigned to whoever performs the edit.
type UpdatePostParams struct {
	AuthorID  int64
	Title     string
	Subtitle  string
	Slug      string
	Body      string
	ImgURL    string
	UpdatedAt time.Time
	ID        int64
}

// UpdatePost updates all editable fields of a post. A duplicate title or
// slug surfaces as ErrDuplicateTitle; sql.ErrNoRows when the post is gone.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (model.BlogPost, error) {
	row := q.db.QueryRowContext(ctx, updatePost,
		arg.AuthorID, arg.Title, arg.Subtitle, arg.Slug, arg.Body, arg.ImgURL,
		arg.UpdatedAt, arg.ID)
	var p model.BlogPost
	if err := scanPost(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BlogPost{}, err
		}
		return model.BlogPost{}, mapPostConflict(err)
	}
	return p, nil
}

// DeletePost removes a post; its comments cascade at the schema level.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

const getPostByID = `SELECT ` + postColumns + ` FROM posts WHERE id = ?`

// GetPostByID fetches a post by ID. Returns sql.ErrNoRows when absent.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (model.BlogPost, error) {
	var p model.BlogPost
	err := scanPost(q.db.QueryRowContext(ctx, getPostByID, id), &p)
	return p, err
}

const getPostBySlug = `SELECT ` + postColumns + ` FROM posts WHERE slug = ?`

// GetPostBySlug fetches a post by its URL slug. Returns sql.ErrNoRows when absent.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	var p model.BlogPost
	err := scanPost(q.db.QueryRowContext(ctx, getPostBySlug, slug), &p)
	return p, err
}

// PostWithAuthor pairs a post with its author's public fields for rendering.
type PostWithAuthor struct {
	model.BlogPost
	AuthorName  string
	AuthorEmail string
}

const listPosts = `
SELECT p.id, p.author_id, p.title, p.subtitle, p.slug, p.date, p.body, p.img_url,
       p.created_at, p.updated_at, u.name, u.email
FROM posts p
JOIN users u ON u.id = p.author_id
ORDER BY p.id DESC
`

// ListPosts returns all posts, newest first, with author info resolved by join.
func (q *Queries) ListPosts(ctx context.Context) ([]PostWithAuthor, error) {
	rows, err := q.db.QueryContext(ctx, listPosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []PostWithAuthor
	for rows.Next() {
		var p PostWithAuthor
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Subtitle, &p.Slug, &p.Date,
			&p.Body, &p.ImgURL, &p.CreatedAt, &p.UpdatedAt, &p.AuthorName, &p.AuthorEmail); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPostAuthor fetches the author's public fields for a single post.
func (q *Queries) GetPostAuthor(ctx context.Context, postID int64) (model.User, error) {
	const query = `
SELECT u.id, u.email, u.password_hash, u.role, u.name, u.created_at, u.updated_at, u.last_login_at
FROM users u JOIN posts p ON p.author_id = u.id WHERE p.id = ?`
	var u model.User
	err := scanUser(q.db.QueryRowContext(ctx, query, postID), &u)
	return u, err
}

// CountPosts returns the total number of posts.
func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

func scanPost(row *sql.Row, p *model.BlogPost) error {
	return row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Subtitle, &p.Slug, &p.Date,
		&p.Body, &p.ImgURL, &p.CreatedAt, &p.UpdatedAt)
}

// =============================================================================
// COMMENTS
// =============================================================================

const createComment = `
INSERT INTO comments (author_id, post_id, text, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, author_id, post_id, text, created_at
`

// CreateCommentParams holds the fields for CreateComment.
type CreateCommentParams struct {
	AuthorID  int64
	PostID    int64
	Text      string
	CreatedAt time.Time
}

// CreateComment attaches a comment to a post.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (model.Comment, error) {
	row := q.db.QueryRowContext(ctx, createComment,
		arg.AuthorID, arg.PostID, arg.Text, arg.CreatedAt)
	var c model.Comment
	err := row.Scan(&c.ID, &c.AuthorID, &c.PostID, &c.Text, &c.CreatedAt)
	return c, err
}

// CommentWithAuthor pairs a comment with its author's public fields.
type CommentWithAuthor struct {
	model.Comment
	AuthorName  string
	AuthorEmail string
}

const listCommentsForPost = `
SELECT c.id, c.author_id, c.post_id, c.text, c.created_at, u.name, u.email
FROM comments c
JOIN users u ON u.id = c.author_id
WHERE c.post_id = ?
ORDER BY c.id ASC
`

// ListCommentsForPost returns a post's comments, oldest first, with author info.
func (q *Queries) ListCommentsForPost(ctx context.Context, postID int64) ([]CommentWithAuthor, error) {
	rows, err := q.db.QueryContext(ctx, listCommentsForPost, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []CommentWithAuthor
	for rows.Next() {
		var c CommentWithAuthor
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.PostID, &c.Text, &c.CreatedAt,
			&c.AuthorName, &c.AuthorEmail); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CountCommentsForPost returns the number of comments on a post.
func (q *Queries) CountCommentsForPost(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID).Scan(&n)
	return n, err
}

// =============================================================================
// EVENTS
// =============================================================================

const createEvent = `
INSERT INTO events (level, category, message, user_id, metadata, ip_address, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, metadata, ip_address, created_at
`

// CreateEventParams holds the fields for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	IPAddress string
	CreatedAt time.Time
}

// CreateEvent records an audit log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.IPAddress, arg.CreatedAt)
	var e model.Event
	err := row.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID,
		&e.Metadata, &e.IPAddress, &e.CreatedAt)
	return e, err
}

const listEvents = `
SELECT id, level, category, message, user_id, metadata, ip_address, created_at
FROM events ORDER BY id DESC LIMIT ?
`

// ListEvents returns the most recent audit log entries.
func (q *Queries) ListEvents(ctx context.Context, limit int64) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID,
			&e.Metadata, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteOldEvents removes events created before the cutoff time.
func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	return err
}
