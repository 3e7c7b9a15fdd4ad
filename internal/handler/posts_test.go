package handler

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"inkwell/internal/model"
)

// createPost submits the post creation form as whoever the client is logged in as.
func (a *testApp) createPost(t *testing.T, c *http.Client, title, subtitle, imgURL, body string) *http.Response {
	t.Helper()
	return a.postForm(t, c, RouteNewPost, url.Values{
		"title":    {title},
		"subtitle": {subtitle},
		"img_url":  {imgURL},
		"body":     {body},
	})
}

// loginAdmin registers the first user, who becomes the admin, and returns
// a client holding that session.
func (a *testApp) loginAdmin(t *testing.T) *http.Client {
	t.Helper()
	c := a.client(t)
	resp := a.register(t, c, "Admin", "admin@example.com", "correct horse battery")
	assertRedirect(t, resp, redirectHome)
	return c
}

func TestCreatePost_RoundTrip(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	resp := app.createPost(t, admin, "First Light", "On beginnings", "https://example.com/a.jpg", "Hello **world**.")
	assertRedirect(t, resp, RouteRoot)

	var (
		title, subtitle, slug, date, body, imgURL string
		authorID                                  int64
	)
	err := app.db.QueryRow(
		`SELECT title, subtitle, slug, date, body, img_url, author_id FROM posts WHERE title = ?`,
		"First Light",
	).Scan(&title, &subtitle, &slug, &date, &body, &imgURL, &authorID)
	if err != nil {
		t.Fatalf("query post: %v", err)
	}

	if subtitle != "On beginnings" {
		t.Errorf("subtitle = %q", subtitle)
	}
	if slug != "first-light" {
		t.Errorf("slug = %q; want %q", slug, "first-light")
	}
	if body != "Hello **world**." {
		t.Errorf("body = %q", body)
	}
	if imgURL != "https://example.com/a.jpg" {
		t.Errorf("img_url = %q", imgURL)
	}

	// The stored date must parse back with the display format.
	if _, err := parsePostDate(date); err != nil {
		t.Errorf("date %q does not match format %q: %v", date, model.PostDateFormat, err)
	}

	// The post page renders.
	resp = app.get(t, app.client(t), "/post/1")
	assertStatus(t, resp.StatusCode, http.StatusOK)
}

func TestCreatePost_DuplicateTitle(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	resp := app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body one")
	assertRedirect(t, resp, RouteRoot)

	resp = app.createPost(t, admin, "First Light", "two", "https://example.com/b.jpg", "body two")
	assertRedirect(t, resp, RouteNewPost)

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM posts WHERE title = ?`, "First Light"); n != 1 {
		t.Errorf("post rows for duplicate title = %d; want 1", n)
	}
}

func TestNewPost_RequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	app.loginAdmin(t)

	// A logged-in member gets a 403.
	member := app.client(t)
	resp := app.register(t, member, "Member", "member@example.com", "another password")
	assertRedirect(t, resp, redirectHome)

	resp = app.get(t, member, RouteNewPost)
	assertStatus(t, resp.StatusCode, http.StatusForbidden)

	resp = app.createPost(t, member, "Sneaky", "no", "https://example.com/x.jpg", "nope")
	assertStatus(t, resp.StatusCode, http.StatusForbidden)

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM posts`); n != 0 {
		t.Errorf("posts created by member = %d; want 0", n)
	}

	// Anonymous visitors are forbidden too, before the handler runs.
	anon := app.client(t)
	resp = app.get(t, anon, RouteNewPost)
	assertStatus(t, resp.StatusCode, http.StatusForbidden)

	resp = app.createPost(t, anon, "Sneakier", "no", "https://example.com/x.jpg", "nope")
	assertStatus(t, resp.StatusCode, http.StatusForbidden)

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM posts`); n != 0 {
		t.Errorf("posts created without admin = %d; want 0", n)
	}
}

func TestEditPost_ReassignsAuthorshipKeepsDate(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	resp := app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "original body")
	assertRedirect(t, resp, RouteRoot)

	var origDate string
	var origAuthor int64
	if err := app.db.QueryRow(`SELECT date, author_id FROM posts WHERE id = 1`).Scan(&origDate, &origAuthor); err != nil {
		t.Fatalf("query post: %v", err)
	}

	// A second admin edits the post.
	second := createTestUser(t, app.db, "editor@example.com", "Editor", model.RoleAdmin, "correct horse battery")
	c := app.client(t)
	resp = app.login(t, c, second.Email, "correct horse battery")
	assertRedirect(t, resp, redirectHome)

	resp = app.postForm(t, c, "/edit-post/1", url.Values{
		"title":    {"First Light, Revised"},
		"subtitle": {"one"},
		"img_url":  {"https://example.com/a.jpg"},
		"body":     {"revised body"},
	})
	assertRedirect(t, resp, "/post/1")

	var date, title string
	var authorID int64
	if err := app.db.QueryRow(`SELECT date, title, author_id FROM posts WHERE id = 1`).Scan(&date, &title, &authorID); err != nil {
		t.Fatalf("query post: %v", err)
	}
	if date != origDate {
		t.Errorf("date changed on edit: %q -> %q", origDate, date)
	}
	if title != "First Light, Revised" {
		t.Errorf("title = %q", title)
	}
	if authorID != second.ID {
		t.Errorf("author_id = %d; want %d (the editing admin)", authorID, second.ID)
	}
	if authorID == origAuthor {
		t.Error("authorship was not reassigned")
	}
}

func TestEditPost_NotFound(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	resp := app.get(t, admin, "/edit-post/99")
	assertStatus(t, resp.StatusCode, http.StatusNotFound)

	resp = app.postForm(t, admin, "/edit-post/99", url.Values{
		"title":    {"Ghost"},
		"subtitle": {"x"},
		"img_url":  {"https://example.com/x.jpg"},
		"body":     {"x"},
	})
	assertStatus(t, resp.StatusCode, http.StatusNotFound)
}

func TestDeletePost_CascadesComments(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	resp := app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body")
	assertRedirect(t, resp, RouteRoot)

	resp = app.postForm(t, admin, "/post/1", url.Values{"comment": {"nice post"}})
	assertRedirect(t, resp, "/post/1")

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM comments WHERE post_id = 1`); n != 1 {
		t.Fatalf("comment rows = %d; want 1", n)
	}

	resp = app.get(t, admin, "/delete/1")
	assertRedirect(t, resp, RouteRoot)

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM posts`); n != 0 {
		t.Errorf("post rows after delete = %d; want 0", n)
	}
	if n := countRows(t, app.db, `SELECT COUNT(*) FROM comments`); n != 0 {
		t.Errorf("comment rows after delete = %d; want 0", n)
	}

	// Deleting again is a 404, as is viewing the dead post.
	resp = app.get(t, admin, "/delete/1")
	assertStatus(t, resp.StatusCode, http.StatusNotFound)

	resp = app.get(t, app.client(t), "/post/1")
	assertStatus(t, resp.StatusCode, http.StatusNotFound)
}

func TestPostsHandler_InvalidID(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	for _, path := range []string{"/edit-post/abc", "/delete/abc"} {
		resp := app.get(t, admin, path)
		assertStatus(t, resp.StatusCode, http.StatusNotFound)
	}
}

func TestPostFormValidation(t *testing.T) {
	tests := []struct {
		name string
		form postForm
		want string
	}{
		{"valid", postForm{"t", "s", "u", "b"}, ""},
		{"missing title", postForm{"", "s", "u", "b"}, "Title is required"},
		{"missing subtitle", postForm{"t", "", "u", "b"}, "Subtitle is required"},
		{"missing image", postForm{"t", "s", "", "b"}, "Image URL is required"},
		{"blank body", postForm{"t", "s", "u", "   "}, "Body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.form.validate(); got != tt.want {
				t.Errorf("validate() = %q; want %q", got, tt.want)
			}
		})
	}
}

func parsePostDate(s string) (time.Time, error) {
	return time.Parse(model.PostDateFormat, s)
}
