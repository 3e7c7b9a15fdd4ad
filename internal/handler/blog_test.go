package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_Empty(t *testing.T) {
	app := newTestApp(t)

	resp := app.get(t, app.client(t), RouteRoot)
	assertStatus(t, resp.StatusCode, http.StatusOK)

	body := readBody(t, resp)
	if !strings.Contains(body, "No posts yet") {
		t.Error("empty index should say there are no posts")
	}
}

func TestIndex_ListsPostsNewestFirst(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	app.createPost(t, admin, "Older Post", "one", "https://example.com/a.jpg", "body")
	app.createPost(t, admin, "Newer Post", "two", "https://example.com/b.jpg", "body")

	resp := app.get(t, app.client(t), RouteRoot)
	assertStatus(t, resp.StatusCode, http.StatusOK)

	body := readBody(t, resp)
	newer := strings.Index(body, "Newer Post")
	older := strings.Index(body, "Older Post")
	if newer == -1 || older == -1 {
		t.Fatal("index is missing post titles")
	}
	if newer > older {
		t.Error("posts are not listed newest first")
	}
}

func TestShowPost_RendersCommentsOldestFirst(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body")
	app.postForm(t, admin, "/post/1", url.Values{"comment": {"first comment"}})
	app.postForm(t, admin, "/post/1", url.Values{"comment": {"second comment"}})

	resp := app.get(t, app.client(t), "/post/1")
	assertStatus(t, resp.StatusCode, http.StatusOK)

	body := readBody(t, resp)
	first := strings.Index(body, "first comment")
	second := strings.Index(body, "second comment")
	if first == -1 || second == -1 {
		t.Fatal("post page is missing comments")
	}
	if first > second {
		t.Error("comments are not listed oldest first")
	}
	if !strings.Contains(body, "gravatar.com/avatar/") {
		t.Error("comments should carry gravatar avatars")
	}
}

func TestShowPost_NotFound(t *testing.T) {
	app := newTestApp(t)

	resp := app.get(t, app.client(t), "/post/42")
	assertStatus(t, resp.StatusCode, http.StatusNotFound)

	resp = app.get(t, app.client(t), "/post/abc")
	assertStatus(t, resp.StatusCode, http.StatusNotFound)
}

func TestShowBySlug(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body")

	resp := app.get(t, app.client(t), "/blog/first-light")
	assertStatus(t, resp.StatusCode, http.StatusOK)

	resp = app.get(t, app.client(t), "/blog/no-such-slug")
	assertStatus(t, resp.StatusCode, http.StatusNotFound)

	// Not a slug at all; rejected before the store is consulted.
	resp = app.get(t, app.client(t), "/blog/First%20Light")
	assertStatus(t, resp.StatusCode, http.StatusNotFound)
}

func TestComment_AnonymousRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body")

	resp := app.postForm(t, app.client(t), "/post/1", url.Values{"comment": {"drive-by"}})
	assertRedirect(t, resp, redirectLogin)

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM comments`); n != 0 {
		t.Errorf("comment rows from anonymous visitor = %d; want 0", n)
	}
}

func TestComment_MemberCanComment(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body")

	member := app.client(t)
	resp := app.register(t, member, "Member", "member@example.com", "another password")
	assertRedirect(t, resp, redirectHome)

	resp = app.postForm(t, member, "/post/1", url.Values{"comment": {"great read"}})
	assertRedirect(t, resp, "/post/1")

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM comments WHERE post_id = 1`); n != 1 {
		t.Errorf("comment rows = %d; want 1", n)
	}
}

func TestComment_EmptyRejected(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body")

	resp := app.postForm(t, admin, "/post/1", url.Values{"comment": {"   "}})
	assertRedirect(t, resp, "/post/1")

	if n := countRows(t, app.db, `SELECT COUNT(*) FROM comments`); n != 0 {
		t.Errorf("comment rows = %d; want 0", n)
	}
}

func TestComment_DeletedPost(t *testing.T) {
	app := newTestApp(t)
	admin := app.loginAdmin(t)

	app.createPost(t, admin, "First Light", "one", "https://example.com/a.jpg", "body")
	app.get(t, admin, "/delete/1")

	resp := app.postForm(t, admin, "/post/1", url.Values{"comment": {"too late"}})
	assertStatus(t, resp.StatusCode, http.StatusNotFound)
}

func TestStaticPages(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{RouteAbout, RouteContact} {
		resp := app.get(t, app.client(t), path)
		assertStatus(t, resp.StatusCode, http.StatusOK)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp := app.get(t, app.client(t), RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Database)
	assert.NotEmpty(t, status.Uptime)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
