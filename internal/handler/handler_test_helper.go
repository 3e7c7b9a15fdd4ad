package handler

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/model"
	"inkwell/internal/render"
	"inkwell/internal/service"
	"inkwell/web"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);
		CREATE INDEX idx_users_email ON users(email);

		CREATE TABLE posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id INTEGER NOT NULL,
			title TEXT NOT NULL UNIQUE,
			subtitle TEXT NOT NULL DEFAULT '',
			slug TEXT NOT NULL UNIQUE,
			date TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			img_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (author_id) REFERENCES users(id)
		);
		CREATE INDEX idx_posts_author_id ON posts(author_id);
		CREATE INDEX idx_posts_slug ON posts(slug);

		CREATE TABLE comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id INTEGER NOT NULL,
			post_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (author_id) REFERENCES users(id),
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
		);
		CREATE INDEX idx_comments_post_id ON comments(post_id);

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			user_id INTEGER,
			ip_address TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates an in-memory session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testRenderer creates a renderer backed by the embedded templates.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("failed to sub templates fs: %v", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return renderer
}

// testApp wires the handlers into a router the way main does, minus the
// rate limiters and CSRF protection that would get in the way of tests.
type testApp struct {
	db       *sql.DB
	sm       *scs.SessionManager
	renderer *render.Renderer
	router   chi.Router
	server   *httptest.Server
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testDB(t)
	sm := testSessionManager(t)
	renderer := testRenderer(t, sm)

	authHandler := NewAuthHandler(db, renderer, sm, nil)
	blogHandler := NewBlogHandler(db, renderer)
	postsHandler := NewPostsHandler(db, renderer)
	healthHandler := NewHealthHandler(db)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadUser(sm, db))

		r.Get(RouteRoot, blogHandler.Index)
		r.Get(RoutePost, blogHandler.Show)
		r.Post(RoutePost, blogHandler.Comment)
		r.Get(RouteBlogSlug, blogHandler.ShowBySlug)
		r.Get(RouteAbout, blogHandler.About)
		r.Get(RouteContact, blogHandler.Contact)

		r.Get(RouteRegister, authHandler.RegisterForm)
		r.Post(RouteRegister, authHandler.Register)
		r.Get(RouteLogin, authHandler.LoginForm)
		r.Post(RouteLogin, authHandler.Login)
		r.Get(RouteLogout, authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadUser(sm, db))
		r.Use(middleware.RequireAdminWithEventLog(service.NewEventService(db)))

		r.Get(RouteNewPost, postsHandler.NewForm)
		r.Post(RouteNewPost, postsHandler.Create)
		r.Get(RouteEditPost, postsHandler.EditForm)
		r.Post(RouteEditPost, postsHandler.Update)
		r.Get(RouteDeletePost, postsHandler.Delete)
	})

	r.Get(RouteHealth, healthHandler.Health)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testApp{
		db:       db,
		sm:       sm,
		renderer: renderer,
		router:   r,
		server:   srv,
	}
}

// client returns an HTTP client that keeps session cookies and does not
// follow redirects, so tests can assert on redirect targets.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// postForm submits a form with the given client and returns the response.
func (a *testApp) postForm(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := c.Post(a.server.URL+path, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// get performs a GET with the given client and returns the response.
func (a *testApp) get(t *testing.T, c *http.Client, path string) *http.Response {
	t.Helper()

	resp, err := c.Get(a.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// register signs up a user through the registration endpoint. The first
// registration in a fresh database produces the admin.
func (a *testApp) register(t *testing.T, c *http.Client, name, email, password string) *http.Response {
	t.Helper()
	return a.postForm(t, c, RouteRegister, url.Values{
		"name":     {name},
		"email":    {email},
		"password": {password},
	})
}

// login logs a user in through the login endpoint.
func (a *testApp) login(t *testing.T, c *http.Client, email, password string) *http.Response {
	t.Helper()
	return a.postForm(t, c, RouteLogin, url.Values{
		"email":    {email},
		"password": {password},
	})
}

// createTestUser inserts a user directly into the database.
func createTestUser(t *testing.T, db *sql.DB, email, name, role, password string) model.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now()
	result, err := db.Exec(
		`INSERT INTO users (email, password_hash, role, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		email, hash, role, name, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return model.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// countRows counts rows in a table, optionally filtered.
func countRows(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()

	var n int64
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// assertRedirect checks that the response is a redirect to the given location.
func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d; want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Errorf("redirect location = %q; want %q", got, location)
	}
}
