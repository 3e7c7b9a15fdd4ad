// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	_ "modernc.org/sqlite"

	"inkwell/internal/model"
)

func requestWithUser(user model.User) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(r.Context(), ContextKeyUser, user)
	return r.WithContext(ctx)
}

func TestGetUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUser(r); got != nil {
		t.Errorf("GetUser on empty context = %v; want nil", got)
	}

	want := model.User{ID: 7, Email: "admin@example.com", Role: model.RoleAdmin}
	got := GetUser(requestWithUser(want))
	if got == nil {
		t.Fatal("GetUser returned nil")
	}
	if got.ID != want.ID || got.Email != want.Email {
		t.Errorf("GetUser = %+v; want %+v", got, want)
	}
}

func TestGetUserID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserID(r); got != 0 {
		t.Errorf("GetUserID on empty context = %d; want 0", got)
	}

	if got := GetUserID(requestWithUser(model.User{ID: 42})); got != 42 {
		t.Errorf("GetUserID = %d; want 42", got)
	}
}

func TestGetUserIDPtr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserIDPtr(r); got != nil {
		t.Errorf("GetUserIDPtr on empty context = %v; want nil", got)
	}

	got := GetUserIDPtr(requestWithUser(model.User{ID: 42}))
	if got == nil || *got != 42 {
		t.Errorf("GetUserIDPtr = %v; want 42", got)
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"anonymous", httptest.NewRequest(http.MethodGet, "/new-post", nil), http.StatusForbidden},
		{"member", requestWithUser(model.User{ID: 2, Role: model.RoleMember}), http.StatusForbidden},
		{"admin", requestWithUser(model.User{ID: 1, Role: model.RoleAdmin}), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d", rec.Code, tt.want)
			}
		})
	}
}

// loadUserTestDB creates an in-memory database with a users table and one admin row.
func loadUserTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

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
		INSERT INTO users (email, password_hash, role, name) VALUES ('admin@example.com', 'hash', 'admin', 'Admin');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	return db
}

// serveGuardedChain runs one request through LoadUser + RequireAdmin with the
// given user ID in the session (0 means anonymous).
func serveGuardedChain(t *testing.T, db *sql.DB, sessionUserID int64) *httptest.ResponseRecorder {
	t.Helper()

	sm := scs.New()
	guarded := LoadUser(sm, db)(RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionUserID != 0 {
			sm.Put(r.Context(), SessionKeyUserID, sessionUserID)
		}
		guarded.ServeHTTP(w, r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/new-post", nil))
	return rec
}

func TestLoadUser_AnonymousGetsForbiddenNotRedirect(t *testing.T) {
	db := loadUserTestDB(t)

	rec := serveGuardedChain(t, db, 0)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusForbidden)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("unexpected redirect to %q", loc)
	}
}

func TestLoadUser_AdminPasses(t *testing.T) {
	db := loadUserTestDB(t)

	rec := serveGuardedChain(t, db, 1)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusOK)
	}
}

func TestLoadUser_StaleSessionIsAnonymous(t *testing.T) {
	db := loadUserTestDB(t)

	// Session references a user row that no longer exists.
	rec := serveGuardedChain(t, db, 99)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequestPath(t *testing.T) {
	var got string
	handler := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestPath(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/post/5", nil))
	if got != "/post/5" {
		t.Errorf("request path = %q; want %q", got, "/post/5")
	}

	if GetRequestPath(context.Background()) != "" {
		t.Error("GetRequestPath on empty context should be empty")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr only", nil, "192.0.2.1:5000", "192.0.2.1:5000"},
		{"x-real-ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "192.0.2.1:5000", "203.0.113.9"},
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "192.0.2.1:5000", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP = %q; want %q", got, tt.want)
			}
		})
	}
}
