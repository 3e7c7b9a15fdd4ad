// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"inkwell/internal/model"
	"inkwell/internal/service"
	"inkwell/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for user data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// SessionKeyUserID is the session key for storing the authenticated user ID.
const SessionKeyUserID = "user_id"

// LoadUser creates middleware that loads the current user into the request
// context. The user record is re-fetched from the database on every request
// so a stale session can never present an outdated identity. Requests
// without a valid session pass through with no user in context; guards like
// RequireAdmin decide what an anonymous identity may do.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				// Session points at a user that no longer exists
				_ = sm.Destroy(r.Context())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(model.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current user's ID from context, or
// nil if not found. Useful for optional user ID parameters in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// RequireAdmin creates middleware that rejects any request whose identity is
// not the administrator. Anonymous requests and non-admin users both receive
// HTTP 403 before the wrapped handler runs. Compose after LoadUser.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireAdminWithEventLog(nil)
}

// RequireAdminWithEventLog is RequireAdmin with 403s additionally recorded
// in the audit event log.
func RequireAdminWithEventLog(eventService *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil || !user.IsAdmin() {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", GetUserID(r),
					"remote_addr", r.RemoteAddr,
				)

				if eventService != nil {
					_ = eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
						"Access denied: admin required", GetUserIDPtr(r), GetClientIP(r), map[string]any{
							"method": r.Method,
							"path":   r.URL.Path,
							"status": http.StatusForbidden,
						})
				}

				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}

// GetClientIP extracts the client IP from the request.
func GetClientIP(r *http.Request) string {
	// Check X-Real-IP header (set by reverse proxies)
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	// X-Forwarded-For can contain multiple IPs; take the first one
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}

	return r.RemoteAddr
}
