// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/model"
	"inkwell/internal/render"
	"inkwell/internal/service"
	"inkwell/internal/store"
)

// SessionKeyUserID is the session key for storing the authenticated user ID.
// The middleware package owns the key; handlers must write where LoadUser reads.
const SessionKeyUserID = middleware.SessionKeyUserID

// minPasswordLength is the minimum accepted password length at registration.
const minPasswordLength = 8

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	db              *sql.DB
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		db:              db,
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		eventService:    service.NewEventService(db),
		loginProtection: lp,
	}
}

// redirectIfAuthenticated sends logged-in users back to the homepage.
// Returns true if a redirect was performed.
func (h *AuthHandler) redirectIfAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	if userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, redirectHome, http.StatusSeeOther)
		return true
	}
	return false
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}

	if err := h.renderer.Render(w, r, "register", render.TemplateData{
		Title: "Register",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render register page", "error", err)
	}
}

// Register handles the registration form submission.
// The first account ever created becomes the admin; everyone after is a member.
// A successful registration logs the new user in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectRegister) {
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	name := strings.TrimSpace(r.FormValue("name"))

	if email == "" || password == "" || name == "" {
		flashError(w, r, h.renderer, redirectRegister, "All fields are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		flashError(w, r, h.renderer, redirectRegister, "Invalid email address")
		return
	}
	if len(password) < minPasswordLength {
		flashError(w, r, h.renderer, redirectRegister,
			fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "failed to hash password", "error", err)
		return
	}

	user, err := store.RegisterUser(r.Context(), h.db, store.RegisterUserParams{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			// Same outcome as the original flow: point the visitor at login.
			flashError(w, r, h.renderer, redirectLogin, "You've already signed up with that email, log in instead!")
			return
		}
		logAndInternalError(w, "failed to register user", "error", err)
		return
	}

	clientIP := middleware.GetClientIP(r)
	slog.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User registered",
		&user.ID, clientIP, map[string]any{"email": user.Email, "role": user.Role})

	// Log the new user in
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	flashSuccess(w, r, h.renderer, redirectHome, "Welcome, "+user.Name+"!")
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}

	if err := h.renderer.Render(w, r, "login", render.TemplateData{
		Title: "Log In",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// Login handles the login form submission.
// An unknown email and a wrong password produce the same flash message so
// the response does not reveal which accounts exist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Email and password are required")
		return
	}

	clientIP := middleware.GetClientIP(r)

	// Check if account is locked
	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
				"Login attempt on locked account", nil, clientIP, map[string]any{"email": email})
			flashError(w, r, h.renderer, redirectLogin,
				"Too many failed attempts, try again in "+formatDuration(remaining))
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "email", email)
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
				"Login failed: user not found", nil, clientIP, map[string]any{"email": email})
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Record failed attempt even for non-existent users to prevent enumeration
		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
				flashError(w, r, h.renderer, redirectLogin,
					"Too many failed attempts, try again in "+formatDuration(lockDuration))
				return
			}
		}
		flashError(w, r, h.renderer, redirectLogin, "Invalid email or password")
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Invalid email or password")
		return
	}

	if !valid {
		slog.Debug("invalid password attempt", "email", email)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
			"Login failed: invalid password", &user.ID, clientIP, map[string]any{"email": email})
		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
				_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
					"Account locked due to failed attempts", &user.ID, clientIP,
					map[string]any{"email": email, "duration": lockDuration.String()})
				flashError(w, r, h.renderer, redirectLogin,
					"Too many failed attempts, try again in "+formatDuration(lockDuration))
				return
			}
		}
		flashError(w, r, h.renderer, redirectLogin, "Invalid email or password")
		return
	}

	// Clear failed attempts on successful login
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Re-hash password if it uses outdated parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
		// Don't block login on this error
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in",
		&user.ID, clientIP, map[string]any{"email": user.Email})

	flashSuccess(w, r, h.renderer, redirectHome, "Welcome back, "+user.Name+"!")
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID)

	// Log the event before destroying the session
	if userID > 0 {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out",
			&userID, middleware.GetClientIP(r), nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)

	http.Redirect(w, r, redirectHome, http.StatusSeeOther)
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
