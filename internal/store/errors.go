// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-level conflict errors surfaced when the database rejects a write
// that would violate a uniqueness constraint. The application never performs
// a check-then-act for these; the constraint is the single arbiter and the
// rejected write (including its enclosing transaction) leaves no partial
// record behind.
var (
	// ErrDuplicateEmail is returned when a user's email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateTitle is returned when a post title (or its slug) is already taken.
	ErrDuplicateTitle = errors.New("post title already exists")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// violation on the given column (e.g. "users.email"). Both drivers in use
// (modernc.org/sqlite and mattn/go-sqlite3) format the violated column into
// the error message, so matching on it keeps this driver-agnostic.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

// mapUserConflict converts a raw driver error from a user insert into a
// domain conflict error, or wraps it with context when it is something else.
func mapUserConflict(err error) error {
	if isUniqueViolation(err, "users.email") {
		return ErrDuplicateEmail
	}
	return fmt.Errorf("creating user: %w", err)
}

// mapPostConflict converts a raw driver error from a post write into a
// domain conflict error, or wraps it with context when it is something else.
func mapPostConflict(err error) error {
	if isUniqueViolation(err, "posts.title") || isUniqueViolation(err, "posts.slug") {
		return ErrDuplicateTitle
	}
	return fmt.Errorf("writing post: %w", err)
}
