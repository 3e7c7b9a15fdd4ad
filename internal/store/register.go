// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inkwell/internal/model"
)

// RegisterUserParams holds the fields for RegisterUser. The password must
// already be hashed; plaintext never reaches the store.
type RegisterUserParams struct {
	Email        string
	PasswordHash string
	Name         string
}

// RegisterUser creates a new account inside a single transaction. The first
// registrant is provisioned as admin; everyone after that is a member.
// Counting and inserting happen in the same transaction so two concurrent
// first registrations cannot both become admin: SQLite serializes writers,
// and a duplicate email aborts the whole unit of work, surfacing
// ErrDuplicateEmail with no partial record left behind.
func RegisterUser(ctx context.Context, db *sql.DB, arg RegisterUserParams) (model.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := New(tx)

	count, err := q.CountUsers(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("counting users: %w", err)
	}

	role := model.RoleMember
	if count == 0 {
		role = model.RoleAdmin
	}

	now := time.Now()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         role,
		Name:         arg.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, fmt.Errorf("committing registration: %w", err)
	}

	return user, nil
}
