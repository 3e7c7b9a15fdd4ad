// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryPost    = "post"
	EventCategoryComment = "comment"
	EventCategorySystem  = "system"
)

// Event represents an audit log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string // JSON string
	IPAddress string
	CreatedAt time.Time
}
