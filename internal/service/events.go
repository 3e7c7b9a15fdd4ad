// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic above the store, currently the
// audit event log used by auth and post handlers.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"inkwell/internal/model"
	"inkwell/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		IPAddress: ipAddress,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("Failed to log event: %v", err)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogPostEvent logs a post-related event.
func (s *EventService) LogPostEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryPost, message, userID, ipAddress, metadata)
}

// LogCommentEvent logs a comment-related event.
func (s *EventService) LogCommentEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryComment, message, userID, ipAddress, metadata)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}
