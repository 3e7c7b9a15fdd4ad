// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// PostDateFormat is the human-readable publication date stored on a post,
// e.g. "January 2, 2026".
const PostDateFormat = "January 2, 2006"

// BlogPost represents a published article.
type BlogPost struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Slug      string    `json:"slug"`
	Date      string    `json:"date"` // display string, PostDateFormat
	Body      string    `json:"body"`
	ImgURL    string    `json:"img_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
