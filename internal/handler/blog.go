// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/middleware"
	"inkwell/internal/model"
	"inkwell/internal/render"
	"inkwell/internal/service"
	"inkwell/internal/store"
	"inkwell/internal/util"
)

// BlogHandler handles the public reading surface: the index, post pages
// with their comment threads, and the static about/contact pages.
type BlogHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(db *sql.DB, renderer *render.Renderer) *BlogHandler {
	return &BlogHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
	}
}

// Index renders the homepage with all posts, newest first.
func (h *BlogHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queries.ListPosts(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list posts", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "index", render.TemplateData{
		Title: "Home",
		User:  middleware.GetUser(r),
		Data:  posts,
	}); err != nil {
		logAndInternalError(w, "failed to render index", "error", err)
	}
}

// postPageData is the template payload for a single post page.
type postPageData struct {
	Post     model.BlogPost
	Author   model.User
	Comments []store.CommentWithAuthor
}

// Show renders a single post with its comment thread.
func (h *BlogHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	post, ok := requireEntityOr404(w, r, "post", id,
		func(id int64) (model.BlogPost, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	h.renderPost(w, r, post)
}

// ShowBySlug renders a single post addressed by its slug permalink.
func (h *BlogHandler) ShowBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !util.IsValidSlug(slug) {
		http.NotFound(w, r)
		return
	}

	post, err := h.queries.GetPostBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
		} else {
			logAndInternalError(w, "failed to get post", "error", err, "slug", slug)
		}
		return
	}

	h.renderPost(w, r, post)
}

func (h *BlogHandler) renderPost(w http.ResponseWriter, r *http.Request, post model.BlogPost) {
	author, err := h.queries.GetPostAuthor(r.Context(), post.ID)
	if err != nil {
		logAndInternalError(w, "failed to get post author", "error", err, "post_id", post.ID)
		return
	}

	comments, err := h.queries.ListCommentsForPost(r.Context(), post.ID)
	if err != nil {
		logAndInternalError(w, "failed to list comments", "error", err, "post_id", post.ID)
		return
	}

	if err := h.renderer.Render(w, r, "post", render.TemplateData{
		Title: post.Title,
		User:  middleware.GetUser(r),
		Data: postPageData{
			Post:     post,
			Author:   author,
			Comments: comments,
		},
	}); err != nil {
		logAndInternalError(w, "failed to render post", "error", err)
	}
}

// Comment handles a comment form submission on a post page.
// Anonymous visitors are sent to the login page and nothing is stored.
func (h *BlogHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		flashError(w, r, h.renderer, redirectLogin, "You need to login or register to comment.")
		return
	}

	postURL := "/post/" + strconv.FormatInt(id, 10)
	if !parseFormOrRedirect(w, r, h.renderer, postURL) {
		return
	}

	text := strings.TrimSpace(r.FormValue("comment"))
	if text == "" {
		flashError(w, r, h.renderer, postURL, "Comment cannot be empty")
		return
	}

	// The post must still exist; a comment on a deleted post is a 404.
	if _, ok := requireEntityOr404(w, r, "post", id,
		func(id int64) (model.BlogPost, error) { return h.queries.GetPostByID(r.Context(), id) }); !ok {
		return
	}

	comment, err := h.queries.CreateComment(r.Context(), store.CreateCommentParams{
		AuthorID:  user.ID,
		PostID:    id,
		Text:      text,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "failed to create comment", "error", err, "post_id", id)
		return
	}

	slog.Info("comment created", "comment_id", comment.ID, "post_id", id, "user_id", user.ID)
	_ = h.eventService.LogCommentEvent(r.Context(), model.EventLevelInfo, "Comment created",
		&user.ID, middleware.GetClientIP(r), map[string]any{"comment_id": comment.ID, "post_id": id})

	http.Redirect(w, r, postURL, http.StatusSeeOther)
}

// About renders the static about page.
func (h *BlogHandler) About(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "about", render.TemplateData{
		Title: "About",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render about page", "error", err)
	}
}

// Contact renders the static contact page.
func (h *BlogHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "contact", render.TemplateData{
		Title: "Contact",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render contact page", "error", err)
	}
}
