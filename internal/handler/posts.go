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

// PostsHandler handles post authoring routes. All of them sit behind the
// admin middleware; these handlers assume an authenticated admin user.
type PostsHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(db *sql.DB, renderer *render.Renderer) *PostsHandler {
	return &PostsHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
	}
}

// postForm holds the fields shared by the create and edit forms.
type postForm struct {
	Title    string
	Subtitle string
	ImgURL   string
	Body     string
}

func readPostForm(r *http.Request) postForm {
	return postForm{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Subtitle: strings.TrimSpace(r.FormValue("subtitle")),
		ImgURL:   strings.TrimSpace(r.FormValue("img_url")),
		Body:     r.FormValue("body"),
	}
}

func (f postForm) validate() string {
	switch {
	case f.Title == "":
		return "Title is required"
	case f.Subtitle == "":
		return "Subtitle is required"
	case f.ImgURL == "":
		return "Image URL is required"
	case strings.TrimSpace(f.Body) == "":
		return "Body is required"
	default:
		return ""
	}
}

// postFormData is the template payload for the shared post form.
type postFormData struct {
	Heading string
	Action  string
	Post    model.BlogPost
}

// NewForm renders the post creation form.
func (h *PostsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "make_post", render.TemplateData{
		Title: "New Post",
		User:  middleware.GetUser(r),
		Data: postFormData{
			Heading: "New Post",
			Action:  RouteNewPost,
		},
	}); err != nil {
		logAndInternalError(w, "failed to render post form", "error", err)
	}
}

// Create handles the post creation form submission.
// The publication date is stamped once at creation and never changes.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteNewPost) {
		return
	}

	form := readPostForm(r)
	if msg := form.validate(); msg != "" {
		flashError(w, r, h.renderer, RouteNewPost, msg)
		return
	}

	user := middleware.GetUser(r)
	now := time.Now()

	post, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		AuthorID:  user.ID,
		Title:     form.Title,
		Subtitle:  form.Subtitle,
		Slug:      util.Slugify(form.Title),
		Date:      now.Format(model.PostDateFormat),
		Body:      form.Body,
		ImgURL:    form.ImgURL,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTitle) {
			flashError(w, r, h.renderer, RouteNewPost, "A post with that title already exists")
			return
		}
		logAndInternalError(w, "failed to create post", "error", err)
		return
	}

	slog.Info("post created", "post_id", post.ID, "title", post.Title, "author_id", user.ID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post created",
		&user.ID, middleware.GetClientIP(r), map[string]any{"post_id": post.ID, "title": post.Title})

	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

// EditForm renders the post edit form.
func (h *PostsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
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

	if err := h.renderer.Render(w, r, "make_post", render.TemplateData{
		Title: "Edit Post",
		User:  middleware.GetUser(r),
		Data: postFormData{
			Heading: "Edit Post",
			Action:  "/edit-post/" + strconv.FormatInt(post.ID, 10),
			Post:    post,
		},
	}); err != nil {
		logAndInternalError(w, "failed to render post form", "error", err)
	}
}

// Update handles the post edit form submission. Authorship moves to the
// admin performing the edit; the publication date stays untouched.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	editURL := "/edit-post/" + strconv.FormatInt(id, 10)
	if !parseFormOrRedirect(w, r, h.renderer, editURL) {
		return
	}

	form := readPostForm(r)
	if msg := form.validate(); msg != "" {
		flashError(w, r, h.renderer, editURL, msg)
		return
	}

	user := middleware.GetUser(r)

	post, err := h.queries.UpdatePost(r.Context(), store.UpdatePostParams{
		AuthorID:  user.ID,
		Title:     form.Title,
		Subtitle:  form.Subtitle,
		Slug:      util.Slugify(form.Title),
		Body:      form.Body,
		ImgURL:    form.ImgURL,
		UpdatedAt: time.Now(),
		ID:        id,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.NotFound(w, r)
		case errors.Is(err, store.ErrDuplicateTitle):
			flashError(w, r, h.renderer, editURL, "A post with that title already exists")
		default:
			logAndInternalError(w, "failed to update post", "error", err, "post_id", id)
		}
		return
	}

	slog.Info("post updated", "post_id", post.ID, "author_id", user.ID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post updated",
		&user.ID, middleware.GetClientIP(r), map[string]any{"post_id": post.ID, "title": post.Title})

	http.Redirect(w, r, "/post/"+strconv.FormatInt(post.ID, 10), http.StatusSeeOther)
}

// Delete removes a post and, through the schema, its comments.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Confirm the post exists so a stale link gets a 404, not a silent no-op.
	post, ok := requireEntityOr404(w, r, "post", id,
		func(id int64) (model.BlogPost, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.queries.DeletePost(r.Context(), id); err != nil {
		logAndInternalError(w, "failed to delete post", "error", err, "post_id", id)
		return
	}

	user := middleware.GetUser(r)
	slog.Info("post deleted", "post_id", id, "title", post.Title, "user_id", user.ID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post deleted",
		&user.ID, middleware.GetClientIP(r), map[string]any{"post_id": id, "title": post.Title})

	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}
