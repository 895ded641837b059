package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/blogr/internal/database"
	"github.com/saltyorg/blogr/internal/web/middleware"
)

// PostForm is the data behind the create and update pages
type PostForm struct {
	Post  *database.Post
	Title string
	Body  string
}

// Index lists every post, newest first
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	conn, err := database.Get(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to get database connection")
		return
	}

	posts, err := conn.ListPosts(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to list posts")
		return
	}

	h.render(w, r, "blog/index.html", "Posts", posts)
}

// CreatePage renders the new post form
func (h *Handlers) CreatePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "blog/create.html", "New Post", PostForm{})
}

// CreateSubmit stores a new post for the logged-in user
func (h *Handlers) CreateSubmit(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.FormValue("title"))
	body := r.FormValue("body")

	if title == "" {
		h.renderError(w, r, "blog/create.html", "New Post", "Title is required.", PostForm{Body: body})
		return
	}

	conn, err := database.Get(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to get database connection")
		return
	}

	user := middleware.GetUser(r.Context())
	id, err := conn.CreatePost(r.Context(), user.ID, title, body)
	if err != nil {
		h.serverError(w, err, "Failed to create post")
		return
	}

	log.Info().Int64("post_id", id).Str("username", user.Username).Msg("Post created")
	h.redirect(w, r, "/")
}

// UpdatePage renders the edit form for a post owned by the logged-in user
func (h *Handlers) UpdatePage(w http.ResponseWriter, r *http.Request) {
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}
	h.render(w, r, "blog/update.html", fmt.Sprintf("Edit \"%s\"", post.Title), PostForm{
		Post:  post,
		Title: post.Title,
		Body:  post.Body,
	})
}

// UpdateSubmit saves changes to a post owned by the logged-in user
func (h *Handlers) UpdateSubmit(w http.ResponseWriter, r *http.Request) {
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	body := r.FormValue("body")

	if title == "" {
		h.renderError(w, r, "blog/update.html", fmt.Sprintf("Edit \"%s\"", post.Title), "Title is required.", PostForm{
			Post:  post,
			Title: title,
			Body:  body,
		})
		return
	}

	conn, err := database.Get(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to get database connection")
		return
	}

	if err := conn.UpdatePost(r.Context(), post.ID, title, body); err != nil {
		h.serverError(w, err, "Failed to update post")
		return
	}

	h.redirect(w, r, "/")
}

// Delete removes a post owned by the logged-in user
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := h.ownedPost(w, r)
	if !ok {
		return
	}

	conn, err := database.Get(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to get database connection")
		return
	}

	if err := conn.DeletePost(r.Context(), post.ID); err != nil {
		h.serverError(w, err, "Failed to delete post")
		return
	}

	log.Info().Int64("post_id", post.ID).Msg("Post deleted")
	h.redirect(w, r, "/")
}

// ownedPost loads the {id} post and checks that the logged-in user wrote it.
// It answers 404 or 403 itself and reports false in that case.
func (h *Handlers) ownedPost(w http.ResponseWriter, r *http.Request) (*database.Post, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}

	conn, err := database.Get(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to get database connection")
		return nil, false
	}

	post, err := conn.GetPost(r.Context(), id)
	if err != nil {
		h.serverError(w, err, "Failed to get post")
		return nil, false
	}
	if post == nil {
		http.Error(w, fmt.Sprintf("Post id %d doesn't exist.", id), http.StatusNotFound)
		return nil, false
	}

	user := middleware.GetUser(r.Context())
	if user == nil || post.AuthorID != user.ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}

	return post, true
}
