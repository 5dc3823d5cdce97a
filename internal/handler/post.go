package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/service"
)

// PostHandler handles post-related HTTP requests.
type PostHandler struct {
	posts *service.PostService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// HandleCreate publishes a new post for the authenticated user.
// POST /api/posts
// Request:  {"body":"...","language":"..."}
// Response: {"post": {...}}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var req struct {
		Body     string `json:"body"`
		Language string `json:"language"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	post, err := h.posts.Create(r.Context(), user.ID, req.Body, req.Language)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("create post", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"post": toPostDTO(post),
	})
}

// HandleGet returns a single post.
// GET /api/posts/{id}
// Response: {"post": {...}}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post ID.")
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found.")
			return
		}
		slog.Error("get post", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"post": toPostDTO(post),
	})
}

// HandleUpdate rewrites the authenticated user's post.
// PUT /api/posts/{id}
// Request:  {"body":"...","language":"..."}
// Response: {"post": {...}}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post ID.")
		return
	}

	var req struct {
		Body     string `json:"body"`
		Language string `json:"language"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	post, err := h.posts.Update(r.Context(), user.ID, id, req.Body, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Post not found.")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "You can only edit your own posts.")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.Error("update post", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"post": toPostDTO(post),
	})
}

// HandleDelete removes the authenticated user's post.
// DELETE /api/posts/{id}
// Response: 204 No Content
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post ID.")
		return
	}

	if err := h.posts.Delete(r.Context(), user.ID, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Post not found.")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "You can only delete your own posts.")
		default:
			slog.Error("delete post", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSearch runs a keyword search over posts.
// GET /api/posts/search?q=expression&page=1&perPage=20
// Response: {"posts": [...], "total": n, "page": p}
func (h *PostHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	expression := r.URL.Query().Get("q")
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 0)

	posts, total, err := h.posts.Search(r.Context(), expression, page, perPage)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrIndexUnavailable):
			slog.Error("search index unavailable", "error", err)
			writeError(w, http.StatusServiceUnavailable, "Search is temporarily unavailable.")
		default:
			slog.Error("search posts", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts": toPostDTOs(posts),
		"total": total,
		"page":  page,
	})
}

// HandleReindex rebuilds the post search index from the store.
// POST /api/admin/reindex
// Response: 204 No Content
func (h *PostHandler) HandleReindex(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Reindex(r.Context()); err != nil {
		slog.Error("reindex posts", "error", err)
		writeError(w, http.StatusInternalServerError, "Reindex failed.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt parses an integer query parameter, returning fallback when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
