package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/service"
)

// FeedHandler handles timeline and follow-graph HTTP requests.
type FeedHandler struct {
	feed  *service.FeedService
	posts *service.PostService
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(feed *service.FeedService, posts *service.PostService) *FeedHandler {
	return &FeedHandler{feed: feed, posts: posts}
}

// HandleFeed returns the authenticated user's timeline.
// GET /api/feed?page=1&perPage=20
// Response: {"posts": [...], "page": p}
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 0)

	posts, err := h.feed.Feed(r.Context(), user.ID, page, perPage)
	if err != nil {
		slog.Error("load feed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts": toPostDTOs(posts),
		"page":  page,
	})
}

// HandleProfile returns a user's public profile.
// GET /api/users/{username}
// Response: {"profile": {...}}
func (h *FeedHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	var viewerID int64
	if viewer := UserFromContext(r.Context()); viewer != nil {
		viewerID = viewer.ID
	}

	profile, err := h.feed.Profile(r.Context(), viewerID, r.PathValue("username"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("load profile", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toProfileDTO(profile),
	})
}

// HandleUserPosts returns a page of a user's posts, newest first.
// GET /api/users/{username}/posts?page=1&perPage=20
// Response: {"posts": [...], "page": p}
func (h *FeedHandler) HandleUserPosts(w http.ResponseWriter, r *http.Request) {
	profile, err := h.feed.Profile(r.Context(), 0, r.PathValue("username"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("load profile", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 0)

	posts, err := h.posts.ListByUser(r.Context(), profile.User.ID, page, perPage)
	if err != nil {
		slog.Error("list user posts", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts": toPostDTOs(posts),
		"page":  page,
	})
}

// HandleFollow makes the authenticated user follow the named user.
// POST /api/users/{username}/follow
// Response: 204 No Content
func (h *FeedHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	if _, err := h.feed.Follow(r.Context(), user.ID, r.PathValue("username")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("follow user", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUnfollow makes the authenticated user stop following the named
// user.
// DELETE /api/users/{username}/follow
// Response: 204 No Content
func (h *FeedHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	if _, err := h.feed.Unfollow(r.Context(), user.ID, r.PathValue("username")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("unfollow user", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleFollowers lists the named user's followers.
// GET /api/users/{username}/followers?page=1&perPage=20
// Response: {"users": [...], "total": n, "page": p}
func (h *FeedHandler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 0)

	users, total, err := h.feed.Followers(r.Context(), r.PathValue("username"), page, perPage)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("list followers", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": toUserDTOs(users),
		"total": total,
		"page":  page,
	})
}

// HandleFollowing lists the users the named user follows.
// GET /api/users/{username}/following?page=1&perPage=20
// Response: {"users": [...], "total": n, "page": p}
func (h *FeedHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 0)

	users, total, err := h.feed.Following(r.Context(), r.PathValue("username"), page, perPage)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("list following", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": toUserDTOs(users),
		"total": total,
		"page":  page,
	})
}
