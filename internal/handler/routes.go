package handler

import (
	"net/http"

	"github.com/murmurapp/murmur/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(
	mux *http.ServeMux,
	auth *service.AuthService,
	posts *service.PostService,
	feed *service.FeedService,
	limiter *service.TokenBucket,
	cookieSecure bool,
) {
	authHandler := NewAuthHandler(auth, limiter, cookieSecure)
	postHandler := NewPostHandler(posts)
	feedHandler := NewFeedHandler(feed, posts)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(auth, h)
	}
	optionalAuth := func(h http.HandlerFunc) http.Handler {
		return OptionalAuth(auth, h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.HandleFunc("POST /api/auth/register", authHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)
	mux.Handle("GET /api/auth/me", requireAuth(authHandler.HandleMe))
	mux.Handle("PATCH /api/auth/me", requireAuth(authHandler.HandleUpdateProfile))
	mux.HandleFunc("POST /api/auth/forgot-password", authHandler.HandleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", authHandler.HandleResetPassword)

	mux.Handle("POST /api/posts", requireAuth(postHandler.HandleCreate))
	mux.HandleFunc("GET /api/posts/search", postHandler.HandleSearch)
	mux.HandleFunc("GET /api/posts/{id}", postHandler.HandleGet)
	mux.Handle("PUT /api/posts/{id}", requireAuth(postHandler.HandleUpdate))
	mux.Handle("DELETE /api/posts/{id}", requireAuth(postHandler.HandleDelete))

	mux.Handle("GET /api/feed", requireAuth(feedHandler.HandleFeed))

	mux.Handle("GET /api/users/{username}", optionalAuth(feedHandler.HandleProfile))
	mux.HandleFunc("GET /api/users/{username}/posts", feedHandler.HandleUserPosts)
	mux.Handle("POST /api/users/{username}/follow", requireAuth(feedHandler.HandleFollow))
	mux.Handle("DELETE /api/users/{username}/follow", requireAuth(feedHandler.HandleUnfollow))
	mux.HandleFunc("GET /api/users/{username}/followers", feedHandler.HandleFollowers)
	mux.HandleFunc("GET /api/users/{username}/following", feedHandler.HandleFollowing)

	mux.Handle("POST /api/admin/reindex", requireAuth(postHandler.HandleReindex))
}
