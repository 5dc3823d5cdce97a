package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/handler"
	"github.com/murmurapp/murmur/internal/repository/sqlite"
	"github.com/murmurapp/murmur/internal/search"
	"github.com/murmurapp/murmur/internal/service"
)

func main() {
	_ = godotenv.Load()

	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, logOpts)))

	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "murmur.db")
	indexPath := envOrDefault("INDEX_PATH", "murmur-index.db")
	indexBackend := envOrDefault("INDEX_BACKEND", "fts5")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if len(jwtSecret) < 32 {
		slog.Error("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
		os.Exit(1)
	}

	// Default to secure cookies; disable only for local development.
	cookieSecure := os.Getenv("COOKIE_SECURE") != "false"

	bcryptCost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("invalid BCRYPT_COST", "error", err)
			os.Exit(1)
		}
		if parsed < 4 || parsed > 14 {
			slog.Error("BCRYPT_COST must be between 4 and 14", "value", parsed)
			os.Exit(1)
		}
		bcryptCost = parsed
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	var index domain.SearchIndex
	switch indexBackend {
	case "memory":
		index = search.NewMemory()
	case "fts5":
		fts, err := search.NewFTS(indexPath)
		if err != nil {
			slog.Error("failed to open search index", "error", err)
			os.Exit(1)
		}
		defer fts.Close()
		index = fts
	default:
		slog.Error("INDEX_BACKEND must be fts5 or memory", "value", indexBackend)
		os.Exit(1)
	}

	syncer := search.NewSyncer(index)
	db.SetReplayer(syncer)

	postRepo := db.Posts()
	authService := service.NewAuthService(db.Users(), jwtSecret, bcryptCost)
	postService := service.NewPostService(postRepo, index, syncer)
	feedService := service.NewFeedService(db.Follows(), db.Users(), postRepo)

	// A memory-backed index starts empty on every boot, so rebuild it from
	// the store. The FTS index is durable and only rebuilds on request.
	if indexBackend == "memory" || os.Getenv("REINDEX_ON_START") == "true" {
		if err := postService.Reindex(context.Background()); err != nil {
			slog.Error("failed to rebuild search index", "error", err)
			os.Exit(1)
		}
	}

	// Allow a burst of 5 credential attempts per IP, refilling one every
	// two seconds.
	loginLimiter := service.NewTokenBucket(0.5, 5)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, postService, feedService, loginLimiter, cookieSecure)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
