package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/murmurapp/murmur/internal/domain"
)

// FollowRepository implements domain.FollowRepository using SQLite. Follow
// edges never reach the search index, so these writes skip change capture.
type FollowRepository struct {
	db *DB
}

// NewFollowRepository creates a new SQLite-backed FollowRepository.
func NewFollowRepository(db *DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Follow creates the follower -> followed edge. Inserting an edge that
// already exists is a no-op, so the operation is safe to retry.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followedID int64) error {
	_, err := r.db.SqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower_id, followed_id, created_at)
		 VALUES (?, ?, ?)`,
		followerID, followedID, time.Now().UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user does not exist", domain.ErrNotFound)
		}
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

// Unfollow removes the follower -> followed edge. Removing an edge that
// does not exist is a no-op.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followedID int64) error {
	_, err := r.db.SqlDB.ExecContext(ctx,
		"DELETE FROM follows WHERE follower_id = ? AND followed_id = ?",
		followerID, followedID,
	)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return nil
}

func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	var count int
	err := r.db.SqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM follows WHERE follower_id = ? AND followed_id = ?",
		followerID, followedID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query follow edge: %w", err)
	}
	return count > 0, nil
}

// Followers lists the users following userID, most recent follow first.
func (r *FollowRepository) Followers(ctx context.Context, userID int64, page, perPage int) ([]domain.User, error) {
	rows, err := r.db.SqlDB.QueryContext(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.about_me, u.last_seen, u.created_at, u.updated_at
		 FROM users u
		 JOIN follows f ON u.id = f.follower_id
		 WHERE f.followed_id = ?
		 ORDER BY f.created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, perPage, pageOffset(page, perPage),
	)
	if err != nil {
		return nil, fmt.Errorf("query followers: %w", err)
	}
	return collectUsers(rows)
}

// Following lists the users userID follows, most recent follow first.
func (r *FollowRepository) Following(ctx context.Context, userID int64, page, perPage int) ([]domain.User, error) {
	rows, err := r.db.SqlDB.QueryContext(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.about_me, u.last_seen, u.created_at, u.updated_at
		 FROM users u
		 JOIN follows f ON u.id = f.followed_id
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, perPage, pageOffset(page, perPage),
	)
	if err != nil {
		return nil, fmt.Errorf("query following: %w", err)
	}
	return collectUsers(rows)
}

func (r *FollowRepository) FollowerCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.SqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM follows WHERE followed_id = ?", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}
	return count, nil
}

func (r *FollowRepository) FollowingCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.SqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM follows WHERE follower_id = ?", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count following: %w", err)
	}
	return count, nil
}

func collectUsers(rows *sql.Rows) ([]domain.User, error) {
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
