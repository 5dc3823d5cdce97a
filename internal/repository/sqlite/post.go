package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/murmurapp/murmur/internal/domain"
)

// PostRepository implements domain.PostRepository using SQLite. Every
// mutation goes through a change-capturing transaction so committed posts
// are mirrored into the search index.
type PostRepository struct {
	db *DB
}

// NewPostRepository creates a new SQLite-backed PostRepository.
func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = "id, user_id, body, language, created_at"

func scanPost(row interface{ Scan(...any) error }, post *domain.Post) error {
	return row.Scan(&post.ID, &post.UserID, &post.Body, &post.Language, &post.CreatedAt)
}

func collectPosts(rows *sql.Rows) ([]domain.Post, error) {
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		var post domain.Post
		if err := scanPost(rows, &post); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Create inserts the post and records it for index synchronization.
func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	return r.db.WithSync(ctx, func(tx *Tx) error {
		return r.CreateTx(ctx, tx, post)
	})
}

// CreateTx inserts the post within an already open transaction.
func (r *PostRepository) CreateTx(ctx context.Context, tx *Tx, post *domain.Post) error {
	now := time.Now().UTC()
	result, err := tx.tx.ExecContext(ctx,
		`INSERT INTO posts (user_id, body, language, created_at)
		 VALUES (?, ?, ?, ?)`,
		post.UserID, post.Body, post.Language, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: author does not exist", domain.ErrNotFound)
		}
		return fmt.Errorf("insert post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	post.ID = id
	post.CreatedAt = now
	tx.RecordCreate(post)
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	post := &domain.Post{}
	err := scanPost(r.db.SqlDB.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = ?", id,
	), post)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query post by id: %w", err)
	}
	return post, nil
}

// Update rewrites the post body and language and records the change for
// index synchronization.
func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	return r.db.WithSync(ctx, func(tx *Tx) error {
		return r.UpdateTx(ctx, tx, post)
	})
}

// UpdateTx updates the post within an already open transaction.
func (r *PostRepository) UpdateTx(ctx context.Context, tx *Tx, post *domain.Post) error {
	result, err := tx.tx.ExecContext(ctx,
		"UPDATE posts SET body = ?, language = ? WHERE id = ?",
		post.Body, post.Language, post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if err := requireRow(result, "update post"); err != nil {
		return err
	}
	tx.RecordUpdate(post)
	return nil
}

// Delete removes the post and records the deletion for index
// synchronization.
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithSync(ctx, func(tx *Tx) error {
		return r.DeleteTx(ctx, tx, id)
	})
}

// DeleteTx deletes the post within an already open transaction.
func (r *PostRepository) DeleteTx(ctx context.Context, tx *Tx, id int64) error {
	result, err := tx.tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := requireRow(result, "delete post"); err != nil {
		return err
	}
	tx.RecordDelete(&domain.Post{ID: id})
	return nil
}

func (r *PostRepository) ListByUser(ctx context.Context, userID int64, page, perPage int) ([]domain.Post, error) {
	rows, err := r.db.SqlDB.QueryContext(ctx,
		"SELECT "+postColumns+` FROM posts
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, perPage, pageOffset(page, perPage),
	)
	if err != nil {
		return nil, fmt.Errorf("query posts by user: %w", err)
	}
	return collectPosts(rows)
}

// ListByIDs fetches the given posts in one query. Rows come back in store
// order, not argument order; callers that care about ordering reorder the
// result themselves. Missing IDs are silently absent.
func (r *PostRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Post, error) {
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.SqlDB.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts by ids: %w", err)
	}
	return collectPosts(rows)
}

// Feed returns the newest-first merge of the user's own posts and the
// posts of everyone the user follows. The union removes duplicates, so a
// user who follows themselves still sees each post once.
func (r *PostRepository) Feed(ctx context.Context, userID int64, page, perPage int) ([]domain.Post, error) {
	rows, err := r.db.SqlDB.QueryContext(ctx,
		`SELECT p.id, p.user_id, p.body, p.language, p.created_at
		 FROM posts p
		 JOIN follows f ON p.user_id = f.followed_id
		 WHERE f.follower_id = ?
		 UNION
		 SELECT p.id, p.user_id, p.body, p.language, p.created_at
		 FROM posts p
		 WHERE p.user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, userID, perPage, pageOffset(page, perPage),
	)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	return collectPosts(rows)
}

func (r *PostRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.SqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE user_id = ?", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts by user: %w", err)
	}
	return count, nil
}

// Collection implements domain.IndexSource.
func (r *PostRepository) Collection() string {
	return domain.CollectionPosts
}

// IndexableBatch implements domain.IndexSource. It pages through posts in
// primary key order for a full index rebuild.
func (r *PostRepository) IndexableBatch(ctx context.Context, afterID int64, limit int) ([]domain.Indexable, error) {
	rows, err := r.db.SqlDB.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id > ? ORDER BY id LIMIT ?",
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts batch: %w", err)
	}
	posts, err := collectPosts(rows)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.Indexable, len(posts))
	for i := range posts {
		batch[i] = &posts[i]
	}
	return batch, nil
}

// pageOffset converts 1-based pagination into a row offset, clamping bad
// input to the first page.
func pageOffset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	if perPage < 0 {
		perPage = 0
	}
	return (page - 1) * perPage
}
