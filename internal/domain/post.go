package domain

import (
	"context"
	"time"
)

// MaxPostLength bounds the post body, matching the column definition.
const MaxPostLength = 140

// CollectionPosts is the search index collection posts are mirrored into.
const CollectionPosts = "posts"

// Post is a single message authored by a user. Its body is the only
// field mirrored into the search index.
type Post struct {
	ID        int64
	UserID    int64
	Body      string
	Language  string
	CreatedAt time.Time
}

// Collection implements Indexable.
func (p *Post) Collection() string { return CollectionPosts }

// DocID implements Indexable.
func (p *Post) DocID() int64 { return p.ID }

// IndexedFields implements Indexable.
func (p *Post) IndexedFields() map[string]string {
	return map[string]string{"body": p.Body}
}

// PostRepository defines persistence operations for posts. Mutating
// operations record their changes so the search index can be kept in
// step with committed data.
type PostRepository interface {
	Create(ctx context.Context, post *Post) error
	GetByID(ctx context.Context, id int64) (*Post, error)
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64, page, perPage int) ([]Post, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Post, error)
	Feed(ctx context.Context, userID int64, page, perPage int) ([]Post, error)
	CountByUser(ctx context.Context, userID int64) (int, error)

	IndexSource
}
