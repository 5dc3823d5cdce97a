package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/murmurapp/murmur/internal/domain"
)

const (
	maxLanguageLength = 5

	defaultPerPage = 20
	maxPerPage     = 100
)

// PostService handles authoring and querying posts, including keyword
// search against the external index.
type PostService struct {
	posts     domain.PostRepository
	index     domain.SearchIndex
	rebuilder domain.IndexRebuilder
}

// NewPostService creates a new PostService.
func NewPostService(posts domain.PostRepository, index domain.SearchIndex, rebuilder domain.IndexRebuilder) *PostService {
	return &PostService{
		posts:     posts,
		index:     index,
		rebuilder: rebuilder,
	}
}

// Create publishes a new post for the author. The post is durable once
// this returns; an index write failure is reported at commit time and
// repaired by the next reindex, so it does not fail the call.
func (s *PostService) Create(ctx context.Context, authorID int64, body, language string) (*domain.Post, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}
	if len(language) > maxLanguageLength {
		return nil, fmt.Errorf("%w: language tag must be at most %d characters", domain.ErrInvalidInput, maxLanguageLength)
	}

	post := &domain.Post{
		UserID:   authorID,
		Body:     strings.TrimSpace(body),
		Language: language,
	}

	if err := s.posts.Create(ctx, post); err != nil && !errors.Is(err, domain.ErrIndexSync) {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Update rewrites a post's body and language. Only the author may update
// their post.
func (s *PostService) Update(ctx context.Context, userID, postID int64, body, language string) (*domain.Post, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}
	if len(language) > maxLanguageLength {
		return nil, fmt.Errorf("%w: language tag must be at most %d characters", domain.ErrInvalidInput, maxLanguageLength)
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, domain.ErrUnauthorized
	}

	post.Body = strings.TrimSpace(body)
	post.Language = language

	if err := s.posts.Update(ctx, post); err != nil && !errors.Is(err, domain.ErrIndexSync) {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// Delete removes a post. Only the author may delete their post.
func (s *PostService) Delete(ctx context.Context, userID, postID int64) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return domain.ErrUnauthorized
	}

	if err := s.posts.Delete(ctx, postID); err != nil && !errors.Is(err, domain.ErrIndexSync) {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// Get retrieves a single post by ID.
func (s *PostService) Get(ctx context.Context, id int64) (*domain.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// Search runs the expression against the keyword index and hydrates the
// matching posts from the store, preserving the index's relevance order.
// A zero-match result is an empty page, never a store fallback; an index
// failure comes back as domain.ErrIndexUnavailable so callers can tell it
// apart from "nothing matched".
func (s *PostService) Search(ctx context.Context, expression string, page, perPage int) ([]domain.Post, int, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, 0, fmt.Errorf("%w: search expression is required", domain.ErrInvalidInput)
	}
	page, perPage = clampPage(page, perPage)

	ids, total, err := s.index.Query(ctx, domain.CollectionPosts, expression, page, perPage)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}

	posts, err := s.posts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("hydrate search results: %w", err)
	}

	// The store returns rows in its own order; put them back in the
	// index's relevance order. IDs the store no longer has are dropped.
	rank := make(map[int64]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.Slice(posts, func(i, j int) bool {
		return rank[posts[i].ID] < rank[posts[j].ID]
	})

	return posts, total, nil
}

// ListByUser returns a page of the user's posts, newest first.
func (s *PostService) ListByUser(ctx context.Context, userID int64, page, perPage int) ([]domain.Post, error) {
	page, perPage = clampPage(page, perPage)
	return s.posts.ListByUser(ctx, userID, page, perPage)
}

// Reindex rebuilds the posts collection in the search index from the
// store's current contents.
func (s *PostService) Reindex(ctx context.Context) error {
	if err := s.rebuilder.Reindex(ctx, s.posts); err != nil {
		return fmt.Errorf("reindex posts: %w", err)
	}
	return nil
}

func validateBody(body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Errorf("%w: post body is required", domain.ErrInvalidInput)
	}
	if len(body) > domain.MaxPostLength {
		return fmt.Errorf("%w: post body must be at most %d characters", domain.ErrInvalidInput, domain.MaxPostLength)
	}
	return nil
}

// clampPage normalizes 1-based pagination, applying the default page size
// and the hard cap.
func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
