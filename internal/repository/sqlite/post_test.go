package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/repository/sqlite"
)

func createTestPost(t *testing.T, repo *sqlite.PostRepository, userID int64, body string) *domain.Post {
	t.Helper()
	post := &domain.Post{UserID: userID, Body: body}
	if err := repo.Create(context.Background(), post); err != nil {
		t.Fatalf("Create post %q: %v", body, err)
	}
	return post
}

func TestPostCreate(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)

	user := createTestUser(t, users, "alice", "alice@example.com")
	post := createTestPost(t, posts, user.ID, "hello world")

	if post.ID == 0 {
		t.Error("expected ID to be set after Create")
	}
	if post.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set after Create")
	}
}

func TestPostCreateUnknownAuthor(t *testing.T) {
	db := newTestDB(t)
	posts := sqlite.NewPostRepository(db)

	post := &domain.Post{UserID: 9999, Body: "orphan"}
	err := posts.Create(context.Background(), post)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown author, got %v", err)
	}
}

func TestPostGetByID(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	created := createTestPost(t, posts, user.ID, "hello world")

	got, err := posts.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Body != "hello world" || got.UserID != user.ID {
		t.Errorf("got body=%q user=%d, want body=%q user=%d", got.Body, got.UserID, "hello world", user.ID)
	}

	_, err = posts.GetByID(ctx, 9999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostUpdate(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	post := createTestPost(t, posts, user.ID, "first draft")

	post.Body = "second draft"
	post.Language = "en"
	if err := posts.Update(ctx, post); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := posts.GetByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Body != "second draft" || got.Language != "en" {
		t.Errorf("got body=%q lang=%q, want second draft/en", got.Body, got.Language)
	}

	missing := &domain.Post{ID: 9999, Body: "nope"}
	err = posts.Update(ctx, missing)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing post, got %v", err)
	}
}

func TestPostDelete(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	post := createTestPost(t, posts, user.ID, "short-lived")

	if err := posts.Delete(ctx, post.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := posts.GetByID(ctx, post.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := posts.Delete(ctx, post.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostListByUser(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	bob := createTestUser(t, users, "bob", "bob@example.com")

	first := createTestPost(t, posts, alice.ID, "post one")
	second := createTestPost(t, posts, alice.ID, "post two")
	createTestPost(t, posts, bob.ID, "not mine")

	got, err := posts.ListByUser(ctx, alice.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(got))
	}
	// Newest first.
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("wrong order: got [%d %d], want [%d %d]", got[0].ID, got[1].ID, second.ID, first.ID)
	}
}

func TestPostListByUserPagination(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	for i := 0; i < 5; i++ {
		createTestPost(t, posts, user.ID, fmt.Sprintf("post %d", i))
	}

	page1, err := posts.ListByUser(ctx, user.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListByUser page 1: %v", err)
	}
	page2, err := posts.ListByUser(ctx, user.ID, 2, 2)
	if err != nil {
		t.Fatalf("ListByUser page 2: %v", err)
	}
	page3, err := posts.ListByUser(ctx, user.ID, 3, 2)
	if err != nil {
		t.Fatalf("ListByUser page 3: %v", err)
	}

	if len(page1) != 2 || len(page2) != 2 || len(page3) != 1 {
		t.Fatalf("expected page sizes 2/2/1, got %d/%d/%d", len(page1), len(page2), len(page3))
	}
	if page1[0].ID == page2[0].ID {
		t.Error("pages overlap")
	}
}

func TestPostListByIDs(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	p1 := createTestPost(t, posts, user.ID, "one")
	p2 := createTestPost(t, posts, user.ID, "two")

	got, err := posts.ListByIDs(ctx, []int64{p1.ID, p2.ID, 9999})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 posts (missing id dropped), got %d", len(got))
	}

	empty, err := posts.ListByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("ListByIDs(nil): %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty result for no ids, got %d", len(empty))
	}
}

func TestPostFeed(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	follows := sqlite.NewFollowRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	bob := createTestUser(t, users, "bob", "bob@example.com")
	carol := createTestUser(t, users, "carol", "carol@example.com")

	own := createTestPost(t, posts, alice.ID, "alice post")
	followed := createTestPost(t, posts, bob.ID, "bob post")
	createTestPost(t, posts, carol.ID, "carol post")

	if err := follows.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}

	feed, err := posts.Feed(ctx, alice.ID, 1, 10)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 feed posts (own + followed), got %d", len(feed))
	}
	// Newest first: bob's post was created after alice's.
	if feed[0].ID != followed.ID || feed[1].ID != own.ID {
		t.Errorf("wrong order: got [%d %d], want [%d %d]", feed[0].ID, feed[1].ID, followed.ID, own.ID)
	}
	for _, p := range feed {
		if p.UserID == carol.ID {
			t.Error("feed contains a post from an unfollowed user")
		}
	}
}

func TestPostFeedSelfFollowNoDuplicates(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	follows := sqlite.NewFollowRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	createTestPost(t, posts, alice.ID, "only once")

	// A self-follow makes the post match both arms of the feed query.
	if err := follows.Follow(ctx, alice.ID, alice.ID); err != nil {
		t.Fatalf("self Follow: %v", err)
	}

	feed, err := posts.Feed(ctx, alice.ID, 1, 10)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("expected 1 post without duplicates, got %d", len(feed))
	}
}

func TestPostFeedPagination(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	follows := sqlite.NewFollowRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	bob := createTestUser(t, users, "bob", "bob@example.com")
	if err := follows.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	for i := 0; i < 3; i++ {
		createTestPost(t, posts, alice.ID, fmt.Sprintf("alice %d", i))
		createTestPost(t, posts, bob.ID, fmt.Sprintf("bob %d", i))
	}

	page1, err := posts.Feed(ctx, alice.ID, 1, 4)
	if err != nil {
		t.Fatalf("Feed page 1: %v", err)
	}
	page2, err := posts.Feed(ctx, alice.ID, 2, 4)
	if err != nil {
		t.Fatalf("Feed page 2: %v", err)
	}
	if len(page1) != 4 || len(page2) != 2 {
		t.Fatalf("expected page sizes 4/2, got %d/%d", len(page1), len(page2))
	}
}

func TestPostCountByUser(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")

	count, err := posts.CountByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 posts, got %d", count)
	}

	createTestPost(t, posts, user.ID, "one")
	createTestPost(t, posts, user.ID, "two")

	count, err = posts.CountByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 posts, got %d", count)
	}
}

func TestPostIndexableBatch(t *testing.T) {
	db := newTestDB(t)
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	for i := 0; i < 5; i++ {
		createTestPost(t, posts, user.ID, fmt.Sprintf("post %d", i))
	}

	var seen []int64
	var afterID int64
	for {
		batch, err := posts.IndexableBatch(ctx, afterID, 2)
		if err != nil {
			t.Fatalf("IndexableBatch(after=%d): %v", afterID, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, doc := range batch {
			seen = append(seen, doc.DocID())
		}
		afterID = batch[len(batch)-1].DocID()
	}

	if len(seen) != 5 {
		t.Fatalf("expected 5 documents across batches, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("batch ids not strictly increasing: %v", seen)
		}
	}
}
