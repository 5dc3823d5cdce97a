package search_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/search"
)

// Verify that *search.FTS implements the index contracts at compile time.
var (
	_ domain.SearchIndex = (*search.FTS)(nil)
	_ search.Resetter    = (*search.FTS)(nil)
)

func newTestFTS(t *testing.T) *search.FTS {
	t.Helper()
	idx, err := search.NewFTS(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("NewFTS: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func body(text string) map[string]string {
	return map[string]string{"body": text}
}

func TestFTSUpsertAndQuery(t *testing.T) {
	idx := newTestFTS(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "posts", 1, body("cats cats cats")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, "posts", 2, body("cats and dogs")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, "posts", 3, body("dogs only")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	ids, total, err := idx.Query(ctx, "posts", "cats", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}
	// Document 1 mentions the term three times and should outrank
	// document 2.
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected ids [1 2] best match first, got %v", ids)
	}
}

func TestFTSQueryPagination(t *testing.T) {
	idx := newTestFTS(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if err := idx.Upsert(ctx, "posts", id, body("ocean breeze")); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	page1, total, err := idx.Query(ctx, "posts", "ocean", 1, 2)
	if err != nil {
		t.Fatalf("Query page 1: %v", err)
	}
	if total != 3 || len(page1) != 2 {
		t.Fatalf("expected total 3 and 2 ids on page 1, got total %d ids %v", total, page1)
	}

	page2, total, err := idx.Query(ctx, "posts", "ocean", 2, 2)
	if err != nil {
		t.Fatalf("Query page 2: %v", err)
	}
	if total != 3 || len(page2) != 1 {
		t.Fatalf("expected total 3 and 1 id on page 2, got total %d ids %v", total, page2)
	}
	if page1[0] == page2[0] || page1[1] == page2[0] {
		t.Fatalf("pages overlap: %v vs %v", page1, page2)
	}
}

func TestFTSUpsertReplaces(t *testing.T) {
	idx := newTestFTS(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "posts", 1, body("ocean waves")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, "posts", 1, body("desert sand")); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	_, total, err := idx.Query(ctx, "posts", "ocean", 1, 10)
	if err != nil {
		t.Fatalf("Query old term: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected old content to be gone, got %d matches", total)
	}

	ids, total, err := idx.Query(ctx, "posts", "desert", 1, 10)
	if err != nil {
		t.Fatalf("Query new term: %v", err)
	}
	if total != 1 || len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected new content under id 1, got total %d ids %v", total, ids)
	}
}

func TestFTSDelete(t *testing.T) {
	idx := newTestFTS(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "posts", 1, body("ephemeral")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Delete(ctx, "posts", 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, total, err := idx.Query(ctx, "posts", "ephemeral", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 matches after delete, got %d", total)
	}

	// Deleting an id that was never indexed is a no-op.
	if err := idx.Delete(ctx, "posts", 42); err != nil {
		t.Fatalf("Delete missing id: %v", err)
	}
}

func TestFTSReset(t *testing.T) {
	idx := newTestFTS(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if err := idx.Upsert(ctx, "posts", id, body("wipe me")); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := idx.Reset(ctx, "posts"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	_, total, err := idx.Query(ctx, "posts", "wipe", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected empty collection after reset, got %d matches", total)
	}
}

func TestFTSMalformedExpression(t *testing.T) {
	idx := newTestFTS(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "posts", 1, body("anything")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	for _, expr := range []string{"cats AND", `"unterminated`} {
		_, _, err := idx.Query(ctx, "posts", expr, 1, 10)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Query(%q): expected ErrInvalidInput, got %v", expr, err)
		}
	}
}

func TestFTSEmptyCollection(t *testing.T) {
	idx := newTestFTS(t)

	ids, total, err := idx.Query(context.Background(), "posts", "anything", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 0 || len(ids) != 0 {
		t.Fatalf("expected no matches in a fresh collection, got total %d ids %v", total, ids)
	}
}

func TestFTSCollectionsAreIsolated(t *testing.T) {
	idx := newTestFTS(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "posts", 1, body("shared term")); err != nil {
		t.Fatalf("Upsert posts: %v", err)
	}
	if err := idx.Upsert(ctx, "drafts", 1, body("shared term")); err != nil {
		t.Fatalf("Upsert drafts: %v", err)
	}

	_, total, err := idx.Query(ctx, "posts", "shared", 1, 10)
	if err != nil {
		t.Fatalf("Query posts: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 match in posts, got %d", total)
	}

	if err := idx.Reset(ctx, "drafts"); err != nil {
		t.Fatalf("Reset drafts: %v", err)
	}
	_, total, err = idx.Query(ctx, "posts", "shared", 1, 10)
	if err != nil {
		t.Fatalf("Query posts after drafts reset: %v", err)
	}
	if total != 1 {
		t.Fatalf("resetting one collection touched another: got %d matches", total)
	}
}
