package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/search"
)

// Verify that *search.Syncer implements domain interfaces at compile time.
var (
	_ domain.ChangeReplayer = (*search.Syncer)(nil)
	_ domain.IndexRebuilder = (*search.Syncer)(nil)
)

func TestSyncerApply(t *testing.T) {
	idx := search.NewMemory()
	syncer := search.NewSyncer(idx)
	ctx := context.Background()

	// Seed a document that the change set deletes.
	idx.Upsert(ctx, "posts", 3, body("stale entry"))

	changes := &domain.ChangeSet{
		Created: []domain.ChangeEntry{
			{Collection: "posts", ID: 1, Fields: body("fresh created")},
		},
		Updated: []domain.ChangeEntry{
			{Collection: "posts", ID: 2, Fields: body("fresh updated")},
		},
		Deleted: []domain.ChangeEntry{
			{Collection: "posts", ID: 3},
		},
	}
	if err := syncer.Apply(ctx, changes); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	ids, total, err := idx.Query(ctx, "posts", "fresh", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 2 || len(ids) != 2 {
		t.Fatalf("expected created and updated documents indexed, got total %d ids %v", total, ids)
	}

	_, total, err = idx.Query(ctx, "posts", "stale", 1, 10)
	if err != nil {
		t.Fatalf("Query deleted: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected deleted document to be gone, got %d matches", total)
	}
}

func TestSyncerApplyIdempotent(t *testing.T) {
	idx := search.NewMemory()
	syncer := search.NewSyncer(idx)
	ctx := context.Background()

	changes := &domain.ChangeSet{
		Created: []domain.ChangeEntry{
			{Collection: "posts", ID: 1, Fields: body("replayed twice")},
		},
		Deleted: []domain.ChangeEntry{
			{Collection: "posts", ID: 9},
		},
	}

	if err := syncer.Apply(ctx, changes); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := syncer.Apply(ctx, changes); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	ids, total, err := idx.Query(ctx, "posts", "replayed", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 1 || len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected exactly one document after duplicate replay, got total %d ids %v", total, ids)
	}
}

func TestSyncerApplyEmpty(t *testing.T) {
	syncer := search.NewSyncer(search.NewMemory())

	if err := syncer.Apply(context.Background(), &domain.ChangeSet{}); err != nil {
		t.Fatalf("Apply on empty set: %v", err)
	}
}

// failingIndex rejects every write so Apply's error reporting can be
// observed.
type failingIndex struct{}

func (failingIndex) Upsert(ctx context.Context, collection string, id int64, fields map[string]string) error {
	return errors.New("index write failed")
}

func (failingIndex) Delete(ctx context.Context, collection string, id int64) error {
	return errors.New("index delete failed")
}

func (failingIndex) Query(ctx context.Context, collection, expression string, page, perPage int) ([]int64, int, error) {
	return nil, 0, errors.New("index query failed")
}

func TestSyncerApplyReportsFailures(t *testing.T) {
	syncer := search.NewSyncer(failingIndex{})

	changes := &domain.ChangeSet{
		Created: []domain.ChangeEntry{
			{Collection: "posts", ID: 1, Fields: body("doomed")},
			{Collection: "posts", ID: 2, Fields: body("also doomed")},
		},
	}
	err := syncer.Apply(context.Background(), changes)
	if err == nil {
		t.Fatal("expected an error when every index write fails")
	}
}

// fakeDoc and fakeSource drive Reindex from a plain slice.
type fakeDoc struct {
	id   int64
	text string
}

func (d fakeDoc) Collection() string { return "posts" }

func (d fakeDoc) DocID() int64 { return d.id }

func (d fakeDoc) IndexedFields() map[string]string { return body(d.text) }

type fakeSource struct {
	docs []fakeDoc
}

func (s *fakeSource) Collection() string { return "posts" }

func (s *fakeSource) IndexableBatch(ctx context.Context, afterID int64, limit int) ([]domain.Indexable, error) {
	batch := []domain.Indexable{}
	for _, d := range s.docs {
		if d.id > afterID && len(batch) < limit {
			batch = append(batch, d)
		}
	}
	return batch, nil
}

func TestSyncerReindex(t *testing.T) {
	idx := search.NewMemory()
	syncer := search.NewSyncer(idx)
	ctx := context.Background()

	// A document that no longer exists in the store and must disappear
	// during the rebuild.
	idx.Upsert(ctx, "posts", 99, body("stale leftover"))

	src := &fakeSource{docs: []fakeDoc{
		{id: 1, text: "first survivor"},
		{id: 2, text: "second survivor"},
		{id: 3, text: "third survivor"},
	}}
	if err := syncer.Reindex(ctx, src); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	_, total, err := idx.Query(ctx, "posts", "survivor", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 rebuilt documents, got %d", total)
	}

	_, total, err = idx.Query(ctx, "posts", "stale", 1, 10)
	if err != nil {
		t.Fatalf("Query stale: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected the stale document to be dropped, got %d matches", total)
	}
}

func TestSyncerReindexEmptySource(t *testing.T) {
	idx := search.NewMemory()
	syncer := search.NewSyncer(idx)
	ctx := context.Background()

	idx.Upsert(ctx, "posts", 1, body("about to vanish"))

	if err := syncer.Reindex(ctx, &fakeSource{}); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	_, total, err := idx.Query(ctx, "posts", "vanish", 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected an empty index after rebuilding from an empty store, got %d", total)
	}
}
