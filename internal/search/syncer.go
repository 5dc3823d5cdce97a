package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/murmurapp/murmur/internal/domain"
)

// reindexBatchSize is how many records a rebuild pulls from the store per
// round trip.
const reindexBatchSize = 500

// Resetter is implemented by indexes that can drop a whole collection in
// one shot. Reindex uses it to clear stale documents before a rebuild;
// indexes without it are rebuilt additively.
type Resetter interface {
	Reset(ctx context.Context, collection string) error
}

// Syncer replays committed change sets into the search index and rebuilds
// collections from the record store. Replays are idempotent because the
// index operations are: upserting a document twice or deleting a missing
// one converges on the same state.
type Syncer struct {
	index domain.SearchIndex
}

// NewSyncer creates a Syncer writing to the given index.
func NewSyncer(index domain.SearchIndex) *Syncer {
	return &Syncer{index: index}
}

// Apply implements domain.ChangeReplayer. Created and updated entries are
// upserted and deleted entries removed. Entries fail independently so one
// bad document does not block the rest; the joined error reports every
// failure.
func (s *Syncer) Apply(ctx context.Context, changes *domain.ChangeSet) error {
	if changes.Empty() {
		return nil
	}

	var errs []error
	for _, entry := range changes.Created {
		if err := s.index.Upsert(ctx, entry.Collection, entry.ID, entry.Fields); err != nil {
			errs = append(errs, fmt.Errorf("index %s/%d: %w", entry.Collection, entry.ID, err))
		}
	}
	for _, entry := range changes.Updated {
		if err := s.index.Upsert(ctx, entry.Collection, entry.ID, entry.Fields); err != nil {
			errs = append(errs, fmt.Errorf("index %s/%d: %w", entry.Collection, entry.ID, err))
		}
	}
	for _, entry := range changes.Deleted {
		if err := s.index.Delete(ctx, entry.Collection, entry.ID); err != nil {
			errs = append(errs, fmt.Errorf("unindex %s/%d: %w", entry.Collection, entry.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Reindex rebuilds the source's collection from the record store, walking
// it in primary key batches. Any document missing from the index is
// restored and, when the index supports Reset, stale documents are dropped
// first, so the index ends up matching the store exactly.
func (s *Syncer) Reindex(ctx context.Context, src domain.IndexSource) error {
	collection := src.Collection()

	if r, ok := s.index.(Resetter); ok {
		if err := r.Reset(ctx, collection); err != nil {
			return fmt.Errorf("reset collection %s: %w", collection, err)
		}
	}

	var afterID int64
	indexed := 0
	for {
		batch, err := src.IndexableBatch(ctx, afterID, reindexBatchSize)
		if err != nil {
			return fmt.Errorf("load batch after id %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, rec := range batch {
			if err := s.index.Upsert(ctx, collection, rec.DocID(), rec.IndexedFields()); err != nil {
				return fmt.Errorf("index %s/%d: %w", collection, rec.DocID(), err)
			}
		}
		afterID = batch[len(batch)-1].DocID()
		indexed += len(batch)
	}

	slog.Info("reindex complete", "collection", collection, "documents", indexed)
	return nil
}
