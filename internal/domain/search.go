package domain

import "context"

// Indexable is implemented by record types that mirror a subset of their
// fields into the search index. Collection names the index collection the
// type lives in, DocID is the record's primary key, and IndexedFields
// returns the field values to index.
type Indexable interface {
	Collection() string
	DocID() int64
	IndexedFields() map[string]string
}

// SearchIndex is the boundary to the keyword index. Query returns primary
// keys ordered by descending relevance together with the total match
// count; page is 1-based. Upsert and Delete must tolerate repeats so a
// change set can be replayed more than once.
type SearchIndex interface {
	Upsert(ctx context.Context, collection string, id int64, fields map[string]string) error
	Delete(ctx context.Context, collection string, id int64) error
	Query(ctx context.Context, collection, expression string, page, perPage int) (ids []int64, total int, err error)
}

// ChangeReplayer applies a committed transaction's change set to the
// search index. Apply is only ever invoked after the transaction is
// durable, and must be idempotent.
type ChangeReplayer interface {
	Apply(ctx context.Context, changes *ChangeSet) error
}

// IndexSource yields a collection's records in primary key order for a
// full index rebuild. IndexableBatch returns records with IDs greater
// than afterID, at most limit of them; an empty batch ends the scan.
type IndexSource interface {
	Collection() string
	IndexableBatch(ctx context.Context, afterID int64, limit int) ([]Indexable, error)
}

// IndexRebuilder resynchronizes a collection's index from the record
// store's current state.
type IndexRebuilder interface {
	Reindex(ctx context.Context, src IndexSource) error
}
