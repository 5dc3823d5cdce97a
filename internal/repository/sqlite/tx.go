package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/murmurapp/murmur/internal/domain"
)

// changeOp distinguishes how a record was touched within a transaction.
type changeOp int

const (
	opCreate changeOp = iota
	opUpdate
	opDelete
)

// pendingChange is one recorded mutation awaiting commit.
type pendingChange struct {
	op     changeOp
	entity any
}

// Tx is a change-capturing transaction. Repositories record every record
// they mutate while the transaction is open; Commit freezes the recorded
// changes into a domain.ChangeSet immediately before the database commit
// and replays the set against the search index immediately after the
// commit succeeds. Rollback discards the recorded changes along with the
// data, so nothing ever reaches the index for an aborted transaction.
type Tx struct {
	tx      *sql.Tx
	db      *DB
	pending []pendingChange
	done    bool
}

// Begin opens a change-capturing transaction.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.SqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx, db: d}, nil
}

// WithSync runs fn inside a change-capturing transaction. If fn returns an
// error the transaction is rolled back; otherwise it is committed and the
// captured changes are replayed against the index.
func (d *DB) WithSync(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RecordCreate notes that entity was inserted in this transaction. Entities
// that do not implement domain.Indexable are dropped when the change set is
// frozen, so repositories can record everything they touch.
func (t *Tx) RecordCreate(entity any) {
	t.pending = append(t.pending, pendingChange{op: opCreate, entity: entity})
}

// RecordUpdate notes that entity was modified in this transaction.
func (t *Tx) RecordUpdate(entity any) {
	t.pending = append(t.pending, pendingChange{op: opUpdate, entity: entity})
}

// RecordDelete notes that entity was removed in this transaction. Only the
// entity's collection and primary key are retained.
func (t *Tx) RecordDelete(entity any) {
	t.pending = append(t.pending, pendingChange{op: opDelete, entity: entity})
}

// Commit freezes the recorded changes, commits the transaction, and then
// hands the frozen set to the store's replayer. The replay runs strictly
// after the data is durable; if it fails the commit still stands and the
// error comes back wrapped in domain.ErrIndexSync so callers can tell a
// stale index apart from a failed write.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	changes := t.freeze()

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	t.done = true
	t.pending = nil

	if t.db.replayer == nil || changes.Empty() {
		return nil
	}
	if err := t.db.replayer.Apply(ctx, changes); err != nil {
		slog.Error("index sync failed after commit",
			"created", len(changes.Created),
			"updated", len(changes.Updated),
			"deleted", len(changes.Deleted),
			"error", err,
		)
		return fmt.Errorf("%w: %v", domain.ErrIndexSync, err)
	}
	return nil
}

// Rollback abandons the transaction and discards the recorded changes. It
// is a no-op after Commit, so it can be deferred unconditionally.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.pending = nil
	return t.tx.Rollback()
}

// freeze collapses the recorded mutations into one entry per record and
// snapshots the indexed field values as they stand right now, before the
// commit. Later records win: an update folds into a pending create, a
// delete overrides both, and a create after a delete resurrects the record.
func (t *Tx) freeze() *domain.ChangeSet {
	type key struct {
		collection string
		id         int64
	}

	state := make(map[key]changeOp)
	latest := make(map[key]domain.Indexable)
	var order []key

	for _, p := range t.pending {
		rec, ok := p.entity.(domain.Indexable)
		if !ok {
			continue
		}
		k := key{collection: rec.Collection(), id: rec.DocID()}
		prev, seen := state[k]
		if !seen {
			state[k] = p.op
			latest[k] = rec
			order = append(order, k)
			continue
		}
		latest[k] = rec
		switch p.op {
		case opCreate:
			state[k] = opCreate
		case opUpdate:
			if prev != opCreate && prev != opDelete {
				state[k] = opUpdate
			}
		case opDelete:
			state[k] = opDelete
		}
	}

	set := &domain.ChangeSet{}
	for _, k := range order {
		entry := domain.ChangeEntry{Collection: k.collection, ID: k.id}
		switch state[k] {
		case opCreate:
			entry.Fields = latest[k].IndexedFields()
			set.Created = append(set.Created, entry)
		case opUpdate:
			entry.Fields = latest[k].IndexedFields()
			set.Updated = append(set.Updated, entry)
		case opDelete:
			set.Deleted = append(set.Deleted, entry)
		}
	}
	return set
}
