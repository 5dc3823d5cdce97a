// Package search provides the keyword index implementations and the syncer
// that replays committed change sets into them.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/murmurapp/murmur/internal/domain"

	_ "modernc.org/sqlite"
)

// FTS implements domain.SearchIndex on SQLite's FTS5 extension. The index
// lives in its own database file, separate from the record store, so it
// fails and recovers independently. Each collection maps to a virtual
// table named fts_<collection> whose rowid carries the record's primary
// key; the indexed field values are folded into a single content column.
type FTS struct {
	db *sql.DB

	mu     sync.Mutex
	tables map[string]bool
}

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NewFTS opens (or creates) the index database at the given path.
func NewFTS(path string) (*FTS, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index database: %w", err)
	}

	return &FTS{db: db, tables: make(map[string]bool)}, nil
}

// Close closes the index database handle.
func (f *FTS) Close() error {
	return f.db.Close()
}

// Upsert writes the document under id, replacing any previous version.
func (f *FTS) Upsert(ctx context.Context, collection string, id int64, fields map[string]string) error {
	table, err := f.ensureTable(ctx, collection)
	if err != nil {
		return err
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE rowid = ?", id); err != nil {
		return fmt.Errorf("clear old document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" (rowid, content) VALUES (?, ?)",
		id, foldFields(fields),
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return tx.Commit()
}

// Delete removes the document under id. Deleting a document that was never
// indexed is a no-op.
func (f *FTS) Delete(ctx context.Context, collection string, id int64) error {
	table, err := f.ensureTable(ctx, collection)
	if err != nil {
		return err
	}
	if _, err := f.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE rowid = ?", id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Query runs the FTS5 MATCH expression and returns the page of document
// IDs ordered best match first, along with the total match count.
func (f *FTS) Query(ctx context.Context, collection, expression string, page, perPage int) ([]int64, int, error) {
	table, err := f.ensureTable(ctx, collection)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = f.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE "+table+" MATCH ?", expression,
	).Scan(&total)
	if err != nil {
		if isMatchSyntaxError(err) {
			return nil, 0, fmt.Errorf("%w: malformed search expression", domain.ErrInvalidInput)
		}
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}

	rows, err := f.db.QueryContext(ctx,
		"SELECT rowid FROM "+table+" WHERE "+table+" MATCH ? ORDER BY rank, rowid LIMIT ? OFFSET ?",
		expression, perPage, queryOffset(page, perPage),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("scan match: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, total, rows.Err()
}

// Reset drops every document in the collection. Used before a full
// rebuild.
func (f *FTS) Reset(ctx context.Context, collection string) error {
	table, err := f.ensureTable(ctx, collection)
	if err != nil {
		return err
	}
	if _, err := f.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	return nil
}

// ensureTable creates the collection's virtual table on first use and
// returns its name. Collection names come from code, not users, but they
// are interpolated into SQL, so they are validated all the same.
func (f *FTS) ensureTable(ctx context.Context, collection string) (string, error) {
	if !collectionName.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	table := "fts_" + collection

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables[collection] {
		return table, nil
	}

	if _, err := f.db.ExecContext(ctx,
		"CREATE VIRTUAL TABLE IF NOT EXISTS "+table+" USING fts5(content)",
	); err != nil {
		return "", fmt.Errorf("create index table: %w", err)
	}
	f.tables[collection] = true
	return table, nil
}

// foldFields flattens the indexed fields into one searchable blob, in
// stable field order.
func foldFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, fields[k])
	}
	return strings.Join(values, "\n")
}

// isMatchSyntaxError checks if the error is FTS5 rejecting the MATCH
// expression rather than the index failing.
func isMatchSyntaxError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") || strings.Contains(msg, "unknown special query")
}

// queryOffset converts 1-based pagination into a row offset, clamping bad
// input to the first page.
func queryOffset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	if perPage < 0 {
		perPage = 0
	}
	return (page - 1) * perPage
}
