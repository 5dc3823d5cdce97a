package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle together with the change replayer that keeps
// the search index in step with committed data. The replayer is optional;
// without one, transactions commit normally and no index work happens.
type DB struct {
	SqlDB    *sql.DB
	replayer domain.ChangeReplayer
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign key enforcement.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Set a reasonable connection pool for SQLite.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies all pending schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB)
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

// SetReplayer installs the replayer invoked after each captured transaction
// commits. Call it once during wiring, before the store takes traffic.
func (d *DB) SetReplayer(r domain.ChangeReplayer) {
	d.replayer = r
}

// Users returns a SQLite-backed user repository.
func (d *DB) Users() domain.UserRepository {
	return NewUserRepository(d)
}

// Posts returns a SQLite-backed post repository.
func (d *DB) Posts() domain.PostRepository {
	return NewPostRepository(d)
}

// Follows returns a SQLite-backed follow repository.
func (d *DB) Follows() domain.FollowRepository {
	return NewFollowRepository(d)
}
