package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/murmurapp/murmur/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, username, email, password_hash, about_me, last_seen, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }, user *domain.User) error {
	return row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.AboutMe, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt,
	)
}

// Create inserts the user inside a change-capturing transaction. Users are
// not indexable, so the recorded change is filtered out at commit; the
// recording still happens so the capture path stays uniform across
// repositories.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithSync(ctx, func(tx *Tx) error {
		return r.CreateTx(ctx, tx, user)
	})
}

// CreateTx inserts the user within an already open transaction.
func (r *UserRepository) CreateTx(ctx context.Context, tx *Tx, user *domain.User) error {
	now := time.Now().UTC()
	result, err := tx.tx.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, about_me, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.AboutMe, now, now,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.username"):
			return domain.ErrUsernameTaken
		case isUniqueViolation(err, "users.email"):
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	tx.RecordCreate(user)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user := &domain.User{}
	err := scanUser(r.db.SqlDB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id,
	), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user := &domain.User{}
	err := scanUser(r.db.SqlDB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?", username,
	), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by username: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user := &domain.User{}
	err := scanUser(r.db.SqlDB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email,
	), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, aboutMe string) error {
	result, err := r.db.SqlDB.ExecContext(ctx,
		"UPDATE users SET about_me = ?, updated_at = ? WHERE id = ?",
		aboutMe, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return requireRow(result, "update user profile")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.db.SqlDB.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return requireRow(result, "update user password")
}

func (r *UserRepository) TouchLastSeen(ctx context.Context, id int64) error {
	result, err := r.db.SqlDB.ExecContext(ctx,
		"UPDATE users SET last_seen = ? WHERE id = ?",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return requireRow(result, "touch last seen")
}

// requireRow converts a zero-row update into domain.ErrNotFound.
func requireRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// isUniqueViolation checks if the error is a SQLite unique constraint
// violation on the given qualified column, e.g. "users.email".
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

// isForeignKeyViolation checks if the error is a SQLite foreign key
// constraint failure.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
