package domain

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// User represents a registered user of the application.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AboutMe      string
	LastSeen     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvatarURL returns the Gravatar URL for the user's email at the given
// size in pixels.
func (u *User) AvatarURL(size int) string {
	digest := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(u.Email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon&s=%d", digest, size)
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int64, aboutMe string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastSeen(ctx context.Context, id int64) error
}
