package domain

import "context"

// FollowRepository defines persistence operations for the follow graph.
// Follow and Unfollow are idempotent: creating an edge that already
// exists and removing one that does not are both silent no-ops.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followedID int64) error
	Unfollow(ctx context.Context, followerID, followedID int64) error
	IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error)
	Followers(ctx context.Context, userID int64, page, perPage int) ([]User, error)
	Following(ctx context.Context, userID int64, page, perPage int) ([]User, error)
	FollowerCount(ctx context.Context, userID int64) (int, error)
	FollowingCount(ctx context.Context, userID int64) (int, error)
}
