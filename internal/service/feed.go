package service

import (
	"context"
	"fmt"

	"github.com/murmurapp/murmur/internal/domain"
)

// FeedService handles the follow graph and feed assembly.
type FeedService struct {
	follows domain.FollowRepository
	users   domain.UserRepository
	posts   domain.PostRepository
}

// NewFeedService creates a new FeedService.
func NewFeedService(follows domain.FollowRepository, users domain.UserRepository, posts domain.PostRepository) *FeedService {
	return &FeedService{
		follows: follows,
		users:   users,
		posts:   posts,
	}
}

// Profile bundles what a profile page shows about a user.
type Profile struct {
	User           *domain.User
	PostCount      int
	FollowerCount  int
	FollowingCount int

	// Following reports whether the viewer follows this user. Always
	// false for anonymous viewers.
	Following bool
}

// Follow makes followerID follow the named user. Following someone twice
// is a no-op, as is following yourself; the feed deduplicates either way.
func (s *FeedService) Follow(ctx context.Context, followerID int64, username string) (*domain.User, error) {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Follow(ctx, followerID, target.ID); err != nil {
		return nil, fmt.Errorf("follow user: %w", err)
	}
	return target, nil
}

// Unfollow makes followerID stop following the named user. Unfollowing
// someone you never followed is a no-op.
func (s *FeedService) Unfollow(ctx context.Context, followerID int64, username string) (*domain.User, error) {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Unfollow(ctx, followerID, target.ID); err != nil {
		return nil, fmt.Errorf("unfollow user: %w", err)
	}
	return target, nil
}

// IsFollowing reports whether followerID currently follows followedID.
func (s *FeedService) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	return s.follows.IsFollowing(ctx, followerID, followedID)
}

// Feed returns a page of the user's timeline: their own posts merged with
// the posts of everyone they follow, newest first, duplicates removed.
func (s *FeedService) Feed(ctx context.Context, userID int64, page, perPage int) ([]domain.Post, error) {
	page, perPage = clampPage(page, perPage)
	posts, err := s.posts.Feed(ctx, userID, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	return posts, nil
}

// Followers returns a page of the named user's followers along with the
// total follower count.
func (s *FeedService) Followers(ctx context.Context, username string, page, perPage int) ([]domain.User, int, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}

	page, perPage = clampPage(page, perPage)
	followers, err := s.follows.Followers(ctx, user.ID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list followers: %w", err)
	}
	total, err := s.follows.FollowerCount(ctx, user.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("count followers: %w", err)
	}
	return followers, total, nil
}

// Following returns a page of the users the named user follows along with
// the total count.
func (s *FeedService) Following(ctx context.Context, username string, page, perPage int) ([]domain.User, int, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}

	page, perPage = clampPage(page, perPage)
	following, err := s.follows.Following(ctx, user.ID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list following: %w", err)
	}
	total, err := s.follows.FollowingCount(ctx, user.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("count following: %w", err)
	}
	return following, total, nil
}

// Profile assembles the named user's public profile. viewerID is the
// authenticated viewer, or zero for anonymous requests.
func (s *FeedService) Profile(ctx context.Context, viewerID int64, username string) (*Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	postCount, err := s.posts.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	followerCount, err := s.follows.FollowerCount(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count followers: %w", err)
	}
	followingCount, err := s.follows.FollowingCount(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count following: %w", err)
	}

	profile := &Profile{
		User:           user,
		PostCount:      postCount,
		FollowerCount:  followerCount,
		FollowingCount: followingCount,
	}

	if viewerID != 0 {
		following, err := s.follows.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check following: %w", err)
		}
		profile.Following = following
	}

	return profile, nil
}
