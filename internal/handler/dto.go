package handler

import (
	"time"

	"github.com/murmurapp/murmur/internal/domain"
	"github.com/murmurapp/murmur/internal/service"
)

// avatarSize is the pixel size requested for Gravatar URLs.
const avatarSize = 128

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	AboutMe   string  `json:"aboutMe"`
	AvatarURL string  `json:"avatarUrl"`
	LastSeen  *string `json:"lastSeen"`
	CreatedAt string  `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	dto := UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AboutMe:   u.AboutMe,
		AvatarURL: u.AvatarURL(avatarSize),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.LastSeen != nil {
		t := u.LastSeen.Format(time.RFC3339)
		dto.LastSeen = &t
	}
	return dto
}

func toUserDTOs(users []domain.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = toUserDTO(&users[i])
	}
	return dtos
}

// PostDTO is the JSON representation of a post.
type PostDTO struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Body      string `json:"body"`
	Language  string `json:"language"`
	CreatedAt string `json:"createdAt"`
}

func toPostDTO(p *domain.Post) PostDTO {
	return PostDTO{
		ID:        p.ID,
		UserID:    p.UserID,
		Body:      p.Body,
		Language:  p.Language,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toPostDTOs(posts []domain.Post) []PostDTO {
	dtos := make([]PostDTO, len(posts))
	for i := range posts {
		dtos[i] = toPostDTO(&posts[i])
	}
	return dtos
}

// ProfileDTO is the JSON representation of a user's public profile.
type ProfileDTO struct {
	User           UserDTO `json:"user"`
	PostCount      int     `json:"postCount"`
	FollowerCount  int     `json:"followerCount"`
	FollowingCount int     `json:"followingCount"`
	Following      bool    `json:"following"`
}

func toProfileDTO(p *service.Profile) ProfileDTO {
	return ProfileDTO{
		User:           toUserDTO(p.User),
		PostCount:      p.PostCount,
		FollowerCount:  p.FollowerCount,
		FollowingCount: p.FollowingCount,
		Following:      p.Following,
	}
}
