package model

import (
	"errors"
	"time"
)

// User represents a user in the system. Identity (ID) is stable;
// username and avatar are mutable and cached inside reply snapshots,
// which is why profile updates trigger an asynchronous snapshot rewrite.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Name           string    `db:"name" json:"name"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url"`
	Bio            *string   `db:"bio" json:"bio"`
	IsFrozen       bool      `db:"is_frozen" json:"is_frozen"`
	FollowerCount  int       `db:"follower_count" json:"follower_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserSummary is the lightweight user projection embedded in list responses.
type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	Name        string  `db:"name" json:"name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsFollowing bool    `json:"is_following"`
}

// UpdateProfileRequest is the request body for PATCH /profile.
// Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Username  *string `json:"username"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when a profile update collides with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrUsernameInvalid is returned when a profile update carries an empty or malformed username
	ErrUsernameInvalid = errors.New("username is invalid")
)
