package model

import (
	"errors"
	"time"
)

// Post represents a user's post with its denormalized counters.
type Post struct {
	ID         int64     `db:"id" json:"id"`
	AuthorID   int64     `db:"author_id" json:"author_id"`
	Text       string    `db:"text" json:"text"`
	ImgURL     *string   `db:"img_url" json:"img_url"`
	LikeCount  int       `db:"like_count" json:"like_count"`
	ReplyCount int       `db:"reply_count" json:"reply_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// Joined fields (not in the posts table)
	Author  *UserSummary `json:"author,omitempty"`
	Replies []Reply      `json:"replies,omitempty"`
	IsLiked bool         `json:"is_liked"`
}

// Reply is an append-only reply on a post. AuthorUsername and
// AuthorAvatarURL are point-in-time snapshots of the author's profile,
// not live references; the profile sync worker repairs them after a
// profile change. Text and CreatedAt are immutable.
type Reply struct {
	ID              int64     `db:"id" json:"id"`
	PostID          int64     `db:"post_id" json:"post_id"`
	AuthorID        int64     `db:"author_id" json:"author_id"`
	AuthorUsername  string    `db:"author_username" json:"author_username"`
	AuthorAvatarURL *string   `db:"author_avatar_url" json:"author_avatar_url"`
	Text            string    `db:"text" json:"text"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Text   string  `json:"text"`
	ImgURL *string `json:"img_url"`
}

// CreateReplyRequest is the request body for replying to a post.
type CreateReplyRequest struct {
	Text string `json:"text"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

const (
	// MaxPostTextLength mirrors the product's 500 character post limit.
	MaxPostTextLength = 500
)

// Post errors
var (
	ErrPostNotFound  = errors.New("post not found")
	ErrNotPostOwner  = errors.New("not the owner of this post")
	ErrTextRequired  = errors.New("text is required")
	ErrTextTooLong   = errors.New("text too long")
	ErrAlreadyLiked  = errors.New("post already liked")
	ErrNotLiked      = errors.New("post not liked")

	// ErrInvalidCursor is returned when a page token fails to parse
	ErrInvalidCursor = errors.New("invalid cursor")
)
