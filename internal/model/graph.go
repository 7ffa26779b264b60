package model

import "errors"

// FollowResult reports the outcome of a follow/unfollow call.
// Changed is false when the operation was a no-op (already in the
// requested state) - that is a success, not an error.
type FollowResult struct {
	Following bool `json:"following"`
	Changed   bool `json:"changed"`
}

// GraphEdge identifies one directed follow relation.
type GraphEdge struct {
	FollowerID int64 `db:"follower_id" json:"follower_id"`
	FolloweeID int64 `db:"followee_id" json:"followee_id"`
}

var (
	// ErrCannotFollowSelf is returned when actor and target are the same user
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)
