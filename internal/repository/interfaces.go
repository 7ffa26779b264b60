package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"threadly/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// UpdateProfile applies the non-nil fields of req and returns the
	// updated row. The snapshot sync trigger runs after this commits.
	UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error)
	// Suggested returns up to limit users the viewer does not follow,
	// excluding the viewer, in random order. Exclusion happens before the
	// limit so the result is only short when the candidate pool is.
	Suggested(ctx context.Context, viewerID int64, limit int) ([]model.UserSummary, error)
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	// SetFrozen flips the account freeze flag. A frozen account is hidden
	// from profile reads and suggestions until the owner unfreezes it.
	SetFrozen(ctx context.Context, userID int64, frozen bool) error
	IncrementFollowerCount(ctx context.Context, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, userID int64, delta int) error
	// RecountFollows re-derives both counters from the graph tables.
	RecountFollows(ctx context.Context, userID int64) error
}

// GraphRepository is the persisted follow adjacency. The followings and
// followers sides live in independent storage units and are mutated by
// independent statements; symmetry between them is the service's job.
type GraphRepository interface {
	// AddFollowing/RemoveFollowing mutate the actor-owned followings set.
	// The bool reports whether membership actually changed (set semantics:
	// duplicates are no-ops, not errors).
	AddFollowing(ctx context.Context, userID, targetID int64) (bool, error)
	RemoveFollowing(ctx context.Context, userID, targetID int64) (bool, error)

	// AddFollower/RemoveFollower mutate the target-owned followers set.
	AddFollower(ctx context.Context, userID, followerID int64) (bool, error)
	RemoveFollower(ctx context.Context, userID, followerID int64) (bool, error)

	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)
	FolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
	FollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)

	// SyncEdge forces the followers side of one edge to agree with the
	// followings side (the source of truth). Returns whether a repair
	// write was needed. Safe to call repeatedly.
	SyncEdge(ctx context.Context, followerID, followeeID int64) (bool, error)

	// AsymmetricEdges reports edges where the two sides disagree, for the
	// periodic reconciliation sweep.
	AsymmetricEdges(ctx context.Context, limit int) ([]model.GraphEdge, error)
}

type PostRepository interface {
	Create(ctx context.Context, authorID int64, text string, imgURL *string) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	Delete(ctx context.Context, postID, authorID int64) error
	Exists(ctx context.Context, postID int64) (bool, error)

	// Like/Unlike are set mutations; bool reports a membership change.
	Like(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error)
	Unlike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error)
	IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)

	// AddReply appends a reply snapshot and bumps the counter in the
	// caller's transaction. Replies are append-only.
	AddReply(ctx context.Context, tx *sqlx.Tx, reply *model.Reply) error
	Replies(ctx context.Context, postID int64) ([]model.Reply, error)

	// ListByAuthors is the fan-out-on-read feed query: posts authored by
	// any of authorIDs, newest first, keyset-paginated on (created_at, id).
	ListByAuthors(ctx context.Context, authorIDs []int64, cursor *PostCursor, limit int) ([]model.Post, error)
	ListByAuthor(ctx context.Context, authorID int64, cursor *PostCursor, limit int) ([]model.Post, error)

	// PostIDsWithRepliesBy pages over posts containing at least one reply
	// snapshot by authorID, in ascending post id order starting after
	// afterPostID. This is the resumable cursor for the snapshot rewrite.
	PostIDsWithRepliesBy(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error)
	// RewriteReplySnapshots updates the cached author fields on replies by
	// authorID within the given posts. Text and created_at are untouched.
	// Idempotent: rewriting to the current values changes nothing.
	RewriteReplySnapshots(ctx context.Context, postIDs []int64, authorID int64, username string, avatarURL *string) (int64, error)
}

type ConversationRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	// GetOrCreate returns the conversation for the unordered pair (a, b),
	// creating it if absent. Concurrent first messages between the same
	// pair converge on one row via the pair's unique index.
	GetOrCreate(ctx context.Context, userA, userB int64) (*model.Conversation, error)
	// GetByPair returns the conversation for the unordered pair without
	// creating it. Conversations come into existence on first message only.
	GetByPair(ctx context.Context, userA, userB int64) (*model.Conversation, error)

	// ListForUser returns every conversation the user participates in,
	// most recently active first.
	ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error)

	GetMessage(ctx context.Context, messageID int64) (*model.Message, error)

	InsertMessage(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error
	UpdateLastMessage(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error

	// ListMessages returns messages ordered by (created_at, id) ascending,
	// starting after the cursor. Restartable: the same cursor always
	// resumes at the same point.
	ListMessages(ctx context.Context, conversationID int64, cursor *MessageCursor, limit int) ([]model.Message, error)

	MarkDelivered(ctx context.Context, messageID int64) (bool, error)
	// MarkDeliveredForRecipient promotes all pending messages addressed to
	// recipientID in the conversation (pull-on-reconnect path).
	MarkDeliveredForRecipient(ctx context.Context, conversationID, recipientID int64) (int64, error)
	MarkSeen(ctx context.Context, messageID, recipientID int64) (*model.Message, error)
}

type DeviceTokenRepository interface {
	Upsert(ctx context.Context, userID int64, token, platform string) error
	GetByUserID(ctx context.Context, userID int64) ([]model.DeviceToken, error)
	Delete(ctx context.Context, token string) error
}

// PostCursor is a keyset cursor over (created_at DESC, id DESC).
type PostCursor struct {
	CreatedAt time.Time
	ID        int64
}

// MessageCursor is a keyset cursor over (created_at ASC, id ASC).
type MessageCursor struct {
	CreatedAt time.Time
	ID        int64
}
