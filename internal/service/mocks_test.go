package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"threadly/internal/model"
	"threadly/internal/queue"
	"threadly/internal/repository"
)

// Function-field mocks: each test assigns only the behavior it needs and
// the zero value of every other method is a safe default.

type mockUserRepo struct {
	getByIDFn          func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	updateProfileFn    func(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error)
	suggestedFn        func(ctx context.Context, viewerID int64, limit int) ([]model.UserSummary, error)
	getSummariesFn     func(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	setFrozenFn        func(ctx context.Context, userID int64, frozen bool) error

	followerDeltas  []int
	followingDeltas []int
	recountedUsers  []int64
	frozenSets      []bool
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &model.User{ID: id, Username: "user"}, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, req)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserRepo) Suggested(ctx context.Context, viewerID int64, limit int) ([]model.UserSummary, error) {
	if m.suggestedFn != nil {
		return m.suggestedFn(ctx, viewerID, limit)
	}
	return nil, nil
}

func (m *mockUserRepo) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	if m.getSummariesFn != nil {
		return m.getSummariesFn(ctx, ids)
	}
	out := make(map[int64]model.UserSummary, len(ids))
	for _, id := range ids {
		out[id] = model.UserSummary{ID: id}
	}
	return out, nil
}

func (m *mockUserRepo) SetFrozen(ctx context.Context, userID int64, frozen bool) error {
	m.frozenSets = append(m.frozenSets, frozen)
	if m.setFrozenFn != nil {
		return m.setFrozenFn(ctx, userID, frozen)
	}
	return nil
}

func (m *mockUserRepo) IncrementFollowerCount(ctx context.Context, userID int64, delta int) error {
	m.followerDeltas = append(m.followerDeltas, delta)
	return nil
}

func (m *mockUserRepo) IncrementFollowingCount(ctx context.Context, userID int64, delta int) error {
	m.followingDeltas = append(m.followingDeltas, delta)
	return nil
}

func (m *mockUserRepo) RecountFollows(ctx context.Context, userID int64) error {
	m.recountedUsers = append(m.recountedUsers, userID)
	return nil
}

type mockGraphRepo struct {
	addFollowingFn    func(ctx context.Context, userID, targetID int64) (bool, error)
	removeFollowingFn func(ctx context.Context, userID, targetID int64) (bool, error)
	addFollowerFn     func(ctx context.Context, userID, followerID int64) (bool, error)
	removeFollowerFn  func(ctx context.Context, userID, followerID int64) (bool, error)
	isFollowingFn     func(ctx context.Context, followerID, followeeID int64) (bool, error)
	followeeIDsFn     func(ctx context.Context, userID int64) ([]int64, error)
	followerIDsFn     func(ctx context.Context, userID int64) ([]int64, error)
	checkFollowsFn    func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	syncEdgeFn        func(ctx context.Context, followerID, followeeID int64) (bool, error)
	asymmetricFn      func(ctx context.Context, limit int) ([]model.GraphEdge, error)

	addFollowerCalls    int
	removeFollowerCalls int
}

func (m *mockGraphRepo) AddFollowing(ctx context.Context, userID, targetID int64) (bool, error) {
	if m.addFollowingFn != nil {
		return m.addFollowingFn(ctx, userID, targetID)
	}
	return true, nil
}

func (m *mockGraphRepo) RemoveFollowing(ctx context.Context, userID, targetID int64) (bool, error) {
	if m.removeFollowingFn != nil {
		return m.removeFollowingFn(ctx, userID, targetID)
	}
	return true, nil
}

func (m *mockGraphRepo) AddFollower(ctx context.Context, userID, followerID int64) (bool, error) {
	m.addFollowerCalls++
	if m.addFollowerFn != nil {
		return m.addFollowerFn(ctx, userID, followerID)
	}
	return true, nil
}

func (m *mockGraphRepo) RemoveFollower(ctx context.Context, userID, followerID int64) (bool, error) {
	m.removeFollowerCalls++
	if m.removeFollowerFn != nil {
		return m.removeFollowerFn(ctx, userID, followerID)
	}
	return true, nil
}

func (m *mockGraphRepo) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.isFollowingFn != nil {
		return m.isFollowingFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockGraphRepo) FolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.followeeIDsFn != nil {
		return m.followeeIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockGraphRepo) FollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.followerIDsFn != nil {
		return m.followerIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockGraphRepo) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if m.checkFollowsFn != nil {
		return m.checkFollowsFn(ctx, followerID, followeeIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockGraphRepo) SyncEdge(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.syncEdgeFn != nil {
		return m.syncEdgeFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockGraphRepo) AsymmetricEdges(ctx context.Context, limit int) ([]model.GraphEdge, error) {
	if m.asymmetricFn != nil {
		return m.asymmetricFn(ctx, limit)
	}
	return nil, nil
}

type mockPostRepo struct {
	createFn        func(ctx context.Context, authorID int64, text string, imgURL *string) (*model.Post, error)
	getByIDFn       func(ctx context.Context, postID int64) (*model.Post, error)
	existsFn        func(ctx context.Context, postID int64) (bool, error)
	checkLikesFn    func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	repliesFn       func(ctx context.Context, postID int64) ([]model.Reply, error)
	listByAuthorsFn func(ctx context.Context, authorIDs []int64, cursor *repository.PostCursor, limit int) ([]model.Post, error)
	postIDsFn       func(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error)
	rewriteFn       func(ctx context.Context, postIDs []int64, authorID int64, username string, avatarURL *string) (int64, error)
}

func (m *mockPostRepo) Create(ctx context.Context, authorID int64, text string, imgURL *string) (*model.Post, error) {
	if m.createFn != nil {
		return m.createFn(ctx, authorID, text, imgURL)
	}
	return &model.Post{ID: 1, AuthorID: authorID, Text: text, ImgURL: imgURL, CreatedAt: time.Now()}, nil
}

func (m *mockPostRepo) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepo) Delete(ctx context.Context, postID, authorID int64) error { return nil }

func (m *mockPostRepo) Exists(ctx context.Context, postID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, postID)
	}
	return false, nil
}

func (m *mockPostRepo) Like(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	return false, nil
}

func (m *mockPostRepo) Unlike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	return false, nil
}

func (m *mockPostRepo) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	return nil
}

func (m *mockPostRepo) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockPostRepo) AddReply(ctx context.Context, tx *sqlx.Tx, reply *model.Reply) error {
	return nil
}

func (m *mockPostRepo) Replies(ctx context.Context, postID int64) ([]model.Reply, error) {
	if m.repliesFn != nil {
		return m.repliesFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockPostRepo) ListByAuthors(ctx context.Context, authorIDs []int64, cursor *repository.PostCursor, limit int) ([]model.Post, error) {
	if m.listByAuthorsFn != nil {
		return m.listByAuthorsFn(ctx, authorIDs, cursor, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) ListByAuthor(ctx context.Context, authorID int64, cursor *repository.PostCursor, limit int) ([]model.Post, error) {
	return m.ListByAuthors(ctx, []int64{authorID}, cursor, limit)
}

func (m *mockPostRepo) PostIDsWithRepliesBy(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error) {
	if m.postIDsFn != nil {
		return m.postIDsFn(ctx, authorID, afterPostID, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) RewriteReplySnapshots(ctx context.Context, postIDs []int64, authorID int64, username string, avatarURL *string) (int64, error) {
	if m.rewriteFn != nil {
		return m.rewriteFn(ctx, postIDs, authorID, username, avatarURL)
	}
	return 0, nil
}

type mockPublisher struct {
	publishFn func(ctx context.Context, stream string, event queue.SyncEvent) (string, error)
	events    []queue.SyncEvent
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.SyncEvent) (string, error) {
	m.events = append(m.events, event)
	if m.publishFn != nil {
		return m.publishFn(ctx, stream, event)
	}
	return "1-0", nil
}
