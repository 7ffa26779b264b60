package worker

import (
	"context"
	"errors"
	"testing"

	"threadly/internal/model"
	"threadly/internal/queue"
	"threadly/internal/repository"
)

// The handler only touches a few repository methods, so the mocks embed
// the interface and override just those. Calling anything else panics,
// which is exactly what a test wants.

type mockUserRepo struct {
	repository.UserRepository
	getByIDFn func(ctx context.Context, id int64) (*model.User, error)

	recounted []int64
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockUserRepo) RecountFollows(ctx context.Context, userID int64) error {
	m.recounted = append(m.recounted, userID)
	return nil
}

type mockGraphRepo struct {
	repository.GraphRepository
	syncEdgeFn   func(ctx context.Context, followerID, followeeID int64) (bool, error)
	asymmetricFn func(ctx context.Context, limit int) ([]model.GraphEdge, error)
}

func (m *mockGraphRepo) SyncEdge(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return m.syncEdgeFn(ctx, followerID, followeeID)
}

func (m *mockGraphRepo) AsymmetricEdges(ctx context.Context, limit int) ([]model.GraphEdge, error) {
	return m.asymmetricFn(ctx, limit)
}

type rewriteCall struct {
	postIDs  []int64
	username string
}

type mockPostRepo struct {
	repository.PostRepository
	postIDsFn func(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error)

	rewrites []rewriteCall
}

func (m *mockPostRepo) PostIDsWithRepliesBy(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error) {
	return m.postIDsFn(ctx, authorID, afterPostID, limit)
}

func (m *mockPostRepo) RewriteReplySnapshots(ctx context.Context, postIDs []int64, authorID int64, username string, avatarURL *string) (int64, error) {
	m.rewrites = append(m.rewrites, rewriteCall{postIDs: postIDs, username: username})
	return int64(len(postIDs)), nil
}

func idRange(from, count int) []int64 {
	ids := make([]int64, count)
	for i := range ids {
		ids[i] = int64(from + i)
	}
	return ids
}

func TestHandler_ProfileChanged_RewritesInBatches(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "current"}, nil
		},
	}

	var cursors []int64
	postRepo := &mockPostRepo{
		postIDsFn: func(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error) {
			cursors = append(cursors, afterPostID)
			switch afterPostID {
			case 0:
				return idRange(1, snapshotBatchSize), nil
			case snapshotBatchSize:
				return idRange(snapshotBatchSize+1, 30), nil
			default:
				t.Fatalf("unexpected cursor %d", afterPostID)
				return nil, nil
			}
		},
	}

	h := NewHandler(userRepo, &mockGraphRepo{}, postRepo)

	// The event carries values that were superseded after it was queued.
	event := queue.NewProfileChangedEvent(7, "stale", nil)
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(postRepo.rewrites) != 2 {
		t.Fatalf("rewrite batches = %d, want 2", len(postRepo.rewrites))
	}
	// The cursor advances past the last post of each batch.
	if len(cursors) != 2 || cursors[0] != 0 || cursors[1] != snapshotBatchSize {
		t.Errorf("cursors = %v, want [0 %d]", cursors, snapshotBatchSize)
	}
	// Snapshots are rewritten to the current committed profile, not the
	// values frozen in the event, so the last update wins under reordering.
	for i, call := range postRepo.rewrites {
		if call.username != "current" {
			t.Errorf("batch %d rewritten with username %q, want %q", i, call.username, "current")
		}
	}
}

func TestHandler_ProfileChanged_NoRepliesIsNoop(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "u"}, nil
		},
	}
	postRepo := &mockPostRepo{
		postIDsFn: func(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error) {
			return nil, nil
		},
	}
	h := NewHandler(userRepo, &mockGraphRepo{}, postRepo)

	if err := h.HandleEvent(context.Background(), queue.NewProfileChangedEvent(7, "u", nil)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(postRepo.rewrites) != 0 {
		t.Errorf("rewrite batches = %d, want 0", len(postRepo.rewrites))
	}
}

func TestHandler_ProfileChanged_DeletedUserIsDropped(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return nil, model.ErrUserNotFound
		},
	}
	postRepo := &mockPostRepo{}
	h := NewHandler(userRepo, &mockGraphRepo{}, postRepo)

	// Terminal: the user was deleted after the event was queued. Returning
	// an error would keep the message pending forever; it must be dropped.
	if err := h.HandleEvent(context.Background(), queue.NewProfileChangedEvent(42, "gone", nil)); err != nil {
		t.Fatalf("deleted user must not be retried, got: %v", err)
	}
	if len(postRepo.rewrites) != 0 {
		t.Errorf("rewrite batches = %d, want 0", len(postRepo.rewrites))
	}
}

func TestHandler_ProfileChanged_UserLoadFailurePropagates(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewHandler(userRepo, &mockGraphRepo{}, &mockPostRepo{})

	// The error must surface so the message stays pending and is replayed.
	if err := h.HandleEvent(context.Background(), queue.NewProfileChangedEvent(7, "u", nil)); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestHandler_GraphRepair_RecountsAfterRepair(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{
		syncEdgeFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
			return true, nil
		},
	}
	h := NewHandler(userRepo, graphRepo, &mockPostRepo{})

	if err := h.HandleEvent(context.Background(), queue.NewGraphRepairEvent(1, 2)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(userRepo.recounted) != 2 || userRepo.recounted[0] != 1 || userRepo.recounted[1] != 2 {
		t.Errorf("recounted = %v, want [1 2]", userRepo.recounted)
	}
}

func TestHandler_GraphRepair_AlreadySymmetricSkipsRecount(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{
		syncEdgeFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
			return false, nil
		},
	}
	h := NewHandler(userRepo, graphRepo, &mockPostRepo{})

	if err := h.HandleEvent(context.Background(), queue.NewGraphRepairEvent(1, 2)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(userRepo.recounted) != 0 {
		t.Errorf("recounted = %v, want none", userRepo.recounted)
	}
}

func TestHandler_UnknownEventTypeIsDropped(t *testing.T) {
	h := NewHandler(&mockUserRepo{}, &mockGraphRepo{}, &mockPostRepo{})

	if err := h.HandleEvent(context.Background(), queue.SyncEvent{Type: "mystery"}); err != nil {
		t.Fatalf("unknown event must be dropped without error, got: %v", err)
	}
}

func TestHandler_SweepGraph_RepairsWhatItCan(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{
		asymmetricFn: func(ctx context.Context, limit int) ([]model.GraphEdge, error) {
			return []model.GraphEdge{
				{FollowerID: 1, FolloweeID: 2},
				{FollowerID: 3, FolloweeID: 4},
			}, nil
		},
		syncEdgeFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
			if followerID == 3 {
				return false, errors.New("transient")
			}
			return true, nil
		},
	}
	h := NewHandler(userRepo, graphRepo, &mockPostRepo{})

	// A failed edge is logged and skipped; the sweep itself still succeeds
	// and the next run retries the edge.
	if err := h.SweepGraph(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(userRepo.recounted) != 2 || userRepo.recounted[0] != 1 || userRepo.recounted[1] != 2 {
		t.Errorf("recounted = %v, want [1 2]", userRepo.recounted)
	}
}
