package service

import (
	"context"
	"errors"
	"testing"

	"threadly/internal/model"
	"threadly/internal/queue"
)

func TestGraphService_Follow_Success(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{}
	pub := &mockPublisher{}
	svc := NewGraphService(graphRepo, userRepo, pub)

	result, err := svc.Follow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.Following || !result.Changed {
		t.Errorf("result = %+v, want following=true changed=true", result)
	}
	if graphRepo.addFollowerCalls != 1 {
		t.Errorf("follower-side writes = %d, want 1", graphRepo.addFollowerCalls)
	}
	if len(userRepo.followingDeltas) != 1 || userRepo.followingDeltas[0] != 1 {
		t.Errorf("following deltas = %v, want [1]", userRepo.followingDeltas)
	}
	if len(userRepo.followerDeltas) != 1 || userRepo.followerDeltas[0] != 1 {
		t.Errorf("follower deltas = %v, want [1]", userRepo.followerDeltas)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events, want 0", len(pub.events))
	}
}

func TestGraphService_Follow_SelfRejected(t *testing.T) {
	svc := NewGraphService(&mockGraphRepo{}, &mockUserRepo{}, &mockPublisher{})

	_, err := svc.Follow(context.Background(), 7, 7)
	if !errors.Is(err, model.ErrCannotFollowSelf) {
		t.Fatalf("err = %v, want ErrCannotFollowSelf", err)
	}
}

func TestGraphService_Follow_UnknownTarget(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return nil, model.ErrUserNotFound
		},
	}
	svc := NewGraphService(&mockGraphRepo{}, userRepo, &mockPublisher{})

	_, err := svc.Follow(context.Background(), 1, 99)
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestGraphService_Follow_Idempotent(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{
		addFollowingFn: func(ctx context.Context, userID, targetID int64) (bool, error) {
			return false, nil // already a member
		},
	}
	svc := NewGraphService(graphRepo, userRepo, &mockPublisher{})

	result, err := svc.Follow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.Following || result.Changed {
		t.Errorf("result = %+v, want following=true changed=false", result)
	}
	// No membership change means no counter bump and no mirror write.
	if len(userRepo.followingDeltas) != 0 {
		t.Errorf("following deltas = %v, want none", userRepo.followingDeltas)
	}
	if graphRepo.addFollowerCalls != 0 {
		t.Errorf("follower-side writes = %d, want 0", graphRepo.addFollowerCalls)
	}
}

func TestGraphService_Follow_MirrorRetriesThenSucceeds(t *testing.T) {
	userRepo := &mockUserRepo{}
	attempts := 0
	graphRepo := &mockGraphRepo{
		addFollowerFn: func(ctx context.Context, userID, followerID int64) (bool, error) {
			attempts++
			if attempts < 2 {
				return false, errors.New("transient write failure")
			}
			return true, nil
		},
	}
	pub := &mockPublisher{}
	svc := NewGraphService(graphRepo, userRepo, pub)

	result, err := svc.Follow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Changed {
		t.Error("expected changed=true")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d repair events, want 0 after recovery", len(pub.events))
	}
}

func TestGraphService_Follow_MirrorExhaustedPublishesRepair(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{
		addFollowerFn: func(ctx context.Context, userID, followerID int64) (bool, error) {
			return false, errors.New("followers store down")
		},
	}
	pub := &mockPublisher{}
	svc := NewGraphService(graphRepo, userRepo, pub)

	// The first write landed, so the caller still gets success.
	result, err := svc.Follow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Following || !result.Changed {
		t.Errorf("result = %+v, want following=true changed=true", result)
	}

	if graphRepo.addFollowerCalls != followerWriteAttempts {
		t.Errorf("follower-side attempts = %d, want %d", graphRepo.addFollowerCalls, followerWriteAttempts)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}

	ev := pub.events[0]
	if ev.Type != queue.EventGraphRepair {
		t.Errorf("event type = %q, want %q", ev.Type, queue.EventGraphRepair)
	}
	if ev.FollowerID != 1 || ev.FolloweeID != 2 {
		t.Errorf("event edge = %d->%d, want 1->2", ev.FollowerID, ev.FolloweeID)
	}

	// The follower counter must not move when the mirror write never landed.
	if len(userRepo.followerDeltas) != 0 {
		t.Errorf("follower deltas = %v, want none", userRepo.followerDeltas)
	}
}

func TestGraphService_Follow_MirrorSurvivesRequestCancellation(t *testing.T) {
	userRepo := &mockUserRepo{}
	var mirrorCtxErr error
	graphRepo := &mockGraphRepo{
		addFollowerFn: func(ctx context.Context, userID, followerID int64) (bool, error) {
			mirrorCtxErr = ctx.Err()
			return true, nil
		},
	}
	svc := NewGraphService(graphRepo, userRepo, &mockPublisher{})

	// The client hangs up after the followings write commits.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Follow(ctx, 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Changed {
		t.Error("expected changed=true")
	}

	if graphRepo.addFollowerCalls != 1 {
		t.Errorf("follower-side writes = %d, want 1", graphRepo.addFollowerCalls)
	}
	// The mirror write runs detached from the request's cancellation.
	if mirrorCtxErr != nil {
		t.Errorf("mirror context error = %v, want nil", mirrorCtxErr)
	}
	if len(userRepo.followerDeltas) != 1 || userRepo.followerDeltas[0] != 1 {
		t.Errorf("follower deltas = %v, want [1]", userRepo.followerDeltas)
	}
}

func TestGraphService_Follow_RepairPublishSurvivesRequestCancellation(t *testing.T) {
	graphRepo := &mockGraphRepo{
		addFollowerFn: func(ctx context.Context, userID, followerID int64) (bool, error) {
			return false, errors.New("followers store down")
		},
	}
	pub := &mockPublisher{}
	svc := NewGraphService(graphRepo, &mockUserRepo{}, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Follow(ctx, 1, 2); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if graphRepo.addFollowerCalls != followerWriteAttempts {
		t.Errorf("follower-side attempts = %d, want %d", graphRepo.addFollowerCalls, followerWriteAttempts)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
}

func TestGraphService_Unfollow_Success(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{}
	svc := NewGraphService(graphRepo, userRepo, &mockPublisher{})

	result, err := svc.Unfollow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Following || !result.Changed {
		t.Errorf("result = %+v, want following=false changed=true", result)
	}
	if graphRepo.removeFollowerCalls != 1 {
		t.Errorf("follower-side removes = %d, want 1", graphRepo.removeFollowerCalls)
	}
	if len(userRepo.followingDeltas) != 1 || userRepo.followingDeltas[0] != -1 {
		t.Errorf("following deltas = %v, want [-1]", userRepo.followingDeltas)
	}
}

func TestGraphService_Unfollow_NotFollowingIsNoop(t *testing.T) {
	userRepo := &mockUserRepo{}
	graphRepo := &mockGraphRepo{
		removeFollowingFn: func(ctx context.Context, userID, targetID int64) (bool, error) {
			return false, nil
		},
	}
	svc := NewGraphService(graphRepo, userRepo, &mockPublisher{})

	result, err := svc.Unfollow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Following || result.Changed {
		t.Errorf("result = %+v, want following=false changed=false", result)
	}
	if graphRepo.removeFollowerCalls != 0 {
		t.Errorf("follower-side removes = %d, want 0", graphRepo.removeFollowerCalls)
	}
}
