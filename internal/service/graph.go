package service

import (
	"context"
	"log"
	"time"

	"threadly/internal/model"
	"threadly/internal/queue"
	"threadly/internal/repository"
)

const (
	// followerWriteAttempts bounds the retry loop on the followers-side
	// write. After exhaustion the edge is handed to the repair worker.
	followerWriteAttempts = 3
	followerWriteBase     = 100 * time.Millisecond
	followerWriteMaxDelay = 2 * time.Second
)

// GraphService owns the two-sided follow write. The followings side is the
// source of truth and is written first; the followers side mirrors it with
// bounded retries. A mirror write that never lands does not fail the
// request: the edge is queued for async repair, and the periodic sweep
// backstops even a lost repair event.
type GraphService struct {
	graphRepo repository.GraphRepository
	userRepo  repository.UserRepository
	publisher queue.Publisher
}

func NewGraphService(
	graphRepo repository.GraphRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
) *GraphService {
	return &GraphService{
		graphRepo: graphRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// Follow adds targetID to actorID's followings. Following an already
// followed user is a no-op, not an error: the result reports whether
// membership changed.
func (s *GraphService) Follow(ctx context.Context, actorID, targetID int64) (*model.FollowResult, error) {
	if actorID == targetID {
		return nil, model.ErrCannotFollowSelf
	}

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	changed, err := s.graphRepo.AddFollowing(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	if !changed {
		return &model.FollowResult{Following: true, Changed: false}, nil
	}

	// Counters derive from set writes that actually changed membership.
	// A failed bump is logged, not surfaced: RecountFollows re-derives
	// counters whenever the edge passes through repair.
	if err := s.userRepo.IncrementFollowingCount(ctx, actorID, 1); err != nil {
		log.Printf("[GraphService] Increment following count FAILED: user=%d err=%v", actorID, err)
	}

	s.mirrorFollowerSide(ctx, actorID, targetID, true)

	return &model.FollowResult{Following: true, Changed: true}, nil
}

// Unfollow removes targetID from actorID's followings. Unfollowing a user
// not currently followed is a no-op.
func (s *GraphService) Unfollow(ctx context.Context, actorID, targetID int64) (*model.FollowResult, error) {
	if actorID == targetID {
		return nil, model.ErrCannotFollowSelf
	}

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	changed, err := s.graphRepo.RemoveFollowing(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	if !changed {
		return &model.FollowResult{Following: false, Changed: false}, nil
	}

	if err := s.userRepo.IncrementFollowingCount(ctx, actorID, -1); err != nil {
		log.Printf("[GraphService] Decrement following count FAILED: user=%d err=%v", actorID, err)
	}

	s.mirrorFollowerSide(ctx, actorID, targetID, false)

	return &model.FollowResult{Following: false, Changed: true}, nil
}

// mirrorFollowerSide applies the followers-side write that mirrors a
// committed followings-side write, retrying with exponential backoff. On
// exhaustion it publishes a repair event instead of failing: the followings
// write already succeeded and must not be rolled back.
func (s *GraphService) mirrorFollowerSide(ctx context.Context, actorID, targetID int64, follow bool) {
	// The followings side is already committed. Its mirror and the repair
	// publish must outlive the request: a client hanging up mid-follow
	// must not leave the edge asymmetric until the sweep.
	ctx = context.WithoutCancel(ctx)

	delay := followerWriteBase

	for attempt := 1; attempt <= followerWriteAttempts; attempt++ {
		var changed bool
		var err error
		if follow {
			changed, err = s.graphRepo.AddFollower(ctx, targetID, actorID)
		} else {
			changed, err = s.graphRepo.RemoveFollower(ctx, targetID, actorID)
		}

		if err == nil {
			if changed {
				delta := 1
				if !follow {
					delta = -1
				}
				if err := s.userRepo.IncrementFollowerCount(ctx, targetID, delta); err != nil {
					log.Printf("[GraphService] Adjust follower count FAILED: user=%d delta=%d err=%v", targetID, delta, err)
				}
			}
			return
		}

		log.Printf("[GraphService] Follower-side write FAILED: actor=%d target=%d follow=%v attempt=%d/%d err=%v",
			actorID, targetID, follow, attempt, followerWriteAttempts, err)

		if attempt == followerWriteAttempts {
			break
		}

		time.Sleep(delay)

		delay *= 2
		if delay > followerWriteMaxDelay {
			delay = followerWriteMaxDelay
		}
	}

	s.publishRepair(ctx, actorID, targetID)
}

// publishRepair queues the edge for async reconciliation. A failed publish
// is only logged: the periodic symmetry sweep will find the edge anyway.
func (s *GraphService) publishRepair(ctx context.Context, actorID, targetID int64) {
	if s.publisher == nil {
		return
	}

	event := queue.NewGraphRepairEvent(actorID, targetID)
	msgID, err := s.publisher.Publish(ctx, queue.StreamSync, event)
	if err != nil {
		log.Printf("[GraphService] Publish GraphRepair FAILED: follower=%d followee=%d err=%v (sweep will catch it)",
			actorID, targetID, err)
		return
	}

	log.Printf("[GraphService] Published GraphRepair: follower=%d followee=%d msgID=%s", actorID, targetID, msgID)
}
