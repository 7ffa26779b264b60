package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"threadly/internal/model"
	"threadly/internal/queue"
	"threadly/internal/repository"
)

const (
	// snapshotBatchSize is how many posts a single rewrite statement covers.
	snapshotBatchSize = 100

	// sweepBatchSize bounds how many asymmetric edges one sweep pass repairs.
	sweepBatchSize = 500
)

// Handler routes sync events to their processors. Every processor is
// idempotent: replaying a half-finished event converges to the same state.
type Handler struct {
	userRepo  repository.UserRepository
	graphRepo repository.GraphRepository
	postRepo  repository.PostRepository
}

// NewHandler creates a new event handler.
func NewHandler(userRepo repository.UserRepository, graphRepo repository.GraphRepository, postRepo repository.PostRepository) *Handler {
	return &Handler{
		userRepo:  userRepo,
		graphRepo: graphRepo,
		postRepo:  postRepo,
	}
}

// HandleEvent dispatches an event to the right processor.
func (h *Handler) HandleEvent(ctx context.Context, event queue.SyncEvent) error {
	switch event.Type {
	case queue.EventProfileChanged:
		return h.handleProfileChanged(ctx, event)
	case queue.EventGraphRepair:
		return h.handleGraphRepair(ctx, event)
	default:
		// Unknown types are acked and dropped, not retried forever.
		log.Printf("[Handler] Unknown event type: %s (skipping)", event.Type)
		return nil
	}
}

// handleProfileChanged rewrites the author snapshot cached on every reply the
// user ever wrote. Works in post-id-ordered batches so an interrupted run
// resumes from wherever it stopped: already-rewritten batches match the new
// values and rewriting them again changes nothing.
func (h *Handler) handleProfileChanged(ctx context.Context, event queue.SyncEvent) error {
	startTime := time.Now()
	log.Printf("[Handler] ProfileChanged: user=%d username=%s", event.UserID, event.Username)

	// Events can arrive out of order or long after the update. Rewrite to
	// the user's current committed profile, not the values frozen in the
	// event, so the last update always wins.
	user, err := h.userRepo.GetByID(ctx, event.UserID)
	if err != nil {
		// A user deleted after the event was queued has no profile left
		// to propagate. The event is terminal: retrying can never succeed,
		// so it must not stay pending.
		if errors.Is(err, model.ErrUserNotFound) {
			log.Printf("[Handler] ProfileChanged: user=%d no longer exists (dropping)", event.UserID)
			return nil
		}
		return fmt.Errorf("load user %d for snapshot rewrite: %w", event.UserID, err)
	}

	var totalRewritten int64
	var afterPostID int64

	for {
		postIDs, err := h.postRepo.PostIDsWithRepliesBy(ctx, event.UserID, afterPostID, snapshotBatchSize)
		if err != nil {
			return fmt.Errorf("page posts with replies by user %d: %w", event.UserID, err)
		}
		if len(postIDs) == 0 {
			break
		}

		rewritten, err := h.postRepo.RewriteReplySnapshots(ctx, postIDs, event.UserID, user.Username, user.AvatarURL)
		if err != nil {
			return fmt.Errorf("rewrite reply snapshots for user %d: %w", event.UserID, err)
		}
		totalRewritten += rewritten

		afterPostID = postIDs[len(postIDs)-1]

		if len(postIDs) < snapshotBatchSize {
			break
		}
	}

	log.Printf("[Handler] ProfileChanged OK: user=%d replies=%d duration=%v",
		event.UserID, totalRewritten, time.Since(startTime))
	return nil
}

// handleGraphRepair re-derives one follow edge's followers side from the
// followings side, then recounts both users' follow counters.
func (h *Handler) handleGraphRepair(ctx context.Context, event queue.SyncEvent) error {
	startTime := time.Now()
	log.Printf("[Handler] GraphRepair: follower=%d followee=%d", event.FollowerID, event.FolloweeID)

	repaired, err := h.graphRepo.SyncEdge(ctx, event.FollowerID, event.FolloweeID)
	if err != nil {
		return fmt.Errorf("sync edge %d->%d: %w", event.FollowerID, event.FolloweeID, err)
	}

	if repaired {
		if err := h.userRepo.RecountFollows(ctx, event.FollowerID); err != nil {
			return fmt.Errorf("recount follows for user %d: %w", event.FollowerID, err)
		}
		if err := h.userRepo.RecountFollows(ctx, event.FolloweeID); err != nil {
			return fmt.Errorf("recount follows for user %d: %w", event.FolloweeID, err)
		}
	}

	log.Printf("[Handler] GraphRepair OK: follower=%d followee=%d repaired=%v duration=%v",
		event.FollowerID, event.FolloweeID, repaired, time.Since(startTime))
	return nil
}

// SweepGraph repairs every edge where the two sides of the graph disagree.
// This is the safety net behind the repair events: it catches edges whose
// event was never published (process died between the write and the XADD).
func (h *Handler) SweepGraph(ctx context.Context) error {
	startTime := time.Now()

	edges, err := h.graphRepo.AsymmetricEdges(ctx, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("list asymmetric edges: %w", err)
	}

	if len(edges) == 0 {
		log.Printf("[Handler] Sweep OK: graph symmetric, duration=%v", time.Since(startTime))
		return nil
	}

	log.Printf("[Handler] Sweep: found %d asymmetric edges", len(edges))

	var repaired int
	for _, edge := range edges {
		if _, err := h.graphRepo.SyncEdge(ctx, edge.FollowerID, edge.FolloweeID); err != nil {
			log.Printf("[Handler] Sweep: sync edge %d->%d FAILED: %v", edge.FollowerID, edge.FolloweeID, err)
			continue
		}
		repaired++

		if err := h.userRepo.RecountFollows(ctx, edge.FollowerID); err != nil {
			log.Printf("[Handler] Sweep: recount user %d FAILED: %v", edge.FollowerID, err)
		}
		if err := h.userRepo.RecountFollows(ctx, edge.FolloweeID); err != nil {
			log.Printf("[Handler] Sweep: recount user %d FAILED: %v", edge.FolloweeID, err)
		}
	}

	log.Printf("[Handler] Sweep OK: repaired=%d/%d duration=%v", repaired, len(edges), time.Since(startTime))
	return nil
}
