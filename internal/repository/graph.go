package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"threadly/internal/model"
)

// graphRepository persists the follow graph as two denormalized sides:
//
//	user_followings(user_id, target_id)  - who user_id follows
//	user_followers(user_id, follower_id) - who follows user_id
//
// Both are true sets (composite primary keys, ON CONFLICT DO NOTHING).
// The two tables are mutated by independent statements with no shared
// transaction; the follow graph service owns the saga that keeps them
// symmetric, with SyncEdge/AsymmetricEdges as the repair primitives.
type graphRepository struct {
	db *sqlx.DB
}

func NewGraphRepository(db *sqlx.DB) GraphRepository {
	return &graphRepository{db: db}
}

func (r *graphRepository) AddFollowing(ctx context.Context, userID, targetID int64) (bool, error) {
	query := `
		INSERT INTO user_followings (user_id, target_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, target_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to add following: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *graphRepository) RemoveFollowing(ctx context.Context, userID, targetID int64) (bool, error) {
	query := `DELETE FROM user_followings WHERE user_id = $1 AND target_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to remove following: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *graphRepository) AddFollower(ctx context.Context, userID, followerID int64) (bool, error) {
	query := `
		INSERT INTO user_followers (user_id, follower_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, follower_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, userID, followerID)
	if err != nil {
		return false, fmt.Errorf("failed to add follower: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *graphRepository) RemoveFollower(ctx context.Context, userID, followerID int64) (bool, error) {
	query := `DELETE FROM user_followers WHERE user_id = $1 AND follower_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, followerID)
	if err != nil {
		return false, fmt.Errorf("failed to remove follower: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *graphRepository) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_followings WHERE user_id = $1 AND target_id = $2)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to check following: %w", err)
	}
	return exists, nil
}

func (r *graphRepository) FolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT target_id FROM user_followings WHERE user_id = $1`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followee ids: %w", err)
	}
	return ids, nil
}

func (r *graphRepository) FollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT follower_id FROM user_followers WHERE user_id = $1`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

func (r *graphRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if len(followeeIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT target_id FROM user_followings WHERE user_id = $1 AND target_id = ANY($2)`
	var followedIDs []int64
	err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(followeeIDs))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}

	return result, nil
}

// SyncEdge makes the followers side agree with the followings side for a
// single edge. The followings side is written first by the service and is
// therefore the source of truth.
func (r *graphRepository) SyncEdge(ctx context.Context, followerID, followeeID int64) (bool, error) {
	following, err := r.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return false, err
	}

	if following {
		return r.AddFollower(ctx, followeeID, followerID)
	}
	return r.RemoveFollower(ctx, followeeID, followerID)
}

// AsymmetricEdges finds edges present on exactly one side. A full outer
// join over the two tables surfaces both failure modes: a follow whose
// second write never landed, and a stale follower row after an unfollow.
func (r *graphRepository) AsymmetricEdges(ctx context.Context, limit int) ([]model.GraphEdge, error) {
	query := `
		SELECT COALESCE(fg.user_id, fr.follower_id)  AS follower_id,
		       COALESCE(fg.target_id, fr.user_id)    AS followee_id
		FROM user_followings fg
		FULL OUTER JOIN user_followers fr
		  ON fr.user_id = fg.target_id AND fr.follower_id = fg.user_id
		WHERE fg.user_id IS NULL OR fr.user_id IS NULL
		LIMIT $1
	`

	var edges []model.GraphEdge
	err := r.db.SelectContext(ctx, &edges, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find asymmetric edges: %w", err)
	}

	return edges, nil
}
