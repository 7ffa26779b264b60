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

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, username, name, avatar_url, bio, is_frozen,
		       follower_count, following_count, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, name, avatar_url, bio, is_frozen,
		       follower_count, following_count, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &u, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// UpdateProfile applies only the provided fields via COALESCE so a nil
// field leaves the stored value alone.
func (r *userRepository) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	query := `
		UPDATE users
		SET name       = COALESCE($2, name),
		    username   = COALESCE($3, username),
		    bio        = COALESCE($4, bio),
		    avatar_url = COALESCE($5, avatar_url),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, username, name, avatar_url, bio, is_frozen,
		          follower_count, following_count, created_at, updated_at
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, userID, req.Name, req.Username, req.Bio, req.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, model.ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &u, nil
}

// Suggested excludes the viewer and already-followed users inside the
// query, before the LIMIT, so a mostly-followed candidate pool cannot
// shrink the result below limit while unfollowed users still exist.
func (r *userRepository) Suggested(ctx context.Context, viewerID int64, limit int) ([]model.UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.name, u.avatar_url
		FROM users u
		WHERE u.id <> $1
		  AND u.is_frozen = FALSE
		  AND NOT EXISTS (
			SELECT 1 FROM user_followings f
			WHERE f.user_id = $1 AND f.target_id = u.id
		  )
		ORDER BY random()
		LIMIT $2
	`

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, query, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggested users: %w", err)
	}

	return users, nil
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	result := make(map[int64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT id, username, name, avatar_url FROM users WHERE id = ANY($1)`

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}

	for _, u := range users {
		result[u.ID] = u
	}

	return result, nil
}

func (r *userRepository) SetFrozen(ctx context.Context, userID int64, frozen bool) error {
	query := `UPDATE users SET is_frozen = $1, updated_at = NOW() WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, frozen, userID)
	if err != nil {
		return fmt.Errorf("failed to set frozen flag: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}

	return nil
}

func (r *userRepository) IncrementFollowerCount(ctx context.Context, userID int64, delta int) error {
	query := `UPDATE users SET follower_count = follower_count + $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment follower count: %w", err)
	}
	return nil
}

func (r *userRepository) IncrementFollowingCount(ctx context.Context, userID int64, delta int) error {
	query := `UPDATE users SET following_count = following_count + $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment following count: %w", err)
	}
	return nil
}

// RecountFollows re-derives both counters from the graph tables. Used by
// the reconciliation path so repaired edges also repair the counters.
func (r *userRepository) RecountFollows(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET follower_count  = (SELECT COUNT(*) FROM user_followers WHERE user_id = $1),
		    following_count = (SELECT COUNT(*) FROM user_followings WHERE user_id = $1)
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to recount follows: %w", err)
	}
	return nil
}
