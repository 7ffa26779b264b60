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

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, authorID int64, text string, imgURL *string) (*model.Post, error) {
	query := `
		INSERT INTO posts (author_id, text, img_url, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, author_id, text, img_url, like_count, reply_count, created_at
	`

	var p model.Post
	err := r.db.GetContext(ctx, &p, query, authorID, text, imgURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return &p, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	query := `
		SELECT id, author_id, text, img_url, like_count, reply_count, created_at
		FROM posts
		WHERE id = $1
	`

	var p model.Post
	err := r.db.GetContext(ctx, &p, query, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &p, nil
}

func (r *postRepository) Delete(ctx context.Context, postID, authorID int64) error {
	query := `DELETE FROM posts WHERE id = $1 AND author_id = $2`
	result, err := r.db.ExecContext(ctx, query, postID, authorID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish missing from not-owned for the handler.
		exists, err := r.Exists(ctx, postID)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrPostNotFound
		}
		return model.ErrNotPostOwner
	}

	return nil
}

func (r *postRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, postID)
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}

func (r *postRepository) Like(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	query := `
		INSERT INTO post_likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to like post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *postRepository) Unlike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	query := `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`
	result, err := tx.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *postRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	query := `UPDATE posts SET like_count = like_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, postID)
	if err != nil {
		return fmt.Errorf("failed to increment like count: %w", err)
	}
	return nil
}

func (r *postRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if len(postIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT post_id FROM post_likes WHERE user_id = $1 AND post_id = ANY($2)`
	var likedIDs []int64
	err := r.db.SelectContext(ctx, &likedIDs, query, userID, pq.Array(postIDs))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check likes: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range postIDs {
		result[id] = false
	}
	for _, id := range likedIDs {
		result[id] = true
	}

	return result, nil
}

func (r *postRepository) AddReply(ctx context.Context, tx *sqlx.Tx, reply *model.Reply) error {
	query := `
		INSERT INTO post_replies (post_id, author_id, author_username, author_avatar_url, text, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	row := tx.QueryRowxContext(ctx, query,
		reply.PostID,
		reply.AuthorID,
		reply.AuthorUsername,
		reply.AuthorAvatarURL,
		reply.Text,
	)
	if err := row.Scan(&reply.ID, &reply.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert reply: %w", err)
	}

	countQuery := `UPDATE posts SET reply_count = reply_count + 1 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, countQuery, reply.PostID); err != nil {
		return fmt.Errorf("failed to increment reply count: %w", err)
	}

	return nil
}

func (r *postRepository) Replies(ctx context.Context, postID int64) ([]model.Reply, error) {
	query := `
		SELECT id, post_id, author_id, author_username, author_avatar_url, text, created_at
		FROM post_replies
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC
	`

	var replies []model.Reply
	err := r.db.SelectContext(ctx, &replies, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get replies: %w", err)
	}

	return replies, nil
}

// ListByAuthors is the feed query: fan-out-on-read over the author set.
// Keyset pagination on (created_at DESC, id DESC); we fetch limit rows and
// let the service decide hasMore from the row count.
func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []int64, cursor *PostCursor, limit int) ([]model.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, author_id, text, img_url, like_count, reply_count, created_at
			FROM posts
			WHERE author_id = ANY($1)
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		args = []interface{}{pq.Array(authorIDs), limit}
	} else {
		query = `
			SELECT id, author_id, text, img_url, like_count, reply_count, created_at
			FROM posts
			WHERE author_id = ANY($1)
			  AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`
		args = []interface{}{pq.Array(authorIDs), cursor.CreatedAt, cursor.ID, limit}
	}

	var posts []model.Post
	err := r.db.SelectContext(ctx, &posts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by authors: %w", err)
	}

	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID int64, cursor *PostCursor, limit int) ([]model.Post, error) {
	return r.ListByAuthors(ctx, []int64{authorID}, cursor, limit)
}

func (r *postRepository) PostIDsWithRepliesBy(ctx context.Context, authorID, afterPostID int64, limit int) ([]int64, error) {
	query := `
		SELECT DISTINCT post_id
		FROM post_replies
		WHERE author_id = $1 AND post_id > $2
		ORDER BY post_id ASC
		LIMIT $3
	`

	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, authorID, afterPostID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts with replies: %w", err)
	}

	return ids, nil
}

func (r *postRepository) RewriteReplySnapshots(ctx context.Context, postIDs []int64, authorID int64, username string, avatarURL *string) (int64, error) {
	if len(postIDs) == 0 {
		return 0, nil
	}

	query := `
		UPDATE post_replies
		SET author_username = $3, author_avatar_url = $4
		WHERE post_id = ANY($1) AND author_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, pq.Array(postIDs), authorID, username, avatarURL)
	if err != nil {
		return 0, fmt.Errorf("failed to rewrite reply snapshots: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}
