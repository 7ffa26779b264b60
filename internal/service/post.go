package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"threadly/internal/model"
	"threadly/internal/repository"
)

// PostService handles post CRUD, likes, and replies. Replies embed a
// snapshot of the author's profile at write time; the snapshot is cheap to
// read and repaired asynchronously when the profile changes.
type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	graphRepo repository.GraphRepository
	db        *sqlx.DB
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	graphRepo repository.GraphRepository,
	db *sqlx.DB,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		graphRepo: graphRepo,
		db:        db,
	}
}

func (s *PostService) CreatePost(ctx context.Context, authorID int64, req *model.CreatePostRequest) (*model.Post, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, model.ErrTextRequired
	}
	if len(text) > model.MaxPostTextLength {
		return nil, model.ErrTextTooLong
	}

	post, err := s.postRepo.Create(ctx, authorID, text, req.ImgURL)
	if err != nil {
		return nil, err
	}

	log.Printf("[PostService] Created post: id=%d author=%d", post.ID, authorID)
	return post, nil
}

// GetPost returns a post with its replies and author summary. The viewer,
// when known, gets their like and follow status filled in.
func (s *PostService) GetPost(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	replies, err := s.postRepo.Replies(ctx, postID)
	if err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []model.Reply{}
	}
	post.Replies = replies

	s.attachAuthor(ctx, post, viewerID)

	if viewerID != nil {
		likeMap, err := s.postRepo.CheckLikes(ctx, *viewerID, []int64{post.ID})
		if err != nil {
			log.Printf("[PostService] Like status check FAILED: viewer=%d post=%d err=%v", *viewerID, post.ID, err)
		} else {
			post.IsLiked = likeMap[post.ID]
		}
	}

	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, postID, actorID int64) error {
	if err := s.postRepo.Delete(ctx, postID, actorID); err != nil {
		return err
	}
	log.Printf("[PostService] Deleted post: id=%d author=%d", postID, actorID)
	return nil
}

// LikePost records a like and bumps the counter in one transaction.
// Liking twice is a conflict, matching the toggle semantics clients expect.
func (s *PostService) LikePost(ctx context.Context, postID, userID int64) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.postRepo.Like(ctx, tx, postID, userID)
	if err != nil {
		return err
	}
	if !inserted {
		return model.ErrAlreadyLiked
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *PostService) UnlikePost(ctx context.Context, postID, userID int64) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := s.postRepo.Unlike(ctx, tx, postID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrNotLiked
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// AddReply appends a reply carrying a snapshot of the author's current
// username and avatar. The snapshot is read immediately before the insert,
// so a concurrent profile update either lands in the snapshot or is
// repaired by the sync worker triggered by that update.
func (s *PostService) AddReply(ctx context.Context, postID, authorID int64, req *model.CreateReplyRequest) (*model.Reply, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, model.ErrTextRequired
	}
	if len(text) > model.MaxPostTextLength {
		return nil, model.ErrTextTooLong
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	reply := &model.Reply{
		PostID:          postID,
		AuthorID:        author.ID,
		AuthorUsername:  author.Username,
		AuthorAvatarURL: author.AvatarURL,
		Text:            text,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.AddReply(ctx, tx, reply); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return reply, nil
}

// ListUserPosts returns one user's posts, newest first, with the same
// keyset cursor as the feed.
func (s *PostService) ListUserPosts(ctx context.Context, authorID int64, cursor *string, limit int, viewerID *int64) (*model.FeedResponse, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}

	postCursor, err := parsePostCursor(cursor)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.ListByAuthor(ctx, authorID, postCursor, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	if posts == nil {
		posts = []model.Post{}
	}

	for i := range posts {
		s.attachAuthor(ctx, &posts[i], viewerID)
	}

	if viewerID != nil && len(posts) > 0 {
		postIDs := make([]int64, len(posts))
		for i, p := range posts {
			postIDs[i] = p.ID
		}
		likeMap, err := s.postRepo.CheckLikes(ctx, *viewerID, postIDs)
		if err != nil {
			log.Printf("[PostService] Like status check FAILED: viewer=%d err=%v", *viewerID, err)
		} else {
			for i := range posts {
				posts[i].IsLiked = likeMap[posts[i].ID]
			}
		}
	}

	var nextCursor *string
	if hasMore && len(posts) > 0 {
		last := posts[len(posts)-1]
		c := encodePostCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	return &model.FeedResponse{
		Posts:      posts,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// attachAuthor fills in the post's author summary, best effort.
func (s *PostService) attachAuthor(ctx context.Context, post *model.Post, viewerID *int64) {
	summaries, err := s.userRepo.GetSummaries(ctx, []int64{post.AuthorID})
	if err != nil {
		log.Printf("[PostService] Author summary FAILED: post=%d err=%v", post.ID, err)
		return
	}

	summary, ok := summaries[post.AuthorID]
	if !ok {
		return
	}

	if viewerID != nil && *viewerID != post.AuthorID {
		following, err := s.graphRepo.IsFollowing(ctx, *viewerID, post.AuthorID)
		if err != nil {
			log.Printf("[PostService] Follow status check FAILED: viewer=%d author=%d err=%v", *viewerID, post.AuthorID, err)
		} else {
			summary.IsFollowing = following
		}
	}

	post.Author = &summary
}
