package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"threadly/internal/model"
	"threadly/internal/repository"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 50
)

// FeedService assembles the home feed at read time: resolve followings,
// then one keyset-paginated query over their posts. There is no
// precomputed per-user feed; a follow or unfollow changes the next read
// immediately, at the cost of a wider query per request.
type FeedService struct {
	userRepo  repository.UserRepository
	graphRepo repository.GraphRepository
	postRepo  repository.PostRepository
}

func NewFeedService(
	userRepo repository.UserRepository,
	graphRepo repository.GraphRepository,
	postRepo repository.PostRepository,
) *FeedService {
	return &FeedService{
		userRepo:  userRepo,
		graphRepo: graphRepo,
		postRepo:  postRepo,
	}
}

// GetFeed returns posts authored by users the viewer follows, newest
// first. Unknown viewer is an error; a viewer who follows nobody gets an
// empty feed, not an error.
func (s *FeedService) GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	if _, err := s.userRepo.GetByID(ctx, viewerID); err != nil {
		return nil, err
	}

	followeeIDs, err := s.graphRepo.FolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if len(followeeIDs) == 0 {
		return &model.FeedResponse{Posts: []model.Post{}, HasMore: false}, nil
	}

	postCursor, err := parsePostCursor(cursor)
	if err != nil {
		return nil, err
	}

	// Fetch limit+1 to learn whether another page exists.
	posts, err := s.postRepo.ListByAuthors(ctx, followeeIDs, postCursor, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	posts = s.hydrate(ctx, viewerID, posts)

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

// hydrate attaches author summaries and the viewer's follow/like status
// with batch queries. Enrichment failures degrade gracefully: the posts
// themselves still come back.
func (s *FeedService) hydrate(ctx context.Context, viewerID int64, posts []model.Post) []model.Post {
	if len(posts) == 0 {
		return []model.Post{}
	}

	authorIDs := make([]int64, 0, len(posts))
	seen := make(map[int64]bool, len(posts))
	postIDs := make([]int64, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	summaries, err := s.userRepo.GetSummaries(ctx, authorIDs)
	if err != nil {
		log.Printf("[FeedService] Author summaries FAILED: err=%v", err)
		summaries = map[int64]model.UserSummary{}
	}

	followMap, err := s.graphRepo.CheckFollows(ctx, viewerID, authorIDs)
	if err != nil {
		log.Printf("[FeedService] Follow status check FAILED: viewer=%d err=%v", viewerID, err)
		followMap = map[int64]bool{}
	}

	likeMap, err := s.postRepo.CheckLikes(ctx, viewerID, postIDs)
	if err != nil {
		log.Printf("[FeedService] Like status check FAILED: viewer=%d err=%v", viewerID, err)
		likeMap = map[int64]bool{}
	}

	for i := range posts {
		if summary, ok := summaries[posts[i].AuthorID]; ok {
			summary.IsFollowing = followMap[summary.ID]
			posts[i].Author = &summary
		}
		posts[i].IsLiked = likeMap[posts[i].ID]
	}

	return posts
}

// encodePostCursor packs a keyset position into an opaque page token.
// Microsecond precision matches the timestamp column.
func encodePostCursor(createdAt time.Time, id int64) string {
	return fmt.Sprintf("%d_%d", createdAt.UTC().UnixMicro(), id)
}

// parsePostCursor decodes a page token produced by encodePostCursor.
// Nil or empty means "from the top".
func parsePostCursor(raw *string) (*repository.PostCursor, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	parts := strings.SplitN(*raw, "_", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCursor, *raw)
	}

	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCursor, *raw)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCursor, *raw)
	}

	return &repository.PostCursor{
		CreatedAt: time.UnixMicro(micros).UTC(),
		ID:        id,
	}, nil
}
