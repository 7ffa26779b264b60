package service

import (
	"context"
	"strconv"

	"threadly/internal/model"
	"threadly/internal/repository"
)

const (
	// DefaultSuggestedLimit matches the product's suggestion widget size.
	DefaultSuggestedLimit = 10
	MaxSuggestedLimit     = 50
)

// UserService handles user profile reads and suggestions.
type UserService struct {
	userRepo  repository.UserRepository
	graphRepo repository.GraphRepository
}

func NewUserService(userRepo repository.UserRepository, graphRepo repository.GraphRepository) *UserService {
	return &UserService{
		userRepo:  userRepo,
		graphRepo: graphRepo,
	}
}

// GetProfile resolves a user by numeric id or username. The query is
// tried as an id first; anything non-numeric is a username lookup.
// A frozen account reads as absent until its owner unfreezes it.
func (s *UserService) GetProfile(ctx context.Context, query string) (*model.User, error) {
	var user *model.User
	var err error
	if id, parseErr := strconv.ParseInt(query, 10, 64); parseErr == nil {
		user, err = s.userRepo.GetByID(ctx, id)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	if user.IsFrozen {
		return nil, model.ErrUserNotFound
	}

	return user, nil
}

// IsFollowing reports whether viewerID currently follows targetID,
// per the followings side of the graph.
func (s *UserService) IsFollowing(ctx context.Context, viewerID, targetID int64) (bool, error) {
	return s.graphRepo.IsFollowing(ctx, viewerID, targetID)
}

// Suggested returns up to limit users the viewer does not already follow.
// Exclusion happens in the query before the limit, so a short result means
// a short candidate pool, not bad luck with sampling.
func (s *UserService) Suggested(ctx context.Context, viewerID int64, limit int) ([]model.UserSummary, error) {
	if limit <= 0 {
		limit = DefaultSuggestedLimit
	}
	if limit > MaxSuggestedLimit {
		limit = MaxSuggestedLimit
	}

	users, err := s.userRepo.Suggested(ctx, viewerID, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.UserSummary{}
	}
	return users, nil
}
