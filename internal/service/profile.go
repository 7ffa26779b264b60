package service

import (
	"context"
	"log"
	"strings"

	"threadly/internal/model"
	"threadly/internal/queue"
	"threadly/internal/repository"
)

// ProfileService handles profile mutations. The user row is the source of
// truth for identity fields; reply snapshots caching those fields are
// reconciled asynchronously, so an update returns as soon as the row
// commits.
type ProfileService struct {
	userRepo  repository.UserRepository
	publisher queue.Publisher
}

func NewProfileService(userRepo repository.UserRepository, publisher queue.Publisher) *ProfileService {
	return &ProfileService{
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// UpdateProfile applies the non-nil fields of req to the user row and, when
// a snapshot-cached field (username, avatar) changed, publishes a
// profile_changed event after the commit. The request never waits for
// snapshot propagation.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if trimmed == "" {
			return nil, model.ErrUsernameInvalid
		}
		req.Username = &trimmed
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	// Only username and avatar are embedded in reply snapshots; other
	// fields need no propagation.
	if req.Username != nil || req.AvatarURL != nil {
		s.publishProfileChanged(ctx, user)
	}

	return user, nil
}

// FreezeAccount hides the user's account. While frozen, the profile reads
// as not found and the user is excluded from suggestions. Messages and
// the follow graph are untouched; the flag is reversible.
func (s *ProfileService) FreezeAccount(ctx context.Context, userID int64) error {
	if err := s.userRepo.SetFrozen(ctx, userID, true); err != nil {
		return err
	}

	log.Printf("[ProfileService] Account frozen: user=%d", userID)
	return nil
}

// publishProfileChanged queues the snapshot rewrite. A failed publish is
// logged, not surfaced: the row is already committed and the next
// successful update of the same fields re-triggers propagation.
func (s *ProfileService) publishProfileChanged(ctx context.Context, user *model.User) {
	if s.publisher == nil {
		return
	}

	event := queue.NewProfileChangedEvent(user.ID, user.Username, user.AvatarURL)
	msgID, err := s.publisher.Publish(ctx, queue.StreamSync, event)
	if err != nil {
		log.Printf("[ProfileService] Publish ProfileChanged FAILED: user=%d err=%v", user.ID, err)
		return
	}

	log.Printf("[ProfileService] Published ProfileChanged: user=%d username=%s msgID=%s",
		user.ID, user.Username, msgID)
}
