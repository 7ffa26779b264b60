package service

import (
	"context"
	"errors"
	"testing"

	"threadly/internal/model"
	"threadly/internal/queue"
)

func strPtr(s string) *string { return &s }

func TestProfileService_UpdateProfile_PublishesOnSnapshotFields(t *testing.T) {
	userRepo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
			return &model.User{ID: userID, Username: "newname", AvatarURL: strPtr("https://cdn/a.png")}, nil
		},
	}
	pub := &mockPublisher{}
	svc := NewProfileService(userRepo, pub)

	user, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{Username: strPtr("newname")})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.Username != "newname" {
		t.Errorf("username = %q, want %q", user.Username, "newname")
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != queue.EventProfileChanged {
		t.Errorf("event type = %q, want %q", ev.Type, queue.EventProfileChanged)
	}
	if ev.UserID != 1 || ev.Username != "newname" {
		t.Errorf("event = %+v, want user=1 username=newname", ev)
	}
}

func TestProfileService_UpdateProfile_NoPublishForOtherFields(t *testing.T) {
	pub := &mockPublisher{}
	svc := NewProfileService(&mockUserRepo{}, pub)

	_, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{Bio: strPtr("new bio")})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Bio is not cached in reply snapshots, nothing to propagate.
	if len(pub.events) != 0 {
		t.Errorf("published %d events, want 0", len(pub.events))
	}
}

func TestProfileService_UpdateProfile_BlankUsernameRejected(t *testing.T) {
	svc := NewProfileService(&mockUserRepo{}, &mockPublisher{})

	_, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{Username: strPtr("   ")})
	if !errors.Is(err, model.ErrUsernameInvalid) {
		t.Fatalf("err = %v, want ErrUsernameInvalid", err)
	}
}

func TestProfileService_FreezeAccount_SetsFlag(t *testing.T) {
	userRepo := &mockUserRepo{}
	svc := NewProfileService(userRepo, &mockPublisher{})

	if err := svc.FreezeAccount(context.Background(), 1); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(userRepo.frozenSets) != 1 || !userRepo.frozenSets[0] {
		t.Errorf("frozen writes = %v, want [true]", userRepo.frozenSets)
	}
}

func TestProfileService_FreezeAccount_UnknownUser(t *testing.T) {
	userRepo := &mockUserRepo{
		setFrozenFn: func(ctx context.Context, userID int64, frozen bool) error {
			return model.ErrUserNotFound
		},
	}
	svc := NewProfileService(userRepo, &mockPublisher{})

	if err := svc.FreezeAccount(context.Background(), 99); !errors.Is(err, model.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestProfileService_UpdateProfile_PublishFailureDoesNotFailUpdate(t *testing.T) {
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, stream string, event queue.SyncEvent) (string, error) {
			return "", errors.New("redis down")
		},
	}
	svc := NewProfileService(&mockUserRepo{}, pub)

	user, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{AvatarURL: strPtr("https://cdn/b.png")})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user == nil {
		t.Fatal("expected updated user despite publish failure")
	}
}
