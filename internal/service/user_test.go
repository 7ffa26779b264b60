package service

import (
	"context"
	"errors"
	"testing"

	"threadly/internal/model"
)

func TestUserService_GetProfile_NumericQueryIsID(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "byid"}, nil
		},
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			t.Fatal("numeric query must resolve by id, not username")
			return nil, nil
		},
	}
	svc := NewUserService(userRepo, &mockGraphRepo{})

	user, err := svc.GetProfile(context.Background(), "42")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("id = %d, want 42", user.ID)
	}
}

func TestUserService_GetProfile_NonNumericQueryIsUsername(t *testing.T) {
	userRepo := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 7, Username: username}, nil
		},
	}
	svc := NewUserService(userRepo, &mockGraphRepo{})

	user, err := svc.GetProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want %q", user.Username, "alice")
	}
}

func TestUserService_GetProfile_FrozenReadsAsAbsent(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "hidden", IsFrozen: true}, nil
		},
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 7, Username: username, IsFrozen: true}, nil
		},
	}
	svc := NewUserService(userRepo, &mockGraphRepo{})

	// Frozen accounts are hidden from both lookup paths.
	for _, query := range []string{"42", "hidden"} {
		if _, err := svc.GetProfile(context.Background(), query); !errors.Is(err, model.ErrUserNotFound) {
			t.Errorf("query %q: err = %v, want ErrUserNotFound", query, err)
		}
	}
}

func TestUserService_Suggested_LimitClamped(t *testing.T) {
	var gotLimit int
	userRepo := &mockUserRepo{
		suggestedFn: func(ctx context.Context, viewerID int64, limit int) ([]model.UserSummary, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	svc := NewUserService(userRepo, &mockGraphRepo{})

	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultSuggestedLimit},
		{-3, DefaultSuggestedLimit},
		{20, 20},
		{999, MaxSuggestedLimit},
	}

	for _, tt := range tests {
		users, err := svc.Suggested(context.Background(), 1, tt.in)
		if err != nil {
			t.Fatalf("limit %d: expected no error, got: %v", tt.in, err)
		}
		if gotLimit != tt.want {
			t.Errorf("limit %d clamped to %d, want %d", tt.in, gotLimit, tt.want)
		}
		if users == nil {
			t.Errorf("limit %d: expected empty slice, got nil", tt.in)
		}
	}
}
