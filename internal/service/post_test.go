package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"threadly/internal/model"
)

func TestPostService_CreatePost_Validation(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, &mockUserRepo{}, &mockGraphRepo{}, nil)

	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"blank text", "   ", model.ErrTextRequired},
		{"too long", strings.Repeat("a", model.MaxPostTextLength+1), model.ErrTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), 1, &model.CreatePostRequest{Text: tt.text})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostService_CreatePost_TrimsText(t *testing.T) {
	postRepo := &mockPostRepo{
		createFn: func(ctx context.Context, authorID int64, text string, imgURL *string) (*model.Post, error) {
			return &model.Post{ID: 1, AuthorID: authorID, Text: text}, nil
		},
	}
	svc := NewPostService(postRepo, &mockUserRepo{}, &mockGraphRepo{}, nil)

	post, err := svc.CreatePost(context.Background(), 1, &model.CreatePostRequest{Text: "  hello  "})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if post.Text != "hello" {
		t.Errorf("text = %q, want %q", post.Text, "hello")
	}
}

func TestPostService_AddReply_UnknownPost(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, &mockUserRepo{}, &mockGraphRepo{}, nil)

	_, err := svc.AddReply(context.Background(), 99, 1, &model.CreateReplyRequest{Text: "hi"})
	if !errors.Is(err, model.ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestPostService_ListUserPosts_MalformedCursor(t *testing.T) {
	svc := NewPostService(&mockPostRepo{}, &mockUserRepo{}, &mockGraphRepo{}, nil)

	bad := "zzz"
	_, err := svc.ListUserPosts(context.Background(), 1, &bad, 20, nil)
	if !errors.Is(err, model.ErrInvalidCursor) {
		t.Fatalf("err = %v, want ErrInvalidCursor", err)
	}
}
