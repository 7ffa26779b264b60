package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"threadly/internal/handler"
	"threadly/internal/httputil"
	authmw "threadly/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	UserHandler         *handler.UserHandler
	FollowHandler       *handler.FollowHandler
	FeedHandler         *handler.FeedHandler
	PostHandler         *handler.PostHandler
	ConversationHandler *handler.ConversationHandler
	MediaHandler        *handler.MediaHandler
	DeviceHandler       *handler.DeviceHandler
	WSHandler           *handler.WSHandler
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public reads with optional authentication: the response is richer
	// when the viewer is known.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(cfg.JWTSecret))

		r.Get("/users/{id}", cfg.UserHandler.GetUser)
		r.Get("/users/{id}/posts", cfg.PostHandler.ListUserPosts)
		r.Get("/posts/{id}", cfg.PostHandler.GetPost)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.Auth(cfg.JWTSecret))

		r.Get("/users/suggested", cfg.UserHandler.GetSuggested)
		r.Patch("/profile", cfg.UserHandler.UpdateProfile)
		r.Put("/profile/freeze", cfg.UserHandler.FreezeAccount)

		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

		r.Get("/feed", cfg.FeedHandler.GetFeed)

		r.Post("/posts", cfg.PostHandler.CreatePost)
		r.Delete("/posts/{id}", cfg.PostHandler.DeletePost)
		r.Post("/posts/{id}/like", cfg.PostHandler.LikePost)
		r.Delete("/posts/{id}/like", cfg.PostHandler.UnlikePost)
		r.Post("/posts/{id}/replies", cfg.PostHandler.AddReply)

		r.Get("/conversations", cfg.ConversationHandler.ListConversations)
		r.Get("/conversations/{otherUserId}", cfg.ConversationHandler.GetConversation)
		r.Post("/messages", cfg.ConversationHandler.SendMessage)
		r.Post("/messages/{id}/seen", cfg.ConversationHandler.MarkSeen)

		if cfg.MediaHandler != nil {
			r.Post("/media/presign", cfg.MediaHandler.PresignUpload)
		}

		if cfg.DeviceHandler != nil {
			r.Post("/devices", cfg.DeviceHandler.RegisterDevice)
			r.Delete("/devices/{token}", cfg.DeviceHandler.UnregisterDevice)
		}

		r.Get("/ws", cfg.WSHandler.Connect)
	})

	return r
}
