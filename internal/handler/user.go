package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"threadly/internal/httputil"
	"threadly/internal/model"
	"threadly/internal/service"
	"threadly/internal/transport/http/middleware"
)

type UserHandler struct {
	userService    *service.UserService
	profileService *service.ProfileService
}

func NewUserHandler(userService *service.UserService, profileService *service.ProfileService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		profileService: profileService,
	}
}

// ProfileResponse wraps a user with the viewer's relationship to them.
type ProfileResponse struct {
	User        *model.User `json:"user"`
	IsFollowing bool        `json:"is_following"`
}

// GetUser resolves the path segment as a numeric id or a username.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "id")
	if query == "" {
		httputil.WriteBadRequest(w, "User id or username required")
		return
	}

	user, err := h.userService.GetProfile(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] GetUser handler: %v", err)
			httputil.WriteInternalError(w, "Failed to fetch user")
		}
		return
	}

	resp := ProfileResponse{User: user}
	if viewerID, ok := middleware.GetUserIDFromContext(r.Context()); ok && viewerID != user.ID {
		following, err := h.userService.IsFollowing(r.Context(), viewerID, user.ID)
		if err != nil {
			log.Printf("[ERROR] GetUser follow status: %v", err)
		} else {
			resp.IsFollowing = following
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetSuggested returns users the viewer might want to follow.
func (h *UserHandler) GetSuggested(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			httputil.WriteBadRequest(w, "Invalid limit")
			return
		}
		limit = parsed
	}

	users, err := h.userService.Suggested(r.Context(), viewerID, limit)
	if err != nil {
		log.Printf("[ERROR] GetSuggested handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch suggested users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

// UpdateProfile applies a partial profile update for the authenticated
// user. A username or avatar change triggers the async reply snapshot
// rewrite; the response does not wait for it.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.profileService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUsernameInvalid):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrUsernameExists):
			httputil.WriteConflict(w, err.Error())
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] UpdateProfile handler: %v", err)
			httputil.WriteInternalError(w, "Failed to update profile")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// FreezeAccount hides the authenticated user's account. The profile reads
// as not found and the user disappears from suggestions until unfrozen.
func (h *UserHandler) FreezeAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.profileService.FreezeAccount(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] FreezeAccount handler: %v", err)
			httputil.WriteInternalError(w, "Failed to freeze account")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
