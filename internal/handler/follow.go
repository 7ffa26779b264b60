package handler

import (
	"context"
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

type FollowHandler struct {
	graphService *service.GraphService
}

func NewFollowHandler(graphService *service.GraphService) *FollowHandler {
	return &FollowHandler{
		graphService: graphService,
	}
}

// Follow adds the target to the caller's followings. Repeats are no-ops:
// the result's "changed" field tells the client whether anything happened.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.graphService.Follow)
}

// Unfollow removes the target from the caller's followings.
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.graphService.Unfollow)
}

func (h *FollowHandler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actorID, targetID int64) (*model.FollowResult, error),
) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetIDStr := chi.URLParam(r, "id")
	targetID, err := strconv.ParseInt(targetIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	result, err := op(r.Context(), actorID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Follow mutate handler: %v", err)
			httputil.WriteInternalError(w, "Failed to update follow state")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
