package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"threadly/internal/httputil"
	"threadly/internal/model"
	"threadly/internal/service"
	"threadly/internal/transport/http/middleware"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed returns posts from the users the caller follows, newest first.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	cursor, limit, ok := parsePageParams(w, r)
	if !ok {
		return
	}

	feed, err := h.feedService.GetFeed(r.Context(), viewerID, cursor, limit)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, err.Error())
		case errors.Is(err, model.ErrInvalidCursor):
			httputil.WriteBadRequest(w, err.Error())
		default:
			log.Printf("[ERROR] GetFeed handler: %v", err)
			httputil.WriteInternalError(w, "Failed to fetch feed")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}

// parsePageParams reads the shared cursor/limit query parameters. Returns
// ok=false after writing the error response.
func parsePageParams(w http.ResponseWriter, r *http.Request) (*string, int, bool) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
			return nil, 0, false
		}
		limit = parsed
	}

	return cursor, limit, true
}
