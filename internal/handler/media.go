package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"threadly/internal/httputil"
	"threadly/internal/model"
	"threadly/internal/service"
	"threadly/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

// PresignUpload hands out a time-limited direct-upload URL. The media
// bytes go straight to object storage; this server only ever stores the
// resulting public URL.
func (h *MediaHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	resp, err := h.mediaService.PresignUpload(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidImageType), errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequest(w, err.Error())
		default:
			log.Printf("[ERROR] PresignUpload handler: %v", err)
			httputil.WriteInternalError(w, "Failed to presign upload")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
