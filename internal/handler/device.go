package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"threadly/internal/httputil"
	"threadly/internal/model"
	"threadly/internal/service"
	"threadly/internal/transport/http/middleware"
)

type DeviceHandler struct {
	pushService *service.PushService
}

func NewDeviceHandler(pushService *service.PushService) *DeviceHandler {
	return &DeviceHandler{
		pushService: pushService,
	}
}

// RegisterDevice stores a push token for the caller. Upserting the same
// token re-points it at the caller (shared devices).
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.pushService.RegisterDevice(r.Context(), userID, &req); err != nil {
		switch {
		case errors.Is(err, model.ErrDeviceTokenRequired):
			httputil.WriteBadRequest(w, err.Error())
		default:
			log.Printf("[ERROR] RegisterDevice handler: %v", err)
			httputil.WriteInternalError(w, "Failed to register device")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device registered",
	})
}

func (h *DeviceHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	token := chi.URLParam(r, "token")
	if token == "" {
		httputil.WriteBadRequest(w, "Device token required")
		return
	}

	if err := h.pushService.UnregisterDevice(r.Context(), token); err != nil {
		log.Printf("[ERROR] UnregisterDevice handler: %v", err)
		httputil.WriteInternalError(w, "Failed to unregister device")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device unregistered",
	})
}
