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

type ConversationHandler struct {
	convService *service.ConversationService
}

func NewConversationHandler(convService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		convService: convService,
	}
}

// ListConversations returns the caller's conversation index, most
// recently active first.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	conversations, err := h.convService.ListConversations(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] ListConversations handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch conversations")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
	})
}

// GetConversation returns the caller's conversation with another user and
// a page of messages, oldest first. Fetching as the recipient promotes
// pending messages to delivered.
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	otherIDStr := chi.URLParam(r, "otherUserId")
	otherID, err := strconv.ParseInt(otherIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, limit, ok := parsePageParams(w, r)
	if !ok {
		return
	}

	resp, err := h.convService.GetConversation(r.Context(), userID, otherID, cursor, limit)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSelfConversation):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrInvalidCursor):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrConversationNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] GetConversation handler: %v", err)
			httputil.WriteInternalError(w, "Failed to fetch conversation")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// SendMessage persists a message and dispatches it to the recipient's
// live connections. The 201 means the message is durable, not that it was
// delivered.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	msg, err := h.convService.SendMessage(r.Context(), senderID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMessageTextRequired),
			errors.Is(err, model.ErrMessageTargetInvalid),
			errors.Is(err, model.ErrSelfConversation):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrNotParticipant):
			httputil.WriteForbidden(w, err.Error())
		case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrConversationNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] SendMessage handler: %v", err)
			httputil.WriteInternalError(w, "Failed to send message")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// MarkSeen is the REST fallback for the websocket seen ack.
func (h *ConversationHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	readerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	msgIDStr := chi.URLParam(r, "id")
	msgID, err := strconv.ParseInt(msgIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid message ID")
		return
	}

	msg, err := h.convService.MarkSeen(r.Context(), msgID, readerID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMessageNotFound), errors.Is(err, model.ErrConversationNotFound):
			httputil.WriteNotFound(w, err.Error())
		case errors.Is(err, model.ErrNotParticipant):
			httputil.WriteForbidden(w, err.Error())
		default:
			log.Printf("[ERROR] MarkSeen handler: %v", err)
			httputil.WriteInternalError(w, "Failed to mark message seen")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, msg)
}
