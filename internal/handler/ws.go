package handler

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"threadly/internal/httputil"
	"threadly/internal/realtime"
	"threadly/internal/transport/http/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origins are enforced by the gateway in front of this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect upgrades the request and hands the connection to the hub. From
// here on, presence and delivery for this user flow over the socket.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("[ERROR] WS upgrade: user=%d err=%v", userID, err)
		return
	}

	h.hub.Connect(userID, conn)
}
