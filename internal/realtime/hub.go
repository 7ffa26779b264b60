package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"threadly/internal/model"
)

// SeenMarker handles the inbound messageSeen ack. Implemented by the
// conversation service; declared here so the hub does not depend on it.
type SeenMarker interface {
	MarkSeen(ctx context.Context, messageID, readerID int64) (*model.Message, error)
}

// Hub owns websocket connection lifecycle: it registers clients into the
// presence tracker, routes inbound client events, and shuts everything
// down together.
type Hub struct {
	presence    *Tracker
	seenMarker  SeenMarker
	idleTimeout time.Duration

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(presence *Tracker, idleTimeout time.Duration) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		presence:    presence,
		idleTimeout: idleTimeout,
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go h.run()
	return h
}

// SetSeenMarker wires the seen-ack handler. Separate from the constructor
// because the conversation service and the hub reference each other.
func (h *Hub) SetSeenMarker(m SeenMarker) {
	h.seenMarker = m
}

// Connect adopts an upgraded connection for the given user and starts its
// pumps.
func (h *Hub) Connect(userID int64, conn *websocket.Conn) {
	c := newClient(userID, conn, h, h.idleTimeout)

	select {
	case h.register <- c:
		go c.readPump()
		go c.writePump()
	case <-h.ctx.Done():
		conn.Close()
	}
}

// Shutdown stops the lifecycle loop and closes every live connection.
func (h *Hub) Shutdown() {
	h.cancel()
	<-h.done

	for _, c := range h.presence.AllClients() {
		c.close()
	}
	log.Printf("[Hub] Shut down")
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			return

		case c := <-h.register:
			cameOnline := h.presence.Register(c)
			log.Printf("[Hub] Registered: client=%s user=%d online_transition=%v", c.ID, c.userID, cameOnline)

			if cameOnline {
				h.notifyPresence(c.userID, true)
			}

		case c := <-h.unregister:
			userID, wentOffline := h.presence.Unregister(c.ID)
			log.Printf("[Hub] Unregistered: client=%s user=%d offline_transition=%v", c.ID, userID, wentOffline)
		}
	}
}

// notifyPresence tells a user's live connections about their own presence
// transition (a second device seeing the account come online elsewhere).
func (h *Hub) notifyPresence(userID int64, online bool) {
	ev := presenceEvent(userID, online)
	for _, c := range h.presence.ConnectionsFor(userID) {
		c.send(ev)
	}
}

// handleInbound routes one client event. The only inbound event today is
// the seen ack; everything else is logged and dropped.
func (h *Hub) handleInbound(c *Client, ev Event) {
	switch ev.Type {
	case EventMessageSeen:
		var payload MessageSeenPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			log.Printf("[Hub] Malformed messageSeen payload: client=%s err=%v", c.ID, err)
			return
		}

		if h.seenMarker == nil {
			return
		}

		if _, err := h.seenMarker.MarkSeen(h.ctx, payload.MessageID, c.userID); err != nil {
			log.Printf("[Hub] MarkSeen FAILED: message=%d user=%d err=%v", payload.MessageID, c.userID, err)
		}

	default:
		log.Printf("[Hub] Unknown inbound event: type=%s client=%s", ev.Type, c.ID)
	}
}
