package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write one frame to the peer.
	writeWait = 10 * time.Second

	// maxMessageSize caps inbound frames; client traffic is small acks.
	maxMessageSize = 16 * 1024

	// sendBufSize is the per-connection outbound buffer.
	sendBufSize = 256

	// sendTimeout bounds enqueueing an outbound event. A connection whose
	// buffer stays full this long is dropped rather than backpressured.
	sendTimeout = 2 * time.Second
)

// Client is one websocket connection owned by one authenticated user.
// A user may hold several clients at once (several devices).
type Client struct {
	ID     string
	userID int64

	conn   *websocket.Conn
	hub    *Hub
	egress chan Event

	// idleTimeout is the pong deadline; pings go out at 90% of it.
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newClient(userID int64, conn *websocket.Conn, hub *Hub, idleTimeout time.Duration) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:          uuid.NewString(),
		userID:      userID,
		conn:        conn,
		hub:         hub,
		egress:      make(chan Event, sendBufSize),
		idleTimeout: idleTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// readPump consumes inbound frames until the connection dies or goes
// idle past the pong deadline. Exiting the pump unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	})

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Realtime] Read error: client=%s user=%d err=%v", c.ID, c.userID, err)
			}
			return
		}

		c.hub.handleInbound(c, ev)
	}
}

// writePump serializes all writes to the connection: queued events plus
// the keepalive pings that arm the idle timeout.
func (c *Client) writePump() {
	pingInterval := c.idleTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case ev, ok := <-c.egress:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Printf("[Realtime] Write error: client=%s user=%d err=%v", c.ID, c.userID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// send enqueues an event for the write pump. Returns false when the client
// is gone or its buffer stayed full past the timeout; the caller decides
// what a failed push means (for delivery it means the offline path).
func (c *Client) send(ev Event) bool {
	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- ev:
		return true
	case <-time.After(sendTimeout):
		log.Printf("[Realtime] Egress full, dropping client=%s user=%d", c.ID, c.userID)
		c.close()
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}
