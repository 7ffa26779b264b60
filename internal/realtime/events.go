package realtime

import (
	"encoding/json"
	"log"

	"threadly/internal/model"
)

// Websocket event types. newMessage and presence flow server to client;
// messageSeen flows both ways (client ack in, sender echo out).
const (
	EventNewMessage  = "newMessage"
	EventMessageSeen = "messageSeen"
	EventPresence    = "presence"
)

// Event is the wire envelope for all websocket traffic.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageSeenPayload is the payload for messageSeen, both the inbound
// client ack (MessageID only) and the outbound sender echo.
type MessageSeenPayload struct {
	MessageID      int64 `json:"message_id"`
	ConversationID int64 `json:"conversation_id,omitempty"`
	SeenBy         int64 `json:"seen_by,omitempty"`
}

// PresencePayload is the payload for presence transitions.
type PresencePayload struct {
	UserID int64 `json:"user_id"`
	Online bool  `json:"online"`
}

func newMessageEvent(msg *model.Message) Event {
	return mustEvent(EventNewMessage, msg)
}

func messageSeenEvent(msg *model.Message, seenBy int64) Event {
	return mustEvent(EventMessageSeen, MessageSeenPayload{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SeenBy:         seenBy,
	})
}

func presenceEvent(userID int64, online bool) Event {
	return mustEvent(EventPresence, PresencePayload{UserID: userID, Online: online})
}

// mustEvent marshals a payload that is always serializable; a failure here
// is a programming error and yields an empty payload rather than a panic.
func mustEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Realtime] Marshal payload FAILED: type=%s err=%v", eventType, err)
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Payload: data}
}
