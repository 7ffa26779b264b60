package realtime

import (
	"context"
	"log"

	"threadly/internal/model"
	"threadly/internal/repository"
)

// PushNotifier sends a mobile push for a message whose recipient has no
// live connection. Implemented by the push service.
type PushNotifier interface {
	NotifyNewMessage(ctx context.Context, recipientID int64, msg *model.Message)
}

// Dispatcher moves durably persisted messages onto live connections. It
// runs strictly after the message transaction commits and can only add
// delivery, never undo persistence: every failure here leaves the message
// pending for the reconnect pull.
type Dispatcher struct {
	presence *Tracker
	convRepo repository.ConversationRepository
	push     PushNotifier
}

func NewDispatcher(presence *Tracker, convRepo repository.ConversationRepository, push PushNotifier) *Dispatcher {
	return &Dispatcher{
		presence: presence,
		convRepo: convRepo,
		push:     push,
	}
}

// DispatchMessage delivers a committed message to the recipient. Online:
// promote to delivered and push to every connection. Offline: leave
// pending and fire a best-effort mobile push.
func (d *Dispatcher) DispatchMessage(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	recipientID := conv.Other(msg.SenderID)
	clients := d.presence.ConnectionsFor(recipientID)

	if len(clients) == 0 {
		log.Printf("[Dispatcher] Recipient offline: conv=%d msg=%d recipient=%d (stays pending)",
			conv.ID, msg.ID, recipientID)
		if d.push != nil {
			d.push.NotifyNewMessage(ctx, recipientID, msg)
		}
		return
	}

	// Promote before pushing so the frames carry the state the row has.
	// The guard in MarkDelivered makes a race with the reconnect pull
	// harmless.
	promoted, err := d.convRepo.MarkDelivered(ctx, msg.ID)
	if err != nil {
		log.Printf("[Dispatcher] MarkDelivered FAILED: msg=%d err=%v", msg.ID, err)
	} else if promoted {
		msg.DeliveryState = model.DeliveryDelivered
	}

	ev := newMessageEvent(msg)
	sent := 0
	for _, c := range clients {
		if c.send(ev) {
			sent++
		}
	}

	log.Printf("[Dispatcher] Delivered: conv=%d msg=%d recipient=%d connections=%d/%d",
		conv.ID, msg.ID, recipientID, sent, len(clients))
}

// DispatchSeen echoes a seen ack to the sender's live connections. An
// offline sender learns the state from the row when they next fetch.
func (d *Dispatcher) DispatchSeen(ctx context.Context, conv *model.Conversation, msg *model.Message, seenBy int64) {
	clients := d.presence.ConnectionsFor(msg.SenderID)
	if len(clients) == 0 {
		return
	}

	ev := messageSeenEvent(msg, seenBy)
	for _, c := range clients {
		c.send(ev)
	}

	log.Printf("[Dispatcher] Seen echo: conv=%d msg=%d sender=%d connections=%d",
		conv.ID, msg.ID, msg.SenderID, len(clients))
}
