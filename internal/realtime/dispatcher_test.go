package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"threadly/internal/model"
	"threadly/internal/repository"
)

type mockConvRepo struct {
	repository.ConversationRepository
	markDeliveredFn func(ctx context.Context, messageID int64) (bool, error)

	markDeliveredCalls int
}

func (m *mockConvRepo) MarkDelivered(ctx context.Context, messageID int64) (bool, error) {
	m.markDeliveredCalls++
	if m.markDeliveredFn != nil {
		return m.markDeliveredFn(ctx, messageID)
	}
	return true, nil
}

type mockPush struct {
	notified []int64
}

func (m *mockPush) NotifyNewMessage(ctx context.Context, recipientID int64, msg *model.Message) {
	m.notified = append(m.notified, recipientID)
}

func drainOne(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.egress:
		return ev
	default:
		t.Fatal("expected an event on the client egress")
		return Event{}
	}
}

func TestDispatcher_OfflineRecipientStaysPendingAndGetsPush(t *testing.T) {
	convRepo := &mockConvRepo{}
	push := &mockPush{}
	d := NewDispatcher(NewTracker(), convRepo, push)

	conv := &model.Conversation{ID: 9, UserAID: 1, UserBID: 2}
	msg := &model.Message{ID: 5, ConversationID: 9, SenderID: 1, Text: "hi", DeliveryState: model.DeliveryPending}

	d.DispatchMessage(context.Background(), conv, msg)

	if convRepo.markDeliveredCalls != 0 {
		t.Errorf("MarkDelivered calls = %d, want 0 for offline recipient", convRepo.markDeliveredCalls)
	}
	if msg.DeliveryState != model.DeliveryPending {
		t.Errorf("state = %q, want pending", msg.DeliveryState)
	}
	if len(push.notified) != 1 || push.notified[0] != 2 {
		t.Errorf("push notified = %v, want [2]", push.notified)
	}
}

func TestDispatcher_OnlineRecipientPromotedBeforePush(t *testing.T) {
	tracker := NewTracker()
	recipient := testClient(2)
	tracker.Register(recipient)

	convRepo := &mockConvRepo{}
	push := &mockPush{}
	d := NewDispatcher(tracker, convRepo, push)

	conv := &model.Conversation{ID: 9, UserAID: 1, UserBID: 2}
	msg := &model.Message{ID: 5, ConversationID: 9, SenderID: 1, Text: "hi", DeliveryState: model.DeliveryPending}

	d.DispatchMessage(context.Background(), conv, msg)

	if convRepo.markDeliveredCalls != 1 {
		t.Fatalf("MarkDelivered calls = %d, want 1", convRepo.markDeliveredCalls)
	}
	if msg.DeliveryState != model.DeliveryDelivered {
		t.Errorf("state = %q, want delivered", msg.DeliveryState)
	}
	if len(push.notified) != 0 {
		t.Errorf("push notified = %v, want none for an online recipient", push.notified)
	}

	ev := drainOne(t, recipient)
	if ev.Type != EventNewMessage {
		t.Fatalf("event type = %q, want %q", ev.Type, EventNewMessage)
	}
	// The frame carries the state the row has after promotion.
	var framed model.Message
	if err := json.Unmarshal(ev.Payload, &framed); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if framed.ID != 5 || framed.DeliveryState != model.DeliveryDelivered {
		t.Errorf("framed message = %+v, want id=5 state=delivered", framed)
	}
}

func TestDispatcher_FansOutToEveryDevice(t *testing.T) {
	tracker := NewTracker()
	phone := testClient(2)
	laptop := testClient(2)
	tracker.Register(phone)
	tracker.Register(laptop)

	d := NewDispatcher(tracker, &mockConvRepo{}, nil)

	conv := &model.Conversation{ID: 9, UserAID: 1, UserBID: 2}
	msg := &model.Message{ID: 5, ConversationID: 9, SenderID: 1, Text: "hi", DeliveryState: model.DeliveryPending}

	d.DispatchMessage(context.Background(), conv, msg)

	drainOne(t, phone)
	drainOne(t, laptop)
}

func TestDispatcher_PromotionFailureStillPushesPendingFrame(t *testing.T) {
	tracker := NewTracker()
	recipient := testClient(2)
	tracker.Register(recipient)

	convRepo := &mockConvRepo{
		markDeliveredFn: func(ctx context.Context, messageID int64) (bool, error) {
			return false, errors.New("db down")
		},
	}
	d := NewDispatcher(tracker, convRepo, nil)

	conv := &model.Conversation{ID: 9, UserAID: 1, UserBID: 2}
	msg := &model.Message{ID: 5, ConversationID: 9, SenderID: 1, Text: "hi", DeliveryState: model.DeliveryPending}

	d.DispatchMessage(context.Background(), conv, msg)

	// Delivery is best effort on top of persistence: the frame still goes
	// out, the row stays pending, and the reconnect pull reconciles.
	ev := drainOne(t, recipient)
	if ev.Type != EventNewMessage {
		t.Fatalf("event type = %q, want %q", ev.Type, EventNewMessage)
	}
	if msg.DeliveryState != model.DeliveryPending {
		t.Errorf("state = %q, want pending after failed promotion", msg.DeliveryState)
	}
}

func TestDispatcher_SeenEchoGoesToSender(t *testing.T) {
	tracker := NewTracker()
	sender := testClient(1)
	recipientDevice := testClient(2)
	tracker.Register(sender)
	tracker.Register(recipientDevice)

	d := NewDispatcher(tracker, &mockConvRepo{}, nil)

	conv := &model.Conversation{ID: 9, UserAID: 1, UserBID: 2}
	msg := &model.Message{ID: 5, ConversationID: 9, SenderID: 1, DeliveryState: model.DeliverySeen}

	d.DispatchSeen(context.Background(), conv, msg, 2)

	ev := drainOne(t, sender)
	if ev.Type != EventMessageSeen {
		t.Fatalf("event type = %q, want %q", ev.Type, EventMessageSeen)
	}

	var payload MessageSeenPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.MessageID != 5 || payload.SeenBy != 2 {
		t.Errorf("payload = %+v, want message_id=5 seen_by=2", payload)
	}

	select {
	case ev := <-recipientDevice.egress:
		t.Errorf("recipient received unexpected %q event", ev.Type)
	default:
	}
}
