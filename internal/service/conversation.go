package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"threadly/internal/model"
	"threadly/internal/repository"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

// MessageDispatcher is the realtime delivery hook called after a message
// or seen-ack is durably persisted. Implementations must not fail the
// calling request: delivery problems are their own to log and recover.
type MessageDispatcher interface {
	DispatchMessage(ctx context.Context, conv *model.Conversation, msg *model.Message)
	DispatchSeen(ctx context.Context, conv *model.Conversation, msg *model.Message, seenBy int64)
}

// ConversationService handles direct messages. Persistence is the
// durability point: a message exists once its transaction commits,
// whatever happens to realtime delivery afterwards.
type ConversationService struct {
	convRepo   repository.ConversationRepository
	userRepo   repository.UserRepository
	db         *sqlx.DB
	dispatcher MessageDispatcher
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	db *sqlx.DB,
	dispatcher MessageDispatcher,
) *ConversationService {
	return &ConversationService{
		convRepo:   convRepo,
		userRepo:   userRepo,
		db:         db,
		dispatcher: dispatcher,
	}
}

// SendMessage persists a message and then hands it to the dispatcher.
// The message targets either an existing conversation or another user
// (creating the pair's conversation on first contact), never both.
func (s *ConversationService) SendMessage(ctx context.Context, senderID int64, req *model.SendMessageRequest) (*model.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.ImgURL == nil {
		return nil, model.ErrMessageTextRequired
	}

	conv, err := s.resolveConversation(ctx, senderID, req)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		ImgURL:         req.ImgURL,
		DeliveryState:  model.DeliveryPending,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.convRepo.InsertMessage(ctx, tx, msg); err != nil {
		return nil, err
	}

	if err := s.convRepo.UpdateLastMessage(ctx, tx, msg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	// Delivery happens after the commit and cannot undo it. An offline
	// recipient leaves the message pending until reconnect.
	if s.dispatcher != nil {
		s.dispatcher.DispatchMessage(ctx, conv, msg)
	}

	return msg, nil
}

func (s *ConversationService) resolveConversation(ctx context.Context, senderID int64, req *model.SendMessageRequest) (*model.Conversation, error) {
	switch {
	case req.ConversationID != nil && req.TargetUserID == nil:
		conv, err := s.convRepo.GetByID(ctx, *req.ConversationID)
		if err != nil {
			return nil, err
		}
		if !conv.HasParticipant(senderID) {
			return nil, model.ErrNotParticipant
		}
		return conv, nil

	case req.TargetUserID != nil && req.ConversationID == nil:
		targetID := *req.TargetUserID
		if targetID == senderID {
			return nil, model.ErrSelfConversation
		}
		if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
			return nil, err
		}
		return s.convRepo.GetOrCreate(ctx, senderID, targetID)

	default:
		return nil, model.ErrMessageTargetInvalid
	}
}

// ListConversations returns the user's conversation index, most recently
// active first, with the other participant's summary attached. A
// participant whose row has since vanished leaves OtherUser nil rather
// than dropping the conversation.
func (s *ConversationService) ListConversations(ctx context.Context, userID int64) ([]model.ConversationListItem, error) {
	conversations, err := s.convRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]int64, 0, len(conversations))
	for i := range conversations {
		otherIDs = append(otherIDs, conversations[i].Other(userID))
	}

	summaries, err := s.userRepo.GetSummaries(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	items := make([]model.ConversationListItem, 0, len(conversations))
	for i := range conversations {
		item := model.ConversationListItem{Conversation: conversations[i]}
		if summary, ok := summaries[conversations[i].Other(userID)]; ok {
			item.OtherUser = &summary
		}
		items = append(items, item)
	}

	return items, nil
}

// GetConversation returns the conversation with otherUserID and a page of
// its messages, oldest first. Reading as the recipient promotes any
// pending messages addressed to the reader to delivered first, so the
// page reflects the fetch that just happened (the reconnect catch-up
// path).
func (s *ConversationService) GetConversation(ctx context.Context, userID, otherUserID int64, cursor *string, limit int) (*model.ConversationResponse, error) {
	if userID == otherUserID {
		return nil, model.ErrSelfConversation
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	if _, err := s.userRepo.GetByID(ctx, otherUserID); err != nil {
		return nil, err
	}

	conv, err := s.convRepo.GetByPair(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}

	promoted, err := s.convRepo.MarkDeliveredForRecipient(ctx, conv.ID, userID)
	if err != nil {
		log.Printf("[ConversationService] Promote pending FAILED: conv=%d user=%d err=%v", conv.ID, userID, err)
	} else if promoted > 0 {
		log.Printf("[ConversationService] Promoted %d pending messages: conv=%d user=%d", promoted, conv.ID, userID)
	}

	msgCursor, err := parseMessageCursor(cursor)
	if err != nil {
		return nil, err
	}

	messages, err := s.convRepo.ListMessages(ctx, conv.ID, msgCursor, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	if messages == nil {
		messages = []model.Message{}
	}

	var nextCursor *string
	if hasMore && len(messages) > 0 {
		last := messages[len(messages)-1]
		c := encodePostCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	return &model.ConversationResponse{
		Conversation: *conv,
		Messages:     messages,
		NextCursor:   nextCursor,
		HasMore:      hasMore,
	}, nil
}

// MarkSeen records the recipient's explicit acknowledgment and echoes it
// to the sender's live connections. Only a participant who is not the
// sender may ack; the transition only moves forward.
func (s *ConversationService) MarkSeen(ctx context.Context, messageID, readerID int64) (*model.Message, error) {
	msg, err := s.convRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	conv, err := s.convRepo.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(readerID) {
		return nil, model.ErrNotParticipant
	}

	// Repeated acks are no-ops, not errors.
	if msg.DeliveryState == model.DeliverySeen {
		return msg, nil
	}

	seen, err := s.convRepo.MarkSeen(ctx, messageID, readerID)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchSeen(ctx, conv, seen, readerID)
	}

	return seen, nil
}

// parseMessageCursor decodes a message page token. Same wire format as the
// post cursor; messages page forward (ascending) instead of backward.
func parseMessageCursor(raw *string) (*repository.MessageCursor, error) {
	pc, err := parsePostCursor(raw)
	if err != nil {
		return nil, err
	}
	if pc == nil {
		return nil, nil
	}
	return &repository.MessageCursor{CreatedAt: pc.CreatedAt, ID: pc.ID}, nil
}
