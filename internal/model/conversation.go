package model

import (
	"errors"
	"time"
)

// Delivery states for a message, from the recipient's point of view.
// pending   - persisted while the recipient had no open connection
// delivered - pushed over a live connection, or fetched after reconnect
// seen      - explicitly acknowledged by the recipient
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliverySeen      = "seen"
)

// Conversation holds exactly two participants. There is one conversation
// per unordered pair of users, created lazily on first message.
type Conversation struct {
	ID            int64      `db:"id" json:"id"`
	UserAID       int64      `db:"user_a_id" json:"user_a_id"`
	UserBID       int64      `db:"user_b_id" json:"user_b_id"`
	LastMessageID *int64     `db:"last_message_id" json:"last_message_id,omitempty"`
	LastText      *string    `db:"last_text" json:"last_text,omitempty"`
	LastSenderID  *int64     `db:"last_sender_id" json:"last_sender_id,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Participants returns both participant IDs.
func (c *Conversation) Participants() [2]int64 {
	return [2]int64{c.UserAID, c.UserBID}
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID int64) int64 {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Message is immutable once persisted except for DeliveryState
// transitions. Messages are totally ordered within a conversation by
// (CreatedAt, ID).
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	Text           string    `db:"text" json:"text"`
	ImgURL         *string   `db:"img_url" json:"img_url"`
	DeliveryState  string    `db:"delivery_state" json:"delivery_state"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SendMessageRequest is the request body for POST /messages.
// Exactly one of ConversationID or TargetUserID must be set.
type SendMessageRequest struct {
	ConversationID *int64  `json:"conversation_id"`
	TargetUserID   *int64  `json:"target_user_id"`
	Text           string  `json:"text"`
	ImgURL         *string `json:"img_url"`
}

// ConversationListItem is one row of the conversation index, with the
// other participant's summary attached for rendering.
type ConversationListItem struct {
	Conversation Conversation `json:"conversation"`
	OtherUser    *UserSummary `json:"other_user,omitempty"`
}

// ConversationResponse is the payload for GET /conversations/{otherUserId}.
type ConversationResponse struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
	NextCursor   *string      `json:"next_cursor,omitempty"`
	HasMore      bool         `json:"has_more"`
}

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
	ErrSelfConversation     = errors.New("cannot message yourself")
	ErrMessageTextRequired  = errors.New("message text is required")
	ErrMessageTargetInvalid = errors.New("exactly one of conversation_id or target_user_id must be set")
)
