package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"threadly/internal/model"
)

// conversationRepository persists conversations and messages. The pair
// (user_a_id, user_b_id) is normalized so user_a_id < user_b_id and is
// unique, giving exactly one conversation per unordered pair.
type conversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// orderPair normalizes an unordered pair to (low, high).
func orderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r *conversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	query := `
		SELECT id, user_a_id, user_b_id, last_message_id, last_text,
		       last_sender_id, last_message_at, created_at
		FROM conversations
		WHERE id = $1
	`

	var c model.Conversation
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &c, nil
}

// GetOrCreate inserts the pair row if absent and returns the winner.
// ON CONFLICT DO NOTHING plus a re-select makes concurrent first messages
// between the same pair converge on a single conversation.
func (r *conversationRepository) GetOrCreate(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	low, high := orderPair(userA, userB)

	insert := `
		INSERT INTO conversations (user_a_id, user_b_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_a_id, user_b_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, low, high); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	query := `
		SELECT id, user_a_id, user_b_id, last_message_id, last_text,
		       last_sender_id, last_message_at, created_at
		FROM conversations
		WHERE user_a_id = $1 AND user_b_id = $2
	`

	var c model.Conversation
	err := r.db.GetContext(ctx, &c, query, low, high)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation by pair: %w", err)
	}

	return &c, nil
}

// GetByPair looks up the conversation for the unordered pair, without
// creating one.
func (r *conversationRepository) GetByPair(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	low, high := orderPair(userA, userB)

	query := `
		SELECT id, user_a_id, user_b_id, last_message_id, last_text,
		       last_sender_id, last_message_at, created_at
		FROM conversations
		WHERE user_a_id = $1 AND user_b_id = $2
	`

	var c model.Conversation
	err := r.db.GetContext(ctx, &c, query, low, high)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by pair: %w", err)
	}

	return &c, nil
}

// ListForUser returns the user's conversation index, most recently
// active first. Conversations with no messages yet sort last.
func (r *conversationRepository) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	query := `
		SELECT id, user_a_id, user_b_id, last_message_id, last_text,
		       last_sender_id, last_message_at, created_at
		FROM conversations
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY last_message_at DESC NULLS LAST, id DESC
	`

	var conversations []model.Conversation
	err := r.db.SelectContext(ctx, &conversations, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return conversations, nil
}

func (r *conversationRepository) GetMessage(ctx context.Context, messageID int64) (*model.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, text, img_url, delivery_state, created_at
		FROM messages
		WHERE id = $1
	`

	var msg model.Message
	err := r.db.GetContext(ctx, &msg, query, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

func (r *conversationRepository) InsertMessage(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, text, img_url, delivery_state, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	row := tx.QueryRowxContext(ctx, query,
		msg.ConversationID,
		msg.SenderID,
		msg.Text,
		msg.ImgURL,
		msg.DeliveryState,
	)
	if err := row.Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

func (r *conversationRepository) UpdateLastMessage(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	query := `
		UPDATE conversations
		SET last_message_id = $2, last_text = $3, last_sender_id = $4, last_message_at = $5
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query, msg.ConversationID, msg.ID, msg.Text, msg.SenderID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to update last message: %w", err)
	}
	return nil
}

func (r *conversationRepository) ListMessages(ctx context.Context, conversationID int64, cursor *MessageCursor, limit int) ([]model.Message, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, conversation_id, sender_id, text, img_url, delivery_state, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2
		`
		args = []interface{}{conversationID, limit}
	} else {
		query = `
			SELECT id, conversation_id, sender_id, text, img_url, delivery_state, created_at
			FROM messages
			WHERE conversation_id = $1
			  AND (created_at, id) > ($2, $3)
			ORDER BY created_at ASC, id ASC
			LIMIT $4
		`
		args = []interface{}{conversationID, cursor.CreatedAt, cursor.ID, limit}
	}

	var messages []model.Message
	err := r.db.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// MarkDelivered promotes a single message from pending to delivered.
// The guard on the current state makes concurrent promotion idempotent.
func (r *conversationRepository) MarkDelivered(ctx context.Context, messageID int64) (bool, error) {
	query := `
		UPDATE messages
		SET delivery_state = $2
		WHERE id = $1 AND delivery_state = $3
	`
	result, err := r.db.ExecContext(ctx, query, messageID, model.DeliveryDelivered, model.DeliveryPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark delivered: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *conversationRepository) MarkDeliveredForRecipient(ctx context.Context, conversationID, recipientID int64) (int64, error) {
	query := `
		UPDATE messages
		SET delivery_state = $3
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND delivery_state = $4
	`
	result, err := r.db.ExecContext(ctx, query, conversationID, recipientID, model.DeliveryDelivered, model.DeliveryPending)
	if err != nil {
		return 0, fmt.Errorf("failed to mark delivered for recipient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// MarkSeen transitions to seen on an explicit recipient acknowledgment.
// Only the non-sender may ack, and only forward (pending or delivered).
func (r *conversationRepository) MarkSeen(ctx context.Context, messageID, recipientID int64) (*model.Message, error) {
	query := `
		UPDATE messages
		SET delivery_state = $3
		WHERE id = $1
		  AND sender_id <> $2
		  AND delivery_state IN ($4, $5)
		RETURNING id, conversation_id, sender_id, text, img_url, delivery_state, created_at
	`

	var msg model.Message
	err := r.db.GetContext(ctx, &msg, query,
		messageID, recipientID, model.DeliverySeen, model.DeliveryPending, model.DeliveryDelivered)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already seen, not addressed to this user, or missing: all
			// collapse to not-found for the ack path.
			return nil, model.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to mark seen: %w", err)
	}

	return &msg, nil
}
