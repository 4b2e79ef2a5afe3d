package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/model"
)

type ChatRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	// Recent returns up to limit of the latest messages, oldest first.
	Recent(ctx context.Context, userID string, limit int) ([]*model.ChatMessage, error)
	DeleteAll(ctx context.Context, userID string) error
}

type chatRepository struct {
	db sqlx.ExtContext
}

func NewChatRepository(db sqlx.ExtContext) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, conversation_type, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.UserID, msg.ConversationType, msg.Role, msg.Content, msg.CreatedAt)

	return err
}

func (r *chatRepository) Recent(ctx context.Context, userID string, limit int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	query := `SELECT * FROM chat_messages WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	err := sqlx.SelectContext(ctx, r.db, &messages, query, userID, limit)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *chatRepository) DeleteAll(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	return err
}
