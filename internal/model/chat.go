package model

import (
	"time"
)

const (
	ConversationGeneral  = "general"
	ConversationStrategy = "strategy"
	ConversationPipeline = "pipeline"
	ConversationGoals    = "goals"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"-"`
	ConversationType string    `db:"conversation_type" json:"conversation_type"`
	Role             string    `db:"role" json:"role"`
	Content          string    `db:"content" json:"content"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

func IsValidConversationType(t string) bool {
	switch t {
	case ConversationGeneral, ConversationStrategy, ConversationPipeline, ConversationGoals:
		return true
	}
	return false
}
