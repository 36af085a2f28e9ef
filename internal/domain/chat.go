package domain

import (
	"time"
)

// MessageRole identifies who authored a chat turn.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Feedback tags a user's reaction to an assistant message.
type Feedback string

const (
	FeedbackNone Feedback = ""
	FeedbackUp   Feedback = "up"
	FeedbackDown Feedback = "down"
)

// ChatMessage is one turn in an assistant conversation. Ordering is
// append-only and maintained by the caller; the pipeline only ever sees a
// bounded trailing window of turns.
type ChatMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Feedback       Feedback    `json:"feedback,omitempty"`
	TokensUsed     int         `json:"tokens_used"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Conversation groups chat messages for a user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrailingWindow returns the last n messages, preserving order.
func TrailingWindow(messages []ChatMessage, n int) []ChatMessage {
	if n <= 0 || n >= len(messages) {
		return messages
	}
	return messages[len(messages)-n:]
}
