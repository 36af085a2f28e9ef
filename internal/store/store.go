// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/stackie-hr/stackie-server/internal/domain"
)

// Repository defines the interface for persisting profiles and chat data.
type Repository interface {
	// GetProfile retrieves a profile by identity id. Returns (nil, nil)
	// when the profile does not exist.
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)

	// UpsertProfile creates or updates a profile record.
	UpsertProfile(ctx context.Context, profile *domain.Profile) error

	// UpdateProfile applies a partial update and returns the new state.
	UpdateProfile(ctx context.Context, id string, update *domain.ProfileUpdate) (*domain.Profile, error)

	// IncrementQueriesUsed bumps the assistant usage counter for a profile.
	IncrementQueriesUsed(ctx context.Context, id string) error

	// CreateConversation stores a new conversation.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation by id. Returns (nil, nil)
	// when it does not exist.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// AppendMessage stores a chat turn and touches its conversation.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// RecentMessages returns the last n messages of a conversation in
	// chronological order.
	RecentMessages(ctx context.Context, conversationID string, n int) ([]domain.ChatMessage, error)

	// GetMessage retrieves a message by id. Returns (nil, nil) when it
	// does not exist.
	GetMessage(ctx context.Context, id string) (*domain.ChatMessage, error)

	// SetMessageFeedback tags a message with user feedback.
	SetMessageFeedback(ctx context.Context, messageID string, feedback domain.Feedback) error

	// CleanupExpiredConversations removes conversations (and their
	// messages) idle for longer than ttl. Returns the number removed.
	CleanupExpiredConversations(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
